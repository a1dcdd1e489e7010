package ordmap

import (
	"cmp"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- invariant verifiers, mirroring verify_avl_integrity/verify_rb_integrity ---

func avlHeight[K cmp.Ordered, V any](t *testing.T, n *node[K, V]) int {
	if n == nil {
		return 0
	}
	lh := avlHeight(t, n.left)
	rh := avlHeight(t, n.right)
	require.True(t, n.balance >= -1 && n.balance <= 1, "balance factor out of range: %d", n.balance)
	require.Equal(t, int(n.balance), rh-lh, "balance factor must equal height(right)-height(left)")
	if n.left != nil {
		require.Same(t, n, n.left.parent)
	}
	if n.right != nil {
		require.Same(t, n, n.right.parent)
	}
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

func verifyAVL[K cmp.Ordered, V any](t *testing.T, tr *Tree[K, V]) {
	t.Helper()
	avlHeight(t, tr.root)
}

func rbBlackHeight[K cmp.Ordered, V any](t *testing.T, n *node[K, V]) int {
	if n == nil {
		return 1
	}
	if n.red {
		if n.left != nil {
			require.False(t, n.left.red, "red node must not have a red child")
		}
		if n.right != nil {
			require.False(t, n.right.red, "red node must not have a red child")
		}
	}
	lh := rbBlackHeight(t, n.left)
	rh := rbBlackHeight(t, n.right)
	require.Equal(t, lh, rh, "black height must match on both sides")
	if n.left != nil {
		require.Same(t, n, n.left.parent)
	}
	if n.right != nil {
		require.Same(t, n, n.right.parent)
	}
	if n.red {
		return lh
	}
	return lh + 1
}

func verifyRB[K cmp.Ordered, V any](t *testing.T, tr *Tree[K, V]) {
	t.Helper()
	if tr.root != nil {
		require.False(t, tr.root.red, "root must be black")
	}
	rbBlackHeight(t, tr.root)
}

func threadedKeys[K cmp.Ordered, V any](tr *Tree[K, V]) []K {
	var out []K
	for n := tr.sentinel.next; n != tr.sentinel; n = n.next {
		out = append(out, n.key)
	}
	return out
}

func threadedKeysReversed[K cmp.Ordered, V any](tr *Tree[K, V]) []K {
	var out []K
	for n := tr.sentinel.prev; n != tr.sentinel; n = n.prev {
		out = append(out, n.key)
	}
	return out
}

// --- tests ---

func TestAVLInsertMaintainsInvariant(t *testing.T) {
	tr := NewAVL[int, string]()
	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(200)
	for _, k := range keys {
		tr.Insert(k, "v")
		verifyAVL(t, tr)
	}
	require.Equal(t, 200, tr.Len())

	sorted := append([]int(nil), keys...)
	sort.Ints(sorted)
	assert.Equal(t, sorted, threadedKeys(tr))
}

func TestRBInsertMaintainsInvariant(t *testing.T) {
	tr := NewRB[int, string]()
	rng := rand.New(rand.NewSource(2))
	keys := rng.Perm(200)
	for _, k := range keys {
		tr.Insert(k, "v")
		verifyRB(t, tr)
	}
	require.Equal(t, 200, tr.Len())

	sorted := append([]int(nil), keys...)
	sort.Ints(sorted)
	assert.Equal(t, sorted, threadedKeys(tr))
}

func TestAVLDeleteMaintainsInvariant(t *testing.T) {
	tr := NewAVL[int, int]()
	rng := rand.New(rand.NewSource(3))
	keys := rng.Perm(150)
	for _, k := range keys {
		tr.Insert(k, k*2)
	}

	toRemove := append([]int(nil), keys...)
	rng.Shuffle(len(toRemove), func(i, j int) { toRemove[i], toRemove[j] = toRemove[j], toRemove[i] })

	remaining := make(map[int]bool, len(keys))
	for _, k := range keys {
		remaining[k] = true
	}

	for i, k := range toRemove {
		if i%2 == 0 {
			v, err := tr.Remove(k)
			require.NoError(t, err)
			require.Equal(t, k*2, v)
			delete(remaining, k)
			verifyAVL(t, tr)
		}
	}

	require.Equal(t, len(remaining), tr.Len())
	for k := range remaining {
		v, ok := tr.Get(k)
		require.True(t, ok)
		require.Equal(t, k*2, v)
	}
}

func TestRBDeleteMaintainsInvariant(t *testing.T) {
	tr := NewRB[int, int]()
	rng := rand.New(rand.NewSource(4))
	keys := rng.Perm(150)
	for _, k := range keys {
		tr.Insert(k, k*2)
	}

	toRemove := append([]int(nil), keys...)
	rng.Shuffle(len(toRemove), func(i, j int) { toRemove[i], toRemove[j] = toRemove[j], toRemove[i] })

	remaining := make(map[int]bool, len(keys))
	for _, k := range keys {
		remaining[k] = true
	}

	for i, k := range toRemove {
		if i%2 == 0 {
			v, err := tr.Remove(k)
			require.NoError(t, err)
			require.Equal(t, k*2, v)
			delete(remaining, k)
			verifyRB(t, tr)
		}
	}

	require.Equal(t, len(remaining), tr.Len())
	for k := range remaining {
		v, ok := tr.Get(k)
		require.True(t, ok)
		require.Equal(t, k*2, v)
	}
}

func TestRemoveNotFound(t *testing.T) {
	tr := NewRB[int, int]()
	tr.Insert(1, 1)
	_, err := tr.Remove(2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMinMaxEmpty(t *testing.T) {
	tr := NewAVL[int, int]()
	_, _, err := tr.Min()
	require.ErrorIs(t, err, ErrEmpty)
	_, _, err = tr.Max()
	require.ErrorIs(t, err, ErrEmpty)
	_, _, err = tr.PopMin()
	require.ErrorIs(t, err, ErrEmpty)
	_, _, err = tr.PopMax()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPopMinPopMax(t *testing.T) {
	tr := NewRB[int, int]()
	for _, k := range []int{5, 1, 9, 3, 7} {
		tr.Insert(k, k)
	}

	k, v, err := tr.PopMin()
	require.NoError(t, err)
	assert.Equal(t, 1, k)
	assert.Equal(t, 1, v)
	verifyRB(t, tr)

	k, v, err = tr.PopMax()
	require.NoError(t, err)
	assert.Equal(t, 9, k)
	assert.Equal(t, 9, v)
	verifyRB(t, tr)

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []int{3, 5, 7}, threadedKeys(tr))
}

func TestLowerUpperBound(t *testing.T) {
	tr := NewAVL[int, string]()
	for _, k := range []int{10, 20, 30, 40} {
		tr.Insert(k, "v")
	}

	k, _, ok := tr.LowerBound(20)
	require.True(t, ok)
	assert.Equal(t, 20, k)

	k, _, ok = tr.LowerBound(21)
	require.True(t, ok)
	assert.Equal(t, 30, k)

	_, _, ok = tr.LowerBound(41)
	require.False(t, ok)

	k, _, ok = tr.UpperBound(20)
	require.True(t, ok)
	assert.Equal(t, 30, k)

	k, _, ok = tr.UpperBound(19)
	require.True(t, ok)
	assert.Equal(t, 20, k)

	_, _, ok = tr.UpperBound(40)
	require.False(t, ok)
}

func TestLowerUpperBoundEmptyTree(t *testing.T) {
	tr := NewAVL[int, string]()
	_, _, ok := tr.LowerBound(1)
	require.False(t, ok)
	_, _, ok = tr.UpperBound(1)
	require.False(t, ok)
}

func TestItemsRange(t *testing.T) {
	tr := NewRB[int, int]()
	for _, k := range []int{1, 2, 3, 4, 5, 6} {
		tr.Insert(k, k*10)
	}

	lo, hi := 2, 5
	var gotKeys []int
	for k, v := range tr.Items(&lo, &hi, false) {
		gotKeys = append(gotKeys, k)
		assert.Equal(t, k*10, v)
	}
	assert.Equal(t, []int{2, 3, 4}, gotKeys, "items(lo, hi) is half-open [lo, hi)")
}

func TestItemsRangeSwapsLoHi(t *testing.T) {
	tr := NewRB[int, int]()
	for _, k := range []int{1, 2, 3, 4, 5, 6} {
		tr.Insert(k, k)
	}

	lo, hi := 5, 2
	var swapped []int
	for k := range tr.Items(&lo, &hi, false) {
		swapped = append(swapped, k)
	}

	loOK, hiOK := 2, 5
	var inOrder []int
	for k := range tr.Items(&loOK, &hiOK, false) {
		inOrder = append(inOrder, k)
	}

	assert.Equal(t, inOrder, swapped, "lo > hi must auto-swap to the same range")
}

func TestItemsReverse(t *testing.T) {
	tr := NewAVL[int, int]()
	for _, k := range []int{1, 2, 3, 4, 5} {
		tr.Insert(k, k)
	}

	var got []int
	for k := range tr.Keys(nil, nil, true) {
		got = append(got, k)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1}, got)
	assert.Equal(t, got, threadedKeysReversed(tr))
}

func TestItemsEqualBoundsEmptyRange(t *testing.T) {
	tr := NewAVL[int, int]()
	lo, hi := 5, 5
	count := 0
	for range tr.Items(&lo, &hi, false) {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestGetOrInsertNode(t *testing.T) {
	tr := NewAVL[int, int]()

	inserted, h := tr.GetOrInsertNode(10)
	require.True(t, inserted)
	assert.Equal(t, 10, h.Key())
	assert.Equal(t, 0, h.Value())

	h.SetValue(99)

	inserted, h2 := tr.GetOrInsertNode(10)
	require.False(t, inserted)
	assert.Equal(t, 99, h2.Value())

	_, n20 := tr.GetOrInsertNode(20)
	prev, ok := n20.Prev()
	require.True(t, ok)
	assert.Equal(t, 10, prev.Key())

	_, ok = prev.Prev()
	assert.False(t, ok)
}

func TestValuesAndKeysMatchItems(t *testing.T) {
	tr := NewRB[int, string]()
	tr.Insert(1, "a")
	tr.Insert(2, "b")
	tr.Insert(3, "c")

	var keys []int
	for k := range tr.Keys(nil, nil, false) {
		keys = append(keys, k)
	}
	assert.Equal(t, []int{1, 2, 3}, keys)

	var values []string
	for v := range tr.Values(nil, nil, false) {
		values = append(values, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, values)
}

func TestContains(t *testing.T) {
	tr := NewAVL[string, int]()
	tr.Insert("a", 1)
	assert.True(t, tr.Contains("a"))
	assert.False(t, tr.Contains("b"))
}
