// Package ordmap implements an ordered keyed container: a balanced binary
// search tree whose nodes are additionally threaded, in key order, into a
// doubly-linked list (terminated by a single sentinel node), giving O(log n)
// lower/upper bound queries alongside O(1) successor/predecessor stepping.
//
// Two balancing strategies are provided: NewAVL and NewRB. Both share the
// same node layout, rotation primitive, and two-children deletion reduction;
// only the repair-after-insert/repair-after-delete case analysis differs,
// captured behind the unexported balancer interface.
package ordmap

import (
	"cmp"
	"errors"
	"iter"
)

// ErrNotFound is returned by Remove when the given key is not present.
var ErrNotFound = errors.New("ordmap: key not found")

// ErrEmpty is returned by Min, Max, PopMin, and PopMax on an empty tree.
var ErrEmpty = errors.New("ordmap: tree is empty")

// node is the shared representation for both AVL and red-black trees.
// balance is meaningful only under AVL, red only under red-black; carrying
// both on one struct avoids an interface-typed "aux" field for a few spare
// bytes.
type node[K cmp.Ordered, V any] struct {
	key K
	val V

	parent, left, right *node[K, V]
	prev, next           *node[K, V] // threaded in-order links

	balance int8 // AVL only
	red     bool // red-black only
}

func (n *node[K, V]) isLeftChild() bool {
	return n.parent != nil && n.parent.left == n
}

func (n *node[K, V]) isRightChild() bool {
	return n.parent != nil && n.parent.right == n
}

func (n *node[K, V]) sibling() *node[K, V] {
	if n.parent == nil {
		return nil
	}
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}

func (n *node[K, V]) setLeft(child *node[K, V]) {
	n.left = child
	if child != nil {
		child.parent = n
	}
}

func (n *node[K, V]) setRight(child *node[K, V]) {
	n.right = child
	if child != nil {
		child.parent = n
	}
}

// balancer supplies the behavior that differs between AVL and red-black
// trees: how a freshly-linked node is initialized, what (if anything) needs
// adjusting immediately before a structural rotation, and the repair-insert/
// repair-delete case analysis.
type balancer[K cmp.Ordered, V any] interface {
	initNode(n *node[K, V])
	beforeRotate(pivot *node[K, V])
	repairInsert(t *Tree[K, V], n *node[K, V])
	repairDelete(t *Tree[K, V], n *node[K, V])
	deleteSingleChild(t *Tree[K, V], n *node[K, V])
}

// Tree is an ordered map from K to V, balanced according to the strategy it
// was constructed with (see NewAVL, NewRB). The zero value is not usable;
// construct via one of those functions.
type Tree[K cmp.Ordered, V any] struct {
	root     *node[K, V]
	sentinel *node[K, V]
	length   int
	bal      balancer[K, V]
}

func newTree[K cmp.Ordered, V any](b balancer[K, V]) *Tree[K, V] {
	s := &node[K, V]{}
	s.prev, s.next = s, s
	return &Tree[K, V]{sentinel: s, bal: b}
}

// NewAVL constructs an empty AVL tree.
func NewAVL[K cmp.Ordered, V any]() *Tree[K, V] {
	return newTree[K, V](avlBalancer[K, V]{})
}

// NewRB constructs an empty red-black tree.
func NewRB[K cmp.Ordered, V any]() *Tree[K, V] {
	return newTree[K, V](rbBalancer[K, V]{})
}

// Len returns the number of entries in the tree.
func (t *Tree[K, V]) Len() int { return t.length }

func (t *Tree[K, V]) find(key K) *node[K, V] {
	cur := t.root
	for cur != nil {
		switch {
		case key == cur.key:
			return cur
		case key < cur.key:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return nil
}

// Get returns the value stored under key, if any.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	if n := t.find(key); n != nil {
		return n.val, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (t *Tree[K, V]) Contains(key K) bool {
	return t.find(key) != nil
}

// insert is the shared insertion routine: it returns the node now holding
// key (new or pre-existing), the value that was replaced (zero if none),
// and whether key already existed.
func (t *Tree[K, V]) insert(key K, val V) (n *node[K, V], old V, existed bool) {
	if t.root == nil {
		nn := &node[K, V]{key: key, val: val, prev: t.sentinel, next: t.sentinel}
		t.sentinel.prev = nn
		t.sentinel.next = nn
		t.bal.initNode(nn)
		t.root = nn
		t.length = 1
		var zero V
		return nn, zero, false
	}

	cur := t.root
	prev, next := t.sentinel, t.sentinel
	for {
		switch {
		case key == cur.key:
			o := cur.val
			cur.val = val
			return cur, o, true
		case key < cur.key:
			next = cur
			if cur.left != nil {
				cur = cur.left
				continue
			}
			nn := &node[K, V]{key: key, val: val, parent: cur}
			cur.left = nn
			nn.prev, nn.next = prev, cur
			prev.next = nn
			cur.prev = nn
			t.bal.initNode(nn)
			t.length++
			t.bal.repairInsert(t, nn)
			var zero V
			return nn, zero, false
		default:
			prev = cur
			if cur.right != nil {
				cur = cur.right
				continue
			}
			nn := &node[K, V]{key: key, val: val, parent: cur}
			cur.right = nn
			nn.prev, nn.next = cur, next
			cur.next = nn
			next.prev = nn
			t.bal.initNode(nn)
			t.length++
			t.bal.repairInsert(t, nn)
			var zero V
			return nn, zero, false
		}
	}
}

// Insert stores val under key, returning the value it replaced (if any).
func (t *Tree[K, V]) Insert(key K, val V) (old V, existed bool) {
	_, old, existed = t.insert(key, val)
	return
}

// GetOrInsertNode returns a handle to the node holding key, inserting the
// zero value of V under key first if it was not already present.
func (t *Tree[K, V]) GetOrInsertNode(key K) (inserted bool, handle Node[K, V]) {
	if n := t.find(key); n != nil {
		return false, Node[K, V]{t: t, n: n}
	}
	var zero V
	n, _, _ := t.insert(key, zero)
	return true, Node[K, V]{t: t, n: n}
}

// rotate rotates pivot up into its parent's position. pivot must have a
// parent (which may be the root, in which case pivot becomes the new root).
func (t *Tree[K, V]) rotate(pivot *node[K, V]) {
	t.bal.beforeRotate(pivot)

	parent := pivot.parent
	gp := parent.parent
	parentWasLeft := parent.isLeftChild()

	if pivot.isLeftChild() {
		parent.setLeft(pivot.right)
		pivot.setRight(parent)
	} else {
		parent.setRight(pivot.left)
		pivot.setLeft(parent)
	}

	if gp != nil {
		if parentWasLeft {
			gp.setLeft(pivot)
		} else {
			gp.setRight(pivot)
		}
	} else {
		pivot.parent = nil
		t.root = pivot
	}
}

// unlink splices n out of both the tree structure (substituting replaceWith,
// which may be nil, for n under n's parent) and the threaded list.
func (t *Tree[K, V]) unlink(n *node[K, V], replaceWith *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev

	if n.parent != nil {
		if n.isLeftChild() {
			n.parent.setLeft(replaceWith)
		} else {
			n.parent.setRight(replaceWith)
		}
	} else {
		if replaceWith != nil {
			replaceWith.parent = nil
		}
		t.root = replaceWith
	}
}

// deleteNode removes n from the tree, reducing the two-children case to an
// at-most-one-child case by copying the in-order successor's data into n and
// recursing on the successor (which, by the BST invariant, has no left
// child), then handing off to the variant-specific deleteSingleChild.
func (t *Tree[K, V]) deleteNode(n *node[K, V]) {
	for n.left != nil && n.right != nil {
		succ := n.next
		n.key, n.val = succ.key, succ.val
		n = succ
	}
	t.bal.deleteSingleChild(t, n)
}

// baseDeleteSingleChild is the AVL (and, originally, base-class) behavior
// for a node with at most one child: absorb that child's data and recurse
// the full delete on the child, or, for a true leaf, repair then unlink.
func baseDeleteSingleChild[K cmp.Ordered, V any](t *Tree[K, V], n *node[K, V]) {
	switch {
	case n.left != nil:
		child := n.left
		n.key, n.val = child.key, child.val
		t.deleteNode(child)
	case n.right != nil:
		child := n.right
		n.key, n.val = child.key, child.val
		t.deleteNode(child)
	default:
		t.bal.repairDelete(t, n)
		t.unlink(n, nil)
	}
}

// Remove deletes key from the tree, returning its prior value. It returns
// ErrNotFound if key was not present.
func (t *Tree[K, V]) Remove(key K) (V, error) {
	n := t.find(key)
	if n == nil {
		var zero V
		return zero, ErrNotFound
	}
	val := n.val
	t.deleteNode(n)
	t.length--
	return val, nil
}

func (t *Tree[K, V]) firstNode() (*node[K, V], error) {
	n := t.sentinel.next
	if n == t.sentinel {
		return nil, ErrEmpty
	}
	return n, nil
}

func (t *Tree[K, V]) lastNode() (*node[K, V], error) {
	n := t.sentinel.prev
	if n == t.sentinel {
		return nil, ErrEmpty
	}
	return n, nil
}

// Min returns the entry with the smallest key.
func (t *Tree[K, V]) Min() (K, V, error) {
	n, err := t.firstNode()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, err
	}
	return n.key, n.val, nil
}

// Max returns the entry with the largest key.
func (t *Tree[K, V]) Max() (K, V, error) {
	n, err := t.lastNode()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, err
	}
	return n.key, n.val, nil
}

// PopMin removes and returns the entry with the smallest key.
func (t *Tree[K, V]) PopMin() (K, V, error) {
	n, err := t.firstNode()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, err
	}
	k, v := n.key, n.val
	t.deleteNode(n)
	t.length--
	return k, v, nil
}

// PopMax removes and returns the entry with the largest key.
func (t *Tree[K, V]) PopMax() (K, V, error) {
	n, err := t.lastNode()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, err
	}
	k, v := n.key, n.val
	t.deleteNode(n)
	t.length--
	return k, v, nil
}

// lowerBoundNode returns the node holding the smallest key >= bound,
// assuming the tree is non-empty. It may return the sentinel, meaning no
// such key exists.
func (t *Tree[K, V]) lowerBoundNode(bound K) *node[K, V] {
	cur := t.root
	for {
		switch {
		case bound == cur.key:
			return cur
		case bound < cur.key:
			if cur.left != nil {
				cur = cur.left
				continue
			}
			return cur
		default:
			if cur.right != nil {
				cur = cur.right
				continue
			}
			return cur.next
		}
	}
}

// strictUpperBoundNode returns the node holding the smallest key > bound,
// assuming the tree is non-empty. It may return the sentinel.
func (t *Tree[K, V]) strictUpperBoundNode(bound K) *node[K, V] {
	cur := t.root
	for {
		if bound < cur.key {
			if cur.left != nil {
				cur = cur.left
				continue
			}
			return cur
		}
		if cur.right != nil {
			cur = cur.right
			continue
		}
		return cur.next
	}
}

// predecessorBoundNode returns the node holding the largest key < bound,
// assuming the tree is non-empty. It may return the sentinel. This is used
// internally as the inclusive upper endpoint of a half-open [lo, hi) range
// iteration; it is not exposed publicly (see UpperBound for the public,
// strictly-greater query).
func (t *Tree[K, V]) predecessorBoundNode(bound K) *node[K, V] {
	cur := t.root
	for {
		if bound <= cur.key {
			if cur.left != nil {
				cur = cur.left
				continue
			}
			return cur.prev
		}
		if cur.right != nil {
			cur = cur.right
			continue
		}
		return cur
	}
}

// LowerBound returns the entry with the smallest key >= key, if any.
func (t *Tree[K, V]) LowerBound(key K) (K, V, bool) {
	if t.root == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	n := t.lowerBoundNode(key)
	if n == t.sentinel {
		var zk K
		var zv V
		return zk, zv, false
	}
	return n.key, n.val, true
}

// Floor returns the entry with the largest key <= key, if any. It is the
// standard "at or before" counterpart to LowerBound's "at or after".
func (t *Tree[K, V]) Floor(key K) (K, V, bool) {
	cur := t.root
	var best *node[K, V]
	for cur != nil {
		switch {
		case key == cur.key:
			best = cur
			cur = nil
		case key < cur.key:
			cur = cur.left
		default:
			best = cur
			cur = cur.right
		}
	}
	if best == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	return best.key, best.val, true
}

// UpperBound returns the entry with the smallest key > key, if any.
func (t *Tree[K, V]) UpperBound(key K) (K, V, bool) {
	if t.root == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	n := t.strictUpperBoundNode(key)
	if n == t.sentinel {
		var zk K
		var zv V
		return zk, zv, false
	}
	return n.key, n.val, true
}

// rangeNodes computes the inclusive [start, end] walk endpoints for a
// [lo, hi) range query, auto-swapping lo/hi if lo > hi. ok is false for an
// empty range.
func (t *Tree[K, V]) rangeNodes(lo, hi *K, reverse bool) (start, end *node[K, V], ok bool) {
	if lo != nil && hi != nil && *hi < *lo {
		lo, hi = hi, lo
	}

	var lb, rb *node[K, V]
	if lo != nil && t.root != nil {
		lb = t.lowerBoundNode(*lo)
	} else {
		lb = t.sentinel.next
	}
	if hi != nil && t.root != nil {
		rb = t.predecessorBoundNode(*hi)
	} else {
		rb = t.sentinel.prev
	}

	if lb.prev == rb {
		return nil, nil, false
	}
	if !reverse {
		return lb, rb, true
	}
	return rb, lb, true
}

// Items iterates entries with lo <= key < hi (nil bounds are unbounded), in
// descending order if reverse is true. lo and hi are swapped automatically
// if both are given and lo > hi.
func (t *Tree[K, V]) Items(lo, hi *K, reverse bool) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		start, end, ok := t.rangeNodes(lo, hi, reverse)
		if !ok {
			return
		}
		cur := start
		for {
			if !yield(cur.key, cur.val) {
				return
			}
			if cur == end {
				return
			}
			if reverse {
				cur = cur.prev
			} else {
				cur = cur.next
			}
		}
	}
}

// Keys iterates keys over the same range semantics as Items.
func (t *Tree[K, V]) Keys(lo, hi *K, reverse bool) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range t.Items(lo, hi, reverse) {
			if !yield(k) {
				return
			}
		}
	}
}

// Values iterates values over the same range semantics as Items.
func (t *Tree[K, V]) Values(lo, hi *K, reverse bool) iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range t.Items(lo, hi, reverse) {
			if !yield(v) {
				return
			}
		}
	}
}

// Node is a handle to a single entry, supporting O(1) successor/predecessor
// stepping along the threaded list. It is returned by GetOrInsertNode.
type Node[K cmp.Ordered, V any] struct {
	t *Tree[K, V]
	n *node[K, V]
}

// Key returns the node's key.
func (h Node[K, V]) Key() K { return h.n.key }

// Value returns the node's value.
func (h Node[K, V]) Value() V { return h.n.val }

// SetValue replaces the node's value in place.
func (h Node[K, V]) SetValue(v V) { h.n.val = v }

// Prev returns the node immediately preceding h in key order, if any.
func (h Node[K, V]) Prev() (Node[K, V], bool) {
	if h.n.prev == h.t.sentinel {
		return Node[K, V]{}, false
	}
	return Node[K, V]{t: h.t, n: h.n.prev}, true
}

// Next returns the node immediately following h in key order, if any.
func (h Node[K, V]) Next() (Node[K, V], bool) {
	if h.n.next == h.t.sentinel {
		return Node[K, V]{}, false
	}
	return Node[K, V]{t: h.t, n: h.n.next}, true
}
