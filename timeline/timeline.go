// Package timeline maintains a running projection of per-resource
// availability over time, keyed by the instants at which a reservation
// starts, expires, or a running job actually ends.
package timeline

import (
	"iter"

	"github.com/stmobo/scheduling/job"
	"github.com/stmobo/scheduling/ordmap"
	"github.com/stmobo/scheduling/resource"
)

// JobSet is an insertion-ordered collection of jobs, used for the Start/End/
// Expired event sets recorded at a timeline key. Jobs that share an exact
// instant must be processed in the order their events were recorded, so
// that a run over the same (jobs, policy) input is reproducible; a plain Go
// map cannot provide that, since its iteration order is randomized per-run.
type JobSet struct {
	order []*job.Job
	index map[*job.Job]int
}

func newJobSet() *JobSet {
	return &JobSet{index: make(map[*job.Job]int)}
}

func (s *JobSet) add(j *job.Job) {
	if _, ok := s.index[j]; ok {
		return
	}
	s.index[j] = len(s.order)
	s.order = append(s.order, j)
}

// remove deletes j from the set, preserving the relative order of the
// remaining jobs.
func (s *JobSet) remove(j *job.Job) {
	i, ok := s.index[j]
	if !ok {
		return
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	delete(s.index, j)
	for k := i; k < len(s.order); k++ {
		s.index[s.order[k]] = k
	}
}

// Len reports the number of jobs currently in the set.
func (s *JobSet) Len() int { return len(s.order) }

// Items returns a snapshot copy of the set's jobs, in insertion order. A
// caller that may end up mutating the set indirectly while processing this
// slice (e.g. by ending a job it is currently iterating) must use this
// snapshot rather than ranging over the set live.
func (s *JobSet) Items() []*job.Job {
	out := make([]*job.Job, len(s.order))
	copy(out, s.order)
	return out
}

// Node is the data stored at a single timeline key: the set of jobs whose
// reservation starts, whose reservation expires, or whose actual run ends
// at this instant, plus the resource vector in effect from this key up to
// (but not including) the next one.
type Node struct {
	Start   *JobSet
	End     *JobSet
	Expired *JobSet

	Resources resource.Vector
}

func newNode(r resource.Vector) *Node {
	return &Node{
		Start:     newJobSet(),
		End:       newJobSet(),
		Expired:   newJobSet(),
		Resources: r,
	}
}

func (n *Node) empty() bool {
	return n.Start.Len() == 0 && n.End.Len() == 0 && n.Expired.Len() == 0
}

// Timeline is a projection of resource availability, backed by a red-black
// tree keyed on simulated time. Every key's Resources reflects the total
// minus every reservation active at that instant; between keys, the value
// in effect is whatever the preceding key holds.
type Timeline struct {
	total resource.Vector
	tree  *ordmap.Tree[int, *Node]
}

// New constructs an empty Timeline over the given total resource capacity.
func New(total resource.Vector) *Timeline {
	return &Timeline{total: total, tree: ordmap.NewRB[int, *Node]()}
}

// getData returns the node at t, creating it (initialized from the
// resources in effect at its predecessor, or the total if there is none)
// if it does not already exist.
func (tl *Timeline) getData(t int) ordmap.Node[int, *Node] {
	inserted, h := tl.tree.GetOrInsertNode(t)
	if !inserted {
		return h
	}
	rsc := tl.total
	if prev, ok := h.Prev(); ok {
		rsc = prev.Value().Resources
	}
	h.SetValue(newNode(rsc))
	return h
}

func (tl *Timeline) cleanupNode(h ordmap.Node[int, *Node]) {
	if h.Value().empty() {
		_, _ = tl.tree.Remove(h.Key())
	}
}

func (tl *Timeline) insertStartEvent(t int, j *job.Job) {
	tl.getData(t).Value().Start.add(j)
}

func (tl *Timeline) insertExpireEvent(t int, j *job.Job) {
	tl.getData(t).Value().Expired.add(j)
}

func (tl *Timeline) insertEndEvent(t int, j *job.Job) {
	tl.getData(t).Value().End.add(j)
}

func (tl *Timeline) removeStartEvent(t int, j *job.Job) {
	h := tl.getData(t)
	h.Value().Start.remove(j)
	tl.cleanupNode(h)
}

func (tl *Timeline) removeExpireEvent(t int, j *job.Job) {
	h := tl.getData(t)
	h.Value().Expired.remove(j)
	tl.cleanupNode(h)
}

func (tl *Timeline) removeEndEvent(t int, j *job.Job) {
	h := tl.getData(t)
	h.Value().End.remove(j)
	tl.cleanupNode(h)
}

func (tl *Timeline) creditRange(lo, hi int, demand resource.Vector, release bool) {
	for n := range tl.tree.Values(&lo, &hi, false) {
		if release {
			n.Resources = n.Resources.Add(demand)
		} else {
			n.Resources = n.Resources.Sub(demand)
		}
	}
}

// AddJobReservation installs j's [StartTime, Deadline) reservation: it
// inserts start/expire event markers at the two boundary instants and
// subtracts j.Demand from every key's projection within that range.
func (tl *Timeline) AddJobReservation(j *job.Job) {
	tl.insertStartEvent(j.StartTime(), j)
	tl.insertExpireEvent(j.Deadline(), j)
	tl.creditRange(j.StartTime(), j.Deadline(), j.Demand, false)
}

// RemoveJobReservation undoes AddJobReservation: it clears the start/expire
// markers and restores j.Demand to every key's projection in range. Used to
// cancel a reservation that has not started; starting a reserved job keeps
// its reservation in place and only adds an end event.
func (tl *Timeline) RemoveJobReservation(j *job.Job) {
	tl.removeStartEvent(j.StartTime(), j)
	tl.removeExpireEvent(j.Deadline(), j)
	tl.creditRange(j.StartTime(), j.Deadline(), j.Demand, true)
}

// StartJobReservation records that j has actually begun running, by
// inserting an end-event marker at its (currently provisional) EndTime.
// It does not touch the resource projection: j's demand is still being
// held by its reservation until EndJobReservation (or expiry) releases it.
func (tl *Timeline) StartJobReservation(j *job.Job) {
	tl.insertEndEvent(j.EndTime(), j)
}

// EndJobReservation records that j actually finished at newEndTime, which
// must be no later than both j's previously recorded EndTime and its
// Deadline. If the job finishes early, the resources it was holding between
// newEndTime and its Deadline are released back into the projection.
func (tl *Timeline) EndJobReservation(j *job.Job, newEndTime int) {
	prevEndTime := j.EndTime()
	prevDeadline := j.Deadline()

	if newEndTime > prevEndTime || newEndTime > prevDeadline {
		panic("timeline: EndJobReservation given a time later than the job's recorded end or deadline")
	}

	if newEndTime < prevEndTime {
		tl.insertEndEvent(newEndTime, j)
		tl.removeEndEvent(prevEndTime, j)
	}

	if newEndTime < prevDeadline {
		tl.creditRange(newEndTime, prevDeadline, j.Demand, true)
	}

	tl.removeExpireEvent(prevDeadline, j)
}

// projectedAt returns the resource projection in effect at instant t: the
// value held by the key at or immediately before t, or the total capacity
// if no key precedes it.
func (tl *Timeline) projectedAt(t int) resource.Vector {
	_, n, ok := tl.tree.Floor(t)
	if !ok {
		return tl.total
	}
	return n.Resources
}

// AvailableResourcesAt returns the resource vector available at instant t,
// i.e. the projection that would be in effect if nothing further changes
// between the preceding key and t.
func (tl *Timeline) AvailableResourcesAt(t int) resource.Vector {
	return tl.projectedAt(t)
}

func (tl *Timeline) canSchedule(demand resource.Vector, t, length int) bool {
	if tl.tree.Len() == 0 {
		return tl.total.AllGEQ(demand)
	}
	if !tl.projectedAt(t).AllGEQ(demand) {
		return false
	}
	hi := t + length
	for n := range tl.tree.Values(&t, &hi, false) {
		if !n.Resources.AllGEQ(demand) {
			return false
		}
	}
	return true
}

// CanSchedule reports whether j could be started at startTime without ever
// exceeding total capacity for the duration of its time limit.
func (tl *Timeline) CanSchedule(j *job.Job, startTime int) bool {
	return tl.canSchedule(j.Demand, startTime, j.TimeLimit)
}

// FindSchedulableTime reports the first instant at or after earliest at
// which j could be scheduled. earliest itself is always tried first; if it
// doesn't work and allowFuture is false, the search stops there and reports
// failure rather than considering a reservation that would only become
// possible later. Otherwise, the search continues through every later event
// key in turn, since the projection can only change at one of those.
func (tl *Timeline) FindSchedulableTime(j *job.Job, earliest int, allowFuture bool) (int, bool) {
	if tl.canSchedule(j.Demand, earliest, j.TimeLimit) {
		return earliest, true
	}
	if !allowFuture {
		return 0, false
	}

	for k := range tl.tree.Keys(&earliest, nil, false) {
		if k <= earliest {
			continue
		}
		if tl.canSchedule(j.Demand, k, j.TimeLimit) {
			return k, true
		}
	}

	panic("timeline: exhausted all candidate times without finding a schedulable one")
}

// NextEvent returns the smallest key strictly after after, along with the
// node stored there, if one exists.
func (tl *Timeline) NextEvent(after int) (int, *Node, bool) {
	return tl.tree.UpperBound(after)
}

// Iter ranges over the timeline's (time, node) pairs within [lo, hi), with
// either bound omitted by passing nil, optionally in reverse order.
func (tl *Timeline) Iter(lo, hi *int, reverse bool) iter.Seq2[int, *Node] {
	return tl.tree.Items(lo, hi, reverse)
}

// Len reports the number of distinct event keys currently tracked.
func (tl *Timeline) Len() int {
	return tl.tree.Len()
}
