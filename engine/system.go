// Package engine implements the discrete-event simulator: a System holding
// pending, reserved, and finished job queues, a resource-aware Timeline
// projection, and the tick/run loop that advances simulated time and
// invokes a scheduling policy between events.
package engine

import (
	"fmt"

	"github.com/stmobo/scheduling/job"
	"github.com/stmobo/scheduling/obslog"
	"github.com/stmobo/scheduling/resource"
	"github.com/stmobo/scheduling/timeline"
)

// Policy decides what to do with a System's pending and reserved jobs. It
// is invoked by RunSchedLoop (and so by Tick and Run) whenever the System is
// dirty: after a job has been enqueued, or after a batch of timeline events
// has been handled.
type Policy func(sys *System)

// System is a single simulated cluster: a fixed resource capacity, the
// current simulated time, and the three job queues a policy and the event
// loop move jobs between.
type System struct {
	TotalResources resource.Vector

	curTime      int
	jobsEnqueued int
	dirty        bool

	pending  []*job.Job
	finished []*job.Job
	reserved []*job.Job

	timeline *timeline.Timeline
	log      *obslog.Logger
}

// Option configures a System at construction time.
type Option func(*System)

// WithLogger attaches a structured logger; the default is obslog.Discard().
func WithLogger(l *obslog.Logger) Option {
	return func(s *System) { s.log = l }
}

// New constructs a System with the given total resource capacity.
func New(total resource.Vector, opts ...Option) *System {
	s := &System{
		TotalResources: total,
		timeline:       timeline.New(total),
		log:            obslog.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CurTime returns the current simulated time.
func (s *System) CurTime() int { return s.curTime }

// ShouldRunSchedLoop reports whether a scheduling-relevant change has
// happened since the policy was last run.
func (s *System) ShouldRunSchedLoop() bool { return s.dirty }

// PendingJobs returns the queue of jobs waiting to be scheduled, in FIFO
// (enqueue) order. The caller must not retain or mutate the returned slice.
func (s *System) PendingJobs() []*job.Job { return s.pending }

// ReplacePendingJobs replaces the pending queue wholesale, e.g. with a
// carry-over queue a backfill pass built while walking a snapshot of the
// original. Every job in jobs must already be Pending.
func (s *System) ReplacePendingJobs(jobs []*job.Job) {
	s.pending = jobs
}

// ReservedJobs returns the jobs currently holding a future reservation.
// The caller must not retain or mutate the returned slice.
func (s *System) ReservedJobs() []*job.Job { return s.reserved }

// FinishedJobs returns every job that has completed so far, in completion
// order. The caller must not retain or mutate the returned slice.
func (s *System) FinishedJobs() []*job.Job { return s.finished }

// Timeline exposes the System's resource projection, e.g. for a policy
// that needs to query availability directly.
func (s *System) Timeline() *timeline.Timeline { return s.timeline }

// AvailableResourcesAt is a convenience forward to
// Timeline().AvailableResourcesAt, for callers (e.g. a utilization chart)
// that only need the projected resource vector at a given instant.
func (s *System) AvailableResourcesAt(t int) resource.Vector {
	return s.timeline.AvailableResourcesAt(t)
}

// EnqueueJob pushes a New job onto the pending queue, assigning it an id.
// It panics if j is not New, and returns an error if its demand can never
// be satisfied by the System's total resources.
func (s *System) EnqueueJob(j *job.Job) error {
	if !j.IsNew() {
		panic("engine: EnqueueJob called on a job that is not New")
	}
	if !s.TotalResources.AllGEQ(j.Demand) {
		return fmt.Errorf("engine: job demand %v exceeds total resources %v", j.Demand, s.TotalResources)
	}

	j.Enqueued(s.jobsEnqueued)
	s.jobsEnqueued++
	s.pending = append(s.pending, j)
	s.dirty = true

	s.log.Debug().Int(`job_id`, j.ID()).Log(`job enqueued`)
	return nil
}

func (s *System) removePending(j *job.Job) {
	for i, p := range s.pending {
		if p == j {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *System) removeReserved(j *job.Job) {
	for i, r := range s.reserved {
		if r == j {
			s.reserved = append(s.reserved[:i], s.reserved[i+1:]...)
			return
		}
	}
}

// startJob starts a Pending or Reserved job at the current simulated time.
// A Reserved job's reservation must already be slated to begin now. The job
// is started with a nil job.RuntimeFunc, so every job run by a System takes
// exactly its TimeLimit; a System offers no way to supply another runtime.
func (s *System) startJob(j *job.Job) {
	if !j.IsReserved() && !j.IsPending() {
		panic("engine: startJob called on a job that is neither Pending nor Reserved")
	}
	wasReserved := j.IsReserved()

	if wasReserved {
		if j.StartTime() != s.curTime {
			panic("engine: reserved job's start time does not match the current time")
		}
		s.removeReserved(j)
	} else {
		s.removePending(j)
	}

	j.Start(s.curTime, nil)
	if !wasReserved {
		s.timeline.AddJobReservation(j)
	}
	s.timeline.StartJobReservation(j)

	s.dirty = true
	s.log.Debug().Int(`job_id`, j.ID()).Int(`time`, s.curTime).Log(`job started`)
}

// endJob ends a Started job at the current simulated time, which may be
// earlier than its slated end time or deadline.
func (s *System) endJob(j *job.Job) {
	if s.curTime < j.StartTime() {
		panic("engine: endJob called before the job's start time")
	}
	if !j.IsRunning() {
		panic("engine: endJob called on a job that is not Started")
	}

	s.timeline.EndJobReservation(j, s.curTime)
	j.End(s.curTime)
	s.finished = append(s.finished, j)
	s.dirty = true

	s.log.Debug().Int(`job_id`, j.ID()).Int(`time`, s.curTime).Log(`job finished`)
}

// reserveJob installs a future reservation for a Pending job at time t.
func (s *System) reserveJob(j *job.Job, t int) {
	if t <= s.curTime {
		panic("engine: reserveJob called with a time at or before the current time")
	}
	if !j.IsPending() {
		panic("engine: reserveJob called on a job that is not Pending")
	}

	s.removePending(j)
	j.Reserve(t)
	s.timeline.AddJobReservation(j)
	s.reserved = append(s.reserved, j)

	s.log.Debug().Int(`job_id`, j.ID()).Int(`time`, t).Log(`job reserved`)
}

// UnreserveAllJobs clears every outstanding reservation, returning the
// affected jobs to Pending at the front of the pending queue, in
// descending id order (so that, once prepended, they end up in ascending
// id order relative to each other).
func (s *System) UnreserveAllJobs() {
	ordered := append([]*job.Job(nil), s.reserved...)
	sortJobsByIDDesc(ordered)

	for _, j := range ordered {
		if !j.IsReserved() {
			panic("engine: UnreserveAllJobs found a non-Reserved job in the reserved list")
		}
		s.timeline.RemoveJobReservation(j)
		j.Unreserve()
		s.pending = append([]*job.Job{j}, s.pending...)
	}
	s.reserved = nil
}

func sortJobsByIDDesc(js []*job.Job) {
	for i := 1; i < len(js); i++ {
		for k := i; k > 0 && js[k-1].ID() < js[k].ID(); k-- {
			js[k-1], js[k] = js[k], js[k-1]
		}
	}
}

// CanSchedule reports whether j could be started at startTime.
func (s *System) CanSchedule(j *job.Job, startTime int) bool {
	return s.timeline.CanSchedule(j, startTime)
}

// StartOrReserveJob tries to start j immediately; if that isn't possible
// and allowFuture is true, it installs a reservation for the earliest
// feasible future time instead. It returns the job's resulting state,
// which is one of Pending (no feasible time was found, only possible when
// allowFuture is false), Reserved, or Started.
func (s *System) StartOrReserveJob(j *job.Job, allowFuture bool) job.State {
	t, ok := s.timeline.FindSchedulableTime(j, s.curTime, allowFuture)
	if !ok {
		return job.Pending
	}
	switch {
	case t > s.curTime:
		s.reserveJob(j, t)
		return job.Reserved
	case t == s.curTime:
		s.startJob(j)
		return job.Started
	default:
		panic("engine: found a schedulable time in the past")
	}
}

// RunSchedLoop invokes policy if the System is dirty, then clears the
// dirty flag.
func (s *System) RunSchedLoop(policy Policy) {
	if s.dirty {
		policy(s)
		s.dirty = false
	}
}

// HandleEvents advances curTime to the next timeline event (if any),
// starting every job slated to start there and ending every job whose
// run or reservation is complete there. It returns false if the timeline
// holds no further events, in which case curTime is left unchanged.
func (s *System) HandleEvents() bool {
	t, node, ok := s.timeline.NextEvent(s.curTime)
	if !ok {
		return false
	}
	s.curTime = t

	for _, j := range node.Start.Items() {
		if !j.IsReserved() {
			panic("engine: start event fired for a job that is not Reserved")
		}
		s.startJob(j)
	}
	for _, j := range node.End.Items() {
		s.endJob(j)
	}
	for _, j := range node.Expired.Items() {
		s.endJob(j)
	}

	s.dirty = true
	return true
}

// Tick runs one simulation step: it runs the scheduling loop, advances to
// the next timeline event (if any) and handles it, then runs the
// scheduling loop again to react to whatever that unblocked. It reports
// whether there was a next event to advance to; a caller driving the
// simulation in a loop should stop once Tick returns false.
func (s *System) Tick(policy Policy) bool {
	s.RunSchedLoop(policy)
	if s.HandleEvents() {
		s.RunSchedLoop(policy)
		return true
	}
	return false
}

// Run drives the simulation to completion by calling Tick until it
// returns false, i.e. until the timeline has no further events and the
// scheduling loop is not dirty.
func (s *System) Run(policy Policy) {
	for s.Tick(policy) {
	}
	s.log.Info().Int(`time`, s.curTime).Int(`jobs_finished`, len(s.finished)).Log(`simulation complete`)
}
