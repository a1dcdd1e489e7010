// Package job implements the Job value type and its five-state machine.
package job

import (
	"fmt"

	"github.com/stmobo/scheduling/resource"
)

// State is one of a Job's five lifecycle states.
type State int

const (
	New State = iota
	Pending
	Started
	Reserved
	Finished
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Pending:
		return "pending"
	case Started:
		return "started"
	case Reserved:
		return "reserved"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RuntimeFunc computes a job's actual runtime once it starts running. It is
// the sole point at which a caller can make simulated execution diverge from
// a job's declared TimeLimit (e.g. to model early completion). A nil
// RuntimeFunc is equivalent to always returning j.TimeLimit.
type RuntimeFunc func(j *Job) int

// Job is a single schedulable unit of work: a time limit and a resource
// demand, plus the mutable scheduling state the engine advances it through.
type Job struct {
	TimeLimit int
	Demand    resource.Vector

	id    int
	state State

	startTime int
	endTime   int
	deadline  int
}

// NewJob constructs a Job in the New state. It panics if timeLimit is not
// strictly positive, mirroring the invariant the original model asserts at
// construction.
func NewJob(timeLimit int, demand resource.Vector) *Job {
	if timeLimit <= 0 {
		panic("job: time limit must be positive")
	}
	return &Job{TimeLimit: timeLimit, Demand: demand, state: New}
}

// ID returns the job's assigned identifier. It is only meaningful once the
// job has left the New state.
func (j *Job) ID() int { return j.id }

// State returns the job's current lifecycle state.
func (j *Job) State() State { return j.state }

func (j *Job) IsNew() bool      { return j.state == New }
func (j *Job) IsPending() bool  { return j.state == Pending }
func (j *Job) IsRunning() bool  { return j.state == Started }
func (j *Job) IsReserved() bool { return j.state == Reserved }
func (j *Job) IsFinished() bool { return j.state == Finished }

// StartTime returns the job's start time. Valid once Reserved or Started.
func (j *Job) StartTime() int { return j.startTime }

// EndTime returns the job's end time. Valid once Started or Finished.
func (j *Job) EndTime() int { return j.endTime }

// Deadline returns start time + time limit. Valid once Reserved or Started.
func (j *Job) Deadline() int { return j.deadline }

// Enqueued transitions a New job into Pending, assigning it id.
func (j *Job) Enqueued(id int) {
	if !j.IsNew() {
		panic("job: Enqueued called on a job that is not New")
	}
	j.id = id
	j.state = Pending
}

// Reserve transitions a Pending job into Reserved, with a future start time.
func (j *Job) Reserve(startTime int) {
	if !j.IsPending() {
		panic("job: Reserve called on a job that is not Pending")
	}
	j.startTime = startTime
	j.deadline = startTime + j.TimeLimit
	j.state = Reserved
}

// Unreserve transitions a Reserved job back into Pending, discarding its
// reservation.
func (j *Job) Unreserve() {
	if !j.IsReserved() {
		panic("job: Unreserve called on a job that is not Reserved")
	}
	j.startTime = 0
	j.deadline = 0
	j.state = Pending
}

// Start transitions a Pending or Reserved job into Started at time now,
// computing its actual end time via runtime (or TimeLimit if runtime is
// nil).
func (j *Job) Start(now int, runtime RuntimeFunc) {
	if !j.IsPending() && !j.IsReserved() {
		panic("job: Start called on a job that is neither Pending nor Reserved")
	}
	j.startTime = now
	j.deadline = now + j.TimeLimit
	actual := j.TimeLimit
	if runtime != nil {
		actual = runtime(j)
	}
	j.endTime = now + actual
	j.state = Started
}

// End transitions a Started job into Finished at endTime.
func (j *Job) End(endTime int) {
	if !j.IsRunning() {
		panic("job: End called on a job that is not Started")
	}
	j.endTime = endTime
	j.state = Finished
}

func (j *Job) String() string {
	return fmt.Sprintf("Job(%d, state=%s)", j.id, j.state)
}
