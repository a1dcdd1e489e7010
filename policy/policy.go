// Package policy implements the scheduling policies FCFS and the unified
// backfill procedure (EASY, conservative, and hybrid-N are all the same
// walk, parameterized by a reservation cap).
package policy

import (
	"github.com/stmobo/scheduling/engine"
	"github.com/stmobo/scheduling/job"
)

// Unbounded, passed to Backfill, removes the cap on reservations made in a
// single pass — the conservative variant.
const Unbounded = -1

// FCFS repeatedly tries to start the head of the pending queue without
// ever reserving a future slot; the first job that can't start immediately
// stops the walk, since later jobs must not be started ahead of it.
func FCFS(sys *engine.System) {
	for {
		pending := sys.PendingJobs()
		if len(pending) == 0 {
			return
		}
		if sys.StartOrReserveJob(pending[0], false) != job.Started {
			return
		}
	}
}

// Backfill builds a policy that, on every dirty pass, clears all existing
// reservations and re-walks the pending queue from the head: up to
// maxReservations jobs may be given a future reservation to hold their
// place, and every other job is either started immediately or left
// pending for the next pass. maxReservations == Unbounded removes the cap
// (conservative backfill); 1 gives EASY backfill; any other positive N
// gives hybrid-N.
func Backfill(maxReservations int) engine.Policy {
	return func(sys *engine.System) {
		sys.UnreserveAllJobs()

		snapshot := append([]*job.Job(nil), sys.PendingJobs()...)
		var carry []*job.Job
		reservations := 0

		for _, j := range snapshot {
			if maxReservations < 0 || reservations < maxReservations {
				if sys.StartOrReserveJob(j, true) == job.Reserved {
					reservations++
				}
				continue
			}
			if sys.StartOrReserveJob(j, false) == job.Pending {
				carry = append(carry, j)
			}
		}

		sys.ReplacePendingJobs(carry)
	}
}

// EASY is backfill with a single reservation slot: the first job in the
// queue that cannot start immediately reserves a future slot, guaranteeing it never
// starves, while every job behind it only runs if it fits without
// disturbing that reservation.
func EASY() engine.Policy { return Backfill(1) }

// Conservative is backfill with no cap on reservations: every pending job
// gets a reservation, so makespan is never worse than EASY's.
func Conservative() engine.Policy { return Backfill(Unbounded) }

// HybridN is backfill capped at n simultaneous reservations.
func HybridN(n int) engine.Policy { return Backfill(n) }
