// Package scheduler defers callbacks to the next tick of a host-driven queue.
//
// Nothing runs until the host calls Flush. Flush drains the callbacks queued
// before it started; callbacks queued while flushing wait for the next Flush.
// The queue is NOT safe for concurrent use.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

// MaxUpdateCount bounds how many times a single job may be re-queued within
// one flush before the queue reports an update loop.
const MaxUpdateCount = 100

// ErrUpdateLoop indicates a job kept re-queueing itself during a flush.
var ErrUpdateLoop = errors.New("scheduler: infinite update loop")

// Job is a deduplicated unit of deferred work. Jobs with the same ID are only
// queued once per flush and run in ascending ID order.
type Job struct {
	ID  uint64
	Run func() error
}

type tick struct {
	fn   func()
	done chan struct{}
}

// Queue collects next-tick callbacks and deduplicated jobs.
type Queue struct {
	callbacks []tick
	jobs      []Job
	has       map[uint64]struct{}
	circular  map[uint64]int
	waiting   bool
	flushing  bool
	index     int
	errs      []error
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{
		has:      map[uint64]struct{}{},
		circular: map[uint64]int{},
	}
}

// NextTick queues fn for the next flush. The returned channel is closed once
// fn has run. A nil fn only yields the channel.
func (q *Queue) NextTick(fn func()) <-chan struct{} {
	done := make(chan struct{})
	q.callbacks = append(q.callbacks, tick{fn: fn, done: done})
	return done
}

// Pending returns the number of callbacks waiting for the next flush.
func (q *Queue) Pending() int {
	return len(q.callbacks)
}

// QueueJob adds job unless a job with the same ID is already queued. Jobs
// queued while the job list is flushing are spliced in by ID so they run in
// the same flush.
func (q *Queue) QueueJob(job Job) {
	if job.Run == nil {
		return
	}
	if _, ok := q.has[job.ID]; ok {
		return
	}
	q.has[job.ID] = struct{}{}
	if !q.flushing {
		q.jobs = append(q.jobs, job)
	} else {
		i := len(q.jobs) - 1
		for i > q.index && q.jobs[i].ID > job.ID {
			i--
		}
		q.jobs = append(q.jobs, Job{})
		copy(q.jobs[i+2:], q.jobs[i+1:])
		q.jobs[i+1] = job
	}
	if !q.waiting {
		q.waiting = true
		q.NextTick(q.flushJobs)
	}
}

// Flush runs every callback queued before the call and returns the joined
// errors reported by jobs during the flush.
func (q *Queue) Flush() error {
	pending := q.callbacks
	q.callbacks = nil
	for _, cb := range pending {
		if cb.fn != nil {
			cb.fn()
		}
		close(cb.done)
	}
	if len(q.errs) == 0 {
		return nil
	}
	err := errors.Join(q.errs...)
	q.errs = nil
	return err
}

func (q *Queue) flushJobs() {
	q.flushing = true
	sort.SliceStable(q.jobs, func(i, j int) bool { return q.jobs[i].ID < q.jobs[j].ID })

	for q.index = 0; q.index < len(q.jobs); q.index++ {
		job := q.jobs[q.index]
		delete(q.has, job.ID)
		if err := job.Run(); err != nil {
			q.errs = append(q.errs, err)
		}
		if _, requeued := q.has[job.ID]; requeued {
			q.circular[job.ID]++
			if q.circular[job.ID] > MaxUpdateCount {
				q.errs = append(q.errs, fmt.Errorf("%w: job %d", ErrUpdateLoop, job.ID))
				break
			}
		}
	}

	q.jobs = nil
	q.index = 0
	q.has = map[uint64]struct{}{}
	q.circular = map[uint64]int{}
	q.waiting = false
	q.flushing = false
}
