// Package queue implements the bounded event queue and its overflow
// policies. Many producers enqueue; exactly one consumer (the background
// worker) dequeues. Producers transfer ownership of an event on enqueue.
package queue

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/errors"
)

// Policy is the behavior applied when the queue is full.
type Policy string

const (
	// PolicyDrop discards the new event immediately. O(1), counted,
	// otherwise silent.
	PolicyDrop Policy = "drop"
	// PolicyBlock suspends the producer until a slot frees or shutdown is
	// signaled. Zero loss, trades producer latency.
	PolicyBlock Policy = "block"
	// PolicySample accepts the new event with probability equal to the
	// sampling rate, else discards. Bounds outflow under sustained overload
	// without full blocking or full loss.
	PolicySample Policy = "sample"
)

// Outcome reports what happened to an enqueued event.
type Outcome int

const (
	Enqueued Outcome = iota
	Dropped
	SampledOut
	Closed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Enqueued:
		return "enqueued"
	case Dropped:
		return "dropped"
	case SampledOut:
		return "sampled_out"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Queue is a fixed-capacity FIFO of events.
type Queue struct {
	ch     chan *model.Event
	policy Policy
	rate   float64

	done      chan struct{}
	closeOnce sync.Once

	enqueued   atomic.Uint64
	dropped    atomic.Uint64
	sampledOut atomic.Uint64
}

// New creates a bounded queue. Violations of the configuration constraints
// (capacity >= 1, rate in [0,1]) are setup-time errors, never enqueue-time
// errors.
func New(capacity int, policy Policy, samplingRate float64) (*Queue, error) {
	if capacity < 1 {
		return nil, errors.Config("queue.capacity", "must be >= 1")
	}
	switch policy {
	case PolicyDrop, PolicyBlock, PolicySample:
	default:
		return nil, errors.Config("queue.policy", "must be one of drop, block, sample")
	}
	if samplingRate < 0 || samplingRate > 1 {
		return nil, errors.Config("queue.sampling_rate", "must be within [0,1]")
	}
	return &Queue{
		ch:     make(chan *model.Event, capacity),
		policy: policy,
		rate:   samplingRate,
		done:   make(chan struct{}),
	}, nil
}

// Enqueue offers an event to the queue and reports the outcome. It never
// fails for a full queue under drop or sample; under block the caller
// suspends until space frees or the queue is closed.
func (q *Queue) Enqueue(ev *model.Event) Outcome {
	select {
	case <-q.done:
		return Closed
	default:
	}

	select {
	case q.ch <- ev:
		q.enqueued.Add(1)
		return Enqueued
	default:
	}

	// Queue is full; apply the overflow policy.
	switch q.policy {
	case PolicyDrop:
		q.dropped.Add(1)
		return Dropped
	case PolicySample:
		if rand.Float64() >= q.rate {
			q.sampledOut.Add(1)
			return SampledOut
		}
		return q.blockingEnqueue(ev)
	default: // PolicyBlock
		return q.blockingEnqueue(ev)
	}
}

// blockingEnqueue suspends until a slot frees or shutdown is signaled.
// Close races with a freeing slot: a producer blocked at the moment of
// shutdown may still win the send and report Enqueued after the consumer's
// final drain has finished, leaving that event in the channel undelivered.
// Callers needing every Enqueued event delivered must stop producing before
// calling Close.
func (q *Queue) blockingEnqueue(ev *model.Event) Outcome {
	select {
	case q.ch <- ev:
		q.enqueued.Add(1)
		return Enqueued
	case <-q.done:
		return Closed
	}
}

// C returns the consumption channel. Only the single worker may receive
// from it.
func (q *Queue) C() <-chan *model.Event {
	return q.ch
}

// TryDequeue removes one event without blocking, for draining.
func (q *Queue) TryDequeue() (*model.Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return nil, false
	}
}

// Close signals shutdown: subsequent enqueues report Closed and blocked
// producers are interrupted. Items already queued remain available for
// draining. A producer blocked in Enqueue when Close is called may resolve
// either way; see blockingEnqueue.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Done is closed once the queue has been shut down.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Stats is a snapshot of the queue counters. Overload losses are observable
// only here; they are by-design data loss, not errors.
type Stats struct {
	Enqueued   uint64
	Dropped    uint64
	SampledOut uint64
	Depth      int
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:   q.enqueued.Load(),
		Dropped:    q.dropped.Load(),
		SampledOut: q.sampledOut.Load(),
		Depth:      len(q.ch),
	}
}

// ErrClosed is the error equivalent of the Closed outcome, for callers that
// need an error value.
var ErrClosed = errors.QueueClosed()
