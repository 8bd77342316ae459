// Package worker owns the consumer side of the producer/consumer boundary:
// a single background goroutine that drains the bounded queue into the batch
// manager.
package worker

import (
	"fmt"
	"sync/atomic"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/batch"
	"github.com/logrelay/logrelay/pkg/errors"
	"github.com/logrelay/logrelay/pkg/queue"
)

// State is the worker lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateDraining
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	}
	return "unknown"
}

// ErrorFunc receives per-item processing failures. It must not block.
type ErrorFunc func(err error)

// Worker dequeues events sequentially and forwards them to the batch
// manager. A failure while processing one item never terminates the loop.
type Worker struct {
	q       *queue.Queue
	batcher *batch.Manager
	onError ErrorFunc

	state     atomic.Int32
	exited    chan struct{}
	processed atomic.Uint64
	failures  atomic.Uint64
}

// New creates a worker for the given queue and batcher.
func New(q *queue.Queue, batcher *batch.Manager, onError ErrorFunc) *Worker {
	return &Worker{
		q:       q,
		batcher: batcher,
		onError: onError,
		exited:  make(chan struct{}),
	}
}

// Start launches the background loop. Starting a non-stopped worker is a
// programmer error.
func (w *Worker) Start() error {
	if !w.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return errors.Newf(errors.CodeConfig, "worker already started (state=%s)", w.State())
	}
	go w.run()
	return nil
}

// run dequeues until shutdown is signaled, then drains and performs the
// final flush.
func (w *Worker) run() {
	defer close(w.exited)

	for {
		select {
		case ev := <-w.q.C():
			w.handle(ev)
		case <-w.q.Done():
			w.state.Store(int32(StateDraining))
			w.drain()
			w.state.Store(int32(StateStopped))
			return
		}
	}
}

// drain consumes whatever remains queued without blocking, then forces one
// last flush. The flush is always attempted, even if items failed.
func (w *Worker) drain() {
	for {
		ev, ok := w.q.TryDequeue()
		if !ok {
			break
		}
		w.handle(ev)
	}
	if err := w.batcher.Close(); err != nil {
		w.report(err)
	}
}

// handle forwards one event, isolating failures and panics so no single
// event can stop delivery.
func (w *Worker) handle(ev *model.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.failures.Add(1)
			w.report(errors.Newf(errors.CodePanic, "worker panic: %v", r))
		}
	}()

	if err := w.batcher.Add(ev); err != nil {
		w.failures.Add(1)
		w.report(fmt.Errorf("process event %s: %w", ev.ID, err))
		return
	}
	w.processed.Add(1)
}

func (w *Worker) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// Stop closes the queue, interrupting the worker's current wait, and blocks
// until the drain and final flush complete.
func (w *Worker) Stop() {
	w.q.Close()
	<-w.exited
}

// Done is closed when the worker loop has fully exited.
func (w *Worker) Done() <-chan struct{} {
	return w.exited
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Processed uint64
	Failures  uint64
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Failures:  w.failures.Load(),
	}
}
