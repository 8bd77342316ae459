package sink

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/errors"
	"github.com/logrelay/logrelay/pkg/resilience"
)

// ErrorFunc receives isolated per-sink failures. It must not block.
type ErrorFunc func(sink string, err error)

// Dispatcher delivers flushed batches to every configured sink, each call
// wrapped in that sink's own circuit breaker so one failing destination
// cannot block or crash delivery to healthy ones. Within one sink, batches
// arrive in flush order; sinks are dispatched sequentially in registration
// order.
type Dispatcher struct {
	sinks    []Sink
	breakers []*resilience.CircuitBreaker
	onError  ErrorFunc

	delivered    atomic.Uint64 // events acknowledged by at least their own sink
	batchesOK    atomic.Uint64
	sinkFailures atomic.Uint64
}

// NewDispatcher creates a dispatcher with one breaker per sink. Circuit-open
// rejections themselves never count toward a breaker's threshold.
func NewDispatcher(sinks []Sink, failureThreshold int, recoveryTimeout time.Duration, onError ErrorFunc) (*Dispatcher, error) {
	if len(sinks) == 0 {
		return nil, errors.Config("sinks", "at least one sink required")
	}
	d := &Dispatcher{
		sinks:   sinks,
		onError: onError,
	}
	for _, s := range sinks {
		cb, err := resilience.NewCircuitBreaker(s.Name(), failureThreshold, recoveryTimeout)
		if err != nil {
			return nil, err
		}
		cb.WithClassifier(func(err error) bool {
			return !errors.IsCircuitOpen(err)
		})
		d.breakers = append(d.breakers, cb)
	}
	return d, nil
}

// Start starts every sink. Failures are collected rather than aborting, so a
// sink that cannot start degrades to breaker-guarded write failures instead
// of taking the pipeline down.
func (d *Dispatcher) Start(ctx context.Context) error {
	var merr errors.MultiError
	for _, s := range d.sinks {
		if err := s.Start(ctx); err != nil {
			wrapped := errors.Wrap(err, errors.CodeSinkStart, "sink start failed").
				WithContext("sink", s.Name())
			d.report(s.Name(), wrapped)
			merr.Add(wrapped)
		}
	}
	return merr.Combined()
}

// Dispatch hands a batch to every sink. Per-sink failures are recorded and
// isolated; the batch for a sink whose breaker is open is considered failed
// for this cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, batch model.Batch) {
	if len(batch) == 0 {
		return
	}
	for i, s := range d.sinks {
		sk := s
		err := d.breakers[i].Call(func() error {
			return writeAll(ctx, sk, batch)
		})
		if err != nil {
			d.sinkFailures.Add(1)
			d.report(sk.Name(), err)
			continue
		}
		d.batchesOK.Add(1)
		d.delivered.Add(uint64(len(batch)))
	}
}

// writeAll uses the bulk path when the sink provides one and otherwise
// falls back to one Write per event, in order.
func writeAll(ctx context.Context, s Sink, batch model.Batch) error {
	if bs, ok := s.(BatchSink); ok {
		if err := bs.WriteBatch(ctx, batch); err != nil {
			return errors.SinkWrite(s.Name(), err)
		}
		return nil
	}
	for _, ev := range batch {
		if err := s.Write(ctx, ev); err != nil {
			return errors.SinkWrite(s.Name(), err)
		}
	}
	return nil
}

// Stop tears down every sink. Each stop is always attempted regardless of
// earlier failures.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var merr errors.MultiError
	for _, s := range d.sinks {
		if err := s.Stop(ctx); err != nil {
			merr.Add(errors.Wrap(err, errors.CodeSinkStop, "sink stop failed").
				WithContext("sink", s.Name()))
		}
	}
	return merr.Combined()
}

func (d *Dispatcher) report(sink string, err error) {
	if d.onError != nil {
		d.onError(sink, err)
	}
}

// BreakerStates returns the current state of every sink's breaker, keyed by
// sink name.
func (d *Dispatcher) BreakerStates() map[string]resilience.CircuitState {
	states := make(map[string]resilience.CircuitState, len(d.breakers))
	for _, cb := range d.breakers {
		states[cb.Name()] = cb.State()
	}
	return states
}

// Stats is a snapshot of dispatch counters.
type Stats struct {
	EventsDelivered uint64
	BatchesOK       uint64
	SinkFailures    uint64
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		EventsDelivered: d.delivered.Load(),
		BatchesOK:       d.batchesOK.Load(),
		SinkFailures:    d.sinkFailures.Load(),
	}
}
