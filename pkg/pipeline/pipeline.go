package pipeline

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/batch"
	"github.com/logrelay/logrelay/pkg/cache"
	"github.com/logrelay/logrelay/pkg/errors"
	"github.com/logrelay/logrelay/pkg/processors"
	"github.com/logrelay/logrelay/pkg/queue"
	"github.com/logrelay/logrelay/pkg/resilience"
	"github.com/logrelay/logrelay/pkg/sink"
	"github.com/logrelay/logrelay/pkg/telemetry"
	"github.com/logrelay/logrelay/pkg/worker"
)

// Outcome reports what happened to an offered event.
type Outcome int

const (
	OutcomeEnqueued Outcome = iota
	OutcomeDropped
	OutcomeSampledOut
	OutcomeFiltered
	OutcomeClosed
	OutcomeError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeEnqueued:
		return "enqueued"
	case OutcomeDropped:
		return "dropped"
	case OutcomeSampledOut:
		return "sampled_out"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeClosed:
		return "closed"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Pipeline is the asynchronous delivery core. Producers offer events; a
// single background worker batches them and dispatches flushes to every
// configured sink behind per-sink circuit breakers.
type Pipeline struct {
	opts Options

	q          *queue.Queue
	batcher    *batch.Manager
	dispatcher *sink.Dispatcher
	worker     *worker.Worker
	metrics    *telemetry.Metrics
	tracer     *telemetry.Tracer

	enricherCache *cache.EnricherCache
	rateTracker   *cache.RateTracker

	started atomic.Bool
	closed  atomic.Bool
}

// New assembles a pipeline. All configuration violations surface here as
// eager configuration errors.
func New(opts Options) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		opts:    opts,
		metrics: telemetry.NewMetrics(),
		tracer:  opts.Tracer,
	}

	q, err := queue.New(opts.QueueCapacity, opts.OverflowPolicy, opts.SamplingRate)
	if err != nil {
		return nil, err
	}
	p.q = q

	p.dispatcher, err = sink.NewDispatcher(opts.Sinks, opts.FailureThreshold, opts.RecoveryTimeout, p.onSinkError)
	if err != nil {
		return nil, err
	}

	p.batcher, err = batch.New(opts.BatchSize, opts.BatchInterval, p.flush)
	if err != nil {
		return nil, err
	}

	p.enricherCache, err = cache.NewEnricherCache(opts.CacheMaxSize, opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	p.rateTracker, err = cache.NewRateTracker(opts.RateKeys)
	if err != nil {
		return nil, err
	}

	p.worker = worker.New(q, p.batcher, p.onWorkerError)
	return p, nil
}

// SetProcessors installs the pre-enqueue chain. Must be called before
// Start; processors that need the pipeline's caches (the rate limiter)
// can only be built once the pipeline exists.
func (p *Pipeline) SetProcessors(chain processors.Chain) error {
	if p.started.Load() {
		return errors.New(errors.CodeConfig, "processors must be set before start")
	}
	p.opts.Processors = chain
	return nil
}

// Start brings the sinks up and launches the background worker. A sink that
// fails to start is reported and left to its circuit breaker; it never
// blocks the pipeline.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New(errors.CodeConfig, "pipeline already started")
	}
	if err := p.dispatcher.Start(ctx); err != nil {
		p.report(err)
	}
	return p.worker.Start()
}

// Offer runs the processor chain and enqueues the event. It never returns
// an error for a full queue; overload outcomes are reported in the return
// value and counted.
func (p *Pipeline) Offer(ev *model.Event) Outcome {
	if p.closed.Load() {
		return OutcomeClosed
	}

	if p.opts.Processors != nil {
		processed, err := p.opts.Processors.Process(ev)
		if err != nil {
			p.report(err)
			return OutcomeError
		}
		if processed == nil {
			p.metrics.EventsFiltered.Add(1)
			return OutcomeFiltered
		}
		ev = processed
	}

	switch p.q.Enqueue(ev) {
	case queue.Enqueued:
		p.metrics.EventsEnqueued.Add(1)
		return OutcomeEnqueued
	case queue.Dropped:
		p.metrics.EventsDropped.Add(1)
		return OutcomeDropped
	case queue.SampledOut:
		p.metrics.EventsSampled.Add(1)
		return OutcomeSampledOut
	default:
		return OutcomeClosed
	}
}

// flush is the batch manager's callback: it hands the swapped-out batch to
// the dispatcher. Per-sink failures are isolated inside the dispatcher, so
// the batcher never sees them.
func (p *Pipeline) flush(b model.Batch) error {
	ctx, span := p.tracer.StartSpan(context.Background(), "pipeline.flush",
		attribute.Int("batch.size", len(b)))
	defer span.End()

	p.dispatcher.Dispatch(ctx, b)
	p.metrics.BatchesFlushed.Add(1)

	d := p.dispatcher.Stats()
	p.metrics.EventsDelivered.Store(d.EventsDelivered)
	p.metrics.SinkFailures.Store(d.SinkFailures)
	return nil
}

// Flush forces delivery of whatever is currently buffered.
func (p *Pipeline) Flush() error {
	return p.batcher.Flush()
}

// Close drains and stops the pipeline: new offers are rejected, the worker
// drains the queue and forces a final flush, then every sink's Stop is
// attempted. Close waits for the drain up to ctx's deadline.
func (p *Pipeline) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	var merr errors.MultiError

	p.q.Close()
	select {
	case <-p.worker.Done():
	case <-ctx.Done():
		merr.Add(ctx.Err())
	}

	merr.Add(p.dispatcher.Stop(ctx))
	merr.Add(p.tracer.Shutdown(ctx))
	return merr.Combined()
}

func (p *Pipeline) onSinkError(sinkName string, err error) {
	if errors.IsCircuitOpen(err) {
		p.metrics.CircuitOpens.Add(1)
	}
	p.report(err)
}

func (p *Pipeline) onWorkerError(err error) {
	p.metrics.WorkerFailures.Add(1)
	p.report(err)
}

func (p *Pipeline) report(err error) {
	if p.opts.ErrorHandler != nil {
		p.opts.ErrorHandler(err)
	}
}

// EnricherCache returns the pipeline's memoization cache for enrichers.
func (p *Pipeline) EnricherCache() *cache.EnricherCache {
	return p.enricherCache
}

// RateTracker returns the pipeline's sliding-window rate tracker.
func (p *Pipeline) RateTracker() *cache.RateTracker {
	return p.rateTracker
}

// Metrics returns the pipeline's counters.
func (p *Pipeline) Metrics() *telemetry.Metrics {
	return p.metrics
}

// WorkerState returns the background worker's lifecycle state.
func (p *Pipeline) WorkerState() worker.State {
	return p.worker.State()
}

// Stats is a full observability snapshot across the pipeline's components.
type Stats struct {
	Queue    queue.Stats
	Batch    batch.Stats
	Worker   worker.Stats
	Dispatch sink.Stats
	Breakers map[string]resilience.CircuitState
	Metrics  telemetry.Snapshot
}

// Stats returns a snapshot across all components.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Queue:    p.q.Stats(),
		Batch:    p.batcher.Stats(),
		Worker:   p.worker.Stats(),
		Dispatch: p.dispatcher.Stats(),
		Breakers: p.dispatcher.BreakerStates(),
		Metrics:  p.metrics.Snapshot(),
	}
}
