// Package pipeline assembles the delivery core: bounded queue, background
// worker, batch manager, and the breaker-guarded sink dispatcher.
package pipeline

import (
	"time"

	"github.com/logrelay/logrelay/pkg/errors"
	"github.com/logrelay/logrelay/pkg/processors"
	"github.com/logrelay/logrelay/pkg/queue"
	"github.com/logrelay/logrelay/pkg/sink"
	"github.com/logrelay/logrelay/pkg/telemetry"
)

// Options is the configuration surface consumed, not owned, by the delivery
// core. Values arrive pre-validated from an external configuration layer;
// violations still observed here are programmer errors raised eagerly at
// setup, never at enqueue time.
type Options struct {
	// Queue
	QueueCapacity  int
	OverflowPolicy queue.Policy
	SamplingRate   float64

	// Batching
	BatchSize     int
	BatchInterval time.Duration

	// Per-sink circuit breakers
	FailureThreshold int
	RecoveryTimeout  time.Duration

	// Auxiliary caches
	CacheMaxSize int
	CacheTTL     time.Duration
	RateKeys     int

	// Destinations. At least one sink is required.
	Sinks []sink.Sink

	// Processors run before enqueue; a nil chain passes events through.
	Processors processors.Chain

	// ErrorHandler receives isolated failures (sink writes, worker items).
	// It must not block. Nil discards them.
	ErrorHandler func(error)

	// Tracer enables spans around flush and dispatch. Nil disables tracing.
	Tracer *telemetry.Tracer
}

// DefaultOptions returns sensible defaults for everything but the sinks.
func DefaultOptions() Options {
	return Options{
		QueueCapacity:    1024,
		OverflowPolicy:   queue.PolicyDrop,
		SamplingRate:     1.0,
		BatchSize:        100,
		BatchInterval:    time.Second,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		CacheMaxSize:     1000,
		CacheTTL:         5 * time.Minute,
		RateKeys:         1000,
	}
}

func (o Options) validate() error {
	if o.QueueCapacity < 1 {
		return errors.Config("queue.capacity", "must be >= 1")
	}
	if o.BatchSize < 1 {
		return errors.Config("batch.size", "must be >= 1")
	}
	if o.BatchInterval <= 0 {
		return errors.Config("batch.interval", "must be > 0")
	}
	if o.SamplingRate < 0 || o.SamplingRate > 1 {
		return errors.Config("queue.sampling_rate", "must be within [0,1]")
	}
	if len(o.Sinks) == 0 {
		return errors.Config("sinks", "at least one sink required")
	}
	return nil
}
