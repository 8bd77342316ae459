// Package telemetry collects pipeline counters and optional distributed
// tracing with OTLP export.
package telemetry

import (
	"sync/atomic"
	"time"
)

// Metrics holds the pipeline's runtime counters. All counters are
// observability-only; none carries correctness weight.
type Metrics struct {
	StartTime time.Time

	EventsEnqueued  atomic.Uint64
	EventsDropped   atomic.Uint64
	EventsSampled   atomic.Uint64
	EventsFiltered  atomic.Uint64
	BatchesFlushed  atomic.Uint64
	EventsDelivered atomic.Uint64
	SinkFailures    atomic.Uint64
	CircuitOpens    atomic.Uint64
	WorkerFailures  atomic.Uint64
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Uptime          time.Duration
	EventsEnqueued  uint64
	EventsDropped   uint64
	EventsSampled   uint64
	EventsFiltered  uint64
	BatchesFlushed  uint64
	EventsDelivered uint64
	SinkFailures    uint64
	CircuitOpens    uint64
	WorkerFailures  uint64
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Uptime:          time.Since(m.StartTime),
		EventsEnqueued:  m.EventsEnqueued.Load(),
		EventsDropped:   m.EventsDropped.Load(),
		EventsSampled:   m.EventsSampled.Load(),
		EventsFiltered:  m.EventsFiltered.Load(),
		BatchesFlushed:  m.BatchesFlushed.Load(),
		EventsDelivered: m.EventsDelivered.Load(),
		SinkFailures:    m.SinkFailures.Load(),
		CircuitOpens:    m.CircuitOpens.Load(),
		WorkerFailures:  m.WorkerFailures.Load(),
	}
}
