// Package sink defines the destination contract and the delivery dispatcher
// that fans batches out to destinations behind per-sink circuit breakers.
package sink

import (
	"context"

	"github.com/logrelay/logrelay/internal/model"
)

// Sink persists events to one destination. Implementations only do setup,
// writes and teardown; isolating a write failure is the dispatcher's
// responsibility, not the sink's.
type Sink interface {
	// Name identifies the sink for diagnostics and breaker naming.
	Name() string

	// Start performs setup such as opening a connection. It is called once
	// before the first write.
	Start(ctx context.Context) error

	// Write persists one event.
	Write(ctx context.Context, ev *model.Event) error

	// Stop tears the sink down. It is always attempted during shutdown,
	// even if Start never succeeded, and must tolerate partial
	// initialization.
	Stop(ctx context.Context) error
}

// BatchSink is the optional bulk path. Sinks that do not implement it get
// one Write call per event, in order.
type BatchSink interface {
	Sink
	WriteBatch(ctx context.Context, batch model.Batch) error
}
