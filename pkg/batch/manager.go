// Package batch accumulates events and decides flush timing. A flush is
// triggered by size or by a one-shot interval timer armed on the first event
// of a new batch; the size trigger is checked first and wins when both
// conditions become true together.
package batch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/errors"
)

// FlushFunc receives the accumulated batch. It runs outside the manager's
// lock, so slow I/O cannot block new Add calls; a failing callback cannot
// corrupt batching state because the buffer is already swapped out.
type FlushFunc func(model.Batch) error

// Manager accumulates events between flushes.
type Manager struct {
	mu        sync.Mutex
	size      int
	interval  time.Duration
	flush     FlushFunc
	buf       model.Batch
	timer     *time.Timer
	timerGen  uint64 // invalidates stale timer fires
	lastFlush time.Time
	closed    bool

	flushes atomic.Uint64
	events  atomic.Uint64
}

// New creates a batch manager. Size must be >= 1 and interval > 0; both are
// validated eagerly at setup.
func New(size int, interval time.Duration, flush FlushFunc) (*Manager, error) {
	if size < 1 {
		return nil, errors.Config("batch.size", "must be >= 1")
	}
	if interval <= 0 {
		return nil, errors.Config("batch.interval", "must be > 0")
	}
	if flush == nil {
		return nil, errors.Config("batch.flush", "flush callback required")
	}
	return &Manager{
		size:     size,
		interval: interval,
		flush:    flush,
		buf:      make(model.Batch, 0, size),
	}, nil
}

// Add appends an event. Reaching the configured batch size triggers an
// immediate flush; otherwise the first event since the last flush arms the
// interval timer. The returned error is the flush callback's, if one fired.
func (m *Manager) Add(ev *model.Event) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.QueueClosed()
	}
	m.buf = append(m.buf, ev)
	m.events.Add(1)

	// Size trigger is checked first and always wins.
	if len(m.buf) >= m.size {
		batch := m.takeLocked()
		m.mu.Unlock()
		return m.deliver(batch)
	}
	if len(m.buf) == 1 {
		m.armTimerLocked()
	}
	m.mu.Unlock()
	return nil
}

// Flush forces a flush of whatever is buffered. It is a no-op on an empty
// buffer.
func (m *Manager) Flush() error {
	m.mu.Lock()
	batch := m.takeLocked()
	m.mu.Unlock()
	return m.deliver(batch)
}

// Close cancels any pending timer and performs one last forced flush.
// Subsequent Add calls are rejected.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	batch := m.takeLocked()
	m.mu.Unlock()
	return m.deliver(batch)
}

// takeLocked cancels the pending timer, swaps the buffer out and resets it,
// and records the flush timestamp. Ownership of the returned batch transfers
// to the caller so accumulation can restart immediately.
func (m *Manager) takeLocked() model.Batch {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if len(m.buf) == 0 {
		return nil
	}
	batch := m.buf
	m.buf = make(model.Batch, 0, m.size)
	m.lastFlush = time.Now()
	return batch
}

func (m *Manager) deliver(batch model.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	m.flushes.Add(1)
	return m.flush(batch)
}

// armTimerLocked starts the one-shot interval timer for the batch that just
// began. A generation counter keeps a late fire from double-flushing after a
// size-triggered flush already ran.
func (m *Manager) armTimerLocked() {
	gen := m.timerGen
	m.timer = time.AfterFunc(m.interval, func() {
		m.timerFired(gen)
	})
}

func (m *Manager) timerFired(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.timerGen || len(m.buf) == 0 {
		m.mu.Unlock()
		return
	}
	batch := m.takeLocked()
	m.mu.Unlock()
	// The callback error has no caller here; the callback itself is
	// responsible for recording its failures.
	_ = m.deliver(batch)
}

// Len returns the number of currently buffered events.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf)
}

// LastFlush returns the time of the most recent flush.
func (m *Manager) LastFlush() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFlush
}

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Flushes  uint64
	Events   uint64
	Buffered int
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Flushes:  m.flushes.Load(),
		Events:   m.events.Load(),
		Buffered: m.Len(),
	}
}
