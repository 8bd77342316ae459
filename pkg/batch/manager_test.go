package batch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/logrelay/logrelay/internal/model"
)

// collector records flushed batches for assertions.
type collector struct {
	mu      sync.Mutex
	batches []model.Batch
	err     error
}

func (c *collector) flush(b model.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, b)
	return c.err
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *collector) totalEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func ev(msg string) *model.Event {
	return model.NewEvent(model.LevelInfo, msg)
}

func TestNew_InvalidConfig(t *testing.T) {
	noop := func(model.Batch) error { return nil }
	if _, err := New(0, time.Second, noop); err == nil {
		t.Error("size 0 should fail")
	}
	if _, err := New(1, 0, noop); err == nil {
		t.Error("interval 0 should fail")
	}
	if _, err := New(1, time.Second, nil); err == nil {
		t.Error("nil flush should fail")
	}
}

func TestManager_SizeTrigger(t *testing.T) {
	c := &collector{}
	m, err := New(3, time.Hour, c.flush)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 7; i++ {
		if err := m.Add(ev("e")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	// 7 events at size 3: two full flushes, one buffered remainder.
	if c.count() != 2 {
		t.Errorf("flushes = %d, want 2", c.count())
	}
	if c.totalEvents() != 6 {
		t.Errorf("flushed events = %d, want 6", c.totalEvents())
	}
	if m.Len() != 1 {
		t.Errorf("buffered = %d, want 1", m.Len())
	}
}

func TestManager_IntervalTrigger(t *testing.T) {
	c := &collector{}
	m, _ := New(100, 30*time.Millisecond, c.flush)

	m.Add(ev("a"))
	m.Add(ev("b"))

	deadline := time.Now().Add(time.Second)
	for c.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if c.count() != 1 {
		t.Fatalf("flushes = %d, want 1 from interval timer", c.count())
	}
	if c.totalEvents() != 2 {
		t.Errorf("flushed events = %d, want 2", c.totalEvents())
	}
	if m.Len() != 0 {
		t.Errorf("buffered = %d, want 0 after timer flush", m.Len())
	}
}

func TestManager_SizeTriggerCancelsTimer(t *testing.T) {
	c := &collector{}
	m, _ := New(2, 30*time.Millisecond, c.flush)

	m.Add(ev("a"))
	m.Add(ev("b")) // size flush; timer for this batch must not fire again

	time.Sleep(60 * time.Millisecond)

	if c.count() != 1 {
		t.Errorf("flushes = %d, want exactly 1 (no duplicate timer flush)", c.count())
	}
}

func TestManager_FlushEmptyIsNoop(t *testing.T) {
	c := &collector{}
	m, _ := New(10, time.Hour, c.flush)

	if err := m.Flush(); err != nil {
		t.Errorf("Flush() = %v, want nil", err)
	}
	if c.count() != 0 {
		t.Errorf("flushes = %d, want 0 for empty buffer", c.count())
	}
}

func TestManager_ForcedFlush(t *testing.T) {
	c := &collector{}
	m, _ := New(10, time.Hour, c.flush)

	m.Add(ev("a"))
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if c.totalEvents() != 1 {
		t.Errorf("flushed events = %d, want 1", c.totalEvents())
	}
	if m.Len() != 0 {
		t.Errorf("buffered = %d, want 0", m.Len())
	}
}

func TestManager_CloseFlushesAndRejects(t *testing.T) {
	c := &collector{}
	m, _ := New(10, time.Hour, c.flush)

	m.Add(ev("a"))
	m.Add(ev("b"))
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.totalEvents() != 2 {
		t.Errorf("flushed events = %d, want 2 at close", c.totalEvents())
	}
	if err := m.Add(ev("late")); err == nil {
		t.Error("Add after Close should fail")
	}
}

func TestManager_FlushErrorPropagatesAndStateSurvives(t *testing.T) {
	c := &collector{err: errors.New("sink down")}
	m, _ := New(2, time.Hour, c.flush)

	m.Add(ev("a"))
	if err := m.Add(ev("b")); err == nil {
		t.Fatal("Add should surface the flush callback error")
	}

	// The failing flush already swapped the buffer; batching continues.
	if m.Len() != 0 {
		t.Errorf("buffered = %d, want 0 after failed flush", m.Len())
	}
	c.err = nil
	m.Add(ev("c"))
	m.Add(ev("d"))
	if c.count() != 2 {
		t.Errorf("flushes = %d, want 2", c.count())
	}
}

func TestManager_PreservesOrder(t *testing.T) {
	c := &collector{}
	m, _ := New(3, time.Hour, c.flush)

	msgs := []string{"1", "2", "3"}
	for _, s := range msgs {
		m.Add(ev(s))
	}

	if c.count() != 1 {
		t.Fatalf("flushes = %d, want 1", c.count())
	}
	for i, e := range c.batches[0] {
		if e.Message != msgs[i] {
			t.Errorf("batch[%d] = %s, want %s", i, e.Message, msgs[i])
		}
	}
}

func TestManager_Stats(t *testing.T) {
	c := &collector{}
	m, _ := New(2, time.Hour, c.flush)

	m.Add(ev("a"))
	m.Add(ev("b"))
	m.Add(ev("c"))

	st := m.Stats()
	if st.Flushes != 1 || st.Events != 3 || st.Buffered != 1 {
		t.Errorf("Stats = %+v, want 1 flush, 3 events, 1 buffered", st)
	}
}
