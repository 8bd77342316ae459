package cache

import (
	"testing"
	"time"
)

func TestRateTracker_CountWindow(t *testing.T) {
	tr, err := NewRateTracker(10)
	if err != nil {
		t.Fatalf("NewRateTracker: %v", err)
	}

	base := time.Unix(1000, 0)
	tr.Record("api", base.Add(-90*time.Second))
	tr.Record("api", base.Add(-30*time.Second))
	tr.Record("api", base.Add(-5*time.Second))

	if got := tr.Count("api", time.Minute, base); got != 2 {
		t.Errorf("Count(1m) = %d, want 2", got)
	}
	if got := tr.Count("api", 2*time.Minute, base); got != 3 {
		t.Errorf("Count(2m) = %d, want 3", got)
	}
	if got := tr.Count("other", time.Minute, base); got != 0 {
		t.Errorf("Count(unknown key) = %d, want 0", got)
	}
}

func TestRateTracker_CleanupExpired(t *testing.T) {
	tr, _ := NewRateTracker(10)
	base := time.Unix(1000, 0)

	tr.Record("old", base.Add(-2*time.Hour))
	tr.Record("mixed", base.Add(-2*time.Hour))
	tr.Record("mixed", base.Add(-time.Second))
	tr.Record("fresh", base)

	removed := tr.CleanupExpired(time.Minute, base)
	if removed != 1 {
		t.Errorf("CleanupExpired removed %d keys, want 1", removed)
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}
	if got := tr.Count("mixed", time.Hour*3, base); got != 1 {
		t.Errorf("mixed retained %d timestamps, want 1", got)
	}
}

func TestRateTracker_EvictionBoundsKeys(t *testing.T) {
	tr, _ := NewRateTracker(2)
	now := time.Unix(1000, 0)

	tr.Record("a", now)
	tr.Record("b", now)
	tr.Record("c", now) // evicts a

	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}
	if got := tr.Count("a", time.Minute, now); got != 0 {
		t.Errorf("evicted key counts %d, want 0", got)
	}

	// An evicted key restarts with a fresh window.
	tr.Record("a", now)
	if got := tr.Count("a", time.Minute, now.Add(time.Second)); got != 1 {
		t.Errorf("re-recorded key counts %d, want 1", got)
	}
}

func TestRateTracker_AllowEnforcesBudget(t *testing.T) {
	tr, _ := NewRateTracker(10)
	base := time.Unix(1000, 0)

	granted := 0
	for i := 0; i < 10; i++ {
		if tr.Allow("api", 3, time.Minute, base.Add(time.Duration(i)*time.Second)) {
			granted++
		}
	}
	if granted != 3 {
		t.Errorf("granted = %d, want budget of 3", granted)
	}

	// Another key has its own budget.
	if !tr.Allow("other", 3, time.Minute, base) {
		t.Error("distinct key should start with a fresh budget")
	}

	// Once the recorded timestamps age out of the window, the budget refills.
	if !tr.Allow("api", 3, time.Minute, base.Add(2*time.Hour)) {
		t.Error("expired window should admit again")
	}
}

func TestRateTracker_RecordAppends(t *testing.T) {
	tr, _ := NewRateTracker(5)
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		tr.Record("k", now.Add(time.Duration(i)*time.Second))
	}
	if got := tr.Count("k", time.Minute, now.Add(10*time.Second)); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}
