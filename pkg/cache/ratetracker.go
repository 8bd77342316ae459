package cache

import (
	"time"
)

// RateTracker tracks per-key event timestamps in an LRU cache to support
// sliding-window rate decisions. Timestamp lists are defensively copied so
// callers cannot mutate cached state.
type RateTracker struct {
	lru *LRU[string, []time.Time]
}

// NewRateTracker creates a tracker bounded to maxKeys distinct keys.
func NewRateTracker(maxKeys int) (*RateTracker, error) {
	lru, err := NewLRU[string, []time.Time](maxKeys)
	if err != nil {
		return nil, err
	}
	lru.WithClone(func(ts []time.Time) []time.Time {
		cp := make([]time.Time, len(ts))
		copy(cp, ts)
		return cp
	})
	return &RateTracker{lru: lru}, nil
}

// Record appends a timestamp for key.
func (t *RateTracker) Record(key string, at time.Time) {
	t.lru.mu.Lock()
	defer t.lru.mu.Unlock()

	if el, ok := t.lru.items[key]; ok {
		e := el.Value.(*lruEntry[string, []time.Time])
		e.value = append(e.value, at)
		t.lru.ll.MoveToBack(el)
		return
	}
	t.lru.putLocked(key, []time.Time{at})
}

// Count returns how many recorded timestamps for key fall within the
// sliding window ending now.
func (t *RateTracker) Count(key string, window time.Duration, now time.Time) int {
	ts, ok := t.lru.Get(key)
	if !ok {
		return 0
	}
	cutoff := now.Add(-window)
	n := 0
	for _, at := range ts {
		if at.After(cutoff) {
			n++
		}
	}
	return n
}

// Allow reports whether key is under limit for the sliding window ending
// now, recording the event when it is. The check and the record happen
// under one lock so concurrent callers cannot overshoot the budget.
func (t *RateTracker) Allow(key string, limit int, window time.Duration, now time.Time) bool {
	t.lru.mu.Lock()
	defer t.lru.mu.Unlock()

	cutoff := now.Add(-window)
	if el, ok := t.lru.items[key]; ok {
		e := el.Value.(*lruEntry[string, []time.Time])
		n := 0
		for _, at := range e.value {
			if at.After(cutoff) {
				n++
			}
		}
		if n >= limit {
			return false
		}
		e.value = append(e.value, now)
		t.lru.ll.MoveToBack(el)
		return true
	}
	if limit < 1 {
		return false
	}
	t.lru.putLocked(key, []time.Time{now})
	return true
}

// CleanupExpired drops individual timestamps older than now-window and
// removes keys left with none. It returns the number of removed keys.
func (t *RateTracker) CleanupExpired(window time.Duration, now time.Time) int {
	t.lru.mu.Lock()
	defer t.lru.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for el := t.lru.ll.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*lruEntry[string, []time.Time])
		kept := e.value[:0]
		for _, at := range e.value {
			if at.After(cutoff) {
				kept = append(kept, at)
			}
		}
		e.value = kept
		if len(kept) == 0 {
			t.lru.ll.Remove(el)
			delete(t.lru.items, e.key)
			removed++
		}
		el = next
	}
	return removed
}

// Stats returns the underlying cache counters.
func (t *RateTracker) Stats() Stats {
	return t.lru.Stats()
}

// Len returns the number of tracked keys.
func (t *RateTracker) Len() int {
	return t.lru.Len()
}
