// Package cache provides the two auxiliary caches the delivery pipeline
// relies on: a generic fixed-capacity LRU and a TTL-bounded cache for
// memoizing enricher results.
package cache

import (
	"container/list"
	"sync"

	"github.com/logrelay/logrelay/pkg/errors"
)

// LRU is a generic fixed-capacity cache with O(1) get, put and evict and
// least-recently-used eviction. The zero value is not usable; construct with
// NewLRU.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[K]*list.Element
	clone    func(V) V

	hits      uint64
	misses    uint64
	evictions uint64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates an LRU cache. Capacity must be at least 1.
func NewLRU[K comparable, V any](capacity int) (*LRU[K, V], error) {
	if capacity < 1 {
		return nil, errors.Config("capacity", "must be >= 1")
	}
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}, nil
}

// WithClone installs a copy function applied to values on the way in and on
// the way out, so caller mutation can never corrupt cached state.
func (c *LRU[K, V]) WithClone(fn func(V) V) *LRU[K, V] {
	c.clone = fn
	return c
}

// Get returns the value for key and marks it most-recently-used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.ll.MoveToBack(el)
	c.hits++
	v := el.Value.(*lruEntry[K, V]).value
	if c.clone != nil {
		v = c.clone(v)
	}
	return v, true
}

// Put inserts or overwrites a value and marks it most-recently-used. When a
// new key is inserted at capacity, the least-recently-used entry is evicted
// first.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

func (c *LRU[K, V]) putLocked(key K, value V) {
	if c.clone != nil {
		value = c.clone(value)
	}
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.ll.MoveToBack(el)
		return
	}
	if len(c.items) >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushBack(&lruEntry[K, V]{key: key, value: value})
}

// evictLocked removes the logical first entry, the least-recently-used one.
func (c *LRU[K, V]) evictLocked() {
	front := c.ll.Front()
	if front == nil {
		return
	}
	c.ll.Remove(front)
	delete(c.items, front.Value.(*lruEntry[K, V]).key)
	c.evictions++
}

// Remove deletes a key and reports whether it existed.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.Remove(el)
	delete(c.items, key)
	return true
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns all keys from least- to most-recently-used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Stats contains observability counters. They carry no correctness weight.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// HitRatio returns hits / (hits + misses), or 0 for an untouched cache.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Utilization returns size / capacity.
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Size) / float64(s.Capacity)
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		Capacity:  c.capacity,
	}
}
