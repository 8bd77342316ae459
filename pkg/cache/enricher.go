package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/logrelay/logrelay/pkg/errors"
)

// EnricherCache memoizes the results of expensive, side-effect-free
// per-event computations. Entries expire after a TTL; capacity is bounded
// with LRU eviction among the entries still alive.
type EnricherCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	order   map[string]*enricherEntry
	byAge   []*enricherEntry // recency order, least-recently-used first

	hits   uint64
	misses uint64

	// now is swappable for tests.
	now func() time.Time
}

type enricherEntry struct {
	key      string
	value    any
	storedAt time.Time
}

// NewEnricherCache creates a cache holding up to maxSize entries for up to
// ttl each.
func NewEnricherCache(maxSize int, ttl time.Duration) (*EnricherCache, error) {
	if maxSize < 1 {
		return nil, errors.Config("cache.max_size", "must be >= 1")
	}
	if ttl <= 0 {
		return nil, errors.Config("cache.ttl", "must be > 0")
	}
	return &EnricherCache{
		ttl:     ttl,
		maxSize: maxSize,
		order:   make(map[string]*enricherEntry, maxSize),
		now:     time.Now,
	}, nil
}

// Get returns the cached value for key if its age is still below the TTL.
// A stale entry is purged and reported as a miss.
func (c *EnricherCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.order[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}
	c.touchLocked(e)
	c.hits++
	return e.value, true
}

// Set stores a value: expired entries are purged first, then the
// least-recently-used entry is evicted if the cache is still at capacity.
func (c *EnricherCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpiredLocked()

	if e, ok := c.order[key]; ok {
		e.value = value
		e.storedAt = c.now()
		c.touchLocked(e)
		return
	}
	if len(c.order) >= c.maxSize && len(c.byAge) > 0 {
		c.removeLocked(c.byAge[0])
	}
	e := &enricherEntry{key: key, value: value, storedAt: c.now()}
	c.order[key] = e
	c.byAge = append(c.byAge, e)
}

// Len returns the number of live entries, purging expired ones first.
func (c *EnricherCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked()
	return len(c.order)
}

// Stats returns hit/miss counters.
func (c *EnricherCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.order),
		Capacity: c.maxSize,
	}
}

func (c *EnricherCache) purgeExpiredLocked() {
	now := c.now()
	for i := 0; i < len(c.byAge); {
		if now.Sub(c.byAge[i].storedAt) >= c.ttl {
			c.removeLocked(c.byAge[i])
			continue
		}
		i++
	}
}

func (c *EnricherCache) removeLocked(e *enricherEntry) {
	delete(c.order, e.key)
	for i, cur := range c.byAge {
		if cur == e {
			c.byAge = append(c.byAge[:i], c.byAge[i+1:]...)
			break
		}
	}
}

func (c *EnricherCache) touchLocked(e *enricherEntry) {
	for i, cur := range c.byAge {
		if cur == e {
			c.byAge = append(c.byAge[:i], c.byAge[i+1:]...)
			c.byAge = append(c.byAge, e)
			return
		}
	}
}

// Fingerprint derives a deterministic cache key for an enricher call. The
// result is independent of argument ordering, so identical logical inputs
// always hash to the same key.
func Fingerprint(name string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%v", k, args[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
