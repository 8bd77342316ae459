package cache

import (
	"testing"
	"time"
)

// fixedClock lets tests advance the cache's notion of time manually.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time         { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEnricherCache(t *testing.T, maxSize int, ttl time.Duration) (*EnricherCache, *fixedClock) {
	t.Helper()
	ec, err := NewEnricherCache(maxSize, ttl)
	if err != nil {
		t.Fatalf("NewEnricherCache: %v", err)
	}
	clock := &fixedClock{t: time.Unix(1000, 0)}
	ec.now = clock.now
	return ec, clock
}

func TestEnricherCache_InvalidConfig(t *testing.T) {
	if _, err := NewEnricherCache(0, time.Minute); err == nil {
		t.Error("maxSize 0 should fail")
	}
	if _, err := NewEnricherCache(10, 0); err == nil {
		t.Error("ttl 0 should fail")
	}
}

func TestEnricherCache_HitWithinTTL(t *testing.T) {
	ec, clock := newTestEnricherCache(t, 10, time.Minute)

	ec.Set("k", "v")
	clock.advance(30 * time.Second)

	if v, ok := ec.Get("k"); !ok || v != "v" {
		t.Errorf("Get(k) = %v, %v, want v, true", v, ok)
	}
}

func TestEnricherCache_ExpiryIsMiss(t *testing.T) {
	ec, clock := newTestEnricherCache(t, 10, time.Minute)

	ec.Set("k", "v")
	clock.advance(time.Minute) // age == ttl counts as expired

	if _, ok := ec.Get("k"); ok {
		t.Error("entry at exactly TTL age should be a miss")
	}
	if ec.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after purge", ec.Len())
	}
}

func TestEnricherCache_SetPurgesExpiredBeforeEvicting(t *testing.T) {
	ec, clock := newTestEnricherCache(t, 2, time.Minute)

	ec.Set("old", 1)
	clock.advance(2 * time.Minute)
	ec.Set("a", 2)
	ec.Set("b", 3)

	// "old" expired, so inserting "b" must not evict "a".
	if _, ok := ec.Get("a"); !ok {
		t.Error("a should survive; expired entry should have been purged instead")
	}
	if _, ok := ec.Get("b"); !ok {
		t.Error("b should be present")
	}
}

func TestEnricherCache_EvictsLRUAtCapacity(t *testing.T) {
	ec, _ := newTestEnricherCache(t, 2, time.Hour)

	ec.Set("a", 1)
	ec.Set("b", 2)
	ec.Get("a") // a becomes most recent
	ec.Set("c", 3)

	if _, ok := ec.Get("b"); ok {
		t.Error("b should have been evicted as LRU")
	}
	if _, ok := ec.Get("a"); !ok {
		t.Error("a should survive")
	}
}

func TestEnricherCache_SetOverwrites(t *testing.T) {
	ec, clock := newTestEnricherCache(t, 5, time.Minute)

	ec.Set("k", 1)
	clock.advance(50 * time.Second)
	ec.Set("k", 2) // refreshes TTL
	clock.advance(30 * time.Second)

	if v, ok := ec.Get("k"); !ok || v != 2 {
		t.Errorf("Get(k) = %v, %v, want 2, true after refresh", v, ok)
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Fingerprint("geoip", map[string]any{"ip": "10.0.0.1", "db": "city"})
	b := Fingerprint("geoip", map[string]any{"db": "city", "ip": "10.0.0.1"})
	if a != b {
		t.Errorf("identical args in different order hashed differently: %s vs %s", a, b)
	}
}

func TestFingerprint_Distinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{
			"different name",
			Fingerprint("geoip", map[string]any{"ip": "10.0.0.1"}),
			Fingerprint("asn", map[string]any{"ip": "10.0.0.1"}),
		},
		{
			"different value",
			Fingerprint("geoip", map[string]any{"ip": "10.0.0.1"}),
			Fingerprint("geoip", map[string]any{"ip": "10.0.0.2"}),
		},
		{
			"different key",
			Fingerprint("geoip", map[string]any{"ip": "10.0.0.1"}),
			Fingerprint("geoip", map[string]any{"host": "10.0.0.1"}),
		},
	}
	for _, tt := range tests {
		if tt.a == tt.b {
			t.Errorf("%s: fingerprints collide", tt.name)
		}
	}
}
