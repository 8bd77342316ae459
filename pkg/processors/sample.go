package processors

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/cache"
	"github.com/logrelay/logrelay/pkg/errors"
)

// SampleProcessor performs unconditional Bernoulli sampling at a fixed rate.
// This is statistical volume reduction, unrelated to the queue's
// sample-on-overflow policy.
type SampleProcessor struct {
	rate float64
}

// NewSample creates a rate sampler. Rate must be within [0,1].
func NewSample(rate float64) (*SampleProcessor, error) {
	if rate < 0 || rate > 1 {
		return nil, errors.Config("sample.rate", "must be within [0,1]")
	}
	return &SampleProcessor{rate: rate}, nil
}

// Name implements Processor.
func (p *SampleProcessor) Name() string { return "sample" }

// Process implements Processor.
func (p *SampleProcessor) Process(ev *model.Event) (*model.Event, error) {
	if rand.Float64() < p.rate {
		return ev, nil
	}
	return nil, nil
}

// RateLimitProcessor caps events per key over a sliding window, using the
// LRU rate tracker. Events for a key past its budget are filtered out;
// untracked keys (evicted or new) start a fresh window.
type RateLimitProcessor struct {
	tracker  *cache.RateTracker
	keyField string
	limit    int
	window   time.Duration

	// cleanupEvery bounds how often the tracker is swept; every Nth call.
	// calls is atomic: Process runs on the producer side and may be
	// invoked from many goroutines at once.
	cleanupEvery int64
	calls        atomic.Int64
}

// NewRateLimit creates a per-key rate limiter. Events missing the key field
// are limited under the empty key.
func NewRateLimit(tracker *cache.RateTracker, keyField string, limit int, window time.Duration) (*RateLimitProcessor, error) {
	if limit < 1 {
		return nil, errors.Config("rate_limit.limit", "must be >= 1")
	}
	if window <= 0 {
		return nil, errors.Config("rate_limit.window", "must be > 0")
	}
	return &RateLimitProcessor{
		tracker:      tracker,
		keyField:     keyField,
		limit:        limit,
		window:       window,
		cleanupEvery: 1024,
	}, nil
}

// Name implements Processor.
func (p *RateLimitProcessor) Name() string { return "rate_limit" }

// Process implements Processor.
func (p *RateLimitProcessor) Process(ev *model.Event) (*model.Event, error) {
	key := ""
	if v, ok := ev.Get(p.keyField); ok {
		if s, ok := v.(string); ok {
			key = s
		}
	}

	now := time.Now()
	if p.calls.Add(1)%p.cleanupEvery == 0 {
		p.tracker.CleanupExpired(p.window, now)
	}

	if !p.tracker.Allow(key, p.limit, p.window, now) {
		return nil, nil
	}
	return ev, nil
}
