// Package resilience provides the failure-isolating call wrapper used around
// sink dispatch.
package resilience

import (
	"sync"
	"time"

	"github.com/logrelay/logrelay/pkg/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // normal operation, calls pass through
	CircuitOpen                         // fail fast, no underlying call attempted
	CircuitHalfOpen                     // one probe call allowed
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// CircuitBreaker stops attempting calls to a known-failing destination for a
// cooldown period. One instance protects one call site, typically one sink.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	classify         func(error) bool // true if the error counts toward the threshold

	state       CircuitState
	failures    int
	lastFailure time.Time

	// Callbacks, invoked outside the lock.
	OnTrip  func(name string, failures int)
	OnReset func(name string)

	// now is swappable for tests.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive counted failures and allows a probe once recoveryTimeout has
// elapsed since the last failure.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) (*CircuitBreaker, error) {
	if failureThreshold < 1 {
		return nil, errors.Config("breaker.failure_threshold", "must be >= 1")
	}
	if recoveryTimeout <= 0 {
		return nil, errors.Config("breaker.recovery_timeout", "must be > 0")
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            CircuitClosed,
		now:              time.Now,
	}, nil
}

// WithClassifier restricts which failure kinds count toward the threshold.
// Errors the classifier rejects propagate without affecting circuit state.
// The default counts every error.
func (cb *CircuitBreaker) WithClassifier(fn func(error) bool) *CircuitBreaker {
	cb.classify = fn
	return cb
}

// Call invokes op through the breaker. While the circuit is open and not yet
// eligible for a probe it fails immediately with a circuit-open error
// carrying the last failure time, without invoking op. The operation itself
// runs outside the lock.
func (cb *CircuitBreaker) Call(op func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) < cb.recoveryTimeout {
			last := cb.lastFailure
			cb.mu.Unlock()
			return errors.CircuitOpen(cb.name, last)
		}
		// Recovery timeout elapsed; this call is the probe.
		cb.state = CircuitHalfOpen
	case CircuitHalfOpen, CircuitClosed:
	}
	cb.mu.Unlock()

	err := op()

	cb.mu.Lock()
	var tripped, reset bool
	if err == nil {
		if cb.state == CircuitHalfOpen {
			cb.state = CircuitClosed
			reset = true
		}
		cb.failures = 0
	} else if cb.counts(err) {
		cb.failures++
		cb.lastFailure = cb.now()
		switch cb.state {
		case CircuitHalfOpen:
			cb.state = CircuitOpen
			tripped = true
		case CircuitClosed:
			if cb.failures >= cb.failureThreshold {
				cb.state = CircuitOpen
				tripped = true
			}
		}
	}
	failures := cb.failures
	cb.mu.Unlock()

	if tripped && cb.OnTrip != nil {
		cb.OnTrip(cb.name, failures)
	}
	if reset && cb.OnReset != nil {
		cb.OnReset(cb.name)
	}
	return err
}

func (cb *CircuitBreaker) counts(err error) bool {
	if cb.classify == nil {
		return true
	}
	return cb.classify(err)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive counted-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// LastFailure returns the time of the most recent counted failure.
func (cb *CircuitBreaker) LastFailure() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastFailure
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
