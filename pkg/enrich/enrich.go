// Package enrich provides per-event enrichment functions, an explicit
// registry for them, and a memoizing wrapper backed by the enricher cache.
//
// The registry is an ordinary object constructed at configuration time and
// passed by reference, so multiple independent pipelines can coexist in one
// process without shared mutable state.
package enrich

import (
	"sync"

	"github.com/logrelay/logrelay/pkg/cache"
	"github.com/logrelay/logrelay/pkg/errors"
)

// Func computes an enrichment value from keyword-style arguments. Funcs must
// be side-effect free; that is what makes memoization sound.
type Func func(args map[string]any) (any, error)

// Registry holds named enrichers.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds an enricher under name. Duplicate names are rejected.
func (r *Registry) Register(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return errors.Config("enricher", "duplicate name "+name)
	}
	r.funcs[name] = fn
	return nil
}

// Get returns the enricher registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered enricher names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// Cached returns a composed enricher that consults the cache before
// computing. Identical logical inputs within the TTL window skip
// recomputation; the cache key is derived from the argument fingerprint, so
// argument ordering does not matter. Errors are never cached.
func Cached(name string, fn Func, c *cache.EnricherCache) Func {
	return func(args map[string]any) (any, error) {
		key := cache.Fingerprint(name, args)
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn(args)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	}
}
