package ngc

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

type flightResult[T any] struct {
	value T
	err   error
}

// flightCache is a run-scoped result cache with single-flight coalescing:
// at most one lookup is in flight per key, concurrent callers for the same
// key await that call's result, and callers for different keys proceed
// independently. Completed lookups are cached for the rest of the run,
// failures included, so a failing identity is never retried within a run.
type flightCache[T any] struct {
	mu      sync.Mutex
	results map[string]flightResult[T]
	flight  singleflight.Group
}

func (c *flightCache[T]) do(key string, fn func() (T, error)) (T, error) {
	c.mu.Lock()
	if c.results == nil {
		c.results = make(map[string]flightResult[T])
	}
	if r, ok := c.results[key]; ok {
		c.mu.Unlock()
		return r.value, r.err
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		value, err := fn()
		c.mu.Lock()
		c.results[key] = flightResult[T]{value: value, err: err}
		c.mu.Unlock()
		return value, err
	})
	return v.(T), err
}
