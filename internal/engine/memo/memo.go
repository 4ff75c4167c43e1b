// Package memo provides a per-key cache that computes each key at most once,
// even when many goroutines ask for the same key concurrently.
package memo

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes values by string key. A request for a key whose computation
// is in flight blocks until that computation finishes and shares its result.
// The zero value is not usable; call New.
type Cache[V any] struct {
	mu       sync.RWMutex
	values   map[string]V
	group    singleflight.Group
	computed atomic.Int64
}

// New creates an empty Cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{values: make(map[string]V)}
}

// Get returns the cached value for key, computing it with fn on first use.
func (c *Cache[V]) Get(key string, fn func() V) V {
	return c.GetIf(key, func() (V, bool) { return fn(), true })
}

// GetIf is Get for values that are not always final. The value fn returns
// is cached only when its bool is true; otherwise it goes to the callers
// sharing this computation and the next request computes the key again.
func (c *Cache[V]) GetIf(key string, fn func() (V, bool)) V {
	if v, ok := c.lookup(key); ok {
		return v
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		// A computation may have finished between lookup and Do.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, keep := fn()
		c.computed.Add(1)
		if keep {
			c.mu.Lock()
			c.values[key] = v
			c.mu.Unlock()
		}
		return v, nil
	})
	return v.(V)
}

// Len returns the number of cached keys.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Computed returns how many times a value function ran.
func (c *Cache[V]) Computed() int64 {
	return c.computed.Load()
}

// Range calls f for every cached entry in unspecified order.
func (c *Cache[V]) Range(f func(key string, v V)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.values {
		f(k, v)
	}
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}
