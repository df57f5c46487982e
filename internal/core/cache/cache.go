// Package cache is an unbounded in-memory keyed store safe for concurrent use.
// Entries live as long as the Cache; there is no expiry and no eviction
package cache

import "sync"

// Cache maps K to V. The zero value is ready to use
type Cache[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New returns an empty Cache
func New[K comparable, V any]() *Cache[K, V] { return &Cache[K, V]{} }

// Value returns the value stored for key, if any
func (c *Cache[K, V]) Value(key K) (V, bool) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	return v, ok
}

// Store sets the value for key; the last write wins
func (c *Cache[K, V]) Store(key K, value V) {
	c.mu.Lock()
	if c.m == nil {
		c.m = make(map[K]V)
	}
	c.m[key] = value
	c.mu.Unlock()
}

// Len reports the number of stored keys
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
