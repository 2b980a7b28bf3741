// Package lru is a fixed-capacity cache that evicts the least recently
// used entry when a Put makes it exceed its capacity.
//
// Cache is not safe for concurrent use.
package lru

import (
	"errors"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// ErrNotFound is returned by GetOrError for keys not in the cache
var ErrNotFound = errors.New("lru: key not found")

// Stats are counters accumulated over the lifetime of a Cache
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type Cache[K comparable, V any] struct {
	// nil when capacity is 0, in which case nothing is ever stored
	items    *simplelru.LRU[K, V]
	capacity int
	stats    Stats
}

// New creates a cache holding at most capacity entries.
// capacity of 0 creates a cache that stores nothing.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("lru: invalid capacity %d", capacity)
	}
	c := &Cache[K, V]{
		capacity: capacity,
	}
	if capacity == 0 {
		return c, nil
	}
	// no eviction callback: Purge() would report every entry as evicted
	items, err := simplelru.NewLRU[K, V](capacity, nil)
	if err != nil {
		return nil, err
	}
	c.items = items
	return c, nil
}

func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

func (c *Cache[K, V]) Len() int {
	if c.items == nil {
		return 0
	}
	return c.items.Len()
}

// Contains doesn't change recency of the key
func (c *Cache[K, V]) Contains(key K) bool {
	if c.items == nil {
		return false
	}
	return c.items.Contains(key)
}

// Lookup returns the value for key and marks it as most recently used
func (c *Cache[K, V]) Lookup(key K) (V, bool) {
	if c.items != nil {
		if v, ok := c.items.Get(key); ok {
			c.stats.Hits++
			return v, true
		}
	}
	c.stats.Misses++
	var zero V
	return zero, false
}

// Get returns the value for key or def if key is not in the cache
func (c *Cache[K, V]) Get(key K, def V) V {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// GetOrError is like Get but returns ErrNotFound on a miss
func (c *Cache[K, V]) GetOrError(key K) (V, error) {
	v, ok := c.Lookup(key)
	if !ok {
		return v, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return v, nil
}

// Put inserts or overwrites key and marks it as most recently used.
// If that makes the cache exceed its capacity, the least recently used
// entry is evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	if c.items == nil {
		return
	}
	if c.items.Add(key, value) {
		c.stats.Evictions++
	}
}

// Pop removes key. It's a no-op if key is not in the cache.
func (c *Cache[K, V]) Pop(key K) {
	if c.items == nil {
		return
	}
	c.items.Remove(key)
}

func (c *Cache[K, V]) Clear() {
	if c.items == nil {
		return
	}
	c.items.Purge()
}

func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}
