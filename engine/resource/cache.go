package resource

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache holds fetched resource bytes keyed by resolved URI.
// It has an explicit lifetime: a Loader owns one unless the host injects a shared instance.
// Readers never block each other; the first insert for a key wins and later inserts of the
// same key return the stored bytes. Concurrent misses on one key share a single fetch.
// Failed fetches are not cached.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	inflight singleflight.Group
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewCache creates an empty Cache.
//
// Returns:
//   - *Cache: the cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the bytes stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// Put stores data under key unless an entry already exists, and returns the stored bytes.
func (c *Cache) Put(key string, data []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = data
	return data
}

// GetOrFetch returns the cached bytes for uri, fetching them through f on a miss.
// The fetch runs without holding the lock. Callers that miss while a fetch of the same key is
// running wait for it instead of fetching again; the fetch is bounded by the first caller's ctx,
// and a waiter whose own ctx ends stops waiting.
//
// Parameters:
//   - ctx: context bounding the fetch
//   - uri: the resolved URI used as the cache key
//   - f: the fetch function invoked on a miss
//
// Returns:
//   - []byte: the resource bytes
//   - error: the fetch error on a miss
func (c *Cache) GetOrFetch(ctx context.Context, uri string, f func(ctx context.Context, uri string) ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(uri); ok {
		return data, nil
	}

	ch := c.inflight.DoChan(uri, func() (any, error) {
		c.mu.RLock()
		data, ok := c.entries[uri]
		c.mu.RUnlock()
		if ok {
			return data, nil
		}

		data, err := f(ctx, uri)
		if err != nil {
			return nil, err
		}
		return c.Put(uri, data), nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
