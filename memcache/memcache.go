// Package memcache provides a thread-safe, bounded, TTL-based
// in-memory cache used as a fast front for the disk cache. It applies
// the same dual-timestamp expiry rule as the disk cache, so a single
// clock anomaly can neither expire a fresh entry nor immortalize a
// stale one.
//
// All operations hold one mutex for the whole map. The cache is meant
// for small, frequently-read datasets, so coarse locking is an
// accepted simplification.
package memcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	createdAt  time.Time
	accessedAt time.Time
}

// Stats reports cache counters and occupancy.
type Stats struct {
	Size        int
	MaxSize     int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// Cache is a bounded TTL cache. When full, inserting a new key evicts
// the single entry with the oldest last-access time.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits, misses, evictions, expirations uint64
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock sets the time source, primarily for deterministic tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache bounded to maxSize entries with the given TTL.
func New[V any](maxSize int, ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired, refreshing
// its last-access time (sliding window).
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	now := c.now()
	if now.Before(e.accessedAt) {
		// Backward clock jump: reset the access time rather than
		// treating the entry as anomalous.
		e.accessedAt = now
	}
	if c.expired(e, now) {
		delete(c.entries, key)
		c.expirations++
		c.misses++
		return zero, false
	}

	e.accessedAt = now
	c.hits++
	return e.value, true
}

// Set stores a value, evicting the oldest-access entry when inserting
// a new key into a full cache.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		// Overwrites keep the original creation time; only the value
		// and access window refresh.
		e.value = value
		e.accessedAt = now
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &entry[V]{value: value, createdAt: now, accessedAt: now}
}

// UpdateTimestamp refreshes the last-access time for key. Returns
// false if the key is absent.
func (c *Cache[V]) UpdateTimestamp(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.accessedAt = c.now()
	return true
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RemoveExpired deletes all expired entries and returns how many were
// removed.
func (c *Cache[V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.expirations += uint64(removed)
	return removed
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:        len(c.entries),
		MaxSize:     c.maxSize,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// expired applies the dual-timestamp rule: expired only when both the
// access age and the creation age exceed the TTL, with backward clock
// jumps clamping the affected age to zero.
func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	var accessAge time.Duration
	if now.After(e.accessedAt) {
		accessAge = now.Sub(e.accessedAt)
	}
	var createdAge time.Duration
	if now.After(e.createdAt) {
		createdAge = now.Sub(e.createdAt)
	}
	return accessAge > c.ttl && createdAge > c.ttl
}

// evictOldest removes the entry with the smallest last-access time.
// Callers must hold the mutex.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.accessedAt.Before(oldest) {
			oldestKey = key
			oldest = e.accessedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}
