package memcache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/optsearch/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetSet(t *testing.T) {
	t.Parallel()

	c := memcache.New[string](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", "value")
	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	ck := newClock()
	c := memcache.New(10, time.Minute, memcache.WithClock[int](ck.Now))

	c.Set("key", 42)

	ck.Advance(2 * time.Minute)
	_, ok := c.Get("key")
	assert.False(t, ok, "entry past TTL on both timestamps must expire")
}

func TestSlidingWindow(t *testing.T) {
	t.Parallel()

	ck := newClock()
	c := memcache.New(10, time.Minute, memcache.WithClock[int](ck.Now))

	c.Set("key", 42)

	// Accesses inside the window keep pushing expiry out, but once the
	// creation age also exceeds the TTL the entry survives only while
	// its access age stays inside it.
	for range 5 {
		ck.Advance(30 * time.Second)
		_, ok := c.Get("key")
		require.True(t, ok)
	}

	ck.Advance(2 * time.Minute)
	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestClockSkewResilience(t *testing.T) {
	t.Parallel()

	for _, skew := range []time.Duration{-45 * time.Second, -time.Second, time.Second, 45 * time.Second} {
		t.Run(skew.String(), func(t *testing.T) {
			t.Parallel()

			ck := newClock()
			c := memcache.New(10, time.Minute, memcache.WithClock[int](ck.Now))

			c.Set("key", 1)
			ck.Advance(skew)

			_, ok := c.Get("key")
			assert.True(t, ok, "|skew| < ttl must not change expiry of a fresh entry")
		})
	}
}

func TestUpdateTimestamp(t *testing.T) {
	t.Parallel()

	ck := newClock()
	c := memcache.New(10, time.Minute, memcache.WithClock[int](ck.Now))

	assert.False(t, c.UpdateTimestamp("missing"))

	c.Set("key", 1)
	ck.Advance(50 * time.Second)
	require.True(t, c.UpdateTimestamp("key"))

	// The refreshed access time keeps the entry alive past the point
	// where the original window would have lapsed.
	ck.Advance(50 * time.Second)
	_, ok := c.Get("key")
	assert.True(t, ok)
}

func TestRemoveExpired(t *testing.T) {
	t.Parallel()

	ck := newClock()
	c := memcache.New(10, time.Minute, memcache.WithClock[int](ck.Now))

	c.Set("old-a", 1)
	c.Set("old-b", 2)
	ck.Advance(2 * time.Minute)
	c.Set("fresh", 3)

	assert.Equal(t, 2, c.RemoveExpired())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestEvictOldestOnInsertWhenFull(t *testing.T) {
	t.Parallel()

	ck := newClock()
	c := memcache.New(3, time.Hour, memcache.WithClock[int](ck.Now))

	c.Set("a", 1)
	ck.Advance(time.Second)
	c.Set("b", 2)
	ck.Advance(time.Second)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the oldest by access time.
	ck.Advance(time.Second)
	_, ok := c.Get("a")
	require.True(t, ok)

	ck.Advance(time.Second)
	c.Set("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "oldest-access entry should have been evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	c := memcache.New[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // overwrite, cache full but no insert

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	c := memcache.New[int](10, time.Hour)
	c.Set("a", 1)

	c.Delete("a")
	c.Delete("missing")

	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	t.Parallel()

	c := memcache.New[int](10, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := memcache.New[int](64, time.Hour)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("key-%d", (i*100+j)%32)
				c.Set(key, j)
				c.Get(key)
				c.UpdateTimestamp(key)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, 64)
}
