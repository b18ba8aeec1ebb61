package fs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/optsearch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a mutable time source for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCacheMissThenHit(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	_, ok := c.GetText("http://example.com/options.html")
	assert.False(t, ok)

	require.True(t, c.SetText("http://example.com/options.html", "<html>manual</html>"))

	got, ok := c.GetText("http://example.com/options.html")
	require.True(t, ok)
	assert.Equal(t, "<html>manual</html>", got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Writes)
}

func TestCacheKindsDoNotCollide(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	require.True(t, c.SetText("key", "text payload"))
	require.True(t, c.SetBinary("key", []byte{0x01, 0x02}))

	text, ok := c.GetText("key")
	require.True(t, ok)
	assert.Equal(t, "text payload", text)

	bin, ok := c.GetBinary("key")
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, bin)
}

func TestCacheDataRoundTrip(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	type record struct {
		Count int      `json:"count"`
		Names []string `json:"names"`
	}

	require.True(t, c.SetData("key", record{Count: 2, Names: []string{"a", "b"}}))

	var got record
	require.True(t, c.GetData("key", &got))
	assert.Equal(t, record{Count: 2, Names: []string{"a", "b"}}, got)
}

func TestCacheMalformedDataInvalidated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := fs.NewCache(dir, time.Hour)

	require.True(t, c.SetText("key", "payload")) // establish file layout
	require.True(t, c.SetData("key", map[string]int{"n": 1}))

	// Corrupt the structured payload in place.
	var corrupted bool
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" && !corrupted {
			require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), []byte("{not json"), 0o600))
			corrupted = true
		}
	}
	require.True(t, corrupted)

	var out map[string]int
	assert.False(t, c.GetData("key", &out))
	// The offending entry is gone, so the next read is a plain miss.
	assert.False(t, c.GetData("key", &out))
}

func TestCacheTrueExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := fs.NewCache(t.TempDir(), time.Minute, fs.WithClock(clock.Now))

	require.True(t, c.SetText("key", "value"))

	// Age the payload file itself; mtime is the access-time proxy.
	clock.Advance(2 * time.Minute)
	agePayloadFiles(t, c.Dir(), 2*time.Minute)

	_, ok := c.GetText("key")
	assert.False(t, ok, "entry past TTL on both timestamps must be expired")
}

func TestCacheClockSkewResilience(t *testing.T) {
	t.Parallel()

	for _, skew := range []time.Duration{-30 * time.Second, -5 * time.Second, 5 * time.Second, 30 * time.Second} {
		t.Run(skew.String(), func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			c := fs.NewCache(t.TempDir(), time.Minute, fs.WithClock(clock.Now))

			require.True(t, c.SetText("key", "value"))

			// |skew| < ttl must never change the expiry outcome of a
			// freshly-set entry.
			clock.Advance(skew)
			_, ok := c.GetText("key")
			assert.True(t, ok)
		})
	}
}

func TestCacheCreationTimestampCarriedForward(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := fs.NewCache(t.TempDir(), time.Minute, fs.WithClock(clock.Now))

	created := clock.Now()
	require.True(t, c.SetText("key", "v1"))

	// A rewrite refreshes the access window but keeps the original
	// creation time from the prior sidecar.
	clock.Advance(45 * time.Second)
	require.True(t, c.SetText("key", "v2"))

	meta := readSidecar(t, c.Dir(), ".html")
	assert.True(t, meta.CreatedAt.Equal(created),
		"creation timestamp must be copied forward on rewrite")
	assert.Equal(t, c.InstanceID(), meta.InstanceID)
}

// readSidecar loads the first sidecar whose payload carries ext.
func readSidecar(t *testing.T, dir, ext string) (meta struct {
	CreatedAt  time.Time `json:"createdAt"`
	InstanceID string    `json:"instanceId"`
}) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ext+".meta") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &meta))
		return meta
	}
	t.Fatalf("no %s sidecar found in %s", ext, dir)
	return meta
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	require.True(t, c.SetText("key", "value"))
	require.True(t, c.SetBinary("key", []byte{1}))

	c.Invalidate("key")

	_, ok := c.GetText("key")
	assert.False(t, ok)
	_, ok = c.GetBinary("key")
	assert.False(t, ok)

	// Invalidating an absent key is a no-op.
	c.Invalidate("missing")
}

func TestCacheInvalidateAll(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	require.True(t, c.SetText("a", "1"))
	require.True(t, c.SetText("b", "2"))

	c.InvalidateAll()

	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheDegradedInit(t *testing.T) {
	t.Parallel()

	// A regular file where the directory should go makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	c := fs.NewCache(filepath.Join(blocker, "cache"), time.Hour)
	t.Cleanup(func() { os.RemoveAll(c.Dir()) })

	assert.True(t, c.Degraded())

	// Degraded caches still work, just in a temporary location.
	require.True(t, c.SetText("key", "value"))
	got, ok := c.GetText("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestCacheStatsFootprint(t *testing.T) {
	t.Parallel()

	c := fs.NewCache(t.TempDir(), time.Hour)

	require.True(t, c.SetText("a", "payload-a"))
	require.True(t, c.SetBinary("b", []byte{1, 2, 3}))

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.TotalBytes, int64(0))
}

// agePayloadFiles rewinds mtimes so entries look unaccessed for d.
func agePayloadFiles(t *testing.T, dir string, d time.Duration) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	old := time.Now().Add(-d)
	for _, e := range entries {
		require.NoError(t, os.Chtimes(filepath.Join(dir, e.Name()), old, old))
	}
}
