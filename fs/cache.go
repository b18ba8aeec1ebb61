package fs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies one of the three payload formats a key can carry.
// The kind is mixed into the on-disk filename hash, so the payloads of
// a single logical key never collide with each other.
type Kind int

const (
	// KindText is a raw text blob, typically fetched HTML.
	KindText Kind = iota
	// KindData is a JSON-serialized structured record.
	KindData
	// KindBinary is an opaque binary blob, typically a gob-encoded
	// snapshot of in-memory index structures.
	KindBinary
)

func (k Kind) ext() string {
	switch k {
	case KindText:
		return ".html"
	case KindData:
		return ".data.json"
	default:
		return ".data.bin"
	}
}

func (k Kind) tag() string {
	switch k {
	case KindText:
		return "text"
	case KindData:
		return "data"
	default:
		return "binary"
	}
}

// metaSuffix is appended to every payload path for its sidecar record.
const metaSuffix = ".meta"

// metadata is the sidecar record written alongside every payload. The
// creation timestamp pairs with the payload's mtime (the access-time
// proxy) to make expiry robust to clock skew; the instance ID
// identifies which writer produced the entry when diagnosing
// multi-writer contention.
type metadata struct {
	CreatedAt  time.Time `json:"createdAt"`
	InstanceID string    `json:"instanceId"`
}

// Stats reports cache counters and on-disk footprint.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Writes     uint64
	Errors     uint64
	Entries    int
	TotalBytes int64
}

// Cache is a keyed persistent cache safe for concurrent use by
// multiple goroutines and multiple OS processes. Entries expire when
// both their last access and their original creation are older than
// the TTL; a single clock anomaly can therefore never expire a fresh
// entry or immortalize a stale one.
type Cache struct {
	dir      string
	ttl      time.Duration
	degraded bool
	writer   *AtomicWriter
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	counters struct {
		hits, misses, writes, errors uint64
	}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock sets the time source. This is primarily useful for testing
// expiry behavior deterministically.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger for degraded-mode and integrity warnings.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithWriter sets the atomic writer used for all payload and sidecar
// writes.
func WithWriter(w *AtomicWriter) CacheOption {
	return func(c *Cache) {
		c.writer = w
	}
}

// NewCache opens a cache rooted at dir with the given TTL. The
// directory is created owner-only. If it cannot be created the cache
// degrades to a process-temporary directory instead of failing: a
// non-functioning cache must not prevent the caller from operating
// uncached. Degraded state is reported by Degraded.
func NewCache(dir string, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.writer == nil {
		c.writer = NewAtomicWriter(WithWriterLogger(c.logger))
	}

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		fallback, tmpErr := os.MkdirTemp("", "optsearch-cache-")
		if tmpErr != nil {
			fallback = filepath.Join(os.TempDir(), "optsearch-cache")
			_ = os.MkdirAll(fallback, 0o700)
		}
		c.logger.Warn("cache directory unavailable, degrading to temp dir",
			"dir", dir, "fallback", fallback, "error", err)
		c.dir = fallback
		c.degraded = true
	}
	return c
}

// Dir returns the directory actually in use, which differs from the
// requested one in degraded mode.
func (c *Cache) Dir() string {
	return c.dir
}

// Degraded reports whether the cache fell back to a temporary
// directory during initialization.
func (c *Cache) Degraded() bool {
	return c.degraded
}

// TTL returns the configured expiry window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// InstanceID returns the identifier written into sidecar metadata.
func (c *Cache) InstanceID() string {
	return c.writer.InstanceID()
}

// GetText retrieves a text payload. The second result is false on a
// miss, including an expired or unreadable entry.
func (c *Cache) GetText(key string) (string, bool) {
	data, ok := c.get(key, KindText)
	return string(data), ok
}

// SetText stores a text payload.
func (c *Cache) SetText(key, value string) bool {
	return c.set(key, KindText, []byte(value))
}

// GetData retrieves a structured payload, unmarshaling it into out.
// A payload that fails to decode is treated as a miss and invalidated
// so it is not repeatedly retried.
func (c *Cache) GetData(key string, out any) bool {
	data, ok := c.get(key, KindData)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("invalidating malformed cache payload", "key", key, "error", err)
		c.invalidateKind(key, KindData)
		c.count(func(s *counterSet) { s.errors++ })
		return false
	}
	return true
}

// SetData marshals v to JSON and stores it as a structured payload.
func (c *Cache) SetData(key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal cache payload", "key", key, "error", err)
		c.count(func(s *counterSet) { s.errors++ })
		return false
	}
	return c.set(key, KindData, data)
}

// GetBinary retrieves a binary payload.
func (c *Cache) GetBinary(key string) ([]byte, bool) {
	return c.get(key, KindBinary)
}

// SetBinary stores a binary payload.
func (c *Cache) SetBinary(key string, data []byte) bool {
	return c.set(key, KindBinary, data)
}

// Invalidate removes every payload kind and sidecar for the key. It
// never errors when the files are already absent.
func (c *Cache) Invalidate(key string) {
	for _, kind := range []Kind{KindText, KindData, KindBinary} {
		c.invalidateKind(key, kind)
	}
}

// InvalidateAll removes every payload and sidecar file in the cache
// directory, leaving unrelated files alone.
func (c *Cache) InvalidateAll() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !c.ownsFile(e.Name()) {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, e.Name()))
	}
}

// Stats returns counters plus an on-disk walk of entry count and total
// bytes.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	stats := Stats{
		Hits:   c.counters.hits,
		Misses: c.counters.misses,
		Writes: c.counters.writes,
		Errors: c.counters.errors,
	}
	c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats
	}
	for _, e := range entries {
		if e.IsDir() || !c.ownsFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
		if !strings.HasSuffix(e.Name(), metaSuffix) {
			stats.Entries++
		}
	}
	return stats
}

func (c *Cache) get(key string, kind Kind) ([]byte, bool) {
	path := c.path(key, kind)
	info, err := os.Stat(path)
	if err != nil {
		c.count(func(s *counterSet) { s.misses++ })
		return nil, false
	}

	access := info.ModTime()
	created := c.readCreatedAt(path, access)
	if c.expired(access, created) {
		// Expired entries are reported as misses but left on disk; a
		// subsequent Set resurrects the creation timestamp.
		c.count(func(s *counterSet) { s.misses++ })
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.count(func(s *counterSet) { s.errors++; s.misses++ })
		return nil, false
	}

	// Sliding window: refresh the access-time proxy on every hit. This
	// also resets a last-access time that sits in the future after a
	// backward clock jump.
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		c.logger.Debug("failed to refresh cache access time", "path", path, "error", err)
	}

	c.count(func(s *counterSet) { s.hits++ })
	return data, true
}

func (c *Cache) set(key string, kind Kind, data []byte) bool {
	path := c.path(key, kind)

	// Carry the original creation timestamp forward across rewrites so
	// the creation-based expiry check spans the entry's whole history.
	created := c.now()
	if prior, ok := c.readMeta(path); ok {
		created = prior.CreatedAt
	}

	if ok := c.writer.Write(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); !ok {
		c.count(func(s *counterSet) { s.errors++ })
		return false
	}

	meta := metadata{CreatedAt: created, InstanceID: c.writer.InstanceID()}
	encoded, err := json.Marshal(meta)
	if err != nil {
		c.count(func(s *counterSet) { s.errors++ })
		return false
	}
	if ok := c.writer.Write(path+metaSuffix, func(f *os.File) error {
		_, err := f.Write(encoded)
		return err
	}); !ok {
		c.count(func(s *counterSet) { s.errors++ })
		return false
	}

	c.count(func(s *counterSet) { s.writes++ })
	return true
}

// expired implements the dual-timestamp rule: an entry is expired only
// when BOTH its last access and its creation are older than the TTL.
// Backward clock jumps clamp the affected age to zero rather than
// erroring, so a single anomaly cannot cause spurious expiry.
func (c *Cache) expired(access, created time.Time) bool {
	now := c.now()

	var accessAge time.Duration
	if now.After(access) {
		accessAge = now.Sub(access)
	}
	var createdAge time.Duration
	if now.After(created) {
		createdAge = now.Sub(created)
	}
	return accessAge > c.ttl && createdAge > c.ttl
}

// readCreatedAt loads the sidecar creation timestamp, falling back to
// the access time when the sidecar is missing or malformed. The
// invariant creation <= lastAccess is enforced on every read.
func (c *Cache) readCreatedAt(path string, access time.Time) time.Time {
	meta, ok := c.readMeta(path)
	if !ok {
		return access
	}
	if meta.CreatedAt.After(access) {
		return access
	}
	return meta.CreatedAt
}

func (c *Cache) readMeta(path string) (metadata, bool) {
	data, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return metadata{}, false
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return metadata{}, false
	}
	if meta.CreatedAt.IsZero() {
		return metadata{}, false
	}
	return meta, true
}

func (c *Cache) invalidateKind(key string, kind Kind) {
	path := c.path(key, kind)
	for _, p := range []string{path, path + metaSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			c.logger.Debug("failed to remove cache file", "path", p, "error", err)
		}
	}
}

// path derives the on-disk location for a key and kind. The filename
// is a content hash of the logical key mixed with the payload kind,
// used purely as a filesystem-safe name.
func (c *Cache) path(key string, kind Kind) string {
	sum := xxhash.Sum64String(kind.tag() + ":" + key)
	return filepath.Join(c.dir, fmt.Sprintf("%016x%s", sum, kind.ext()))
}

// ownsFile reports whether a directory entry looks like one of ours.
func (c *Cache) ownsFile(name string) bool {
	name = strings.TrimSuffix(name, metaSuffix)
	for _, kind := range []Kind{KindText, KindData, KindBinary} {
		if strings.HasSuffix(name, kind.ext()) {
			return true
		}
	}
	return false
}

type counterSet = struct {
	hits, misses, writes, errors uint64
}

func (c *Cache) count(fn func(*counterSet)) {
	c.mu.Lock()
	fn(&c.counters)
	c.mu.Unlock()
}
