package optsearch

import "time"

// Config holds the tuning surface consumed by the cache and store
// layers. Where the cache directory lives is the caller's decision;
// the core only requires that it be private to the current user.
type Config struct {
	// CacheDir is the directory used by the disk cache. If it cannot
	// be created the cache degrades to a process-temporary directory.
	CacheDir string

	// TTL is the expiry window applied to both cache layers.
	TTL time.Duration

	// MaxMemoryEntries bounds the in-memory cache.
	MaxMemoryEntries int

	// MinViableOptions is the smallest dataset the store will persist.
	// Smaller datasets are served but never written to cache, so a
	// transient parse failure cannot poison previously good entries.
	MinViableOptions int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TTL:              24 * time.Hour,
		MaxMemoryEntries: 100,
		MinViableOptions: 10,
	}
}
