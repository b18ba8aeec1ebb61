package optsearch

import (
	"context"
	"time"
)

// OptionService represents the query surface over indexed option
// documentation. A store that has not finished loading returns an
// ENOTREADY error from every query method; a store whose last load
// failed returns EUNAVAILABLE with the underlying message preserved.
type OptionService interface {
	// SearchOptions runs the multi-strategy search against a source's
	// index and returns up to limit results ordered by descending
	// score, name ascending on ties.
	SearchOptions(ctx context.Context, source, query string, limit int) ([]SearchResult, error)

	// FindOption retrieves a single option by its exact name.
	// Returns ENOTFOUND if no such option exists.
	FindOption(ctx context.Context, source, name string) (*Option, error)

	// Suggest returns up to limit option names close to the given name,
	// for "did you mean" responses after a failed FindOption.
	Suggest(ctx context.Context, source, name string, limit int) ([]string, error)

	// ListOptions returns all options at or below the given dotted
	// prefix, ordered by name.
	ListOptions(ctx context.Context, source, prefix string) ([]*Option, error)

	// ChildSegments returns the distinct next-level path segments
	// directly under parent, for one-level-at-a-time path completion.
	// Parent "" yields the top-level segments.
	ChildSegments(ctx context.Context, source, parent string) ([]string, error)

	// SourceStats reports load state and index/cache statistics for a
	// source. Unlike the query methods it never fails on a store that
	// is still loading.
	SourceStats(ctx context.Context, source string) (*SourceStats, error)

	// Refresh invalidates the source's cached data and reloads it from
	// the original manual.
	Refresh(ctx context.Context, source string) error
}

// SourceStats reports the state of one source's index and caches.
type SourceStats struct {
	Source    string     `json:"source"`
	State     string     `json:"state"`
	Loading   bool       `json:"loading"`
	LoadError string     `json:"loadError,omitempty"`
	Options   int        `json:"options"`
	Words     int        `json:"words"`
	Prefixes  int        `json:"prefixes"`
	LoadedAt  time.Time  `json:"loadedAt,omitzero"`
	Cache     CacheStats `json:"cache"`
}

// CacheStats aggregates disk-cache counters for a store.
type CacheStats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Writes     uint64 `json:"writes"`
	Errors     uint64 `json:"errors"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
}
