// Package docstore orchestrates fetching, parsing, indexing and
// caching of option documentation. Each source gets one Store that
// moves through a small lifecycle: loads are deduplicated, queries
// against a store that is not ready fail fast instead of blocking,
// and both cache layers sit between the store and the network.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/fs"
	"github.com/fwojciec/optsearch/index"
	"github.com/fwojciec/optsearch/memcache"
	"golang.org/x/sync/singleflight"
)

// LoadState names a store's position in its load lifecycle.
type LoadState string

const (
	StateNotStarted LoadState = "not_started"
	StateLoading    LoadState = "loading"
	StateLoaded     LoadState = "loaded"
	StateError      LoadState = "error"
)

// Store owns the search index and caches for a single documentation
// source. Loads run at most once at a time; concurrent callers share
// the in-flight result. Queries never trigger a synchronous load: the
// first query against a cold store starts a background load and
// returns ENOTREADY.
type Store struct {
	source  optsearch.Source
	cfg     optsearch.Config
	fetcher optsearch.Fetcher
	parser  optsearch.Parser
	disk    *fs.Cache
	mem     *memcache.Cache[*index.Snapshot]
	idx     *index.Index
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group
	loads sync.WaitGroup

	mu       sync.Mutex
	state    LoadState
	loadErr  string
	loadedAt time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDiskCache replaces the disk cache the store would otherwise
// create under the configured cache directory.
func WithDiskCache(disk *fs.Cache) StoreOption {
	return func(s *Store) {
		s.disk = disk
	}
}

// WithMemoryCache sets the snapshot cache. A service front sharing
// one bounded cache across its stores passes it here.
func WithMemoryCache(mem *memcache.Cache[*index.Snapshot]) StoreOption {
	return func(s *Store) {
		s.mem = mem
	}
}

// WithStoreClock sets the time source, primarily for tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store for one source. The disk cache lives in a
// per-source subdirectory of cfg.CacheDir unless one is injected.
func NewStore(source optsearch.Source, cfg optsearch.Config, fetcher optsearch.Fetcher, parser optsearch.Parser, opts ...StoreOption) (*Store, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		source:  source,
		cfg:     cfg,
		fetcher: fetcher,
		parser:  parser,
		idx:     index.New(),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		state:   StateNotStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.disk == nil {
		s.disk = fs.NewCache(filepath.Join(cfg.CacheDir, source.Name), cfg.TTL, fs.WithLogger(s.logger))
	}
	if s.mem == nil {
		s.mem = memcache.New[*index.Snapshot](cfg.MaxMemoryEntries, cfg.TTL)
	}
	return s, nil
}

// Source returns the source this store serves.
func (s *Store) Source() optsearch.Source {
	return s.source
}

// State returns the current load state.
func (s *Store) State() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureLoaded brings the store to the loaded state, reloading from
// the original manual when force is set. Concurrent callers join the
// same load; a caller whose context expires detaches without
// cancelling the shared load.
func (s *Store) EnsureLoaded(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.state == StateLoaded && !force {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	key := "load"
	if force {
		key = "reload"
	}
	ch := s.group.DoChan(key, func() (any, error) {
		s.loads.Add(1)
		defer s.loads.Done()
		return nil, s.load(context.WithoutCancel(ctx), force)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait blocks until no load is in flight.
func (s *Store) wait() {
	s.loads.Wait()
}

// Search runs the multi-strategy search against the index.
func (s *Store) Search(query string, limit int) ([]optsearch.SearchResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.idx.Search(query, limit)
}

// Find retrieves one option by exact name.
func (s *Store) Find(name string) (*optsearch.Option, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.idx.Lookup(name)
}

// Suggest returns names close to the given name.
func (s *Store) Suggest(name string, limit int) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.idx.Suggest(name, limit)
}

// List returns all options at or below the dotted prefix.
func (s *Store) List(prefix string) ([]*optsearch.Option, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.idx.ListPrefix(prefix)
}

// Children returns the distinct next-level path segments under parent.
func (s *Store) Children(parent string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.idx.ChildSegments(parent)
}

// Stats reports load state and index/cache statistics. It succeeds in
// every state.
func (s *Store) Stats() *optsearch.SourceStats {
	s.mu.Lock()
	state, loadErr, loadedAt := s.state, s.loadErr, s.loadedAt
	s.mu.Unlock()

	ds := s.disk.Stats()
	return &optsearch.SourceStats{
		Source:    s.source.Name,
		State:     string(state),
		Loading:   state == StateLoading,
		LoadError: loadErr,
		Options:   s.idx.Count(),
		Words:     s.idx.WordCount(),
		Prefixes:  s.idx.PrefixCount(),
		LoadedAt:  loadedAt,
		Cache: optsearch.CacheStats{
			Hits:       ds.Hits,
			Misses:     ds.Misses,
			Writes:     ds.Writes,
			Errors:     ds.Errors,
			Entries:    ds.Entries,
			TotalBytes: ds.TotalBytes,
		},
	}
}

// ready gates the query methods on load state. A cold store starts a
// background load so a later query can succeed without the caller
// ever blocking on the network.
func (s *Store) ready() error {
	s.mu.Lock()
	state, loadErr := s.state, s.loadErr
	s.mu.Unlock()

	switch state {
	case StateLoaded:
		return nil
	case StateError:
		return optsearch.Errorf(optsearch.EUNAVAILABLE, "source %q unavailable: %s", s.source.Name, loadErr)
	case StateNotStarted:
		s.kickoff()
		fallthrough
	default:
		return optsearch.Errorf(optsearch.ENOTREADY, "source %q is still loading", s.source.Name)
	}
}

func (s *Store) kickoff() {
	go func() {
		if err := s.EnsureLoaded(context.Background(), false); err != nil {
			s.logger.Warn("background load failed",
				slog.String("source", s.source.Name),
				slog.Any("error", err))
		}
	}()
}

func (s *Store) load(ctx context.Context, force bool) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	err := s.loadOnce(ctx, force)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.loadErr = err.Error()
		return err
	}
	s.state = StateLoaded
	s.loadErr = ""
	s.loadedAt = s.now()
	return nil
}

// loadOnce walks the cache hierarchy from cheapest to most expensive:
// memory snapshot, disk snapshot, cached raw document, network.
func (s *Store) loadOnce(ctx context.Context, force bool) error {
	key := s.source.Name

	if force {
		s.mem.Delete(key)
		s.disk.Invalidate(key)
	} else {
		if snap, ok := s.mem.Get(key); ok {
			if err := s.idx.Restore(snap, s.cfg.MinViableOptions); err == nil {
				return nil
			}
			s.mem.Delete(key)
		}
		if snap, ok := s.readDisk(key); ok {
			if err := s.idx.Restore(snap, s.cfg.MinViableOptions); err == nil {
				s.mem.Set(key, snap)
				return nil
			}
			s.logger.Warn("discarding invalid cached index",
				slog.String("source", key))
			s.disk.Invalidate(key)
		}
	}

	raw, cached := "", false
	if !force {
		raw, cached = s.disk.GetText(key)
	}
	if !cached {
		var err error
		raw, err = s.fetcher.Fetch(ctx, s.source.URL)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", s.source.URL, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	records, err := s.parser.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}

	s.idx.Build(records)

	if s.idx.Count() < s.cfg.MinViableOptions {
		// Serve the small dataset but never persist it, so a transient
		// upstream truncation cannot replace previously good entries.
		s.logger.Warn("dataset below viability threshold, serving uncached",
			slog.String("source", key),
			slog.Int("options", s.idx.Count()),
			slog.Int("min", s.cfg.MinViableOptions))
		return nil
	}

	snap := s.idx.Snapshot()
	if !cached {
		s.disk.SetText(key, raw)
	}
	s.disk.SetData(key, snap.Dataset)
	if encoded, err := index.EncodeDerived(snap.Derived); err == nil {
		s.disk.SetBinary(key, encoded)
	} else {
		s.logger.Warn("failed to encode derived indexes",
			slog.String("source", key),
			slog.Any("error", err))
	}
	s.mem.Set(key, snap)
	return nil
}

func (s *Store) readDisk(key string) (*index.Snapshot, bool) {
	var ds index.Dataset
	if !s.disk.GetData(key, &ds) {
		return nil, false
	}
	encoded, ok := s.disk.GetBinary(key)
	if !ok {
		return nil, false
	}
	derived, err := index.DecodeDerived(encoded)
	if err != nil {
		s.logger.Warn("discarding undecodable derived indexes",
			slog.String("source", key),
			slog.Any("error", err))
		return nil, false
	}
	return &index.Snapshot{Dataset: &ds, Derived: derived}, true
}
