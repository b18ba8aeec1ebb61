package docstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/index"
	"github.com/fwojciec/optsearch/memcache"
	"golang.org/x/sync/errgroup"
)

var _ optsearch.OptionService = (*Service)(nil)

// Service fronts a set of per-source stores with the OptionService
// interface. The first configured source is the default, used when a
// caller passes an empty source name.
type Service struct {
	stores  map[string]*Store
	order   []string
	fetcher optsearch.Fetcher
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger, propagated to every store.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates stores for the given sources. All stores share
// one bounded snapshot cache; each gets its own disk cache directory.
func NewService(cfg optsearch.Config, sources []optsearch.Source, fetcher optsearch.Fetcher, parser optsearch.Parser, opts ...ServiceOption) (*Service, error) {
	if len(sources) == 0 {
		return nil, optsearch.Errorf(optsearch.EINVALID, "at least one source required")
	}

	s := &Service{
		stores:  make(map[string]*Store, len(sources)),
		fetcher: fetcher,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	mem := memcache.New[*index.Snapshot](cfg.MaxMemoryEntries, cfg.TTL)
	for _, src := range sources {
		if _, ok := s.stores[src.Name]; ok {
			return nil, optsearch.Errorf(optsearch.EINVALID, "duplicate source %q", src.Name)
		}
		store, err := NewStore(src, cfg, fetcher, parser,
			WithStoreLogger(s.logger),
			WithMemoryCache(mem),
		)
		if err != nil {
			return nil, err
		}
		s.stores[src.Name] = store
		s.order = append(s.order, src.Name)
	}
	return s, nil
}

// EnsureAll loads every source concurrently and returns the first
// failure. Sources that loaded stay loaded even when a sibling fails.
func (s *Service) EnsureAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range s.order {
		store := s.stores[name]
		g.Go(func() error {
			return store.EnsureLoaded(ctx, false)
		})
	}
	return g.Wait()
}

// shutdownWait bounds how long Close waits for in-flight loads.
const shutdownWait = 2 * time.Second

// Close waits briefly for in-flight loads, then releases fetcher
// resources. Loads still running after the wait are abandoned; they
// hold no resources beyond the fetcher's.
func (s *Service) Close() error {
	done := make(chan struct{})
	go func() {
		for _, store := range s.stores {
			store.wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWait):
	}
	return s.fetcher.Close()
}

func (s *Service) SearchOptions(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.Search(query, limit)
}

func (s *Service) FindOption(ctx context.Context, source, name string) (*optsearch.Option, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.Find(name)
}

func (s *Service) Suggest(ctx context.Context, source, name string, limit int) ([]string, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.Suggest(name, limit)
}

func (s *Service) ListOptions(ctx context.Context, source, prefix string) ([]*optsearch.Option, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.List(prefix)
}

func (s *Service) ChildSegments(ctx context.Context, source, parent string) ([]string, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.Children(parent)
}

func (s *Service) SourceStats(ctx context.Context, source string) (*optsearch.SourceStats, error) {
	store, err := s.store(source)
	if err != nil {
		return nil, err
	}
	return store.Stats(), nil
}

func (s *Service) Refresh(ctx context.Context, source string) error {
	store, err := s.store(source)
	if err != nil {
		return err
	}
	return store.EnsureLoaded(ctx, true)
}

// Sources lists the configured source names, default first.
func (s *Service) Sources() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Service) store(name string) (*Store, error) {
	if name == "" {
		name = s.order[0]
	}
	store, ok := s.stores[name]
	if !ok {
		return nil, optsearch.Errorf(optsearch.ENOTFOUND, "unknown source %q", name)
	}
	return store, nil
}
