package mock

import (
	"context"

	"github.com/fwojciec/optsearch"
)

var _ optsearch.OptionService = (*OptionService)(nil)

// OptionService is a mock implementation of optsearch.OptionService.
type OptionService struct {
	SearchOptionsFn func(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error)
	FindOptionFn    func(ctx context.Context, source, name string) (*optsearch.Option, error)
	SuggestFn       func(ctx context.Context, source, name string, limit int) ([]string, error)
	ListOptionsFn   func(ctx context.Context, source, prefix string) ([]*optsearch.Option, error)
	ChildSegmentsFn func(ctx context.Context, source, parent string) ([]string, error)
	SourceStatsFn   func(ctx context.Context, source string) (*optsearch.SourceStats, error)
	RefreshFn       func(ctx context.Context, source string) error
}

func (s *OptionService) SearchOptions(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error) {
	return s.SearchOptionsFn(ctx, source, query, limit)
}

func (s *OptionService) FindOption(ctx context.Context, source, name string) (*optsearch.Option, error) {
	return s.FindOptionFn(ctx, source, name)
}

func (s *OptionService) Suggest(ctx context.Context, source, name string, limit int) ([]string, error) {
	return s.SuggestFn(ctx, source, name, limit)
}

func (s *OptionService) ListOptions(ctx context.Context, source, prefix string) ([]*optsearch.Option, error) {
	return s.ListOptionsFn(ctx, source, prefix)
}

func (s *OptionService) ChildSegments(ctx context.Context, source, parent string) ([]string, error) {
	return s.ChildSegmentsFn(ctx, source, parent)
}

func (s *OptionService) SourceStats(ctx context.Context, source string) (*optsearch.SourceStats, error) {
	return s.SourceStatsFn(ctx, source)
}

func (s *OptionService) Refresh(ctx context.Context, source string) error {
	return s.RefreshFn(ctx, source)
}
