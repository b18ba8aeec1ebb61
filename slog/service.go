// Package slog provides logging decorators for optsearch services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/optsearch"
)

// Ensure LoggingService implements optsearch.OptionService.
var _ optsearch.OptionService = (*LoggingService)(nil)

// LoggingService wraps an OptionService with per-operation logging:
// queries at debug level with timing and result counts, failures at
// warn level with the application error code.
type LoggingService struct {
	next   optsearch.OptionService
	logger *slog.Logger
}

// NewLoggingService creates a new LoggingService.
func NewLoggingService(next optsearch.OptionService, logger *slog.Logger) *LoggingService {
	return &LoggingService{next: next, logger: logger}
}

func (s *LoggingService) SearchOptions(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error) {
	begin := time.Now()
	results, err := s.next.SearchOptions(ctx, source, query, limit)
	s.log(ctx, "search options", err,
		slog.String("source", source),
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(begin)),
	)
	return results, err
}

func (s *LoggingService) FindOption(ctx context.Context, source, name string) (*optsearch.Option, error) {
	begin := time.Now()
	opt, err := s.next.FindOption(ctx, source, name)
	s.log(ctx, "find option", err,
		slog.String("source", source),
		slog.String("name", name),
		slog.Duration("duration", time.Since(begin)),
	)
	return opt, err
}

func (s *LoggingService) Suggest(ctx context.Context, source, name string, limit int) ([]string, error) {
	begin := time.Now()
	suggestions, err := s.next.Suggest(ctx, source, name, limit)
	s.log(ctx, "suggest options", err,
		slog.String("source", source),
		slog.String("name", name),
		slog.Int("suggestions", len(suggestions)),
		slog.Duration("duration", time.Since(begin)),
	)
	return suggestions, err
}

func (s *LoggingService) ListOptions(ctx context.Context, source, prefix string) ([]*optsearch.Option, error) {
	begin := time.Now()
	opts, err := s.next.ListOptions(ctx, source, prefix)
	s.log(ctx, "list options", err,
		slog.String("source", source),
		slog.String("prefix", prefix),
		slog.Int("options", len(opts)),
		slog.Duration("duration", time.Since(begin)),
	)
	return opts, err
}

func (s *LoggingService) ChildSegments(ctx context.Context, source, parent string) ([]string, error) {
	segments, err := s.next.ChildSegments(ctx, source, parent)
	s.log(ctx, "child segments", err,
		slog.String("source", source),
		slog.String("parent", parent),
		slog.Int("segments", len(segments)),
	)
	return segments, err
}

func (s *LoggingService) SourceStats(ctx context.Context, source string) (*optsearch.SourceStats, error) {
	stats, err := s.next.SourceStats(ctx, source)
	s.log(ctx, "source stats", err, slog.String("source", source))
	return stats, err
}

func (s *LoggingService) Refresh(ctx context.Context, source string) error {
	begin := time.Now()
	err := s.next.Refresh(ctx, source)
	s.log(ctx, "refresh source", err,
		slog.String("source", source),
		slog.Duration("duration", time.Since(begin)),
	)
	return err
}

func (s *LoggingService) log(ctx context.Context, msg string, err error, attrs ...any) {
	if err != nil {
		attrs = append(attrs, slog.String("code", optsearch.ErrorCode(err)), slog.Any("error", err))
		s.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	s.logger.DebugContext(ctx, msg, attrs...)
}
