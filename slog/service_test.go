package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/mock"
	optslog "github.com/fwojciec/optsearch/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingService_SearchOptions(t *testing.T) {
	t.Parallel()

	t.Run("logs query with result count and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.OptionService{
			SearchOptionsFn: func(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error) {
				return []optsearch.SearchResult{
					{Option: &optsearch.Option{Name: "services.nginx.enable"}, Score: 100},
				}, nil
			},
		}

		svc := optslog.NewLoggingService(inner, logger)
		results, err := svc.SearchOptions(context.Background(), "stable", "nginx", 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)

		output := buf.String()
		assert.Contains(t, output, "search options")
		assert.Contains(t, output, "query=nginx")
		assert.Contains(t, output, "results=1")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs failures at warn level with error code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.OptionService{
			SearchOptionsFn: func(ctx context.Context, source, query string, limit int) ([]optsearch.SearchResult, error) {
				return nil, optsearch.Errorf(optsearch.ENOTREADY, "source is still loading")
			},
		}

		svc := optslog.NewLoggingService(inner, logger)
		_, err := svc.SearchOptions(context.Background(), "stable", "nginx", 10)
		require.Error(t, err)

		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, "code=not_ready")
	})
}

func TestLoggingService_Refresh(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	inner := &mock.OptionService{
		RefreshFn: func(ctx context.Context, source string) error {
			return nil
		},
	}

	svc := optslog.NewLoggingService(inner, logger)
	require.NoError(t, svc.Refresh(context.Background(), "unstable"))

	output := buf.String()
	assert.Contains(t, output, "refresh source")
	assert.Contains(t, output, "source=unstable")
}
