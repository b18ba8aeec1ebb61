package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/docstore"
	"github.com/fwojciec/optsearch/goquery"
	optsearchhttp "github.com/fwojciec/optsearch/http"
	optsearchslog "github.com/fwojciec/optsearch/slog"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	defer m.Close()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Store backs the option service; exposed for end-to-end tests.
	Store *docstore.Service
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Store != nil {
		return m.Store.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:     ctx,
		Stdout:  stdout,
		Stderr:  stderr,
		Version: Version,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("optsearch"),
		kong.Description("Search configuration option documentation."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'optsearch --help' to see available commands")
	}
	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	if cli.Verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	sources, err := parseSources(cli.Source)
	if err != nil {
		return err
	}

	cfg := optsearch.DefaultConfig()
	cfg.TTL = cli.TTL
	cfg.CacheDir = cli.CacheDir
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}

	fetcher := optsearchhttp.NewFetcher(
		optsearchhttp.WithUserAgent("optsearch/"+Version),
		optsearchhttp.WithLogger(logger),
	)
	m.Store, err = docstore.NewService(cfg, sources, fetcher, goquery.NewParser(),
		docstore.WithLogger(logger))
	if err != nil {
		return err
	}
	deps.Service = optsearchslog.NewLoggingService(m.Store, logger)

	// One-shot query commands block on a full load up front; serve
	// warms up in the background, and refresh forces its own load.
	switch cmd {
	case "serve":
		go func() {
			if err := m.Store.EnsureAll(ctx); err != nil {
				logger.Warn("initial load failed", slog.Any("error", err))
			}
		}()
	case "refresh":
	default:
		if err := m.Store.EnsureAll(ctx); err != nil {
			return fmt.Errorf("load sources: %w", err)
		}
	}

	return kongCtx.Run(deps)
}

// defaultSources is used when no --source flags are given.
func defaultSources() []optsearch.Source {
	return []optsearch.Source{
		{Name: "nixos", URL: "https://nixos.org/manual/nixos/stable/options"},
	}
}

// parseSources converts repeated name=url flags into sources.
func parseSources(flags []string) ([]optsearch.Source, error) {
	if len(flags) == 0 {
		return defaultSources(), nil
	}
	sources := make([]optsearch.Source, 0, len(flags))
	for _, flag := range flags {
		name, url, ok := strings.Cut(flag, "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid source %q, want name=url", flag)
		}
		sources = append(sources, optsearch.Source{Name: name, URL: url})
	}
	return sources, nil
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".optsearch-cache"
	}
	return filepath.Join(base, "optsearch")
}
