package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/optsearch"
)

// Dependencies holds the services and streams commands execute
// against.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Service optsearch.OptionService

	// Version is reported by the MCP server to clients.
	Version string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	CacheDir string        `help:"Cache directory (default: per-user cache dir)." env:"OPTSEARCH_CACHE_DIR"`
	TTL      time.Duration `default:"24h" help:"Cache entry lifetime."`
	Source   []string      `short:"s" help:"Documentation source as name=url (repeatable; first is the default source)."`
	Verbose  bool          `short:"v" help:"Enable debug logging to stderr."`

	Serve   ServeCmd   `cmd:"" help:"Serve the option tools over stdio"`
	Search  SearchCmd  `cmd:"" help:"Search options by name, path, word, or quoted phrase"`
	Get     GetCmd     `cmd:"" help:"Show one option by exact name"`
	List    ListCmd    `cmd:"" help:"List options under a dotted prefix"`
	Stats   StatsCmd   `cmd:"" help:"Show load state and cache statistics"`
	Refresh RefreshCmd `cmd:"" help:"Re-fetch and re-index a source"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct{}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query  string `arg:"" help:"Search query"`
	From   string `name:"from" help:"Source to search (default: first configured)"`
	Limit  int    `short:"n" default:"20" help:"Maximum results"`
	Scores bool   `help:"Show match scores"`
}

// GetCmd is the "get" subcommand.
type GetCmd struct {
	Name string `arg:"" help:"Exact option name"`
	From string `name:"from" help:"Source to query"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Prefix string `arg:"" optional:"" help:"Dotted prefix; empty lists everything"`
	From   string `name:"from" help:"Source to query"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	From string `name:"from" help:"Source to query"`
}

// RefreshCmd is the "refresh" subcommand.
type RefreshCmd struct {
	From string `name:"from" help:"Source to refresh"`
}
