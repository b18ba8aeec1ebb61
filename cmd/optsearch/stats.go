package main

import (
	"fmt"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Service.SourceStats(deps.Ctx, c.From)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "source:   %s\n", stats.Source)
	fmt.Fprintf(deps.Stdout, "state:    %s\n", stats.State)
	if stats.LoadError != "" {
		fmt.Fprintf(deps.Stdout, "error:    %s\n", stats.LoadError)
	}
	if !stats.LoadedAt.IsZero() {
		fmt.Fprintf(deps.Stdout, "loaded:   %s\n", stats.LoadedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(deps.Stdout, "options:  %d\n", stats.Options)
	fmt.Fprintf(deps.Stdout, "words:    %d\n", stats.Words)
	fmt.Fprintf(deps.Stdout, "prefixes: %d\n", stats.Prefixes)
	fmt.Fprintf(deps.Stdout, "cache:    %d entries, %d bytes, %d hits, %d misses, %d errors\n",
		stats.Cache.Entries, stats.Cache.TotalBytes, stats.Cache.Hits, stats.Cache.Misses, stats.Cache.Errors)
	return nil
}
