package main

import (
	"fmt"

	"github.com/fwojciec/optsearch"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	results, err := deps.Service.SearchOptions(deps.Ctx, c.From, c.Query, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", optsearch.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No options matched.")
		return nil
	}

	for _, res := range results {
		if c.Scores {
			fmt.Fprintf(deps.Stdout, "%3d  %s\n", res.Score, res.Option.Name)
		} else {
			fmt.Fprintln(deps.Stdout, res.Option.Name)
		}
		if res.Option.Description != "" {
			fmt.Fprintf(deps.Stdout, "     %s\n", truncate(res.Option.Description, 120))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
