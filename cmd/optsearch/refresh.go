package main

import (
	"fmt"

	"github.com/fwojciec/optsearch"
)

// Run executes the refresh command.
func (c *RefreshCmd) Run(deps *Dependencies) error {
	if err := deps.Service.Refresh(deps.Ctx, c.From); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", optsearch.ErrorMessage(err))
		return err
	}
	fmt.Fprintln(deps.Stdout, "Refreshed.")
	return nil
}
