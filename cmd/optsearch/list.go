package main

import (
	"fmt"

	"github.com/fwojciec/optsearch"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	opts, err := deps.Service.ListOptions(deps.Ctx, c.From, c.Prefix)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", optsearch.ErrorMessage(err))
		return err
	}

	if len(opts) == 0 {
		fmt.Fprintf(deps.Stdout, "No options under %q.\n", c.Prefix)
		return nil
	}
	for _, opt := range opts {
		fmt.Fprintln(deps.Stdout, opt.Name)
	}
	return nil
}
