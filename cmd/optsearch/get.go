package main

import (
	"fmt"

	"github.com/fwojciec/optsearch"
)

// Run executes the get command. A miss prints close-name suggestions
// instead of a bare error.
func (c *GetCmd) Run(deps *Dependencies) error {
	opt, err := deps.Service.FindOption(deps.Ctx, c.From, c.Name)
	if optsearch.ErrorCode(err) == optsearch.ENOTFOUND {
		fmt.Fprintf(deps.Stdout, "Option %q not found.\n", c.Name)
		suggestions, serr := deps.Service.Suggest(deps.Ctx, c.From, c.Name, 5)
		if serr == nil && len(suggestions) > 0 {
			fmt.Fprintln(deps.Stdout, "Did you mean:")
			for _, name := range suggestions {
				fmt.Fprintf(deps.Stdout, "  %s\n", name)
			}
		}
		return err
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", optsearch.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, opt.Name)
	if opt.Description != "" {
		fmt.Fprintf(deps.Stdout, "  %s\n", opt.Description)
	}
	printField(deps, "Type", opt.Type)
	printField(deps, "Default", opt.Default)
	printField(deps, "Example", opt.Example)
	printField(deps, "Declared by", opt.DeclaredBy)
	return nil
}

func printField(deps *Dependencies, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(deps.Stdout, "  %s: %s\n", label, value)
}
