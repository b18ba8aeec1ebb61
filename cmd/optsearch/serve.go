package main

import (
	"github.com/fwojciec/optsearch/mcp"
)

// Run executes the serve command: the MCP tool server on stdio until
// the client disconnects or the process is signalled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	server := mcp.NewServer(deps.Service,
		mcp.WithServerInfo("optsearch", deps.Version))
	return server.Run(deps.Ctx)
}
