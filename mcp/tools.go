package mcp

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/optsearch"
)

// toolDef describes one tool for tools/list.
type toolDef struct {
	name        string
	description string
	schema      map[string]any
}

// sourceProp is the schema fragment shared by every tool: all of them
// address a source, defaulting to the first configured one.
var sourceProp = map[string]any{
	"type":        "string",
	"description": "Documentation source name; omit for the default source.",
}

var toolDefs = []toolDef{
	{
		name:        "search_options",
		description: "Search configuration options by name, path, word, or quoted phrase.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": sourceProp,
				"query":  map[string]any{"type": "string", "description": "Search query."},
				"limit":  map[string]any{"type": "integer", "description": "Maximum results to return."},
			},
			"required": []string{"query"},
		},
	},
	{
		name:        "get_option",
		description: "Get one option by exact name, with close-name suggestions when absent.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": sourceProp,
				"name":   map[string]any{"type": "string", "description": "Exact option name."},
			},
			"required": []string{"name"},
		},
	},
	{
		name:        "list_options",
		description: "List all options at or below a dotted prefix.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": sourceProp,
				"prefix": map[string]any{"type": "string", "description": "Dotted prefix; empty lists everything."},
			},
		},
	},
	{
		name:        "source_stats",
		description: "Report load state and index/cache statistics for a source.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": sourceProp,
			},
		},
	},
	{
		name:        "refresh",
		description: "Invalidate a source's caches and reload it from the original manual.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": sourceProp,
			},
		},
	},
}

type toolHandler func(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error)

var toolHandlers = map[string]toolHandler{
	"search_options": handleSearch,
	"get_option":     handleGet,
	"list_options":   handleList,
	"source_stats":   handleStats,
	"refresh":        handleRefresh,
}

// notReadyResult is returned in place of data when a store is still
// indexing or failed its last load, so clients see structure instead
// of an opaque error.
func notReadyResult(err error) any {
	return map[string]any{
		"notReady": true,
		"loading":  optsearch.ErrorCode(err) == optsearch.ENOTREADY,
		"message":  optsearch.ErrorMessage(err),
	}
}

func notReady(err error) bool {
	code := optsearch.ErrorCode(err)
	return code == optsearch.ENOTREADY || code == optsearch.EUNAVAILABLE
}

func handleSearch(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error) {
	var params struct {
		Source string `json:"source"`
		Query  string `json:"query"`
		Limit  int    `json:"limit"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}

	results, err := svc.SearchOptions(ctx, params.Source, params.Query, params.Limit)
	if notReady(err) {
		return notReadyResult(err), nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"count":   len(results),
		"results": results,
	}, nil
}

func handleGet(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error) {
	var params struct {
		Source string `json:"source"`
		Name   string `json:"name"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, optsearch.Errorf(optsearch.EINVALID, "option name required")
	}

	opt, err := svc.FindOption(ctx, params.Source, params.Name)
	if notReady(err) {
		return notReadyResult(err), nil
	}
	if optsearch.ErrorCode(err) == optsearch.ENOTFOUND {
		suggestions, serr := svc.Suggest(ctx, params.Source, params.Name, 5)
		if serr != nil {
			suggestions = nil
		}
		return map[string]any{
			"found":       false,
			"name":        params.Name,
			"suggestions": suggestions,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"found":  true,
		"option": opt,
	}, nil
}

func handleList(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error) {
	var params struct {
		Source string `json:"source"`
		Prefix string `json:"prefix"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}

	opts, err := svc.ListOptions(ctx, params.Source, params.Prefix)
	if notReady(err) {
		return notReadyResult(err), nil
	}
	if err != nil {
		return nil, err
	}
	children, err := svc.ChildSegments(ctx, params.Source, params.Prefix)
	if err != nil {
		children = nil
	}
	return map[string]any{
		"count":    len(opts),
		"options":  opts,
		"children": children,
	}, nil
}

func handleStats(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error) {
	var params struct {
		Source string `json:"source"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	return svc.SourceStats(ctx, params.Source)
}

func handleRefresh(ctx context.Context, svc optsearch.OptionService, args json.RawMessage) (any, error) {
	var params struct {
		Source string `json:"source"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if err := svc.Refresh(ctx, params.Source); err != nil {
		return nil, err
	}
	return map[string]any{"refreshed": true}, nil
}

func unmarshalArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, out); err != nil {
		return optsearch.Errorf(optsearch.EINVALID, "invalid tool arguments: %s", err)
	}
	return nil
}
