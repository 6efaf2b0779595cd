package tools

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/agentfs/agentfs/internal/search"
	"github.com/agentfs/agentfs/internal/types"
)

// SearchProvider exposes the content-search tool.
type SearchProvider struct {
	engine *search.Engine
}

// NewSearchProvider creates the search tool provider.
func NewSearchProvider(engine *search.Engine) *SearchProvider {
	return &SearchProvider{engine: engine}
}

// Tools returns the search tool definitions.
func (p *SearchProvider) Tools() []types.Tool {
	return []types.Tool{
		{
			Name:        "grep",
			Description: "Search file content with a regular expression",
			Parameters: []types.Parameter{
				{Name: "pattern", Type: "string", Description: "RE2 regular expression", Required: true},
				{Name: "glob", Type: "string", Description: "Restrict search to files matching this glob"},
				{Name: "ignore_case", Type: "boolean", Description: "Case-insensitive matching"},
				{Name: "max_results", Type: "number", Description: "Stop after this many matches"},
				{Name: "context_lines", Type: "number", Description: "Lines of context around each match"},
			},
			Hints:   types.Hints{ReadOnly: true, Idempotent: true},
			Handler: p.grep,
		},
	}
}

func (p *SearchProvider) grep(ctx context.Context, args map[string]any) (*types.Result, error) {
	matches, err := p.engine.Grep(ctx, argString(args, "pattern"), search.Options{
		Glob:         argString(args, "glob"),
		IgnoreCase:   argBool(args, "ignore_case"),
		MaxResults:   argInt(args, "max_results"),
		ContextLines: argInt(args, "context_lines"),
	})
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []search.Match{}
	}

	payload, err := sonic.MarshalString(matches)
	if err != nil {
		return nil, err
	}
	return types.TextResult(payload), nil
}
