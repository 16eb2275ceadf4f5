package tool

import (
	"context"

	"parley/internal/domain"
)

// WebSearchTool runs a web search through the configured backend.
type WebSearchTool struct {
	searcher   domain.WebSearcher
	maxResults int
}

// NewWebSearchTool creates a web search tool.
func NewWebSearchTool(searcher domain.WebSearcher, maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearchTool{searcher: searcher, maxResults: maxResults}
}

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Description() string {
	return "Search the web for current information."
}

// Execute implements domain.Tool.
func (t *WebSearchTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}

	results, err := t.searcher.Search(ctx, query, t.maxResults)
	if err != nil {
		return nil, domain.WrapOp("WebSearchTool.Execute", err)
	}

	items := make([]map[string]any, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		})
	}
	return map[string]any{"results": items, "count": len(items)}, nil
}

// Compile-time interface check.
var _ domain.Tool = (*WebSearchTool)(nil)
