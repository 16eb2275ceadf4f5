// Package tool adapts storage, knowledge, web search, and MCP servers to the
// augmentation tool contract.
package tool

import (
	"context"
	"fmt"

	"parley/internal/domain"
)

// MemoryTool searches conversation memory for records related to the query.
type MemoryTool struct {
	store domain.MemoryStore
	limit int
}

// NewMemoryTool creates a memory search tool.
func NewMemoryTool(store domain.MemoryStore, limit int) *MemoryTool {
	if limit <= 0 {
		limit = 5
	}
	return &MemoryTool{store: store, limit: limit}
}

func (t *MemoryTool) Name() string { return "memory" }
func (t *MemoryTool) Description() string {
	return "Search stored conversation memory for records related to the query."
}

// Execute implements domain.Tool.
func (t *MemoryTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}

	records, err := t.store.Search(ctx, query, t.limit)
	if err != nil {
		return nil, domain.WrapOp("MemoryTool.Execute", err)
	}

	items := make([]map[string]any, 0, len(records))
	for _, r := range records {
		items = append(items, map[string]any{
			"key":   r.Key,
			"value": r.Value,
			"score": r.Score,
		})
	}
	return map[string]any{"records": items, "count": len(items)}, nil
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", domain.NewDomainError("tool.stringParam", domain.ErrInvalidInput,
			fmt.Sprintf("missing required parameter %q", name))
	}
	return v, nil
}

// Compile-time interface check.
var _ domain.Tool = (*MemoryTool)(nil)
