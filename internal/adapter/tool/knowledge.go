package tool

import (
	"context"

	"parley/internal/domain"
)

// KnowledgeTool searches the knowledge base.
type KnowledgeTool struct {
	store domain.KnowledgeStore
	limit int
}

// NewKnowledgeTool creates a knowledge search tool.
func NewKnowledgeTool(store domain.KnowledgeStore, limit int) *KnowledgeTool {
	if limit <= 0 {
		limit = 3
	}
	return &KnowledgeTool{store: store, limit: limit}
}

func (t *KnowledgeTool) Name() string { return "knowledge" }
func (t *KnowledgeTool) Description() string {
	return "Search the knowledge base for documents related to the query."
}

// Execute implements domain.Tool.
func (t *KnowledgeTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}

	formatted, err := t.store.SearchFormatted(ctx, query, t.limit)
	if err != nil {
		return nil, domain.WrapOp("KnowledgeTool.Execute", err)
	}
	return map[string]any{"content": formatted}, nil
}

// Compile-time interface check.
var _ domain.Tool = (*KnowledgeTool)(nil)
