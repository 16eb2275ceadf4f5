package domain

import "context"

// NoRelevantInformation is the sentinel a formatted knowledge lookup returns
// when nothing in the store is relevant. It distinguishes "searched and
// found nothing" from "found something" and drives the query-branch
// web-search fallback.
const NoRelevantInformation = "未找到相关信息"

// KnowledgeResult is one ranked document from a knowledge search.
type KnowledgeResult struct {
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// KnowledgeStore is the retrieval-augmented knowledge base contract.
type KnowledgeStore interface {
	Add(ctx context.Context, content, source string) (int, error)
	AddFile(ctx context.Context, path string) (int, error)
	Search(ctx context.Context, query string, limit int) ([]KnowledgeResult, error)
	// SearchFormatted renders search hits as a prompt-ready block, or the
	// NoRelevantInformation sentinel when nothing clears the relevance bar.
	SearchFormatted(ctx context.Context, query string, limit int) (string, error)
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher is the web search contract.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}
