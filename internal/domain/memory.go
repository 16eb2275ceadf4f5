package domain

import "context"

// MemoryRecord is one ranked result from a memory search.
type MemoryRecord struct {
	Key      string         `json:"key"`
	Value    string         `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// MemoryStore is durable per-conversation storage. Implementations must be
// safe for concurrent access across distinct keys; writes are keyed by
// conversation id so independent turns never collide.
type MemoryStore interface {
	Store(ctx context.Context, key, value string, metadata map[string]any) error
	// Retrieve returns ErrNotFound when the key is absent.
	Retrieve(ctx context.Context, key string) (string, error)
	Search(ctx context.Context, query string, limit int) ([]MemoryRecord, error)
}

// ConversationKey is the memory key under which a conversation's message
// log is stored.
func ConversationKey(conversationID string) string {
	return "conversation:" + conversationID
}
