package domain

import (
	"context"
	"encoding/json"
)

// Role constants for chat messages sent to an LLM provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message in an LLM prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest carries one LLM call's inputs.
type GenerateRequest struct {
	Messages     []ChatMessage
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// LLMProvider is the transport contract for language model calls.
// Generate returns plain text. GenerateStructured decodes the model output
// into out after validating it against schema (a JSON Schema document);
// shape mismatches surface as ErrParse so callers can fall back to
// documented defaults, transport faults surface as ErrTransport.
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateStructured(ctx context.Context, req GenerateRequest, schema json.RawMessage, out any) error
}
