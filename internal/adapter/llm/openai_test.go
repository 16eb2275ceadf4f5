package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/domain"
	"parley/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func chatCompletion(content string) openaiResponse {
	return openaiResponse{
		ID:    "chatcmpl-123",
		Model: "gpt-4o-mini",
		Choices: []openaiChoice{
			{
				Index:        0,
				Message:      openaiMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18},
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system prompt first", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("你好！有什么可以帮你的？"))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{
		Name:    "test",
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}, newTestLogger())

	got, err := provider.Generate(context.Background(), domain.GenerateRequest{
		SystemPrompt: "你是一个友好的助手",
		Messages:     []domain.ChatMessage{{Role: domain.RoleUser, Content: "你好"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "你好！有什么可以帮你的？" {
		t.Errorf("content = %q", got)
	}
}

func TestOpenAIProviderGenerateStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fenced output must be accepted.
		json.NewEncoder(w).Encode(chatCompletion("```json\n{\"intent\": \"casual_chat\", \"confidence\": 0.9}\n```"))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"intent": {"type": "string"},
			"confidence": {"type": "number"}
		},
		"required": ["intent", "confidence"]
	}`)

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	err := provider.GenerateStructured(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}, schema, &out)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if out.Intent != "casual_chat" || out.Confidence != 0.9 {
		t.Errorf("out = %+v", out)
	}
}

func TestOpenAIProviderGenerateStructuredRepairsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Trailing comma: invalid JSON that the repair pass must fix.
		json.NewEncoder(w).Encode(chatCompletion(`{"complexity": "medium",}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	var out struct {
		Complexity string `json:"complexity"`
	}
	err := provider.GenerateStructured(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "classify"}},
	}, json.RawMessage(`{"type": "object"}`), &out)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if out.Complexity != "medium" {
		t.Errorf("complexity = %q", out.Complexity)
	}
}

func TestOpenAIProviderGenerateStructuredSchemaMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletion(`{"intent": 42}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"intent": {"type": "string"}},
		"required": ["intent"]
	}`)

	var out struct {
		Intent string `json:"intent"`
	}
	err := provider.GenerateStructured(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}, schema, &out)
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestOpenAIProviderRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	_, err := provider.Generate(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrRateLimit) {
		t.Errorf("err = %v, want ErrRateLimit", err)
	}
}

func TestOpenAIProviderAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	_, err := provider.Generate(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrAuthInvalid) {
		t.Errorf("err = %v, want ErrAuthInvalid", err)
	}
}

func TestOpenAIProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())

	_, err := provider.Generate(context.Background(), domain.GenerateRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}
