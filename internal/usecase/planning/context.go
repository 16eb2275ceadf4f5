package planning

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"parley/internal/domain"
)

// contextSchema constrains the context extraction output.
var contextSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"key_topics": {"type": "array", "items": {"type": "string"}},
		"mentioned_entities": {"type": "array", "items": {"type": "string"}},
		"user_preferences": {"type": "object"},
		"context_summary": {"type": "string"}
	},
	"required": ["context_summary"]
}`)

type contextResult struct {
	KeyTopics         []string       `json:"key_topics"`
	MentionedEntities []string       `json:"mentioned_entities"`
	UserPreferences   map[string]any `json:"user_preferences"`
	ContextSummary    string         `json:"context_summary"`
}

// ContextExtractor derives a compact context summary from recent turns.
type ContextExtractor struct {
	provider  domain.LLMProvider
	logger    *slog.Logger
	window    int
	maxTokens int
	encoder   *tiktoken.Tiktoken
}

// NewContextExtractor creates an extractor that looks at the last window
// messages and trims its prompt to maxTokens. The tokenizer is best-effort;
// when the encoding is unavailable a character heuristic is used instead.
func NewContextExtractor(provider domain.LLMProvider, window, maxTokens int, logger *slog.Logger) *ContextExtractor {
	if window <= 0 {
		window = 10
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tokenizer unavailable, using character heuristic", "error", err)
		enc = nil
	}
	return &ContextExtractor{
		provider:  provider,
		logger:    logger,
		window:    window,
		maxTokens: maxTokens,
		encoder:   enc,
	}
}

// Extract returns {key_topics, mentioned_entities, user_preferences,
// context_summary} derived from the latest message plus recent history.
// Any failure yields an empty map so the turn proceeds without context.
func (e *ContextExtractor) Extract(ctx context.Context, state *domain.AgentState) map[string]any {
	recent := state.RecentMessages(e.window)
	if len(recent) == 0 {
		return map[string]any{}
	}

	history := e.renderHistory(recent)

	req := domain.GenerateRequest{
		SystemPrompt: "从对话中提取关键信息：主题、实体、用户偏好和一句话摘要。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: history},
		},
		Temperature: 0.2,
	}

	var result contextResult
	if err := e.provider.GenerateStructured(ctx, req, contextSchema, &result); err != nil {
		e.logger.Debug("context extraction failed, leaving context empty",
			"error", err,
		)
		return map[string]any{}
	}

	return map[string]any{
		"key_topics":         result.KeyTopics,
		"mentioned_entities": result.MentionedEntities,
		"user_preferences":   result.UserPreferences,
		"context_summary":    result.ContextSummary,
	}
}

// renderHistory formats messages oldest-first, dropping the oldest lines
// until the block fits the token budget.
func (e *ContextExtractor) renderHistory(msgs []domain.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Type)+": "+m.Content)
	}

	for len(lines) > 1 {
		block := strings.Join(lines, "\n")
		if e.countTokens(block) <= e.maxTokens {
			return block
		}
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func (e *ContextExtractor) countTokens(s string) int {
	if e.encoder != nil {
		return len(e.encoder.Encode(s, nil, nil))
	}
	// Rough heuristic: one token per 3 runes covers CJK-heavy text.
	return len([]rune(s)) / 3
}
