// Package specialist holds the built-in capability handlers dispatched by
// the coordinator.
package specialist

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"parley/internal/domain"
)

// travelKeywords are the capability probe for travel tasks.
var travelKeywords = []string{"旅行", "旅游", "出行", "度假", "travel"}

// travelInfoSchema shapes the structured itinerary extraction.
var travelInfoSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"destination": {"type": "string"},
		"duration": {"type": "string"},
		"highlights": {"type": "array", "items": {"type": "string"}},
		"budget_hint": {"type": "string"}
	},
	"required": ["destination"]
}`)

type travelInfo struct {
	Destination string   `json:"destination"`
	Duration    string   `json:"duration,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	BudgetHint  string   `json:"budget_hint,omitempty"`
}

// Travel plans trips. It volunteers for any task whose name or description
// mentions travel.
type Travel struct {
	provider domain.LLMProvider
	logger   *slog.Logger
}

// NewTravel creates the travel specialist.
func NewTravel(provider domain.LLMProvider, logger *slog.Logger) *Travel {
	return &Travel{provider: provider, logger: logger}
}

// Name implements domain.Specialist.
func (s *Travel) Name() string { return "travel" }

// CanHandle implements domain.Specialist.
func (s *Travel) CanHandle(task *domain.Task) bool {
	return matchesAny(task, travelKeywords)
}

// Process generates a travel plan for the current task. The structured
// itinerary extraction is best-effort: when it fails, the plan text still
// goes out without the travel_info detail.
func (s *Travel) Process(ctx context.Context, state *domain.AgentState) (*domain.AgentResponse, error) {
	request := taskText(state)

	plan, err := s.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "你是一位旅行规划助手。根据用户的需求给出具体、可执行的行程安排，包含交通、住宿和景点建议。",
		Messages:     []domain.ChatMessage{{Role: domain.RoleUser, Content: request}},
		Temperature:  0.7,
	})
	if err != nil {
		return nil, domain.WrapOp("Travel.Process", err)
	}

	metadata := map[string]any{"agent_type": "travel"}

	var info travelInfo
	extractErr := s.provider.GenerateStructured(ctx, domain.GenerateRequest{
		SystemPrompt: "从旅行需求和行程中提取关键信息。",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "需求: " + request + "\n\n行程: " + plan},
		},
	}, travelInfoSchema, &info)
	if extractErr != nil {
		s.logger.Debug("travel info extraction failed", "error", extractErr)
		metadata["travel_info"] = map[string]any{"destination": ""}
	} else {
		metadata["travel_info"] = info
	}

	return &domain.AgentResponse{
		Content:    plan,
		Confidence: 0.8,
		Metadata:   metadata,
	}, nil
}

// matchesAny reports whether the task's name or description contains any of
// the keywords.
func matchesAny(task *domain.Task, keywords []string) bool {
	if task == nil {
		return false
	}
	text := strings.ToLower(task.Name + " " + task.Description)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// taskText returns the best available description of what to do: the
// current task if set, otherwise the last user message.
func taskText(state *domain.AgentState) string {
	if state.CurrentTask != nil {
		if state.CurrentTask.Description != "" {
			return state.CurrentTask.Description
		}
		return state.CurrentTask.Name
	}
	if msg := state.LastUserMessage(); msg != nil {
		return msg.Content
	}
	return ""
}

// Compile-time interface check.
var _ domain.Specialist = (*Travel)(nil)
