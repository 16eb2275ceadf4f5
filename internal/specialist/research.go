package specialist

import (
	"context"
	"log/slog"
	"strings"

	"parley/internal/domain"
)

// researchKeywords are the capability probe for research tasks.
var researchKeywords = []string{"调研", "研究", "分析", "research"}

// Research handles investigation tasks, grounding its answer in knowledge
// base hits when any are relevant.
type Research struct {
	provider  domain.LLMProvider
	knowledge domain.KnowledgeStore
	logger    *slog.Logger
}

// NewResearch creates the research specialist. knowledge may be nil.
func NewResearch(provider domain.LLMProvider, knowledge domain.KnowledgeStore, logger *slog.Logger) *Research {
	return &Research{provider: provider, knowledge: knowledge, logger: logger}
}

// Name implements domain.Specialist.
func (s *Research) Name() string { return "research" }

// CanHandle implements domain.Specialist.
func (s *Research) CanHandle(task *domain.Task) bool {
	return matchesAny(task, researchKeywords)
}

// Process implements domain.Specialist.
func (s *Research) Process(ctx context.Context, state *domain.AgentState) (*domain.AgentResponse, error) {
	request := taskText(state)

	var background string
	if s.knowledge != nil {
		hits, err := s.knowledge.SearchFormatted(ctx, request, 3)
		if err != nil {
			s.logger.Debug("research knowledge lookup failed", "error", err)
		} else if !strings.HasPrefix(hits, domain.NoRelevantInformation) {
			background = hits
		}
	}

	prompt := request
	if background != "" {
		prompt = "背景资料:\n" + background + "\n\n任务: " + request
	}

	report, err := s.provider.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: "你是一位研究助手。针对任务给出结构化的调研结论，注明关键依据。",
		Messages:     []domain.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
		Temperature:  0.4,
	})
	if err != nil {
		return nil, domain.WrapOp("Research.Process", err)
	}

	return &domain.AgentResponse{
		Content:    report,
		Confidence: 0.8,
		Metadata: map[string]any{
			"agent_type":     "research",
			"used_knowledge": background != "",
		},
	}, nil
}

// Compile-time interface check.
var _ domain.Specialist = (*Research)(nil)
