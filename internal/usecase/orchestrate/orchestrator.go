package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"parley/internal/domain"
	"parley/internal/usecase/coordinate"
	"parley/internal/usecase/planning"
)

// TurnResult is the outcome of one processed user turn.
type TurnResult struct {
	Response       string            `json:"response"`
	Confidence     float64           `json:"confidence"`
	ToolCalls      []domain.ToolCall `json:"tool_calls"`
	NextAction     string            `json:"next_action,omitempty"`
	ConversationID string            `json:"conversation_id"`
	MessageID      string            `json:"message_id"`
}

// Orchestrator wraps one user turn in the fixed pipeline
// memory_check -> context_update -> coordinate -> persist.
type Orchestrator struct {
	engine    Engine
	memory    domain.MemoryStore
	knowledge domain.KnowledgeStore
	registry  *coordinate.Registry
	logger    *slog.Logger
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Responder Responder
	Extractor *planning.ContextExtractor
	Memory    domain.MemoryStore
	Knowledge domain.KnowledgeStore
	Registry  *coordinate.Registry
	// Checkpoints enables the checkpointed engine; when nil the
	// sequential engine is used.
	Checkpoints CheckpointStore
	Logger      *slog.Logger
}

// New builds the stage list and selects the execution engine. A nil
// checkpoint store falls back to the sequential engine.
func New(opts Options) *Orchestrator {
	stages := []Stage{
		&memoryCheckStage{memory: opts.Memory, logger: opts.Logger},
		&contextUpdateStage{extractor: opts.Extractor},
		&coordinateStage{responder: opts.Responder, logger: opts.Logger},
		&persistStage{memory: opts.Memory, logger: opts.Logger},
	}

	var engine Engine
	if opts.Checkpoints != nil {
		engine = NewCheckpointEngine(stages, opts.Checkpoints, opts.Logger)
	} else {
		opts.Logger.Info("checkpoint store unavailable, using sequential engine")
		engine = NewSequentialEngine(stages, opts.Logger)
	}

	return &Orchestrator{
		engine:    engine,
		memory:    opts.Memory,
		knowledge: opts.Knowledge,
		registry:  opts.Registry,
		logger:    opts.Logger,
	}
}

// ProcessMessage runs one turn. A missing conversation id is generated once
// and returned so the caller can resume the session later.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userInput, conversationID, userID string) (*TurnResult, error) {
	if userInput == "" {
		return nil, domain.NewDomainError("Orchestrator.ProcessMessage", domain.ErrInvalidInput, "empty input")
	}
	if conversationID == "" {
		conversationID = domain.NewID()
	}
	if userID == "" {
		userID = "default"
	}
	threadID := fmt.Sprintf("%s_%s", userID, conversationID)

	state := domain.NewAgentState()
	state.Metadata[metaConversationID] = conversationID
	state.Metadata[metaUserID] = userID
	state.Append(domain.NewMessage(domain.MessageUserInput, userInput, userID))

	if err := o.engine.Execute(ctx, state, threadID); err != nil {
		return nil, err
	}

	resp, _ := state.Metadata[metaResponse].(*domain.AgentResponse)
	if resp == nil {
		return nil, domain.NewDomainError("Orchestrator.ProcessMessage", domain.ErrInvalidInput, "pipeline produced no response")
	}
	messageID, _ := state.Metadata[metaMessageID].(string)

	o.logger.Debug("turn completed",
		"conversation", conversationID,
		"confidence", resp.Confidence,
		"next_action", resp.NextAction,
	)

	return &TurnResult{
		Response:       resp.Content,
		Confidence:     resp.Confidence,
		ToolCalls:      resp.ToolCalls,
		NextAction:     resp.NextAction,
		ConversationID: conversationID,
		MessageID:      messageID,
	}, nil
}

// AddKnowledge appends content to the knowledge base. Returns the number of
// chunks stored.
func (o *Orchestrator) AddKnowledge(ctx context.Context, content, source string) (int, error) {
	if o.knowledge == nil {
		return 0, domain.NewDomainError("Orchestrator.AddKnowledge", domain.ErrKnowledge, "no knowledge store configured")
	}
	return o.knowledge.Add(ctx, content, source)
}

// AddKnowledgeFile chunks and stores a file's contents.
func (o *Orchestrator) AddKnowledgeFile(ctx context.Context, path string) (int, error) {
	if o.knowledge == nil {
		return 0, domain.NewDomainError("Orchestrator.AddKnowledgeFile", domain.ErrKnowledge, "no knowledge store configured")
	}
	return o.knowledge.AddFile(ctx, path)
}

// SearchKnowledge returns ranked knowledge hits.
func (o *Orchestrator) SearchKnowledge(ctx context.Context, query string, limit int) ([]domain.KnowledgeResult, error) {
	if o.knowledge == nil {
		return nil, domain.NewDomainError("Orchestrator.SearchKnowledge", domain.ErrKnowledge, "no knowledge store configured")
	}
	return o.knowledge.Search(ctx, query, limit)
}

// GetConversationHistory returns the stored message log for a conversation.
// An unknown conversation returns an empty history, not an error.
func (o *Orchestrator) GetConversationHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if o.memory == nil {
		return nil, nil
	}
	raw, err := o.memory.Retrieve(ctx, domain.ConversationKey(conversationID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.WrapOp("Orchestrator.GetConversationHistory", err)
	}

	var history []domain.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, domain.NewDomainError("Orchestrator.GetConversationHistory", domain.ErrParse, err.Error())
	}
	return history, nil
}

// RegisterSpecialist adds a specialist to the dispatch registry.
// Registration order determines dispatch priority.
func (o *Orchestrator) RegisterSpecialist(s domain.Specialist) error {
	return o.registry.Register(s)
}
