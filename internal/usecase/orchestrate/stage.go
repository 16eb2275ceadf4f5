package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"parley/internal/domain"
	"parley/internal/usecase/planning"
)

// State metadata keys used to thread turn-scoped values between stages.
const (
	metaConversationID = "conversation_id"
	metaUserID         = "user_id"
	metaResponse       = "response"
	metaMessageID      = "message_id"
)

// Stage is one step of the turn pipeline. Stages mutate the shared state
// in place; best-effort stages swallow their own failures and return nil.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *domain.AgentState) error
}

// Responder produces the turn's response from the accumulated state.
// Satisfied by the coordinator.
type Responder interface {
	Respond(ctx context.Context, state *domain.AgentState) (*domain.AgentResponse, error)
}

// memoryCheckStage loads prior conversation messages for the session and
// prepends them to the state. Failures leave the state unchanged.
type memoryCheckStage struct {
	memory domain.MemoryStore
	logger *slog.Logger
}

func (s *memoryCheckStage) Name() string { return "memory_check" }

func (s *memoryCheckStage) Run(ctx context.Context, state *domain.AgentState) error {
	if s.memory == nil {
		return nil
	}
	convID, _ := state.Metadata[metaConversationID].(string)
	if convID == "" {
		return nil
	}

	raw, err := s.memory.Retrieve(ctx, domain.ConversationKey(convID))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("memory check failed, continuing without history",
				"conversation", convID,
				"error", err,
			)
		}
		return nil
	}

	var history []domain.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("stored conversation unreadable, continuing without history",
			"conversation", convID,
			"error", err,
		)
		return nil
	}

	state.Messages = append(history, state.Messages...)
	return nil
}

// contextUpdateStage merges extracted context into the state. Extraction
// failures leave the context empty for this turn.
type contextUpdateStage struct {
	extractor *planning.ContextExtractor
}

func (s *contextUpdateStage) Name() string { return "context_update" }

func (s *contextUpdateStage) Run(ctx context.Context, state *domain.AgentState) error {
	if s.extractor == nil {
		return nil
	}
	state.MergeContext(s.extractor.Extract(ctx, state))
	return nil
}

// coordinateStage invokes the coordinator and records its response as an
// agent_response message. An error or panic inside coordination appends a
// system_message carrying the error text instead; the turn still succeeds.
type coordinateStage struct {
	responder Responder
	logger    *slog.Logger
}

func (s *coordinateStage) Name() string { return "coordinate" }

func (s *coordinateStage) Run(ctx context.Context, state *domain.AgentState) error {
	resp, err := s.respond(ctx, state)
	if err != nil {
		s.logger.Error("coordination failed", "error", err)
		msg := domain.NewMessage(domain.MessageSystem, err.Error(), "orchestrator")
		state.Append(msg)
		state.Metadata[metaResponse] = &domain.AgentResponse{
			Content:    err.Error(),
			Confidence: 0.0,
		}
		state.Metadata[metaMessageID] = msg.ID
		return nil
	}

	msg := domain.NewMessage(domain.MessageAgentResponse, resp.Content, "coordinator")
	msg.Metadata["confidence"] = resp.Confidence
	if len(resp.ToolCalls) > 0 {
		msg.Metadata["tool_calls"] = resp.ToolCalls
	}
	if resp.NextAction != "" {
		msg.Metadata["next_action"] = resp.NextAction
	}
	state.Append(msg)
	state.Metadata[metaResponse] = resp
	state.Metadata[metaMessageID] = msg.ID
	return nil
}

func (s *coordinateStage) respond(ctx context.Context, state *domain.AgentState) (resp *domain.AgentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("coordinate panic: %v", r)
		}
	}()
	return s.responder.Respond(ctx, state)
}

// persistStage snapshots the full message list to durable storage keyed by
// conversation id. Failures are logged only.
type persistStage struct {
	memory domain.MemoryStore
	logger *slog.Logger
}

func (s *persistStage) Name() string { return "persist" }

func (s *persistStage) Run(ctx context.Context, state *domain.AgentState) error {
	if s.memory == nil {
		return nil
	}
	convID, _ := state.Metadata[metaConversationID].(string)
	if convID == "" {
		return nil
	}

	raw, err := json.Marshal(state.Messages)
	if err != nil {
		s.logger.Warn("conversation snapshot marshal failed", "error", err)
		return nil
	}

	meta := map[string]any{}
	if userID, _ := state.Metadata[metaUserID].(string); userID != "" {
		meta["user_id"] = userID
	}
	if err := s.memory.Store(ctx, domain.ConversationKey(convID), string(raw), meta); err != nil {
		s.logger.Warn("conversation persist failed",
			"conversation", convID,
			"error", err,
		)
	}
	return nil
}
