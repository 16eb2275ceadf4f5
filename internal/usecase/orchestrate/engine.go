package orchestrate

import (
	"context"
	"log/slog"

	"parley/internal/domain"
	"parley/internal/infra/tracer"
)

// Engine drives the ordered stage list over one turn's state. The two
// implementations must behave identically from the caller's perspective;
// the checkpointed engine additionally snapshots state between stages.
type Engine interface {
	Execute(ctx context.Context, state *domain.AgentState, threadID string) error
}

// CheckpointStore persists per-thread state snapshots between stages.
type CheckpointStore interface {
	Save(ctx context.Context, threadID, stage string, state *domain.AgentState) error
	// Latest returns the newest snapshot and the stage it followed, or
	// ErrNotFound when the thread has none.
	Latest(ctx context.Context, threadID string) (*domain.AgentState, string, error)
}

// SequentialEngine runs the stages in order in-process. It is the fallback
// when no checkpoint store is available.
type SequentialEngine struct {
	stages []Stage
	logger *slog.Logger
}

// NewSequentialEngine creates a SequentialEngine over the stage list.
func NewSequentialEngine(stages []Stage, logger *slog.Logger) *SequentialEngine {
	return &SequentialEngine{stages: stages, logger: logger}
}

// Execute implements Engine.
func (e *SequentialEngine) Execute(ctx context.Context, state *domain.AgentState, threadID string) error {
	ctx, span := tracer.StartSpan(ctx, "orchestrate.sequential")
	defer span.End()

	for _, stage := range e.stages {
		if err := stage.Run(ctx, state); err != nil {
			tracer.RecordError(span, err)
			return domain.WrapOp("stage "+stage.Name(), err)
		}
	}
	tracer.SetOK(span)
	return nil
}

// CheckpointEngine runs the same stage list as SequentialEngine, writing a
// state snapshot to the checkpoint store after each stage. Snapshot
// failures are logged, never fatal: checkpointing is an observability and
// resume aid, not a correctness requirement.
type CheckpointEngine struct {
	stages []Stage
	store  CheckpointStore
	logger *slog.Logger
}

// NewCheckpointEngine creates a CheckpointEngine.
func NewCheckpointEngine(stages []Stage, store CheckpointStore, logger *slog.Logger) *CheckpointEngine {
	return &CheckpointEngine{stages: stages, store: store, logger: logger}
}

// Execute implements Engine.
func (e *CheckpointEngine) Execute(ctx context.Context, state *domain.AgentState, threadID string) error {
	ctx, span := tracer.StartSpan(ctx, "orchestrate.checkpoint")
	defer span.End()

	for _, stage := range e.stages {
		if err := stage.Run(ctx, state); err != nil {
			tracer.RecordError(span, err)
			return domain.WrapOp("stage "+stage.Name(), err)
		}
		if err := e.store.Save(ctx, threadID, stage.Name(), state); err != nil {
			e.logger.Warn("checkpoint save failed",
				"thread", threadID,
				"stage", stage.Name(),
				"error", err,
			)
		}
	}
	tracer.SetOK(span)
	return nil
}
