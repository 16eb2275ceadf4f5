package domain

import "context"

// Specialist is a pluggable handler for domain-specific tasks.
// CanHandle is a cheap capability probe; Process produces a response for
// the current conversational state. The coordinator polls specialists in
// registration order and dispatches to the first affirmative probe, so
// registration order is part of the contract.
type Specialist interface {
	Name() string
	CanHandle(task *Task) bool
	Process(ctx context.Context, state *AgentState) (*AgentResponse, error)
}
