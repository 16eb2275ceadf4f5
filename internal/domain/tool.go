package domain

import "context"

// Tool is an external capability invoked during the augmentation path.
// Execute takes loosely-typed parameters and returns a JSON-friendly value.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]any) (any, error)
}
