package domain

// ToolCall records one external tool invocation and its outcome.
// A failed call carries Error and a nil Result; failures are isolated per
// call and never abort sibling calls.
type ToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// AgentResponse is produced by a specialist or the coordinator for one turn.
// It is immutable once returned.
type AgentResponse struct {
	Content    string         `json:"content"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	NextAction string         `json:"next_action,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NextActionRequestInfo signals that the turn short-circuited because
// required information is missing and the user must supply it.
const NextActionRequestInfo = "request_info"
