package domain

// IntentType is the coarse classification of what kind of handling a user
// message needs.
type IntentType string

const (
	IntentCasualChat  IntentType = "casual_chat"
	IntentInfoQuery   IntentType = "information_query"
	IntentComplexTask IntentType = "complex_task"
	IntentTaskExec    IntentType = "task_execution"
)

// ParseIntentType maps a raw classifier label to an IntentType.
// Unrecognized labels fall back to casual_chat so a bad classification
// never blocks the turn.
func ParseIntentType(raw string) IntentType {
	switch IntentType(raw) {
	case IntentCasualChat, IntentInfoQuery, IntentComplexTask, IntentTaskExec:
		return IntentType(raw)
	default:
		return IntentCasualChat
	}
}

// Intent is produced fresh per turn and carried only as response metadata.
type Intent struct {
	Type       IntentType     `json:"type"`
	Confidence float64        `json:"confidence"`
	Entities   []string       `json:"entities,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// DefaultIntent is the documented fallback when classification fails or
// returns something unparseable.
func DefaultIntent(confidence float64) Intent {
	return Intent{Type: IntentCasualChat, Confidence: confidence}
}
