package domain

// AgentState is the mutable working set for one turn. It is owned by the
// turn orchestrator and passed by reference through the pipeline stages;
// each stage mutates only its designated fields (append to Messages, merge
// into Context). Two stages never mutate the same state concurrently.
type AgentState struct {
	Messages    []Message      `json:"messages"`
	CurrentTask *Task          `json:"current_task,omitempty"`
	Context     map[string]any `json:"context"`
	Memory      map[string]any `json:"memory"`
	Metadata    map[string]any `json:"metadata"`
}

// NewAgentState returns an empty state with initialized maps.
func NewAgentState() *AgentState {
	return &AgentState{
		Context:  map[string]any{},
		Memory:   map[string]any{},
		Metadata: map[string]any{},
	}
}

// Append adds a message to the state's log.
func (s *AgentState) Append(m Message) {
	s.Messages = append(s.Messages, m)
}

// LastUserMessage returns the most recent user_input message, or nil.
func (s *AgentState) LastUserMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Type == MessageUserInput {
			return &s.Messages[i]
		}
	}
	return nil
}

// RecentMessages returns up to n most recent messages in order.
func (s *AgentState) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// MergeContext copies kv pairs into the state's context map.
func (s *AgentState) MergeContext(kv map[string]any) {
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	for k, v := range kv {
		s.Context[k] = v
	}
}
