package domain

import "time"

// MessageType classifies a conversation message.
type MessageType string

const (
	MessageUserInput     MessageType = "user_input"
	MessageAgentResponse MessageType = "agent_response"
	MessageTaskResult    MessageType = "task_result"
	MessageSystem        MessageType = "system_message"
)

// Message is a single immutable record in a conversation log.
// Messages are appended to a conversation and never mutated after creation.
type Message struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Sender    string         `json:"sender"`
	Recipient string         `json:"recipient,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and the current timestamp.
func NewMessage(typ MessageType, content, sender string) Message {
	return Message{
		ID:        NewID(),
		Type:      typ,
		Content:   content,
		Sender:    sender,
		Metadata:  map[string]any{},
		Timestamp: time.Now(),
	}
}

// Conversation holds an ordered sequence of messages for one session.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
