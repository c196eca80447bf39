package memory

import "time"

// Conversation is an exchange between participants, scoped to a memory space.
// Messages are ordered and append-only; message ids are stable once appended.
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	MemorySpaceID  string    `json:"memorySpaceId"`
	Type           string    `json:"type"`
	Participants   []string  `json:"participants,omitempty"`
	Messages       []Message `json:"messages,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Message is a single entry in a conversation.
type Message struct {
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the conversation before any store access.
func (c *Conversation) Validate() error {
	if err := CheckSpace(c.MemorySpaceID); err != nil {
		return err
	}
	if c.Type == "" {
		return Validation("conversation type is required")
	}
	return nil
}
