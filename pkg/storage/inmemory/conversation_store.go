package inmemory

import (
	"context"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// PutConversation inserts a new conversation.
func (d *Driver) PutConversation(_ context.Context, conv *memory.Conversation) error {
	if conv == nil {
		return errNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conversations[conv.ConversationID]; ok {
		return memory.Validationf("conversation %s already exists", conv.ConversationID)
	}

	d.conversations[conv.ConversationID] = cloneConversation(conv)
	return nil
}

// GetConversation retrieves a conversation by id.
func (d *Driver) GetConversation(_ context.Context, id string) (*memory.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conv, ok := d.conversations[id]
	if !ok {
		return nil, memory.NotFound(memory.KindConversation, id)
	}

	return cloneConversation(conv), nil
}

// AppendMessage appends a message to the conversation's ordered list.
func (d *Driver) AppendMessage(_ context.Context, conversationID string, msg memory.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv, ok := d.conversations[conversationID]
	if !ok {
		return memory.NotFound(memory.KindConversation, conversationID)
	}

	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.Timestamp

	return nil
}

// DeleteConversation removes the conversation and its messages.
func (d *Driver) DeleteConversation(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conversations[id]; !ok {
		return false, nil
	}

	delete(d.conversations, id)
	return true, nil
}

// ListConversations returns conversations matching the filter, oldest first.
func (d *Driver) ListConversations(_ context.Context, filter storage.ConversationFilter) ([]*memory.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []*memory.Conversation
	for _, conv := range d.conversations {
		if filter.Matches(conv) {
			matched = append(matched, cloneConversation(conv))
		}
	}

	sortByCreated(matched,
		func(c *memory.Conversation) time.Time { return c.CreatedAt },
		func(c *memory.Conversation) string { return c.ConversationID })

	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountConversations returns the number of conversations matching the filter.
func (d *Driver) CountConversations(_ context.Context, filter storage.ConversationFilter) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, conv := range d.conversations {
		if filter.Matches(conv) {
			count++
		}
	}

	return count, nil
}

func cloneConversation(c *memory.Conversation) *memory.Conversation {
	n := *c
	n.Participants = append([]string(nil), c.Participants...)
	n.Messages = append([]memory.Message(nil), c.Messages...)
	return &n
}
