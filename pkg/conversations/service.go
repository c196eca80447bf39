// Package conversations manages conversation entries and their append-only
// message lists.
package conversations

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Config holds construction options for the Service.
type Config struct {
	// Driver is the storage backend. Required.
	Driver storage.Driver

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Service owns conversation operations.
type Service struct {
	driver storage.Driver
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a conversation service.
func NewService(c Config) *Service {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		driver: c.Driver,
		logger: c.Logger,
		now:    c.Now,
	}
}

// CreateRequest carries the fields for creating a conversation.
type CreateRequest struct {
	MemorySpaceID string   `json:"memorySpaceId"`
	Type          string   `json:"type"`
	Participants  []string `json:"participants,omitempty"`
}

// Create starts a new conversation with an empty message list.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*memory.Conversation, error) {
	now := s.now()
	conv := &memory.Conversation{
		ConversationID: memory.NewID(memory.KindConversation),
		MemorySpaceID:  req.MemorySpaceID,
		Type:           req.Type,
		Participants:   append([]string(nil), req.Participants...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := conv.Validate(); err != nil {
		return nil, err
	}

	if err := s.driver.PutConversation(ctx, conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// Get retrieves a conversation by id within the calling memory space.
// Conversations owned by other spaces are reported as not found.
func (s *Service) Get(ctx context.Context, memorySpaceID, id string) (*memory.Conversation, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindConversation, id); err != nil {
		return nil, err
	}

	conv, err := s.driver.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.MemorySpaceID != memorySpaceID {
		return nil, memory.NotFound(memory.KindConversation, id)
	}

	return conv, nil
}

func (s *Service) getOwned(ctx context.Context, memorySpaceID, id string) (*memory.Conversation, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindConversation, id); err != nil {
		return nil, err
	}

	conv, err := s.driver.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.MemorySpaceID != memorySpaceID {
		return nil, memory.PermissionDenied(
			"conversation " + id + " belongs to another memory space")
	}

	return conv, nil
}

// AddMessage appends a message to the conversation. Message ids are assigned
// here and stable afterwards; the append is atomic, so two concurrent adds
// both land without clobbering each other.
func (s *Service) AddMessage(ctx context.Context, memorySpaceID, id, role, content string) (*memory.Message, error) {
	if role == "" {
		return nil, memory.Validation("message role is required")
	}
	if content == "" {
		return nil, memory.Validation("message content is required")
	}

	if _, err := s.getOwned(ctx, memorySpaceID, id); err != nil {
		return nil, err
	}

	msg := memory.Message{
		MessageID: memory.NewID(memory.KindMessage),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}

	if err := s.driver.AppendMessage(ctx, id, msg); err != nil {
		return nil, err
	}

	s.logger.Debug("message appended",
		zap.String("space", memorySpaceID),
		zap.String("conversation", id),
	)

	return &msg, nil
}

// List returns conversations in the space matching the filter.
func (s *Service) List(ctx context.Context, memorySpaceID string, filter storage.ConversationFilter) ([]*memory.Conversation, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	filter.MemorySpaceID = memorySpaceID
	return s.driver.ListConversations(ctx, filter)
}

// Count returns the number of conversations in the space matching the filter.
func (s *Service) Count(ctx context.Context, memorySpaceID string, filter storage.ConversationFilter) (int, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return 0, err
	}
	filter.MemorySpaceID = memorySpaceID
	return s.driver.CountConversations(ctx, filter)
}

// Delete hard-deletes the conversation and its messages. ConversationRefs
// held by content records are left orphaned; readers must tolerate that.
func (s *Service) Delete(ctx context.Context, memorySpaceID, id string) (bool, error) {
	if _, err := s.getOwned(ctx, memorySpaceID, id); err != nil {
		return false, err
	}
	return s.driver.DeleteConversation(ctx, id)
}
