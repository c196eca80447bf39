// Package hierarchy maintains the tree of task contexts.
//
// Every node carries rootId and depth derived from its parent at creation,
// and every parent's childIds mirrors its children (the bidirectional link is
// written atomically by the storage driver). The parent graph stays acyclic:
// re-parenting onto a descendant is rejected. Chain queries walk parent
// pointers, bounded by tree depth.
package hierarchy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Config holds construction options for the Manager.
type Config struct {
	// Driver is the storage backend. Required.
	Driver storage.Driver

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Manager owns context tree mutations and traversal.
type Manager struct {
	driver storage.Driver
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a context hierarchy manager.
func NewManager(c Config) *Manager {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Manager{
		driver: c.Driver,
		logger: c.Logger,
		now:    c.Now,
	}
}

// CreateRequest carries the fields for creating a context node.
type CreateRequest struct {
	MemorySpaceID   string                  `json:"memorySpaceId"`
	Purpose         string                  `json:"purpose"`
	ParentID        *string                 `json:"parentId,omitempty"`
	ConversationRef *memory.ConversationRef `json:"conversationRef,omitempty"`
	Data            map[string]any          `json:"data,omitempty"`
	Participants    []string                `json:"participants,omitempty"`
}

// Create inserts a new context node. Depth and rootId are computed from the
// parent; the child insert and the parent's childIds append land in one
// atomic storage step. A missing parent fails with PARENT_NOT_FOUND; a parent
// owned by another space is reported the same way so nothing leaks across the
// isolation boundary.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*memory.Context, error) {
	if err := memory.CheckSpace(req.MemorySpaceID); err != nil {
		return nil, err
	}
	if req.Purpose == "" {
		return nil, memory.Validation("purpose is required")
	}
	if req.ConversationRef != nil {
		if err := req.ConversationRef.Validate(); err != nil {
			return nil, err
		}
	}

	now := m.now()
	node := &memory.Context{
		ContextID:       memory.NewID(memory.KindContext),
		MemorySpaceID:   req.MemorySpaceID,
		Purpose:         req.Purpose,
		Status:          memory.ContextActive,
		ConversationRef: req.ConversationRef,
		Data:            req.Data,
		Participants:    append([]string(nil), req.Participants...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if req.ParentID == nil {
		node.RootID = node.ContextID
		node.Depth = 0
	} else {
		parent, err := m.driver.GetContext(ctx, *req.ParentID)
		if err != nil || parent.MemorySpaceID != req.MemorySpaceID {
			return nil, memory.NewError(memory.CodeParentNotFound,
				"parent context "+*req.ParentID+" not found")
		}

		parentID := parent.ContextID
		node.ParentID = &parentID
		node.RootID = parent.RootID
		node.Depth = parent.Depth + 1
	}

	if err := m.driver.PutContext(ctx, node); err != nil {
		return nil, err
	}

	m.logger.Debug("context created",
		zap.String("space", req.MemorySpaceID),
		zap.String("context", node.ContextID),
		zap.Int("depth", node.Depth),
	)

	return node, nil
}

// Get retrieves a context node readable by the calling space: either owned
// by it or carrying a grant for it.
func (m *Manager) Get(ctx context.Context, memorySpaceID, contextID string) (*memory.Context, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindContext, contextID); err != nil {
		return nil, err
	}

	node, err := m.driver.GetContext(ctx, contextID)
	if err != nil {
		return nil, err
	}
	if node.MemorySpaceID != memorySpaceID && !node.GrantsAccessTo(memorySpaceID) {
		return nil, memory.NotFound(memory.KindContext, contextID)
	}

	return node, nil
}

// getOwned fetches a context for mutation: grants never confer write access,
// and cross-space ownership fails with PERMISSION_DENIED.
func (m *Manager) getOwned(ctx context.Context, memorySpaceID, contextID string) (*memory.Context, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	if err := memory.CheckID(memory.KindContext, contextID); err != nil {
		return nil, err
	}

	node, err := m.driver.GetContext(ctx, contextID)
	if err != nil {
		return nil, err
	}
	if node.MemorySpaceID != memorySpaceID {
		return nil, memory.PermissionDenied(
			"context " + contextID + " belongs to another memory space")
	}

	return node, nil
}

// UpdateRequest carries the in-place mutable fields of a context node. Nil
// fields keep the current value.
type UpdateRequest struct {
	Status *memory.ContextStatus `json:"status,omitempty"`
	Data   map[string]any        `json:"data,omitempty"`
}

// Update mutates status and data in place. Transitioning to completed stamps
// completedAt.
func (m *Manager) Update(ctx context.Context, memorySpaceID, contextID string, req UpdateRequest) (*memory.Context, error) {
	node, err := m.getOwned(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	now := m.now()

	if req.Status != nil {
		switch *req.Status {
		case memory.ContextActive, memory.ContextCompleted, memory.ContextFailed:
		default:
			return nil, memory.Validationf("unknown context status %q", *req.Status)
		}

		if *req.Status == memory.ContextCompleted && node.Status != memory.ContextCompleted {
			completed := now
			node.CompletedAt = &completed
		}
		node.Status = *req.Status
	}
	if req.Data != nil {
		node.Data = req.Data
	}
	node.UpdatedAt = now

	if err := m.driver.UpdateContext(ctx, node); err != nil {
		return nil, err
	}

	return node, nil
}

// AddParticipant appends a participant to the node if not already present.
func (m *Manager) AddParticipant(ctx context.Context, memorySpaceID, contextID, participantID string) (*memory.Context, error) {
	if participantID == "" {
		return nil, memory.Validation("participantId is required")
	}

	node, err := m.getOwned(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	for _, p := range node.Participants {
		if p == participantID {
			return node, nil
		}
	}

	node.Participants = append(node.Participants, participantID)
	node.UpdatedAt = m.now()

	if err := m.driver.UpdateContext(ctx, node); err != nil {
		return nil, err
	}

	return node, nil
}

// GrantAccess appends a cross-space read grant to the node. Ownership does
// not change, and the grant is a capability on this node only, never
// transitive to entities referenced by the node's data.
func (m *Manager) GrantAccess(ctx context.Context, memorySpaceID, contextID, targetSpaceID, scope string) (*memory.Context, error) {
	if err := memory.CheckSpace(targetSpaceID); err != nil {
		return nil, memory.Validation("target memorySpaceId is required")
	}

	node, err := m.getOwned(ctx, memorySpaceID, contextID)
	if err != nil {
		return nil, err
	}

	node.GrantedAccess = append(node.GrantedAccess, memory.AccessGrant{
		MemorySpaceID: targetSpaceID,
		Scope:         scope,
	})
	node.UpdatedAt = m.now()

	if err := m.driver.UpdateContext(ctx, node); err != nil {
		return nil, err
	}

	m.logger.Info("context access granted",
		zap.String("space", memorySpaceID),
		zap.String("context", contextID),
		zap.String("target_space", targetSpaceID),
		zap.String("scope", scope),
	)

	return node, nil
}

// List returns context nodes in the space matching the filter.
func (m *Manager) List(ctx context.Context, memorySpaceID string, filter storage.ContextFilter) ([]*memory.Context, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}
	filter.MemorySpaceID = memorySpaceID
	return m.driver.ListContexts(ctx, filter)
}

// Count returns the number of context nodes in the space matching the filter.
func (m *Manager) Count(ctx context.Context, memorySpaceID string, filter storage.ContextFilter) (int, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return 0, err
	}
	filter.MemorySpaceID = memorySpaceID
	return m.driver.CountContexts(ctx, filter)
}

// Search performs keyword search over context purposes with the same filter
// set as List.
func (m *Manager) Search(ctx context.Context, memorySpaceID, query string, filter storage.ContextFilter) ([]*memory.Context, error) {
	if query == "" {
		return nil, memory.Validation("search query is required")
	}
	filter.Query = query
	return m.List(ctx, memorySpaceID, filter)
}
