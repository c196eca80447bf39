// Package cascade coordinates multi-entity deletion.
//
// There are no cross-entity transactions: every cascade walks its victims one
// entity at a time, each step atomic on its own. A cascade interrupted midway
// leaves a partial state that is safe to re-run: hard deletes report false
// for already-missing ids and fact soft deletes report false for already
// closed validity windows, so a retry converges without double counting.
//
// Facts are soft-deleted (validity window closed, row retained for temporal
// queries); conversations and content records are hard-deleted. Context trees
// survive a space purge and must be removed explicitly through
// pkg/hierarchy.
package cascade

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

// Config holds construction options for the Coordinator.
type Config struct {
	// Driver is the storage backend. Required.
	Driver storage.Driver

	// Logger is the configured zap logger. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Coordinator owns cascading deletes across entity sets.
type Coordinator struct {
	driver storage.Driver
	logger *zap.Logger
	now    func() time.Time
}

// NewCoordinator creates a cascade deletion coordinator.
func NewCoordinator(c Config) *Coordinator {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Coordinator{
		driver: c.Driver,
		logger: c.Logger,
		now:    c.Now,
	}
}

// SpaceResult reports the exact per-entity outcome of a space purge.
type SpaceResult struct {
	MemorySpaceID        string `json:"memorySpaceId"`
	ConversationsDeleted int    `json:"conversationsDeleted"`
	MemoriesDeleted      int    `json:"memoriesDeleted"`
	FactsSoftDeleted     int    `json:"factsSoftDeleted"`
	ContextsPreserved    int    `json:"contextsPreserved"`
}

// DeleteSpace purges a memory space. With cascade unset the space must
// already be empty of conversations, records, and live facts; with cascade
// set, conversations and content records are hard-deleted and facts are
// soft-deleted. Context trees are preserved either way and only counted.
func (c *Coordinator) DeleteSpace(ctx context.Context, memorySpaceID string, cascade bool) (*SpaceResult, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return nil, err
	}

	result := &SpaceResult{MemorySpaceID: memorySpaceID}

	contexts, err := c.driver.CountContexts(ctx, storage.ContextFilter{MemorySpaceID: memorySpaceID})
	if err != nil {
		return nil, err
	}
	result.ContextsPreserved = contexts

	convs, err := c.driver.ListConversations(ctx, storage.ConversationFilter{MemorySpaceID: memorySpaceID})
	if err != nil {
		return nil, err
	}
	records, err := c.driver.ListRecords(ctx, storage.RecordFilter{MemorySpaceID: memorySpaceID})
	if err != nil {
		return nil, err
	}
	facts, err := c.driver.ListFacts(ctx, storage.FactFilter{MemorySpaceID: memorySpaceID})
	if err != nil {
		return nil, err
	}

	if !cascade && (len(convs) > 0 || len(records) > 0 || len(facts) > 0) {
		return nil, memory.Validationf(
			"memory space %s is not empty; pass cascade to purge it", memorySpaceID)
	}

	for _, conv := range convs {
		deleted, err := c.driver.DeleteConversation(ctx, conv.ConversationID)
		if err != nil {
			return result, err
		}
		if deleted {
			result.ConversationsDeleted++
		}
	}

	for _, record := range records {
		deleted, err := c.driver.DeleteRecord(ctx, record.ID)
		if err != nil {
			return result, err
		}
		if deleted {
			result.MemoriesDeleted++
		}
	}

	at := c.now()
	for _, fact := range facts {
		closed, err := c.driver.SoftDeleteFact(ctx, fact.FactID, at)
		if err != nil {
			return result, err
		}
		if closed {
			result.FactsSoftDeleted++
		}
	}

	c.logger.Info("memory space purged",
		zap.String("space", memorySpaceID),
		zap.Int("conversations", result.ConversationsDeleted),
		zap.Int("memories", result.MemoriesDeleted),
		zap.Int("facts", result.FactsSoftDeleted),
		zap.Int("contextsPreserved", result.ContextsPreserved),
	)

	return result, nil
}

// UserResult reports a user-data purge, broken down by memory space.
type UserResult struct {
	UserID          string         `json:"userId"`
	MemoriesDeleted int            `json:"memoriesDeleted"`
	BySpace         map[string]int `json:"bySpace"`
}

// DeleteUserData hard-deletes every content record attributed to the user,
// walking each memory space in turn. Facts, contexts, and conversations are
// untouched; records reference users by attribution only.
func (c *Coordinator) DeleteUserData(ctx context.Context, userID string) (*UserResult, error) {
	if userID == "" {
		return nil, memory.Validation("userId is required")
	}

	spaces, err := c.driver.Spaces(ctx)
	if err != nil {
		return nil, err
	}

	result := &UserResult{
		UserID:  userID,
		BySpace: make(map[string]int),
	}

	for _, space := range spaces {
		deleted, err := c.deleteRecords(ctx, storage.RecordFilter{
			MemorySpaceID: space,
			UserID:        userID,
		})
		if err != nil {
			return result, err
		}
		if deleted > 0 {
			result.BySpace[space] = deleted
			result.MemoriesDeleted += deleted
		}
	}

	c.logger.Info("user data purged",
		zap.String("user", userID),
		zap.Int("memories", result.MemoriesDeleted),
	)

	return result, nil
}

// DeleteConversation hard-deletes a single conversation. ConversationRefs
// held by content records are left dangling; readers resolve them to absent.
func (c *Coordinator) DeleteConversation(ctx context.Context, memorySpaceID, conversationID string) (bool, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return false, err
	}
	if err := memory.CheckID(memory.KindConversation, conversationID); err != nil {
		return false, err
	}

	conv, err := c.driver.GetConversation(ctx, conversationID)
	if err != nil {
		if memory.IsCode(err, memory.CodeConversationNotFound) {
			return false, nil
		}
		return false, err
	}
	if conv.MemorySpaceID != memorySpaceID {
		return false, memory.PermissionDenied(
			"conversation " + conversationID + " belongs to another memory space")
	}

	return c.driver.DeleteConversation(ctx, conversationID)
}

// DeleteManyFilter is the fixed filter set for bulk record deletion: space
// plus optionally user and content type. Arbitrary predicates are not
// supported; callers needing more list first and delete by id.
type DeleteManyFilter struct {
	MemorySpaceID string `json:"memorySpaceId"`
	UserID        string `json:"userId,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
}

// DeleteMany hard-deletes every content record matching the filter and
// returns the exact count removed. Re-running the same filter deletes
// nothing and returns zero.
func (c *Coordinator) DeleteMany(ctx context.Context, filter DeleteManyFilter) (int, error) {
	if err := memory.CheckSpace(filter.MemorySpaceID); err != nil {
		return 0, err
	}

	return c.deleteRecords(ctx, storage.RecordFilter{
		MemorySpaceID: filter.MemorySpaceID,
		UserID:        filter.UserID,
		ContentType:   filter.ContentType,
	})
}

// SoftDeleteFacts closes the validity window of every live fact in the space
// matching the fact type (all types when empty). Already-closed facts are
// skipped, so retries report zero.
func (c *Coordinator) SoftDeleteFacts(ctx context.Context, memorySpaceID string, factType memory.FactType) (int, error) {
	if err := memory.CheckSpace(memorySpaceID); err != nil {
		return 0, err
	}

	facts, err := c.driver.ListFacts(ctx, storage.FactFilter{
		MemorySpaceID: memorySpaceID,
		FactType:      factType,
	})
	if err != nil {
		return 0, err
	}

	at := c.now()
	closed := 0
	for _, fact := range facts {
		ok, err := c.driver.SoftDeleteFact(ctx, fact.FactID, at)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}

	return closed, nil
}

func (c *Coordinator) deleteRecords(ctx context.Context, filter storage.RecordFilter) (int, error) {
	matched, err := c.driver.ListRecords(ctx, filter)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, record := range matched {
		ok, err := c.driver.DeleteRecord(ctx, record.ID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	return deleted, nil
}
