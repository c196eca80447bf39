// Package storage defines the persistence interface for the Cortex memory
// store.
//
// The Driver is a capability over four entity sets (facts, content records,
// contexts, conversations). Each mutation is atomic against its own record
// set. The two multi-record primitives that the consistency core depends on,
// forking a fact lineage head and linking a context child to its parent, are
// single atomic operations here so the engines above never see partial
// writes.
//
// Drivers are mechanism, not policy: operations address entities by id
// without tenant scoping, and the engines in pkg/revision, pkg/hierarchy, and
// pkg/cascade enforce the isolation boundary (mapping cross-space reads to
// not-found and cross-space mutations to PERMISSION_DENIED).
package storage

import (
	"context"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// Driver is implemented by every storage backend.
type Driver interface {
	FactStore
	RecordStore
	ContextStore
	ConversationStore

	// Spaces returns the distinct memory space ids present across all
	// entity sets.
	Spaces(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// FactStore persists fact version chains.
type FactStore interface {
	// PutFact inserts a new fact row. Used for version-1 lineage creation;
	// forks go through ForkFact.
	PutFact(ctx context.Context, fact *memory.Fact) error

	// GetFact retrieves a fact by id regardless of memory space.
	GetFact(ctx context.Context, id string) (*memory.Fact, error)

	// ForkFact atomically inserts the successor and stamps the predecessor's
	// supersededBy and validUntil. The predecessor must still be the lineage
	// head (supersededBy unset); if it drifted between the caller's read and
	// this write, ForkFact fails with CONFLICT and writes nothing.
	ForkFact(ctx context.Context, predecessorID string, successor *memory.Fact, at time.Time) error

	// MarkSuperseded stamps supersededBy and validUntil on a fact if and only
	// if it is currently a live head. Returns false without error when the
	// fact was already superseded or soft-deleted.
	MarkSuperseded(ctx context.Context, id, supersededBy string, at time.Time) (bool, error)

	// SoftDeleteFact sets validUntil without creating a successor. Returns
	// false without error when validUntil was already set; a repeated soft
	// delete never un-sets it.
	SoftDeleteFact(ctx context.Context, id string, at time.Time) (bool, error)

	// UpdateFactEnrichment replaces the enrichment in place without forking
	// a version.
	UpdateFactEnrichment(ctx context.Context, id string, enrichment memory.Enrichment) error

	// ListFacts returns facts matching the filter.
	ListFacts(ctx context.Context, filter FactFilter) ([]*memory.Fact, error)

	// CountFacts returns the number of facts matching the filter.
	CountFacts(ctx context.Context, filter FactFilter) (int, error)
}

// RecordStore persists content records.
type RecordStore interface {
	PutRecord(ctx context.Context, record *memory.ContentRecord) error

	GetRecord(ctx context.Context, id string) (*memory.ContentRecord, error)

	// UpdateRecord replaces the record in place, guarded by the version the
	// caller read: if the stored version differs from expectedVersion the
	// update fails with CONFLICT and writes nothing.
	UpdateRecord(ctx context.Context, record *memory.ContentRecord, expectedVersion int) error

	// DeleteRecord removes the record. Returns false without error when the
	// id does not exist, so bulk deletes are idempotent on retry.
	DeleteRecord(ctx context.Context, id string) (bool, error)

	ListRecords(ctx context.Context, filter RecordFilter) ([]*memory.ContentRecord, error)

	CountRecords(ctx context.Context, filter RecordFilter) (int, error)
}

// ContextStore persists the context tree.
type ContextStore interface {
	// PutContext inserts a context node and, when the node has a parent,
	// appends the node's id to the parent's childIds in the same atomic
	// step. Both sides of the bidirectional link succeed together or neither
	// does; concurrent sibling creation never loses a childIds update.
	PutContext(ctx context.Context, node *memory.Context) error

	GetContext(ctx context.Context, id string) (*memory.Context, error)

	// UpdateContext replaces the node's mutable fields (status, data,
	// grants, participants, completedAt) in place.
	UpdateContext(ctx context.Context, node *memory.Context) error

	// DeleteContext removes the node and detaches it from its parent's
	// childIds atomically. Returns false without error when the id does not
	// exist.
	DeleteContext(ctx context.Context, id string) (bool, error)

	ListContexts(ctx context.Context, filter ContextFilter) ([]*memory.Context, error)

	CountContexts(ctx context.Context, filter ContextFilter) (int, error)
}

// ConversationStore persists conversations and their append-only messages.
type ConversationStore interface {
	PutConversation(ctx context.Context, conv *memory.Conversation) error

	GetConversation(ctx context.Context, id string) (*memory.Conversation, error)

	// AppendMessage appends a message to the conversation's ordered list.
	AppendMessage(ctx context.Context, conversationID string, msg memory.Message) error

	// DeleteConversation removes the conversation and its messages. Returns
	// false without error when the id does not exist.
	DeleteConversation(ctx context.Context, id string) (bool, error)

	ListConversations(ctx context.Context, filter ConversationFilter) ([]*memory.Conversation, error)

	CountConversations(ctx context.Context, filter ConversationFilter) (int, error)
}
