// Package eventstream defines transport-neutral event payloads emitted after
// durable writes. Publishing is best-effort and always off the write path: a
// failed publish never rolls back the store.
package eventstream

import (
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFactRevised is emitted after the belief revision engine
	// persists an ADD, UPDATE, or SUPERSEDE outcome.
	EventTypeFactRevised = "cortex.fact.revised"

	// EventTypeSpacePurged is emitted after a cascade purge of a memory
	// space completes.
	EventTypeSpacePurged = "cortex.space.purged"
)

// FactRevisedEvent is emitted for every revision that changed the store.
// NONE outcomes do not emit.
type FactRevisedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	MemorySpaceID string `json:"memory_space_id"`

	// Action is the revision outcome: ADD, UPDATE, or SUPERSEDE.
	Action string `json:"action"`

	Fact *memory.Fact `json:"fact"`

	// Previous is the superseded head, present for UPDATE and SUPERSEDE.
	Previous *memory.Fact `json:"previous,omitempty"`
}

// SpacePurgedEvent is emitted after a memory space cascade completes.
type SpacePurgedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	MemorySpaceID        string `json:"memory_space_id"`
	ConversationsDeleted int    `json:"conversations_deleted"`
	MemoriesDeleted      int    `json:"memories_deleted"`
	FactsSoftDeleted     int    `json:"facts_soft_deleted"`
	ContextsPreserved    int    `json:"contexts_preserved"`
}

// NewFactRevisedEvent stamps the envelope fields around a revision outcome.
func NewFactRevisedEvent(action string, fact, previous *memory.Fact) *FactRevisedEvent {
	return &FactRevisedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeFactRevised,
		EventID:       memory.NewID(memory.KindEvent),
		EmittedAt:     time.Now().UTC(),
		MemorySpaceID: fact.MemorySpaceID,
		Action:        action,
		Fact:          fact,
		Previous:      previous,
	}
}

// NewSpacePurgedEvent stamps the envelope fields around a cascade result.
func NewSpacePurgedEvent(memorySpaceID string, conversations, memories, facts, contexts int) *SpacePurgedEvent {
	return &SpacePurgedEvent{
		SchemaVersion:        SchemaVersionV1,
		EventType:            EventTypeSpacePurged,
		EventID:              memory.NewID(memory.KindEvent),
		EmittedAt:            time.Now().UTC(),
		MemorySpaceID:        memorySpaceID,
		ConversationsDeleted: conversations,
		MemoriesDeleted:      memories,
		FactsSoftDeleted:     facts,
		ContextsPreserved:    contexts,
	}
}
