package memory

import "time"

// Reference kinds are validated structurally at write time only: required
// sub-fields present, correct shapes. Existence is never enforced when a
// reference is written; callers resolve-and-check at read time. Deleting a
// referenced entity never clears referencing entities' pointers, so a
// reference may become orphaned. That is a provenance design choice: a fact's
// sourceRef to a deleted conversation remains a legitimate audit record.

// ConversationRef points at a conversation and optionally specific messages
// within it.
type ConversationRef struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds,omitempty"`
}

// Validate checks structural shape only.
func (r *ConversationRef) Validate() error {
	if err := CheckID(KindConversation, r.ConversationID); err != nil {
		return err
	}
	for _, id := range r.MessageIDs {
		if id == "" {
			return Validation("conversationRef messageIds must be non-empty")
		}
	}
	return nil
}

// SourceRef records the provenance of a fact: the conversation and/or content
// record it was derived from. At least one side must be set.
type SourceRef struct {
	ConversationID string `json:"conversationId,omitempty"`
	MemoryID       string `json:"memoryId,omitempty"`
}

// Validate checks structural shape only.
func (r *SourceRef) Validate() error {
	if r.ConversationID == "" && r.MemoryID == "" {
		return Validation("sourceRef requires conversationId or memoryId")
	}
	if r.ConversationID != "" {
		if err := CheckID(KindConversation, r.ConversationID); err != nil {
			return err
		}
	}
	if r.MemoryID != "" {
		if err := CheckID(KindRecord, r.MemoryID); err != nil {
			return err
		}
	}
	return nil
}

// ImmutableRef points into the tenant-unscoped, content-addressed immutable
// store at a specific version.
type ImmutableRef struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// Validate checks structural shape only.
func (r *ImmutableRef) Validate() error {
	if r.Type == "" {
		return Validation("immutableRef type is required")
	}
	if r.ID == "" {
		return Validation("immutableRef id is required")
	}
	if r.Version < 1 {
		return Validationf("immutableRef version %d must be >= 1", r.Version)
	}
	return nil
}

// MutableRef is a point-in-time snapshot of a tenant-unscoped key/value cell.
// Resolving the reference later may return a different current value; the
// snapshot preserves what was observed at SnapshotAt.
type MutableRef struct {
	Namespace     string    `json:"namespace"`
	Key           string    `json:"key"`
	SnapshotValue string    `json:"snapshotValue"`
	SnapshotAt    time.Time `json:"snapshotAt"`
}

// Validate checks structural shape only.
func (r *MutableRef) Validate() error {
	if r.Namespace == "" {
		return Validation("mutableRef namespace is required")
	}
	if r.Key == "" {
		return Validation("mutableRef key is required")
	}
	if r.SnapshotAt.IsZero() {
		return Validation("mutableRef snapshotAt is required")
	}
	return nil
}
