package memory

import "time"

// ContentRecord is a free-form content entry ("memory") scoped to a memory
// space. Unlike facts, updates version in place: the version increments and
// the prior snapshot is appended to PreviousVersions under the same id.
type ContentRecord struct {
	ID            string `json:"id"`
	MemorySpaceID string `json:"memorySpaceId"`
	Content       string `json:"content"`
	ContentType   string `json:"contentType"`

	// Embedding is supplied by an external collaborator; the store persists
	// it opaquely and never ranks by it.
	Embedding []float32 `json:"embedding,omitempty"`

	ConversationRef *ConversationRef `json:"conversationRef,omitempty"`
	ImmutableRef    *ImmutableRef    `json:"immutableRef,omitempty"`
	MutableRef      *MutableRef      `json:"mutableRef,omitempty"`

	// Importance is 0-100.
	Importance int      `json:"importance"`
	Tags       []string `json:"tags,omitempty"`

	Version          int             `json:"version"`
	PreviousVersions []RecordVersion `json:"previousVersions,omitempty"`

	UserID        string `json:"userId,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordVersion is a retained snapshot of a prior content record version.
type RecordVersion struct {
	Version     int       `json:"version"`
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	Importance  int       `json:"importance"`
	Tags        []string  `json:"tags,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Snapshot captures the record's current content as a RecordVersion.
func (r *ContentRecord) Snapshot() RecordVersion {
	return RecordVersion{
		Version:     r.Version,
		Content:     r.Content,
		ContentType: r.ContentType,
		Importance:  r.Importance,
		Tags:        append([]string(nil), r.Tags...),
		UpdatedAt:   r.UpdatedAt,
	}
}

// Validate checks the record before any store access. References are
// validated structurally only.
func (r *ContentRecord) Validate() error {
	if err := CheckSpace(r.MemorySpaceID); err != nil {
		return err
	}
	if r.Content == "" {
		return Validation("content is required")
	}
	if r.ContentType == "" {
		return Validation("contentType is required")
	}
	if r.Importance < 0 || r.Importance > 100 {
		return Validationf("importance %d out of range [0,100]", r.Importance)
	}
	if r.ConversationRef != nil {
		if err := r.ConversationRef.Validate(); err != nil {
			return err
		}
	}
	if r.ImmutableRef != nil {
		if err := r.ImmutableRef.Validate(); err != nil {
			return err
		}
	}
	if r.MutableRef != nil {
		if err := r.MutableRef.Validate(); err != nil {
			return err
		}
	}
	return nil
}
