package memory

import "time"

// FactType categorizes the kind of assertion a fact makes.
type FactType string

const (
	FactTypePreference   FactType = "preference"
	FactTypeIdentity     FactType = "identity"
	FactTypeKnowledge    FactType = "knowledge"
	FactTypeRelationship FactType = "relationship"
	FactTypeEvent        FactType = "event"
	FactTypeCustom       FactType = "custom"
)

// Fact is a subject-predicate-object assertion with confidence, scoped to a
// memory space.
//
// Facts never mutate in place (enrichment-only edits excepted). A revision
// forks a new fact with a fresh id, version+1, and supersedes pointing at the
// prior head; the prior head gets supersededBy and validUntil stamped in the
// same atomic step. Exactly one fact in a live lineage has SupersededBy nil.
type Fact struct {
	FactID        string   `json:"factId"`
	MemorySpaceID string   `json:"memorySpaceId"`
	Subject       string   `json:"subject"`
	Predicate     string   `json:"predicate,omitempty"`
	Object        string   `json:"object,omitempty"`
	FactText      string   `json:"factText"`
	FactType      FactType `json:"factType"`

	// Confidence is 0-100.
	Confidence int `json:"confidence"`

	// Version starts at 1 and increases by exactly 1 per supersession step.
	Version int `json:"version"`

	// Supersedes is the factId of the version this fact replaced.
	Supersedes *string `json:"supersedes,omitempty"`

	// SupersededBy is the factId of the version that replaced this fact.
	// Nil means this fact is the live head of its lineage.
	SupersededBy *string `json:"supersededBy,omitempty"`

	ValidFrom time.Time `json:"validFrom"`

	// ValidUntil nil means open-ended validity. Setting it without creating a
	// successor is a soft delete; the fact remains retrievable by id/history.
	ValidUntil *time.Time `json:"validUntil,omitempty"`

	SourceRef     *SourceRef `json:"sourceRef,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	ParticipantID string     `json:"participantId,omitempty"`

	Enrichment Enrichment `json:"enrichment"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Enrichment holds derived metadata attached to a fact by external
// enrichment pipelines. Enrichment-only edits do not fork a version.
type Enrichment struct {
	Category        string     `json:"category,omitempty"`
	SearchAliases   []string   `json:"searchAliases,omitempty"`
	SemanticContext string     `json:"semanticContext,omitempty"`
	Entities        []string   `json:"entities,omitempty"`
	Relations       []Relation `json:"relations,omitempty"`
}

// Relation is an extracted relation between entities inside an enrichment.
type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// IsLive reports whether the fact is the current head of its lineage and not
// soft-deleted.
func (f *Fact) IsLive() bool {
	return f.SupersededBy == nil && f.ValidUntil == nil
}

// ValidAt reports whether the fact was valid at t. Boundary semantics:
// included at t = validFrom, excluded at t = validUntil.
func (f *Fact) ValidAt(t time.Time) bool {
	if t.Before(f.ValidFrom) {
		return false
	}
	if f.ValidUntil == nil {
		return true
	}
	return t.Before(*f.ValidUntil)
}

// Candidate is an incoming assertion submitted to the belief revision engine.
type Candidate struct {
	MemorySpaceID string     `json:"memorySpaceId"`
	Subject       string     `json:"subject"`
	Predicate     string     `json:"predicate,omitempty"`
	Object        string     `json:"object,omitempty"`
	FactText      string     `json:"factText"`
	FactType      FactType   `json:"factType"`
	Confidence    int        `json:"confidence"`
	SourceRef     *SourceRef `json:"sourceRef,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	ParticipantID string     `json:"participantId,omitempty"`
}

// Validate checks the candidate before any store access.
func (c *Candidate) Validate() error {
	if err := CheckSpace(c.MemorySpaceID); err != nil {
		return err
	}
	if c.Subject == "" {
		return Validation("subject is required")
	}
	if c.FactText == "" {
		return Validation("factText is required")
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return Validationf("confidence %d out of range [0,100]", c.Confidence)
	}
	if c.SourceRef != nil {
		if err := c.SourceRef.Validate(); err != nil {
			return err
		}
	}
	return nil
}
