package storage

import (
	"strings"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// FactFilter selects facts for list/count/search. The zero value matches all
// live facts across all spaces; engines always set MemorySpaceID.
type FactFilter struct {
	MemorySpaceID string
	Subject       string
	Predicate     string
	FactType      memory.FactType
	Tags          []string
	MinConfidence int
	ParticipantID string

	// IncludeSuperseded also returns superseded and soft-deleted facts.
	IncludeSuperseded bool

	// ValidAt selects facts valid at the given instant: validFrom <= t and
	// (validUntil unset or validUntil > t). Implies superseded facts may
	// match when their validity window covers t.
	ValidAt *time.Time

	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	// Query is a case-insensitive keyword match over factText, subject,
	// object, and enrichment search aliases.
	Query string

	Limit  int
	Offset int
}

// Matches reports whether the fact passes the filter. Shared by the
// in-memory driver and used by SQL drivers for the parts SQL cannot express
// (alias keyword matching).
func (f FactFilter) Matches(fact *memory.Fact) bool {
	if f.MemorySpaceID != "" && fact.MemorySpaceID != f.MemorySpaceID {
		return false
	}
	if f.Subject != "" && fact.Subject != f.Subject {
		return false
	}
	if f.Predicate != "" && fact.Predicate != f.Predicate {
		return false
	}
	if f.FactType != "" && fact.FactType != f.FactType {
		return false
	}
	if f.ParticipantID != "" && fact.ParticipantID != f.ParticipantID {
		return false
	}
	if fact.Confidence < f.MinConfidence {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(fact.Tags, tag) {
			return false
		}
	}

	if f.ValidAt != nil {
		if !fact.ValidAt(*f.ValidAt) {
			return false
		}
	} else if !f.IncludeSuperseded {
		if fact.SupersededBy != nil || fact.ValidUntil != nil {
			return false
		}
	}

	if f.CreatedAfter != nil && fact.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && fact.CreatedAt.After(*f.CreatedBefore) {
		return false
	}

	if f.Query != "" && !factMatchesQuery(fact, f.Query) {
		return false
	}

	return true
}

func factMatchesQuery(fact *memory.Fact, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(fact.FactText), q) {
		return true
	}
	if strings.Contains(strings.ToLower(fact.Subject), q) {
		return true
	}
	if strings.Contains(strings.ToLower(fact.Object), q) {
		return true
	}
	for _, alias := range fact.Enrichment.SearchAliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return true
		}
	}
	return false
}

// RecordFilter selects content records.
type RecordFilter struct {
	MemorySpaceID string
	UserID        string
	ContentType   string
	Tags          []string
	MinImportance int
	ParticipantID string

	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	// Query is a case-insensitive keyword match over content.
	Query string

	Limit  int
	Offset int
}

// Matches reports whether the record passes the filter.
func (f RecordFilter) Matches(record *memory.ContentRecord) bool {
	if f.MemorySpaceID != "" && record.MemorySpaceID != f.MemorySpaceID {
		return false
	}
	if f.UserID != "" && record.UserID != f.UserID {
		return false
	}
	if f.ContentType != "" && record.ContentType != f.ContentType {
		return false
	}
	if f.ParticipantID != "" && record.ParticipantID != f.ParticipantID {
		return false
	}
	if record.Importance < f.MinImportance {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(record.Tags, tag) {
			return false
		}
	}
	if f.CreatedAfter != nil && record.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && record.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(record.Content), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// ContextFilter selects context nodes.
type ContextFilter struct {
	MemorySpaceID string
	Status        memory.ContextStatus
	RootID        string
	ParentID      *string

	// Query is a case-insensitive keyword match over purpose.
	Query string

	Limit  int
	Offset int
}

// Matches reports whether the context passes the filter.
func (f ContextFilter) Matches(node *memory.Context) bool {
	if f.MemorySpaceID != "" && node.MemorySpaceID != f.MemorySpaceID {
		return false
	}
	if f.Status != "" && node.Status != f.Status {
		return false
	}
	if f.RootID != "" && node.RootID != f.RootID {
		return false
	}
	if f.ParentID != nil {
		if node.ParentID == nil || *node.ParentID != *f.ParentID {
			return false
		}
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(node.Purpose), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// ConversationFilter selects conversations.
type ConversationFilter struct {
	MemorySpaceID string
	Type          string
	Participant   string

	// Query is a case-insensitive keyword match over message content.
	Query string

	Limit  int
	Offset int
}

// Matches reports whether the conversation passes the filter.
func (f ConversationFilter) Matches(conv *memory.Conversation) bool {
	if f.MemorySpaceID != "" && conv.MemorySpaceID != f.MemorySpaceID {
		return false
	}
	if f.Type != "" && conv.Type != f.Type {
		return false
	}
	if f.Participant != "" && !containsString(conv.Participants, f.Participant) {
		return false
	}
	if f.Query != "" && !conversationMatchesQuery(conv, f.Query) {
		return false
	}
	return true
}

func conversationMatchesQuery(conv *memory.Conversation, query string) bool {
	query = strings.ToLower(query)
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// Page applies Limit/Offset windowing to an already-filtered slice.
func Page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
