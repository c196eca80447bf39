// Package memory defines the entity model for the Cortex memory store.
//
// Every entity is scoped to exactly one memory space (the tenant/isolation
// unit) except the unscoped immutable and mutable stores, which are modeled
// as separate services. Facts carry a linear, immutable version chain; content
// records version in place; contexts form a bidirectional tree; conversations
// hold ordered append-only messages.
//
// The package holds only types, identifiers, reference kinds, and the typed
// error taxonomy. Mutation logic lives in pkg/revision, pkg/hierarchy, and
// pkg/cascade; persistence lives in pkg/storage.
package memory

import (
	"strings"

	"github.com/google/uuid"
)

// IDKind identifies the entity namespace an identifier belongs to.
type IDKind string

const (
	KindFact         IDKind = "fact"
	KindRecord       IDKind = "mem"
	KindContext      IDKind = "ctx"
	KindConversation IDKind = "conv"
	KindMessage      IDKind = "msg"
	KindEvent        IDKind = "evt"
)

// NewID mints a new identifier for the given kind. Identifiers are
// kind-prefixed so operations can reject ids of the wrong entity namespace.
func NewID(kind IDKind) string {
	return string(kind) + "-" + uuid.NewString()
}

// KindOf returns the IDKind encoded in an identifier, or false if the id has
// no recognized kind prefix.
func KindOf(id string) (IDKind, bool) {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return "", false
	}

	switch IDKind(prefix) {
	case KindFact, KindRecord, KindContext, KindConversation, KindMessage, KindEvent:
		return IDKind(prefix), true
	}
	return "", false
}

// CheckID verifies that id is non-empty and carries the expected kind prefix.
func CheckID(kind IDKind, id string) error {
	if id == "" {
		return Validation("id is required")
	}

	got, ok := KindOf(id)
	if !ok || got != kind {
		return Validationf("id %q is not a %s id", id, kind)
	}

	return nil
}

// CheckSpace verifies that a memory space identifier is present. Every
// operation requires one; the check runs before any store access.
func CheckSpace(memorySpaceID string) error {
	if strings.TrimSpace(memorySpaceID) == "" {
		return Validation("memorySpaceId is required")
	}
	return nil
}
