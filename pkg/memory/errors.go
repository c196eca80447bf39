package memory

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code. Callers branch on codes
// rather than message text; this is a library-style interface, not a process.
type Code string

const (
	// CodeValidation indicates malformed or out-of-range input, detected
	// before any store access. Always recoverable by correcting input.
	CodeValidation Code = "VALIDATION_ERROR"

	CodeFactNotFound         Code = "FACT_NOT_FOUND"
	CodeMemoryNotFound       Code = "MEMORY_NOT_FOUND"
	CodeContextNotFound      Code = "CONTEXT_NOT_FOUND"
	CodeParentNotFound       Code = "PARENT_NOT_FOUND"
	CodeConversationNotFound Code = "CONVERSATION_NOT_FOUND"

	// CodePermissionDenied indicates a cross-memory-space mutation attempt.
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// CodeHasChildren blocks a context delete on a non-empty subtree when
	// cascadeChildren was not set.
	CodeHasChildren Code = "HAS_CHILDREN"

	// CodeConflict indicates a concurrent head-fork collision on a fact
	// lineage. The engine does not auto-retry; callers are expected to.
	CodeConflict Code = "CONFLICT"
)

// Error is the typed error carried across every package boundary.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is makes errors.Is match on code equality so sentinel-style comparisons
// work against any Error instance with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a typed error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation creates a VALIDATION_ERROR.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Validationf creates a VALIDATION_ERROR with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates the not-found error for the given id kind.
func NotFound(kind IDKind, id string) *Error {
	code := map[IDKind]Code{
		KindFact:         CodeFactNotFound,
		KindRecord:       CodeMemoryNotFound,
		KindContext:      CodeContextNotFound,
		KindConversation: CodeConversationNotFound,
	}[kind]

	return &Error{Code: code, Message: string(kind) + " " + id + " not found"}
}

// PermissionDenied creates a PERMISSION_DENIED error.
func PermissionDenied(message string) *Error {
	return &Error{Code: CodePermissionDenied, Message: message}
}

// CodeOf extracts the error code, or empty string for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
