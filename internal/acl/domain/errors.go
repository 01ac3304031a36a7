package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed input: a missing required field, a
// payload that does not match its declared type, or a malformed identifier.
// The caller can fix the input; it is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// PolicyRef identifies a policy blocking some operation, enough for the
// caller to resolve the conflict without a second round trip.
type PolicyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConflictError reports a uniqueness violation on a name, or a
// referential-integrity violation on group deletion. For the latter,
// References lists every policy still pointing at the group.
type ConflictError struct {
	Name       string
	References []PolicyRef
}

func (e *ConflictError) Error() string {
	if len(e.References) == 0 {
		return fmt.Sprintf("name %q already exists", e.Name)
	}
	names := make([]string, 0, len(e.References))
	for _, r := range e.References {
		names = append(names, r.Name)
	}
	return fmt.Sprintf("%q is referenced by %d policies: %s",
		e.Name, len(e.References), strings.Join(names, ", "))
}

// NotFoundError reports an operation targeting an identifier that does not
// exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// StorageError wraps an unexpected failure from the durable store or the
// distributed cache.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
