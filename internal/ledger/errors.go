package ledger

import (
	"errors"
	"fmt"
)

// ErrCodeImmutableConflict is the stable code for append-only conflicts.
const ErrCodeImmutableConflict = "IMMUTABLE_CONFLICT"

// ErrCodeNotFound is the stable code for absent entities.
const ErrCodeNotFound = "NOT_FOUND"

// ConflictError signals that a deterministic ID already holds different
// content. Always fatal, never retried: two logical objects mapping to
// one ID means an ID-derivation bug, a hash collision, or a genuine
// attempt to change append-only data.
type ConflictError struct {
	Entity  string // "evidence", "finding", "finding_evidence_link"
	ID      string
	Field   string // first field that disagreed
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %s already exists with different %s: %s",
			ErrCodeImmutableConflict, e.Entity, e.ID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", ErrCodeImmutableConflict, e.Entity, e.ID, e.Message)
}

// IsConflict reports whether err is an immutable conflict.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// NotFoundError signals an absent entity. Terminal for the request.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrCodeNotFound, e.Entity, e.ID)
}

// IsNotFound reports whether err is an absent-entity failure.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
