package artifact

import (
	"errors"
	"fmt"
)

// StoreErrorCode categorizes artifact store failures.
type StoreErrorCode string

const (
	// ErrCodeNotFound indicates the key has no stored artifact.
	ErrCodeNotFound StoreErrorCode = "ARTIFACT_NOT_FOUND"

	// ErrCodeImmutableViolation indicates an attempt to overwrite a key
	// with different bytes. Always fatal, never retried: it signals a
	// derivation bug or a genuine data change attempt.
	ErrCodeImmutableViolation StoreErrorCode = "IMMUTABLE_WRITE_VIOLATION"
)

// StoreError is a typed artifact store failure.
type StoreError struct {
	Code    StoreErrorCode
	Key     string
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
}

// IsNotFound reports whether err is an absent-key failure.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeNotFound
}

// IsImmutableViolation reports whether err is an immutable overwrite attempt.
func IsImmutableViolation(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeImmutableViolation
}
