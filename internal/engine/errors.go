package engine

import (
	"errors"
	"fmt"
)

// Validation error codes, one per rejected request shape, so the
// boundary can map each failure to a precise client-facing code.
const (
	ErrCodeMissingField            = "VALIDATION_MISSING_FIELD"
	ErrCodeInvalidDatasetVersionID = "VALIDATION_INVALID_DATASET_VERSION_ID"
	ErrCodeInvalidStartedAt        = "VALIDATION_INVALID_STARTED_AT"
	ErrCodeInvalidOptionalInput    = "VALIDATION_INVALID_OPTIONAL_INPUT"
)

// ValidationError rejects a run request before any side effect occurs.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Code, e.Field, e.Message)
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
