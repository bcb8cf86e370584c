package export

import (
	"errors"
	"fmt"
)

// ErrCodeViewViolation marks an external view that still carries
// internal sections or redacted field names after construction.
const ErrCodeViewViolation = "EXTERNAL_VIEW_VIOLATION"

// ViewError is a typed externalization failure.
type ViewError struct {
	Code   string
	Path   string // report path of the offending section or field
	Detail string
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Detail)
}

// IsViewViolation reports whether err is an EXTERNAL_VIEW_VIOLATION.
func IsViewViolation(err error) bool {
	var ve *ViewError
	return errors.As(err, &ve) && ve.Code == ErrCodeViewViolation
}
