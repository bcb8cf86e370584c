package policy

import (
	"errors"
	"fmt"
)

// Stable policy error codes, surfaced verbatim at the CLI boundary.
const (
	ErrCodeNotFound          = "POLICY_DIR_NOT_FOUND"
	ErrCodeNoFiles           = "POLICY_NO_FILES"
	ErrCodeLoadFailed        = "POLICY_LOAD_FAILED"
	ErrCodeBuildFailed       = "POLICY_BUILD_FAILED"
	ErrCodeDecodeFailed      = "POLICY_DECODE_FAILED"
	ErrCodeOverlap           = "POLICY_OVERLAP"
	ErrCodeInvalidVisibility = "POLICY_INVALID_VISIBILITY"
	ErrCodeEmpty             = "POLICY_EMPTY"
)

// PolicyError is a typed policy loading or validation failure.
type PolicyError struct {
	Code   string
	Policy string // policy name, empty for directory-level failures
	Detail string
}

func (e *PolicyError) Error() string {
	if e.Policy != "" {
		return fmt.Sprintf("%s: policy %q: %s", e.Code, e.Policy, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// IsOverlap reports whether err is a POLICY_OVERLAP validation failure.
func IsOverlap(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe) && pe.Code == ErrCodeOverlap
}
