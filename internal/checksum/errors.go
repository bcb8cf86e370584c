package checksum

import (
	"errors"
	"fmt"
)

// IntegrityErrorCode categorizes integrity failures.
type IntegrityErrorCode string

const (
	// ErrCodeChecksumMissing indicates a non-legacy record with no stored checksum.
	ErrCodeChecksumMissing IntegrityErrorCode = "CHECKSUM_MISSING"

	// ErrCodeChecksumMismatch indicates the stored checksum does not match the payload.
	ErrCodeChecksumMismatch IntegrityErrorCode = "CHECKSUM_MISMATCH"
)

// IntegrityError is a checksum verification failure.
// Recoverable via soft mode (log + continue) or the legacy flag;
// otherwise fatal to the read operation.
type IntegrityError struct {
	Code     IntegrityErrorCode
	RecordID string
	Expected string
	Actual   string
	Message  string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("%s: %s (raw_record=%s, expected=%s, actual=%s)",
			e.Code, e.Message, e.RecordID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s (raw_record=%s)", e.Code, e.Message, e.RecordID)
}

// IsChecksumMissing reports whether err is a missing-checksum failure.
// Uses errors.As to handle wrapped errors.
func IsChecksumMissing(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie) && ie.Code == ErrCodeChecksumMissing
}

// IsChecksumMismatch reports whether err is a checksum mismatch.
// Uses errors.As to handle wrapped errors.
func IsChecksumMismatch(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie) && ie.Code == ErrCodeChecksumMismatch
}
