// Package checksum computes and verifies the canonical-JSON SHA-256
// checksum attached to every raw record at ingestion.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/galapoto/todiscope-v3-sub003/internal/canon"
)

// Checksum returns the hex SHA-256 of the canonical JSON encoding of
// payload. Two semantically equal payloads with different key order
// hash identically.
func Checksum(payload any) (string, error) {
	data, err := canon.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Record is the view of a raw record the verifier needs. It is a value
// copy; verification never mutates the stored record.
type Record struct {
	ID               string
	Payload          any
	FileChecksum     string // hex SHA-256, empty when absent
	LegacyNoChecksum bool
}

// Verifier checks raw-record integrity on read.
// Log is used only in soft mode; strict failures carry typed errors.
type Verifier struct {
	Log *slog.Logger
}

// NewVerifier returns a Verifier logging through log.
func NewVerifier(log *slog.Logger) *Verifier {
	return &Verifier{Log: log}
}

// Verify checks rec's payload against its stored checksum.
//
// The legacy flag is the ONLY bypass: when LegacyNoChecksum is true the
// verifier returns true immediately, with no computation and no logging,
// regardless of the raiseOn flags or the stored checksum value.
//
// Otherwise:
//   - checksum absent: ChecksumMissing if raiseOnMissing, else log and true
//   - mismatch: ChecksumMismatch if raiseOnMismatch, else log and false
//   - match: true
func (v *Verifier) Verify(rec Record, raiseOnMissing, raiseOnMismatch bool) (bool, error) {
	if rec.LegacyNoChecksum {
		return true, nil
	}

	if rec.FileChecksum == "" {
		if raiseOnMissing {
			return false, &IntegrityError{
				Code:     ErrCodeChecksumMissing,
				RecordID: rec.ID,
				Message:  "raw record has no stored checksum",
			}
		}
		v.log().Warn("raw record missing checksum", "raw_record_id", rec.ID)
		return true, nil
	}

	computed, err := Checksum(rec.Payload)
	if err != nil {
		return false, &IntegrityError{
			Code:     ErrCodeChecksumMismatch,
			RecordID: rec.ID,
			Message:  fmt.Sprintf("payload not canonically encodable: %v", err),
		}
	}

	if computed != rec.FileChecksum {
		if raiseOnMismatch {
			return false, &IntegrityError{
				Code:     ErrCodeChecksumMismatch,
				RecordID: rec.ID,
				Expected: rec.FileChecksum,
				Actual:   computed,
				Message:  "stored checksum does not match payload",
			}
		}
		v.log().Warn("raw record checksum mismatch",
			"raw_record_id", rec.ID,
			"expected", rec.FileChecksum,
			"actual", computed,
		)
		return false, nil
	}

	return true, nil
}

func (v *Verifier) log() *slog.Logger {
	if v.Log != nil {
		return v.Log
	}
	return slog.Default()
}
