// Package backfill repairs raw records that predate checksum capture.
// It is the only component permitted to mutate file_checksum or
// legacy_no_checksum, and the only one that absorbs integrity errors
// instead of propagating them.
package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// Outcome labels recorded per processed record.
const (
	OutcomeBackfilled        = "backfilled"
	OutcomeFlagFailedCompute = "flag_failed_compute"
	OutcomeFlagMismatch      = "flag_failed_mismatch"
)

// Report summarizes one backfill pass.
type Report struct {
	TotalMissing  int
	Backfilled    int
	FlaggedLegacy int
	Failures      int
	Outcomes      map[string]string
}

// Coordinator paginates through records missing checksums and either
// persists a freshly computed checksum or flags the record legacy.
//
// Compute is the checksum function; it defaults to checksum.Checksum
// and exists as a field so tests can simulate corruption between
// computation and the post-write verification.
type Coordinator struct {
	Ledger   *ledger.Ledger
	Verifier *checksum.Verifier
	Log      *slog.Logger
	Compute  func(payload any) (string, error)
}

// New returns a Coordinator over l logging through log.
func New(l *ledger.Ledger, log *slog.Logger) *Coordinator {
	return &Coordinator{
		Ledger:   l,
		Verifier: checksum.NewVerifier(log),
		Log:      log,
	}
}

// FlagLegacy marks every record with a missing checksum as permanently
// legacy, in one transaction, and returns the IDs touched in ascending
// order. This is the blunt alternative to Run for datasets whose
// original payload bytes are known to be unrecoverable.
func (c *Coordinator) FlagLegacy(ctx context.Context) ([]string, error) {
	ids, err := c.Ledger.FlagAllMissingAsLegacy(ctx)
	if err != nil {
		return nil, fmt.Errorf("flag legacy: %w", err)
	}
	c.log().Info("flagged legacy records", "count", len(ids))
	return ids, nil
}

// Run backfills checksums in batches of batchSize, committing per
// batch. Records walk forward on a strictly increasing ID cursor, so
// concurrent inserts with ascending keys are neither skipped nor
// double-counted.
//
// Per record: a checksum that cannot be computed flags the record
// legacy; a computed checksum that fails post-write verification also
// flags it legacy. Neither failure aborts the pass. A second Run on
// the same table reports TotalMissing of zero.
func (c *Coordinator) Run(ctx context.Context, batchSize int) (Report, error) {
	if batchSize <= 0 {
		return Report{}, fmt.Errorf("backfill: batch size must be positive, got %d", batchSize)
	}

	report := Report{Outcomes: map[string]string{}}

	total, err := c.Ledger.CountRawRecordsMissingChecksum(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("backfill: %w", err)
	}
	report.TotalMissing = total

	after := ""
	for {
		batch, err := c.Ledger.ListRawRecordsMissingChecksum(ctx, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("backfill: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if err := c.processBatch(ctx, batch, &report); err != nil {
			return report, err
		}
		after = batch[len(batch)-1].ID

		c.log().Info("backfill batch committed",
			"processed", len(batch),
			"cursor", after,
		)
	}

	return report, nil
}

func (c *Coordinator) processBatch(ctx context.Context, batch []ledger.RawRecord, report *Report) error {
	tx, err := c.Ledger.Begin(ctx)
	if err != nil {
		return fmt.Errorf("backfill: begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range batch {
		sum, err := c.compute(rec.Payload)
		if err != nil {
			if err := c.Ledger.FlagRawRecordLegacy(ctx, tx, rec.ID); err != nil {
				return fmt.Errorf("backfill: flag %s: %w", rec.ID, err)
			}
			report.FlaggedLegacy++
			report.Failures++
			report.Outcomes[rec.ID] = OutcomeFlagFailedCompute
			c.log().Warn("checksum computation failed, record flagged legacy",
				"raw_record_id", rec.ID, "error", err)
			continue
		}

		if err := c.Ledger.SetRawRecordChecksum(ctx, tx, rec.ID, sum); err != nil {
			return fmt.Errorf("backfill: set checksum %s: %w", rec.ID, err)
		}

		// Post-write verification with strict flags. A mismatch here
		// means the payload and the computed sum already disagree, so
		// the record can never verify; flag it rather than leave it
		// half-repaired.
		verified := rec.Verifiable()
		verified.FileChecksum = sum
		if _, err := c.Verifier.Verify(verified, true, true); err != nil {
			if !checksum.IsChecksumMismatch(err) {
				return fmt.Errorf("backfill: verify %s: %w", rec.ID, err)
			}
			if err := c.Ledger.FlagRawRecordLegacy(ctx, tx, rec.ID); err != nil {
				return fmt.Errorf("backfill: flag %s: %w", rec.ID, err)
			}
			report.FlaggedLegacy++
			report.Failures++
			report.Outcomes[rec.ID] = OutcomeFlagMismatch
			c.log().Warn("post-write verification failed, record flagged legacy",
				"raw_record_id", rec.ID)
			continue
		}

		report.Backfilled++
		report.Outcomes[rec.ID] = OutcomeBackfilled
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("backfill: commit batch: %w", err)
	}
	return nil
}

func (c *Coordinator) compute(payload any) (string, error) {
	if c.Compute != nil {
		return c.Compute(payload)
	}
	return checksum.Checksum(payload)
}

func (c *Coordinator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
