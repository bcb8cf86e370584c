package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/galapoto/todiscope-v3-sub003/internal/artifact"
	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/engine"
	"github.com/galapoto/todiscope-v3-sub003/internal/export"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// badChecksum is stored for records declared corrupt in a scenario: a
// syntactically valid sha256 digest that cannot match any payload.
var badChecksum = strings.Repeat("0", 64)

// Result collects the outcome of executing a scenario.
type Result struct {
	Scenario *Scenario

	// Runs holds one entry per completed run, in execution order.
	Runs []engine.RunResult

	// Err is the first run failure. Execution stops at the first
	// failing run; nil means every run completed.
	Err error
}

// ResultSetStable reports whether every completed run derived the same
// result set ID.
func (r *Result) ResultSetStable() bool {
	if len(r.Runs) == 0 {
		return false
	}
	for _, run := range r.Runs[1:] {
		if run.ResultSetID != r.Runs[0].ResultSetID {
			return false
		}
	}
	return true
}

// ArtifactsStable reports whether every completed run exported
// byte-identical JSON and PDF artifacts.
func (r *Result) ArtifactsStable() bool {
	if len(r.Runs) == 0 {
		return false
	}
	first := r.Runs[0]
	for _, run := range r.Runs[1:] {
		if run.JSON.SHA256 != first.JSON.SHA256 || run.PDF.SHA256 != first.PDF.SHA256 {
			return false
		}
	}
	return true
}

// Run executes a scenario: ingest the dataset into a fresh ledger under
// workDir, then execute the identical run request scenario.Runs times
// against an in-memory artifact store.
//
// The returned error covers harness failures (ledger, ingest). Run
// failures land in Result.Err so scenarios can expect them.
func Run(s *Scenario, workDir string) (*Result, error) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	l, err := ledger.Open(filepath.Join(workDir, "harness.db"))
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer l.Close()

	if err := ingest(ctx, l, s.Dataset); err != nil {
		return nil, err
	}

	exporter := export.NewExporter(artifact.NewImmutableWriter(artifact.NewMemoryStore()), log)
	runner := engine.NewRunner(l, exporter, log)

	req := engine.RunRequest{
		DatasetVersionID: s.Dataset.ID,
		StartedAt:        s.startedAt(),
		TransactionScope: map[string]any{},
		Parameters:       s.parameters(),
		OptionalInputs:   map[string]engine.OptionalInput{},
	}

	result := &Result{Scenario: s}
	for i := 0; i < s.Runs; i++ {
		res, err := runner.Run(ctx, engine.DealReadiness{}, req, engine.RunOptions{})
		if err != nil {
			result.Err = err
			return result, nil
		}
		result.Runs = append(result.Runs, res)
	}
	return result, nil
}

func ingest(ctx context.Context, l *ledger.Ledger, ds DatasetSpec) error {
	if err := l.CreateDatasetVersion(ctx, ledger.DatasetVersion{
		ID:         ds.ID,
		SourceName: ds.SourceName,
		IngestedAt: ds.IngestedAt,
	}); err != nil {
		return fmt.Errorf("creating dataset version: %w", err)
	}

	for _, rec := range ds.Records {
		row := ledger.RawRecord{
			ID:               rec.ID,
			DatasetVersionID: ds.ID,
			SourceSystem:     rec.SourceSystem,
			SourceRecordID:   rec.SourceRecordID,
			Payload:          rec.Payload,
			LegacyNoChecksum: rec.Legacy,
			IngestedAt:       ds.IngestedAt,
		}
		switch {
		case rec.Legacy:
			// No checksum: verification bypasses the record.
		case rec.BadChecksum:
			row.FileChecksum = badChecksum
		default:
			sum, err := checksum.Checksum(rec.Payload)
			if err != nil {
				return fmt.Errorf("checksumming record %s: %w", rec.ID, err)
			}
			row.FileChecksum = sum
		}
		if err := l.InsertRawRecord(ctx, row); err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (s *Scenario) startedAt() string {
	if s.StartedAt != "" {
		return s.StartedAt
	}
	return s.Dataset.IngestedAt
}

func (s *Scenario) parameters() map[string]any {
	if s.Parameters == nil {
		return map[string]any{}
	}
	return s.Parameters
}
