package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/galapoto/todiscope-v3-sub003/internal/artifact"
	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/export"
	"github.com/galapoto/todiscope-v3-sub003/internal/ids"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// RunOptions selects the externalization behavior of a run.
// A nil Policy exports the internal view unfiltered.
type RunOptions struct {
	Policy *policy.Policy
	Salt   string
}

// RunResult reports a completed run.
type RunResult struct {
	RunID       string
	ResultSetID string
	Findings    []ledger.FindingRecord
	Report      map[string]any
	View        map[string]any
	JSON        artifact.StoredArtifact
	PDF         artifact.StoredArtifact
}

// Runner orchestrates an engine run end to end: validate the request,
// verify record checksums on read, derive the result set, evaluate,
// persist evidence/findings/links/run, assemble the report, and export
// it through the immutable artifact writer.
//
// All persisted rows are keyed by deterministic IDs and written with
// conflict-checked idempotent inserts, so a crashed or replayed run
// converges on the same rows and the same artifact bytes.
type Runner struct {
	Ledger   *ledger.Ledger
	Verifier *checksum.Verifier
	Exporter *export.Exporter
	RunIDs   ids.RunIDGenerator
	Log      *slog.Logger
}

// NewRunner wires a Runner with UUIDv7 run IDs.
func NewRunner(l *ledger.Ledger, e *export.Exporter, log *slog.Logger) *Runner {
	return &Runner{
		Ledger:   l,
		Verifier: checksum.NewVerifier(log),
		Exporter: e,
		RunIDs:   ids.UUIDv7RunIDs{},
		Log:      log,
	}
}

// Run executes eng against the dataset named in req.
func (r *Runner) Run(ctx context.Context, eng Engine, req RunRequest, opts RunOptions) (RunResult, error) {
	if err := req.Validate(); err != nil {
		return RunResult{}, err
	}

	dv, err := r.Ledger.GetDatasetVersion(ctx, req.DatasetVersionID)
	if err != nil {
		return RunResult{}, err
	}

	records, err := r.Ledger.ListRawRecordsForDataset(ctx, dv.ID)
	if err != nil {
		return RunResult{}, err
	}
	for _, rec := range records {
		if _, err := r.Verifier.Verify(rec.Verifiable(), true, true); err != nil {
			return RunResult{}, fmt.Errorf("run aborted: %w", err)
		}
	}

	optInputs := optionalInputsValue(req.OptionalInputs)
	resultSetID, err := ids.ResultSetID(
		dv.ID, eng.ID(), eng.Version(),
		req.TransactionScope, req.Parameters, optInputs,
	)
	if err != nil {
		return RunResult{}, err
	}

	drafts, err := eng.Evaluate(ctx, Inputs{
		DatasetVersionID: dv.ID,
		Records:          records,
		TransactionScope: req.TransactionScope,
		Parameters:       req.Parameters,
		OptionalInputs:   req.OptionalInputs,
	})
	if err != nil {
		return RunResult{}, r.recordFailedRun(ctx, eng, req, dv, resultSetID.String(), optInputs, err)
	}

	if _, err := r.persistDrafts(ctx, eng, dv, resultSetID.String(), drafts); err != nil {
		return RunResult{}, err
	}

	runID := r.RunIDs.NewRunID()
	if err := r.Ledger.InsertRun(ctx, eng.ID(), ledger.Run{
		ID:               runID,
		ResultSetID:      resultSetID.String(),
		DatasetVersionID: dv.ID,
		StartedAt:        req.StartedAt,
		Status:           ledger.RunStatusCompleted,
		TransactionScope: req.TransactionScope,
		Parameters:       req.Parameters,
		OptionalInputs:   optInputs,
		EngineVersion:    eng.Version(),
	}); err != nil {
		return RunResult{}, err
	}

	// Re-read through the ledger so the report sees the stored rows in
	// their deterministic order, not the draft sequence.
	stored, err := r.Ledger.ListFindingsByResultSet(ctx, eng.ID(), resultSetID.String())
	if err != nil {
		return RunResult{}, err
	}

	report := AssembleReport(resultSetID.String(), dv, stored, req.Parameters)
	result := RunResult{
		RunID:       runID,
		ResultSetID: resultSetID.String(),
		Findings:    stored,
		Report:      report,
	}

	if r.Exporter != nil {
		if err := r.export(ctx, eng, dv, &result, opts); err != nil {
			return RunResult{}, err
		}
	}

	r.log().Info("run completed",
		"engine_id", eng.ID(),
		"run_id", runID,
		"result_set_id", result.ResultSetID,
		"findings", len(stored),
	)
	return result, nil
}

// persistDrafts derives deterministic IDs for every draft and writes
// evidence, findings, and links via idempotent conflict-checked
// inserts. Evidence created_at is the dataset's ingestion time, not
// the run's start time, so replays with a later started_at converge on
// byte-identical evidence rows.
func (r *Runner) persistDrafts(ctx context.Context, eng Engine, dv ledger.DatasetVersion, resultSetID string, drafts []Draft) ([]ledger.FindingRecord, error) {
	findings := make([]ledger.FindingRecord, 0, len(drafts))
	for _, d := range drafts {
		evidenceID, err := ids.EvidenceID(dv.ID, eng.ID(), d.Kind, d.EvidencePayload)
		if err != nil {
			return nil, err
		}
		if _, err := r.Ledger.CreateEvidenceIfAbsent(ctx, ledger.EvidenceRecord{
			ID:               evidenceID.String(),
			DatasetVersionID: dv.ID,
			EngineID:         eng.ID(),
			Kind:             d.Kind,
			Payload:          d.EvidencePayload,
			CreatedAt:        dv.IngestedAt,
		}); err != nil {
			return nil, err
		}

		findingID, err := ids.FindingID(dv.ID, eng.ID(), d.RawRecordID, d.Kind, d.EvidencePayload)
		if err != nil {
			return nil, err
		}
		f, err := r.Ledger.CreateFindingIfAbsent(ctx, eng.ID(), ledger.FindingRecord{
			ID:               findingID.String(),
			ResultSetID:      resultSetID,
			DatasetVersionID: dv.ID,
			RawRecordID:      d.RawRecordID,
			Kind:             d.Kind,
			Severity:         d.Severity,
			Title:            d.Title,
			Detail:           d.Detail,
			EvidenceID:       evidenceID.String(),
			EngineVersion:    eng.Version(),
		})
		if err != nil {
			return nil, err
		}

		if err := r.Ledger.LinkFindingToEvidence(ctx, f.ID, evidenceID.String()); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func (r *Runner) export(ctx context.Context, eng Engine, dv ledger.DatasetVersion, result *RunResult, opts RunOptions) error {
	view := result.Report
	viewType := "internal"
	if opts.Policy != nil {
		external, err := export.CreateExternalView(result.Report, *opts.Policy, opts.Salt)
		if err != nil {
			return err
		}
		view = external
		viewType = "external"
	}
	result.View = view

	meta := export.Meta{
		EngineID:         eng.ID(),
		DatasetVersionID: dv.ID,
		ResultSetID:      result.ResultSetID,
		ViewType:         viewType,
	}

	jsonArt, err := r.Exporter.ExportJSON(ctx, meta, view)
	if err != nil {
		return err
	}
	pdfArt, err := r.Exporter.ExportPDF(ctx, meta,
		"Deal Readiness Report "+result.ResultSetID,
		ReportLines(result.Findings),
	)
	if err != nil {
		return err
	}

	result.JSON = jsonArt
	result.PDF = pdfArt
	return nil
}

// ReExport rebuilds the report for a previously derived result set and
// writes its artifacts again. Exports are content-keyed and immutable,
// so re-exporting an unchanged result set converges on the stored bytes;
// it is how artifacts lost from a purged store are regenerated.
func (r *Runner) ReExport(ctx context.Context, eng Engine, resultSetID string, opts RunOptions) (RunResult, error) {
	runs, err := r.Ledger.ListRunsByResultSet(ctx, eng.ID(), resultSetID)
	if err != nil {
		return RunResult{}, err
	}
	if len(runs) == 0 {
		return RunResult{}, &ledger.NotFoundError{Entity: "result set", ID: resultSetID}
	}
	src := runs[0]
	for _, run := range runs {
		if run.Status == ledger.RunStatusCompleted {
			src = run
			break
		}
	}
	if src.Status != ledger.RunStatusCompleted {
		return RunResult{}, fmt.Errorf("result set %s has no completed run to export", resultSetID)
	}

	dv, err := r.Ledger.GetDatasetVersion(ctx, src.DatasetVersionID)
	if err != nil {
		return RunResult{}, err
	}
	stored, err := r.Ledger.ListFindingsByResultSet(ctx, eng.ID(), resultSetID)
	if err != nil {
		return RunResult{}, err
	}

	// Parameters round-trip through canonical JSON, so the reassembled
	// report marshals to the same bytes the original run exported.
	params, _ := src.Parameters.(map[string]any)
	result := RunResult{
		RunID:       src.ID,
		ResultSetID: resultSetID,
		Findings:    stored,
		Report:      AssembleReport(resultSetID, dv, stored, params),
	}

	if r.Exporter != nil {
		if err := r.export(ctx, eng, dv, &result, opts); err != nil {
			return RunResult{}, err
		}
	}

	r.log().Info("result set re-exported",
		"engine_id", eng.ID(),
		"result_set_id", resultSetID,
		"findings", len(stored),
	)
	return result, nil
}

// recordFailedRun persists a failed run row and returns the original
// evaluation error wrapped with context.
func (r *Runner) recordFailedRun(ctx context.Context, eng Engine, req RunRequest, dv ledger.DatasetVersion, resultSetID string, optInputs map[string]any, evalErr error) error {
	runID := r.RunIDs.NewRunID()
	if err := r.Ledger.InsertRun(ctx, eng.ID(), ledger.Run{
		ID:               runID,
		ResultSetID:      resultSetID,
		DatasetVersionID: dv.ID,
		StartedAt:        req.StartedAt,
		Status:           ledger.RunStatusFailed,
		TransactionScope: req.TransactionScope,
		Parameters:       req.Parameters,
		OptionalInputs:   optInputs,
		EngineVersion:    eng.Version(),
	}); err != nil {
		r.log().Error("recording failed run", "run_id", runID, "error", err)
	}
	return fmt.Errorf("engine %s evaluation: %w", eng.ID(), evalErr)
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
