package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateFindingIfAbsent inserts a finding keyed by its deterministic ID,
// or verifies it against the stored row. Same three-tier discipline as
// CreateEvidenceIfAbsent: existence, then identity fields
// (dataset_version_id, raw_record_id, kind), then content fields.
// An exact match returns the existing row unchanged (idempotent insert);
// a content mismatch is an ErrCodeImmutableConflict, a distinct failure
// class from "already exists with same content".
func (l *Ledger) CreateFindingIfAbsent(ctx context.Context, engineID string, f FindingRecord) (FindingRecord, error) {
	findings, _, err := tablesFor(engineID)
	if err != nil {
		return FindingRecord{}, err
	}

	tx, err := l.begin(ctx)
	if err != nil {
		return FindingRecord{}, fmt.Errorf("create finding: %w", err)
	}
	defer tx.Rollback()

	var existing FindingRecord
	err = tx.QueryRowContext(ctx, `
		SELECT id, result_set_id, dataset_version_id, raw_record_id, kind,
		       severity, title, detail, evidence_id, engine_version
		FROM `+findings+` WHERE id = ?
	`, f.ID).Scan(
		&existing.ID, &existing.ResultSetID, &existing.DatasetVersionID,
		&existing.RawRecordID, &existing.Kind, &existing.Severity,
		&existing.Title, &existing.Detail, &existing.EvidenceID, &existing.EngineVersion,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO `+findings+`
			(id, result_set_id, dataset_version_id, raw_record_id, kind,
			 severity, title, detail, evidence_id, engine_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			f.ID, f.ResultSetID, f.DatasetVersionID, f.RawRecordID, f.Kind,
			f.Severity, f.Title, f.Detail, f.EvidenceID, f.EngineVersion,
		); err != nil {
			return FindingRecord{}, fmt.Errorf("create finding: insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return FindingRecord{}, fmt.Errorf("create finding: commit: %w", err)
		}
		return f, nil

	case err != nil:
		return FindingRecord{}, fmt.Errorf("create finding: select: %w", err)
	}

	// Tier 2: identity fields.
	if field, ok := firstMismatch(
		mismatch{"dataset_version_id", existing.DatasetVersionID, f.DatasetVersionID},
		mismatch{"raw_record_id", existing.RawRecordID, f.RawRecordID},
		mismatch{"kind", existing.Kind, f.Kind},
	); !ok {
		return FindingRecord{}, &ConflictError{
			Entity: "finding", ID: f.ID, Field: field,
			Message: "identity fields disagree for the same deterministic ID",
		}
	}

	// Tier 3: content fields.
	if field, ok := firstMismatch(
		mismatch{"result_set_id", existing.ResultSetID, f.ResultSetID},
		mismatch{"severity", existing.Severity, f.Severity},
		mismatch{"title", existing.Title, f.Title},
		mismatch{"detail", existing.Detail, f.Detail},
		mismatch{"evidence_id", existing.EvidenceID, f.EvidenceID},
		mismatch{"engine_version", existing.EngineVersion, f.EngineVersion},
	); !ok {
		return FindingRecord{}, &ConflictError{
			Entity: "finding", ID: f.ID, Field: field,
			Message: "content differs from previously stored record",
		}
	}

	if err := tx.Commit(); err != nil {
		return FindingRecord{}, fmt.Errorf("create finding: commit: %w", err)
	}
	return existing, nil
}

// GetFinding retrieves a finding by ID from an engine's table.
func (l *Ledger) GetFinding(ctx context.Context, engineID, id string) (FindingRecord, error) {
	findings, _, err := tablesFor(engineID)
	if err != nil {
		return FindingRecord{}, err
	}

	var f FindingRecord
	err = l.db.QueryRowContext(ctx, `
		SELECT id, result_set_id, dataset_version_id, raw_record_id, kind,
		       severity, title, detail, evidence_id, engine_version
		FROM `+findings+` WHERE id = ?
	`, id).Scan(
		&f.ID, &f.ResultSetID, &f.DatasetVersionID, &f.RawRecordID, &f.Kind,
		&f.Severity, &f.Title, &f.Detail, &f.EvidenceID, &f.EngineVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return FindingRecord{}, &NotFoundError{Entity: "finding", ID: id}
	}
	if err != nil {
		return FindingRecord{}, fmt.Errorf("get finding: %w", err)
	}
	return f, nil
}

// ListFindingsByResultSet returns all findings of a result set in
// deterministic order (id ASC COLLATE BINARY). Report assembly depends
// on this ordering for replay-stable section layout.
func (l *Ledger) ListFindingsByResultSet(ctx context.Context, engineID, resultSetID string) ([]FindingRecord, error) {
	findings, _, err := tablesFor(engineID)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, result_set_id, dataset_version_id, raw_record_id, kind,
		       severity, title, detail, evidence_id, engine_version
		FROM `+findings+`
		WHERE result_set_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, resultSetID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var out []FindingRecord
	for rows.Next() {
		var f FindingRecord
		if err := rows.Scan(
			&f.ID, &f.ResultSetID, &f.DatasetVersionID, &f.RawRecordID, &f.Kind,
			&f.Severity, &f.Title, &f.Detail, &f.EvidenceID, &f.EngineVersion,
		); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	if out == nil {
		out = []FindingRecord{}
	}
	return out, nil
}
