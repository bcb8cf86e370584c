package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateEvidenceIfAbsent inserts an evidence record keyed by its
// deterministic ID, or verifies it against the stored row.
//
// Three-tier check, all inside one transaction:
//  1. existence: absent -> insert
//  2. identity fields (dataset_version_id, engine_id, kind): any
//     mismatch is a hard conflict - a different logical object was
//     assigned the same deterministic ID
//  3. content fields (created_at, canonical payload bytes): mismatch is
//     also a conflict
//
// Only full agreement returns the existing row silently, which is what
// keeps replays cheap: a duplicate engine run is a no-op, never a dupe.
func (l *Ledger) CreateEvidenceIfAbsent(ctx context.Context, ev EvidenceRecord) (EvidenceRecord, error) {
	payloadJSON, err := marshalPayload(ev.Payload)
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("create evidence: %w", err)
	}

	tx, err := l.begin(ctx)
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("create evidence: %w", err)
	}
	defer tx.Rollback()

	var existing EvidenceRecord
	var existingPayload string
	err = tx.QueryRowContext(ctx, `
		SELECT id, dataset_version_id, engine_id, kind, payload, created_at
		FROM evidence_records WHERE id = ?
	`, ev.ID).Scan(
		&existing.ID, &existing.DatasetVersionID, &existing.EngineID,
		&existing.Kind, &existingPayload, &existing.CreatedAt,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_records
			(id, dataset_version_id, engine_id, kind, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ev.ID, ev.DatasetVersionID, ev.EngineID, ev.Kind, payloadJSON, ev.CreatedAt); err != nil {
			return EvidenceRecord{}, fmt.Errorf("create evidence: insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return EvidenceRecord{}, fmt.Errorf("create evidence: commit: %w", err)
		}
		return ev, nil

	case err != nil:
		return EvidenceRecord{}, fmt.Errorf("create evidence: select: %w", err)
	}

	// Tier 2: identity fields.
	if field, ok := firstMismatch(
		mismatch{"dataset_version_id", existing.DatasetVersionID, ev.DatasetVersionID},
		mismatch{"engine_id", existing.EngineID, ev.EngineID},
		mismatch{"kind", existing.Kind, ev.Kind},
	); !ok {
		return EvidenceRecord{}, &ConflictError{
			Entity: "evidence", ID: ev.ID, Field: field,
			Message: "identity fields disagree for the same deterministic ID",
		}
	}

	// Tier 3: content fields, payload compared byte-for-byte in
	// canonical form.
	if field, ok := firstMismatch(
		mismatch{"created_at", existing.CreatedAt, ev.CreatedAt},
		mismatch{"payload", existingPayload, payloadJSON},
	); !ok {
		return EvidenceRecord{}, &ConflictError{
			Entity: "evidence", ID: ev.ID, Field: field,
			Message: "content differs from previously stored record",
		}
	}

	if err := tx.Commit(); err != nil {
		return EvidenceRecord{}, fmt.Errorf("create evidence: commit: %w", err)
	}

	payload, err := unmarshalPayload(existingPayload)
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("create evidence: %w", err)
	}
	existing.Payload = payload
	return existing, nil
}

// GetEvidence retrieves an evidence record by ID.
func (l *Ledger) GetEvidence(ctx context.Context, id string) (EvidenceRecord, error) {
	var ev EvidenceRecord
	var payloadJSON string
	err := l.db.QueryRowContext(ctx, `
		SELECT id, dataset_version_id, engine_id, kind, payload, created_at
		FROM evidence_records WHERE id = ?
	`, id).Scan(&ev.ID, &ev.DatasetVersionID, &ev.EngineID, &ev.Kind, &payloadJSON, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EvidenceRecord{}, &NotFoundError{Entity: "evidence", ID: id}
	}
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("get evidence: %w", err)
	}

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("get evidence: %w", err)
	}
	ev.Payload = payload
	return ev, nil
}

// LinkFindingToEvidence records a finding->evidence edge.
// Idempotent on the exact (finding_id, evidence_id) pair; the same
// finding linked to a different evidence record is a conflict.
func (l *Ledger) LinkFindingToEvidence(ctx context.Context, findingID, evidenceID string) error {
	tx, err := l.begin(ctx)
	if err != nil {
		return fmt.Errorf("link finding: %w", err)
	}
	defer tx.Rollback()

	var existingEvidence string
	err = tx.QueryRowContext(ctx, `
		SELECT evidence_id FROM finding_evidence_links WHERE finding_id = ?
	`, findingID).Scan(&existingEvidence)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO finding_evidence_links (finding_id, evidence_id)
			VALUES (?, ?)
		`, findingID, evidenceID); err != nil {
			return fmt.Errorf("link finding: insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("link finding: commit: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("link finding: select: %w", err)
	}

	if existingEvidence != evidenceID {
		return &ConflictError{
			Entity: "finding_evidence_link", ID: findingID, Field: "evidence_id",
			Message: fmt.Sprintf("finding already linked to evidence %s", existingEvidence),
		}
	}

	return tx.Commit()
}

// mismatch pairs a field name with its stored and requested values.
type mismatch struct {
	field  string
	stored string
	got    string
}

// firstMismatch returns the first disagreeing field name, or ok=true
// when every pair agrees.
func firstMismatch(pairs ...mismatch) (string, bool) {
	for _, p := range pairs {
		if p.stored != p.got {
			return p.field, false
		}
	}
	return "", true
}
