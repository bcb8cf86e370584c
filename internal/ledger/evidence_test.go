package ledger

import (
	"context"
	"testing"
)

func seedDataset(t *testing.T, l *Ledger, id string) {
	t.Helper()
	err := l.CreateDatasetVersion(context.Background(), DatasetVersion{
		ID:         id,
		SourceName: "crm-export",
		IngestedAt: "2026-05-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateDatasetVersion() failed: %v", err)
	}
}

func testEvidence(id string) EvidenceRecord {
	return EvidenceRecord{
		ID:               id,
		DatasetVersionID: "dsv-1",
		EngineID:         "deal-readiness",
		Kind:             "missing_field",
		Payload:          map[string]any{"field": "counterparty", "record": "r-1"},
		CreatedAt:        "2026-05-01T10:05:00Z",
	}
}

func TestCreateEvidenceIfAbsent_Insert(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")

	got, err := l.CreateEvidenceIfAbsent(context.Background(), testEvidence("ev-1"))
	if err != nil {
		t.Fatalf("CreateEvidenceIfAbsent() failed: %v", err)
	}
	if got.ID != "ev-1" {
		t.Errorf("ID = %q", got.ID)
	}
}

func TestCreateEvidenceIfAbsent_ExactDuplicateIsNoOp(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")
	ctx := context.Background()

	if _, err := l.CreateEvidenceIfAbsent(ctx, testEvidence("ev-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same content, different map construction order.
	dup := testEvidence("ev-1")
	dup.Payload = map[string]any{"record": "r-1", "field": "counterparty"}

	got, err := l.CreateEvidenceIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate create failed: %v", err)
	}
	if got.Kind != "missing_field" || got.CreatedAt != "2026-05-01T10:05:00Z" {
		t.Errorf("existing row not returned intact: %+v", got)
	}

	var count int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM evidence_records").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestCreateEvidenceIfAbsent_IdentityConflict(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")
	ctx := context.Background()

	if _, err := l.CreateEvidenceIfAbsent(ctx, testEvidence("ev-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	other := testEvidence("ev-1")
	other.EngineID = "another-engine"
	_, err := l.CreateEvidenceIfAbsent(ctx, other)
	if !IsConflict(err) {
		t.Errorf("expected ConflictError for identity mismatch, got %v", err)
	}
}

func TestCreateEvidenceIfAbsent_PayloadConflict(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")
	ctx := context.Background()

	if _, err := l.CreateEvidenceIfAbsent(ctx, testEvidence("ev-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	other := testEvidence("ev-1")
	other.Payload = map[string]any{"field": "counterparty", "record": "r-2"}
	_, err := l.CreateEvidenceIfAbsent(ctx, other)
	if !IsConflict(err) {
		t.Errorf("expected ConflictError for payload mismatch, got %v", err)
	}
}

func TestCreateEvidenceIfAbsent_CreatedAtConflict(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")
	ctx := context.Background()

	if _, err := l.CreateEvidenceIfAbsent(ctx, testEvidence("ev-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	other := testEvidence("ev-1")
	other.CreatedAt = "2026-05-01T10:06:00Z"
	_, err := l.CreateEvidenceIfAbsent(ctx, other)
	if !IsConflict(err) {
		t.Errorf("expected ConflictError for created_at mismatch, got %v", err)
	}
}

func TestGetEvidence_NotFound(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.GetEvidence(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestLinkFindingToEvidence_IdempotentAndConflicting(t *testing.T) {
	l := openTestLedger(t)
	seedDataset(t, l, "dsv-1")
	ctx := context.Background()

	if _, err := l.CreateEvidenceIfAbsent(ctx, testEvidence("ev-1")); err != nil {
		t.Fatalf("create evidence failed: %v", err)
	}
	ev2 := testEvidence("ev-2")
	ev2.Payload = map[string]any{"field": "amount", "record": "r-1"}
	if _, err := l.CreateEvidenceIfAbsent(ctx, ev2); err != nil {
		t.Fatalf("create evidence failed: %v", err)
	}

	if err := l.LinkFindingToEvidence(ctx, "f-1", "ev-1"); err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	if err := l.LinkFindingToEvidence(ctx, "f-1", "ev-1"); err != nil {
		t.Errorf("idempotent relink failed: %v", err)
	}

	err := l.LinkFindingToEvidence(ctx, "f-1", "ev-2")
	if !IsConflict(err) {
		t.Errorf("expected ConflictError for relink to different evidence, got %v", err)
	}
}
