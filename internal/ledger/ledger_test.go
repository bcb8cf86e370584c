package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		l.Close()
	}

	l, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer l.Close()

	tables := []string{
		"dataset_versions", "raw_records", "evidence_records",
		"deal_readiness_findings", "finding_evidence_links", "deal_readiness_runs",
	}
	for _, table := range tables {
		var name string
		err := l.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/test.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	l := &Ledger{db: nil}
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestTablesFor_UnknownEngine(t *testing.T) {
	_, _, err := tablesFor("no-such-engine")
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
