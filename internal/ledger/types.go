package ledger

import "github.com/galapoto/todiscope-v3-sub003/internal/checksum"

// DatasetVersion identifies one ingested dataset snapshot.
type DatasetVersion struct {
	ID         string `json:"id"` // UUIDv7
	SourceName string `json:"source_name"`
	IngestedAt string `json:"ingested_at"` // RFC 3339
}

// RawRecord is one checksum-verified ingested record.
// The payload is immutable; file_checksum and legacy_no_checksum may be
// mutated only by the backfill coordinator, never by engines.
type RawRecord struct {
	ID               string `json:"raw_record_id"`
	DatasetVersionID string `json:"dataset_version_id"`
	SourceSystem     string `json:"source_system"`
	SourceRecordID   string `json:"source_record_id"`
	Payload          any    `json:"payload"`
	FileChecksum     string `json:"file_checksum,omitempty"` // hex, empty when absent
	LegacyNoChecksum bool   `json:"legacy_no_checksum"`
	IngestedAt       string `json:"ingested_at"` // RFC 3339
}

// Verifiable returns the view the checksum verifier consumes.
func (r RawRecord) Verifiable() checksum.Record {
	return checksum.Record{
		ID:               r.ID,
		Payload:          r.Payload,
		FileChecksum:     r.FileChecksum,
		LegacyNoChecksum: r.LegacyNoChecksum,
	}
}

// EvidenceRecord is an append-only evidence row keyed by deterministic ID.
// Created once per ID; later writes must match exactly or conflict.
type EvidenceRecord struct {
	ID               string `json:"evidence_id"` // deterministic UUID
	DatasetVersionID string `json:"dataset_version_id"`
	EngineID         string `json:"engine_id"`
	Kind             string `json:"kind"`
	Payload          any    `json:"payload"`
	CreatedAt        string `json:"created_at"` // RFC 3339
}

// FindingRecord is an engine finding keyed by deterministic ID.
// Write-once: an existing ID with identical content is returned
// unchanged; a content mismatch is an immutable conflict.
type FindingRecord struct {
	ID               string `json:"finding_id"` // deterministic UUID
	ResultSetID      string `json:"result_set_id"`
	DatasetVersionID string `json:"dataset_version_id"`
	RawRecordID      string `json:"raw_record_id"`
	Kind             string `json:"kind"`
	Severity         string `json:"severity"`
	Title            string `json:"title"`
	Detail           string `json:"detail"`
	EvidenceID       string `json:"evidence_id"`
	EngineVersion    string `json:"engine_version"`
}

// Run records one physical engine execution. RunID is unique per
// execution; ResultSetID is the replay-stable join key.
type Run struct {
	ID               string `json:"run_id"` // UUIDv7
	ResultSetID      string `json:"result_set_id"`
	DatasetVersionID string `json:"dataset_version_id"`
	StartedAt        string `json:"started_at"` // RFC 3339 with zone
	Status           string `json:"status"`
	TransactionScope any    `json:"transaction_scope"`
	Parameters       any    `json:"parameters"`
	OptionalInputs   any    `json:"optional_inputs"`
	EngineVersion    string `json:"engine_version"`
}

// Run status values.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
