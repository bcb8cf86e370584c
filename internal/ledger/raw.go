package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateDatasetVersion inserts a dataset version.
// Idempotent on ID via ON CONFLICT DO NOTHING.
func (l *Ledger) CreateDatasetVersion(ctx context.Context, dv DatasetVersion) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO dataset_versions (id, source_name, ingested_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, dv.ID, dv.SourceName, dv.IngestedAt)
	if err != nil {
		return fmt.Errorf("create dataset version: %w", err)
	}
	return nil
}

// GetDatasetVersion retrieves a dataset version by ID.
func (l *Ledger) GetDatasetVersion(ctx context.Context, id string) (DatasetVersion, error) {
	var dv DatasetVersion
	err := l.db.QueryRowContext(ctx, `
		SELECT id, source_name, ingested_at FROM dataset_versions WHERE id = ?
	`, id).Scan(&dv.ID, &dv.SourceName, &dv.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetVersion{}, &NotFoundError{Entity: "dataset_version", ID: id}
	}
	if err != nil {
		return DatasetVersion{}, fmt.Errorf("get dataset version: %w", err)
	}
	return dv, nil
}

// InsertRawRecord inserts a raw record at ingestion time.
// Idempotent on ID via ON CONFLICT DO NOTHING.
func (l *Ledger) InsertRawRecord(ctx context.Context, rec RawRecord) error {
	payloadJSON, err := marshalPayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("insert raw record: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO raw_records
		(id, dataset_version_id, source_system, source_record_id, payload,
		 file_checksum, legacy_no_checksum, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.DatasetVersionID,
		rec.SourceSystem,
		rec.SourceRecordID,
		payloadJSON,
		nullableChecksum(rec.FileChecksum),
		boolToInt(rec.LegacyNoChecksum),
		rec.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert raw record: %w", err)
	}
	return nil
}

// GetRawRecord retrieves a raw record by ID.
func (l *Ledger) GetRawRecord(ctx context.Context, id string) (RawRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, dataset_version_id, source_system, source_record_id, payload,
		       file_checksum, legacy_no_checksum, ingested_at
		FROM raw_records
		WHERE id = ?
	`, id)

	rec, err := scanRawRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return RawRecord{}, &NotFoundError{Entity: "raw_record", ID: id}
	}
	return rec, err
}

// ListRawRecordsForDataset returns all raw records of a dataset version
// in deterministic order (id ASC COLLATE BINARY).
func (l *Ledger) ListRawRecordsForDataset(ctx context.Context, datasetVersionID string) ([]RawRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, dataset_version_id, source_system, source_record_id, payload,
		       file_checksum, legacy_no_checksum, ingested_at
		FROM raw_records
		WHERE dataset_version_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, datasetVersionID)
	if err != nil {
		return nil, fmt.Errorf("query raw records: %w", err)
	}
	defer rows.Close()

	return collectRawRecords(rows)
}

// ListRawRecordsMissingChecksum returns up to limit records with a NULL
// checksum and legacy flag unset, with id strictly greater than afterID,
// ordered by id ascending.
//
// The exclusive lower-bound cursor (not OFFSET) keeps pagination correct
// under concurrent inserts with ascending keys after the cursor.
func (l *Ledger) ListRawRecordsMissingChecksum(ctx context.Context, afterID string, limit int) ([]RawRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, dataset_version_id, source_system, source_record_id, payload,
		       file_checksum, legacy_no_checksum, ingested_at
		FROM raw_records
		WHERE file_checksum IS NULL AND legacy_no_checksum = 0
		  AND id > ?
		ORDER BY id COLLATE BINARY ASC
		LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query missing checksums: %w", err)
	}
	defer rows.Close()

	return collectRawRecords(rows)
}

// CountRawRecordsMissingChecksum returns how many records lack a
// checksum and are not flagged legacy.
func (l *Ledger) CountRawRecordsMissingChecksum(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM raw_records
		WHERE file_checksum IS NULL AND legacy_no_checksum = 0
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count missing checksums: %w", err)
	}
	return count, nil
}

// SetRawRecordChecksum persists a computed checksum.
// Reserved for the backfill coordinator; engines never mutate records.
func (l *Ledger) SetRawRecordChecksum(ctx context.Context, tx *sql.Tx, id, sum string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE raw_records SET file_checksum = ? WHERE id = ?
	`, sum, id)
	if err != nil {
		return fmt.Errorf("set checksum: %w", err)
	}
	return requireOneRow(res, "raw_record", id)
}

// FlagRawRecordLegacy marks a record permanently exempt from
// verification. Reserved for the backfill coordinator.
func (l *Ledger) FlagRawRecordLegacy(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE raw_records SET legacy_no_checksum = 1 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("flag legacy: %w", err)
	}
	return requireOneRow(res, "raw_record", id)
}

// FlagAllMissingAsLegacy sets the legacy flag on every record with a
// NULL checksum in one transaction and returns the IDs touched, in
// ascending order.
func (l *Ledger) FlagAllMissingAsLegacy(ctx context.Context) ([]string, error) {
	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM raw_records
		WHERE file_checksum IS NULL AND legacy_no_checksum = 0
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("flag all legacy: query: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("flag all legacy: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("flag all legacy: iterate: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `
		UPDATE raw_records SET legacy_no_checksum = 1
		WHERE file_checksum IS NULL AND legacy_no_checksum = 0
	`); err != nil {
		return nil, fmt.Errorf("flag all legacy: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("flag all legacy: commit: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Begin exposes a transaction for the backfill coordinator's per-batch
// commit discipline.
func (l *Ledger) Begin(ctx context.Context) (*sql.Tx, error) {
	return l.begin(ctx)
}

// scanRawRecord scans one raw record row via the given scan function.
func scanRawRecord(scan func(dest ...any) error) (RawRecord, error) {
	var rec RawRecord
	var payloadJSON string
	var fileChecksum sql.NullString
	var legacy int

	if err := scan(
		&rec.ID, &rec.DatasetVersionID, &rec.SourceSystem, &rec.SourceRecordID,
		&payloadJSON, &fileChecksum, &legacy, &rec.IngestedAt,
	); err != nil {
		return RawRecord{}, err
	}

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return RawRecord{}, err
	}
	rec.Payload = payload
	if fileChecksum.Valid {
		rec.FileChecksum = fileChecksum.String
	}
	rec.LegacyNoChecksum = legacy != 0
	return rec, nil
}

func collectRawRecords(rows *sql.Rows) ([]RawRecord, error) {
	var records []RawRecord
	for rows.Next() {
		rec, err := scanRawRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan raw record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw records: %w", err)
	}
	if records == nil {
		records = []RawRecord{}
	}
	return records, nil
}

// nullableChecksum maps "" to NULL so the partial backfill index and
// IS NULL scans see absent checksums.
func nullableChecksum(sum string) any {
	if sum == "" {
		return nil
	}
	return sum
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireOneRow converts a zero-row UPDATE into a NotFoundError.
func requireOneRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
