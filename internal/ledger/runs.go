package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertRun records a physical engine execution.
// Run IDs are unique per execution, so duplicates indicate a caller bug;
// ON CONFLICT DO NOTHING keeps crash-retry harmless anyway.
func (l *Ledger) InsertRun(ctx context.Context, engineID string, run Run) error {
	_, runs, err := tablesFor(engineID)
	if err != nil {
		return err
	}

	scopeJSON, err := marshalPayload(run.TransactionScope)
	if err != nil {
		return fmt.Errorf("insert run: transaction scope: %w", err)
	}
	paramsJSON, err := marshalPayload(run.Parameters)
	if err != nil {
		return fmt.Errorf("insert run: parameters: %w", err)
	}
	inputsJSON, err := marshalPayload(run.OptionalInputs)
	if err != nil {
		return fmt.Errorf("insert run: optional inputs: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO `+runs+`
		(id, result_set_id, dataset_version_id, started_at, status,
		 transaction_scope, parameters, optional_inputs, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID, run.ResultSetID, run.DatasetVersionID, run.StartedAt, run.Status,
		scopeJSON, paramsJSON, inputsJSON, run.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID from an engine's table.
func (l *Ledger) GetRun(ctx context.Context, engineID, id string) (Run, error) {
	_, runs, err := tablesFor(engineID)
	if err != nil {
		return Run{}, err
	}

	var run Run
	var scopeJSON, paramsJSON, inputsJSON string
	err = l.db.QueryRowContext(ctx, `
		SELECT id, result_set_id, dataset_version_id, started_at, status,
		       transaction_scope, parameters, optional_inputs, engine_version
		FROM `+runs+` WHERE id = ?
	`, id).Scan(
		&run.ID, &run.ResultSetID, &run.DatasetVersionID, &run.StartedAt,
		&run.Status, &scopeJSON, &paramsJSON, &inputsJSON, &run.EngineVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, &NotFoundError{Entity: "run", ID: id}
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}

	if run.TransactionScope, err = unmarshalPayload(scopeJSON); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	if run.Parameters, err = unmarshalPayload(paramsJSON); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	if run.OptionalInputs, err = unmarshalPayload(inputsJSON); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRunsByResultSet returns the physical executions sharing one
// result set, ordered by run id ascending (UUIDv7 ids are time-ordered).
func (l *Ledger) ListRunsByResultSet(ctx context.Context, engineID, resultSetID string) ([]Run, error) {
	_, runs, err := tablesFor(engineID)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, result_set_id, dataset_version_id, started_at, status,
		       transaction_scope, parameters, optional_inputs, engine_version
		FROM `+runs+`
		WHERE result_set_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, resultSetID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var scopeJSON, paramsJSON, inputsJSON string
		if err := rows.Scan(
			&run.ID, &run.ResultSetID, &run.DatasetVersionID, &run.StartedAt,
			&run.Status, &scopeJSON, &paramsJSON, &inputsJSON, &run.EngineVersion,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.TransactionScope, err = unmarshalPayload(scopeJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.Parameters, err = unmarshalPayload(paramsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.OptionalInputs, err = unmarshalPayload(inputsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	if out == nil {
		out = []Run{}
	}
	return out, nil
}
