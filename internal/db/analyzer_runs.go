package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/brand-foundation/internal/runs"
)

// The methods in this file implement runs.Store on top of Postgres.

const runColumns = `id, project_id, analyzer_type, status, retry_count,
	trigger_reason, error_message, started_at, completed_at,
	raw_analysis, parsed_fields, created_at, updated_at`

func scanRun(row pgx.Row) (*runs.Run, error) {
	var run runs.Run
	var parsedJSON []byte
	err := row.Scan(&run.ID, &run.ProjectID, &run.AnalyzerType, &run.Status, &run.RetryCount,
		&run.TriggerReason, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt,
		&run.RawAnalysis, &parsedJSON, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parsedJSON != nil {
		_ = json.Unmarshal(parsedJSON, &run.ParsedFields)
	}
	return &run, nil
}

// CreateRun inserts a pending run, atomically rejecting creation while a
// pending or running row exists for the same (project, analyzer). The
// conditional insert makes the check-and-set a single statement; the
// partial unique index in the schema backs it up.
func (db *DB) CreateRun(ctx context.Context, projectID uuid.UUID, analyzerType, triggerReason string) (*runs.Run, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO analyzer_runs (project_id, analyzer_type, status, trigger_reason)
		 SELECT $1, $2, 'pending', $3
		 WHERE NOT EXISTS (
		     SELECT 1 FROM analyzer_runs
		     WHERE project_id = $1 AND analyzer_type = $2
		       AND status IN ('pending', 'running')
		 )
		 RETURNING `+runColumns,
		projectID, analyzerType, triggerReason,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, &runs.DuplicateInFlightError{ProjectID: projectID, AnalyzerType: analyzerType}
		}
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID, or (nil, nil) when missing.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*runs.Run, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM analyzer_runs WHERE id = $1`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves all runs for a project ordered by creation time.
func (db *DB) ListRuns(ctx context.Context, projectID uuid.UUID) ([]runs.Run, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM analyzer_runs
		 WHERE project_id = $1 ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []runs.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, nil
}

// UpdateRun applies a conditional update. The status condition is part of
// the UPDATE's WHERE clause, so the state check and the write are one
// atomic statement.
func (db *DB) UpdateRun(ctx context.Context, runID uuid.UUID, upd runs.Update) (*runs.Run, bool, error) {
	var parsedJSON []byte
	if upd.ParsedFields != nil {
		var err error
		parsedJSON, err = json.Marshal(upd.ParsedFields)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal parsed fields: %w", err)
		}
	}

	var expected []string
	if len(upd.ExpectedStatus) > 0 {
		expected = upd.ExpectedStatus
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE analyzer_runs SET
		     status        = COALESCE(NULLIF($2, ''), status),
		     retry_count   = COALESCE($3, retry_count),
		     error_message = COALESCE($4, error_message),
		     started_at    = COALESCE($5, started_at),
		     completed_at  = COALESCE($6, completed_at),
		     raw_analysis  = COALESCE($7, raw_analysis),
		     parsed_fields = COALESCE($8, parsed_fields),
		     updated_at    = NOW()
		 WHERE id = $1 AND ($9::text[] IS NULL OR status = ANY($9))
		 RETURNING `+runColumns,
		runID, upd.Status, upd.RetryCount, upd.ErrorMessage,
		upd.StartedAt, upd.CompletedAt, upd.RawAnalysis, parsedJSON, expected,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a missing run from a failed status condition.
			existing, gerr := db.GetRun(ctx, runID)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing == nil {
				return nil, false, &runs.NotFoundError{RunID: runID}
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to update run: %w", err)
	}
	return run, true, nil
}
