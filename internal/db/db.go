// Package db provides PostgreSQL persistence for brand projects and
// analyzer runs.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Schema holds the DDL for the tables this package manages. The partial
// unique index on in-flight runs backs CreateRun's conditional insert even
// under concurrent triggers.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name             TEXT NOT NULL,
    business_name    TEXT NOT NULL DEFAULT '',
    one_liner        TEXT NOT NULL DEFAULT '',
    problem          TEXT NOT NULL DEFAULT '',
    solution         TEXT NOT NULL DEFAULT '',
    target_audience  TEXT NOT NULL DEFAULT '',
    audience_pains   TEXT NOT NULL DEFAULT '',
    audience_desires TEXT NOT NULL DEFAULT '',
    origin_story     TEXT NOT NULL DEFAULT '',
    founder_why      TEXT NOT NULL DEFAULT '',
    turning_point    TEXT NOT NULL DEFAULT '',
    core_values      TEXT[] NOT NULL DEFAULT '{}',
    differentiators  TEXT[] NOT NULL DEFAULT '{}',
    tone_formality   DOUBLE PRECISION,
    tone_playfulness DOUBLE PRECISION,
    voice_words      TEXT[] NOT NULL DEFAULT '{}',
    taboo_words      TEXT[] NOT NULL DEFAULT '{}',
    website_url      TEXT NOT NULL DEFAULT '',
    tagline          TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS analyzer_runs (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    project_id     UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    analyzer_type  TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending',
    retry_count    INT NOT NULL DEFAULT 0,
    trigger_reason TEXT NOT NULL DEFAULT '',
    error_message  TEXT,
    started_at     TIMESTAMPTZ,
    completed_at   TIMESTAMPTZ,
    raw_analysis   TEXT,
    parsed_fields  JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS analyzer_runs_project_idx
    ON analyzer_runs (project_id, created_at);

CREATE UNIQUE INDEX IF NOT EXISTS analyzer_runs_in_flight_idx
    ON analyzer_runs (project_id, analyzer_type)
    WHERE status IN ('pending', 'running');
`

// EnsureSchema creates the tables and indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
