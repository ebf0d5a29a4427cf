package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/brand-foundation/internal/foundation"
)

// Project is a brand project row: identity plus its foundation record.
type Project struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Record    foundation.Record `json:"record"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

const projectColumns = `id, name,
	business_name, one_liner, problem, solution,
	target_audience, audience_pains, audience_desires,
	origin_story, founder_why, turning_point,
	core_values, differentiators,
	tone_formality, tone_playfulness, voice_words, taboo_words,
	website_url, tagline,
	created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name,
		&p.Record.BusinessName, &p.Record.OneLiner, &p.Record.Problem, &p.Record.Solution,
		&p.Record.TargetAudience, &p.Record.AudiencePains, &p.Record.AudienceDesires,
		&p.Record.OriginStory, &p.Record.FounderWhy, &p.Record.TurningPoint,
		&p.Record.CoreValues, &p.Record.Differentiators,
		&p.Record.ToneFormality, &p.Record.TonePlayfulness, &p.Record.VoiceWords, &p.Record.TabooWords,
		&p.Record.WebsiteURL, &p.Record.Tagline,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new project with an empty record and returns it.
func (db *DB) CreateProject(ctx context.Context, name string) (*Project, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO projects (name) VALUES ($1) RETURNING `+projectColumns,
		name,
	)
	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// GetProject retrieves a project by ID, or (nil, nil) when missing.
func (db *DB) GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		projectID,
	)
	p, err := scanProject(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects retrieves recent projects.
func (db *DB) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// DeleteProject deletes a project and its runs (via cascade).
func (db *DB) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// GetRecord returns just the foundation record, or (nil, nil) when the
// project does not exist. Implements orchestrator.RecordStore.
func (db *DB) GetRecord(ctx context.Context, projectID uuid.UUID) (*foundation.Record, error) {
	p, err := db.GetProject(ctx, projectID)
	if err != nil || p == nil {
		return nil, err
	}
	rec := p.Record
	return &rec, nil
}

// SaveRecord applies a whole-field patch to the project row. Column names
// come from the patch's own field constants, never from request input.
func (db *DB) SaveRecord(ctx context.Context, projectID uuid.UUID, patch *foundation.Patch) error {
	if patch == nil {
		return nil
	}
	assignments := patch.Assignments()
	if len(assignments) == 0 {
		return nil
	}

	var sets []string
	args := []any{projectID}
	for i, a := range assignments {
		sets = append(sets, fmt.Sprintf("%s = $%d", a.Field, i+2))
		args = append(args, a.Value)
	}
	query := fmt.Sprintf(
		`UPDATE projects SET %s, updated_at = NOW() WHERE id = $1`,
		strings.Join(sets, ", "),
	)

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}
