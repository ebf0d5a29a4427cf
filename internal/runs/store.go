package runs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Update describes a conditional run mutation. When ExpectedStatus is
// non-empty the store must apply the update only if the run's current status
// is one of the expected values, atomically with the write; a plain
// read-then-write admits a race between two concurrent transitions.
type Update struct {
	ExpectedStatus []string

	Status       string
	RetryCount   *int
	ErrorMessage *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RawAnalysis  *string
	ParsedFields map[string]any
}

// Store is the persistence boundary for analyzer runs. CreateRun must be
// atomic with respect to the "no pending/running run for this (project,
// analyzer)" check and return *DuplicateInFlightError when the slot is
// occupied. GetRun returns (nil, nil) when the run does not exist.
type Store interface {
	CreateRun(ctx context.Context, projectID uuid.UUID, analyzerType, triggerReason string) (*Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, projectID uuid.UUID) ([]Run, error)
	// UpdateRun applies the update and reports whether the status condition
	// matched. (nil, false, nil) means the run exists but was not in an
	// expected state; a missing run is an error.
	UpdateRun(ctx context.Context, runID uuid.UUID, upd Update) (*Run, bool, error)
}
