package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Manager enforces the run state machine over a Store. It owns the only
// transitions in the system; the stores just persist them.
type Manager struct {
	store Store
}

// NewManager creates a run lifecycle manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store exposes the underlying store for read paths.
func (m *Manager) Store() Store {
	return m.store
}

// Create opens a new pending run. The trigger evaluator is expected to have
// checked the in-flight slot already; the store re-validates atomically and
// returns *DuplicateInFlightError if a pending or running run exists.
func (m *Manager) Create(ctx context.Context, projectID uuid.UUID, analyzerType, triggerReason string) (*Run, error) {
	run, err := m.store.CreateRun(ctx, projectID, analyzerType, triggerReason)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// MarkRunning transitions a pending run to running and stamps StartedAt.
func (m *Manager) MarkRunning(ctx context.Context, runID uuid.UUID) (*Run, error) {
	now := time.Now().UTC()
	run, matched, err := m.store.UpdateRun(ctx, runID, Update{
		ExpectedStatus: []string{StatusPending},
		Status:         StatusRunning,
		StartedAt:      &now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark run running: %w", err)
	}
	if !matched {
		return nil, m.transitionError(ctx, runID, StatusRunning)
	}
	return run, nil
}

// MarkCompleted transitions a running run to completed. This is the only
// transition that carries a payload.
func (m *Manager) MarkCompleted(ctx context.Context, runID uuid.UUID, rawAnalysis string, parsedFields map[string]any) (*Run, error) {
	now := time.Now().UTC()
	run, matched, err := m.store.UpdateRun(ctx, runID, Update{
		ExpectedStatus: []string{StatusRunning},
		Status:         StatusCompleted,
		CompletedAt:    &now,
		RawAnalysis:    &rawAnalysis,
		ParsedFields:   parsedFields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark run completed: %w", err)
	}
	if !matched {
		return nil, m.transitionError(ctx, runID, StatusCompleted)
	}
	return run, nil
}

// MarkFailed records a failure and applies the bounded retry rule: below
// MaxRetries the same row flips back to pending with an incremented retry
// count; at the bound the run fails terminally. Valid from running, or from
// pending for pre-execution validation failures.
func (m *Manager) MarkFailed(ctx context.Context, runID uuid.UUID, errorMessage string) (*Run, error) {
	current, err := m.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if current == nil {
		return nil, &NotFoundError{RunID: runID}
	}
	if current.Status != StatusRunning && current.Status != StatusPending {
		return nil, &InvalidTransitionError{RunID: runID, From: current.Status, To: StatusFailed}
	}

	attempt := current.RetryCount + 1
	stamped := fmt.Sprintf("attempt %d: %s", attempt, errorMessage)

	upd := Update{
		ExpectedStatus: []string{current.Status},
		ErrorMessage:   &stamped,
		RetryCount:     &attempt,
	}
	if attempt < MaxRetries {
		upd.Status = StatusPending
	} else {
		now := time.Now().UTC()
		upd.Status = StatusFailed
		upd.CompletedAt = &now
	}

	run, matched, err := m.store.UpdateRun(ctx, runID, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to mark run failed: %w", err)
	}
	if !matched {
		return nil, m.transitionError(ctx, runID, StatusFailed)
	}
	return run, nil
}

// transitionError reconstructs the precise invalid-transition error after a
// conditional update found the run in an unexpected state.
func (m *Manager) transitionError(ctx context.Context, runID uuid.UUID, to string) error {
	current, err := m.store.GetRun(ctx, runID)
	if err != nil || current == nil {
		return &NotFoundError{RunID: runID}
	}
	return &InvalidTransitionError{RunID: runID, From: current.Status, To: to}
}
