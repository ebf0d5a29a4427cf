package runs

import (
	"fmt"

	"github.com/google/uuid"
)

// DuplicateInFlightError indicates a run creation attempt while another run
// for the same (project, analyzer) is still pending or running. Callers
// should treat it as "already running", not as a hard failure.
type DuplicateInFlightError struct {
	ProjectID    uuid.UUID
	AnalyzerType string
}

func (e *DuplicateInFlightError) Error() string {
	return fmt.Sprintf("analyzer %s already in flight for project %s", e.AnalyzerType, e.ProjectID)
}

// InvalidTransitionError indicates a lifecycle call from a state it is not
// valid in (for example MarkCompleted on a pending run). It is a
// programming-contract violation and is never retried.
type InvalidTransitionError struct {
	RunID uuid.UUID
	From  string
	To    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("run %s: invalid transition %s -> %s", e.RunID, e.From, e.To)
}

// NotFoundError indicates the referenced run does not exist.
type NotFoundError struct {
	RunID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}
