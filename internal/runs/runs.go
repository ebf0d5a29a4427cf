// Package runs manages the lifecycle of analyzer runs: the
// pending/running/completed/failed state machine, bounded retry, and the
// at-most-one-in-flight-per-(project, analyzer) invariant.
package runs

import (
	"time"

	"github.com/google/uuid"
)

// Run status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MaxRetries bounds how many times a failed run is flipped back to pending
// before it fails terminally.
const MaxRetries = 3

// Run is one attempt chain of an analyzer against a project. RawAnalysis and
// ParsedFields are opaque executor payloads set only on completion.
type Run struct {
	ID            uuid.UUID      `json:"id"`
	ProjectID     uuid.UUID      `json:"project_id"`
	AnalyzerType  string         `json:"analyzer_type"`
	Status        string         `json:"status"`
	RetryCount    int            `json:"retry_count"`
	TriggerReason string         `json:"trigger_reason,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	RawAnalysis   *string        `json:"raw_analysis,omitempty"`
	ParsedFields  map[string]any `json:"parsed_fields,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// InFlight reports whether the run occupies the per-(project, analyzer)
// in-flight slot.
func (r *Run) InFlight() bool {
	return r.Status == StatusPending || r.Status == StatusRunning
}

// Settled reports whether the run reached a terminal-or-successful state.
func (r *Run) Settled() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Latest returns the most recently created run of analyzerType in history,
// or nil.
func Latest(history []Run, analyzerType string) *Run {
	var latest *Run
	for i := range history {
		run := &history[i]
		if run.AnalyzerType != analyzerType {
			continue
		}
		if latest == nil || run.CreatedAt.After(latest.CreatedAt) {
			latest = run
		}
	}
	return latest
}

// HasCompleted reports whether history contains a completed run of
// analyzerType.
func HasCompleted(history []Run, analyzerType string) bool {
	for i := range history {
		if history[i].AnalyzerType == analyzerType && history[i].Status == StatusCompleted {
			return true
		}
	}
	return false
}
