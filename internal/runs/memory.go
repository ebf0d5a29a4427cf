package runs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and by the CLI when no
// database is configured. The mutex makes CreateRun's in-flight check and
// UpdateRun's status condition atomic, matching the contract the Postgres
// store satisfies with conditional SQL.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*Run
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]*Run)}
}

// CreateRun inserts a pending run unless one is already in flight for the
// same (project, analyzer).
func (s *MemoryStore) CreateRun(_ context.Context, projectID uuid.UUID, analyzerType, triggerReason string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ProjectID == projectID && run.AnalyzerType == analyzerType && run.InFlight() {
			return nil, &DuplicateInFlightError{ProjectID: projectID, AnalyzerType: analyzerType}
		}
	}

	now := time.Now().UTC()
	run := &Run{
		ID:            uuid.New(),
		ProjectID:     projectID,
		AnalyzerType:  analyzerType,
		Status:        StatusPending,
		TriggerReason: triggerReason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.runs[run.ID] = run

	out := *run
	return &out, nil
}

// GetRun returns a copy of the run, or (nil, nil) when missing.
func (s *MemoryStore) GetRun(_ context.Context, runID uuid.UUID) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	out := *run
	return &out, nil
}

// ListRuns returns the project's runs ordered by creation time.
func (s *MemoryStore) ListRuns(_ context.Context, projectID uuid.UUID) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Run
	for _, run := range s.runs {
		if run.ProjectID == projectID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateRun applies a conditional update under the store lock.
func (s *MemoryStore) UpdateRun(_ context.Context, runID uuid.UUID, upd Update) (*Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, false, &NotFoundError{RunID: runID}
	}

	if len(upd.ExpectedStatus) > 0 {
		matched := false
		for _, status := range upd.ExpectedStatus {
			if run.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return nil, false, nil
		}
	}

	if upd.Status != "" {
		run.Status = upd.Status
	}
	if upd.RetryCount != nil {
		run.RetryCount = *upd.RetryCount
	}
	if upd.ErrorMessage != nil {
		run.ErrorMessage = upd.ErrorMessage
	}
	if upd.StartedAt != nil {
		run.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		run.CompletedAt = upd.CompletedAt
	}
	if upd.RawAnalysis != nil {
		run.RawAnalysis = upd.RawAnalysis
	}
	if upd.ParsedFields != nil {
		run.ParsedFields = upd.ParsedFields
	}
	run.UpdatedAt = time.Now().UTC()

	out := *run
	return &out, true, nil
}
