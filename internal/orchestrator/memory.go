package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/brand-foundation/internal/foundation"
)

// MemoryRecordStore is an in-memory RecordStore for tests and local use.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*foundation.Record
}

// NewMemoryRecordStore creates an empty store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[uuid.UUID]*foundation.Record)}
}

// Put inserts or replaces a project's record and returns its ID.
func (s *MemoryRecordStore) Put(projectID uuid.UUID, rec *foundation.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[projectID] = &clone
}

// GetRecord returns a copy of the record, or (nil, nil) when missing.
func (s *MemoryRecordStore) GetRecord(_ context.Context, projectID uuid.UUID) (*foundation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[projectID]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// SaveRecord applies a whole-field patch to the stored record.
func (s *MemoryRecordStore) SaveRecord(_ context.Context, projectID uuid.UUID, patch *foundation.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[projectID]
	if !ok {
		return &ProjectNotFoundError{ProjectID: projectID}
	}
	rec.Apply(patch)
	return nil
}
