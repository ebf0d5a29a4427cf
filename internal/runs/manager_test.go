package runs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, uuid.UUID) {
	t.Helper()
	return NewManager(NewMemoryStore()), uuid.New()
}

func TestManager_HappyPath(t *testing.T) {
	ctx := context.Background()
	m, projectID := newManager(t)

	run, err := m.Create(ctx, projectID, "narrative", "fields complete")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, run.Status)
	assert.Equal(t, 0, run.RetryCount)
	assert.Nil(t, run.StartedAt)

	run, err = m.MarkRunning(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.NotNil(t, run.StartedAt)

	run, err = m.MarkCompleted(ctx, run.ID, "raw analysis text", map[string]any{"archetype": "hero"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, "raw analysis text", *run.RawAnalysis)
	assert.Equal(t, "hero", run.ParsedFields["archetype"])
}

func TestManager_DuplicateInFlight(t *testing.T) {
	ctx := context.Background()
	m, projectID := newManager(t)

	first, err := m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)

	_, err = m.Create(ctx, projectID, "narrative", "test")
	var dup *DuplicateInFlightError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "narrative", dup.AnalyzerType)

	// A different analyzer type is unaffected.
	_, err = m.Create(ctx, projectID, "voice", "test")
	require.NoError(t, err)

	// And a different project is unaffected.
	_, err = m.Create(ctx, uuid.New(), "narrative", "test")
	require.NoError(t, err)

	// Once the first run settles, the slot reopens.
	_, err = m.MarkRunning(ctx, first.ID)
	require.NoError(t, err)
	_, err = m.MarkCompleted(ctx, first.ID, "raw", nil)
	require.NoError(t, err)
	_, err = m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)
}

func TestManager_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m, projectID := newManager(t)

	run, err := m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)

	// completed requires running.
	_, err = m.MarkCompleted(ctx, run.ID, "raw", nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusPending, invalid.From)

	_, err = m.MarkRunning(ctx, run.ID)
	require.NoError(t, err)

	// running -> running is invalid.
	_, err = m.MarkRunning(ctx, run.ID)
	require.ErrorAs(t, err, &invalid)

	_, err = m.MarkCompleted(ctx, run.ID, "raw", nil)
	require.NoError(t, err)

	// Terminal states accept nothing further.
	_, err = m.MarkFailed(ctx, run.ID, "late failure")
	require.ErrorAs(t, err, &invalid)

	// Unknown run.
	_, err = m.MarkRunning(ctx, uuid.New())
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestManager_FailedFromPending(t *testing.T) {
	// Pre-execution validation failures may fail a run before it starts.
	ctx := context.Background()
	m, projectID := newManager(t)

	run, err := m.Create(ctx, projectID, "web_scraper", "test")
	require.NoError(t, err)

	run, err = m.MarkFailed(ctx, run.ID, "invalid website_url")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, run.Status, "first failure retries")
	assert.Equal(t, 1, run.RetryCount)
	assert.Contains(t, *run.ErrorMessage, "attempt 1")
}

func TestManager_RetryBound(t *testing.T) {
	ctx := context.Background()
	m, projectID := newManager(t)

	run, err := m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)

	// Exactly MaxRetries consecutive failures end in terminal failed.
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		_, err = m.MarkRunning(ctx, run.ID)
		require.NoError(t, err)

		run, err = m.MarkFailed(ctx, run.ID, "llm timeout")
		require.NoError(t, err)
		assert.Equal(t, attempt, run.RetryCount)

		if attempt < MaxRetries {
			assert.Equal(t, StatusPending, run.Status)
			assert.Nil(t, run.CompletedAt)
		}
	}

	assert.Equal(t, StatusFailed, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.Contains(t, *run.ErrorMessage, "attempt 3")

	// No further pending transition: the chain is terminal.
	var invalid *InvalidTransitionError
	_, err = m.MarkFailed(ctx, run.ID, "again")
	require.ErrorAs(t, err, &invalid)

	// The in-flight slot is free again.
	_, err = m.Create(ctx, projectID, "narrative", "retry after terminal failure")
	require.NoError(t, err)
}

func TestLatestAndHasCompleted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	projectID := uuid.New()

	first, err := m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)
	_, err = m.MarkRunning(ctx, first.ID)
	require.NoError(t, err)
	_, err = m.MarkCompleted(ctx, first.ID, "raw", nil)
	require.NoError(t, err)

	second, err := m.Create(ctx, projectID, "narrative", "test")
	require.NoError(t, err)

	history, err := store.ListRuns(ctx, projectID)
	require.NoError(t, err)

	latest := Latest(history, "narrative")
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	assert.True(t, HasCompleted(history, "narrative"))
	assert.False(t, HasCompleted(history, "voice"))
	assert.Nil(t, Latest(history, "voice"))
}
