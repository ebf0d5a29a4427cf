package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brand-foundation/internal/analyzers"
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// fakeExecutor scripts per-analyzer outcomes.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]map[string]any // analyzerType -> parsed fields
	fails   map[string]int            // analyzerType -> remaining failures
	calls   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(map[string]map[string]any),
		fails:   make(map[string]int),
	}
}

func (f *fakeExecutor) Analyze(_ context.Context, analyzerType string, _ *foundation.Record) (string, map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, analyzerType)
	if f.fails[analyzerType] > 0 {
		f.fails[analyzerType]--
		return "", nil, fmt.Errorf("simulated %s failure", analyzerType)
	}
	return "raw analysis for " + analyzerType, f.results[analyzerType], nil
}

func (f *fakeExecutor) callCount(analyzerType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == analyzerType {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*Orchestrator, *MemoryRecordStore, *runs.MemoryStore, *fakeExecutor, uuid.UUID) {
	t.Helper()
	registry, err := analyzers.DefaultRegistry(foundation.DefaultCatalog())
	require.NoError(t, err)

	records := NewMemoryRecordStore()
	store := runs.NewMemoryStore()
	executor := newFakeExecutor()
	o := New(registry, records, runs.NewManager(store), executor)

	projectID := uuid.New()
	records.Put(projectID, &foundation.Record{})
	return o, records, store, executor, projectID
}

func TestTriggerEligible_NoEligibleAnalyzers(t *testing.T) {
	ctx := context.Background()
	o, _, _, executor, projectID := setup(t)

	started, err := o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, started)

	o.Wait()
	assert.Empty(t, executor.calls)
}

func TestTriggerEligible_ProjectNotFound(t *testing.T) {
	ctx := context.Background()
	o, _, _, _, _ := setup(t)

	_, err := o.TriggerEligible(ctx, uuid.New())
	var notFound *ProjectNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTriggerEligible_RunsAndAppliesFields(t *testing.T) {
	ctx := context.Background()
	o, records, store, executor, projectID := setup(t)

	records.Put(projectID, &foundation.Record{WebsiteURL: "https://x.com"})
	executor.results[analyzers.TypeWebScraper] = map[string]any{
		"tagline":     "Beep beep this",
		"voice_words": []any{"relentless"},
	}

	started, err := o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{analyzers.TypeWebScraper}, started)
	o.Wait()

	history, err := store.ListRuns(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	run := history[0]
	assert.Equal(t, runs.StatusCompleted, run.Status)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.CompletedAt)
	assert.Contains(t, *run.RawAnalysis, "web_scraper")

	// The analyzer's proposed fields landed on the record.
	rec, err := records.GetRecord(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "Beep beep this", rec.Tagline)
	assert.Equal(t, []string{"relentless"}, rec.VoiceWords)

	// Re-triggering after completion starts nothing: the scrape is one-shot.
	started, err = o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, started)
}

func TestTriggerEligible_ChainsUnlockedAnalyzers(t *testing.T) {
	ctx := context.Background()
	o, records, store, executor, projectID := setup(t)

	// Narrative is eligible now; archetype becomes eligible only once a
	// completed narrative run exists.
	records.Put(projectID, &foundation.Record{
		OriginStory: "Started in a cave",
		FounderWhy:  "Hunger",
		CoreValues:  []string{"persistence"},
	})

	started, err := o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{analyzers.TypeNarrative}, started)
	o.Wait()

	history, err := store.ListRuns(ctx, projectID)
	require.NoError(t, err)

	byType := make(map[string]string)
	for _, run := range history {
		byType[run.AnalyzerType] = run.Status
	}
	assert.Equal(t, runs.StatusCompleted, byType[analyzers.TypeNarrative])
	assert.Equal(t, runs.StatusCompleted, byType[analyzers.TypeArchetype], "completion must chain into newly unlocked analyzers")
	assert.Equal(t, 1, executor.callCount(analyzers.TypeArchetype))
}

func TestExecute_RetriesThenCompletes(t *testing.T) {
	ctx := context.Background()
	o, records, store, executor, projectID := setup(t)

	records.Put(projectID, &foundation.Record{WebsiteURL: "https://x.com"})
	executor.fails[analyzers.TypeWebScraper] = 2

	_, err := o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	o.Wait()

	history, err := store.ListRuns(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, 1, "retries reuse the same row")
	run := history[0]
	assert.Equal(t, runs.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.RetryCount)
	assert.Equal(t, 3, executor.callCount(analyzers.TypeWebScraper))
}

func TestExecute_TerminalFailureAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	o, records, store, executor, projectID := setup(t)

	records.Put(projectID, &foundation.Record{WebsiteURL: "https://x.com"})
	executor.fails[analyzers.TypeWebScraper] = runs.MaxRetries + 1

	_, err := o.TriggerEligible(ctx, projectID)
	require.NoError(t, err)
	o.Wait()

	history, err := store.ListRuns(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	run := history[0]
	assert.Equal(t, runs.StatusFailed, run.Status)
	assert.Equal(t, runs.MaxRetries, run.RetryCount)
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "simulated web_scraper failure")
	assert.Equal(t, runs.MaxRetries, executor.callCount(analyzers.TypeWebScraper))
}

func TestTriggerOne(t *testing.T) {
	ctx := context.Background()
	o, records, _, _, projectID := setup(t)

	records.Put(projectID, &foundation.Record{WebsiteURL: "https://x.com"})

	// Not eligible: narrative fields unfilled.
	run, err := o.TriggerOne(ctx, projectID, analyzers.TypeNarrative)
	require.NoError(t, err)
	assert.Nil(t, run)

	run, err = o.TriggerOne(ctx, projectID, analyzers.TypeWebScraper)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, analyzers.TypeWebScraper, run.AnalyzerType)
	o.Wait()

	_, err = o.TriggerOne(ctx, projectID, "nope")
	var unknown *UnknownAnalyzerError
	require.ErrorAs(t, err, &unknown)
}

func TestForce_BypassesPredicateButNotInFlight(t *testing.T) {
	ctx := context.Background()
	o, _, store, _, projectID := setup(t)

	// Record is empty: no predicate would fire, but force bypasses them.
	run, err := o.Force(ctx, projectID, analyzers.TypeVoice)
	require.NoError(t, err)
	require.NotNil(t, run)

	// The in-flight invariant still applies to forced runs.
	_, err = o.Force(ctx, projectID, analyzers.TypeVoice)
	var dup *runs.DuplicateInFlightError
	if err == nil {
		// The first forced run may already have settled; then a second
		// force must succeed instead.
		o.Wait()
		history, herr := store.ListRuns(ctx, projectID)
		require.NoError(t, herr)
		assert.GreaterOrEqual(t, len(history), 1)
	} else {
		require.ErrorAs(t, err, &dup)
	}
	o.Wait()

	_, err = o.Force(ctx, projectID, "nope")
	var unknown *UnknownAnalyzerError
	require.ErrorAs(t, err, &unknown)
}
