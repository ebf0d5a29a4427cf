package analyzers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := DefaultRegistry(foundation.DefaultCatalog())
	require.NoError(t, err)
	return reg
}

func runAt(projectID uuid.UUID, analyzerType, status string, createdAt time.Time) runs.Run {
	return runs.Run{
		ID:           uuid.New(),
		ProjectID:    projectID,
		AnalyzerType: analyzerType,
		Status:       status,
		CreatedAt:    createdAt,
	}
}

func TestEvaluateTriggers_WebScraper(t *testing.T) {
	reg := defaultRegistry(t)
	projectID := uuid.New()

	rec := &foundation.Record{WebsiteURL: "https://x.com"}
	assert.Contains(t, reg.EvaluateTriggers(rec, nil), TypeWebScraper)

	// A completed scrape is never re-triggered.
	completed := []runs.Run{runAt(projectID, TypeWebScraper, runs.StatusCompleted, time.Now())}
	assert.NotContains(t, reg.EvaluateTriggers(rec, completed), TypeWebScraper)

	// No URL, no trigger.
	assert.NotContains(t, reg.EvaluateTriggers(&foundation.Record{}, nil), TypeWebScraper)
}

func TestEvaluateTriggers_InFlightExclusion(t *testing.T) {
	reg := defaultRegistry(t)
	projectID := uuid.New()

	rec := &foundation.Record{
		OriginStory: "Started in a garage",
		FounderWhy:  "Tired of bad tools",
	}
	assert.Contains(t, reg.EvaluateTriggers(rec, nil), TypeNarrative)

	for _, status := range []string{runs.StatusPending, runs.StatusRunning} {
		history := []runs.Run{runAt(projectID, TypeNarrative, status, time.Now())}
		assert.NotContains(t, reg.EvaluateTriggers(rec, history), TypeNarrative,
			"a %s run must block re-triggering", status)
	}

	// Only the latest run counts: an old failed run followed by a pending
	// one blocks, a pending one followed by a settled one does not.
	now := time.Now()
	history := []runs.Run{
		runAt(projectID, TypeNarrative, runs.StatusFailed, now.Add(-time.Hour)),
		runAt(projectID, TypeNarrative, runs.StatusPending, now),
	}
	assert.NotContains(t, reg.EvaluateTriggers(rec, history), TypeNarrative)

	history = []runs.Run{
		runAt(projectID, TypeNarrative, runs.StatusPending, now.Add(-time.Hour)),
		runAt(projectID, TypeNarrative, runs.StatusFailed, now),
	}
	assert.Contains(t, reg.EvaluateTriggers(rec, history), TypeNarrative)
}

func TestEvaluateTriggers_Idempotent(t *testing.T) {
	reg := defaultRegistry(t)

	rec := &foundation.Record{
		WebsiteURL:  "https://x.com",
		OriginStory: "Started in a garage",
		FounderWhy:  "Tired of bad tools",
	}
	first := reg.EvaluateTriggers(rec, nil)
	second := reg.EvaluateTriggers(rec, nil)
	assert.Equal(t, first, second, "same snapshot, same eligible set")
}

func TestEvaluateTriggers_RegistryOrder(t *testing.T) {
	reg := defaultRegistry(t)

	rec := &foundation.Record{
		WebsiteURL:  "https://x.com",
		OriginStory: "Started in a garage",
		FounderWhy:  "Tired of bad tools",
	}
	got := reg.EvaluateTriggers(rec, nil)
	assert.Equal(t, []string{TypeWebScraper, TypeNarrative}, got)
}

// mvpRecord fills every weight-3 required field plus narrative material.
func mvpRecord() *foundation.Record {
	return &foundation.Record{
		BusinessName:   "Acme",
		OneLiner:       "Rockets for coyotes",
		TargetAudience: "Desert predators",
		OriginStory:    "Started in a cave",
		FounderWhy:     "Hunger",
	}
}

func TestEvaluateTriggers_SynthesisGate(t *testing.T) {
	reg := defaultRegistry(t)
	projectID := uuid.New()
	rec := mvpRecord()

	// Without a completed narrative run, synthesis stays ineligible even
	// though field completion qualifies.
	assert.NotContains(t, reg.EvaluateTriggers(rec, nil), TypeSynthesis)

	history := []runs.Run{runAt(projectID, TypeNarrative, runs.StatusCompleted, time.Now())}
	assert.Contains(t, reg.EvaluateTriggers(rec, history), TypeSynthesis)

	// Missing minimum viable data blocks it regardless of run history.
	partial := mvpRecord()
	partial.TargetAudience = ""
	assert.NotContains(t, reg.EvaluateTriggers(partial, history), TypeSynthesis)

	// No narrative-bucket field filled blocks it too.
	noStory := mvpRecord()
	noStory.OriginStory = ""
	noStory.FounderWhy = ""
	assert.NotContains(t, reg.EvaluateTriggers(noStory, history), TypeSynthesis)
}

func TestEvaluateTriggers_Positioning(t *testing.T) {
	reg := defaultRegistry(t)

	rec := &foundation.Record{
		BusinessName:   "Acme",
		OneLiner:       "Rockets for coyotes",
		Problem:        "Roadrunners are fast",
		Solution:       "Faster rockets",
		TargetAudience: "Desert predators",
		AudiencePains:  "Always hungry",
	}
	// core_idea 100%, audience 67% >= 50%.
	assert.Contains(t, reg.EvaluateTriggers(rec, nil), TypePositioning)

	rec.Solution = ""
	assert.NotContains(t, reg.EvaluateTriggers(rec, nil), TypePositioning)
}

func TestEvaluateTriggers_Archetype(t *testing.T) {
	reg := defaultRegistry(t)
	projectID := uuid.New()

	rec := &foundation.Record{CoreValues: []string{"persistence"}}
	assert.NotContains(t, reg.EvaluateTriggers(rec, nil), TypeArchetype)

	history := []runs.Run{runAt(projectID, TypeNarrative, runs.StatusCompleted, time.Now())}
	assert.Contains(t, reg.EvaluateTriggers(rec, history), TypeArchetype)
}

func TestNewRegistry_Validation(t *testing.T) {
	catalog := foundation.DefaultCatalog()
	noop := func(*foundation.Record, []runs.Run) bool { return false }

	_, err := NewRegistry(nil, nil)
	require.Error(t, err)

	_, err = NewRegistry(catalog, []Descriptor{{Type: "", ShouldTrigger: noop}})
	require.Error(t, err)

	_, err = NewRegistry(catalog, []Descriptor{
		{Type: "a", ShouldTrigger: noop},
		{Type: "a", ShouldTrigger: noop},
	})
	require.Error(t, err)

	_, err = NewRegistry(catalog, []Descriptor{{Type: "a"}})
	require.Error(t, err)

	var cfgErr *foundation.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestFieldsToUpdate_WebScraper(t *testing.T) {
	reg := defaultRegistry(t)
	d := reg.Lookup(TypeWebScraper)
	require.NotNil(t, d)

	patch := d.FieldsToUpdate(map[string]any{
		"tagline":     "Beep beep this",
		"voice_words": []any{"relentless", "dry"},
		"ignored":     "dropped on the floor",
	})
	require.NotNil(t, patch)
	assert.Equal(t, "Beep beep this", *patch.Tagline)
	assert.Equal(t, []string{"relentless", "dry"}, *patch.VoiceWords)
	assert.Nil(t, patch.OneLiner)
}
