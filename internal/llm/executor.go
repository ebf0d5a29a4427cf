package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/brand-foundation/internal/analyzers"
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/prompts"
)

// CorpusFetcher supplies website text for the web-scraper analyzer. The
// fetch package provides the production implementation.
type CorpusFetcher interface {
	Corpus(ctx context.Context, url string) (string, error)
}

// Executor runs the two-phase analysis: phase one produces a free-text
// analysis of the brand material, phase two extracts structured fields from
// that analysis under a JSON schema.
type Executor struct {
	client  Client
	fetcher CorpusFetcher
}

// NewExecutor creates an executor. fetcher may be nil, in which case the
// web-scraper analyzer fails at execution time (and retries per the run
// lifecycle) rather than at startup.
func NewExecutor(client Client, fetcher CorpusFetcher) *Executor {
	return &Executor{client: client, fetcher: fetcher}
}

// rolePromptsFile holds the per-analyzer role prompts, embedded via the
// prompts package.
const rolePromptsFile = "analyzers.json"

// promptSpec holds the per-analyzer prompt material and extraction schema.
type promptSpec struct {
	tier   ModelTier
	role   string
	schema string
}

var promptSpecs = map[string]promptSpec{
	analyzers.TypeWebScraper: {
		tier:   TierStandard,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypeWebScraper),
		schema: webScraperSchema,
	},
	analyzers.TypeNarrative: {
		tier:   TierStandard,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypeNarrative),
		schema: narrativeSchema,
	},
	analyzers.TypePositioning: {
		tier:   TierStandard,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypePositioning),
		schema: positioningSchema,
	},
	analyzers.TypeVoice: {
		tier:   TierLite,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypeVoice),
		schema: voiceSchema,
	},
	analyzers.TypeArchetype: {
		tier:   TierStandard,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypeArchetype),
		schema: archetypeSchema,
	},
	analyzers.TypeSynthesis: {
		tier:   TierAdvanced,
		role:   prompts.MustGet(rolePromptsFile, analyzers.TypeSynthesis),
		schema: synthesisSchema,
	},
}

// Analyze implements orchestrator.Executor.
func (e *Executor) Analyze(ctx context.Context, analyzerType string, rec *foundation.Record) (string, map[string]any, error) {
	spec, ok := promptSpecs[analyzerType]
	if !ok {
		return "", nil, fmt.Errorf("no prompt configured for analyzer %s", analyzerType)
	}

	corpus := ""
	if analyzerType == analyzers.TypeWebScraper {
		if e.fetcher == nil {
			return "", nil, fmt.Errorf("no website fetcher configured")
		}
		var err error
		corpus, err = e.fetcher.Corpus(ctx, rec.WebsiteURL)
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch website corpus: %w", err)
		}
	}

	// Phase 1: free-text analysis.
	raw, err := e.client.GenerateText(ctx, AnalysisPrompt(spec.role, rec, corpus), spec.tier)
	if err != nil {
		return "", nil, fmt.Errorf("analysis phase failed: %w", err)
	}

	// Phase 2: schema-constrained extraction from the phase-1 text.
	extracted, err := e.client.GenerateJSON(ctx, ExtractionPrompt(spec.schema, raw), TierLite)
	if err != nil {
		return "", nil, fmt.Errorf("extraction phase failed: %w", err)
	}

	parsed, err := ValidateParsedFields(analyzerType, []byte(extracted))
	if err != nil {
		return "", nil, err
	}
	return raw, parsed, nil
}

// AnalysisPrompt builds the phase-1 prompt from the analyzer role, the
// filled record fields, and any fetched corpus.
func AnalysisPrompt(role string, rec *foundation.Record, corpus string) string {
	var sb strings.Builder
	sb.WriteString(role)
	sb.WriteString("\n\nWhat we know about the brand so far:\n")
	sb.WriteString(RenderRecord(rec))
	if corpus != "" {
		sb.WriteString("\nWebsite content:\n---\n")
		sb.WriteString(corpus)
		sb.WriteString("\n---\n")
	}
	sb.WriteString("\nWrite your analysis as plain prose. Be specific; quote the brand's own words where useful.\n")
	return sb.String()
}

// ExtractionPrompt builds the phase-2 prompt: extract fields matching the
// JSON schema from the phase-1 analysis.
func ExtractionPrompt(schema, analysis string) string {
	var sb strings.Builder
	sb.WriteString("Extract the following fields from the analysis below.\n\n")
	sb.WriteString("Return ONLY valid JSON conforming to this JSON Schema:\n")
	sb.WriteString(schema)
	sb.WriteString("\n\nAnalysis:\n---\n")
	sb.WriteString(analysis)
	sb.WriteString("\n---\n\nReturn ONLY the JSON object. No markdown, no explanation.\n")
	return sb.String()
}

// RenderRecord lists the filled record fields for prompting. Unfilled
// fields are omitted so the model never sees placeholder noise.
func RenderRecord(rec *foundation.Record) string {
	var sb strings.Builder
	write := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", label, value)
		}
	}
	writeList := func(label string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(&sb, "- %s: %s\n", label, strings.Join(values, ", "))
		}
	}
	writeSlider := func(label string, value *float64) {
		if value != nil {
			fmt.Fprintf(&sb, "- %s: %.1f (0 = low, 1 = high)\n", label, *value)
		}
	}

	write("Business name", rec.BusinessName)
	write("One-liner", rec.OneLiner)
	write("Problem", rec.Problem)
	write("Solution", rec.Solution)
	write("Target audience", rec.TargetAudience)
	write("Audience pains", rec.AudiencePains)
	write("Audience desires", rec.AudienceDesires)
	write("Origin story", rec.OriginStory)
	write("Founder's why", rec.FounderWhy)
	write("Turning point", rec.TurningPoint)
	writeList("Core values", rec.CoreValues)
	writeList("Differentiators", rec.Differentiators)
	writeSlider("Tone formality", rec.ToneFormality)
	writeSlider("Tone playfulness", rec.TonePlayfulness)
	writeList("Voice words", rec.VoiceWords)
	writeList("Taboo words", rec.TabooWords)
	write("Website", rec.WebsiteURL)
	write("Tagline", rec.Tagline)

	if sb.Len() == 0 {
		return "(nothing yet)\n"
	}
	return sb.String()
}

// parseJSONObject unmarshals extractor output into a field map.
func parseJSONObject(data []byte) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("extractor returned invalid JSON: %w", err)
	}
	return parsed, nil
}
