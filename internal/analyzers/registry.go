// Package analyzers declares the analyzer registry and the trigger
// evaluator that decides which analyzers may start for a project.
package analyzers

import (
	"fmt"

	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// Analyzer type constants. Registry declaration order is evaluation order.
const (
	TypeWebScraper  = "web_scraper"
	TypeNarrative   = "narrative"
	TypePositioning = "positioning"
	TypeVoice       = "voice"
	TypeArchetype   = "archetype"
	TypeSynthesis   = "synthesis"
)

// Descriptor declares one analyzer: identity, label, its trigger predicate,
// and the mapping from executor output onto record fields.
type Descriptor struct {
	Type        string
	DisplayName string

	// ShouldTrigger is a pure predicate over the record and run history. The
	// evaluator applies the in-flight exclusion before calling it.
	ShouldTrigger func(rec *foundation.Record, history []runs.Run) bool

	// FieldsToUpdate maps the executor's parsed output onto a record patch.
	// Only whitelisted fields survive; everything else stays on the run row
	// as an opaque artifact.
	FieldsToUpdate func(parsed map[string]any) *foundation.Patch
}

// Registry is an immutable, ordered set of analyzer descriptors bound to a
// bucket catalog. Construct it once at startup and inject it; tests build
// registries over fixture catalogs without touching shared state.
type Registry struct {
	catalog     *foundation.Catalog
	descriptors []Descriptor
	byType      map[string]*Descriptor
}

// NewRegistry validates and wraps a descriptor list.
func NewRegistry(catalog *foundation.Catalog, descriptors []Descriptor) (*Registry, error) {
	if catalog == nil {
		return nil, &foundation.ConfigurationError{Message: "analyzer registry requires a catalog"}
	}

	byType := make(map[string]*Descriptor, len(descriptors))
	for i := range descriptors {
		d := &descriptors[i]
		if d.Type == "" {
			return nil, &foundation.ConfigurationError{Message: "analyzer with empty type"}
		}
		if _, dup := byType[d.Type]; dup {
			return nil, &foundation.ConfigurationError{Message: fmt.Sprintf("duplicate analyzer type %q", d.Type)}
		}
		if d.ShouldTrigger == nil {
			return nil, &foundation.ConfigurationError{Message: fmt.Sprintf("analyzer %q has no trigger predicate", d.Type)}
		}
		byType[d.Type] = d
	}

	return &Registry{catalog: catalog, descriptors: descriptors, byType: byType}, nil
}

// Descriptors returns the registry entries in declaration order.
func (r *Registry) Descriptors() []Descriptor {
	return r.descriptors
}

// Lookup returns the descriptor for a type, or nil.
func (r *Registry) Lookup(analyzerType string) *Descriptor {
	return r.byType[analyzerType]
}

// Catalog returns the bucket catalog the registry is bound to.
func (r *Registry) Catalog() *foundation.Catalog {
	return r.catalog
}

// DefaultRegistry builds the production analyzer set over the given catalog.
func DefaultRegistry(catalog *foundation.Catalog) (*Registry, error) {
	return NewRegistry(catalog, []Descriptor{
		{
			Type:        TypeWebScraper,
			DisplayName: "Website Analysis",
			// One shot per project: a completed scrape is not redone.
			ShouldTrigger: func(rec *foundation.Record, history []runs.Run) bool {
				if !rec.Filled(foundation.FieldWebsiteURL) {
					return false
				}
				return !runs.HasCompleted(history, TypeWebScraper)
			},
			FieldsToUpdate: webScraperFields,
		},
		{
			Type:        TypeNarrative,
			DisplayName: "Brand Narrative",
			ShouldTrigger: func(rec *foundation.Record, _ []runs.Run) bool {
				return rec.Filled(foundation.FieldOriginStory) && rec.Filled(foundation.FieldFounderWhy)
			},
			FieldsToUpdate: narrativeFields,
		},
		{
			Type:        TypePositioning,
			DisplayName: "Positioning",
			ShouldTrigger: func(rec *foundation.Record, _ []runs.Run) bool {
				completions := catalog.Completions(rec)
				return completions[foundation.BucketCoreIdea] == 100 &&
					completions[foundation.BucketAudience] >= 50
			},
			FieldsToUpdate: func(map[string]any) *foundation.Patch { return nil },
		},
		{
			Type:        TypeVoice,
			DisplayName: "Voice & Tone",
			ShouldTrigger: func(rec *foundation.Record, _ []runs.Run) bool {
				voice := catalog.Bucket(foundation.BucketVoice)
				if voice == nil {
					return false
				}
				any := false
				for _, field := range voice.Fields {
					if rec.Filled(field) {
						any = true
						break
					}
				}
				return any && catalog.Overall(rec) >= 40
			},
			FieldsToUpdate: voiceFields,
		},
		{
			Type:        TypeArchetype,
			DisplayName: "Brand Archetype",
			ShouldTrigger: func(rec *foundation.Record, history []runs.Run) bool {
				return rec.Filled(foundation.FieldCoreValues) &&
					runs.HasCompleted(history, TypeNarrative)
			},
			FieldsToUpdate: func(map[string]any) *foundation.Patch { return nil },
		},
		{
			Type:        TypeSynthesis,
			DisplayName: "Foundation Synthesis",
			// Needs the hard readiness gate, some narrative material, and a
			// completed narrative analysis to synthesize from.
			ShouldTrigger: func(rec *foundation.Record, history []runs.Run) bool {
				if !catalog.HasMinimumViableData(rec) {
					return false
				}
				narrative := catalog.Bucket(foundation.BucketNarrative)
				if narrative == nil {
					return false
				}
				any := false
				for _, field := range narrative.Fields {
					if rec.Filled(field) {
						any = true
						break
					}
				}
				return any && runs.HasCompleted(history, TypeNarrative)
			},
			FieldsToUpdate: synthesisFields,
		},
	})
}

// webScraperFields proposes record fields from scraped-site analysis. The
// scraper never overwrites user text, so each mapped field is advisory and
// applied only when it parses cleanly.
func webScraperFields(parsed map[string]any) *foundation.Patch {
	patch := &foundation.Patch{}
	if s, ok := stringField(parsed, "tagline"); ok {
		patch.Tagline = &s
	}
	if s, ok := stringField(parsed, "one_liner"); ok {
		patch.OneLiner = &s
	}
	if ss, ok := stringSliceField(parsed, "voice_words"); ok {
		patch.VoiceWords = &ss
	}
	return patch
}

func narrativeFields(parsed map[string]any) *foundation.Patch {
	patch := &foundation.Patch{}
	if s, ok := stringField(parsed, "turning_point"); ok {
		patch.TurningPoint = &s
	}
	return patch
}

func voiceFields(parsed map[string]any) *foundation.Patch {
	patch := &foundation.Patch{}
	if ss, ok := stringSliceField(parsed, "voice_words"); ok {
		patch.VoiceWords = &ss
	}
	if ss, ok := stringSliceField(parsed, "taboo_words"); ok {
		patch.TabooWords = &ss
	}
	return patch
}

func synthesisFields(parsed map[string]any) *foundation.Patch {
	patch := &foundation.Patch{}
	if s, ok := stringField(parsed, "tagline"); ok {
		patch.Tagline = &s
	}
	return patch
}

func stringField(parsed map[string]any, key string) (string, bool) {
	s, ok := parsed[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringSliceField(parsed map[string]any, key string) ([]string, bool) {
	raw, ok := parsed[key].([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
