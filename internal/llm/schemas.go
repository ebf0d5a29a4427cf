package llm

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/brand-foundation/internal/analyzers"
)

// Extraction schemas, one per analyzer. Phase two of the executor must
// return JSON conforming to the analyzer's schema; anything else fails the
// run and goes through the retry path.

const webScraperSchema = `{
  "type": "object",
  "properties": {
    "tagline": {"type": "string"},
    "one_liner": {"type": "string"},
    "voice_words": {"type": "array", "items": {"type": "string"}, "maxItems": 8}
  },
  "additionalProperties": false
}`

const narrativeSchema = `{
  "type": "object",
  "properties": {
    "narrative_summary": {"type": "string"},
    "turning_point": {"type": "string"},
    "themes": {"type": "array", "items": {"type": "string"}, "maxItems": 5}
  },
  "required": ["narrative_summary"],
  "additionalProperties": false
}`

const positioningSchema = `{
  "type": "object",
  "properties": {
    "category": {"type": "string"},
    "differentiation": {"type": "string"},
    "positioning_statement": {"type": "string"}
  },
  "required": ["positioning_statement"],
  "additionalProperties": false
}`

const voiceSchema = `{
  "type": "object",
  "properties": {
    "voice_summary": {"type": "string"},
    "voice_words": {"type": "array", "items": {"type": "string"}, "maxItems": 8},
    "taboo_words": {"type": "array", "items": {"type": "string"}, "maxItems": 8}
  },
  "required": ["voice_summary"],
  "additionalProperties": false
}`

const archetypeSchema = `{
  "type": "object",
  "properties": {
    "primary_archetype": {"type": "string"},
    "secondary_archetype": {"type": "string"},
    "rationale": {"type": "string"}
  },
  "required": ["primary_archetype"],
  "additionalProperties": false
}`

const synthesisSchema = `{
  "type": "object",
  "properties": {
    "foundation_summary": {"type": "string"},
    "tagline": {"type": "string"},
    "positioning_statement": {"type": "string"},
    "primary_archetype": {"type": "string"}
  },
  "required": ["foundation_summary"],
  "additionalProperties": false
}`

var extractionSchemas = map[string]string{
	analyzers.TypeWebScraper:  webScraperSchema,
	analyzers.TypeNarrative:   narrativeSchema,
	analyzers.TypePositioning: positioningSchema,
	analyzers.TypeVoice:       voiceSchema,
	analyzers.TypeArchetype:   archetypeSchema,
	analyzers.TypeSynthesis:   synthesisSchema,
}

// ExtractionSchema returns the JSON schema for an analyzer's parsed fields.
func ExtractionSchema(analyzerType string) (string, bool) {
	s, ok := extractionSchemas[analyzerType]
	return s, ok
}

// ValidateParsedFields checks extractor output against the analyzer's
// schema and returns the parsed field map.
func ValidateParsedFields(analyzerType string, data []byte) (map[string]any, error) {
	schema, ok := extractionSchemas[analyzerType]
	if !ok {
		return nil, fmt.Errorf("no extraction schema for analyzer %s", analyzerType)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, fmt.Errorf("extracted fields failed validation: %s", strings.Join(reasons, "; "))
	}

	return parseJSONObject(data)
}
