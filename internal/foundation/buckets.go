package foundation

import "fmt"

// BucketDef declares one category of related fields with an importance
// weight. Field order is for display only.
type BucketDef struct {
	ID       string
	Weight   int
	Fields   []string
	Required []string
}

// ConfigurationError indicates a malformed bucket catalog. It is raised at
// construction time so a bad catalog fails the process at startup, never at
// request time.
type ConfigurationError struct {
	Bucket  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Bucket == "" {
		return fmt.Sprintf("catalog configuration error: %s", e.Message)
	}
	return fmt.Sprintf("catalog configuration error in bucket %q: %s", e.Bucket, e.Message)
}

// Catalog is the validated, immutable set of bucket definitions. Construct
// one with NewCatalog and inject it wherever completion or readiness is
// computed; nothing mutates it after construction.
type Catalog struct {
	buckets   []BucketDef
	maxWeight int
}

// NewCatalog validates the definitions and returns an immutable catalog.
func NewCatalog(defs []BucketDef) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, &ConfigurationError{Message: "no buckets defined"}
	}

	seen := make(map[string]bool, len(defs))
	maxWeight := 0
	for _, def := range defs {
		if def.ID == "" {
			return nil, &ConfigurationError{Message: "bucket with empty id"}
		}
		if seen[def.ID] {
			return nil, &ConfigurationError{Bucket: def.ID, Message: "duplicate bucket id"}
		}
		seen[def.ID] = true

		if def.Weight <= 0 {
			return nil, &ConfigurationError{Bucket: def.ID, Message: fmt.Sprintf("weight must be positive, got %d", def.Weight)}
		}

		fieldSet := make(map[string]bool, len(def.Fields))
		for _, field := range def.Fields {
			if !KnownField(field) {
				return nil, &ConfigurationError{Bucket: def.ID, Message: fmt.Sprintf("unknown field %q", field)}
			}
			if fieldSet[field] {
				return nil, &ConfigurationError{Bucket: def.ID, Message: fmt.Sprintf("duplicate field %q", field)}
			}
			fieldSet[field] = true
		}

		for _, field := range def.Required {
			if !fieldSet[field] {
				return nil, &ConfigurationError{Bucket: def.ID, Message: fmt.Sprintf("required field %q not in fields", field)}
			}
		}

		if def.Weight > maxWeight {
			maxWeight = def.Weight
		}
	}

	// Copy so callers can't mutate the catalog through the input slice.
	buckets := make([]BucketDef, len(defs))
	copy(buckets, defs)

	return &Catalog{buckets: buckets, maxWeight: maxWeight}, nil
}

// MustCatalog is NewCatalog for static catalogs known to be valid.
func MustCatalog(defs []BucketDef) *Catalog {
	c, err := NewCatalog(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Buckets returns the bucket definitions in declaration order.
func (c *Catalog) Buckets() []BucketDef {
	out := make([]BucketDef, len(c.buckets))
	copy(out, c.buckets)
	return out
}

// Bucket returns the definition for id, or nil if no such bucket exists.
func (c *Catalog) Bucket(id string) *BucketDef {
	for i := range c.buckets {
		if c.buckets[i].ID == id {
			def := c.buckets[i]
			return &def
		}
	}
	return nil
}

// MaxWeight returns the highest weight in the catalog. Buckets at this
// weight form the required tier for the readiness gate.
func (c *Catalog) MaxWeight() int {
	return c.maxWeight
}

// Default bucket IDs.
const (
	BucketCoreIdea  = "core_idea"
	BucketAudience  = "audience"
	BucketNarrative = "narrative"
	BucketValues    = "values"
	BucketVoice     = "voice"
	BucketPresence  = "presence"
)

// DefaultCatalog returns the production bucket catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog([]BucketDef{
		{
			ID:       BucketCoreIdea,
			Weight:   3,
			Fields:   []string{FieldBusinessName, FieldOneLiner, FieldProblem, FieldSolution},
			Required: []string{FieldBusinessName, FieldOneLiner},
		},
		{
			ID:       BucketAudience,
			Weight:   3,
			Fields:   []string{FieldTargetAudience, FieldAudiencePains, FieldAudienceDesires},
			Required: []string{FieldTargetAudience},
		},
		{
			ID:     BucketNarrative,
			Weight: 2,
			Fields: []string{FieldOriginStory, FieldFounderWhy, FieldTurningPoint},
		},
		{
			ID:     BucketValues,
			Weight: 2,
			Fields: []string{FieldCoreValues, FieldDifferentiators},
		},
		{
			ID:     BucketVoice,
			Weight: 1,
			Fields: []string{FieldToneFormality, FieldTonePlayful, FieldVoiceWords, FieldTabooWords},
		},
		{
			ID:     BucketPresence,
			Weight: 1,
			Fields: []string{FieldWebsiteURL, FieldTagline},
		},
	})
}
