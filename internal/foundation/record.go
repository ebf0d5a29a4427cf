// Package foundation provides the brand-foundation field catalog, completion
// scoring, and readiness gating that drive analyzer triggering.
package foundation

import "strings"

// Field names for the brand record. Every bucket definition must reference
// fields declared here; NewCatalog rejects unknown names at startup.
const (
	FieldBusinessName    = "business_name"
	FieldOneLiner        = "one_liner"
	FieldProblem         = "problem"
	FieldSolution        = "solution"
	FieldTargetAudience  = "target_audience"
	FieldAudiencePains   = "audience_pains"
	FieldAudienceDesires = "audience_desires"
	FieldOriginStory     = "origin_story"
	FieldFounderWhy      = "founder_why"
	FieldTurningPoint    = "turning_point"
	FieldCoreValues      = "core_values"
	FieldDifferentiators = "differentiators"
	FieldToneFormality   = "tone_formality"
	FieldTonePlayful     = "tone_playfulness"
	FieldVoiceWords      = "voice_words"
	FieldTabooWords      = "taboo_words"
	FieldWebsiteURL      = "website_url"
	FieldTagline         = "tagline"
)

// Record is the mutable subject being completed: one per brand project.
// Sliders are pointers so an untouched slider is distinguishable from a
// slider deliberately set to 0 (0 counts as filled).
type Record struct {
	BusinessName    string   `json:"business_name,omitempty"`
	OneLiner        string   `json:"one_liner,omitempty"`
	Problem         string   `json:"problem,omitempty"`
	Solution        string   `json:"solution,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty"`
	AudiencePains   string   `json:"audience_pains,omitempty"`
	AudienceDesires string   `json:"audience_desires,omitempty"`
	OriginStory     string   `json:"origin_story,omitempty"`
	FounderWhy      string   `json:"founder_why,omitempty"`
	TurningPoint    string   `json:"turning_point,omitempty"`
	CoreValues      []string `json:"core_values,omitempty"`
	Differentiators []string `json:"differentiators,omitempty"`
	ToneFormality   *float64 `json:"tone_formality,omitempty"`
	TonePlayfulness *float64 `json:"tone_playfulness,omitempty"`
	VoiceWords      []string `json:"voice_words,omitempty"`
	TabooWords      []string `json:"taboo_words,omitempty"`
	WebsiteURL      string   `json:"website_url,omitempty"`
	Tagline         string   `json:"tagline,omitempty"`
}

// fieldGetters maps every declared field name to an accessor. The catalog
// validator uses the key set to reject bucket definitions that reference
// fields the record schema does not have.
var fieldGetters = map[string]func(*Record) any{
	FieldBusinessName:    func(r *Record) any { return r.BusinessName },
	FieldOneLiner:        func(r *Record) any { return r.OneLiner },
	FieldProblem:         func(r *Record) any { return r.Problem },
	FieldSolution:        func(r *Record) any { return r.Solution },
	FieldTargetAudience:  func(r *Record) any { return r.TargetAudience },
	FieldAudiencePains:   func(r *Record) any { return r.AudiencePains },
	FieldAudienceDesires: func(r *Record) any { return r.AudienceDesires },
	FieldOriginStory:     func(r *Record) any { return r.OriginStory },
	FieldFounderWhy:      func(r *Record) any { return r.FounderWhy },
	FieldTurningPoint:    func(r *Record) any { return r.TurningPoint },
	FieldCoreValues:      func(r *Record) any { return r.CoreValues },
	FieldDifferentiators: func(r *Record) any { return r.Differentiators },
	FieldToneFormality:   func(r *Record) any { return r.ToneFormality },
	FieldTonePlayful:     func(r *Record) any { return r.TonePlayfulness },
	FieldVoiceWords:      func(r *Record) any { return r.VoiceWords },
	FieldTabooWords:      func(r *Record) any { return r.TabooWords },
	FieldWebsiteURL:      func(r *Record) any { return r.WebsiteURL },
	FieldTagline:         func(r *Record) any { return r.Tagline },
}

// KnownField reports whether name is a declared record field.
func KnownField(name string) bool {
	_, ok := fieldGetters[name]
	return ok
}

// Filled reports whether the named field holds usable data. Unknown field
// names degrade to false rather than erroring; malformed record data is
// never fatal here.
func (r *Record) Filled(field string) bool {
	getter, ok := fieldGetters[field]
	if !ok {
		return false
	}
	return IsFilled(getter(r))
}

// IsFilled implements the shared filled/unfilled rule: nil is unfilled,
// strings count when their trimmed form is non-empty, slices when non-empty,
// and numbers always count (including 0, so a slider left at zero still
// registers).
func IsFilled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	case *float64:
		return val != nil
	case float64, int:
		return true
	default:
		return false
	}
}

// Patch is a whole-field replacement set for a record. A nil member leaves
// the field untouched; a non-nil member replaces the field entirely (no
// partial merges within a field).
type Patch struct {
	BusinessName    *string   `json:"business_name,omitempty"`
	OneLiner        *string   `json:"one_liner,omitempty"`
	Problem         *string   `json:"problem,omitempty"`
	Solution        *string   `json:"solution,omitempty"`
	TargetAudience  *string   `json:"target_audience,omitempty"`
	AudiencePains   *string   `json:"audience_pains,omitempty"`
	AudienceDesires *string   `json:"audience_desires,omitempty"`
	OriginStory     *string   `json:"origin_story,omitempty"`
	FounderWhy      *string   `json:"founder_why,omitempty"`
	TurningPoint    *string   `json:"turning_point,omitempty"`
	CoreValues      *[]string `json:"core_values,omitempty"`
	Differentiators *[]string `json:"differentiators,omitempty"`
	ToneFormality   *float64  `json:"tone_formality,omitempty"`
	TonePlayfulness *float64  `json:"tone_playfulness,omitempty"`
	VoiceWords      *[]string `json:"voice_words,omitempty"`
	TabooWords      *[]string `json:"taboo_words,omitempty"`
	WebsiteURL      *string   `json:"website_url,omitempty"`
	Tagline         *string   `json:"tagline,omitempty"`
}

// IsEmpty reports whether the patch carries no field updates.
func (p *Patch) IsEmpty() bool {
	return len(p.Assignments()) == 0
}

// Assignment pairs a field name with its replacement value, in a form the
// persistence layer can bind directly into an UPDATE statement.
type Assignment struct {
	Field string
	Value any
}

// Assignments returns the set fields of the patch in declaration order.
func (p *Patch) Assignments() []Assignment {
	var out []Assignment
	add := func(field string, set bool, value any) {
		if set {
			out = append(out, Assignment{Field: field, Value: value})
		}
	}
	add(FieldBusinessName, p.BusinessName != nil, deref(p.BusinessName))
	add(FieldOneLiner, p.OneLiner != nil, deref(p.OneLiner))
	add(FieldProblem, p.Problem != nil, deref(p.Problem))
	add(FieldSolution, p.Solution != nil, deref(p.Solution))
	add(FieldTargetAudience, p.TargetAudience != nil, deref(p.TargetAudience))
	add(FieldAudiencePains, p.AudiencePains != nil, deref(p.AudiencePains))
	add(FieldAudienceDesires, p.AudienceDesires != nil, deref(p.AudienceDesires))
	add(FieldOriginStory, p.OriginStory != nil, deref(p.OriginStory))
	add(FieldFounderWhy, p.FounderWhy != nil, deref(p.FounderWhy))
	add(FieldTurningPoint, p.TurningPoint != nil, deref(p.TurningPoint))
	add(FieldCoreValues, p.CoreValues != nil, derefSlice(p.CoreValues))
	add(FieldDifferentiators, p.Differentiators != nil, derefSlice(p.Differentiators))
	add(FieldToneFormality, p.ToneFormality != nil, p.ToneFormality)
	add(FieldTonePlayful, p.TonePlayfulness != nil, p.TonePlayfulness)
	add(FieldVoiceWords, p.VoiceWords != nil, derefSlice(p.VoiceWords))
	add(FieldTabooWords, p.TabooWords != nil, derefSlice(p.TabooWords))
	add(FieldWebsiteURL, p.WebsiteURL != nil, deref(p.WebsiteURL))
	add(FieldTagline, p.Tagline != nil, deref(p.Tagline))
	return out
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefSlice(s *[]string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Apply replaces record fields with the patch's set members.
func (r *Record) Apply(p *Patch) {
	if p == nil {
		return
	}
	if p.BusinessName != nil {
		r.BusinessName = *p.BusinessName
	}
	if p.OneLiner != nil {
		r.OneLiner = *p.OneLiner
	}
	if p.Problem != nil {
		r.Problem = *p.Problem
	}
	if p.Solution != nil {
		r.Solution = *p.Solution
	}
	if p.TargetAudience != nil {
		r.TargetAudience = *p.TargetAudience
	}
	if p.AudiencePains != nil {
		r.AudiencePains = *p.AudiencePains
	}
	if p.AudienceDesires != nil {
		r.AudienceDesires = *p.AudienceDesires
	}
	if p.OriginStory != nil {
		r.OriginStory = *p.OriginStory
	}
	if p.FounderWhy != nil {
		r.FounderWhy = *p.FounderWhy
	}
	if p.TurningPoint != nil {
		r.TurningPoint = *p.TurningPoint
	}
	if p.CoreValues != nil {
		r.CoreValues = *p.CoreValues
	}
	if p.Differentiators != nil {
		r.Differentiators = *p.Differentiators
	}
	if p.ToneFormality != nil {
		r.ToneFormality = p.ToneFormality
	}
	if p.TonePlayfulness != nil {
		r.TonePlayfulness = p.TonePlayfulness
	}
	if p.VoiceWords != nil {
		r.VoiceWords = *p.VoiceWords
	}
	if p.TabooWords != nil {
		r.TabooWords = *p.TabooWords
	}
	if p.WebsiteURL != nil {
		r.WebsiteURL = *p.WebsiteURL
	}
	if p.Tagline != nil {
		r.Tagline = *p.Tagline
	}
}
