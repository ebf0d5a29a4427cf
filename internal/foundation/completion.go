package foundation

import "math"

// BucketCompletion returns the percentage (0-100) of a bucket's fields that
// are filled. Every declared field counts equally regardless of type; a
// bucket with no fields is 0% by convention.
func BucketCompletion(r *Record, def BucketDef) int {
	if len(def.Fields) == 0 {
		return 0
	}
	filled := 0
	for _, field := range def.Fields {
		if r.Filled(field) {
			filled++
		}
	}
	return int(math.Round(100 * float64(filled) / float64(len(def.Fields))))
}

// Completions computes the per-bucket percentages for every bucket in the
// catalog.
func (c *Catalog) Completions(r *Record) map[string]int {
	out := make(map[string]int, len(c.buckets))
	for _, def := range c.buckets {
		out[def.ID] = BucketCompletion(r, def)
	}
	return out
}

// OverallCompletion combines per-bucket percentages into a single weighted
// score. Buckets missing from completions count as 0%. A catalog whose
// total weight is 0 cannot be constructed, but the guard stays for safety.
func (c *Catalog) OverallCompletion(completions map[string]int) int {
	weightedSum := 0
	totalWeight := 0
	for _, def := range c.buckets {
		weightedSum += completions[def.ID] * def.Weight
		totalWeight += def.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(100 * float64(weightedSum) / float64(100*totalWeight)))
}

// Overall is a convenience composing Completions and OverallCompletion.
func (c *Catalog) Overall(r *Record) int {
	return c.OverallCompletion(c.Completions(r))
}
