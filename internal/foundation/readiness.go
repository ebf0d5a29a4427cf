package foundation

// HasMinimumViableData reports whether the record carries enough data for
// downstream synthesis. It is a crisp allow-list gate, not a percentage
// threshold: every required field of every bucket in the top weight tier
// must be filled. A top-tier bucket with no required fields passes
// trivially.
func (c *Catalog) HasMinimumViableData(r *Record) bool {
	for _, def := range c.buckets {
		if def.Weight != c.maxWeight {
			continue
		}
		for _, field := range def.Required {
			if !r.Filled(field) {
				return false
			}
		}
	}
	return true
}
