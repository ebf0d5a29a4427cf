package analyzers

import (
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// EvaluateTriggers returns the analyzer types newly eligible to start, in
// registry declaration order. An analyzer whose latest run is still pending
// or running is never eligible, regardless of its predicate; re-evaluating
// the same snapshot is therefore idempotent once runs have been created.
//
// The force path deliberately does not flow through here: forcing an
// analyzer is a caller-level concern handled by the orchestrator, so the
// evaluator's semantics stay pure.
func (r *Registry) EvaluateTriggers(rec *foundation.Record, history []runs.Run) []string {
	var eligible []string
	for _, d := range r.descriptors {
		latest := runs.Latest(history, d.Type)
		if latest != nil && latest.InFlight() {
			continue
		}
		if !d.ShouldTrigger(rec, history) {
			continue
		}
		eligible = append(eligible, d.Type)
	}
	return eligible
}
