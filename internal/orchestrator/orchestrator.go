// Package orchestrator wires trigger evaluation, run lifecycle, and
// analyzer execution together. The HTTP layer and the CLI both drive it;
// neither talks to the executor directly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/brand-foundation/internal/analyzers"
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// RecordStore is the record source/sink boundary. GetRecord returns
// (nil, nil) when the project does not exist.
type RecordStore interface {
	GetRecord(ctx context.Context, projectID uuid.UUID) (*foundation.Record, error)
	SaveRecord(ctx context.Context, projectID uuid.UUID, patch *foundation.Patch) error
}

// Executor performs the actual analysis (LLM-backed in production). It
// returns the free-text analysis and the schema-extracted fields, or an
// error which the orchestrator converts into MarkFailed.
type Executor interface {
	Analyze(ctx context.Context, analyzerType string, rec *foundation.Record) (rawAnalysis string, parsedFields map[string]any, err error)
}

// ProjectNotFoundError indicates the referenced project has no record.
type ProjectNotFoundError struct {
	ProjectID uuid.UUID
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project not found: %s", e.ProjectID)
}

// UnknownAnalyzerError indicates a request for a type outside the registry.
type UnknownAnalyzerError struct {
	AnalyzerType string
}

func (e *UnknownAnalyzerError) Error() string {
	return fmt.Sprintf("unknown analyzer type: %s", e.AnalyzerType)
}

// Orchestrator coordinates one project's analyzer work. All execution is
// fire-and-forget: trigger calls create pending runs, start the work on
// background goroutines, and return immediately. Wait blocks until all
// dispatched work (including chained re-evaluations) settles.
type Orchestrator struct {
	registry *analyzers.Registry
	records  RecordStore
	manager  *runs.Manager
	executor Executor

	wg sync.WaitGroup
}

// New creates an orchestrator.
func New(registry *analyzers.Registry, records RecordStore, manager *runs.Manager, executor Executor) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		records:  records,
		manager:  manager,
		executor: executor,
	}
}

// Evaluate returns the analyzer types currently eligible for the project,
// without creating any runs.
func (o *Orchestrator) Evaluate(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rec, history, err := o.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return o.registry.EvaluateTriggers(rec, history), nil
}

// TriggerEligible evaluates triggers, creates a pending run for each
// eligible analyzer, and dispatches execution in the background. It returns
// the types actually started. Losing a create race to a concurrent trigger
// is not an error; the type is simply not reported as started.
func (o *Orchestrator) TriggerEligible(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rec, history, err := o.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var started []string
	var batch []*runs.Run
	for _, analyzerType := range o.registry.EvaluateTriggers(rec, history) {
		run, err := o.manager.Create(ctx, projectID, analyzerType, "auto: completion triggers")
		if err != nil {
			var dup *runs.DuplicateInFlightError
			if errors.As(err, &dup) {
				continue
			}
			return started, err
		}
		started = append(started, analyzerType)
		batch = append(batch, run)
	}

	o.dispatch(batch)
	return started, nil
}

// TriggerOne creates and dispatches a run for one analyzer, subject to the
// evaluator. It returns (nil, nil) when the analyzer is simply not eligible;
// a *runs.DuplicateInFlightError when one is already in flight.
func (o *Orchestrator) TriggerOne(ctx context.Context, projectID uuid.UUID, analyzerType string) (*runs.Run, error) {
	if o.registry.Lookup(analyzerType) == nil {
		return nil, &UnknownAnalyzerError{AnalyzerType: analyzerType}
	}

	rec, history, err := o.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	eligible := false
	for _, t := range o.registry.EvaluateTriggers(rec, history) {
		if t == analyzerType {
			eligible = true
			break
		}
	}
	if !eligible {
		if latest := runs.Latest(history, analyzerType); latest != nil && latest.InFlight() {
			return nil, &runs.DuplicateInFlightError{ProjectID: projectID, AnalyzerType: analyzerType}
		}
		return nil, nil
	}

	run, err := o.manager.Create(ctx, projectID, analyzerType, "manual: requested")
	if err != nil {
		return nil, err
	}
	o.dispatch([]*runs.Run{run})
	return run, nil
}

// Force bypasses the evaluator and the shouldTrigger predicate entirely but
// still goes through the lifecycle manager, so the in-flight invariant
// holds even for forced runs.
func (o *Orchestrator) Force(ctx context.Context, projectID uuid.UUID, analyzerType string) (*runs.Run, error) {
	if o.registry.Lookup(analyzerType) == nil {
		return nil, &UnknownAnalyzerError{AnalyzerType: analyzerType}
	}
	if rec, err := o.records.GetRecord(ctx, projectID); err != nil {
		return nil, err
	} else if rec == nil {
		return nil, &ProjectNotFoundError{ProjectID: projectID}
	}

	run, err := o.manager.Create(ctx, projectID, analyzerType, "manual: forced")
	if err != nil {
		return nil, err
	}
	o.dispatch([]*runs.Run{run})
	return run, nil
}

// Wait blocks until all dispatched executions, including chained
// re-evaluations, have settled. The CLI uses it for synchronous runs; the
// HTTP layer never calls it.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// snapshot loads the record and run history for evaluation.
func (o *Orchestrator) snapshot(ctx context.Context, projectID uuid.UUID) (*foundation.Record, []runs.Run, error) {
	rec, err := o.records.GetRecord(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load record: %w", err)
	}
	if rec == nil {
		return nil, nil, &ProjectNotFoundError{ProjectID: projectID}
	}
	history, err := o.manager.Store().ListRuns(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run history: %w", err)
	}
	return rec, history, nil
}

// dispatch starts the batch on a background goroutine. The batch itself
// fans out through an errgroup so one slow analyzer does not serialize the
// others. Request contexts are not propagated: execution outlives the
// triggering request.
func (o *Orchestrator) dispatch(batch []*runs.Run) {
	if len(batch) == 0 {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		g, ctx := errgroup.WithContext(context.Background())
		for _, run := range batch {
			g.Go(func() error {
				o.execute(ctx, run)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// execute drives one run chain to settlement, re-running the executor while
// failures flip the row back to pending. On completion it applies the
// analyzer's field updates and re-evaluates triggers, since one analyzer
// completing can unlock another.
func (o *Orchestrator) execute(ctx context.Context, run *runs.Run) {
	projectID := run.ProjectID
	analyzerType := run.AnalyzerType

	for {
		if _, err := o.manager.MarkRunning(ctx, run.ID); err != nil {
			log.Printf("[orchestrator] %s/%s: cannot start: %v", projectID, analyzerType, err)
			return
		}

		rec, err := o.records.GetRecord(ctx, projectID)
		if err == nil && rec == nil {
			err = &ProjectNotFoundError{ProjectID: projectID}
		}

		var raw string
		var parsed map[string]any
		if err == nil {
			raw, parsed, err = o.executor.Analyze(ctx, analyzerType, rec)
		}

		if err != nil {
			failed, ferr := o.manager.MarkFailed(ctx, run.ID, err.Error())
			if ferr != nil {
				log.Printf("[orchestrator] %s/%s: failed to record failure: %v", projectID, analyzerType, ferr)
				return
			}
			if failed.Status == runs.StatusPending {
				log.Printf("[orchestrator] %s/%s: attempt %d failed, retrying: %v", projectID, analyzerType, failed.RetryCount, err)
				continue
			}
			log.Printf("[orchestrator] %s/%s: terminally failed after %d attempts: %v", projectID, analyzerType, failed.RetryCount, err)
			return
		}

		if _, err := o.manager.MarkCompleted(ctx, run.ID, raw, parsed); err != nil {
			log.Printf("[orchestrator] %s/%s: failed to record completion: %v", projectID, analyzerType, err)
			return
		}
		o.settle(ctx, projectID, analyzerType, parsed)
		return
	}
}

// settle applies the analyzer's proposed field updates and chains a fresh
// trigger evaluation.
func (o *Orchestrator) settle(ctx context.Context, projectID uuid.UUID, analyzerType string, parsed map[string]any) {
	d := o.registry.Lookup(analyzerType)
	if d != nil && d.FieldsToUpdate != nil {
		if patch := d.FieldsToUpdate(parsed); patch != nil && !patch.IsEmpty() {
			if err := o.records.SaveRecord(ctx, projectID, patch); err != nil {
				log.Printf("[orchestrator] %s/%s: failed to apply field updates: %v", projectID, analyzerType, err)
			}
		}
	}

	started, err := o.chainEligible(ctx, projectID)
	if err != nil {
		log.Printf("[orchestrator] %s: chained evaluation failed: %v", projectID, err)
		return
	}
	if len(started) > 0 {
		log.Printf("[orchestrator] %s: %s completion unlocked %v", projectID, analyzerType, started)
	}
}

// chainEligible is the post-completion variant of TriggerEligible. It only
// starts analyzers with no run at all in history: predicates that hold after
// completion (narrative's fields stay filled) would otherwise re-trigger
// themselves forever. Fresh user mutations go through TriggerEligible,
// which has no such restriction.
func (o *Orchestrator) chainEligible(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rec, history, err := o.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var started []string
	var batch []*runs.Run
	for _, analyzerType := range o.registry.EvaluateTriggers(rec, history) {
		if runs.Latest(history, analyzerType) != nil {
			continue
		}
		run, err := o.manager.Create(ctx, projectID, analyzerType, "auto: unlocked by completed analyzer")
		if err != nil {
			var dup *runs.DuplicateInFlightError
			if errors.As(err, &dup) {
				continue
			}
			return started, err
		}
		started = append(started, analyzerType)
		batch = append(batch, run)
	}

	o.dispatch(batch)
	return started, nil
}
