// Package workflow executes ordered stage pipelines with per-stage
// failure policies.
//
// A Runner drives one WorkflowRun: stages execute strictly in order, each
// stage sees the accumulated outputs of its predecessors through an
// append-only context, and a failing stage is handled by its declared
// policy: abort the run, jump to a fallback stage, or record a diagnostic
// and continue. Terminal outcomes are typed results, never panics or
// sentinel-error control flow between components.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windlass-io/windlass/log"
	"github.com/windlass-io/windlass/metrics"
)

// ErrKeyExists is returned by Context.Put for an already-present key.
// The workflow context is append-only: no stage may overwrite another
// stage's output.
var ErrKeyExists = errors.New("context key already present")

// Diagnostic records a non-fatal stage failure (report-and-continue or a
// taken fallback). Diagnostics never block the primary outcome.
type Diagnostic struct {
	// Stage is the failing stage name.
	Stage string `json:"stage"`
	// Reason is the failure description.
	Reason string `json:"reason"`
}

// Context accumulates stage outputs for one run. Append-only: Put rejects
// duplicate keys, so readers of a completed run need no synchronization.
// Not safe for concurrent writers; each run is single-owner by design.
type Context struct {
	values map[string]any
	keys   []string
	diags  []Diagnostic
}

// NewContext creates an empty workflow context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Put records a stage output under key. Fails with ErrKeyExists if the
// key is already present.
func (c *Context) Put(key string, value any) error {
	if _, exists := c.values[key]; exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}
	c.values[key] = value
	c.keys = append(c.keys, key)
	return nil
}

// Get returns the value recorded under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the recorded keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// AddDiagnostic records a non-fatal failure.
func (c *Context) AddDiagnostic(stage string, err error) {
	c.diags = append(c.diags, Diagnostic{Stage: stage, Reason: err.Error()})
}

// Diagnostics returns recorded diagnostics in occurrence order.
func (c *Context) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// FailureAction selects how the runner handles a stage failure.
type FailureAction int

const (
	// ActionAbort stops the run with a typed Aborted result.
	ActionAbort FailureAction = iota
	// ActionContinue records a diagnostic and proceeds to the next stage.
	// For best-effort side effects that must never block the primary
	// outcome.
	ActionContinue
	// ActionFallback jumps to the named fallback stage.
	ActionFallback
)

// FailurePolicy is a stage's declared failure handling.
type FailurePolicy struct {
	Action     FailureAction
	FallbackTo string
}

// Abort is the failure policy that stops the run.
func Abort() FailurePolicy {
	return FailurePolicy{Action: ActionAbort}
}

// ReportAndContinue is the failure policy that records a diagnostic and
// proceeds.
func ReportAndContinue() FailurePolicy {
	return FailurePolicy{Action: ActionContinue}
}

// FallbackTo is the failure policy that jumps to the named stage.
func FallbackTo(stage string) FailurePolicy {
	return FailurePolicy{Action: ActionFallback, FallbackTo: stage}
}

// Stage is one unit of work in a run.
type Stage struct {
	// Name identifies the stage; unique within a pipeline. Successful
	// output is recorded in the context under this name.
	Name string
	// Execute performs the stage's work. It may read accumulated outputs
	// and append additional keys through wc. A non-nil return value is
	// recorded under the stage name.
	Execute func(ctx context.Context, wc *Context) (any, error)
	// OnFailure is the declared failure policy.
	OnFailure FailurePolicy
}

// Status is the lifecycle state of a run.
type Status string

// Run states. Completed and Aborted are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Result is the typed outcome of a run.
type Result struct {
	// RunID is the run identity.
	RunID string
	// Status is the terminal state.
	Status Status
	// Context holds the accumulated stage outputs and diagnostics.
	Context *Context
	// FailedStage and FailedIndex identify the aborting stage when
	// Status is Aborted.
	FailedStage string
	FailedIndex int
	// Reason describes the abort cause.
	Reason string
	// Duration is the total run duration.
	Duration time.Duration
}

// Runner executes a fixed stage pipeline. Single-use: one Run call per
// Runner instance.
type Runner struct {
	runID     string
	stages    []Stage
	indexOf   map[string]int
	logger    *log.Logger
	collector *metrics.Collector
}

// NewRunner creates a runner for the given pipeline.
// Returns an error for duplicate stage names or unresolvable fallback
// targets, so malformed pipelines fail at construction, not mid-run.
func NewRunner(runID string, stages []Stage, logger *log.Logger, collector *metrics.Collector) (*Runner, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline requires at least one stage")
	}

	indexOf := make(map[string]int, len(stages))
	for i, stage := range stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if stage.Execute == nil {
			return nil, fmt.Errorf("stage %q has no execute function", stage.Name)
		}
		if _, dup := indexOf[stage.Name]; dup {
			return nil, fmt.Errorf("duplicate stage name %q", stage.Name)
		}
		indexOf[stage.Name] = i
	}
	for _, stage := range stages {
		if stage.OnFailure.Action == ActionFallback {
			if _, ok := indexOf[stage.OnFailure.FallbackTo]; !ok {
				return nil, fmt.Errorf("stage %q falls back to unknown stage %q", stage.Name, stage.OnFailure.FallbackTo)
			}
		}
	}

	return &Runner{
		runID:     runID,
		stages:    stages,
		indexOf:   indexOf,
		logger:    logger,
		collector: collector,
	}, nil
}

// Run executes the pipeline to a terminal state. The returned Result is
// the authoritative outcome; the error return is reserved for run-level
// defects (cancellation, stage re-entry), not stage failures.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	r.collector.IncRunStarted()

	wc := NewContext()
	executed := make([]bool, len(r.stages))

	i := 0
	for i < len(r.stages) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run canceled at stage %d: %w", i, err)
		}
		if executed[i] {
			// A fallback jump may only reach a stage that has not run:
			// re-entry would overwrite context keys and could loop forever.
			return nil, fmt.Errorf("stage %q scheduled twice", r.stages[i].Name)
		}
		executed[i] = true

		stage := r.stages[i]
		output, err := stage.Execute(ctx, wc)
		if err == nil {
			if output != nil {
				if putErr := wc.Put(stage.Name, output); putErr != nil {
					return nil, fmt.Errorf("record output of stage %q: %w", stage.Name, putErr)
				}
			}
			r.logger.Debug("stage completed", map[string]any{"stage": stage.Name})
			i++
			continue
		}

		switch stage.OnFailure.Action {
		case ActionContinue:
			wc.AddDiagnostic(stage.Name, err)
			r.logger.Warn("stage failed, continuing", map[string]any{
				"stage": stage.Name,
				"error": err.Error(),
			})
			i++

		case ActionFallback:
			wc.AddDiagnostic(stage.Name, err)
			r.collector.IncStageFallback()
			r.logger.Info("stage redirected to fallback", map[string]any{
				"stage":    stage.Name,
				"fallback": stage.OnFailure.FallbackTo,
			})
			i = r.indexOf[stage.OnFailure.FallbackTo]

		default: // ActionAbort
			r.collector.IncRunAborted()
			r.logger.Error("run aborted", map[string]any{
				"stage": stage.Name,
				"error": err.Error(),
			})
			return &Result{
				RunID:       r.runID,
				Status:      StatusAborted,
				Context:     wc,
				FailedStage: stage.Name,
				FailedIndex: i,
				Reason:      err.Error(),
				Duration:    time.Since(start),
			}, nil
		}
	}

	r.collector.IncRunCompleted()
	r.logger.Info("run completed", map[string]any{
		"stages":   len(r.stages),
		"duration": time.Since(start).String(),
	})

	return &Result{
		RunID:    r.runID,
		Status:   StatusCompleted,
		Context:  wc,
		Duration: time.Since(start),
	}, nil
}
