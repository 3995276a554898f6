// Package engine runs the certification workflow against a dossier.
//
// The [Engine] loads an ordered list of steps from a workflow file and runs
// them in one of two modes:
//   - pipeline mode ([Engine.RunAll]) executes every step in order
//   - objective mode ([Engine.RunToObjective]) executes only the steps an
//     objective names as preconditions, then checks its expected results
//
// Both modes stop at the first failing step and never retry or roll back.
// The dossier status is written once, at the end of the run:
//
//	all steps succeed                  → termine
//	a step fails                       → echec
//	objective results missing          → incomplet
//
// Step failures, including panics, are logged with the step and dossier ids
// and never escape the engine other than as a [*StepFailedError].
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"certiflow/internal/dossier"
	"certiflow/internal/metrics"
	"certiflow/internal/objective"
	"certiflow/internal/status"
	"certiflow/internal/steps"
	"certiflow/internal/telemetry"
)

// ObjectiveStore supplies objective definitions by id.
// [objective.Manager] implements this interface.
type ObjectiveStore interface {
	Get(id string) (*objective.Objective, bool)
}

// ProgressCallback is invoked before each step begins execution.
//
// The callback receives stepIndex (1-based), totalSteps count, and the step id.
type ProgressCallback func(stepIndex, totalSteps int, stepID string)

// CompletionCallback is invoked after each step with its outcome.
type CompletionCallback func(stepID string, err error, elapsed time.Duration)

// Engine holds the loaded workflow and executes it.
type Engine struct {
	registry *steps.Registry
	deps     steps.Deps
	logger   *slog.Logger
	recorder *metrics.Recorder

	progress   ProgressCallback
	completion CompletionCallback

	steps    []steps.Step
	index    map[string]int
	metadata Metadata
	runID    string
}

// New creates an engine with no steps loaded.
//
// A nil registry uses [steps.DefaultRegistry]. The logger is shared with the
// steps through deps unless deps already carries one.
func New(registry *steps.Registry, deps steps.Deps, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = steps.DefaultRegistry()
	}
	logger = telemetry.OrDiscard(logger)
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &Engine{
		registry: registry,
		deps:     deps,
		logger:   logger,
		index:    make(map[string]int),
	}
}

// SetRecorder sets the metrics recorder for step and dossier outcomes.
func (e *Engine) SetRecorder(r *metrics.Recorder) {
	e.recorder = r
}

// SetProgressCallback configures an optional callback invoked before each step.
func (e *Engine) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// SetCompletionCallback configures an optional callback invoked after each step.
func (e *Engine) SetCompletionCallback(cb CompletionCallback) {
	e.completion = cb
}

// LoadFile loads a workflow file. Relative script paths are resolved
// against the file's directory.
func (e *Engine) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	defer f.Close()

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		baseDir = filepath.Dir(path)
	}
	return e.load(f, baseDir)
}

// LoadConfiguration loads a workflow from r, replacing any previous workflow.
// Relative script paths are resolved against the working directory.
func (e *Engine) LoadConfiguration(r io.Reader) error {
	return e.load(r, "")
}

func (e *Engine) load(r io.Reader, baseDir string) error {
	meta, descs, err := parseWorkflow(r, baseDir)
	if err != nil {
		return err
	}

	loaded := make([]steps.Step, 0, len(descs))
	index := make(map[string]int, len(descs))
	for _, desc := range descs {
		s, known := e.registry.Resolve(desc, e.deps)
		if !known {
			e.logger.Warn("unknown step identifier, using generic script step",
				"step_id", desc.ID, "script", desc.Script)
		}
		index[desc.ID] = len(loaded)
		loaded = append(loaded, s)
	}

	e.steps = loaded
	e.index = index
	e.metadata = meta
	e.logger.Info("workflow loaded", "steps", len(loaded), "project", meta.Project)
	return nil
}

// Metadata returns the header of the loaded workflow.
func (e *Engine) Metadata() Metadata {
	return e.metadata
}

// Lookup returns the step with the given id.
func (e *Engine) Lookup(id string) (steps.Step, bool) {
	i, ok := e.index[id]
	if !ok {
		return nil, false
	}
	return e.steps[i], true
}

// Has reports whether the workflow defines a step with the given id.
func (e *Engine) Has(id string) bool {
	_, ok := e.index[id]
	return ok
}

// Steps returns the loaded steps in workflow order.
func (e *Engine) Steps() []steps.Step {
	return e.steps
}

// Len returns the number of loaded steps.
func (e *Engine) Len() int {
	return len(e.steps)
}

// StartRun assigns a new run id used to annotate subsequent step logs.
// RunAll, RunToObjective and RunStep call it themselves.
func (e *Engine) StartRun() string {
	e.runID = uuid.NewString()
	return e.runID
}

// RunID returns the id of the current run, empty before the first run.
func (e *Engine) RunID() string {
	return e.runID
}

// Execute runs one step and reports success. Failures and panics are
// logged, recorded and swallowed.
func (e *Engine) Execute(ctx context.Context, s steps.Step, d *dossier.Dossier) bool {
	return e.execute(ctx, s, d) == nil
}

func (e *Engine) execute(ctx context.Context, s steps.Step, d *dossier.Dossier) error {
	logger := telemetry.WithStepID(e.runLogger(), s.ID())
	if d != nil {
		logger = telemetry.WithDossierID(logger, d.ID)
	}

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = steps.Invoke(ctx, s, d)
	}
	elapsed := time.Since(start)

	e.recorder.ObserveStep(s.ID(), err == nil, elapsed)
	if e.completion != nil {
		e.completion(s.ID(), err, elapsed)
	}
	if err != nil {
		logger.Error("step failed", "kind", s.Kind().String(), "error", err, "duration", elapsed)
		return err
	}
	logger.Info("step succeeded", "kind", s.Kind().String(), "duration", elapsed)
	return nil
}

func (e *Engine) runLogger() *slog.Logger {
	if e.runID == "" {
		return e.logger
	}
	return telemetry.WithRunID(e.logger, e.runID)
}

// RunAll executes every step in order. The first failure sets the dossier
// to echec and returns a [*StepFailedError]; otherwise the dossier is set
// to termine.
func (e *Engine) RunAll(ctx context.Context, d *dossier.Dossier) error {
	e.StartRun()
	e.runLogger().Info("pipeline started", "dossier_id", d.ID, "steps", len(e.steps))

	for i, s := range e.steps {
		if e.progress != nil {
			e.progress(i+1, len(e.steps), s.ID())
		}
		if err := e.execute(ctx, s, d); err != nil {
			return e.fail(d, s.ID(), err)
		}
	}
	return e.finish(d, status.DossierDone)
}

// RunToObjective executes the steps named by the objective's preconditions,
// skipping path preconditions and unknown identifiers. On success the
// dossier is set to termine when every required expected result exists,
// incomplet otherwise.
func (e *Engine) RunToObjective(ctx context.Context, id string, store ObjectiveStore, d *dossier.Dossier) error {
	obj, ok := store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObjective, id)
	}

	e.StartRun()
	logger := telemetry.WithObjectiveID(e.runLogger(), id)
	logger.Info("objective run started", "dossier_id", d.ID)

	var toRun []steps.Step
	for _, p := range obj.Preconditions {
		stepID, ok := p.StepID(e)
		if !ok {
			logger.Debug("precondition skipped: not a step", "precondition", p.Ref)
			continue
		}
		s, _ := e.Lookup(stepID)
		toRun = append(toRun, s)
	}

	for i, s := range toRun {
		if e.progress != nil {
			e.progress(i+1, len(toRun), s.ID())
		}
		if err := e.execute(ctx, s, d); err != nil {
			return e.fail(d, s.ID(), err)
		}
	}

	if missing := obj.MissingResults(d.Root); len(missing) > 0 {
		logger.Warn("expected results missing", "missing", missing)
		return e.finish(d, status.DossierIncomplete)
	}
	return e.finish(d, status.DossierDone)
}

// RunStep executes a single named step. A failure sets the dossier to
// echec; success leaves the dossier status untouched.
func (e *Engine) RunStep(ctx context.Context, id string, d *dossier.Dossier) error {
	s, ok := e.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}

	e.StartRun()
	if e.progress != nil {
		e.progress(1, 1, id)
	}
	if err := e.execute(ctx, s, d); err != nil {
		return e.fail(d, id, err)
	}
	return nil
}

// ProgressRatio returns the fraction of the objective's preconditions that
// name a loaded step, 0 when the objective is unknown or has none.
func (e *Engine) ProgressRatio(id string, store ObjectiveStore) float64 {
	obj, ok := store.Get(id)
	if !ok || len(obj.Preconditions) == 0 {
		return 0
	}
	done := 0
	for _, p := range obj.Preconditions {
		if _, ok := p.StepID(e); ok {
			done++
		}
	}
	return float64(done) / float64(len(obj.Preconditions))
}

func (e *Engine) fail(d *dossier.Dossier, stepID string, cause error) error {
	stepErr := &StepFailedError{StepID: stepID, DossierID: d.ID, Err: cause}
	if err := e.finish(d, status.DossierFailed); err != nil {
		return errors.Join(stepErr, err)
	}
	return stepErr
}

func (e *Engine) finish(d *dossier.Dossier, s status.Dossier) error {
	e.recorder.SetDossierStatus(s)
	if err := d.SetStatus(s); err != nil {
		return fmt.Errorf("failed to persist dossier status: %w", err)
	}
	e.runLogger().Info("dossier status updated", "dossier_id", d.ID, "status", s.String())
	return nil
}
