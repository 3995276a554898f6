package objective

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"certiflow/internal/dossier"
	"certiflow/internal/metrics"
	"certiflow/internal/status"
	"certiflow/internal/telemetry"
)

// Result is the outcome of evaluating one objective.
type Result struct {
	ObjectiveID string
	Status      status.Objective

	// Name and Criticality are copied from the definition for reporting.
	Name        string
	Criticality string

	// Executed lists the actions that ran, in order.
	Executed []string

	// Skipped lists actions with no matching step.
	Skipped []string

	// Missing lists required expected results that do not exist.
	Missing []string

	// Err explains a bloque status; nil otherwise.
	Err error
}

// Reached reports whether the objective was reached.
func (r Result) Reached() bool {
	return r.Status == status.ObjectiveReached
}

// Manager holds the objective definitions and evaluates them.
type Manager struct {
	objectives []*Objective
	index      map[string]int
	logger     *slog.Logger
	recorder   *metrics.Recorder
}

// NewManager creates a manager with no definitions.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		index:  make(map[string]int),
		logger: telemetry.OrDiscard(logger),
	}
}

// SetRecorder sets the metrics recorder for objective outcomes.
func (m *Manager) SetRecorder(r *metrics.Recorder) {
	m.recorder = r
}

// definition is the YAML shape of one objective.
type definition struct {
	ID                string           `yaml:"id"`
	Name              string           `yaml:"nom"`
	Description       string           `yaml:"description"`
	Criticality       string           `yaml:"criticite"`
	Preconditions     []Precondition   `yaml:"preconditions"`
	Actions           []string         `yaml:"actions"`
	ExpectedResults   []ExpectedResult `yaml:"resultats_attendus"`
	SuccessConditions []ExpectedResult `yaml:"conditions_succès"`
}

func (def definition) objective() *Objective {
	return &Objective{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		Criticality:     def.Criticality,
		Preconditions:   def.Preconditions,
		Actions:         def.Actions,
		ExpectedResults: append(def.ExpectedResults, def.SuccessConditions...),
		Status:          status.ObjectiveNotTriggered,
	}
}

// LoadFile loads definitions from a YAML file.
func (m *Manager) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinitions, err)
	}
	defer f.Close()
	return m.LoadDefinitions(f)
}

// LoadDefinitions parses objective definitions and replaces the current set.
//
// Accepted layouts, in declaration order:
//
//	objectifs:            objectifs:            - id: OBJ1
//	  OBJ1:                 - id: OBJ1            actions: [check_mop]
//	    actions: [a]          actions: [a]
func (m *Manager) LoadDefinitions(r io.Reader) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			m.replace(nil)
			return nil
		}
		return fmt.Errorf("%w: %w", ErrInvalidDefinitions, err)
	}

	defs, err := parseDocument(&doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinitions, err)
	}

	objectives := make([]*Objective, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("%w: objective without id", ErrInvalidDefinitions)
		}
		if seen[def.ID] {
			return fmt.Errorf("%w: duplicate objective %q", ErrInvalidDefinitions, def.ID)
		}
		seen[def.ID] = true
		objectives = append(objectives, def.objective())
	}

	m.replace(objectives)
	m.logger.Info("objectives loaded", "count", len(objectives))
	return nil
}

func (m *Manager) replace(objectives []*Objective) {
	m.objectives = objectives
	m.index = make(map[string]int, len(objectives))
	for i, o := range objectives {
		m.index[o.ID] = i
	}
}

func parseDocument(doc *yaml.Node) ([]definition, error) {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		return parseList(root)
	case yaml.MappingNode:
		section := mappingValue(root, "objectifs")
		if section == nil || isNull(section) {
			return nil, nil
		}
		switch section.Kind {
		case yaml.MappingNode:
			return parseMapping(section)
		case yaml.SequenceNode:
			return parseList(section)
		}
		return nil, fmt.Errorf("line %d: objectifs must be a mapping or a list", section.Line)
	}
	if isNull(root) {
		return nil, nil
	}
	return nil, fmt.Errorf("line %d: unexpected document layout", root.Line)
}

func parseMapping(node *yaml.Node) ([]definition, error) {
	defs := make([]definition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var def definition
		if !isNull(value) {
			if err := value.Decode(&def); err != nil {
				return nil, fmt.Errorf("objective %s: %w", key.Value, err)
			}
		}
		if def.ID == "" {
			def.ID = key.Value
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseList(node *yaml.Node) ([]definition, error) {
	var defs []definition
	if err := node.Decode(&defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// Get returns the objective with the given id.
func (m *Manager) Get(id string) (*Objective, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return m.objectives[i], true
}

// Objectives returns the loaded objectives in declaration order.
func (m *Manager) Objectives() []*Objective {
	return m.objectives
}

// Len returns the number of loaded objectives.
func (m *Manager) Len() int {
	return len(m.objectives)
}

// Evaluate evaluates one objective. It fails only with [ErrUnknownObjective];
// a blocked objective is reported through the result.
func (m *Manager) Evaluate(ctx context.Context, id string, runner StepRunner, d *dossier.Dossier) (Result, error) {
	o, ok := m.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownObjective, id)
	}
	return m.evaluate(ctx, o, runner, d), nil
}

// EvaluateAll evaluates every objective in declaration order. A blocked
// objective never prevents the next one from running.
func (m *Manager) EvaluateAll(ctx context.Context, runner StepRunner, d *dossier.Dossier) []Result {
	results := make([]Result, 0, len(m.objectives))
	for _, o := range m.objectives {
		results = append(results, m.evaluate(ctx, o, runner, d))
	}
	return results
}

func (m *Manager) evaluate(ctx context.Context, o *Objective, runner StepRunner, d *dossier.Dossier) Result {
	logger := telemetry.WithObjectiveID(m.logger, o.ID)
	if d != nil {
		logger = telemetry.WithDossierID(logger, d.ID)
	}
	baseDir := ""
	if d != nil {
		baseDir = d.Root
	}

	o.Status = status.ObjectiveNotTriggered
	res := Result{ObjectiveID: o.ID, Name: o.Name, Criticality: o.Criticality}
	finish := func(s status.Objective, err error) Result {
		m.advance(logger, o, s)
		res.Status = o.Status
		res.Err = err
		m.recorder.ObserveObjective(o.Status)
		return res
	}

	if unmet, ok := o.FirstUnmet(runner, baseDir); ok {
		logger.Warn("preconditions not met", "precondition", unmet.Ref)
		return finish(status.ObjectiveBlocked, fmt.Errorf("%w: %s", ErrPreconditionsUnmet, unmet.Ref))
	}

	m.advance(logger, o, status.ObjectiveInProgress)
	for _, action := range o.Actions {
		if err := ctx.Err(); err != nil {
			return finish(status.ObjectiveBlocked, fmt.Errorf("%w: %s: %w", ErrActionFailed, action, err))
		}
		step, ok := runner.Lookup(action)
		if !ok {
			logger.Warn("action skipped: unknown step", "action", action)
			res.Skipped = append(res.Skipped, action)
			continue
		}
		res.Executed = append(res.Executed, action)
		if !runner.Execute(ctx, step, d) {
			return finish(status.ObjectiveBlocked, fmt.Errorf("%w: %s", ErrActionFailed, action))
		}
	}

	res.Missing = o.MissingResults(baseDir)
	if len(res.Missing) > 0 {
		logger.Warn("expected results missing", "missing", strings.Join(res.Missing, ", "))
		return finish(status.ObjectiveBlocked, fmt.Errorf("%w: %s", ErrExpectedResultMissing, strings.Join(res.Missing, ", ")))
	}
	return finish(status.ObjectiveReached, nil)
}

// advance moves o forward to next and logs the transition.
func (m *Manager) advance(logger *slog.Logger, o *Objective, next status.Objective) {
	if !o.Status.CanAdvanceTo(next) {
		logger.Debug("status transition ignored", "from", o.Status, "to", next)
		return
	}
	logger.Info("objective status", "from", o.Status, "to", next)
	o.Status = next
}

// Report returns one "id: status" line per objective in declaration order.
func (m *Manager) Report() string {
	lines := make([]string, 0, len(m.objectives))
	for _, o := range m.objectives {
		lines = append(lines, fmt.Sprintf("%s: %s", o.ID, o.Status))
	}
	return strings.Join(lines, "\n")
}
