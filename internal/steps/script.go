package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"certiflow/internal/dossier"
	"certiflow/internal/exec"
	"certiflow/internal/telemetry"
)

// DefaultInterpreter runs ".py" scripts when no interpreter is configured.
const DefaultInterpreter = "python3"

// ScriptStep runs an external program in the dossier root.
//
// A step without a script succeeds without doing anything. Scripts ending in
// ".py" are run through the configured interpreter, anything else is run
// directly. The optional "args" parameter is appended to the command line and
// the optional "interpreter" parameter replaces the workflow-wide interpreter.
type ScriptStep struct {
	id          string
	kind        Kind
	script      string
	params      map[string]any
	runner      exec.Runner
	interpreter string
	logger      *slog.Logger
}

// NewScriptStep creates a generic step from its descriptor.
func NewScriptStep(desc Descriptor, deps Deps) *ScriptStep {
	return newScriptStep(KindScript, desc, deps)
}

func newScriptStep(kind Kind, desc Descriptor, deps Deps) *ScriptStep {
	script := desc.Script
	if script != "" && !filepath.IsAbs(script) && desc.BaseDir != "" {
		script = filepath.Join(desc.BaseDir, script)
	}
	runner := deps.Runner
	if runner == nil {
		runner = exec.NewOSRunner()
	}
	params := desc.Params
	if params == nil {
		params = make(map[string]any)
	}
	interpreter := GetConfigString(params, "interpreter")
	if interpreter == "" {
		interpreter = deps.Interpreter
	}
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	return &ScriptStep{
		id:          desc.ID,
		kind:        kind,
		script:      script,
		params:      params,
		runner:      runner,
		interpreter: interpreter,
		logger:      telemetry.OrDiscard(deps.Logger),
	}
}

// ID returns the step identifier.
func (s *ScriptStep) ID() string { return s.id }

// Kind returns the step kind.
func (s *ScriptStep) Kind() Kind { return s.kind }

// Config returns the raw parameters.
func (s *ScriptStep) Config() map[string]any { return s.params }

// Script returns the resolved script path, empty when none is configured.
func (s *ScriptStep) Script() string { return s.script }

// Execute runs the script with the dossier root as working directory.
func (s *ScriptStep) Execute(ctx context.Context, d *dossier.Dossier) error {
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNoDossier, s.id)
	}
	if s.script == "" {
		return nil
	}

	name, args := s.command()
	logger := telemetry.WithStepID(telemetry.WithDossierID(s.logger, d.ID), s.id)
	logger.Debug("running script", "command", strings.Join(append([]string{name}, args...), " "))

	stdout, stderr, err := s.runner.RunInDir(ctx, d.Root, name, args...)
	if len(stdout) > 0 {
		logger.Debug("script output", "stdout", strings.TrimSpace(string(stdout)))
	}
	if err != nil {
		if len(stderr) > 0 {
			logger.Error("script failed", "stderr", strings.TrimSpace(string(stderr)))
		}
		return fmt.Errorf("script %s failed: %w", filepath.Base(s.script), err)
	}
	return nil
}

func (s *ScriptStep) command() (string, []string) {
	extra := GetConfigStringSlice(s.params, "args")
	if strings.EqualFold(filepath.Ext(s.script), ".py") {
		return s.interpreter, append([]string{s.script}, extra...)
	}
	return s.script, extra
}
