package cli

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"certiflow/internal/config"
	"certiflow/internal/dossier"
	"certiflow/internal/engine"
	"certiflow/internal/exec"
	"certiflow/internal/metrics"
	"certiflow/internal/objective"
	"certiflow/internal/output"
	"certiflow/internal/steps"
	"certiflow/internal/telemetry"
)

// App holds the dependencies shared by every command.
//
// Fields left nil are built from the configuration when a command starts,
// so tests can inject a config, a printer and a fake [exec.Runner] and let
// the rest default.
type App struct {
	Config   *config.Config
	Printer  *output.Printer
	Logger   *slog.Logger
	Runner   exec.Runner
	Recorder *metrics.Recorder

	logFile io.Closer
}

// rootFlags holds the persistent flag values.
type rootFlags struct {
	configPath string
	dossier    string
	dossierID  string
	workflow   string
	objectives string
}

// init completes the app from configuration and flag overrides.
func (a *App) init(cmd *cobra.Command, flags *rootFlags) error {
	if a.Config == nil {
		loader := config.NewLoader()
		var (
			cfg *config.Config
			err error
		)
		if flags.configPath != "" {
			cfg, err = loader.LoadFromFile(flags.configPath)
		} else {
			cfg, err = loader.Load()
		}
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	a.applyFlags(flags)

	if a.Logger == nil {
		w := cmd.ErrOrStderr()
		if a.Config.Log.File != "" {
			f, err := telemetry.OpenLogFile(a.Config.Log.File)
			if err != nil {
				return err
			}
			a.logFile = f
			w = f
		}
		a.Logger = telemetry.NewLogger(w, a.Config.Log.Level, a.Config.Log.Format)
	}
	if a.Printer == nil {
		a.Printer = output.NewPrinterWithWriter(cmd.OutOrStdout())
		a.Printer.SetColor(a.Config.Output.Color)
	}
	if a.Runner == nil {
		a.Runner = exec.NewOSRunner()
	}
	if a.Recorder == nil {
		a.Recorder = metrics.NewRecorder()
	}
	return nil
}

func (a *App) applyFlags(flags *rootFlags) {
	if flags.dossier != "" {
		a.Config.Dossier.Root = flags.dossier
	}
	if flags.dossierID != "" {
		a.Config.Dossier.ID = flags.dossierID
	}
	if flags.workflow != "" {
		a.Config.WorkflowFile = flags.workflow
	}
	if flags.objectives != "" {
		a.Config.ObjectivesFile = flags.objectives
	}
}

// close flushes metrics and releases the log file.
func (a *App) close() error {
	var err error
	if a.Config != nil {
		err = a.Recorder.WriteTextfile(a.Config.Metrics.Textfile)
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return err
}

// dossier returns the configured dossier after checking its root exists.
// The id defaults to the root directory name.
func (a *App) dossier() (*dossier.Dossier, error) {
	root := a.Config.Dossier.Root
	id := a.Config.Dossier.ID
	if id == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		id = filepath.Base(abs)
	}
	d := dossier.New(id, root, a.Logger)
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d, nil
}

// engine builds an engine with the workflow file loaded.
func (a *App) engine() (*engine.Engine, error) {
	deps := steps.Deps{
		Runner:      a.Runner,
		Interpreter: a.Config.Interpreter,
		Logger:      a.Logger,
	}
	e := engine.New(steps.DefaultRegistry(), deps, a.Logger)
	e.SetRecorder(a.Recorder)
	if err := e.LoadFile(a.Config.WorkflowFile); err != nil {
		return nil, err
	}
	return e, nil
}

// objectives loads the objectives file.
func (a *App) objectives() (*objective.Manager, error) {
	m := objective.NewManager(a.Logger)
	m.SetRecorder(a.Recorder)
	if err := m.LoadFile(a.Config.ObjectivesFile); err != nil {
		return nil, err
	}
	return m, nil
}

// watch prints step progress while e runs.
func (a *App) watch(e *engine.Engine) {
	e.SetProgressCallback(a.Printer.StepStart)
	e.SetCompletionCallback(a.Printer.StepResult)
}

// fail prints err and returns exit code 1.
func (a *App) fail(err error) error {
	a.Printer.Error(err.Error())
	return NewExitError(1)
}
