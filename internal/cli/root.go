// Package cli provides the command-line interface for certiflow.
//
// The root command carries the persistent flags that select the dossier and
// the definition files; subcommands map onto the engine and objective
// operations:
//   - run: execute the whole workflow, or one step with --phase
//   - objective: execute the steps an objective depends on
//   - evaluate: evaluate every objective and print the report
//   - progress: show how many of an objective's preconditions are known steps
//   - status: print the dossier status marker
//   - steps: list the loaded workflow steps
//
// Commands signal failure by returning an [ExitError]; [Execute] turns it
// into the process exit code.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "certiflow",
		Short: "Certification workflow engine",
		Long: `certiflow runs the verification steps of a certification dossier
and evaluates the objectives built on top of them.

A dossier is a directory holding the CSV exports under data/. Steps write
their findings under audit/ and the dossier status to statut.txt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: search "+
		"$CERTIFLOW_CONFIG_PATH, user config dir, ./certiflow.yaml)")
	pf.StringVarP(&flags.dossier, "dossier", "d", "", "dossier root directory")
	pf.StringVar(&flags.dossierID, "dossier-id", "", "dossier identifier (default: root directory name)")
	pf.StringVarP(&flags.workflow, "workflow", "w", "", "workflow YAML file")
	pf.StringVarP(&flags.objectives, "objectives", "o", "", "objectives YAML file")

	rootCmd.AddCommand(
		newRunCommand(app),
		newObjectiveCommand(app),
		newEvaluateCommand(app),
		newProgressCommand(app),
		newStatusCommand(app),
		newStepsCommand(app),
	)
	return rootCmd
}

// ExecuteResult is the outcome of a command run.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithApp executes the command line args against app.
func RunWithApp(ctx context.Context, app *App, args []string) ExecuteResult {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := app.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{}
}

// Execute runs the CLI and exits the process with the command's exit code.
// SIGINT and SIGTERM cancel the running step.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result := RunWithApp(ctx, &App{}, os.Args[1:])
	stop()

	var exitErr *ExitError
	if result.Err != nil && !errors.As(result.Err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", result.Err)
	}
	os.Exit(result.ExitCode)
}
