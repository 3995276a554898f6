package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"certiflow/internal/engine"
)

func newRunCommand(app *App) *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the certification workflow",
		Long: `Run every step of the workflow in order (pipeline mode).

The run stops at the first failing step and the dossier status becomes
"echec"; when every step succeeds it becomes "termine".

With --phase only the named step runs. A failure still marks the dossier
"echec"; a success leaves the status untouched.

Example:
  certiflow run --dossier ./PRJ-42
  certiflow run --dossier ./PRJ-42 --phase check_mop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dossier()
			if err != nil {
				return app.fail(err)
			}
			e, err := app.engine()
			if err != nil {
				return app.fail(err)
			}

			meta := e.Metadata()
			app.Printer.Banner(meta.Project, meta.STIVersion, d.ID)
			app.watch(e)

			start := time.Now()
			if phase != "" {
				err = e.RunStep(cmd.Context(), phase, d)
			} else {
				err = e.RunAll(cmd.Context(), d)
			}

			if errors.Is(err, engine.ErrUnknownStep) {
				return app.fail(err)
			}
			if phase == "" || err != nil {
				app.Printer.RunSummary(d.ID, d.Status, time.Since(start))
			}
			if err != nil {
				return NewExitError(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "run only the step with this id")
	return cmd
}
