package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"certiflow/internal/engine"
)

func newObjectiveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "objective <id>",
		Short: "Run the steps required by an objective",
		Long: `Run only the steps an objective lists as preconditions, then check its
expected results.

The dossier status becomes "termine" when every required result exists,
"incomplet" when one is missing and "echec" when a step fails. The command
exits with code 1 on "echec" or when the objective is not defined.

Example:
  certiflow objective OBJ1 --dossier ./PRJ-42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			d, err := app.dossier()
			if err != nil {
				return app.fail(err)
			}
			e, err := app.engine()
			if err != nil {
				return app.fail(err)
			}
			m, err := app.objectives()
			if err != nil {
				return app.fail(err)
			}

			meta := e.Metadata()
			app.Printer.Banner(meta.Project, meta.STIVersion, d.ID)
			app.watch(e)

			start := time.Now()
			err = e.RunToObjective(cmd.Context(), id, m, d)
			if errors.Is(err, engine.ErrUnknownObjective) {
				return app.fail(err)
			}
			app.Printer.RunSummary(d.ID, d.Status, time.Since(start))
			if err != nil {
				return NewExitError(1)
			}
			return nil
		},
	}
}
