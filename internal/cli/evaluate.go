package cli

import (
	"github.com/spf13/cobra"

	"certiflow/internal/status"
)

func newEvaluateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate every objective",
		Long: `Evaluate every objective in declaration order and print the report.

An objective whose preconditions hold runs its actions and is "atteint" when
its expected results exist. Otherwise it is "bloque" and the next objective
proceeds. The dossier status is not modified. The command exits with code 1
when any objective is blocked.`,
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
			m, err := app.objectives()
			if err != nil {
				return app.fail(err)
			}

			e.StartRun()
			results := m.EvaluateAll(cmd.Context(), e, d)
			app.Printer.ObjectiveReport(results)

			for _, r := range results {
				if r.Status == status.ObjectiveBlocked {
					return NewExitError(1)
				}
			}
			return nil
		},
	}
}
