package cli

import (
	"github.com/spf13/cobra"
)

func newProgressCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [objective-id...]",
		Short: "Show objective progress",
		Long: `Show, for each objective, the fraction of its preconditions that name a
step of the loaded workflow. Without arguments every objective is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.engine()
			if err != nil {
				return app.fail(err)
			}
			m, err := app.objectives()
			if err != nil {
				return app.fail(err)
			}

			ids := args
			if len(ids) == 0 {
				for _, o := range m.Objectives() {
					ids = append(ids, o.ID)
				}
			}
			for _, id := range ids {
				if _, ok := m.Get(id); !ok {
					app.Printer.Warning("objectif inconnu: " + id)
				}
				app.Printer.Progress(id, e.ProgressRatio(id, m))
			}
			return nil
		},
	}
}
