package cli

import (
	"github.com/spf13/cobra"

	"certiflow/internal/output"
)

// scripted is implemented by steps that may run an external script.
type scripted interface {
	Script() string
}

func newStepsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the workflow steps",
		Long: `List the steps of the workflow file in execution order with the
implementation each one resolves to. Nothing is executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.engine()
			if err != nil {
				return app.fail(err)
			}

			rows := make([]output.StepRow, 0, e.Len())
			for _, s := range e.Steps() {
				row := output.StepRow{ID: s.ID(), Kind: s.Kind().String()}
				if sc, ok := s.(scripted); ok {
					row.Script = sc.Script()
				}
				rows = append(rows, row)
			}
			app.Printer.StepList(rows)
			return nil
		},
	}
}
