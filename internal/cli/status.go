package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"certiflow/internal/status"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the dossier status",
		Long:  `Print the status recorded in the dossier's statut.txt marker file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := app.Config.Dossier.Root
			id := app.Config.Dossier.ID
			if id == "" {
				if abs, err := filepath.Abs(root); err == nil {
					id = filepath.Base(abs)
				}
			}

			reader := status.NewReader(root)
			if !reader.Exists() {
				app.Printer.NoStatus(id)
				return nil
			}
			s, err := reader.Read()
			if err != nil {
				return app.fail(err)
			}
			app.Printer.DossierStatus(id, s)
			return nil
		},
	}
}
