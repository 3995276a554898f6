// Command certiflow runs certification workflows against a dossier.
//
// See [cli.NewRootCommand] for the available commands.
package main

import "certiflow/internal/cli"

func main() {
	cli.Execute()
}
