// Command newfsctl formats, inspects, and backs up NewFS disk images. Its
// subcommand-per-file layout and cobra/pflag usage is grounded on the
// pack's direktiv-vorteil CLI (cmd/vorteil/imageutil), replacing the
// teacher's own hand-rolled os.Args-switch CLI (cmd/sqfs/main.go).
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "newfsctl",
		Short: "format, inspect, and back up NewFS disk images",
	}

	root.AddCommand(
		newFormatCmd(),
		newFsckCmd(),
		newLsCmd(),
		newCatCmd(),
		newStatCmd(),
		newExportCmd(),
		newImportCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
