package main

//
// Main
//

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "nimbus",
		Short:        "Inspect and validate service schema documents",
		SilenceUsage: true,
	}
	verbose := root.PersistentFlags().BoolP("verbose", "v", false, "emit debug logs")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if *verbose {
			level = log.DebugLevel
		}
		log.Log = &log.Logger{Level: level, Handler: cli.New(os.Stderr)}
	}
	root.AddCommand(validateSubcommand())
	root.AddCommand(operationsSubcommand())
	root.AddCommand(shapeSubcommand())
	root.AddCommand(paginatorsSubcommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
