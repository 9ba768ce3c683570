// Command licielctl scans LICIEL export folders from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"liciel/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "licielctl",
		Short:         "Build synthesis tables from LICIEL export folders",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level: debug|info|warn|error")

	root.AddCommand(
		newScanCmd(),
		newSyntheseCmd(),
		newServeCmd(),
	)
	return root
}
