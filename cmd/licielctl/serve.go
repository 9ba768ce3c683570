package main

import (
	"github.com/spf13/cobra"

	"liciel/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (configured by liciel.yaml and LICIEL_* variables)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}
