package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"liciel/internal/amiantesynth"
	"liciel/internal/files"
)

func newSyntheseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synthese [dir]",
		Short: "Rebuild synthese_amiante.json and .html from a mission's tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if info, err := os.Stat(dir); err != nil {
				return err
			} else if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			logger := cliLogger(cmd, "synthese")
			s := amiantesynth.Build(amiantesynth.NewLoader(logger).Load(dir))
			logger.Info("synthesis rebuilt",
				slog.String("dir", dir),
				slog.Int("zones", s.Global.NbZonesTotal),
				slog.Int("pieces", len(s.Pieces)))

			paths, err := s.Write(files.NewManager(dir))
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), "Écrit :", p)
			}
			return nil
		},
	}
}
