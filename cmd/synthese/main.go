// Command synthese rebuilds the asbestos synthesis of the mission whose
// tables sit in the current directory. It takes no flags and writes
// synthese_amiante.json and synthese_amiante.html next to the tables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"liciel/internal/amiantesynth"
	"liciel/internal/config"
	"liciel/internal/files"
	"liciel/internal/infrastructure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	cfg := config.Default().Logging
	cfg.Format = "text"
	logger := infrastructure.WithComponent(infrastructure.NewLogger(cfg, os.Stderr), "synthese")

	paths, err := Reconstruct(dir, logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println("Écrit :", p)
	}
	return nil
}

// Reconstruct loads the tables from dir and writes both renderings there.
func Reconstruct(dir string, logger *slog.Logger) ([]string, error) {
	tables := amiantesynth.NewLoader(logger).Load(dir)
	s := amiantesynth.Build(tables)

	logger.Info("synthesis rebuilt",
		slog.String("dir", dir),
		slog.Int("zones", s.Global.NbZonesTotal),
		slog.Int("pieces", len(s.Pieces)))

	return s.Write(files.NewManager(dir))
}
