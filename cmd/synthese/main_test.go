package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/amiantesynth"
	"liciel/internal/infrastructure"
)

func TestReconstruct(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Table_Z_Amiante.json"),
		[]byte(`[{"Id_Prelevement": "ZPSO-1", "Localisation": "Cave", "Resultats": "Absence d'amiante"}]`), 0o644))

	paths, err := Reconstruct(dir, infrastructure.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, amiantesynth.JSONFile),
		filepath.Join(dir, amiantesynth.HTMLFile),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nb_zones_absence": 1`)
}

func TestReconstructEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	paths, err := Reconstruct(dir, infrastructure.DiscardLogger())
	require.NoError(t, err)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}
