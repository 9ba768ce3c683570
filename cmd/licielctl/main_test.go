package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/amiantesynth"
	"liciel/internal/payload"
	"liciel/internal/shared/testutil"
)

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, m := range []struct{ id, city string }{{"2024-001", "Lyon"}, {"2024-002", "Paris"}} {
		f := testutil.NewMissionFixture(t, root, m.id, "XML")
		f.WriteTable("Table_General_Bien.xml", testutil.GeneralXML("General_Bien", map[string]string{
			"Immeuble_Commune":  m.city,
			"Immeuble_Adresse1": "1 rue de la Paix",
		}))
		f.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante",
			map[string]string{"Num_Materiau": "1", "Resultats": "Absence"}))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScanPrintsPayload(t *testing.T) {
	stdout, stderr, err := execute(t, "scan", fixtureRoot(t))
	require.NoError(t, err)

	var p payload.Payload
	require.NoError(t, json.Unmarshal([]byte(stdout), &p))
	assert.Len(t, p.Rows, 2)
	assert.Equal(t, "2 mission(s)", p.Meta.Label)
	assert.Equal(t, payload.SourceMissions, p.Meta.Source)
	assert.Contains(t, stderr, "2 ligne(s)")
}

func TestScanFilter(t *testing.T) {
	stdout, _, err := execute(t, "scan", fixtureRoot(t), "--field", "ville", "--value", "Paris")
	require.NoError(t, err)

	var p payload.Payload
	require.NoError(t, json.Unmarshal([]byte(stdout), &p))
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "Paris", p.Rows[0].Commune)
	assert.Equal(t, "Ville : Paris", p.Meta.Label)
}

func TestScanWritesExports(t *testing.T) {
	out := t.TempDir()
	stdout, _, err := execute(t, "scan", fixtureRoot(t), "--format", "csv,html", "--out", out)
	require.NoError(t, err)

	paths := strings.Fields(stdout)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.FileExists(t, p)
		assert.Equal(t, out, filepath.Dir(p))
	}
	assert.Equal(t, ".csv", filepath.Ext(paths[0]))
	assert.Equal(t, ".html", filepath.Ext(paths[1]))
}

func TestScanErrors(t *testing.T) {
	root := fixtureRoot(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing root", args: []string{"scan"}},
		{name: "unknown field", args: []string{"scan", root, "--field", "pays"}},
		{name: "value without field", args: []string{"scan", root, "--value", "Lyon"}},
		{name: "unknown format", args: []string{"scan", root, "--format", "docx"}},
		{name: "no mission", args: []string{"scan", t.TempDir()}},
		{name: "no matching row", args: []string{"scan", root, "--field", "ville", "--value", "Nice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSyntheseCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Table_Z_Amiante.json"),
		[]byte(`[{"Id_Prelevement": "ZPSO-1", "Localisation": "Cave", "Resultats": "Absence d'amiante"}]`), 0o644))

	stdout, _, err := execute(t, "synthese", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, amiantesynth.JSONFile)
	assert.FileExists(t, filepath.Join(dir, amiantesynth.HTMLFile))

	_, _, err = execute(t, "synthese", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
