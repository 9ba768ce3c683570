package amiantesynth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/files"
	"liciel/internal/reconcile"
	"liciel/internal/shared/testutil"
	"liciel/internal/xmlrows"
)

func sampleTables() Tables {
	return Tables{
		TableMaterials.Key: {
			{"LiColonne_Id_Prelevement": "ZPSO-A", "LiColonne_Description": "Dalle", "LiColonne_Localisation": "Cuisine;  Séjour",
				"LiColonne_Resultats": "Présence d'amiante", "LiColonne_num_prelevement": "P1; P2"},
			{"Num_Materiau": "7", "materiau_produit": "Enduit", "Local_visite": "Séjour", "resultat": "Absence", "num_prelevement": "P3"},
			{"Description": "Conduit", "Resultats": "À confirmer"},
		},
		TableSamples.Key: {
			{"LiColonne_Num_Prelevement": "P1", "LiColonne_ClefComposant": "K1", "LiColonne_Resultat_reperage": "Présence", "LiColonne_Commentaires_Labo": "Chrysotile"},
			{"Num_Prelevement": "P2", "PV_Analyse_Lie": "pv-2.pdf"},
			{"Num_Prelevement": "P3", "Localisation": "Séjour mur nord"},
		},
		TableAnalyses.Key: {{"Clef_composant": "K1", "Repertoire_plan": "pv-1.pdf"}},
		TablePhotos.Key:   {{"Photo": "P1", "Chemin_acces": "photos/p1.jpg"}},
	}
}

func TestBuildZones(t *testing.T) {
	s := Build(sampleTables())

	require.Len(t, s.Zones, 3)
	assert.Equal(t, Zone{
		ID:            "ZPSO-A",
		Description:   "Dalle",
		Resultat:      "Présence d'amiante",
		Localisations: []string{"Cuisine", "Séjour"},
		Prelevements: []reconcile.Sample{
			{ID: "P1", Result: "Présence", Comment: "Chrysotile", PV: "pv-1.pdf", Location: "Cuisine", Photo: "photos/p1.jpg"},
			{ID: "P2", Result: "Présence d'amiante", PV: "pv-2.pdf", Location: "Séjour"},
		},
	}, s.Zones[0])

	assert.Equal(t, "7", s.Zones[1].ID, "material number is used as is")
	assert.Equal(t, "Enduit", s.Zones[1].Description)
	require.Len(t, s.Zones[1].Prelevements, 1)
	assert.Equal(t, "Séjour", s.Zones[1].Prelevements[0].Location, "material location wins over the sample row")
	assert.Equal(t, "Absence", s.Zones[1].Prelevements[0].Result)

	assert.Equal(t, "ZPSO-3", s.Zones[2].ID)
	assert.Equal(t, []string{}, s.Zones[2].Localisations)
	assert.Equal(t, []reconcile.Sample{}, s.Zones[2].Prelevements)
}

func TestBuildPiecesAndCounters(t *testing.T) {
	s := Build(sampleTables())

	require.Len(t, s.Pieces, 2)
	assert.Equal(t, "Cuisine", s.Pieces[0].Piece)
	assert.Equal(t, ResultPresence, s.Pieces[0].ResultatGlobal)
	assert.Len(t, s.Pieces[0].Zones, 1)
	assert.Equal(t, "Séjour", s.Pieces[1].Piece)
	assert.Len(t, s.Pieces[1].Zones, 2)

	assert.Equal(t, Global{
		PresenceAmiante:        true,
		NbZonesTotal:           3,
		NbZonesPresence:        1,
		NbZonesAbsence:         1,
		NbZonesSuspect:         1,
		NbPrelevementsTotal:    3,
		NbPrelevementsPresence: 2,
		NbPrelevementsAbsence:  1,
	}, s.Global)
}

func TestBuildDocumentsAndDeviations(t *testing.T) {
	s := Build(Tables{
		TableDocuments.Key: {
			{"LiColonne_Doc_Remis": "Plans"},
			{"Document": "DTA", "Doc_Demandes": "Rapport antérieur"},
			{},
		},
		TableDeviations.Key: {
			{"Observation": "Accès combles", "Oui": "X"},
			{"Libelle": "Toiture", "Non": " oui ", "SansObjet": "1"},
		},
	})

	assert.Equal(t, Documents{Remis: []string{"Plans", "DTA"}, Demandes: []string{"Rapport antérieur"}}, s.Documents)
	assert.Equal(t, []Ecart{
		{Observation: "Accès combles", Oui: true},
		{Observation: "Toiture", Non: true, SO: true},
	}, s.EcartsNorme)
}

func TestBuildEmpty(t *testing.T) {
	data, err := Build(Tables{}).JSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []any{}, doc["pieces"])
	assert.Equal(t, []any{}, doc["zpsos"])
	assert.Equal(t, []any{}, doc["ecarts_norme"])
	assert.Equal(t, map[string]any{"remis": []any{}, "demandes": []any{}}, doc["documents"])
	assert.Equal(t, false, doc["global"].(map[string]any)["presence_amiante"])
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"global\""))
}

func TestRoomResult(t *testing.T) {
	tests := []struct {
		name    string
		results []string
		want    string
	}{
		{"presence wins", []string{"Absence", "Matériau suspect", "present"}, ResultPresence},
		{"suspect before absence", []string{"negatif", "a confirmer"}, ResultSuspect},
		{"absence", []string{"Absent", ""}, ResultAbsence},
		{"nothing", []string{"", "Non prélevé"}, ResultUnknown},
		{"empty", nil, ResultUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomResult(tt.results))
		})
	}
}

func TestBooleanise(t *testing.T) {
	for _, v := range []string{"oui", "OUI", " x ", "X", "true", "1"} {
		assert.True(t, Booleanise(v), v)
	}
	for _, v := range []string{"", "non", "0", "false", "vrai", "xx"} {
		assert.False(t, Booleanise(v), v)
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []xmlrows.Row
		wantErr bool
	}{
		{name: "array", data: `[{"Num": "1"}, {"Num": " 2  bis "}]`, want: []xmlrows.Row{{"Num": "1"}, {"Num": "2 bis"}}},
		{name: "items object", data: `{"items": [{"A": "x"}]}`, want: []xmlrows.Row{{"A": "x"}}},
		{name: "scalars", data: `[{"n": 12.5, "b": true, "z": null, "o": {"k": 1}}]`, want: []xmlrows.Row{{"n": "12.5", "b": "true"}}},
		{name: "other object", data: `{"rows": []}`, want: []xmlrows.Row{}},
		{name: "non-object items skipped", data: `["x", {"A": "y"}]`, want: []xmlrows.Row{{"A": "y"}}},
		{name: "invalid", data: `[{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromStems(t *testing.T) {
	ts := FromStems(map[string][]xmlrows.Row{
		"table_z_amiante":    {{"Num_Materiau": "1"}},
		"Table_General_Bien": {{"Immeuble_Commune": "Lyon"}},
	})
	assert.Equal(t, []xmlrows.Row{{"Num_Materiau": "1"}}, ts.Rows(TableMaterials))
	assert.Empty(t, ts.Rows(TableSamples))
}

func TestLoaderPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("Table_Z_Amiante.json", `{"items": [{"Num_Materiau": "from-json"}]}`)
	write("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante", map[string]string{"Num_Materiau": "from-xml"}))
	write("Table_Z_Amiante_prelevements.xml", testutil.ItemsXML("Table_Z_Amiante_prelevements",
		map[string]string{"Num_Prelevement": "P1"}, map[string]string{"Num_Prelevement": "P2"}))
	write("Table_General_Amiante_Analyses.json", `not json`)
	write("Table_General_Amiante_Analyses.xml", testutil.ItemsXML("Table_General_Amiante_Analyses",
		map[string]string{"Clef_composant": "K1"}))

	logger, handler := testutil.NewTestLogger(t)
	ts := NewLoader(logger).Load(dir)

	assert.Equal(t, []xmlrows.Row{{"Num_Materiau": "from-json"}}, ts.Rows(TableMaterials))
	assert.Len(t, ts.Rows(TableSamples), 2)
	require.Len(t, ts.Rows(TableAnalyses), 1)
	assert.Equal(t, "K1", reconcile.AnalysisKey.Resolve(ts.Rows(TableAnalyses)[0]))
	assert.Empty(t, ts.Rows(TableDeviations))
	assert.True(t, handler.ContainsMessage("unreadable JSON table"))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	paths, err := Build(sampleTables()).Write(files.NewManager(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, JSONFile), filepath.Join(dir, HTMLFile)}, paths)

	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var back Synthese
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 3, back.Global.NbZonesTotal)

	page, err := os.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	html := string(page)
	for _, want := range []string{
		"<h2>Vue par pièce</h2>",
		"Pièce : Cuisine (Présence d&#39;amiante)",
		"<h2>Vue par ZPSO</h2>",
		"Localisations : Cuisine; Séjour",
		"PV labo : pv-1.pdf",
		"<li>Aucun prélèvement</li>",
		"Localisations : Non précisées",
		"Remis : Aucun",
	} {
		assert.Contains(t, html, want)
	}
}
