package mission

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"liciel/internal/files"
	"liciel/internal/infrastructure"
	"liciel/internal/shared/testutil"
	"liciel/internal/tables"
)

func folderOf(t *testing.T, fx *testutil.MissionFixture, media ...MediaRef) Folder {
	t.Helper()
	found, err := files.Collect(context.Background(), files.RecursiveWalker{}, fx.XMLDir)
	require.NoError(t, err)
	return NewFolder(fx.ID, fx.Dir, fx.XMLDir, found, media)
}

func generalBien() string {
	return testutil.GeneralXML("General_Bien", map[string]string{
		"Immeuble_Loc_copro":   "EI-12",
		"Immeuble_Adresse1":    "12 rue des Lilas",
		"Immeuble_Lot":         "UG-3",
		"Immeuble_Commune":     "Lyon",
		"Immeuble_Occupe_vide": "Occupé",
		"Mission_Date_Visite":  "12/03/2024",
		"Mission_Num_Dossier":  "D-2024-001",
		"Gen_Nom_operateur":    "Jean Martin",
		"DOrdre_Nom":           "Grand Lyon Habitat",
		"Prop_Nom":             "SCI Les Lilas",
	})
}

// writeFullMission lays out a mission with every asbestos table.
func writeFullMission(t *testing.T, root string) *testutil.MissionFixture {
	t.Helper()
	fx := testutil.NewMissionFixture(t, root, "DOSSIER-B", "XML")
	fx.WriteTable("Table_General_Bien.xml", generalBien())
	fx.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante",
		map[string]string{
			"Num_Materiau": "1",
			"Description":  "Dalle de sol",
			"Ouvrages":     "Sol",
			"Localisation": "RDC - Cuisine;RDC - Séjour",
			"Resultats":    "Présence d'amiante",
		},
		map[string]string{
			"Num_Materiau":    "2",
			"Id_Prelevement":  "ZPSO-B",
			"Description":     "Enduit",
			"Localisation":    "1er - Chambre",
			"num_prelevement": "P2",
		},
	))
	fx.WriteTable("Table_Z_Amiante_prelevements.xml", testutil.ItemsXML("Table_Z_Amiante_prelevements",
		map[string]string{"Num_Prelevement": "P1", "Num_Materiau": "1", "ClefComposant": "K1", "Resultat_reperage": "Présence"},
		map[string]string{"Num_Prelevement": "P2", "Resultat_reperage": "Absence d'amiante"},
	))
	fx.WriteTable("Table_General_Amiante_Analyses.xml", testutil.ItemsXML("Table_General_Amiante_Analyses",
		map[string]string{"Clef_composant": "K1", "Repertoire_plan": "PV-001.pdf"},
	))
	fx.WriteTable("Table_General_Photo.xml", testutil.ItemsXML("Table_General_Photo",
		map[string]string{"Photo_Clef": "photos/IMG_001.jpg", "Photo_Commentaire": "Vue cuisine"},
		map[string]string{"Photo_Clef": `C:\export\photos\IMG_404.jpg`},
	))
	fx.WriteTable("Table_General_Bien_conclusions.xml", testutil.ItemsXML("Table_General_Bien_conclusions",
		map[string]string{"conclusion_liciel": "Présence d'amiante dans les dalles", "Date_conclusion": "12/03/2024"},
	))
	fx.WriteTable("Table_Z_Conclusions_details.xml", testutil.ItemsXML("Table_Z_Conclusions_details",
		map[string]string{"CREP_Classement": "Classe 1"},
	))
	return fx
}

func TestBuildGeneralOnly(t *testing.T) {
	fx := testutil.NewMissionFixture(t, t.TempDir(), "DOSSIER-A", "XML")
	fx.WriteTable("table_general_bien.xml", generalBien())

	m, err := NewBuilder(WithLogger(infrastructure.DiscardLogger())).Build(context.Background(), folderOf(t, fx))
	require.NoError(t, err)

	assert.Equal(t, "DOSSIER-A", m.ID)
	assert.Equal(t, "DOSSIER-A", m.Label)
	assert.Equal(t, "Lyon", m.General.Commune)
	assert.Equal(t, "EI-12", m.General.NumEI)
	assert.Equal(t, "D-2024-001", m.General.Reference)
	assert.Empty(t, m.Domains)
	assert.Empty(t, m.Zones)
	assert.Empty(t, m.Rows)
	assert.Empty(t, m.Recovered)
}

func TestBuildFullMission(t *testing.T) {
	fx := writeFullMission(t, t.TempDir())
	media := []MediaRef{{Name: "IMG_001.JPG", Dir: "Photos", Rel: "Photos/IMG_001.JPG", Path: "/missions/DOSSIER-B/Photos/IMG_001.JPG"}}

	metrics, err := infrastructure.NewPipelineMetrics(nil)
	require.NoError(t, err)
	b := NewBuilder(WithLogger(infrastructure.DiscardLogger()), WithMetrics(metrics))

	m, err := b.Build(context.Background(), folderOf(t, fx, media...))
	require.NoError(t, err)

	assert.Equal(t, []string{tables.DomainAdministratif, tables.DomainAmiante, tables.DomainPlomb}, m.Domains)

	require.Len(t, m.Zones, 2)
	assert.Equal(t, "ZPSO-1", m.Zones[0].ID)
	require.Len(t, m.Zones[0].Samples, 1)
	assert.Equal(t, "P1", m.Zones[0].Samples[0].ID)
	assert.Equal(t, "PV-001.pdf", m.Zones[0].Samples[0].PV)
	assert.Equal(t, "RDC - Cuisine", m.Zones[0].Samples[0].Location)

	assert.Equal(t, "ZPSO-B", m.Zones[1].ID)
	assert.Equal(t, "Absence d'amiante", m.Zones[1].Result)

	require.Len(t, m.Rows, 2)
	assert.Equal(t, "ZPSO-1", m.Rows[0].ApplicabiliteZPSO)
	assert.Equal(t, "P1", m.Rows[0].NumPrelevement)
	assert.Equal(t, "RDC", m.Rows[0].Etage)
	assert.Equal(t, "Lyon", m.Rows[0].Commune)
	assert.Equal(t, "Sol", m.Rows[0].ComposantConstruction)
	assert.Equal(t, "1er", m.Rows[1].Etage)

	require.Len(t, m.Photos, 2)
	assert.Equal(t, "IMG_001.jpg", m.Photos[0].FileName)
	assert.Equal(t, "Vue cuisine", m.Photos[0].Comment)
	require.NotNil(t, m.Photos[0].Media)
	assert.Equal(t, "Photos/IMG_001.JPG", m.Photos[0].Media.Rel)
	assert.Equal(t, "IMG_404.jpg", m.Photos[1].FileName)
	assert.Nil(t, m.Photos[1].Media)

	assert.Len(t, m.Conclusions, 1)
	assert.Len(t, m.DomainConclusions, 1)
	assert.Contains(t, m.Tables, "Table_Z_Amiante")
}

func TestBuildUsesMissionZonePrefix(t *testing.T) {
	fx := testutil.NewMissionFixture(t, t.TempDir(), "DOSSIER-P", "XML")
	fx.WriteTable("Table_General_Bien.xml", testutil.GeneralXML("General_Bien", map[string]string{
		"Immeuble_Commune": "Lyon",
		"Prefixe_ZPSO":     "ZP-",
	}))
	fx.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante",
		map[string]string{"Num_Materiau": "7", "Resultats": "Absence"},
		map[string]string{"Num_Materiau": "8", "Num_ZPSO": "Z-8"},
	))

	m, err := NewBuilder(WithLogger(infrastructure.DiscardLogger())).Build(context.Background(), folderOf(t, fx))
	require.NoError(t, err)

	require.Len(t, m.Zones, 2)
	assert.Equal(t, "ZP-7", m.Zones[0].ID)
	assert.Equal(t, "Z-8", m.Zones[1].ID)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "ZP-7", m.Rows[0].ApplicabiliteZPSO)
}

func TestBuildIsIdempotent(t *testing.T) {
	fx := writeFullMission(t, t.TempDir())
	folder := folderOf(t, fx)
	b := NewBuilder(WithLogger(infrastructure.DiscardLogger()))

	first, err := b.Build(context.Background(), folder)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), folder)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second build differs (-first +second):\n%s", diff)
	}
}

func TestBuildWithoutGeneralInfo(t *testing.T) {
	fx := testutil.NewMissionFixture(t, t.TempDir(), "DOSSIER-C", "XML")
	fx.WriteTable("Table_Z_Amiante.xml", testutil.ItemsXML("Table_Z_Amiante", map[string]string{"Num_Materiau": "1"}))

	_, err := NewBuilder().Build(context.Background(), folderOf(t, fx))
	assert.ErrorIs(t, err, ErrNoGeneralInfo)
}

func TestBuildRecoversMalformedTable(t *testing.T) {
	fx := testutil.NewMissionFixture(t, t.TempDir(), "DOSSIER-D", "XML")
	fx.WriteTable("Table_General_Bien.xml", generalBien())
	fx.WriteTable("Table_Z_Amiante.xml", `<LiTable_Table_Z_Amiante>
<LiItem_Table_Z_Amiante><LiColonne_Num_Materiau>1</LiColonne_Num_Materiau><LiColonne_Description>Colle & ragréage</LiColonne_Description></LiItem_Table_Z_Amiante>
<LiItem_Table_Z_Amiante><LiColonne_Num_Materiau>2</LiColonne_Num_Materiau>`)

	logger, _ := testutil.NewTestLogger(t)
	m, err := NewBuilder(WithLogger(logger)).Build(context.Background(), folderOf(t, fx))
	require.NoError(t, err)

	assert.Equal(t, []string{"Table_Z_Amiante.xml"}, m.Recovered)
	require.Len(t, m.Zones, 2)
	assert.Equal(t, "Colle & ragréage", m.Zones[0].Description)
	assert.Equal(t, "2", m.Zones[1].MaterialNumber)
}

func TestBuildDecodesLegacyEncoding(t *testing.T) {
	fx := testutil.NewMissionFixture(t, t.TempDir(), "DOSSIER-E", "")
	text := `<?xml version="1.0" encoding="ISO-8859-1"?>
<LiTable_General_Bien><LiColonne_Immeuble_Commune>Évry-Courcouronnes</LiColonne_Immeuble_Commune></LiTable_General_Bien>`
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	require.NoError(t, err)
	fx.WriteRaw("Table_General_Bien.xml", []byte(encoded))

	m, err := NewBuilder(WithLogger(infrastructure.DiscardLogger())).Build(context.Background(), folderOf(t, fx))
	require.NoError(t, err)
	assert.Equal(t, "Évry-Courcouronnes", m.General.Commune)
}

func TestBuildHonorsCancellation(t *testing.T) {
	fx := writeFullMission(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder().Build(ctx, folderOf(t, fx))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConclusionDomains(t *testing.T) {
	tests := []struct {
		name string
		rows []map[string]string
		want []string
	}{
		{name: "none", rows: nil, want: nil},
		{name: "asbestos state", rows: []map[string]string{{"Etat_Amiante": "Présence"}}, want: []string{"Amiante"}},
		{name: "blank values ignored", rows: []map[string]string{{"CREP_Classement": "  ", "DPE_Etiquette": ""}}, want: nil},
		{
			name: "fixed order",
			rows: []map[string]string{{"DPE_Etiquette": "D"}, {"LiColonne_CREP_Classement": "1", "Conclusion_Amiante": "Absence"}},
			want: []string{"Amiante", "Plomb", "DPE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConclusionDomains(rowsOf(tt.rows)))
		})
	}
}

func TestPhotoFileName(t *testing.T) {
	assert.Equal(t, "a.jpg", PhotoFileName("photos/sub/a.jpg"))
	assert.Equal(t, "b.jpg", PhotoFileName(`C:\photos\b.jpg`))
	assert.Equal(t, "c.jpg", PhotoFileName("c.jpg"))
}
