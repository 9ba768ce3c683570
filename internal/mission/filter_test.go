package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/xmlrows"
)

func rowsOf(in []map[string]string) []xmlrows.Row {
	var out []xmlrows.Row
	for _, m := range in {
		out = append(out, xmlrows.Row(m))
	}
	return out
}

func testMissions() []*Mission {
	return []*Mission{
		{ID: "M1", GeneralRaw: xmlrows.Row{
			"LiColonne_Immeuble_Commune":   "Évry",
			"LiColonne_DOrdre_Nom":         "Bailleur A",
			"LiColonne_Immeuble_Loc_copro": "Bât. 1",
			"LiColonne_Immeuble_Lot":       "Lot 4",
		}, Domains: []string{"Amiante", "Plomb"}},
		{ID: "M2", GeneralRaw: xmlrows.Row{
			"Immeuble_Commune": "Lyon",
			"DOrdre_Nom":       "Bailleur A",
			"Immeuble_Lot":     "Lot 7",
		}, Domains: []string{"Amiante"}},
		{ID: "M3", GeneralRaw: xmlrows.Row{
			"LiColonne_Immeuble_Commune": "Ermont",
		}, Domains: []string{"DPE"}},
	}
}

func ids(missions []*Mission) []string {
	var out []string
	for _, m := range missions {
		out = append(out, m.ID)
	}
	return out
}

func TestFieldValue(t *testing.T) {
	missions := testMissions()
	tests := []struct {
		name    string
		mission *Mission
		field   Field
		want    string
	}{
		{name: "prefixed column", mission: missions[0], field: FieldVille, want: "Évry"},
		{name: "bare column", mission: missions[1], field: FieldDonneur, want: "Bailleur A"},
		{name: "building prefers copro location", mission: missions[0], field: FieldBatiment, want: "Bât. 1"},
		{name: "building falls back to lot", mission: missions[1], field: FieldBatiment, want: "Lot 7"},
		{name: "missing", mission: missions[2], field: FieldRue, want: ""},
		{name: "unknown field", mission: missions[0], field: Field("inconnu"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldValue(tt.mission, tt.field))
		})
	}
}

func TestFilterUpdates(t *testing.T) {
	var f Filter
	assert.True(t, f.IsZero())

	f = f.WithField(FieldVille).WithValue("Lyon")
	assert.Equal(t, Filter{Field: FieldVille, Value: "Lyon"}, f)

	t.Run("selecting another field resets the value", func(t *testing.T) {
		g := f.WithField(FieldDonneur)
		assert.Equal(t, FieldDonneur, g.Field)
		assert.Empty(t, g.Value)
	})
	t.Run("selecting the same field deselects it", func(t *testing.T) {
		g := f.WithField(FieldVille)
		assert.Empty(t, g.Field)
		assert.Empty(t, g.Value)
	})
	t.Run("toggle domain", func(t *testing.T) {
		g := f.ToggleDomain("Amiante").ToggleDomain("Plomb")
		assert.Equal(t, []string{"Amiante", "Plomb"}, g.Domains)
		h := g.ToggleDomain("Amiante")
		assert.Equal(t, []string{"Plomb"}, h.Domains)
		assert.Equal(t, []string{"Amiante", "Plomb"}, g.Domains, "updates must not alias")
	})
	t.Run("clear", func(t *testing.T) {
		assert.True(t, f.ToggleDomain("DPE").Clear().IsZero())
	})
}

func TestFilterApply(t *testing.T) {
	missions := testMissions()
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "empty filter", filter: Filter{}, want: []string{"M1", "M2", "M3"}},
		{name: "field without value", filter: Filter{Field: FieldVille}, want: []string{"M1", "M2", "M3"}},
		{name: "exact value", filter: Filter{Field: FieldDonneur, Value: "Bailleur A"}, want: []string{"M1", "M2"}},
		{name: "value is not a substring match", filter: Filter{Field: FieldDonneur, Value: "Bailleur"}, want: nil},
		{name: "one domain", filter: Filter{Domains: []string{"Amiante"}}, want: []string{"M1", "M2"}},
		{name: "all domains required", filter: Filter{Domains: []string{"Amiante", "Plomb"}}, want: []string{"M1"}},
		{
			name:   "field and domain",
			filter: Filter{Field: FieldVille, Value: "Lyon", Domains: []string{"Plomb"}},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(missions)))
		})
	}
}

func TestFilterLabel(t *testing.T) {
	assert.Equal(t, "3 mission(s)", Filter{}.Label(3))
	assert.Equal(t, "Ville : toutes", Filter{Field: FieldVille}.Label(3))
	assert.Equal(t, "Donneur d'ordre : Bailleur A", Filter{Field: FieldDonneur, Value: "Bailleur A"}.Label(2))
	assert.Equal(t, "Bâtiment", FieldBatiment.Label())
	assert.True(t, FieldRue.Valid())
	assert.False(t, Field("etage").Valid())
}

func TestFacets(t *testing.T) {
	facets := Facets(testMissions())

	var fields []Field
	for _, f := range facets {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []Field{FieldDonneur, FieldVille, FieldBatiment}, fields, "fields without values are left out")

	require.Len(t, facets, 3)
	assert.Equal(t, []FacetValue{{Value: "Bailleur A", Count: 2}}, facets[0].Values)
	assert.Equal(t, "Ville", facets[1].Label)
	// French collation places É with E, before L
	assert.Equal(t, []FacetValue{
		{Value: "Ermont", Count: 1},
		{Value: "Évry", Count: 1},
		{Value: "Lyon", Count: 1},
	}, facets[1].Values)
}

func TestDomainCounts(t *testing.T) {
	assert.Equal(t, map[string]int{"Amiante": 2, "Plomb": 1, "DPE": 1}, DomainCounts(testMissions()))
}
