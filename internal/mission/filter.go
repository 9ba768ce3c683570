package mission

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"liciel/internal/reconcile"
)

// Field names a mission attribute missions can be filtered on.
type Field string

const (
	FieldDonneur        Field = "donneur"
	FieldProprietaire   Field = "proprietaire"
	FieldDiagnostiqueur Field = "diagnostiqueur"
	FieldVille          Field = "ville"
	FieldRue            Field = "rue"
	FieldBatiment       Field = "batiment"
)

// Fields lists the filter fields in display order.
var Fields = []Field{
	FieldDonneur,
	FieldProprietaire,
	FieldDiagnostiqueur,
	FieldVille,
	FieldRue,
	FieldBatiment,
}

var fieldLabels = map[Field]string{
	FieldDonneur:        "Donneur d'ordre",
	FieldProprietaire:   "Propriétaire",
	FieldDiagnostiqueur: "Diagnostiqueur",
	FieldVille:          "Ville",
	FieldRue:            "Rue",
	FieldBatiment:       "Bâtiment",
}

var fieldSources = map[Field]reconcile.Synonyms{
	FieldDonneur:        {"DOrdre_Nom"},
	FieldProprietaire:   {"Prop_Nom"},
	FieldDiagnostiqueur: {"Gen_Nom_operateur"},
	FieldVille:          {"Immeuble_Commune"},
	FieldRue:            {"Immeuble_Adresse1"},
	FieldBatiment:       {"Immeuble_Loc_copro", "Immeuble_Lot"},
}

// Label returns the display label of f.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is a known filter field.
func (f Field) Valid() bool {
	_, ok := fieldSources[f]
	return ok
}

// FieldValue returns the value of f for m, read from the raw general row.
func FieldValue(m *Mission, f Field) string {
	return fieldSources[f].Resolve(m.GeneralRaw)
}

// Filter selects missions. An empty Value with a Field set matches every
// mission; every domain in Domains must be covered by a mission for it to
// match. Filter is a value: the update methods return a modified copy.
type Filter struct {
	Field   Field    `json:"field,omitempty" validate:"omitempty,oneof=donneur proprietaire diagnostiqueur ville rue batiment"`
	Value   string   `json:"value,omitempty"`
	Domains []string `json:"domains,omitempty"`
}

// WithField selects f, or deselects it when f is already selected. The
// value is reset either way.
func (flt Filter) WithField(f Field) Filter {
	out := flt.clone()
	if out.Field == f {
		out.Field = ""
	} else {
		out.Field = f
	}
	out.Value = ""
	return out
}

// WithValue sets the value matched against the selected field.
func (flt Filter) WithValue(v string) Filter {
	out := flt.clone()
	out.Value = v
	return out
}

// ToggleDomain adds domain to the required set, or removes it.
func (flt Filter) ToggleDomain(domain string) Filter {
	out := flt.clone()
	for i, d := range out.Domains {
		if d == domain {
			out.Domains = append(out.Domains[:i], out.Domains[i+1:]...)
			return out
		}
	}
	out.Domains = append(out.Domains, domain)
	return out
}

// Clear returns the empty filter.
func (Filter) Clear() Filter {
	return Filter{}
}

// IsZero reports whether the filter matches everything.
func (flt Filter) IsZero() bool {
	return flt.Field == "" && flt.Value == "" && len(flt.Domains) == 0
}

func (flt Filter) clone() Filter {
	out := flt
	out.Domains = append([]string(nil), flt.Domains...)
	return out
}

// Match reports whether m passes the filter. Field values are compared
// exactly.
func (flt Filter) Match(m *Mission) bool {
	if flt.Field != "" && flt.Value != "" && FieldValue(m, flt.Field) != flt.Value {
		return false
	}
	for _, d := range flt.Domains {
		if !m.HasDomain(d) {
			return false
		}
	}
	return true
}

// Apply returns the matching missions in order.
func (flt Filter) Apply(missions []*Mission) []*Mission {
	out := make([]*Mission, 0, len(missions))
	for _, m := range missions {
		if flt.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// Label describes the selection, e.g. "Ville : Lyon", "Ville : toutes" or
// "3 mission(s)" when no field is selected.
func (flt Filter) Label(selected int) string {
	if flt.Field == "" {
		return fmt.Sprintf("%d mission(s)", selected)
	}
	v := flt.Value
	if v == "" {
		v = "toutes"
	}
	return flt.Field.Label() + " : " + v
}

// FacetValue is a distinct field value with the number of missions having it.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facet lists the distinct values of one field.
type Facet struct {
	Field  Field        `json:"field"`
	Label  string       `json:"label"`
	Values []FacetValue `json:"values"`
}

// Facets returns, per filter field, the distinct non-empty values across
// missions, sorted in French collation order. Fields with no value are
// left out.
func Facets(missions []*Mission) []Facet {
	// collators keep state and are not safe for concurrent use
	col := collate.New(language.French)

	var out []Facet
	for _, f := range Fields {
		counts := make(map[string]int)
		for _, m := range missions {
			if v := FieldValue(m, f); v != "" {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			continue
		}

		values := make([]FacetValue, 0, len(counts))
		for v, n := range counts {
			values = append(values, FacetValue{Value: v, Count: n})
		}
		sort.Slice(values, func(i, j int) bool {
			return col.CompareString(values[i].Value, values[j].Value) < 0
		})
		out = append(out, Facet{Field: f, Label: f.Label(), Values: values})
	}
	return out
}

// DomainCounts returns how many missions cover each domain.
func DomainCounts(missions []*Mission) map[string]int {
	counts := make(map[string]int)
	for _, m := range missions {
		for _, d := range m.Domains {
			counts[d]++
		}
	}
	return counts
}
