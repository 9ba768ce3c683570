package mission

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"liciel/internal/xmlrows"
)

// DetailField is a labelled value.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldGroup is a titled set of non-empty fields.
type FieldGroup struct {
	Title  string        `json:"title"`
	Fields []DetailField `json:"fields"`
}

// ConclusionCard is one administrative conclusion.
type ConclusionCard struct {
	Title  string        `json:"title"`
	Text   string        `json:"text"`
	Fields []DetailField `json:"fields,omitempty"`
}

// Detail is the presentation of one mission.
type Detail struct {
	ID                string           `json:"id"`
	Label             string           `json:"label"`
	Domains           []string         `json:"domains"`
	Identity          []FieldGroup     `json:"identity"`
	Conclusions       []ConclusionCard `json:"conclusions,omitempty"`
	DomainConclusions [][]DetailField  `json:"domain_conclusions,omitempty"`
	Complements       []DetailField    `json:"complements,omitempty"`
	Photos            []Photo          `json:"photos,omitempty"`
}

type groupSpec struct {
	title  string
	fields [][2]string // label, column
}

var identityGroups = []groupSpec{
	{"Donneur d'ordre", [][2]string{
		{"Type d'ordre", "DOrdre_Type"},
		{"Entête", "DOrdre_Entete"},
		{"Nom", "DOrdre_Nom"},
		{"Adresse", "DOrdre_Adresse1"},
		{"Département", "DOrdre_Departement"},
		{"Commune", "DOrdre_Commune"},
	}},
	{"Propriétaire", [][2]string{
		{"Entête", "Prop_Entete"},
		{"Nom", "Prop_Nom"},
		{"Adresse", "Prop_Adresse1"},
		{"Département", "Prop_Departement"},
		{"Commune", "Prop_Commune"},
	}},
	{"Bien", [][2]string{
		{"Adresse de l'immeuble", "Immeuble_Adresse1"},
		{"Complément", "Immeuble_Description"},
		{"Code postal", "Immeuble_Departement"},
		{"Commune", "Immeuble_Commune"},
		{"Lot / référence", "Immeuble_Lot"},
		{"Localisation copropriété", "Immeuble_Loc_copro"},
		{"Cadastre", "Immeuble_Cadastre"},
		{"Nature du bien", "Immeuble_Nature_bien"},
		{"Type de bien", "Immeuble_Type_bien"},
		{"Type de dossier", "Immeuble_Type_Dossier"},
		{"Occupé / vide", "Immeuble_Occupe_vide"},
		{"Accompagnateur", "Immeuble_Accompagnateur"},
	}},
	{"Diagnostiqueur", [][2]string{
		{"Nom complet", "Gen_Nom_operateur"},
		{"Nom", "Gen_Nom_operateur_UniquementNomFamille"},
		{"Prénom", "Gen_Nom_operateur_UniquementPreNom"},
		{"Certification société", "Gen_certif_societe"},
	}},
	{"Missions concernées", [][2]string{
		{"N° dossier", "Mission_Num_Dossier"},
		{"Missions programmées", "Mission_Missions_programmees"},
		{"Durée de mission", "Mission_Duree_mission"},
		{"Heure d'arrivée", "Mission_Heure_Arrivee"},
		{"Date de visite", "Mission_Date_Visite"},
		{"Date du rapport", "Mission_Date_Rapport"},
		{"Mémo terrain", "Texte_memo_terrain"},
		{"Notes libres", "Notes_libres"},
	}},
}

const conclusionColumn = "conclusion_liciel"

// BuildDetail returns the detail view of m. Empty groups and fields are
// omitted.
func BuildDetail(m *Mission) Detail {
	d := Detail{
		ID:      m.ID,
		Label:   m.Label,
		Domains: m.Domains,
		Photos:  m.Photos,
	}

	for _, group := range identityGroups {
		g := FieldGroup{Title: group.title}
		for _, f := range group.fields {
			if v := column(m.GeneralRaw, f[1]); v != "" {
				g.Fields = append(g.Fields, DetailField{Label: f[0], Value: v})
			}
		}
		if len(g.Fields) > 0 {
			d.Identity = append(d.Identity, g)
		}
	}

	for _, row := range m.Conclusions {
		text := column(row, conclusionColumn)
		if text == "" {
			continue
		}
		card := ConclusionCard{Title: FormatLabel(xmlrows.ColumnPrefix + conclusionColumn), Text: text}
		for _, k := range columns(row) {
			if strings.EqualFold(baseName(k), conclusionColumn) {
				continue
			}
			card.Fields = append(card.Fields, DetailField{Label: FormatLabel(k), Value: row.Get(k)})
		}
		d.Conclusions = append(d.Conclusions, card)
	}

	for _, row := range m.DomainConclusions {
		var fields []DetailField
		for _, k := range columns(row) {
			fields = append(fields, DetailField{Label: k, Value: row.Get(k)})
		}
		if len(fields) > 0 {
			d.DomainConclusions = append(d.DomainConclusions, fields)
		}
	}

	for _, k := range columns(m.Description) {
		d.Complements = append(d.Complements, DetailField{Label: FormatLabel(k), Value: m.Description.Get(k)})
	}
	return d
}

// column reads name under its prefixed or bare key.
func column(row xmlrows.Row, name string) string {
	if v := row.Get(xmlrows.ColumnPrefix + name); v != "" {
		return v
	}
	return row.Get(name)
}

// columns returns the keys of row holding a value, sorted, leaving out the
// bare aliases of prefixed keys.
func columns(row xmlrows.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		if row.Get(k) == "" {
			continue
		}
		if !strings.HasPrefix(k, xmlrows.ColumnPrefix) {
			if _, ok := row[xmlrows.ColumnPrefix+k]; ok {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func baseName(k string) string {
	return columnPrefixRe.ReplaceAllString(k, "")
}

var columnPrefixRe = regexp.MustCompile(`(?i)^LiColonne_`)

// FormatLabel turns a column name into a display label:
// "LiColonne_date_visite" becomes "Date visite".
func FormatLabel(raw string) string {
	s := strings.ReplaceAll(baseName(raw), "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
