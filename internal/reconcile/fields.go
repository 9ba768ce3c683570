package reconcile

import (
	"strings"

	"liciel/internal/xmlrows"
)

// Synonyms lists the field names a concept may appear under, most trusted
// first. Each name is also looked up with the LiColonne_ prefix.
type Synonyms []string

// Resolve returns the first non-empty value of s in row.
func (s Synonyms) Resolve(row xmlrows.Row) string {
	for _, name := range s {
		if v := row.Get(xmlrows.ColumnPrefix + name); v != "" {
			return v
		}
		if v := row.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// Field synonyms of the asbestos tables.
var (
	MaterialNumber = Synonyms{"Num_Materiau", "Reperage_3", "Id_Prelevement_Int_txt"}
	ZoneID         = Synonyms{"Id_Prelevement", "Num_ZPSO"}
	ZonePrefix     = Synonyms{"Prefixe_ZPSO", "ZPSO_Prefixe"}
	MaterialResult = Synonyms{"Resultats", "resultat"}
	Description    = Synonyms{"Description", "Partie_Inspectee", "materiau_produit"}
	Component      = Synonyms{"Ouvrages"}
	Location       = Synonyms{"Detail_loc", "Localisation", "Local_visite"}
	Conservation   = Synonyms{"Etat_Conservation"}
	Quantity       = Synonyms{"SurfaceMateriau", "quantite"}
	Unit           = Synonyms{"SurfaceMateriauUnite", "unite"}
	HAPResult      = Synonyms{"resultat_Hap"}
	InlineSamples  = Synonyms{"num_prelevement"}

	SampleID       = Synonyms{"Num_Prelevement", "Data_01", "num_prelevement"}
	SampleResult   = Synonyms{"Resultat_reperage"}
	SampleLocation = Synonyms{"Localisation", "Detail_loc"}
	SampleZoneRef  = Synonyms{"Data_02", "id_zspo"}
	LabComment     = Synonyms{"Commentaires_Labo"}
	SamplePV       = Synonyms{"PV_Analyse_Lie"}
	ComponentKey   = Synonyms{"ClefComposant"}

	AnalysisKey = Synonyms{"Clef_composant"}
	AnalysisPV  = Synonyms{"Repertoire_plan"}

	PhotoSampleRef = Synonyms{"Photo"}
	PhotoPath      = Synonyms{"Chemin_acces"}
)

// SplitList splits a ";"-separated field, trimming parts, collapsing inner
// whitespace and dropping empty parts.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.Join(strings.Fields(part), " "); part != "" {
			out = append(out, part)
		}
	}
	return out
}
