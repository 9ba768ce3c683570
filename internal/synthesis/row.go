// Package synthesis projects reconciled zones onto the flat synthesis row
// that every export and the grouping view share.
package synthesis

// Row is one line of the asbestos synthesis. The JSON names are the
// interchange contract and must not change.
type Row struct {
	NumEI                 string `json:"Num_EI"`
	NomEI                 string `json:"Nom_EI"`
	NumUG                 string `json:"Num_UG"`
	Commune               string `json:"Commune"`
	LocalVisite           string `json:"Local_visite"`
	Etage                 string `json:"Etage"`
	Occupation            string `json:"occupation"`
	DateRealisation       string `json:"date_realisation"`
	Operateur             string `json:"operateur"`
	ReferenceRapport      string `json:"reference_rapport"`
	ComposantConstruction string `json:"composant_construction"`
	MateriauProduit       string `json:"materiau_produit"`
	NumPrelevement        string `json:"num_prelevement"`
	Resultat              string `json:"resultat"`
	ApplicabiliteZPSO     string `json:"applicabilite_ZPSO"`
	EtatConservation      string `json:"etat_conservation"`
	Quantite              string `json:"quantite"`
	Unite                 string `json:"unité"`
	ResultatHap           string `json:"resultat_Hap"`
}

// Columns are the field names of Row in contract order.
var Columns = []string{
	"Num_EI", "Nom_EI", "Num_UG", "Commune", "Local_visite", "Etage",
	"occupation", "date_realisation", "operateur", "reference_rapport",
	"composant_construction", "materiau_produit", "num_prelevement",
	"resultat", "applicabilite_ZPSO", "etat_conservation", "quantite",
	"unité", "resultat_Hap",
}

// Values returns the fields of r in Columns order.
func (r Row) Values() []string {
	return []string{
		r.NumEI, r.NomEI, r.NumUG, r.Commune, r.LocalVisite, r.Etage,
		r.Occupation, r.DateRealisation, r.Operateur, r.ReferenceRapport,
		r.ComposantConstruction, r.MateriauProduit, r.NumPrelevement,
		r.Resultat, r.ApplicabiliteZPSO, r.EtatConservation, r.Quantite,
		r.Unite, r.ResultatHap,
	}
}
