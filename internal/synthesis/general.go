package synthesis

import (
	"liciel/internal/reconcile"
	"liciel/internal/xmlrows"
)

// GeneralInfo is the building and mission header of a mission.
type GeneralInfo struct {
	NumEI        string `json:"num_ei"`
	NomEI        string `json:"nom_ei"`
	NumUG        string `json:"num_ug"`
	Commune      string `json:"commune"`
	Occupation   string `json:"occupation"`
	Date         string `json:"date"`
	Operator     string `json:"operateur"`
	Reference    string `json:"reference"`
	Floor        string `json:"etage"`
	Donneur      string `json:"donneur"`
	Proprietaire string `json:"proprietaire"`
}

var (
	generalNumEI        = reconcile.Synonyms{"Immeuble_Loc_copro"}
	generalNomEI        = reconcile.Synonyms{"Immeuble_Adresse1"}
	generalNumUG        = reconcile.Synonyms{"Immeuble_Lot"}
	generalCommune      = reconcile.Synonyms{"Immeuble_Commune"}
	generalOccupation   = reconcile.Synonyms{"Immeuble_Occupe_vide"}
	generalDate         = reconcile.Synonyms{"Mission_Date_Visite", "Mission_Date_Rapport", "Gen_Date_rapport", "Date"}
	generalOperator     = reconcile.Synonyms{"Gen_Nom_operateur"}
	generalReference    = reconcile.Synonyms{"Mission_Num_Dossier", "Gen_Num_rapport"}
	generalFloor        = reconcile.Synonyms{"Loc_Etage"}
	generalDonneur      = reconcile.Synonyms{"DOrdre_Nom"}
	generalProprietaire = reconcile.Synonyms{"Prop_Nom"}
)

// ResolveGeneral reads the header fields from sources. For each field the
// sources are consulted in order, so the general-bien table should come
// before the asbestos general table.
func ResolveGeneral(sources ...xmlrows.Row) GeneralInfo {
	get := func(s reconcile.Synonyms) string {
		for _, src := range sources {
			if v := s.Resolve(src); v != "" {
				return v
			}
		}
		return ""
	}
	return GeneralInfo{
		NumEI:        get(generalNumEI),
		NomEI:        get(generalNomEI),
		NumUG:        get(generalNumUG),
		Commune:      get(generalCommune),
		Occupation:   get(generalOccupation),
		Date:         get(generalDate),
		Operator:     get(generalOperator),
		Reference:    get(generalReference),
		Floor:        get(generalFloor),
		Donneur:      get(generalDonneur),
		Proprietaire: get(generalProprietaire),
	}
}
