package amiantesynth

import (
	"strconv"
	"strings"

	"liciel/internal/reconcile"
	"liciel/internal/status"
	"liciel/internal/xmlrows"
)

// Room results.
const (
	ResultPresence = "Présence d'amiante"
	ResultSuspect  = "Matériau suspect"
	ResultAbsence  = "Absence d'amiante"
	ResultUnknown  = "Non renseigné"
)

// Zone is one ZPSO (homogeneous zone) with its samples.
type Zone struct {
	ID            string             `json:"id"`
	Description   string             `json:"description"`
	Resultat      string             `json:"resultat"`
	Localisations []string           `json:"localisations"`
	Prelevements  []reconcile.Sample `json:"prelevements"`
}

// Piece is a room with the zones located in it.
type Piece struct {
	Piece          string `json:"piece"`
	ResultatGlobal string `json:"resultat_global"`
	Zones          []Zone `json:"zpsos"`
}

// Global holds the report counters.
type Global struct {
	PresenceAmiante        bool `json:"presence_amiante"`
	NbZonesTotal           int  `json:"nb_zones_total"`
	NbZonesPresence        int  `json:"nb_zones_presence"`
	NbZonesAbsence         int  `json:"nb_zones_absence"`
	NbZonesSuspect         int  `json:"nb_zones_suspect"`
	NbPrelevementsTotal    int  `json:"nb_prelevements_total"`
	NbPrelevementsPresence int  `json:"nb_prelevements_presence"`
	NbPrelevementsAbsence  int  `json:"nb_prelevements_absence"`
}

// Documents lists the documents handed over and requested.
type Documents struct {
	Remis    []string `json:"remis"`
	Demandes []string `json:"demandes"`
}

// Ecart is one line of the normative deviations checklist.
type Ecart struct {
	Observation string `json:"observation"`
	Oui         bool   `json:"oui"`
	Non         bool   `json:"non"`
	SO          bool   `json:"so"`
}

// Synthese is the reconstructed report.
type Synthese struct {
	Global      Global    `json:"global"`
	Pieces      []Piece   `json:"pieces"`
	Zones       []Zone    `json:"zpsos"`
	Documents   Documents `json:"documents"`
	EcartsNorme []Ecart   `json:"ecarts_norme"`
}

var (
	zoneID           = reconcile.Synonyms{"Id_Prelevement", "Num_ZPSO", "Num_Materiau"}
	zoneDescription  = reconcile.Synonyms{"Description", "materiau_produit"}
	zoneLocation     = reconcile.Synonyms{"Localisation", "Local_visite"}
	zoneDetailLoc    = reconcile.Synonyms{"Detail_loc"}
	sampleLocation   = reconcile.Synonyms{"Localisation"}
	sampleKey        = reconcile.Synonyms{"Num_Prelevement"}
	docHandedOver    = reconcile.Synonyms{"Doc_Remis", "Document", "Libelle"}
	docRequested     = reconcile.Synonyms{"Doc_Demandes"}
	ecartObservation = reconcile.Synonyms{"Observation", "Libelle"}
	ecartYes         = reconcile.Synonyms{"Oui"}
	ecartNo          = reconcile.Synonyms{"Non"}
	ecartNA          = reconcile.Synonyms{"SO", "SansObjet"}
)

// Build computes the report. Samples are attached through the inline
// sample list of each material; zone ids fall back to "ZPSO-<n>" with n
// the 1-based material position.
func Build(ts Tables) *Synthese {
	samples := index(ts.Rows(TableSamples), sampleKey)
	analyses := index(ts.Rows(TableAnalyses), reconcile.AnalysisKey)
	photos := index(ts.Rows(TablePhotos), reconcile.PhotoSampleRef)

	s := &Synthese{
		Pieces:      []Piece{},
		Zones:       []Zone{},
		EcartsNorme: []Ecart{},
	}
	for i, mat := range ts.Rows(TableMaterials) {
		s.Zones = append(s.Zones, buildZone(i, mat, samples, analyses, photos))
	}
	s.Pieces = pieces(s.Zones)
	s.Global = counters(s.Zones)
	s.Documents = documents(ts.Rows(TableDocuments))
	for _, row := range ts.Rows(TableDeviations) {
		s.EcartsNorme = append(s.EcartsNorme, Ecart{
			Observation: ecartObservation.Resolve(row),
			Oui:         Booleanise(ecartYes.Resolve(row)),
			Non:         Booleanise(ecartNo.Resolve(row)),
			SO:          Booleanise(ecartNA.Resolve(row)),
		})
	}
	return s
}

func buildZone(pos int, mat xmlrows.Row, samples, analyses, photos map[string]xmlrows.Row) Zone {
	id := zoneID.Resolve(mat)
	if id == "" {
		id = reconcile.DefaultZonePrefix + strconv.Itoa(pos+1)
	}
	rawLoc := zoneLocation.Resolve(mat)
	result := reconcile.MaterialResult.Resolve(mat)

	details := reconcile.SplitList(zoneDetailLoc.Resolve(mat))
	if len(details) == 0 {
		details = reconcile.SplitList(rawLoc)
	}

	z := Zone{
		ID:            id,
		Description:   zoneDescription.Resolve(mat),
		Resultat:      result,
		Localisations: nonNil(reconcile.SplitList(rawLoc)),
		Prelevements:  []reconcile.Sample{},
	}

	for i, sid := range reconcile.SplitList(reconcile.InlineSamples.Resolve(mat)) {
		row := samples[sid]
		p := reconcile.Sample{
			ID:      sid,
			Result:  reconcile.SampleResult.Resolve(row),
			Comment: reconcile.LabComment.Resolve(row),
		}
		if key := reconcile.ComponentKey.Resolve(row); key != "" {
			if an, ok := analyses[key]; ok {
				p.PV = reconcile.AnalysisPV.Resolve(an)
			}
		}
		if p.PV == "" {
			p.PV = reconcile.SamplePV.Resolve(row)
		}
		switch {
		case i < len(details):
			p.Location = details[i]
		case sampleLocation.Resolve(row) != "":
			p.Location = sampleLocation.Resolve(row)
		default:
			p.Location = rawLoc
		}
		if p.Result == "" {
			p.Result = result
		}
		if photo, ok := photos[sid]; ok {
			p.Photo = reconcile.PhotoPath.Resolve(photo)
		}
		z.Prelevements = append(z.Prelevements, p)
	}
	return z
}

// pieces groups zones by room, rooms in order of first appearance.
func pieces(zones []Zone) []Piece {
	var order []string
	byRoom := make(map[string][]Zone)
	for _, z := range zones {
		seen := make(map[string]bool)
		for _, room := range z.Localisations {
			if seen[room] {
				continue
			}
			seen[room] = true
			if _, ok := byRoom[room]; !ok {
				order = append(order, room)
			}
			byRoom[room] = append(byRoom[room], z)
		}
	}

	out := make([]Piece, 0, len(order))
	for _, room := range order {
		results := make([]string, 0, len(byRoom[room]))
		for _, z := range byRoom[room] {
			results = append(results, z.Resultat)
		}
		out = append(out, Piece{Piece: room, ResultatGlobal: RoomResult(results), Zones: byRoom[room]})
	}
	return out
}

// RoomResult summarizes the results of the zones of a room: any presence
// wins, then any suspect, then any absence.
func RoomResult(results []string) string {
	has := func(match func(string) bool) bool {
		for _, r := range results {
			if match(r) {
				return true
			}
		}
		return false
	}
	switch {
	case has(status.IsPresence):
		return ResultPresence
	case has(status.IsSuspect):
		return ResultSuspect
	case has(status.IsAbsence):
		return ResultAbsence
	default:
		return ResultUnknown
	}
}

func counters(zones []Zone) Global {
	g := Global{NbZonesTotal: len(zones)}
	ids := make(map[string]bool)
	for _, z := range zones {
		if status.IsPresence(z.Resultat) {
			g.NbZonesPresence++
		}
		if status.IsAbsence(z.Resultat) {
			g.NbZonesAbsence++
		}
		if status.IsSuspect(z.Resultat) {
			g.NbZonesSuspect++
		}
		for _, p := range z.Prelevements {
			ids[p.ID] = true
			if status.IsPresence(p.Result) {
				g.NbPrelevementsPresence++
			}
			if status.IsAbsence(p.Result) {
				g.NbPrelevementsAbsence++
			}
		}
	}
	g.PresenceAmiante = g.NbZonesPresence > 0
	g.NbPrelevementsTotal = len(ids)
	return g
}

func documents(rows []xmlrows.Row) Documents {
	d := Documents{Remis: []string{}, Demandes: []string{}}
	for _, row := range rows {
		if v := docHandedOver.Resolve(row); v != "" {
			d.Remis = append(d.Remis, v)
		}
		if v := docRequested.Resolve(row); v != "" {
			d.Demandes = append(d.Demandes, v)
		}
	}
	return d
}

// Booleanise reads a checklist cell: oui, true, 1 and x are true.
func Booleanise(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "oui", "true", "1", "x":
		return true
	default:
		return false
	}
}

func index(rows []xmlrows.Row, key reconcile.Synonyms) map[string]xmlrows.Row {
	m := make(map[string]xmlrows.Row, len(rows))
	for _, r := range rows {
		if k := key.Resolve(r); k != "" {
			m[k] = r
		}
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
