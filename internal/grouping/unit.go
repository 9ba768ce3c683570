package grouping

import (
	"encoding/json"
	"strings"

	"liciel/internal/synthesis"
)

// Bucket is a room or zone of a unit. A row belongs to every bucket its
// field names.
type Bucket struct {
	Key    string          `json:"key"`
	Status GroupStatus     `json:"status"`
	Rows   []synthesis.Row `json:"rows"`
}

// Header is the identification of a unit, read from its first row.
type Header struct {
	NomEI     string `json:"nom_ei"`
	NumUG     string `json:"num_ug"`
	Commune   string `json:"commune"`
	Date      string `json:"date"`
	Operator  string `json:"operateur"`
	Reference string `json:"reference"`
	Floor     string `json:"etage"`
}

// Unit summarizes the rows of a unit.
type Unit struct {
	Header      Header    `json:"header"`
	GlobalState string    `json:"etat_global"`
	PerMaterial Counts    `json:"per_material"`
	PerSample   Counts    `json:"per_sample"`
	Zones       int       `json:"nb_zones"`
	Samples     int       `json:"nb_prelevements"`
	ByRoom      []*Bucket `json:"by_room"`
	ByZone      []*Bucket `json:"by_zone"`
}

func summarize(rows []synthesis.Row) *Unit {
	u := &Unit{PerMaterial: Count(rows)}
	u.GlobalState = globalState(u.PerMaterial)

	if len(rows) > 0 {
		first := rows[0]
		u.Header = Header{
			NomEI:     orDefault(first.NomEI, DefaultAddress),
			NumUG:     orDefault(first.NumUG, Unspecified),
			Commune:   first.Commune,
			Date:      first.DateRealisation,
			Operator:  first.Operateur,
			Reference: first.ReferenceRapport,
			Floor:     orDefault(first.Etage, Unspecified),
		}
	}

	zones := make(map[string]struct{})
	samples := make(map[string]struct{})
	var sampled []synthesis.Row
	for _, r := range rows {
		if z := strings.Join(SplitRooms(r.ApplicabiliteZPSO), "; "); z != "" {
			zones[z] = struct{}{}
		}
		if s := strings.TrimSpace(r.NumPrelevement); s != "" {
			samples[s] = struct{}{}
			sampled = append(sampled, r)
		}
	}
	u.Zones = len(zones)
	u.Samples = len(samples)
	u.PerSample = Count(sampled)

	u.ByRoom = buckets(rows, func(r synthesis.Row) string { return r.LocalVisite })
	u.ByZone = buckets(rows, func(r synthesis.Row) string { return r.ApplicabiliteZPSO })
	return u
}

func buckets(rows []synthesis.Row, field func(synthesis.Row) string) []*Bucket {
	var out []*Bucket
	index := make(map[string]*Bucket)
	for _, r := range rows {
		for _, key := range SplitRooms(field(r)) {
			b, ok := index[key]
			if !ok {
				b = &Bucket{Key: key}
				index[key] = b
				out = append(out, b)
			}
			b.Rows = append(b.Rows, r)
		}
	}
	for _, b := range out {
		b.Status = Aggregate(b.Rows)
	}
	return out
}

func marshalNodes(nodes []*Node) ([]byte, error) {
	if nodes == nil {
		nodes = []*Node{}
	}
	return json.Marshal(nodes)
}
