// Package reconcile joins the asbestos materials, samples, lab analyses
// and photos of a mission into material zones.
package reconcile

import (
	"strconv"
	"strings"

	"liciel/internal/status"
	"liciel/internal/xmlrows"
)

// DefaultZonePrefix is prepended to material numbers to form zone ids.
const DefaultZonePrefix = "ZPSO-"

// Sample is a sample attached to a zone.
type Sample struct {
	ID       string `json:"id"`
	Result   string `json:"resultat"`
	Comment  string `json:"commentaire_labo"`
	PV       string `json:"pv"`
	Location string `json:"localisation"`
	Photo    string `json:"photo"`
}

// MaterialZone is one material with its samples.
type MaterialZone struct {
	ID             string   `json:"id"`
	MaterialNumber string   `json:"num_materiau"`
	Description    string   `json:"description"`
	Component      string   `json:"composant"`
	Location       string   `json:"localisation"`
	Locations      []string `json:"localisations"`
	Result         string   `json:"resultat"`
	Conservation   string   `json:"etat_conservation"`
	Quantity       string   `json:"quantite"`
	Unit           string   `json:"unite"`
	HAPResult      string   `json:"resultat_hap"`
	Samples        []Sample `json:"prelevements"`
}

// Status classifies the zone result. It is computed on every call.
func (z MaterialZone) Status() status.Status {
	return status.Classify(z.Result)
}

// SampleIDs returns the ids of the attached samples.
func (z MaterialZone) SampleIDs() []string {
	ids := make([]string, 0, len(z.Samples))
	for _, s := range z.Samples {
		ids = append(ids, s.ID)
	}
	return ids
}

// Input holds the rows of the tables of one mission. ZonePrefix is the
// mission's own zone prefix, read from its general info.
type Input struct {
	ZonePrefix string
	Materials  []xmlrows.Row
	Samples    []xmlrows.Row
	Analyses   []xmlrows.Row
	Photos     []xmlrows.Row
}

// Engine reconciles material rows with their samples.
type Engine struct {
	zonePrefix string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithZonePrefix sets the prefix used when the mission names none.
func WithZonePrefix(prefix string) EngineOption {
	return func(e *Engine) { e.zonePrefix = prefix }
}

// NewEngine returns an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{zonePrefix: DefaultZonePrefix}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type indexes struct {
	byMaterial map[string][]xmlrows.Row
	bySampleID map[string]xmlrows.Row
	byZone     map[string][]xmlrows.Row
	analyses   map[string]xmlrows.Row
	photos     map[string]xmlrows.Row
}

func buildIndexes(in Input) indexes {
	idx := indexes{
		byMaterial: make(map[string][]xmlrows.Row),
		bySampleID: make(map[string]xmlrows.Row),
		byZone:     make(map[string][]xmlrows.Row),
		analyses:   index(in.Analyses, AnalysisKey),
		photos:     index(in.Photos, PhotoSampleRef),
	}
	for _, s := range in.Samples {
		if num := MaterialNumber.Resolve(s); num != "" {
			idx.byMaterial[num] = append(idx.byMaterial[num], s)
		}
		if id := SampleID.Resolve(s); id != "" {
			idx.bySampleID[id] = s
		}
		if zone := SampleZoneRef.Resolve(s); zone != "" {
			idx.byZone[zone] = append(idx.byZone[zone], s)
		}
	}
	return idx
}

// index keys rows by key; a later row replaces an earlier one.
func index(rows []xmlrows.Row, key Synonyms) map[string]xmlrows.Row {
	m := make(map[string]xmlrows.Row, len(rows))
	for _, r := range rows {
		if k := key.Resolve(r); k != "" {
			m[k] = r
		}
	}
	return m
}

// Reconcile returns one zone per material row, in order. Materials are
// never dropped or merged: a row without any key yields a zone without
// samples.
func (e *Engine) Reconcile(in Input) []MaterialZone {
	idx := buildIndexes(in)

	prefix := strings.TrimSpace(in.ZonePrefix)
	if prefix == "" {
		prefix = e.zonePrefix
	}

	zones := make([]MaterialZone, 0, len(in.Materials))
	for i, mat := range in.Materials {
		zones = append(zones, e.zone(i, prefix, mat, idx))
	}
	return zones
}

// GeneralZonePrefix returns the zone prefix named by the first general
// info row that has one.
func GeneralZonePrefix(general ...xmlrows.Row) string {
	for _, row := range general {
		if p := ZonePrefix.Resolve(row); p != "" {
			return p
		}
	}
	return ""
}

func (e *Engine) zone(pos int, prefix string, mat xmlrows.Row, idx indexes) MaterialZone {
	num := MaterialNumber.Resolve(mat)

	id := ZoneID.Resolve(mat)
	if id == "" {
		if num != "" {
			id = prefix + num
		} else {
			id = prefix + strconv.Itoa(pos+1)
		}
	}

	z := MaterialZone{
		ID:             id,
		MaterialNumber: num,
		Description:    Description.Resolve(mat),
		Component:      Component.Resolve(mat),
		Location:       Location.Resolve(mat),
		Result:         MaterialResult.Resolve(mat),
		Conservation:   Conservation.Resolve(mat),
		Quantity:       Quantity.Resolve(mat),
		Unit:           Unit.Resolve(mat),
		HAPResult:      HAPResult.Resolve(mat),
	}
	z.Locations = SplitList(z.Location)

	ids, rows := matchSamples(num, id, mat, idx)
	for i := range rows {
		z.Samples = append(z.Samples, project(ids[i], i, rows[i], z, idx))
	}

	if z.Result == "" {
		for _, row := range rows {
			if row == nil {
				continue
			}
			if z.Result = SampleResult.Resolve(row); z.Result != "" {
				break
			}
		}
	}
	return z
}

// matchSamples returns the sample ids of a material with their sample
// rows. A row is nil when an inline id has no entry in the samples table.
func matchSamples(num, zoneID string, mat xmlrows.Row, idx indexes) ([]string, []xmlrows.Row) {
	var ids []string
	var rows []xmlrows.Row

	if num != "" {
		for _, s := range idx.byMaterial[num] {
			ids = append(ids, SampleID.Resolve(s))
			rows = append(rows, s)
		}
	}
	if len(rows) > 0 {
		return ids, rows
	}

	if inline := SplitList(InlineSamples.Resolve(mat)); len(inline) > 0 {
		for _, id := range inline {
			ids = append(ids, id)
			rows = append(rows, idx.bySampleID[id])
		}
		return ids, rows
	}

	for _, s := range idx.byZone[zoneID] {
		ids = append(ids, SampleID.Resolve(s))
		rows = append(rows, s)
	}
	return ids, rows
}

func project(id string, pos int, row xmlrows.Row, z MaterialZone, idx indexes) Sample {
	s := Sample{ID: id}

	if pos < len(z.Locations) {
		s.Location = z.Locations[pos]
	}
	if row != nil {
		s.Result = SampleResult.Resolve(row)
		s.Comment = LabComment.Resolve(row)
		if key := ComponentKey.Resolve(row); key != "" {
			if an, ok := idx.analyses[key]; ok {
				s.PV = AnalysisPV.Resolve(an)
			}
		}
		if s.PV == "" {
			s.PV = SamplePV.Resolve(row)
		}
		if s.Location == "" {
			s.Location = SampleLocation.Resolve(row)
		}
	}
	if s.Result == "" {
		s.Result = z.Result
	}
	if s.Location == "" {
		s.Location = z.Location
	}
	if photo, ok := idx.photos[id]; ok {
		s.Photo = PhotoPath.Resolve(photo)
	}
	return s
}
