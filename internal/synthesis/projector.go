package synthesis

import (
	"fmt"
	"strings"

	"liciel/internal/reconcile"
	"liciel/internal/xmlrows"
)

// Projector turns material zones into synthesis rows.
type Projector struct {
	// OperatorPrefix is prepended to the operator name, typically the
	// company name.
	OperatorPrefix string
	// AnnotateSamples writes "id (location)" instead of bare sample ids.
	AnnotateSamples bool
}

// Project returns one row per zone, in order.
func (p Projector) Project(general GeneralInfo, zones []reconcile.MaterialZone) []Row {
	operator := general.Operator
	if prefix := strings.TrimSpace(p.OperatorPrefix); prefix != "" && operator != "" {
		operator = prefix + " " + operator
	}

	rows := make([]Row, 0, len(zones))
	for _, z := range zones {
		floor := Floor(z.Location)
		if floor == "" {
			floor = general.Floor
		}

		ids := z.SampleIDs()
		samples := strings.Join(ids, ";")
		if p.AnnotateSamples {
			samples = AnnotateSamples(ids, z.Location)
		}

		rows = append(rows, Row{
			NumEI:                 general.NumEI,
			NomEI:                 general.NomEI,
			NumUG:                 general.NumUG,
			Commune:               general.Commune,
			LocalVisite:           z.Location,
			Etage:                 floor,
			Occupation:            general.Occupation,
			DateRealisation:       general.Date,
			Operateur:             operator,
			ReferenceRapport:      general.Reference,
			ComposantConstruction: z.Component,
			MateriauProduit:       z.Description,
			NumPrelevement:        samples,
			Resultat:              z.Result,
			ApplicabiliteZPSO:     z.ID,
			EtatConservation:      z.Conservation,
			Quantite:              z.Quantity,
			Unite:                 z.Unit,
			ResultatHap:           z.HAPResult,
		})
	}
	return rows
}

// Floor returns the floor part of a location: the text before the first
// "-" of its first ";" segment.
func Floor(location string) string {
	first, _, _ := strings.Cut(location, ";")
	floor, _, _ := strings.Cut(first, "-")
	return xmlrows.CleanText(floor)
}

// AnnotateSamples pairs each sample id with a location part. When the
// counts differ, ids without a part of their own get the last part.
func AnnotateSamples(ids []string, location string) string {
	if len(ids) == 0 {
		return ""
	}
	parts := reconcile.SplitList(location)
	last := ""
	if len(parts) > 0 {
		last = parts[len(parts)-1]
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		part := last
		if i < len(parts) {
			part = parts[i]
		}
		out[i] = fmt.Sprintf("%s (%s)", id, part)
	}
	return strings.Join(out, ";")
}
