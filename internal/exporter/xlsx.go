package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"liciel/internal/grouping"
	"liciel/internal/synthesis"
)

// Sheet names of the workbook.
const (
	SheetRows      = "Lignes"
	SheetSynthesis = "Synthese"
)

// SynthesisHeaders are the columns of the per-unit counter sheet.
var SynthesisHeaders = []string{
	"Ville", "Adresse", "UG", "Etat global",
	"Présence", "Absence", "Suspect", "Non testé",
	"Nb zones", "Nb prélèvements",
}

// EncodeXLSX writes a workbook with the rows on one sheet and the
// counters of every unit on a second one.
func EncodeXLSX(w io.Writer, rows []synthesis.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetRows); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeRowSheet(f, rows, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSynthesis); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetSynthesis, err)
	}
	if err := writeSynthesisSheet(f, grouping.Build(rows), bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRowSheet(f *excelize.File, rows []synthesis.Row, style int) error {
	sw, err := f.NewStreamWriter(SheetRows)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", SheetRows, err)
	}

	if err := sw.SetRow("A1", cells(synthesis.Columns), excelize.RowOpts{StyleID: style}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(r.Values())); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return sw.Flush()
}

func writeSynthesisSheet(f *excelize.File, tree *grouping.Tree, style int) error {
	line := 1
	put := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return f.SetSheetRow(SheetSynthesis, cell, &values)
	}

	if err := put(cells(SynthesisHeaders)); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if err := f.SetRowStyle(SheetSynthesis, 1, 1, style); err != nil {
		return fmt.Errorf("failed to style headers: %w", err)
	}

	for _, city := range tree.Cities() {
		for _, addr := range city.Children {
			for _, unit := range addr.Children {
				u := unit.Unit
				err := put([]interface{}{
					city.Key, addr.Key, unit.Key, u.GlobalState,
					u.PerMaterial.Presence, u.PerMaterial.Absence,
					u.PerMaterial.Suspect, u.PerMaterial.Untested,
					u.Zones, u.Samples,
				})
				if err != nil {
					return fmt.Errorf("failed to write unit %s: %w", unit.Key, err)
				}
			}
		}
	}
	return nil
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
