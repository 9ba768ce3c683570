// Package exporter renders synthesis rows into the downloadable formats.
//
// CSV output carries a UTF-8 BOM so spreadsheet tools pick the right
// encoding, and its columns follow the interchange contract order.
// XLSX output holds the rows plus a "Synthese" sheet of counters per
// unit. HTML output groups rows by city, address and unit; PDF output is
// the same page printed by a headless Chrome.
//
// Example usage:
//
//	exp := exporter.New(exporter.WithBOM(true))
//	data, err := exp.Render(ctx, exporter.FormatCSV, exporter.Document{
//	    Label: "Ville : Lyon",
//	    Rows:  rows,
//	})
//
//	// Store it under the configured output directory
//	path, err := exp.Write(ctx, files.NewManager("exports"), exporter.FormatXLSX, doc)
package exporter
