// Package shared holds code used across the LICIEL packages that belongs
// to no single layer.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler to assert on log output
//   - mission folder fixtures that write LICIEL tables to a temp dir
//
// Example usage:
//
//	func TestScan(t *testing.T) {
//	    root := t.TempDir()
//	    m := testutil.NewMissionFixture(t, root, "DOSSIER-1", "XML")
//	    m.WriteTable("Table_General_Bien.xml", testutil.GeneralXML("General_Bien", map[string]string{
//	        "Immeuble_Commune": "Lyon",
//	    }))
//	}
package shared
