// Package files provides file system discovery and output helpers.
//
// Walker enumerates the files below a directory. Two strategies exist:
// RecursiveWalker descends into every subdirectory, ShallowWalker only
// lists the directory itself. Walkers know nothing about LICIEL tables;
// callers classify what they are handed.
//
// Manager writes generated artifacts under a base directory. Writes go
// through a temporary file and a rename so readers never observe a
// partial export.
//
// Example usage:
//
//	err := files.RecursiveWalker{}.Walk(ctx, missionDir, func(f files.FileInfo) error {
//	    fmt.Println(f.Rel)
//	    return nil
//	})
//
//	manager := files.NewManager("/srv/liciel/exports")
//	err = manager.WriteFile("M1/synthese.csv", data)
package files
