package scanner

import (
	"context"
	"path"
	"path/filepath"

	"liciel/internal/files"
	"liciel/internal/mission"
)

// XMLDirName is the tables subdirectory LICIEL writes in a mission folder.
const XMLDirName = "XML"

// Locate inspects one mission folder: the tables directory (XML, matched
// case-insensitively, else the folder itself), every file below it, and
// the files of the top-level media directories.
func Locate(ctx context.Context, w files.Walker, dir string) (mission.Folder, error) {
	xmlDir, ok := files.FindDir(dir, XMLDirName)
	if !ok {
		xmlDir = dir
	}

	found, err := files.Collect(ctx, w, xmlDir)
	if err != nil {
		return mission.Folder{}, err
	}

	var media []mission.MediaRef
	for _, name := range mission.MediaDirNames {
		mediaDir, ok := files.FindDir(dir, name)
		if !ok {
			continue
		}
		dirName := filepath.Base(mediaDir)
		err := w.Walk(ctx, mediaDir, func(f files.FileInfo) error {
			media = append(media, mission.MediaRef{
				Name: f.Name,
				Dir:  dirName,
				Rel:  path.Join(dirName, f.Rel),
				Path: f.Path,
				Size: f.Size,
			})
			return nil
		})
		if err != nil {
			return mission.Folder{}, err
		}
	}

	return mission.NewFolder(filepath.Base(dir), dir, xmlDir, found, media), nil
}
