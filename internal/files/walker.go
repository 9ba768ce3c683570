package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Rel     string // path relative to the walked directory, slash separated
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Walker calls fn for every regular file below dir. Returning
// fs.SkipAll from fn stops the walk without error.
type Walker interface {
	Walk(ctx context.Context, dir string, fn func(FileInfo) error) error
}

// RecursiveWalker walks dir and all of its subdirectories in lexical order.
type RecursiveWalker struct{}

// Walk implements Walker.
func (RecursiveWalker) Walk(ctx context.Context, dir string, fn func(FileInfo) error) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// unreadable subdirectory
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		return fn(newFileInfo(path, filepath.ToSlash(rel), info))
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return nil
}

// ShallowWalker lists only the files directly inside dir.
type ShallowWalker struct{}

// Walk implements Walker.
func (ShallowWalker) Walk(ctx context.Context, dir string, fn func(FileInfo) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := fn(newFileInfo(filepath.Join(dir, entry.Name()), entry.Name(), info)); err != nil {
			if errors.Is(err, fs.SkipAll) {
				return nil
			}
			return err
		}
	}
	return nil
}

func newFileInfo(path, rel string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Rel:     rel,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}

// Collect returns every file w reports below dir.
func Collect(ctx context.Context, w Walker, dir string) ([]FileInfo, error) {
	var out []FileInfo
	err := w.Walk(ctx, dir, func(f FileInfo) error {
		out = append(out, f)
		return nil
	})
	return out, err
}

// ListDirectories lists the subdirectories of dir sorted by name.
func ListDirectories(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var dirs []FileInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, newFileInfo(filepath.Join(dir, entry.Name()), entry.Name(), info))
	}

	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name < dirs[j].Name
	})
	return dirs, nil
}

// FindDir returns the path of the subdirectory of dir named name,
// compared case-insensitively.
func FindDir(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.EqualFold(entry.Name(), name) {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}
