package testutil

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// MissionFixture lays out one LICIEL mission folder on disk.
type MissionFixture struct {
	t      testing.TB
	ID     string
	Dir    string
	XMLDir string
}

// NewMissionFixture creates root/id/XML. Pass xmlDir "" to write tables
// directly in the mission folder.
func NewMissionFixture(t testing.TB, root, id, xmlDir string) *MissionFixture {
	t.Helper()
	dir := filepath.Join(root, id)
	tablesDir := dir
	if xmlDir != "" {
		tablesDir = filepath.Join(dir, xmlDir)
	}
	if err := os.MkdirAll(tablesDir, 0o755); err != nil {
		t.Fatalf("failed to create mission fixture: %v", err)
	}
	return &MissionFixture{t: t, ID: id, Dir: dir, XMLDir: tablesDir}
}

// WriteTable writes content to name in the tables directory and returns
// the path.
func (f *MissionFixture) WriteTable(name, content string) string {
	f.t.Helper()
	return f.WriteRaw(name, []byte(content))
}

// WriteRaw writes raw bytes, e.g. a legacy-encoded table.
func (f *MissionFixture) WriteRaw(name string, data []byte) string {
	f.t.Helper()
	path := filepath.Join(f.XMLDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		f.t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteMedia creates an empty file in a media subdirectory of the mission.
func (f *MissionFixture) WriteMedia(dir, name string) string {
	f.t.Helper()
	full := filepath.Join(f.Dir, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		f.t.Fatalf("failed to create %s: %v", dir, err)
	}
	path := filepath.Join(full, name)
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		f.t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// GeneralXML renders a single-record table such as Table_General_Bien.
// Column names get the LiColonne_ prefix.
func GeneralXML(table string, cols map[string]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<LiTable_%s>\n", table)
	writeColumns(&b, cols, "  ")
	fmt.Fprintf(&b, "</LiTable_%s>\n", table)
	return b.String()
}

// ItemsXML renders a repeated-row table: one LiItem_<table> per item.
func ItemsXML(table string, items ...map[string]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<LiTable_%s>\n", table)
	for _, item := range items {
		fmt.Fprintf(&b, "  <LiItem_%s>\n", table)
		writeColumns(&b, item, "    ")
		fmt.Fprintf(&b, "  </LiItem_%s>\n", table)
	}
	fmt.Fprintf(&b, "</LiTable_%s>\n", table)
	return b.String()
}

func writeColumns(b *strings.Builder, cols map[string]string, indent string) {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s<LiColonne_%s>%s</LiColonne_%s>\n", indent, k, html.EscapeString(cols[k]), k)
	}
}
