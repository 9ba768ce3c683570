// Package mission assembles a Mission from the classified tables of one
// mission folder and provides the filters and detail views over
// missions.
package mission

import (
	"errors"
	"path/filepath"
	"strings"

	"liciel/internal/files"
	"liciel/internal/reconcile"
	"liciel/internal/synthesis"
	"liciel/internal/tables"
	"liciel/internal/xmlrows"
)

// ErrNoGeneralInfo is returned for folders without a general-bien table.
var ErrNoGeneralInfo = errors.New("no general-info table")

// Media directory names, matched case-insensitively at the top level of a
// mission folder.
var MediaDirNames = []string{"photos", "images"}

// TableFile is a classified file of a mission folder.
type TableFile struct {
	files.FileInfo
	tables.Classification
}

// Stem returns the file name without extension.
func (t TableFile) Stem() string {
	return strings.TrimSuffix(t.FileInfo.Name, filepath.Ext(t.FileInfo.Name))
}

// MediaRef is a file of a media directory.
type MediaRef struct {
	Name string `json:"name"`
	Dir  string `json:"dir"`
	Rel  string `json:"rel"`
	Path string `json:"-"`
	Size int64  `json:"size"`
}

// Folder is a mission directory as found on disk.
type Folder struct {
	ID     string
	Path   string
	XMLDir string
	Tables []TableFile
	Media  []MediaRef
}

// NewFolder classifies found, the files below xmlDir, and returns the
// folder.
func NewFolder(id, path, xmlDir string, found []files.FileInfo, media []MediaRef) Folder {
	f := Folder{ID: id, Path: path, XMLDir: xmlDir, Media: media}
	for _, fi := range found {
		f.Tables = append(f.Tables, TableFile{FileInfo: fi, Classification: tables.Classify(fi.Name)})
	}
	return f
}

// ByRole returns the tables of role in discovery order.
func (f Folder) ByRole(role tables.Role) []TableFile {
	var out []TableFile
	for _, t := range f.Tables {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

// HasGeneralInfo reports whether a general-bien table was found.
func (f Folder) HasGeneralInfo() bool {
	return len(f.ByRole(tables.RoleGeneralInfo)) > 0
}

// Photo is an entry of the photo table.
type Photo struct {
	Key      string    `json:"key"`
	Comment  string    `json:"comment,omitempty"`
	FileName string    `json:"file_name"`
	Media    *MediaRef `json:"media,omitempty"`
}

// Mission is a fully read mission folder. It is not modified after Build.
type Mission struct {
	ID                string                   `json:"id"`
	Label             string                   `json:"label"`
	Path              string                   `json:"-"`
	General           synthesis.GeneralInfo    `json:"general"`
	GeneralRaw        xmlrows.Row              `json:"general_raw"`
	Domains           []string                 `json:"domains"`
	Zones             []reconcile.MaterialZone `json:"zones"`
	Rows              []synthesis.Row          `json:"rows"`
	Tables            map[string][]xmlrows.Row `json:"tables,omitempty"`
	Conclusions       []xmlrows.Row            `json:"conclusions,omitempty"`
	DomainConclusions []xmlrows.Row            `json:"domain_conclusions,omitempty"`
	Description       xmlrows.Row              `json:"description,omitempty"`
	Photos            []Photo                  `json:"photos,omitempty"`
	Media             []MediaRef               `json:"media,omitempty"`
	Recovered         []string                 `json:"recovered,omitempty"`
}

// HasDomain reports whether the mission covers domain.
func (m *Mission) HasDomain(domain string) bool {
	for _, d := range m.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// CollectRows concatenates the synthesis rows of missions in order.
func CollectRows(missions []*Mission) []synthesis.Row {
	var rows []synthesis.Row
	for _, m := range missions {
		rows = append(rows, m.Rows...)
	}
	return rows
}

// Find returns the mission with id, or nil.
func Find(missions []*Mission, id string) *Mission {
	for _, m := range missions {
		if m.ID == id {
			return m
		}
	}
	return nil
}
