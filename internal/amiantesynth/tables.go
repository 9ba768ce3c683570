// Package amiantesynth rebuilds the asbestos synthesis report (room view,
// ZPSO view, documents and normative deviations) from the asbestos tables
// of a single mission.
package amiantesynth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"liciel/internal/textdecode"
	"liciel/internal/xmlrows"
)

// Table is one of the source tables.
type Table struct {
	Key  string
	Base string
}

// Source tables, in reading order.
var (
	TableMaterials  = Table{Key: "materiaux", Base: "Table_Z_Amiante"}
	TableSamples    = Table{Key: "prelevements", Base: "Table_Z_Amiante_prelevements"}
	TableAnalyses   = Table{Key: "analyses", Base: "Table_General_Amiante_Analyses"}
	TablePhotos     = Table{Key: "photos", Base: "Table_General_Photo"}
	TableDocuments  = Table{Key: "documents", Base: "Table_Z_Amiante_doc_remis"}
	TableDeviations = Table{Key: "ecarts", Base: "Table_Z_Amiante_Ecart_Norme"}
	TableGeneral    = Table{Key: "general", Base: "Table_Z_Amiante_General"}

	AllTables = []Table{
		TableMaterials, TableSamples, TableAnalyses, TablePhotos,
		TableDocuments, TableDeviations, TableGeneral,
	}
)

// ItemHint is the item tag of the table's XML export.
func (t Table) ItemHint() string {
	return xmlrows.ItemPrefix + t.Base
}

// Tables holds the rows of every source table. Missing tables are empty.
type Tables map[string][]xmlrows.Row

// Rows returns the rows of t.
func (ts Tables) Rows(t Table) []xmlrows.Row {
	return ts[t.Key]
}

// FromStems picks the source tables out of rows keyed by file stem, as a
// Mission keeps them. Stems are compared case-insensitively.
func FromStems(byStem map[string][]xmlrows.Row) Tables {
	ts := make(Tables, len(AllTables))
	for stem, rows := range byStem {
		for _, t := range AllTables {
			if strings.EqualFold(stem, t.Base) {
				ts[t.Key] = append(ts[t.Key], rows...)
			}
		}
	}
	return ts
}

// Loader reads the source tables from a directory.
type Loader struct {
	decoder   *textdecode.Decoder
	extractor *xmlrows.Extractor
	logger    *slog.Logger
}

// NewLoader returns a Loader logging to logger.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		decoder:   textdecode.New(),
		extractor: xmlrows.NewExtractor(xmlrows.WithLogger(logger)),
		logger:    logger,
	}
}

// Load reads every table from dir. For each table <Base>.json is preferred
// over <Base>.xml; a file that cannot be read is logged and the next
// candidate is tried. Absent tables are left empty.
func (l *Loader) Load(dir string) Tables {
	ts := make(Tables, len(AllTables))
	for _, t := range AllTables {
		ts[t.Key] = l.loadTable(dir, t)
	}
	return ts
}

func (l *Loader) loadTable(dir string, t Table) []xmlrows.Row {
	jsonPath := filepath.Join(dir, t.Base+".json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		rows, err := ParseJSON(data)
		if err == nil {
			return rows
		}
		l.logger.Warn("unreadable JSON table", slog.String("file", jsonPath), slog.String("error", err.Error()))
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("unreadable JSON table", slog.String("file", jsonPath), slog.String("error", err.Error()))
	}

	xmlPath := filepath.Join(dir, t.Base+".xml")
	text, err := l.decoder.ReadFile(xmlPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("unreadable XML table", slog.String("file", xmlPath), slog.String("error", err.Error()))
		}
		return nil
	}
	return l.extractor.ExtractDocument(xmlPath, text, t.ItemHint()).Rows
}

// ParseJSON reads a JSON table: an array of objects or an object with an
// "items" array. Any other document yields no rows. Scalar values are
// kept as text; nested values are ignored.
func ParseJSON(data []byte) ([]xmlrows.Row, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON table: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["items"].([]any)
	}

	rows := make([]xmlrows.Row, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := make(xmlrows.Row, len(obj))
		for k, v := range obj {
			if s, ok := scalar(v); ok {
				row[k] = xmlrows.CleanText(s)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
