package xmlrows

import (
	"regexp"
	"strings"
)

// ItemPrefix starts the element name of every repeated row in a LICIEL
// table, e.g. LiItem_table_Z_Amiante.
const ItemPrefix = "LiItem_"

// ColumnPrefix starts every column element name, e.g. LiColonne_Resultats.
const ColumnPrefix = "LiColonne_"

// Row is one extracted record: column name to cleaned text. Missing
// columns are absent keys.
type Row map[string]string

// Get returns the trimmed value of key, or "".
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind tags which strategy produced a Result.
type Kind int

const (
	KindStructured Kind = iota
	KindTextScan
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindTextScan:
		return "text-scan"
	default:
		return "unknown"
	}
}

// Result is the row sequence extracted from one document, in document order.
type Result struct {
	Kind Kind
	Rows []Row
}

// Strategy is one way of turning a document into rows.
type Strategy interface {
	Name() Kind
	Extract(text, itemHint string) (Result, error)
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// CleanText drops control characters, collapses whitespace runs to a
// single space and trims.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = controlChars.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func isItemName(name, hint string) bool {
	if hint != "" {
		return strings.EqualFold(name, hint)
	}
	return len(name) >= len(ItemPrefix) && strings.EqualFold(name[:len(ItemPrefix)], ItemPrefix)
}
