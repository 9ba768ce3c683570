package exporter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Format is an export rendering.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Formats lists every rendering.
var Formats = []Format{FormatCSV, FormatXLSX, FormatHTML, FormatPDF}

var contentTypes = map[Format]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatHTML: "text/html; charset=utf-8",
	FormatPDF:  "application/pdf",
}

// ParseFormat reads a format name, case-insensitively, with or without a
// leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("unknown export format %q", s)
	}
	return f, nil
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	return contentTypes[f]
}

// Extension is the file extension of f, dot included.
func (f Format) Extension() string {
	return "." + string(f)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds an ASCII file name from an export label: accents are
// dropped and every other run of non alphanumerics becomes "-".
func Filename(label string, f Format) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, label)
	if err != nil {
		ascii = label
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(ascii), "-"), "-")
	if slug == "" {
		slug = "synthese"
	}
	return slug + f.Extension()
}
