package amiantesynth

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"liciel/internal/files"
)

// Output file names.
const (
	JSONFile = "synthese_amiante.json"
	HTMLFile = "synthese_amiante.html"
)

//go:embed templates/synthese.html.tmpl
var templateFS embed.FS

var page = template.Must(template.New("synthese.html.tmpl").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/synthese.html.tmpl"))

// JSON returns the report as indented JSON.
func (s *Synthese) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis: %w", err)
	}
	return data, nil
}

// HTML renders the report page.
func (s *Synthese) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("failed to render synthesis: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores the JSON and HTML renderings through m and returns their
// paths.
func (s *Synthese) Write(m *files.Manager) ([]string, error) {
	data, err := s.JSON()
	if err != nil {
		return nil, err
	}
	doc, err := s.HTML()
	if err != nil {
		return nil, err
	}

	if err := m.WriteFile(JSONFile, data); err != nil {
		return nil, err
	}
	if err := m.WriteFile(HTMLFile, doc); err != nil {
		return nil, err
	}
	return []string{m.ResolvePath(JSONFile), m.ResolvePath(HTMLFile)}, nil
}
