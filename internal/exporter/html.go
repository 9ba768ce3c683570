package exporter

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"liciel/internal/grouping"
	"liciel/internal/synthesis"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var report = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

type reportView struct {
	Label       string
	GeneratedAt string
	Total       int
	Counts      grouping.Counts
	Columns     []string
	Cities      []*grouping.Node
}

// StatusOf maps a unit banner to the status class of its text.
func (reportView) StatusOf(state string) grouping.GroupStatus {
	switch state {
	case grouping.StatePresence, grouping.StatePresenceInvestigation:
		return grouping.GroupPresent
	case grouping.StateAbsence:
		return grouping.GroupAbsent
	default:
		return grouping.GroupSuspect
	}
}

// RenderHTML renders the grouped report page.
func RenderHTML(doc Document) ([]byte, error) {
	tree := grouping.Build(doc.Rows)
	view := reportView{
		Label:   doc.Label,
		Total:   len(doc.Rows),
		Counts:  grouping.Count(doc.Rows),
		Columns: synthesis.Columns,
		Cities:  tree.Cities(),
	}
	if !doc.GeneratedAt.IsZero() {
		view.GeneratedAt = doc.GeneratedAt.Format(time.DateTime)
	}

	var buf bytes.Buffer
	if err := report.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
