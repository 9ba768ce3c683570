package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"liciel/internal/files"
	"liciel/internal/synthesis"
)

// ErrUnavailable is returned for a format the exporter was not set up
// to produce.
var ErrUnavailable = errors.New("export format unavailable")

// Document is a labelled set of synthesis rows.
type Document struct {
	Label       string
	Rows        []synthesis.Row
	GeneratedAt time.Time
}

// Exporter renders documents in every Format.
type Exporter struct {
	bom       bool
	pdf       *PDFRenderer
	publisher *Publisher
	logger    *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBOM prefixes CSV output with a UTF-8 BOM.
func WithBOM(bom bool) Option {
	return func(e *Exporter) { e.bom = bom }
}

// WithPDF enables FormatPDF.
func WithPDF(r *PDFRenderer) Option {
	return func(e *Exporter) { e.pdf = r }
}

// WithPublisher uploads every written export.
func WithPublisher(p *Publisher) Option {
	return func(e *Exporter) { e.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// New returns an Exporter. Without WithPDF, PDF rendering fails with
// ErrUnavailable.
func New(opts ...Option) *Exporter {
	e := &Exporter{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render returns doc in format f.
func (e *Exporter) Render(ctx context.Context, f Format, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		if err := EncodeRows(&buf, doc.Rows, e.bom); err != nil {
			return nil, err
		}
	case FormatXLSX:
		if err := EncodeXLSX(&buf, doc.Rows); err != nil {
			return nil, err
		}
	case FormatHTML:
		return RenderHTML(doc)
	case FormatPDF:
		if e.pdf == nil {
			return nil, fmt.Errorf("%s: %w", f, ErrUnavailable)
		}
		html, err := RenderHTML(doc)
		if err != nil {
			return nil, err
		}
		return e.pdf.Render(ctx, html)
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
	return buf.Bytes(), nil
}

// Write renders doc and stores it through m under a name derived from
// its label. It returns the written path. With a publisher set, the file
// is uploaded as well.
func (e *Exporter) Write(ctx context.Context, m *files.Manager, f Format, doc Document) (string, error) {
	data, err := e.Render(ctx, f, doc)
	if err != nil {
		return "", err
	}

	name := Filename(doc.Label, f)
	if err := m.WriteFile(name, data); err != nil {
		return "", err
	}
	if e.publisher != nil {
		if _, err := e.publisher.Publish(ctx, name, f, data); err != nil {
			return "", err
		}
	}

	e.logger.InfoContext(ctx, "export written",
		slog.String("format", string(f)),
		slog.String("file", name),
		slog.Int("rows", len(doc.Rows)))
	return m.ResolvePath(name), nil
}
