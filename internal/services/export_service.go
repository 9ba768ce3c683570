package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apierrors "liciel/internal/errors"
	"liciel/internal/exporter"
	"liciel/internal/files"
	"liciel/internal/infrastructure"
	"liciel/internal/payload"
)

// Export is a rendered payload.
type Export struct {
	Filename string
	Format   exporter.Format
	Data     []byte
	ETag     string
}

// ExportService renders stored payloads.
type ExportService struct {
	payloads *PayloadService
	exporter *exporter.Exporter
	output   *files.Manager
	logger   *slog.Logger
}

// NewExportService creates an export service. output may be nil when
// artifacts are only streamed.
func NewExportService(payloads *PayloadService, exp *exporter.Exporter, output *files.Manager, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExportService{
		payloads: payloads,
		exporter: exp,
		output:   output,
		logger:   infrastructure.WithComponent(logger, "export_service"),
	}
}

// Document converts a payload into an export document.
func Document(p *payload.Payload) exporter.Document {
	return exporter.Document{
		Label:       p.Meta.Label,
		Rows:        p.Rows,
		GeneratedAt: p.Meta.Created(),
	}
}

// Render renders payload id in format f.
func (s *ExportService) Render(ctx context.Context, id string, f exporter.Format) (*Export, error) {
	stored, err := s.payloads.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := Document(stored.Payload)

	start := time.Now()
	data, err := s.exporter.Render(ctx, f, doc)
	if err != nil {
		return nil, apierrors.NewExportError("failed to render "+string(f), err).
			WithContext("payload_id", id)
	}
	s.logger.InfoContext(ctx, "payload exported",
		slog.String("payload_id", id),
		slog.String("format", string(f)),
		slog.Int("size_bytes", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &Export{
		Filename: exporter.Filename(doc.Label, f),
		Format:   f,
		Data:     data,
		ETag:     stored.ETag + "-" + string(f),
	}, nil
}

// Save writes payload id in format f below the output directory and
// returns the written path.
func (s *ExportService) Save(ctx context.Context, id string, f exporter.Format) (string, error) {
	if s.output == nil {
		return "", fmt.Errorf("%w: no output directory configured", ErrInvalidInput)
	}
	stored, err := s.payloads.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.exporter.Write(ctx, s.output, f, Document(stored.Payload))
}
