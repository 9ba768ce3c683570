package http

import (
	"context"

	"liciel/internal/exporter"
	"liciel/internal/grouping"
	"liciel/internal/mission"
	"liciel/internal/payload"
	"liciel/internal/services"
)

// ScanServiceInterface is the part of services.ScanService the handlers use.
type ScanServiceInterface interface {
	Scan(ctx context.Context, req services.ScanRequest) (*services.ScanSummary, error)
	LastSummary() (*services.ScanSummary, bool)
	Missions(f mission.Filter) ([]*mission.Mission, error)
	Facets() ([]mission.Facet, map[string]int, error)
	Mission(id string) (*mission.Mission, error)
	Snapshot(ctx context.Context, f mission.Filter) (*payload.Stored, error)
}

// PayloadServiceInterface is the part of services.PayloadService the
// handlers use.
type PayloadServiceInterface interface {
	Put(ctx context.Context, p *payload.Payload) (*payload.Stored, error)
	Get(ctx context.Context, id string) (*payload.Stored, error)
	Groups(ctx context.Context, id string) (*grouping.Tree, error)
}

// ExportServiceInterface renders stored payloads.
type ExportServiceInterface interface {
	Render(ctx context.Context, id string, f exporter.Format) (*services.Export, error)
}

// HealthServiceInterface answers health probes.
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
}
