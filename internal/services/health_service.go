package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"liciel/internal/infrastructure"
)

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	payloads  *PayloadService
	scans     *ScanService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health states.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// NewHealthService creates a health service. Any dependency may be nil.
func NewHealthService(version string, payloads *PayloadService, scans *ScanService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &HealthService{
		version:   version,
		payloads:  payloads,
		scans:     scans,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns liveness with runtime details.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck checks the payload store and reports the scan state.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth),
	}

	if hs.payloads != nil {
		store := ServiceHealth{Status: StatusReady}
		if err := hs.payloads.Ping(ctx); err != nil {
			store = ServiceHealth{Status: StatusNotReady, Message: err.Error()}
			hs.logger.WarnContext(ctx, "payload store not ready", slog.String("error", err.Error()))
		}
		status.Services["payload_store"] = store
	}

	if hs.scans != nil {
		scan := ServiceHealth{Status: StatusReady, Message: "idle"}
		if hs.scans.Running() {
			scan.Message = "running"
		} else if sum, ok := hs.scans.LastSummary(); ok {
			scan.Message = "last scan " + sum.ScanID
		}
		status.Services["scanner"] = scan
	}

	if hs.hub != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  StatusReady,
			Message: fmt.Sprintf("%d client(s)", hs.hub.ClientCount()),
		}
	}

	for _, s := range status.Services {
		if s.Status != StatusReady {
			status.Status = StatusNotReady
			break
		}
	}
	return status
}
