package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"liciel/internal/infrastructure"
	"liciel/internal/mission"
	"liciel/internal/payload"
	"liciel/internal/scanner"
	ws "liciel/internal/websocket"
)

// ScanNotifier receives scan lifecycle events.
type ScanNotifier interface {
	Broadcast(msgType string, data any)
	BroadcastScanProgress(scanID string, scanned, total int)
}

type discardNotifier struct{}

func (discardNotifier) Broadcast(string, any) {}
func (discardNotifier) BroadcastScanProgress(string, int, int) {}

// ScanRequest asks for a scan of the configured root.
type ScanRequest struct {
	Prefix  string         `json:"prefix,omitempty" validate:"omitempty,safename"`
	Workers int            `json:"workers,omitempty" validate:"gte=0,lte=64"`
	Filter  mission.Filter `json:"filter"`
}

// ScanSummary describes a completed scan.
type ScanSummary struct {
	ScanID    string            `json:"scan_id"`
	Root      string            `json:"root"`
	Prefix    string            `json:"prefix,omitempty"`
	Missions  int               `json:"missions"`
	Total     int               `json:"total"`
	Skipped   []scanner.Skipped `json:"skipped,omitempty"`
	Rows      int               `json:"rows"`
	PayloadID string            `json:"payload_id,omitempty"`
	ETag      string            `json:"etag,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Elapsed   string            `json:"elapsed"`
}

// ScanFailure is broadcast when a scan ends in error.
type ScanFailure struct {
	ScanID string `json:"scan_id"`
	Error  string `json:"error"`
}

// ScanService runs scans of one root directory.
type ScanService struct {
	scanner  *scanner.Scanner
	payloads payload.Store
	notifier ScanNotifier
	root     string
	prefix   string
	workers  int
	logger   *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	latest  *scanner.Result
	summary *ScanSummary
}

// ScanServiceConfig holds the scan defaults.
type ScanServiceConfig struct {
	Root    string
	Prefix  string
	Workers int
}

// NewScanService creates a scan service. A nil notifier discards events.
func NewScanService(s *scanner.Scanner, store payload.Store, notifier ScanNotifier, cfg ScanServiceConfig, logger *slog.Logger) *ScanService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ScanService{
		scanner:  s,
		payloads: store,
		notifier: notifier,
		root:     cfg.Root,
		prefix:   cfg.Prefix,
		workers:  cfg.Workers,
		logger:   infrastructure.WithComponent(logger, "scan_service"),
	}
}

// Root returns the scanned directory.
func (s *ScanService) Root() string { return s.root }

// Running reports whether a scan is in progress.
func (s *ScanService) Running() bool { return s.running.Load() }

// Scan scans the root and stores a payload of the rows selected by
// req.Filter. Only one scan runs at a time; a concurrent request gets
// ErrScanRunning. A scan that finds missions but no synthesis row still
// succeeds, without a payload.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ScanSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanRunning
	}
	defer s.running.Store(false)

	scanID := uuid.NewString()
	ctx = infrastructure.EnsureTraceID(ctx)

	prefix := req.Prefix
	if prefix == "" {
		prefix = s.prefix
	}
	workers := req.Workers
	if workers == 0 {
		workers = s.workers
	}

	s.logger.InfoContext(ctx, "scan started",
		slog.String("scan_id", scanID),
		slog.String("root", s.root),
		slog.String("prefix", prefix),
		slog.Int("workers", workers))
	s.notifier.Broadcast(ws.TypeScanStarted, map[string]string{"scan_id": scanID, "root": s.root})

	res, err := s.scanner.Scan(ctx, s.root, scanner.Options{
		Prefix:  prefix,
		Workers: workers,
		Progress: func(scanned, total int) {
			s.notifier.BroadcastScanProgress(scanID, scanned, total)
		},
	})
	if err != nil {
		s.fail(ctx, scanID, err)
		if errors.Is(err, scanner.ErrNoMissions) {
			return nil, err
		}
		return nil, fmt.Errorf("scan of %s failed: %w", s.root, err)
	}

	summary := &ScanSummary{
		ScanID:    scanID,
		Root:      res.Root,
		Prefix:    prefix,
		Missions:  len(res.Missions),
		Total:     res.Total,
		Skipped:   res.Skipped,
		StartedAt: res.StartedAt,
		Elapsed:   res.Elapsed.Round(time.Millisecond).String(),
	}

	p, err := payload.FromMissions(res.Missions, req.Filter, time.Now())
	switch {
	case errors.Is(err, payload.ErrNoRows):
		s.logger.WarnContext(ctx, "scan produced no synthesis rows", slog.String("scan_id", scanID))
	case err != nil:
		s.fail(ctx, scanID, err)
		return nil, err
	default:
		stored, err := s.payloads.Put(ctx, p)
		if err != nil {
			s.fail(ctx, scanID, err)
			return nil, fmt.Errorf("failed to store payload: %w", err)
		}
		summary.Rows = len(p.Rows)
		summary.PayloadID = p.Meta.ID
		summary.ETag = stored.ETag
		expires := stored.ExpiresAt
		summary.ExpiresAt = &expires
	}

	s.mu.Lock()
	s.latest = res
	s.summary = summary
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "scan completed",
		slog.String("scan_id", scanID),
		slog.Int("missions", summary.Missions),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("rows", summary.Rows),
		slog.String("payload_id", summary.PayloadID),
		slog.String("elapsed", summary.Elapsed))
	s.notifier.Broadcast(ws.TypeScanComplete, summary)
	return summary, nil
}

func (s *ScanService) fail(ctx context.Context, scanID string, err error) {
	infrastructure.RecordError(ctx, err)
	s.logger.ErrorContext(ctx, "scan failed",
		slog.String("scan_id", scanID),
		slog.String("error", err.Error()))
	s.notifier.Broadcast(ws.TypeScanFailed, ScanFailure{ScanID: scanID, Error: err.Error()})
}

// Rescan runs a scan with the configured defaults. It is the watcher
// callback: a scan already in progress makes it a no-op.
func (s *ScanService) Rescan(ctx context.Context) {
	_, err := s.Scan(ctx, ScanRequest{})
	if errors.Is(err, ErrScanRunning) {
		s.logger.DebugContext(ctx, "rescan skipped, scan in progress")
	}
}

// LastSummary returns the summary of the latest successful scan.
func (s *ScanService) LastSummary() (*ScanSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.summary != nil
}

func (s *ScanService) missions() ([]*mission.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoScan
	}
	return s.latest.Missions, nil
}

// Missions returns the missions of the latest scan selected by f.
func (s *ScanService) Missions(f mission.Filter) ([]*mission.Mission, error) {
	all, err := s.missions()
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

// Facets returns the filter facets of the latest scan.
func (s *ScanService) Facets() ([]mission.Facet, map[string]int, error) {
	all, err := s.missions()
	if err != nil {
		return nil, nil, err
	}
	return mission.Facets(all), mission.DomainCounts(all), nil
}

// Mission returns the mission with id from the latest scan.
func (s *ScanService) Mission(id string) (*mission.Mission, error) {
	all, err := s.missions()
	if err != nil {
		return nil, err
	}
	m := mission.Find(all, id)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissionNotFound, id)
	}
	return m, nil
}

// Snapshot builds and stores a payload from the latest scan without
// rescanning.
func (s *ScanService) Snapshot(ctx context.Context, f mission.Filter) (*payload.Stored, error) {
	all, err := s.missions()
	if err != nil {
		return nil, err
	}
	p, err := payload.FromMissions(all, f, time.Now())
	if err != nil {
		return nil, err
	}
	return s.payloads.Put(ctx, p)
}
