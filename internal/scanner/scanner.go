// Package scanner enumerates the mission folders below a root directory
// and builds a Mission from each.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"liciel/internal/files"
	"liciel/internal/infrastructure"
	"liciel/internal/mission"
)

// ErrNoMissions is returned when no folder below the root is a mission.
var ErrNoMissions = errors.New("no LICIEL mission found")

// Skip reasons.
const (
	ReasonNoTables      = "no-tables"
	ReasonNoGeneralInfo = "no-general-info"
	ReasonUnreadable    = "unreadable"
	ReasonPanic         = "panic"
)

// ProgressFunc is told after each folder how many of total were scanned.
type ProgressFunc func(scanned, total int)

// Options tune a scan.
type Options struct {
	// Prefix keeps only folders whose name starts with it.
	Prefix string
	// Progress, when set, is called once per folder with a monotonic count.
	Progress ProgressFunc
	// Workers bounds the folders scanned concurrently. Values below 2
	// scan sequentially.
	Workers int
}

// Skipped is a folder that did not yield a mission.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a scan. Missions keep the folder name order.
type Result struct {
	Root      string             `json:"root"`
	Missions  []*mission.Mission `json:"missions"`
	Skipped   []Skipped          `json:"skipped,omitempty"`
	Total     int                `json:"total"`
	StartedAt time.Time          `json:"started_at"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Scanner turns mission folders into missions.
type Scanner struct {
	builder *mission.Builder
	walker  files.Walker
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWalker sets the strategy used to list the tables of a folder.
func WithWalker(w files.Walker) Option {
	return func(s *Scanner) {
		if w != nil {
			s.walker = w
		}
	}
}

// WithMetrics records scans on m.
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Scanner building missions with b.
func New(b *mission.Builder, opts ...Option) *Scanner {
	s := &Scanner{
		builder: b,
		walker:  files.RecursiveWalker{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = infrastructure.WithComponent(s.logger, "scanner")
	return s
}

type outcome struct {
	mission *mission.Mission
	skipped *Skipped
}

// Scan builds a mission from every subdirectory of root. Folders that are
// not missions or cannot be read are reported in Result.Skipped; only an
// unreadable root or a cancelled context is an error. ErrNoMissions is
// returned along with the result when nothing was accepted.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	ctx, span := otel.Tracer(infrastructure.InstrumentationName).Start(ctx, "scanner.Scan")
	defer span.End()
	span.SetAttributes(attribute.String("root", root), attribute.String("prefix", opts.Prefix))

	res := &Result{Root: root, StartedAt: time.Now()}

	dirs, err := files.ListDirectories(root)
	if err != nil {
		err = fmt.Errorf("failed to scan root: %w", err)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	var candidates []files.FileInfo
	for _, d := range dirs {
		if strings.HasPrefix(d.Name, opts.Prefix) {
			candidates = append(candidates, d)
		}
	}
	res.Total = len(candidates)

	progress := newProgress(opts.Progress, res.Total, s.logger)
	outcomes := make([]outcome, len(candidates))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = s.scanOne(gctx, d)
			progress.step()
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.mission != nil:
			res.Missions = append(res.Missions, o.mission)
		case o.skipped != nil:
			res.Skipped = append(res.Skipped, *o.skipped)
			s.metrics.RecordSkip(ctx, o.skipped.Reason)
		}
	}
	res.Elapsed = time.Since(res.StartedAt)
	s.metrics.RecordScan(ctx, len(res.Missions), res.Elapsed)

	span.SetAttributes(
		attribute.Int("missions", len(res.Missions)),
		attribute.Int("skipped", len(res.Skipped)))
	s.logger.InfoContext(ctx, "scan completed",
		slog.String("root", root),
		slog.Int("folders", res.Total),
		slog.Int("missions", len(res.Missions)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Duration("elapsed", res.Elapsed))

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("scan interrupted: %w", err)
	}
	if len(res.Missions) == 0 {
		return res, ErrNoMissions
	}
	return res, nil
}

func (s *Scanner) scanOne(ctx context.Context, d files.FileInfo) (o outcome) {
	logger := infrastructure.WithMission(s.logger, d.Name)
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "mission scan panicked", slog.Any("panic", r))
			o = outcome{skipped: &Skipped{ID: d.Name, Reason: ReasonPanic, Error: fmt.Sprint(r)}}
		}
	}()

	folder, err := Locate(ctx, s.walker, d.Path)
	if err != nil {
		logger.WarnContext(ctx, "skipping unreadable folder", slog.String("error", err.Error()))
		return outcome{skipped: &Skipped{ID: d.Name, Reason: ReasonUnreadable, Error: err.Error()}}
	}
	if len(folder.Tables) == 0 {
		logger.DebugContext(ctx, "skipping folder without tables")
		return outcome{skipped: &Skipped{ID: d.Name, Reason: ReasonNoTables}}
	}

	m, err := s.builder.Build(ctx, folder)
	switch {
	case errors.Is(err, mission.ErrNoGeneralInfo):
		logger.DebugContext(ctx, "skipping folder without general info")
		return outcome{skipped: &Skipped{ID: d.Name, Reason: ReasonNoGeneralInfo}}
	case err != nil:
		logger.WarnContext(ctx, "skipping mission", slog.String("error", err.Error()))
		return outcome{skipped: &Skipped{ID: d.Name, Reason: ReasonUnreadable, Error: err.Error()}}
	}
	return outcome{mission: m}
}

// progress serializes progress reports so counts never go backwards.
type progress struct {
	mu      sync.Mutex
	fn      ProgressFunc
	scanned int
	total   int
	logger  *slog.Logger
}

func newProgress(fn ProgressFunc, total int, logger *slog.Logger) *progress {
	return &progress{fn: fn, total: total, logger: logger}
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scanned++
	if p.fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress callback panicked", slog.Any("panic", r))
		}
	}()
	p.fn(p.scanned, p.total)
}
