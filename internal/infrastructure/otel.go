package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"liciel/internal/config"
)

// InstrumentationName is used for the tracer and the meter.
const InstrumentationName = "liciel"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler // nil when metrics are disabled
	logger         *slog.Logger
}

// InitializeOTel sets up tracing (stdout exporter) and metrics (Prometheus
// exporter) according to cfg. Disabled parts fall back to the global no-op
// implementations so callers never need nil checks.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	if logger == nil {
		logger = GetLogger()
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", instanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{logger: logger}

	if cfg.TracingEnabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		providers.TracerProvider = tp
	}
	providers.Tracer = otel.Tracer(InstrumentationName)

	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(InstrumentationName)
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		providers.Meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.TracingEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// PipelineMetrics are the instruments recorded by the scan pipeline.
type PipelineMetrics struct {
	MissionsScanned metric.Int64Counter
	MissionsSkipped metric.Int64Counter
	FilesParsed     metric.Int64Counter
	TextScanRecover metric.Int64Counter
	ScanDuration    metric.Float64Histogram
}

// NewPipelineMetrics registers the pipeline instruments on meter. A nil
// meter yields no-op instruments.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}

	scanned, err := meter.Int64Counter("liciel_missions_scanned_total",
		metric.WithDescription("Mission folders accepted by the scanner"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("liciel_missions_skipped_total",
		metric.WithDescription("Mission folders skipped by the scanner"))
	if err != nil {
		return nil, err
	}
	files, err := meter.Int64Counter("liciel_files_parsed_total",
		metric.WithDescription("XML table files parsed"))
	if err != nil {
		return nil, err
	}
	recovered, err := meter.Int64Counter("liciel_text_scan_recoveries_total",
		metric.WithDescription("Files recovered by the text-scan fallback"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("liciel_scan_duration_seconds",
		metric.WithDescription("Duration of a full root scan"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		MissionsScanned: scanned,
		MissionsSkipped: skipped,
		FilesParsed:     files,
		TextScanRecover: recovered,
		ScanDuration:    duration,
	}, nil
}

// RecordSkip increments the skipped counter with the skip reason.
func (m *PipelineMetrics) RecordSkip(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.MissionsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordFile counts a parsed table file. recovered marks files the
// text-scan fallback had to read.
func (m *PipelineMetrics) RecordFile(ctx context.Context, role string, recovered bool) {
	if m == nil {
		return
	}
	m.FilesParsed.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	if recovered {
		m.TextScanRecover.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	}
}

// RecordScan records a completed root scan.
func (m *PipelineMetrics) RecordScan(ctx context.Context, accepted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MissionsScanned.Add(ctx, int64(accepted))
	m.ScanDuration.Record(ctx, elapsed.Seconds())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

func instanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
