package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/minio/minio-go/v7"

	"liciel/internal/config"
	apierrors "liciel/internal/errors"
	"liciel/internal/exporter"
	"liciel/internal/files"
	"liciel/internal/infrastructure"
	customMiddleware "liciel/internal/middleware"
	"liciel/internal/mission"
	"liciel/internal/payload"
	"liciel/internal/scanner"
	"liciel/internal/services"
	"liciel/internal/synthesis"
	handlers "liciel/internal/transport/http"
	"liciel/internal/watch"
	ws "liciel/internal/websocket"
)

// Object key prefixes inside the configured bucket.
const (
	payloadObjectPrefix = "payloads/"
	exportObjectPrefix  = "exports/"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	WebSocketHub  *ws.Hub
	Watcher       *watch.Watcher
	Services      *ServiceContainer

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
	closers      []func()
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Scan    *services.ScanService
	Payload *services.PayloadService
	Export  *services.ExportService
	Health  *services.HealthService
}

// NewApplication loads the configuration and the process logger, then
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires every component from cfg. Stores that need a network
// connection are opened with ctx.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("root", cfg.Scan.RootDir),
		slog.String("payload_store", cfg.Payload.Store))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:     customMiddleware.NewValidator(logger, customMiddleware.DefaultMaxBodySize),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	var objectClient *minio.Client
	if a.Config.ObjectStorage.Endpoint != "" && a.Config.ObjectStorage.Bucket != "" {
		client, err := infrastructure.NewObjectClient(a.Config.ObjectStorage)
		if err != nil {
			return err
		}
		if err := infrastructure.EnsureBucket(ctx, client, a.Config.ObjectStorage.Bucket, a.Config.ObjectStorage.Region); err != nil {
			return err
		}
		objectClient = client
	}

	store, err := a.newPayloadStore(ctx, objectClient)
	if err != nil {
		return err
	}

	metrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	builder := mission.NewBuilder(
		mission.WithProjector(synthesis.Projector{
			OperatorPrefix:  a.Config.Export.OperatorPrefix,
			AnnotateSamples: a.Config.Export.AnnotateSamples,
		}),
		mission.WithMetrics(metrics),
		mission.WithLogger(a.Logger),
	)
	scan := scanner.New(builder,
		scanner.WithMetrics(metrics),
		scanner.WithLogger(a.Logger),
	)

	hub := ws.NewHub(a.Config.WebSocket, a.Logger)
	hub.Start()
	a.WebSocketHub = hub
	a.closers = append(a.closers, hub.Stop)

	scanService := services.NewScanService(scan, store, hub, services.ScanServiceConfig{
		Root:    a.Config.Scan.RootDir,
		Prefix:  a.Config.Scan.Prefix,
		Workers: a.Config.Scan.Workers,
	}, a.Logger)
	payloadService := services.NewPayloadService(store, a.Logger)
	exportService := services.NewExportService(
		payloadService,
		a.newExporter(objectClient),
		files.NewManager(a.Config.Export.OutputDir),
		a.Logger,
	)

	a.Services = &ServiceContainer{
		Scan:    scanService,
		Payload: payloadService,
		Export:  exportService,
		Health:  services.NewHealthService(config.AppVersion, payloadService, scanService, hub, a.Logger),
	}

	if a.Config.Scan.Watch {
		w, err := watch.New(a.Config.Scan.RootDir, a.Config.Scan.Debounce, scanService.Rescan, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		a.Watcher = w
	}

	return nil
}

// newPayloadStore opens the configured payload store and registers its
// cleanup.
func (a *Application) newPayloadStore(ctx context.Context, objectClient *minio.Client) (payload.Store, error) {
	ttl := payload.WithTTL(a.Config.Payload.TTL)

	switch a.Config.Payload.Store {
	case config.StorePostgres:
		pool, err := payload.Connect(ctx, a.Config.Postgres.URL, a.Config.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := payload.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		return payload.NewPostgresStore(pool, ttl), nil

	case config.StoreObject:
		if objectClient == nil {
			return nil, errors.New("object payload store requires object storage")
		}
		return payload.NewObjectStore(objectClient, a.Config.ObjectStorage.Bucket, payloadObjectPrefix, ttl), nil

	default:
		store := payload.NewMemoryStore(a.Config.Payload.MaxEntries, a.Config.Payload.CleanupInterval, ttl)
		a.closers = append(a.closers, store.Stop)
		return store, nil
	}
}

// newExporter enables PDF when a browser is configured and publishing when
// object storage is.
func (a *Application) newExporter(objectClient *minio.Client) *exporter.Exporter {
	opts := []exporter.Option{
		exporter.WithBOM(a.Config.Export.BOMPrefix),
		exporter.WithLogger(a.Logger),
	}
	if a.Config.Export.ChromePath != "" {
		opts = append(opts, exporter.WithPDF(exporter.NewPDFRenderer(a.Config.Export.ChromePath, exporter.DefaultPDFTimeout, a.Logger)))
	}
	if objectClient != nil {
		opts = append(opts, exporter.WithPublisher(exporter.NewPublisher(objectClient, a.Config.ObjectStorage.Bucket, exportObjectPrefix, a.Logger)))
	}
	return exporter.New(opts...)
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter and are safe for the upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc(config.WebSocketEndpoint, a.handleWebSocket)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Logger)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Mount(config.HealthEndpoint, handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes())
		r.Route(config.APIBasePath, a.setupAPIRoutes)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API routes
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
	r.Use(customMiddleware.ContentTypeValidator(a.errorHandler, "application/json"))
	r.Use(customMiddleware.Compress(5, "application/json", "text/csv", "text/html"))

	r.Mount("/scans", handlers.NewScanHandler(a.Services.Scan, a.validator, a.Logger, a.errorHandler).Routes())
	r.Mount("/missions", handlers.NewMissionHandler(a.Services.Scan, a.validator, a.Logger, a.errorHandler).Routes())
	r.Mount("/payloads", handlers.NewPayloadHandler(a.Services.Payload, a.Services.Export, a.validator, a.Logger, a.errorHandler).Routes())
}

// getCORSConfig returns the CORS policy of the API.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"If-None-Match",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			"ETag",
			"Location",
			customMiddleware.RequestIDHeader,
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the background services and the HTTP listener. A listener
// failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if a.Config.Scan.OnStart {
		go a.Services.Scan.Rescan(infrastructure.EnsureTraceID(ctx))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.Watcher != nil {
		a.Watcher.Stop()
	}

	var serverErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		serverErr = fmt.Errorf("server shutdown error: %w", err)
	}

	a.close()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return serverErr
}

// close releases the hub and the payload store in reverse order.
func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received interrupt signal")

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and registers the client with
// the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     a.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.WarnContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			a.errorHandler.HandleError(w, r, apierrors.New(status, apierrors.ErrWebSocketUpgrade.ErrorCode, reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.ServeWS(a.WebSocketHub, conn, traceID)
	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}

// checkOrigin accepts same-origin requests, requests without Origin and
// the configured origins.
func (a *Application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	if slices.Contains(a.Config.Security.AllowedOrigins, origin) {
		return true
	}
	a.Logger.Warn("WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", a.Config.Security.AllowedOrigins))
	return false
}

// performStartupHealthCheck reports a missing scan root or an unwritable
// export directory. Neither prevents startup.
func (a *Application) performStartupHealthCheck() error {
	var errs []error

	if info, err := os.Stat(a.Config.Scan.RootDir); err != nil {
		errs = append(errs, fmt.Errorf("scan root: %w", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("scan root %s is not a directory", a.Config.Scan.RootDir))
	}

	output := files.NewManager(a.Config.Export.OutputDir)
	if err := output.EnsureDirectory("."); err != nil {
		errs = append(errs, err)
	} else {
		probe := fmt.Sprintf(".probe-%d", time.Now().UnixNano())
		if err := output.WriteFile(probe, nil); err != nil {
			errs = append(errs, fmt.Errorf("export directory not writable: %w", err))
		} else {
			_ = os.Remove(output.ResolvePath(probe))
		}
	}

	return errors.Join(errs...)
}
