package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"tpcpower/internal/config"
	"tpcpower/internal/dataprocessing"
	"tpcpower/internal/dataset"
	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
	"tpcpower/internal/infrastructure"
	customMiddleware "tpcpower/internal/middleware"
	"tpcpower/internal/services"
	handlers "tpcpower/internal/transport/http"
	ws "tpcpower/internal/websocket"
	"tpcpower/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics
	Dataset          *dataset.Cache
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.RequestValidator
}

// NewApplication wires every component from cfg. The dataset must exist and
// load; otherwise a CONFIG or STORAGE error is returned before anything
// listens.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("dataset", cfg.Dataset.Path))

	if err := cfg.CheckDataset(); err != nil {
		return nil, apierrors.NewConfigError("dataset is not available", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(otelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
		validator:     customMiddleware.NewRequestValidator(),
	}

	if err := app.initializeServices(ctx); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, err
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// otelConfig maps the telemetry section onto the OpenTelemetry setup
func otelConfig(t config.TelemetryConfig) *infrastructure.OTelConfig {
	cfg := infrastructure.DefaultOTelConfig()
	cfg.ServiceVersion = contracts.Version
	cfg.EnableMetrics = t.EnableMetrics
	cfg.EnableTracing = t.EnableTracing
	if t.TraceExporter != "" {
		cfg.TraceExporter = t.TraceExporter
	}
	if t.SampleRatio > 0 {
		cfg.SampleRatio = t.SampleRatio
	}
	if t.Environment != "" {
		cfg.Environment = t.Environment
	}
	return cfg
}

// initializeServices builds the dataset cache, the query services and the
// WebSocket hub, then loads the dataset once.
func (a *Application) initializeServices(ctx context.Context) error {
	loader := dataset.NewLoader(a.Logger,
		dataset.WithTimeLayouts(a.Config.Dataset.TimeLayouts),
		dataset.WithMetrics(a.Metrics))
	cache := dataset.NewCache(loader, a.Config.Dataset.Path, a.Logger,
		dataset.WithWatch(a.Config.Dataset.WatchForChanges))
	a.Dataset = cache

	hub := ws.NewHub(a.Logger, a.Metrics)
	hub.Start()
	a.WebSocketHub = hub
	cache.OnReload(func(snap *dataset.Snapshot) {
		hub.BroadcastDatasetReloaded(cache.Path(), snap)
	})

	snap, err := cache.Get(ctx)
	if err != nil {
		hub.Stop()
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	a.Logger.InfoContext(ctx, "Dataset loaded",
		slog.String("path", cache.Path()),
		slog.Int("rows", snap.Table.Len()),
		slog.Int("rows_dropped", snap.Stats.RowsDropped),
		slog.Any("types", snap.Table.Types()))

	a.DashboardService = services.NewDashboardService(cache,
		dataprocessing.NewPipeline(a.Logger, a.Metrics),
		exporter.New(a.Logger, a.Metrics),
		services.DashboardOptions{MaxRows: a.Config.Display.MaxRows},
		a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, cache, hub, a.Logger)

	return nil
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Only middleware that leaves the ResponseWriter alone runs before /ws
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.DashboardService, a.validator,
		a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.DefaultCORSConfig(a.Config.Security.AllowedOrigins)))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.errorHandler,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)
	})

	// Prometheus scrape endpoint, outside the middleware group
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	a.Router = r
}

// setupAPIRoutes registers the JSON API
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	datasetHandler := handlers.NewDatasetHandler(a.DashboardService, a.Logger, a.errorHandler)
	queryHandler := handlers.NewQueryHandler(a.DashboardService, a.validator, a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount("/dataset", datasetHandler.Routes())

		r.With(customMiddleware.ContentTypeValidator(a.errorHandler, "application/json")).
			Post("/query", queryHandler.Query)
		r.Get("/export/{file}", queryHandler.Export)
	})
}

// setupHTMLRoutes registers the dashboard page
func (a *Application) setupHTMLRoutes(r chi.Router) {
	page := handlers.NewPageHandler(a.DashboardService, a.validator, handlers.PageOptions{
		Title:       a.Config.Display.Title,
		ChartWidth:  a.Config.Display.ChartWidth,
		ChartHeight: a.Config.Display.ChartHeight,
	}, a.Logger, a.errorHandler)

	r.Get("/", page.ServeDashboard)
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Application started",
			slog.String("address", fmt.Sprintf("http://%s", ln.Addr())),
			slog.String("dataset", a.Dataset.Path()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// Hijacked WebSocket connections are not tracked by Shutdown
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("uptime", time.Since(a.HealthService.StartTime())))
	return errors.Join(errs...)
}
