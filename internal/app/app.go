package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
	"agrirank/internal/middleware"
	"agrirank/internal/operations"
	"agrirank/internal/services"
	handlers "agrirank/internal/transport/http"
	ws "agrirank/internal/websocket"
)

// Run snapshot retention.
const (
	RunRetention       = time.Hour
	RunCleanupInterval = 10 * time.Minute
)

// Application wires the ranking service behind the HTTP API.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Hub           *ws.Hub
	Runs          *operations.RunBroadcaster
	Rankings      *services.RankingService
	Health        *services.HealthService
}

// NewApplication builds every component from cfg. Nothing is started and
// the source is not read until Start.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	wsMetrics, err := ws.NewMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket metrics: %w", err)
	}

	source, err := dataprocessing.NewSource(ctx, cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}
	a.Hub = ws.NewHub(logger, wsMetrics)
	a.Runs = operations.NewRunBroadcaster(a.Hub, logger)
	a.Rankings, err = services.NewRankingService(cfg.Analysis, source, operations.Deps{
		Logger:  logger,
		Events:  a.Runs,
		Metrics: metrics,
		Tracer:  otelProviders.Tracer,
	})
	if err != nil {
		a.Runs.Stop()
		return nil, err
	}
	a.Health = services.NewHealthService(config.AppVersion, a.Rankings, a.Hub, logger)

	logger.InfoContext(ctx, "application initialized",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("source", source.Describe()),
		slog.String("strategy", a.Rankings.Strategy()),
	)

	a.setupRouter()
	a.createServer()
	return a, nil
}

// setupRouter mounts the API. The websocket and metrics endpoints sit
// outside the group so no middleware wraps their ResponseWriter.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(a.Logger)
	validator := middleware.NewValidator(a.Logger)
	server := a.Config.Server

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle(config.WebSocketEndpoint, ws.Handler(a.Hub, server.AllowedOrigins, a.Logger))
	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewInstrumentation(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: server.AllowedOrigins}))
		if server.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(server.RateLimit.RPS, server.RateLimit.Burst, a.Logger).Handler)
		}
		r.Use(middleware.Timeout(server.RequestTimeout, a.Logger))

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Mount("/health", handlers.NewHealthHandler(a.Health).Routes())
			r.Mount("/rankings", handlers.NewRankingHandler(a.Rankings, validator, a.Logger, errorHandler).Routes())
			r.Mount("/criteria", handlers.NewCriteriaHandler(a.Rankings, a.Logger, errorHandler).Routes())
			r.Mount("/source", handlers.NewSourceHandler(a.Rankings, a.Logger, errorHandler).Routes())
			r.Mount("/runs", handlers.NewRunsHandler(a.Runs, errorHandler).Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the hub, the server and the background loaders. A server
// failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go a.warmUp(ctx)
	go a.cleanupRuns(ctx)

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// warmUp loads the source once so readiness turns green without waiting
// for the first ranking request. A failure is only logged; requests retry.
func (a *Application) warmUp(ctx context.Context) {
	info, err := a.Rankings.Refresh(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "initial source load failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "initial source load complete",
		slog.Int("observations", info.Observations),
		slog.String("fingerprint", info.Fingerprint))
}

func (a *Application) cleanupRuns(ctx context.Context) {
	ticker := time.NewTicker(RunCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Runs.CleanupOld(RunRetention)
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	a.Runs.Stop()
	a.Hub.Stop()
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("opentelemetry shutdown: %w", err))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return a.Stop(context.Background())
}
