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
	"golang.org/x/sync/errgroup"

	"bikepulse/internal/charts"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	handlers "bikepulse/internal/transport/http"
	ws "bikepulse/internal/websocket"
	"bikepulse/pkg/contracts"
)

// AppName is logged at startup and used as the default page title.
const AppName = "Bike Rental Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Dataset          *dataset.Dataset
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub

	errorHandler *apierrors.ErrorHandler
	closeLog     func() error
}

// NewApplication loads the configuration at configPath (empty searches the
// default locations), builds the logger and wires every component.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := New(cfg, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	a.closeLog = closeLog
	return a, nil
}

// New wires the application from an already loaded configuration. A
// dataset that cannot be read is fatal.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("dataset", cfg.Dataset.Path))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
		closeLog:      func() error { return nil },
	}

	if err := a.initializeServices(ctx); err != nil {
		providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices loads the dataset and builds the services on top of it.
func (a *Application) initializeServices(ctx context.Context) error {
	ds, err := dataset.LoadFile(ctx, a.Config.Dataset.Path, dataset.Options{Strict: a.Config.Dataset.Strict},
		a.Logger.With(slog.String("component", "dataset")))
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	report := ds.Report()
	a.Metrics.RecordDatasetLoad(ctx, report.Loaded, report.Skipped)
	a.Dataset = ds

	dashboard, err := services.NewDashboardService(ds, a.Metrics, a.Logger)
	if err != nil {
		return err
	}
	a.DashboardService = dashboard

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(ds, a.WebSocketHub, a.Logger)

	if bounds, ok := ds.Bounds(); ok {
		a.Logger.InfoContext(ctx, "Dataset ready",
			slog.String("bounds", bounds.String()),
			slog.Int("records", ds.Len()))
	} else {
		a.Logger.WarnContext(ctx, "Dataset is empty; the dashboard will show the zero state")
	}
	return nil
}

// setupRouter builds the chi router. The websocket route only gets the
// middleware that leaves the ResponseWriter unwrapped; everything else
// runs through the full chain.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.Use(bikemw.RequestID)
	r.Use(bikemw.RealIP)

	validator := bikemw.NewValidator()

	r.Handle("/ws", ws.NewHandler(a.DashboardService, a.WebSocketHub, validator,
		a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(bikemw.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(bikemw.StructuredLogger(a.Logger))
		r.Use(bikemw.Recoverer(a.errorHandler))
		r.Use(bikemw.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(bikemw.CORS(bikemw.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(bikemw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(bikemw.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r, validator)
		a.setupHTMLRoutes(r, validator)
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router, validator *bikemw.Validator) {
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/version", health.Version)

		r.Mount("/dashboard", handlers.NewDashboardHandler(a.DashboardService, validator, a.Logger, a.errorHandler).Routes())
		r.Mount("/export", handlers.NewExportHandler(a.DashboardService, validator, a.Logger, a.errorHandler).Routes())
		r.Post("/client-log", handlers.NewClientLogHandler(validator, a.Logger, a.errorHandler).Handle)
	})
}

func (a *Application) setupHTMLRoutes(r chi.Router, validator *bikemw.Validator) {
	r.Mount("/charts", handlers.NewChartHandler(a.DashboardService, charts.NewRenderer(), validator, a.Logger, a.errorHandler).Routes())

	title := a.Config.Dashboard.Title
	if title == "" {
		title = AppName
	}
	page, err := handlers.NewPageHandler(a.DashboardService, validator, handlers.PageConfig{
		Title:       title,
		Footer:      a.Config.Dashboard.Footer,
		RawRowLimit: a.Config.Dashboard.RawRowLimit,
	}, a.Logger, a.errorHandler)
	if err != nil {
		// templates are embedded, so this only fails on a broken build
		panic(fmt.Sprintf("dashboard template: %v", err))
	}
	r.Get("/", page.Dashboard)
	r.Get("/static/dashboard.js", page.Script)
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts everything
// down. It returns the first error from serving or stopping.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", a.Server.Addr),
			slog.String("version", contracts.Version))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	// hijacked websocket connections are not tracked by the server
	if err := a.WebSocketHub.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("websocket hub shutdown: %w", err))
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM and releases the log file on exit.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.closeLog()

	start := time.Now()
	err := a.Serve(ctx)
	a.Logger.Info("Application exited",
		slog.Duration("uptime", time.Since(start)),
		slog.Bool("clean", err == nil))
	return err
}
