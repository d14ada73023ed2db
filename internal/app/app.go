package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"startupetl/internal/config"
	"startupetl/internal/infrastructure"
	"startupetl/internal/middleware"
	"startupetl/internal/storage"
	transporthttp "startupetl/internal/transport/http"
)

// Application holds the long-lived components shared by both entry points.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Metrics   *infrastructure.PipelineMetrics
	Paths     *config.Paths
	DB        *sql.DB
	Store     *storage.StartupStore
	Server    *http.Server
}

// NewApplication initializes logging, telemetry, report paths and the store.
// On error everything opened so far is released.
func NewApplication(ctx context.Context, cfg *config.Config) (_ *Application, err error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("driver", cfg.Database.Driver),
		slog.String("table", cfg.Database.Table))

	app := &Application{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(ctx)
		}
	}()

	if app.Telemetry, err = infrastructure.InitTelemetry(ctx, cfg.Telemetry, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if app.Metrics, err = infrastructure.NewPipelineMetrics(app.Telemetry.Meter); err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	if app.Paths, err = config.GetPaths(cfg.Report); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err = app.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	app.Paths.LogPathResolution(logger)

	db, dialect, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app.DB = db

	if app.Store, err = storage.NewStartupStore(db, dialect, cfg.Database.Table, logger); err != nil {
		return nil, err
	}

	return app, nil
}

// Handler builds the HTTP handler of the web surface.
func (a *Application) Handler() (http.Handler, error) {
	otelMiddleware, err := middleware.NewOTelMiddleware(a.Telemetry.Tracer, a.Telemetry.Meter)
	if err != nil {
		return nil, err
	}

	return transporthttp.NewRouter(transporthttp.RouterConfig{
		Store:   a.Store,
		Paths:   a.Paths,
		Server:  a.Config.Server,
		Logger:  a.Logger,
		Metrics: a.Telemetry.MetricsHandler(),
		OTel:    otelMiddleware,
	}), nil
}

// Start creates the table if needed and starts serving on the configured
// port. A listener error cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	if err := a.Store.EnsureTable(ctx); err != nil {
		return err
	}

	handler, err := a.Handler()
	if err != nil {
		return err
	}

	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Server started",
		slog.Int("port", a.Config.Server.Port),
		slog.String("api", config.APIBasePath))
	return nil
}

// Stop drains the HTTP server within the shutdown timeout.
func (a *Application) Stop(ctx context.Context) error {
	if a.Server == nil {
		return nil
	}
	a.Logger.InfoContext(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Run serves until interrupted.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")
	return a.Stop(ctx)
}

// Close releases the telemetry providers, the database pool and the log
// file. It is safe on a partially initialized Application.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("log file close: %w", err))
	}
	return errors.Join(errs...)
}
