package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"startupetl/internal/config"
	apierrors "startupetl/internal/errors"
	"startupetl/internal/middleware"
)

// RouterConfig wires the web surface.
type RouterConfig struct {
	Store   StartupReader
	Paths   *config.Paths
	Server  config.ServerConfig
	Logger  *slog.Logger
	Metrics http.Handler
	OTel    *middleware.OTelMiddleware
}

// NewRouter builds the chi router with the middleware chain and all routes.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	if cfg.OTel != nil {
		r.Use(cfg.OTel.Handler)
	}

	health := NewHealthHandler(cfg.Store, logger)
	r.Get(config.HealthEndpoint, health.HealthCheck)
	if cfg.Metrics != nil {
		r.Handle(config.MetricsEndpoint, cfg.Metrics)
	}

	api := NewAPIHandler(cfg.Store, cfg.Paths, logger, errorHandler)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Mount("/", api.Routes())
	})

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleError(w, r, apierrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"The API is read-only"))
	})

	return r
}
