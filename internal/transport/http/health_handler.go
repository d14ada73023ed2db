package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"startupetl/pkg/contracts"
)

// HealthHandler reports whether the store answers queries.
type HealthHandler struct {
	store   StartupReader
	version contracts.VersionInfo
	logger  *slog.Logger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store StartupReader, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		store:   store,
		version: contracts.GetVersionInfo(),
		logger:  logger.With(slog.String("handler", "health")),
		timeout: 2 * time.Second,
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Store health check failed",
			slog.String("error", err.Error()))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status":  "unhealthy",
			"version": h.version,
			"error":   "store unavailable",
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"records": count,
	})
}
