package http

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"startupetl/internal/config"
	"startupetl/internal/dataprocessing"
	apierrors "startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

// StartupReader is the read side of the startup store.
type StartupReader interface {
	Records(ctx context.Context) ([]domain.StartupRecord, error)
	SectorTotals(ctx context.Context) ([]domain.SectorValuationSummary, error)
	Count(ctx context.Context) (int, error)
}

// APIHandler serves the /api/v1 routes.
type APIHandler struct {
	store        StartupReader
	paths        *config.Paths
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewAPIHandler creates the API handler. paths locates the rendered report.
func NewAPIHandler(store StartupReader, paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &APIHandler{
		store:        store,
		paths:        paths,
		logger:       logger.With(slog.String("component", "api_handler")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Routes returns the API routes
func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/startups", h.ListStartups)
		r.Get("/summary", h.Summary)

		r.Route("/sectors", func(r chi.Router) {
			r.Get("/valuation", h.SectorValuation)
			r.With(h.AsOfCtx).Get("/growth", h.SectorGrowth)
			r.With(h.AsOfCtx).Get("/challenged", h.ChallengedSectors)
		})
	})

	r.Get("/report", h.serveFile(func() string { return h.paths.DocumentFile }, "application/pdf", "report"))
	r.Get("/report/chart", h.serveFile(func() string { return h.paths.ChartFile }, "image/png", "chart"))

	return r
}

type asOfKey struct{}

// AsOfCtx parses the optional as_of query parameter into the context.
func (h *APIHandler) AsOfCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		asOf, err := h.parseAsOf(r)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), asOfKey{}, asOf)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) parseAsOf(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("as_of"))
	if raw == "" {
		return h.now().UTC(), nil
	}
	asOf, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apierrors.ErrValidation("as_of", "as_of must be a date in YYYY-MM-DD format")
	}
	return asOf, nil
}

func asOfFrom(ctx context.Context) time.Time {
	if asOf, ok := ctx.Value(asOfKey{}).(time.Time); ok {
		return asOf
	}
	return time.Now().UTC()
}

// ListStartups handles GET /api/v1/startups. An optional sector parameter
// filters by exact sector name.
func (h *APIHandler) ListStartups(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Records(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if sector := strings.TrimSpace(r.URL.Query().Get("sector")); sector != "" {
		filtered := make([]domain.StartupRecord, 0, len(records))
		for _, rec := range records {
			if rec.Sector == sector {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// SectorValuation handles GET /api/v1/sectors/valuation
func (h *APIHandler) SectorValuation(w http.ResponseWriter, r *http.Request) {
	totals, err := h.store.SectorTotals(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   nonNil(totals),
		"count":  len(totals),
	})
}

// SectorGrowth handles GET /api/v1/sectors/growth
func (h *APIHandler) SectorGrowth(w http.ResponseWriter, r *http.Request) {
	asOf := asOfFrom(r.Context())
	records, err := h.store.Records(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	growth := dataprocessing.SectorGrowth(records, asOf)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"as_of":  asOf.Format(time.DateOnly),
		"data":   nonNil(growth),
		"count":  len(growth),
	})
}

// ChallengedSectors handles GET /api/v1/sectors/challenged
func (h *APIHandler) ChallengedSectors(w http.ResponseWriter, r *http.Request) {
	asOf := asOfFrom(r.Context())
	records, err := h.store.Records(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	challenged := dataprocessing.ChallengedSectors(dataprocessing.SectorGrowth(records, asOf))
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"as_of":  asOf.Format(time.DateOnly),
		"data":   nonNil(challenged),
		"count":  len(challenged),
	})
}

// Summary handles GET /api/v1/summary
func (h *APIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.parseAsOf(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	records, err := h.store.Records(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	totals, err := h.store.SectorTotals(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	counts := domain.RecordCounts{Input: len(records), Retained: len(records)}
	for _, rec := range records {
		if !rec.HasEntryDate() {
			counts.NullDates++
		}
	}

	summary := dataprocessing.NewSummarizer(h.logger).Summarize(ctx, records, nonNil(totals), asOf, counts)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// serveFile streams the latest rendered artifact.
func (h *APIHandler) serveFile(path func() string, contentType, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.paths == nil {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError(name))
			return
		}
		p := path()
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			h.logger.WarnContext(r.Context(), "report artifact not found",
				slog.String("artifact", name),
				slog.String("path", p))
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError(name))
			return
		}

		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, p)
	}
}

// nonNil keeps empty results rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
