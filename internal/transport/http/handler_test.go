package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupetl/internal/config"
	"startupetl/internal/dataprocessing"
	apierrors "startupetl/internal/errors"
	"startupetl/internal/shared/testutil"
	"startupetl/pkg/contracts/domain"
)

type fakeStore struct {
	records []domain.StartupRecord
	err     error
}

func (f *fakeStore) Records(ctx context.Context) ([]domain.StartupRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) SectorTotals(ctx context.Context) ([]domain.SectorValuationSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return dataprocessing.SectorTotals(f.records), nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.records), f.err
}

func sampleStore() *fakeStore {
	return &fakeStore{records: []domain.StartupRecord{
		testutil.Startup("Razorpay", "Fintech", "1", "7.5", testutil.Date(2020, 10, 11)),
		testutil.Startup("Groww", "Fintech", "1", "3", testutil.Date(2021, 4, 7)),
		testutil.Startup("Unacademy", "Edtech", "1.45", "1.2", testutil.Date(2020, 9, 2)),
		testutil.Startup("Byju's", "Edtech", "1", "22", testutil.Date(2011, 1, 1)),
	}}
}

func newTestRouter(t *testing.T, store StartupReader, server config.ServerConfig) (http.Handler, *config.Paths) {
	t.Helper()
	reportCfg := config.Default().Report
	reportCfg.OutputDir = t.TempDir()
	paths, err := config.GetPaths(reportCfg)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	return NewRouter(RouterConfig{
		Store:   store,
		Paths:   paths,
		Server:  server,
		Logger:  logger,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}), paths
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_JSONRoutes(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	tests := []struct {
		name      string
		target    string
		wantCount float64
		check     func(t *testing.T, data []interface{})
	}{
		{
			name:      "all startups",
			target:    "/api/v1/startups",
			wantCount: 4,
		},
		{
			name:      "startups by sector",
			target:    "/api/v1/startups?sector=Edtech",
			wantCount: 2,
		},
		{
			name:      "sector valuation ordered by total",
			target:    "/api/v1/sectors/valuation",
			wantCount: 2,
			check: func(t *testing.T, data []interface{}) {
				first := data[0].(map[string]interface{})
				assert.Equal(t, "Edtech", first["sector"])
				assert.Equal(t, "23.2", first["total_valuation"])
			},
		},
		{
			name:      "growth excludes entries older than five years",
			target:    "/api/v1/sectors/growth?as_of=2024-01-01",
			wantCount: 2,
			check: func(t *testing.T, data []interface{}) {
				edtech := data[0].(map[string]interface{})
				assert.Equal(t, "Edtech", edtech["sector"])
				assert.Equal(t, "-0.25", edtech["average_valuation_growth"])
				assert.Equal(t, float64(1), edtech["companies"])
			},
		},
		{
			name:      "challenged sectors",
			target:    "/api/v1/sectors/challenged?as_of=2024-01-01",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			body := decode(t, rec)
			assert.Equal(t, "success", body["status"])
			assert.Equal(t, tt.wantCount, body["count"])
			if tt.check != nil {
				tt.check(t, body["data"].([]interface{}))
			}
		})
	}
}

func TestRouter_EmptyStoreRendersEmptyArrays(t *testing.T) {
	router, _ := newTestRouter(t, &fakeStore{}, config.Default().Server)

	rec := get(t, router, "/api/v1/sectors/valuation")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["data"])
}

func TestRouter_Summary(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	rec := get(t, router, "/api/v1/summary?as_of=2024-01-01")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["sector_totals"], 2)
	assert.Len(t, data["sector_growth"], 2)
	assert.Len(t, data["challenged_sectors"], 1)
}

func TestRouter_InvalidAsOf(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	for _, target := range []string{
		"/api/v1/sectors/growth?as_of=01/01/2024",
		"/api/v1/summary?as_of=yesterday",
	} {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decode(t, rec)
		assert.Equal(t, apierrors.TypeValidation, body["type"])
	}
}

func TestRouter_StoreFailure(t *testing.T) {
	store := &fakeStore{err: apierrors.NewStorageError("connection refused", errors.New("dial tcp"))}
	router, _ := newTestRouter(t, store, config.Default().Server)

	rec := get(t, router, "/api/v1/startups")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierrors.TypeStorageFailure, decode(t, rec)["type"])

	rec = get(t, router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec)["status"])
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	rec := get(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(4), body["records"])
}

func TestRouter_Report(t *testing.T) {
	router, paths := newTestRouter(t, sampleStore(), config.Default().Server)

	rec := get(t, router, "/api/v1/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.DocumentFile), 0755))
	require.NoError(t, os.WriteFile(paths.DocumentFile, []byte("%PDF-1.3"), 0644))

	rec = get(t, router, "/api/v1/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestRouter_ReadOnly(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/startups", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_NotFoundAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, sampleStore(), config.Default().Server)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/nope").Code)

	rec := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestRouter_RateLimit(t *testing.T) {
	server := config.Default().Server
	server.RateLimitRPS = 0.001
	server.RateLimitBurst = 1
	router, _ := newTestRouter(t, sampleStore(), server)

	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/startups").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, router, "/api/v1/startups").Code)
	// health checks bypass the API limiter
	assert.Equal(t, http.StatusOK, get(t, router, "/healthz").Code)
}
