package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupetl/internal/config"
	apperrors "startupetl/internal/errors"
	"startupetl/internal/infrastructure"
	"startupetl/internal/pipeline"
	"startupetl/internal/shared/testutil"
)

const sampleCSV = "Company,Sector,Entry Valuation,Valuation,Entry,Location,Select Investors\n" +
	"Razorpay,Fintech,$1B,$7.5B,2020-10-11,Bengaluru,Sequoia\n" +
	"Unacademy,Edtech,$1.45B,$1.2B,2020-09-02,Bengaluru,SoftBank\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(dir, "startups.db")
	cfg.Report.OutputDir = filepath.Join(dir, "reports")
	cfg.Logging.Level = "error"
	return cfg
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	a, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewApplication_CreatesReportDir(t *testing.T) {
	a := newTestApplication(t)

	assert.DirExists(t, a.Paths.ReportsDir)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Metrics)
}

func TestNewApplication_BadDriver(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := NewApplication(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestNewPipeline_NoSource(t *testing.T) {
	a := newTestApplication(t)

	_, _, err := a.NewPipeline("")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSourceUnavailable))
}

func TestBatchThenServe(t *testing.T) {
	a := newTestApplication(t)
	ctx := context.Background()

	source := testutil.WriteCSV(t, sampleCSV)

	p, resolved, err := a.NewPipeline(source)
	require.NoError(t, err)
	assert.Equal(t, source, resolved)

	result, err := p.Run(ctx, pipeline.RunOptions{
		Source: resolved,
		AsOf:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, result.ReportErr)
	assert.Equal(t, 2, result.Summary.Counts.Retained)
	assert.FileExists(t, a.Paths.DocumentFile)
	assert.FileExists(t, a.Paths.SectorTotalsCSV)

	handler, err := a.Handler()
	require.NoError(t, err)

	rec := get(t, handler, "/api/v1/sectors/valuation")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = get(t, handler, "/api/v1/report")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = get(t, handler, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_runs")
	assert.Contains(t, rec.Body.String(), "http_requests")
}

func TestStartStop(t *testing.T) {
	a := newTestApplication(t)
	a.Config.Server.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	url := "http://127.0.0.1:" + strconv.Itoa(a.Config.Server.Port) + config.HealthEndpoint
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, a.Stop(ctx))
}
