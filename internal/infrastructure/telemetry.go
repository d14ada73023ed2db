package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"startupetl/internal/config"
)

const instrumentationName = "startupetl"

// Telemetry bundles the tracer, the meter and the Prometheus registry the
// meter exports into.
type Telemetry struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Registry *prometheus.Registry

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceOut       io.Closer
	logger         *slog.Logger
}

// InitTelemetry sets up tracing and metrics. Tracing is a no-op unless
// enabled; spans are written by the stdout exporter to stdout or TraceFile.
// Metrics always go to a private Prometheus registry.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.ServiceName
	}

	res, err := createResource(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{logger: logger}

	if cfg.TracingEnabled {
		if err := t.initializeTracing(res, cfg.TraceFile); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.Tracer = noop.NewTracerProvider().Tracer(instrumentationName)
	}

	if err := t.initializeMetrics(res); err != nil {
		t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.String("service", serviceName),
		slog.Bool("tracing", cfg.TracingEnabled))

	return t, nil
}

func createResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.AppVersion),
		),
	)
}

func (t *Telemetry) initializeTracing(res *resource.Resource, traceFile string) error {
	var w io.Writer = os.Stdout
	if traceFile != "" {
		if err := os.MkdirAll(filepath.Dir(traceFile), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(traceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		t.traceOut = f
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(t.tracerProvider)
	t.Tracer = t.tracerProvider.Tracer(instrumentationName)
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.meterProvider.Meter(instrumentationName)
	return nil
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// WriteMetricsTextfile writes the current metric values to path in the
// node_exporter textfile format.
func (t *Telemetry) WriteMetricsTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, t.Registry)
}

// Shutdown flushes pending spans and releases exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PipelineMetrics holds the counters and histograms recorded by a run.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	runs            metric.Int64Counter
	recordsLoaded   metric.Int64Counter
	recordsRetained metric.Int64Counter
	recordsRejected metric.Int64Counter
	fieldsDefaulted metric.Int64Counter
	stageDuration   metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("pipeline_runs",
		metric.WithDescription("Pipeline runs by final status")); err != nil {
		return nil, err
	}
	if m.recordsLoaded, err = meter.Int64Counter("pipeline_records_loaded",
		metric.WithDescription("Raw records read from the source")); err != nil {
		return nil, err
	}
	if m.recordsRetained, err = meter.Int64Counter("pipeline_records_retained",
		metric.WithDescription("Records that survived cleaning")); err != nil {
		return nil, err
	}
	if m.recordsRejected, err = meter.Int64Counter("pipeline_records_rejected",
		metric.WithDescription("Records dropped for a missing name or sector")); err != nil {
		return nil, err
	}
	if m.fieldsDefaulted, err = meter.Int64Counter("pipeline_fields_defaulted",
		metric.WithDescription("Valuation fields replaced with zero")); err != nil {
		return nil, err
	}
	if m.stageDuration, err = meter.Float64Histogram("pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of each pipeline stage"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordBatch records the record counts of one transform.
func (m *PipelineMetrics) RecordBatch(ctx context.Context, loaded, retained, rejected, defaulted int) {
	if m == nil {
		return
	}
	m.recordsLoaded.Add(ctx, int64(loaded))
	m.recordsRetained.Add(ctx, int64(retained))
	m.recordsRejected.Add(ctx, int64(rejected))
	m.fieldsDefaulted.Add(ctx, int64(defaulted))
}

// RecordStage records how long a stage took and whether it failed.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordRun counts a finished run.
func (m *PipelineMetrics) RecordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
