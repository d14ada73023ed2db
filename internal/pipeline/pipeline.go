package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"startupetl/internal/dataprocessing"
	"startupetl/internal/infrastructure"
	"startupetl/internal/report"
	"startupetl/pkg/contracts/domain"
)

// Loader fetches raw records from a source.
type Loader interface {
	Fetch(ctx context.Context, source string) ([]domain.RawRecord, error)
}

// Store persists the cleaned table and answers the report queries.
type Store interface {
	ReplaceAll(ctx context.Context, records []domain.StartupRecord) error
	SectorTotals(ctx context.Context) ([]domain.SectorValuationSummary, error)
	Records(ctx context.Context) ([]domain.StartupRecord, error)
}

// ChartRenderer draws the sector totals chart.
type ChartRenderer interface {
	RenderChart(ctx context.Context, totals []domain.SectorValuationSummary) (string, error)
}

// DocumentRenderer lays out the report document.
type DocumentRenderer interface {
	RenderDocument(ctx context.Context, n report.Narrative, totals []domain.SectorValuationSummary,
		growth []domain.SectorGrowthSummary, challenged []domain.SectorGrowthSummary, images []string) (string, error)
}

// Exporter writes summary files next to the report.
type Exporter interface {
	Export(ctx context.Context, summary domain.ReportSummary, records []domain.StartupRecord) ([]string, error)
}

// Dependencies wires a Pipeline. Loader and Store are required; the
// renderers and exporter are optional and skipped when nil.
type Dependencies struct {
	Loader      Loader
	Store       Store
	Transformer *dataprocessing.Transformer
	Summarizer  *dataprocessing.Summarizer
	Charts      ChartRenderer
	Documents   DocumentRenderer
	Exporter    Exporter
	Metrics     *infrastructure.PipelineMetrics
	Tracer      trace.Tracer
	Logger      *slog.Logger

	// Title heads the report; MarkdownPath, when set, receives a Markdown
	// copy of it.
	Title        string
	MarkdownPath string
}

// RunOptions parameterise one run.
type RunOptions struct {
	Source string
	// AsOf is the growth reference time. Zero means now.
	AsOf       time.Time
	SkipReport bool
}

// RunResult describes a finished run. ReportErr is set when only the render
// stage failed; the stored table and the summaries are still valid then.
type RunResult struct {
	RunID         string
	Source        string
	Summary       domain.ReportSummary
	Narrative     report.Narrative
	Coercions     []dataprocessing.Coercion
	Rejections    []dataprocessing.Rejection
	ChartPath     string
	DocumentPath  string
	MarkdownPath  string
	ExportedFiles []string
	ReportErr     error
	Duration      time.Duration
}

// Pipeline runs load, transform, persist, query, aggregate and render in
// sequence. A run is single-threaded; concurrent runs against one store
// are not supported.
type Pipeline struct {
	deps   Dependencies
	logger *slog.Logger
	tracer trace.Tracer
}

// New validates deps and fills defaults.
func New(deps Dependencies) (*Pipeline, error) {
	if deps.Loader == nil {
		return nil, fmt.Errorf("pipeline: loader is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline: store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "pipeline")

	if deps.Transformer == nil {
		deps.Transformer = dataprocessing.NewTransformer(logger)
	}
	if deps.Summarizer == nil {
		deps.Summarizer = dataprocessing.NewSummarizer(logger)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("startupetl")
	}

	return &Pipeline{deps: deps, logger: logger, tracer: tracer}, nil
}

// Run executes one batch. On a stage failure it returns a *StageError and
// the partial result; failures before persist leave the store untouched.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := time.Now()
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = start.UTC()
	}

	result := &RunResult{RunID: infrastructure.GenerateTraceID(), Source: opts.Source}
	ctx = infrastructure.WithTraceID(ctx, result.RunID)

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", result.RunID),
		attribute.String("run.source", opts.Source),
		attribute.String("run.as_of", asOf.Format(time.DateOnly)),
	))
	defer span.End()

	p.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("source", opts.Source),
		slog.Time("as_of", asOf))

	err := p.run(ctx, opts, asOf, result)
	result.Duration = time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "Pipeline run failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", result.Duration))
	case result.ReportErr != nil:
		status = "report_failed"
		span.SetStatus(codes.Error, result.ReportErr.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}
	p.deps.Metrics.RecordRun(ctx, status)

	if err == nil {
		p.logger.InfoContext(ctx, "Pipeline run finished",
			slog.String("status", status),
			slog.Int("retained", result.Summary.Counts.Retained),
			slog.Int("rejected", result.Summary.Counts.Rejected),
			slog.Int("defaulted_fields", result.Summary.Counts.DefaultedFields),
			slog.Duration("duration", result.Duration))
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, asOf time.Time, result *RunResult) error {
	var raw []domain.RawRecord
	if err := p.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error
		raw, err = p.deps.Loader.Fetch(ctx, opts.Source)
		return err
	}); err != nil {
		return err
	}

	var transformed *dataprocessing.TransformResult
	if err := p.stage(ctx, StageTransform, func(ctx context.Context) error {
		var err error
		transformed, err = p.deps.Transformer.Transform(ctx, raw)
		return err
	}); err != nil {
		return err
	}
	result.Coercions = transformed.Coercions
	result.Rejections = transformed.Rejections
	stats := transformed.Stats
	p.deps.Metrics.RecordBatch(ctx, stats.Input, stats.Retained, stats.Rejected, stats.DefaultedFields)

	if err := p.stage(ctx, StagePersist, func(ctx context.Context) error {
		return p.deps.Store.ReplaceAll(ctx, transformed.Records)
	}); err != nil {
		return err
	}

	var (
		totals  []domain.SectorValuationSummary
		records []domain.StartupRecord
	)
	if err := p.stage(ctx, StageQuery, func(ctx context.Context) error {
		var err error
		if totals, err = p.deps.Store.SectorTotals(ctx); err != nil {
			return err
		}
		records, err = p.deps.Store.Records(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, StageAggregate, func(ctx context.Context) error {
		result.Summary = p.deps.Summarizer.Summarize(ctx, records, totals, asOf, stats.Counts())
		result.Narrative = report.DefaultNarrative(p.deps.Title, result.Summary)
		return nil
	}); err != nil {
		return err
	}

	if opts.SkipReport {
		p.logger.InfoContext(ctx, "Report rendering skipped")
		return nil
	}

	if err := p.stage(ctx, StageRender, func(ctx context.Context) error {
		return p.render(ctx, result, records)
	}); err != nil {
		// rendering never invalidates the stored table
		result.ReportErr = err
	}
	return nil
}

// render produces every artifact it can and joins the failures.
func (p *Pipeline) render(ctx context.Context, result *RunResult, records []domain.StartupRecord) error {
	var errs []error
	summary := result.Summary

	if p.deps.Exporter != nil {
		files, err := p.deps.Exporter.Export(ctx, summary, records)
		result.ExportedFiles = files
		if err != nil {
			errs = append(errs, err)
		}
	}

	if p.deps.Charts != nil {
		chart, err := p.deps.Charts.RenderChart(ctx, summary.SectorTotals)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.ChartPath = chart
		}
	}

	if p.deps.Documents != nil && (p.deps.Charts == nil || result.ChartPath != "") {
		var images []string
		if result.ChartPath != "" {
			images = append(images, result.ChartPath)
		}
		doc, err := p.deps.Documents.RenderDocument(ctx, result.Narrative, summary.SectorTotals,
			summary.SectorGrowth, summary.ChallengedSectors, images)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.DocumentPath = doc
		}
	}

	if p.deps.MarkdownPath != "" {
		md, err := report.WriteMarkdown(p.deps.MarkdownPath, result.Narrative, summary)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.MarkdownPath = md
		}
	}

	return errors.Join(errs...)
}

// stage runs fn in its own span, records its duration and wraps failures.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.deps.Metrics.RecordStage(ctx, string(stage), elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", string(stage)),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()))
		return &StageError{Stage: stage, Err: err}
	}

	p.logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", string(stage)),
		slog.Duration("duration", elapsed))
	return nil
}
