package app

import (
	"startupetl/internal/exporter"
	"startupetl/internal/loader"
	"startupetl/internal/pipeline"
	"startupetl/internal/report"
)

// NewPipeline wires a pipeline for source. An empty source falls back to the
// configured source URL. The resolved source is returned for RunOptions.
func (a *Application) NewPipeline(source string) (*pipeline.Pipeline, string, error) {
	if source == "" {
		source = a.Config.Source.URL
	}

	l, resolved, err := loader.ForSource(source, loader.OptionsFromConfig(a.Config.Source, a.Logger))
	if err != nil {
		return nil, "", err
	}

	p, err := pipeline.New(pipeline.Dependencies{
		Loader:       l,
		Store:        a.Store,
		Charts:       report.NewChartRenderer(a.Paths.ChartFile, a.Logger),
		Documents:    report.NewDocumentRenderer(a.Paths.DocumentFile, a.Logger),
		Exporter:     exporter.NewExporter(a.Paths, a.Config.Report, a.Logger),
		Metrics:      a.Metrics,
		Tracer:       a.Telemetry.Tracer,
		Logger:       a.Logger,
		Title:        a.Config.Report.Title,
		MarkdownPath: a.Paths.MarkdownFile,
	})
	if err != nil {
		return nil, "", err
	}
	return p, resolved, nil
}
