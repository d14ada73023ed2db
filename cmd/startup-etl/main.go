package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"startupetl/internal/app"
	"startupetl/internal/config"
	"startupetl/internal/pipeline"
	"startupetl/internal/report"
	"startupetl/pkg/contracts"
)

// Exit codes
const (
	exitOK          = 0
	exitInit        = 1
	exitStage       = 2
	exitReportError = 3
)

type options struct {
	source     string
	asOf       string
	configPath string
	skipReport bool
	print      bool
	version    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.source, "source", "", "Google Sheets URL or ID, .xlsx/.csv file, or export directory (defaults to STARTUP_SOURCE_URL)")
	flag.StringVar(&opts.asOf, "as-of", "", "growth reference date YYYY-MM-DD (defaults to today)")
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.BoolVar(&opts.skipReport, "skip-report", false, "load and store only, do not render the report")
	flag.BoolVar(&opts.print, "print", false, "print the Markdown summary to stdout")
	flag.BoolVar(&opts.version, "version", false, "print the version and exit")
	flag.Parse()

	if opts.version {
		fmt.Println(contracts.GetFullVersionString(config.ServiceName))
		return
	}

	os.Exit(run(context.Background(), opts, os.Stdout))
}

func run(ctx context.Context, opts options, stdout io.Writer) int {
	asOf, err := parseAsOf(opts.asOf)
	if err != nil {
		slog.Error("Invalid -as-of", slog.String("error", err.Error()))
		return exitInit
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		return exitInit
	}

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		return exitInit
	}
	defer func() {
		if err := application.Close(ctx); err != nil {
			application.Logger.Warn("Shutdown incomplete", slog.String("error", err.Error()))
		}
	}()
	logger := application.Logger

	p, source, err := application.NewPipeline(opts.source)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resolve source", slog.String("error", err.Error()))
		fmt.Fprintf(stdout, "load stage failed: %v\n", err)
		return exitStage
	}

	result, err := p.Run(ctx, pipeline.RunOptions{
		Source:     source,
		AsOf:       asOf,
		SkipReport: opts.skipReport,
	})

	if mErr := application.Telemetry.WriteMetricsTextfile(cfg.Telemetry.MetricsTextfile); mErr != nil {
		logger.WarnContext(ctx, "Failed to write metrics textfile", slog.String("error", mErr.Error()))
	}

	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(stdout, "%s stage failed: %v\n", stageErr.Stage, stageErr.Err)
		} else {
			fmt.Fprintf(stdout, "run failed: %v\n", err)
		}
		return exitStage
	}

	counts := result.Summary.Counts
	fmt.Fprintf(stdout, "%d records loaded, %d retained\n", counts.Input, counts.Retained)
	fmt.Fprintf(stdout, "%d records rejected, %d fields defaulted\n", counts.Rejected, counts.DefaultedFields)
	if counts.UnparsableDates > 0 {
		fmt.Fprintf(stdout, "%d entry dates unparsable, set to null\n", counts.UnparsableDates)
	}
	for _, path := range []string{result.DocumentPath, result.ChartPath, result.MarkdownPath} {
		if path != "" {
			fmt.Fprintf(stdout, "wrote %s\n", path)
		}
	}

	if opts.print {
		rendered, err := report.RenderTerminal(report.Markdown(result.Narrative, result.Summary), 100)
		if err != nil {
			logger.WarnContext(ctx, "Failed to style summary", slog.String("error", err.Error()))
			rendered = report.Markdown(result.Narrative, result.Summary)
		}
		fmt.Fprint(stdout, rendered)
	}

	if result.ReportErr != nil {
		fmt.Fprintf(stdout, "%v\n", result.ReportErr)
		return exitReportError
	}
	return exitOK
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
