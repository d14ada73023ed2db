package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/option"

	"startupetl/internal/config"
	apperrors "startupetl/internal/errors"
	"startupetl/internal/files"
	"startupetl/pkg/contracts/domain"
)

// Loader fetches raw startup records from a tabular source.
type Loader interface {
	Fetch(ctx context.Context, source string) ([]domain.RawRecord, error)
}

// Options carries source settings shared by every loader.
type Options struct {
	CredentialsFile string
	APIKey          string
	// Range is a Sheets A1 range or, for workbooks, a sheet name.
	// Empty means the first sheet.
	Range   string
	Timeout time.Duration
	Logger  *slog.Logger

	// ClientOptions are appended to the Sheets client options.
	ClientOptions []option.ClientOption
}

// OptionsFromConfig maps the source configuration onto loader options.
func OptionsFromConfig(cfg config.SourceConfig, logger *slog.Logger) Options {
	return Options{
		CredentialsFile: cfg.CredentialsFile,
		APIKey:          cfg.APIKey,
		Range:           cfg.Range,
		Timeout:         cfg.Timeout,
		Logger:          logger,
	}
}

// ForSource picks a loader for source. Local .xlsx/.xlsm files go to the
// workbook loader, .csv files to the CSV loader, directories resolve to their
// newest export, and anything else is treated as a Google Sheets URL or ID.
// The returned string is the resolved source to pass to Fetch.
func ForSource(source string, opts Options) (Loader, string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, "", apperrors.NewSourceUnavailableError("no source configured", nil)
	}

	if info, err := os.Stat(source); err == nil && info.IsDir() {
		latest, err := files.NewDiscovery("").LatestExport(source)
		if err != nil {
			return nil, "", apperrors.NewSourceUnavailableError("no export in source directory", err).
				WithContext("source", source)
		}
		source = latest.Path
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		return NewWorkbookLoader(opts), source, nil
	case ".csv":
		return NewCSVLoader(opts), source, nil
	}

	if _, err := SpreadsheetID(source); err != nil {
		return nil, "", err
	}
	return NewSheetsLoader(opts), source, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
