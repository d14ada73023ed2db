package loader

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

var (
	sheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	sheetIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL or
// accepts a bare ID.
func SpreadsheetID(source string) (string, error) {
	if m := sheetURLPattern.FindStringSubmatch(source); m != nil {
		return m[1], nil
	}
	if sheetIDPattern.MatchString(source) {
		return source, nil
	}
	return "", apperrors.NewSourceUnavailableError("source is neither a spreadsheet URL nor a local export", nil).
		WithContext("source", source)
}

// SheetsLoader reads records from a Google Sheets spreadsheet.
type SheetsLoader struct {
	opts   Options
	logger *slog.Logger
}

// NewSheetsLoader creates a Sheets loader.
func NewSheetsLoader(opts Options) *SheetsLoader {
	return &SheetsLoader{opts: opts, logger: loggerOrDefault(opts.Logger)}
}

// Fetch reads the configured range (the first worksheet by default) and maps
// every row after the header to a record.
func (l *SheetsLoader) Fetch(ctx context.Context, source string) ([]domain.RawRecord, error) {
	id, err := SpreadsheetID(source)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	srv, err := sheets.NewService(ctx, l.clientOptions()...)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to create sheets client", err)
	}

	readRange := l.opts.Range
	if readRange == "" {
		readRange, err = firstSheetTitle(ctx, srv, id)
		if err != nil {
			return nil, err
		}
	}

	l.logger.InfoContext(ctx, "Fetching spreadsheet",
		slog.String("spreadsheet_id", id),
		slog.String("range", readRange))

	resp, err := srv.Spreadsheets.Values.Get(id, readRange).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to read spreadsheet values", err).
			WithContext("spreadsheet_id", id).
			WithContext("range", readRange)
	}

	records, err := recordsFromRows(resp.Values)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid spreadsheet header", err).
			WithContext("spreadsheet_id", id)
	}

	l.logger.InfoContext(ctx, "Spreadsheet fetched",
		slog.String("spreadsheet_id", id),
		slog.Int("records", len(records)))
	return records, nil
}

func (l *SheetsLoader) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case l.opts.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(l.opts.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	case l.opts.APIKey != "":
		opts = append(opts, option.WithAPIKey(l.opts.APIKey))
	}
	return append(opts, l.opts.ClientOptions...)
}

func firstSheetTitle(ctx context.Context, srv *sheets.Service, id string) (string, error) {
	ss, err := srv.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", apperrors.NewSourceUnavailableError("failed to open spreadsheet", err).
			WithContext("spreadsheet_id", id)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", apperrors.NewSourceUnavailableError(fmt.Sprintf("spreadsheet %s has no worksheets", id), nil)
	}
	return ss.Sheets[0].Properties.Title, nil
}
