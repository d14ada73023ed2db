package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"

	apperrors "startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLoader reads records from a local CSV export of the sheet.
type CSVLoader struct {
	opts   Options
	logger *slog.Logger
}

// NewCSVLoader creates a CSV loader.
func NewCSVLoader(opts Options) *CSVLoader {
	return &CSVLoader{opts: opts, logger: loggerOrDefault(opts.Logger)}
}

// Fetch parses the CSV file at path. A leading UTF-8 BOM is ignored and rows
// may have varying field counts.
func (l *CSVLoader) Fetch(ctx context.Context, path string) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError("csv load cancelled", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to read csv export", err).
			WithContext("path", path)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to parse csv export", err).
			WithContext("path", path)
	}

	records, err := recordsFromRows(stringRows(rows))
	if err != nil {
		return nil, apperrors.NewParsingError("invalid csv header", err).
			WithContext("path", path)
	}

	l.logger.InfoContext(ctx, "CSV export loaded",
		slog.String("path", path),
		slog.Int("records", len(records)))
	return records, nil
}
