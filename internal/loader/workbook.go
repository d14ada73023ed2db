package loader

import (
	"context"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

// WorkbookLoader reads records from a local .xlsx export.
type WorkbookLoader struct {
	opts   Options
	logger *slog.Logger
}

// NewWorkbookLoader creates a workbook loader.
func NewWorkbookLoader(opts Options) *WorkbookLoader {
	return &WorkbookLoader{opts: opts, logger: loggerOrDefault(opts.Logger)}
}

// Fetch reads the configured sheet, or the first one, of the workbook at path.
// Cells are read with their formatted values, as the spreadsheet shows them.
func (l *WorkbookLoader) Fetch(ctx context.Context, path string) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError("workbook load cancelled", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to open workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	sheet := l.opts.Range
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewSourceUnavailableError("workbook has no sheets", nil).
				WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("failed to read sheet", err).
			WithContext("path", path).
			WithContext("sheet", sheet)
	}

	records, err := recordsFromRows(stringRows(rows))
	if err != nil {
		return nil, apperrors.NewParsingError("invalid workbook header", err).
			WithContext("path", path)
	}

	l.logger.InfoContext(ctx, "Workbook loaded",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("records", len(records)))
	return records, nil
}
