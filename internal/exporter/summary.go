package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"startupetl/internal/config"
	"startupetl/internal/errors"
	"startupetl/pkg/contracts/domain"
)

const (
	totalsSheet = "Sector Totals"
	growthSheet = "Sector Growth"
	runSheet    = "Run"
)

var (
	totalsHeaders  = []string{"Sector", "Total Valuation"}
	growthHeaders  = []string{"Sector", "Average Valuation Growth", "Companies"}
	recordsHeaders = []string{"Company", "Sector", "Entry Valuation", "Valuation", "Entry", "Location", "Select Investors"}
)

// Exporter writes the sector summaries and the cleaned table as CSV files
// and an Excel workbook.
type Exporter struct {
	paths      *config.Paths
	csv        *CSVWriter
	exportCSV  bool
	exportXLSX bool
	logger     *slog.Logger
}

// NewExporter creates an exporter. cfg decides which formats Export writes.
func NewExporter(paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:      paths,
		csv:        NewCSVWriter(paths, logger),
		exportCSV:  cfg.ExportCSV,
		exportXLSX: cfg.ExportXLSX,
		logger:     logger,
	}
}

// Export writes every enabled artifact and returns their paths.
func (e *Exporter) Export(ctx context.Context, summary domain.ReportSummary, records []domain.StartupRecord) ([]string, error) {
	var written []string

	if e.exportCSV {
		steps := []func() (string, error){
			func() (string, error) { return e.ExportSectorTotals(summary.SectorTotals) },
			func() (string, error) { return e.ExportSectorGrowth(summary.SectorGrowth) },
			func() (string, error) { return e.ExportRecords(records) },
		}
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return written, errors.NewRenderError("export cancelled", err)
			}
			path, err := step()
			if err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}

	if e.exportXLSX {
		path, err := e.ExportWorkbook(summary)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	e.logger.InfoContext(ctx, "Summaries exported", slog.Int("files", len(written)))
	return written, nil
}

// ExportSectorTotals writes the sector totals CSV.
func (e *Exporter) ExportSectorTotals(totals []domain.SectorValuationSummary) (string, error) {
	rows := make([][]string, len(totals))
	for i, t := range totals {
		rows[i] = []string{t.Sector, formatDecimal(t.TotalValuation)}
	}
	if err := e.csv.WriteSimpleCSV(e.paths.SectorTotalsCSV, totalsHeaders, rows); err != nil {
		return "", errors.NewRenderError("failed to export sector totals", err)
	}
	return e.paths.SectorTotalsCSV, nil
}

// ExportSectorGrowth writes the sector growth CSV.
func (e *Exporter) ExportSectorGrowth(growth []domain.SectorGrowthSummary) (string, error) {
	rows := make([][]string, len(growth))
	for i, g := range growth {
		rows[i] = []string{g.Sector, formatDecimal(g.AverageValuationGrowth), strconv.Itoa(g.Companies)}
	}
	if err := e.csv.WriteSimpleCSV(e.paths.SectorGrowthCSV, growthHeaders, rows); err != nil {
		return "", errors.NewRenderError("failed to export sector growth", err)
	}
	return e.paths.SectorGrowthCSV, nil
}

// ExportRecords streams the cleaned table to CSV using the source column
// names, so the file can be fed back to the CSV loader.
func (e *Exporter) ExportRecords(records []domain.StartupRecord) (string, error) {
	sw, err := e.csv.CreateStreamWriter(e.paths.RecordsCSV, recordsHeaders)
	if err != nil {
		return "", errors.NewRenderError("failed to export records", err)
	}
	for i, r := range records {
		row := []string{
			r.Name,
			r.Sector,
			r.EntryValuation.String(),
			r.Valuation.String(),
			formatDate(r.EntryDate),
			r.Location,
			r.SelectInvestors,
		}
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return "", errors.NewRenderError(fmt.Sprintf("failed to export record %d", i), err)
		}
	}
	if err := sw.Close(); err != nil {
		return "", errors.NewRenderError("failed to export records", err)
	}
	return e.paths.RecordsCSV, nil
}

// ExportWorkbook writes both summaries and the run counts to one workbook.
func (e *Exporter) ExportWorkbook(summary domain.ReportSummary) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", errors.NewRenderError("failed to create workbook style", err)
	}

	if err := f.SetSheetName("Sheet1", totalsSheet); err != nil {
		return "", errors.NewRenderError("failed to name workbook sheet", err)
	}
	totalRows := make([][]any, len(summary.SectorTotals))
	for i, t := range summary.SectorTotals {
		totalRows[i] = []any{t.Sector, t.TotalValuation.InexactFloat64()}
	}
	if err := writeSheet(f, totalsSheet, totalsHeaders, totalRows, bold); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(growthSheet); err != nil {
		return "", errors.NewRenderError("failed to add workbook sheet", err)
	}
	growthRows := make([][]any, len(summary.SectorGrowth))
	for i, g := range summary.SectorGrowth {
		growthRows[i] = []any{g.Sector, g.AverageValuationGrowth.InexactFloat64(), g.Companies}
	}
	if err := writeSheet(f, growthSheet, growthHeaders, growthRows, bold); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return "", errors.NewRenderError("failed to add workbook sheet", err)
	}
	runRows := [][]any{
		{"As of", summary.AsOf.Format(dateLayout)},
		{"Input records", summary.Counts.Input},
		{"Retained records", summary.Counts.Retained},
		{"Rejected records", summary.Counts.Rejected},
		{"Defaulted fields", summary.Counts.DefaultedFields},
		{"Null entry dates", summary.Counts.NullDates},
		{"Unparsable entry dates", summary.Counts.UnparsableDates},
	}
	if err := writeSheet(f, runSheet, []string{"Metric", "Value"}, runRows, bold); err != nil {
		return "", err
	}

	path := e.paths.SummaryWorkbook
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.NewRenderError("failed to create export directory", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", errors.NewRenderError("failed to save workbook", err).WithContext("path", path)
	}

	e.logger.Info("Workbook exported", slog.String("path", path))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.NewRenderError("failed to write workbook header", err).WithContext("sheet", sheet)
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return errors.NewRenderError("failed to address workbook header", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.NewRenderError("failed to style workbook header", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.NewRenderError("failed to address workbook row", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewRenderError("failed to write workbook row", err).WithContext("sheet", sheet)
		}
	}

	return f.SetColWidth(sheet, "A", "A", 32)
}
