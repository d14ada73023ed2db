package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved report artifact locations of one run.
// It is the single source of truth for output file paths.
type Paths struct {
	ReportsDir string

	ChartFile       string
	DocumentFile    string
	MarkdownFile    string
	SectorTotalsCSV string
	SectorGrowthCSV string
	SummaryWorkbook string
	RecordsCSV      string
}

// GetPaths resolves artifact paths from the report configuration.
// Relative output directories are resolved against the working directory.
func GetPaths(cfg ReportConfig) (*Paths, error) {
	dir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory %q: %w", cfg.OutputDir, err)
	}

	p := &Paths{
		ReportsDir:      dir,
		ChartFile:       filepath.Join(dir, cfg.ChartFile),
		DocumentFile:    filepath.Join(dir, cfg.DocumentFile),
		SectorTotalsCSV: filepath.Join(dir, SectorTotalsCSV),
		SectorGrowthCSV: filepath.Join(dir, SectorGrowthCSV),
		SummaryWorkbook: filepath.Join(dir, SummaryWorkbook),
		RecordsCSV:      filepath.Join(dir, CleanedRecordsCSV),
	}
	if cfg.MarkdownFile != "" {
		p.MarkdownFile = filepath.Join(dir, cfg.MarkdownFile)
	}
	return p, nil
}

// EnsureDirectories creates the reports directory if it doesn't exist
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ReportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", p.ReportsDir, err)
	}
	slog.Debug("Ensured directory exists", slog.String("directory", p.ReportsDir))
	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved artifact paths
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.String("reports", p.ReportsDir),
		slog.Group("report_files",
			slog.String("chart", p.ChartFile),
			slog.String("document", p.DocumentFile),
			slog.String("markdown", p.MarkdownFile),
			slog.String("sector_totals_csv", p.SectorTotalsCSV),
			slog.String("sector_growth_csv", p.SectorGrowthCSV),
			slog.String("summary_workbook", p.SummaryWorkbook),
			slog.String("records_csv", p.RecordsCSV),
		))
}
