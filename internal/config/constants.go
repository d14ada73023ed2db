package config

import (
	"time"

	"startupetl/pkg/contracts"
)

// Application constants
const (
	AppName     = "Startup Valuation Report"
	AppVersion  = contracts.Version
	ServiceName = "startup-etl"

	// EnvPrefix namespaces every environment variable (STARTUP_DATABASE_DSN, ...)
	EnvPrefix = "STARTUP"

	// Store drivers
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	DefaultSQLiteDSN = "data/startups.db"
	DefaultTable     = "startups"

	// Report artifacts
	DefaultOutputDir    = "data/reports"
	DefaultReportTitle  = "Startup Valuation and Growth Analysis Report"
	DefaultChartFile    = "sector_valuation_plot.png"
	DefaultDocumentFile = "startup_analysis_report.pdf"
	DefaultMarkdownFile = "startup_analysis_report.md"
	SectorTotalsCSV     = "sector_valuation.csv"
	SectorGrowthCSV     = "sector_growth.csv"
	SummaryWorkbook     = "sector_summary.xlsx"
	CleanedRecordsCSV   = "startups_clean.csv"

	DefaultSourceTimeout = 2 * time.Minute
	DefaultLogLevel      = "info"

	// API
	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"
)
