package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "startup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverSQLite, cfg.Database.Driver)
				assert.Equal(t, DefaultSQLiteDSN, cfg.Database.DSN)
				assert.Equal(t, DefaultTable, cfg.Database.Table)
				assert.Equal(t, DefaultOutputDir, cfg.Report.OutputDir)
				assert.Equal(t, DefaultChartFile, cfg.Report.ChartFile)
				assert.True(t, cfg.Report.ExportCSV)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, DefaultSourceTimeout, cfg.Source.Timeout)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"STARTUP_SOURCE_URL":        "https://docs.google.com/spreadsheets/d/abc/edit",
				"STARTUP_DATABASE_DRIVER":   "postgres",
				"STARTUP_DATABASE_DSN":      "postgres://localhost/startups",
				"STARTUP_LOGGING_LEVEL":     "debug",
				"STARTUP_SERVER_PORT":       "9090",
				"STARTUP_SOURCE_TIMEOUT":    "30s",
				"STARTUP_REPORT_EXPORT_CSV": "false",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc/edit", cfg.Source.URL)
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, "postgres://localhost/startups", cfg.Database.DSN)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
				assert.False(t, cfg.Report.ExportCSV)
			},
		},
		{
			name: "file values apply under env",
			file: `
database:
  driver: mysql
  dsn: root:secret@tcp(localhost:3306)/indian_startups
  table: startups_v2
report:
  output_dir: out
  title: Quarterly
`,
			env: map[string]string{
				"STARTUP_REPORT_TITLE": "From env",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverMySQL, cfg.Database.Driver)
				assert.Equal(t, "startups_v2", cfg.Database.Table)
				assert.Equal(t, "out", cfg.Report.OutputDir)
				assert.Equal(t, "From env", cfg.Report.Title)
				assert.Equal(t, DefaultChartFile, cfg.Report.ChartFile)
			},
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"STARTUP_DATABASE_DRIVER": "oracle"},
			wantErr: true,
		},
		{
			name:    "table name is not an identifier",
			env:     map[string]string{"STARTUP_DATABASE_TABLE": "startups; DROP TABLE x"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			env:     map[string]string{"STARTUP_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"STARTUP_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"STARTUP_SOURCE_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "database: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestGetPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Default().Report
	cfg.OutputDir = filepath.Join(dir, "reports")

	paths, err := GetPaths(cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "reports", DefaultChartFile), paths.ChartFile)
	assert.Equal(t, filepath.Join(dir, "reports", DefaultDocumentFile), paths.DocumentFile)
	assert.Equal(t, filepath.Join(dir, "reports", SectorTotalsCSV), paths.SectorTotalsCSV)
	assert.Equal(t, filepath.Join(dir, "reports", "x.csv"), paths.GetReportPath("x.csv"))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.ReportsDir))
}

func TestGetPaths_NoMarkdown(t *testing.T) {
	cfg := Default().Report
	cfg.OutputDir = t.TempDir()
	cfg.MarkdownFile = ""

	paths, err := GetPaths(cfg)
	require.NoError(t, err)
	assert.Empty(t, paths.MarkdownFile)
}
