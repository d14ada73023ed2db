package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
}

// SourceConfig describes where raw startup records come from.
// URL may be a Google Sheets URL, a bare spreadsheet ID, or a local
// .xlsx / .csv path.
type SourceConfig struct {
	URL             string        `yaml:"url" envconfig:"URL"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	APIKey          string        `yaml:"api_key" envconfig:"API_KEY"`
	Range           string        `yaml:"range" envconfig:"RANGE"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
}

// DatabaseConfig contains relational store configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"DRIVER" validate:"oneof=sqlite postgres mysql"`
	DSN             string        `yaml:"dsn" envconfig:"DSN" validate:"required"`
	Table           string        `yaml:"table" envconfig:"TABLE" validate:"required,identifier"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME"`
}

// ReportConfig contains report artifact configuration
type ReportConfig struct {
	OutputDir    string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Title        string `yaml:"title" envconfig:"TITLE" validate:"required"`
	ChartFile    string `yaml:"chart_file" envconfig:"CHART_FILE" validate:"required"`
	DocumentFile string `yaml:"document_file" envconfig:"DOCUMENT_FILE" validate:"required"`
	MarkdownFile string `yaml:"markdown_file" envconfig:"MARKDOWN_FILE"`
	ExportCSV    bool   `yaml:"export_csv" envconfig:"EXPORT_CSV"`
	ExportXLSX   bool   `yaml:"export_xlsx" envconfig:"EXPORT_XLSX"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled  bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	TraceFile       string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// ServerConfig contains HTTP server configuration for the read-only web surface
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load builds the configuration from defaults, an optional YAML file and
// STARTUP_* environment variables, in increasing order of precedence.
// An empty path falls back to the well-known config file locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("identifier", isIdentifier); err != nil {
		return err
	}
	return v.Struct(c)
}

func isIdentifier(fl validator.FieldLevel) bool {
	return identifierPattern.MatchString(fl.Field().String())
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"startup.yaml",
		"configs/startup.yaml",
		"../configs/startup.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Timeout: DefaultSourceTimeout,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             DefaultSQLiteDSN,
			Table:           DefaultTable,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
		},
		Report: ReportConfig{
			OutputDir:    DefaultOutputDir,
			Title:        DefaultReportTitle,
			ChartFile:    DefaultChartFile,
			DocumentFile: DefaultDocumentFile,
			MarkdownFile: DefaultMarkdownFile,
			ExportCSV:    true,
			ExportXLSX:   false,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: "logs/startup-etl.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: ServiceName,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
	}
}
