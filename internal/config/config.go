package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "bikepulse/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "BIKE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	EnableCORS     bool            `yaml:"enable_cors" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true"`
	Format   string `yaml:"format" split_words:"true"`
	Output   string `yaml:"output" split_words:"true"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// DatasetConfig points at the rental CSV.
type DatasetConfig struct {
	Path string `yaml:"path" split_words:"true"`
	// Strict makes the first malformed row fail the load instead of skipping it.
	Strict bool `yaml:"strict" split_words:"true"`
}

// DashboardConfig controls the rendered page.
type DashboardConfig struct {
	Title       string `yaml:"title" split_words:"true"`
	Footer      string `yaml:"footer" split_words:"true"`
	RawRowLimit int    `yaml:"raw_row_limit" split_words:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true"`
	MaxMessageSize  int64         `yaml:"max_message_size" split_words:"true"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true"`
	WriteWait       time.Duration `yaml:"write_wait" split_words:"true"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" split_words:"true"`
	Environment    string  `yaml:"environment" split_words:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An empty path
// searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apierrors.NewConfigError("failed to load config from file", err).WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apierrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apierrors.NewConfigError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Server.ReadTimeout <= 0 {
		return apierrors.NewConfigError("server read timeout must be positive", nil)
	}

	if c.Server.WriteTimeout <= 0 {
		return apierrors.NewConfigError("server write timeout must be positive", nil)
	}

	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = c.Server.ReadTimeout
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return apierrors.NewConfigError("at least one allowed origin must be specified", nil)
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return apierrors.NewConfigError("rate limit rps and burst must be positive", nil)
	}

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return apierrors.NewConfigError("dataset path is required", nil)
	}

	if c.Dashboard.RawRowLimit < 0 {
		return apierrors.NewConfigError("dashboard raw row limit must not be negative", nil)
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	// Always JSON
	c.Logging.Format = "json"

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return apierrors.NewConfigError(fmt.Sprintf("unsupported trace exporter: %s", c.Telemetry.TraceExporter), nil)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return apierrors.NewConfigError(fmt.Sprintf("unsupported metric exporter: %s", c.Telemetry.MetricExporter), nil)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return apierrors.NewConfigError("telemetry sample ratio must be within [0, 1]", nil)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  15 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Dataset: DatasetConfig{
			Path: "data/all_data.csv",
		},
		Dashboard: DashboardConfig{
			Title:       "Bike Rental Dashboard",
			RawRowLimit: 500,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  4096,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			WriteWait:       10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "bike-rental-dashboard",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
