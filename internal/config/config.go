package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. TPC_DATASET_PATH
const EnvPrefix = "TPC"

// ErrDatasetMissing is returned when the configured dataset file does not exist
var ErrDatasetMissing = errors.New("dataset file not found")

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Display   DisplayConfig   `yaml:"display" envconfig:"DISPLAY"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// Addr returns the listen address
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
	Level     string `yaml:"level" split_words:"true"`
	Format    string `yaml:"format" split_words:"true"` // json or text
	Output    string `yaml:"output" split_words:"true"` // console, file or both
	FilePath  string `yaml:"file_path" split_words:"true"`
	AddSource bool   `yaml:"add_source" split_words:"true"`
}

// DatasetConfig locates the cleaned columnar dataset
type DatasetConfig struct {
	Path        string   `yaml:"path" split_words:"true"`
	TimeLayouts []string `yaml:"time_layouts" split_words:"true"`
	// WatchForChanges re-stats the file on each read and reloads when it changed
	WatchForChanges bool `yaml:"watch_for_changes" split_words:"true"`
}

// DisplayConfig bounds what the dashboard renders inline
type DisplayConfig struct {
	Title       string `yaml:"title" split_words:"true"`
	MaxRows     int    `yaml:"max_rows" split_words:"true"`
	ChartWidth  int    `yaml:"chart_width" split_words:"true"`
	ChartHeight int    `yaml:"chart_height" split_words:"true"`
}

// TelemetryConfig toggles metrics and tracing
type TelemetryConfig struct {
	EnableMetrics bool    `yaml:"enable_metrics" split_words:"true"`
	EnableTracing bool    `yaml:"enable_tracing" split_words:"true"`
	TraceExporter string  `yaml:"trace_exporter" split_words:"true"`
	SampleRatio   float64 `yaml:"sample_ratio" split_words:"true"`
	Environment   string  `yaml:"environment" split_words:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true"`
	MaxMessageSize  int64         `yaml:"max_message_size" split_words:"true"`
}

// Options controls where Load looks for configuration
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, TPC_CONFIG_FILE and
	// then the default locations are tried.
	ConfigFile string
	// EnvFile is a dotenv file loaded before the environment is read
	EnvFile string
}

// Load builds the configuration in order of increasing precedence:
// defaults, YAML file, .env file, process environment.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads a dotenv file if present. Variables already set in the
// environment are not overridden.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found in the common locations
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("dataset path must be set (%s_DATASET_PATH)", EnvPrefix)
	}

	if c.Display.MaxRows <= 0 {
		return fmt.Errorf("display max rows must be positive")
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1")
	}

	return nil
}

// CheckDataset verifies that the dataset file exists and is a regular file
func (c *Config) CheckDataset() error {
	info, err := os.Stat(c.Dataset.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDatasetMissing, c.Dataset.Path)
		}
		return fmt.Errorf("failed to stat dataset %s: %w", c.Dataset.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrDatasetMissing, c.Dataset.Path)
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Dataset: DatasetConfig{
			Path:            DefaultDatasetPath,
			WatchForChanges: true,
		},
		Display: DisplayConfig{
			Title:       AppName,
			MaxRows:     DefaultMaxRows,
			ChartWidth:  960,
			ChartHeight: 320,
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: true,
			EnableTracing: false,
			TraceExporter: "none",
			SampleRatio:   1.0,
			Environment:   "development",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			MaxMessageSize:  64 * 1024,
		},
	}
}
