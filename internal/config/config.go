package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LICGEN"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"127.0.0.1"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL" default:"info"`
	// Output is one of stderr, console (stdout), file or both (stdout and file).
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stderr"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/license.log"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
	// MetricsFile, when set, receives a Prometheus text-format snapshot of
	// the metrics of a CLI run.
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// LicenseConfig contains license format settings
type LicenseConfig struct {
	// CurrentVersion is written into freshly generated licenses.
	CurrentVersion string `yaml:"current_version" envconfig:"CURRENT_VERSION" default:"9.6"`
	// Breakpoint is the first version whose integrity passphrase embeds
	// the version.
	Breakpoint string `yaml:"breakpoint" envconfig:"BREAKPOINT" default:"9.6"`
}

// Load loads configuration from environment variables and a config file.
// An empty path searches the usual locations; a missing file is not an error
// unless the path was given explicitly.
func Load(path string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := path
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. envconfig fills unset
// variables with their defaults, so an env value still equal to its default
// yields to a non-zero file value. Switches that default to on
// (rate limiting, metrics) are turned off through the environment.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()

	pick(&envConfig.Server.Host, fileConfig.Server.Host, def.Server.Host)
	pick(&envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	pick(&envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	pick(&envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	pick(&envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	pick(&envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	pick(&envConfig.Server.MaxBodyBytes, fileConfig.Server.MaxBodyBytes, def.Server.MaxBodyBytes)

	pick(&envConfig.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS, def.Security.RateLimit.RPS)
	pick(&envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, def.Security.RateLimit.Burst)

	pick(&envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	pick(&envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	pick(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)

	pick(&envConfig.Telemetry.EnableTracing, fileConfig.Telemetry.EnableTracing, def.Telemetry.EnableTracing)
	pick(&envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, def.Telemetry.TraceExporter)
	pick(&envConfig.Telemetry.SampleRatio, fileConfig.Telemetry.SampleRatio, def.Telemetry.SampleRatio)
	pick(&envConfig.Telemetry.MetricsFile, fileConfig.Telemetry.MetricsFile, def.Telemetry.MetricsFile)

	pick(&envConfig.License.CurrentVersion, fileConfig.License.CurrentVersion, def.License.CurrentVersion)
	pick(&envConfig.License.Breakpoint, fileConfig.License.Breakpoint, def.License.Breakpoint)

	return envConfig
}

// pick replaces *env with file when env still holds its default and the
// file sets a value.
func pick[T comparable](env *T, file, def T) {
	var zero T
	if *env == def && file != zero {
		*env = file
	}
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

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server body limit must be positive")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit needs positive rps and burst")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stderr", "console", "file", "both":
	default:
		return fmt.Errorf("unsupported logging output: %s", c.Logging.Output)
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/license.log"
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be within [0, 1]")
	}

	if c.License.CurrentVersion == "" || c.License.Breakpoint == "" {
		return fmt.Errorf("license versions must not be empty")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
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
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20, // 1MB
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stderr",
			FilePath: "logs/license.log",
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: true,
			EnableTracing: false,
			TraceExporter: "stdout",
			SampleRatio:   1,
		},
		License: LicenseConfig{
			CurrentVersion: "9.6",
			Breakpoint:     "9.6",
		},
	}
}
