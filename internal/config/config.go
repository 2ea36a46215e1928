// Package config loads spinload settings from built-in defaults, an optional
// YAML file, a .env file and SPINLOAD_* environment variables. Later sources
// win.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/spinload/internal/loader"
	"github.com/born-ml/spinload/internal/logging"
	"github.com/born-ml/spinload/internal/parallel"
)

// EnvPrefix is the prefix of all environment variables.
const EnvPrefix = "SPINLOAD"

// Validation errors.
var (
	ErrBatchSize = errors.New("batch_size must be at least 1")
	ErrWorkers   = errors.New("workers must not be negative")
	ErrEpochs    = errors.New("epochs must be at least 1")
)

// ConfigError reports which field failed validation.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds the pipeline and ambient settings.
type Config struct {
	BatchSize  int    `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	Shuffle    bool   `yaml:"shuffle" envconfig:"SHUFFLE"`
	IgnoreLast bool   `yaml:"ignore_last" envconfig:"IGNORE_LAST"`
	Transform  string `yaml:"transform" envconfig:"TRANSFORM"`
	Seed       int64  `yaml:"seed" envconfig:"SEED"` // negative: random
	Epochs     int    `yaml:"epochs" envconfig:"EPOCHS"`

	// Workers is the number of decode goroutines; 0 picks one per physical core.
	Workers int `yaml:"workers" envconfig:"WORKERS"`

	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" envconfig:"LOG_FORMAT"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BatchSize: 256,
		Shuffle:   true,
		Transform: "identity",
		Seed:      -1,
		Epochs:    1,
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load builds a Config. yamlPath and envFile are optional; a missing envFile
// is ignored, a missing yamlPath is an error.
func Load(yamlPath, envFile string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", yamlPath, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fields without a matching variable are left untouched.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns a *ConfigError for the first
// invalid field.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return &ConfigError{Field: "batch_size", Err: ErrBatchSize}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Err: ErrWorkers}
	}
	if c.Epochs < 1 {
		return &ConfigError{Field: "epochs", Err: ErrEpochs}
	}
	if _, err := loader.ParseTransform(c.Transform); err != nil {
		return &ConfigError{Field: "transform", Err: err}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Err: err}
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return &ConfigError{Field: "log_format", Err: fmt.Errorf("must be json or console, got %q", c.LogFormat)}
	}
	return nil
}

// TransformValue returns the parsed transform. Validate must have passed.
func (c Config) TransformValue() loader.Transform {
	t, _ := loader.ParseTransform(c.Transform)
	return t
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	return cfg
}

// Parallel returns the decode worker settings.
func (c Config) Parallel() parallel.Config {
	cfg := parallel.DefaultConfig()
	if c.Workers > 0 {
		cfg.NumWorkers = c.Workers
		cfg.Enabled = c.Workers > 1
	}
	return cfg
}
