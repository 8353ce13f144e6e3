// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"cvrisk/ml"
	"cvrisk/risk"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "CVRISK_CONFIG"

const DefaultPath = "config.yaml"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	ML       MLConfig       `yaml:"ml"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
}

type HTTPConfig struct {
	Port         int           `yaml:"port"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Dev        bool   `yaml:"dev"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type MLConfig struct {
	ModelType     string  `yaml:"model_type"`
	ModelPath     string  `yaml:"model_path"`
	HorizonDays   float64 `yaml:"horizon_days"`
	WatchArtifact bool    `yaml:"watch_artifact"`
}

type StoreConfig struct {
	Size int `yaml:"size"`
}

// DatabaseConfig configures the audit log. An empty Path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:         8080,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 64 << 10,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
		ML: MLConfig{
			ModelType:     ml.CoxModelType,
			ModelPath:     "models/model.json",
			HorizonDays:   risk.FiveYearHorizon,
			WatchArtifact: true,
		},
		Store:    StoreConfig{Size: 256},
		Database: DatabaseConfig{Path: "data/audit.db"},
	}
}

// ResolvePath picks the config file: an explicit flag value wins, then
// $CVRISK_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var err error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("http.timeout must be positive"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("http.max_body_bytes must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level %q unknown", c.Log.Level))
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		err = multierr.Append(err, fmt.Errorf("log.max_size_mb must be positive"))
	}
	switch c.ML.ModelType {
	case ml.CoxModelType, ml.ForestModelType:
	default:
		err = multierr.Append(err, fmt.Errorf("ml.model_type %q unknown", c.ML.ModelType))
	}
	if c.ML.ModelPath == "" {
		err = multierr.Append(err, fmt.Errorf("ml.model_path is required"))
	}
	if c.ML.HorizonDays <= 0 {
		err = multierr.Append(err, fmt.Errorf("ml.horizon_days must be positive"))
	}
	if c.Store.Size <= 0 {
		err = multierr.Append(err, fmt.Errorf("store.size must be positive"))
	}
	return err
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
