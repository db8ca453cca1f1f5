/*
Package config loads service configuration.

PRECEDENCE (highest to lowest):
  1. Environment variables with the ZENHABIT_ prefix
  2. YAML config file
  3. Hardcoded defaults (applyDefaults)

ENVIRONMENT MAPPING:
  The prefix is stripped and the first underscore becomes the section
  separator; remaining underscores stay in the field name:

    ZENHABIT_SERVER_PORT     -> server.port
    ZENHABIT_STORAGE_PATH    -> storage.path
    ZENHABIT_COACH_API_KEY   -> coach.api_key

  GEMINI_API_KEY is honoured when coach.api_key is unset.

EXAMPLE FILE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  storage:
    driver: sqlite
    path: ./zenhabit.db
    debounce: 500ms
  remote:
    enabled: true
    dsn: ./remote.db
  tracker:
    year: 2026
  coach:
    model: gemini-2.5-flash
  log:
    level: info
    format: console
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/warp/zenhabit/logging"
)

// EnvPrefix is stripped from environment variable names.
const EnvPrefix = "ZENHABIT_"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Storage StorageConfig  `koanf:"storage"`
	Remote  RemoteConfig   `koanf:"remote"`
	Tracker TrackerConfig  `koanf:"tracker"`
	Coach   CoachConfig    `koanf:"coach"`
	Log     logging.Config `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig configures the local snapshot medium.
type StorageConfig struct {
	Driver   string        `koanf:"driver"` // "file" or "sqlite"
	Path     string        `koanf:"path"`
	Debounce time.Duration `koanf:"debounce"`
}

// RemoteConfig configures the per-habit remote table.
type RemoteConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"`
	Owner   string `koanf:"owner"` // signed-in owner at startup, optional
}

// TrackerConfig selects the tracked year.
type TrackerConfig struct {
	Year int `koanf:"year"`
}

// CoachConfig configures the AI coach.
type CoachConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// Load reads the YAML file at path (skipped when path is empty) and then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps ZENHABIT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverFile
	}
	if cfg.Storage.Path == "" {
		if cfg.Storage.Driver == DriverSQLite {
			cfg.Storage.Path = "zenhabit.db"
		} else {
			cfg.Storage.Path = "zenhabit.json"
		}
	}
	if cfg.Storage.Debounce == 0 {
		cfg.Storage.Debounce = 500 * time.Millisecond
	}
	if cfg.Remote.Enabled && cfg.Remote.DSN == "" {
		cfg.Remote.DSN = "zenhabit-remote.db"
	}
	if cfg.Tracker.Year == 0 {
		cfg.Tracker.Year = 2026
	}
	if cfg.Coach.APIKey == "" {
		cfg.Coach.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Coach.Model == "" {
		cfg.Coach.Model = "gemini-2.5-flash"
	}
	if cfg.Coach.Timeout == 0 {
		cfg.Coach.Timeout = 45 * time.Second
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be %q or %q", c.Storage.Driver, DriverFile, DriverSQLite))
	}
	if c.Storage.Debounce < 0 {
		errs = append(errs, errors.New("storage.debounce must not be negative"))
	}
	if c.Tracker.Year < 1 || c.Tracker.Year > 9999 {
		errs = append(errs, fmt.Errorf("tracker.year %d out of range", c.Tracker.Year))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
