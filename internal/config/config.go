// ABOUTME: Configuration loading and parsing for coven-gradebook
// ABOUTME: Supports YAML files with .env loading, environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-gradebook configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Charts   ChartsConfig   `yaml:"charts"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	Path   string `yaml:"path"`   // sqlite file
	URL    string `yaml:"url"`    // postgres connection URL
}

// MatrixConfig holds the Matrix bot account and room filtering
type MatrixConfig struct {
	Homeserver      string   `yaml:"homeserver"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	DeviceName      string   `yaml:"device_name"`
	RecoveryKey     string   `yaml:"recovery_key"`
	AllowedRooms    []string `yaml:"allowed_rooms"`
	IgnoredUsers    []string `yaml:"ignored_users"`
	TypingIndicator bool     `yaml:"typing_indicator"`

	// DedupeTTL is how long delivered event IDs are remembered
	DedupeTTL    time.Duration `yaml:"-"`
	DedupeTTLRaw string        `yaml:"dedupe_ttl"`
}

// AnalysisConfig holds the commentary service configuration
type AnalysisConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// ChartsConfig holds chart rendering configuration
type ChartsConfig struct {
	Workers int    `yaml:"workers"`
	TempDir string `yaml:"temp_dir"`
}

// SessionsConfig holds conversation session store configuration
type SessionsConfig struct {
	Shards int `yaml:"shards"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied to fields left empty.
const (
	DefaultDriver    = "sqlite"
	DefaultModel     = "gpt-4o-mini"
	DefaultTimeout   = 30 * time.Second
	DefaultDedupeTTL = 10 * time.Minute
	DefaultShards    = 32
)

// Load reads a configuration file from the given path and returns a parsed Config.
// A .env file next to the config is loaded first if present; it never overrides
// variables already set in the environment.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML config content, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDriver
	}
	if cfg.Matrix.DeviceName == "" {
		cfg.Matrix.DeviceName = "coven-gradebook"
	}
	if cfg.Matrix.DedupeTTL == 0 {
		cfg.Matrix.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = DefaultModel
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = DefaultTimeout
	}
	if cfg.Charts.Workers == 0 {
		cfg.Charts.Workers = runtime.NumCPU()
	}
	if cfg.Sessions.Shards == 0 {
		cfg.Sessions.Shards = DefaultShards
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("matrix.homeserver must be an http(s) URL, got %q", c.Matrix.Homeserver)
	}
	if c.Matrix.Username == "" {
		return fmt.Errorf("matrix.username is required")
	}
	if c.Matrix.Password == "" {
		return fmt.Errorf("matrix.password is required")
	}

	if c.Analysis.Enabled && c.Analysis.APIKey == "" {
		return fmt.Errorf("analysis.api_key is required when analysis is enabled")
	}

	if c.Charts.Workers < 1 {
		return fmt.Errorf("charts.workers must be at least 1")
	}
	if c.Sessions.Shards < 1 {
		return fmt.Errorf("sessions.shards must be at least 1")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Matrix.DedupeTTLRaw != "" {
		cfg.Matrix.DedupeTTL, err = time.ParseDuration(cfg.Matrix.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Matrix.DedupeTTLRaw, err)
		}
	}

	if cfg.Analysis.TimeoutRaw != "" {
		cfg.Analysis.Timeout, err = time.ParseDuration(cfg.Analysis.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Analysis.TimeoutRaw, err)
		}
	}

	return nil
}
