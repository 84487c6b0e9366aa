package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/andyfu-xl/SEML/errors"
)

// Environment variables the deployment tooling sets. They override the
// config file for the two external endpoints.
const (
	EnvMLLPAddress  = "MLLP_ADDRESS"
	EnvPagerAddress = "PAGER_ADDRESS"
)

// Config represents the complete application configuration
type Config struct {
	MLLP    MLLPConfig    `json:"mllp"`
	Pager   PagerConfig   `json:"pager"`
	Store   StoreConfig   `json:"store"`
	Metrics MetricsConfig `json:"metrics"`
	Log     LogConfig     `json:"log"`
}

// MLLPConfig configures the inbound HL7 connection
type MLLPConfig struct {
	// Address is the host:port of the MLLP message source
	Address string `json:"address"`
	// ReadChunkSize is the socket read size in bytes
	ReadChunkSize int `json:"read_chunk_size"`
	// DialTimeout bounds a single dial attempt (sec)
	DialTimeout int `json:"dial_timeout"`
	// Backoff paces reconnection attempts
	Backoff BackoffConfig `json:"backoff"`
}

// BackoffConfig describes the linear reconnect backoff
type BackoffConfig struct {
	// InitialSeconds is the delay after the first failure
	InitialSeconds int `json:"initial_seconds"`
	// IncrementSeconds is added after every further failure
	IncrementSeconds int `json:"increment_seconds"`
	// CapSeconds bounds the delay
	CapSeconds int `json:"cap_seconds"`
	// MaxAttempts limits retries; 0 retries forever
	MaxAttempts int `json:"max_attempts"`
}

// PagerConfig configures the paging service client
type PagerConfig struct {
	// URL is the base URL of the paging service
	URL string `json:"url"`
	// Timeout bounds each page request (sec)
	Timeout int `json:"timeout"`
}

// StoreConfig configures durable state
type StoreConfig struct {
	// DatabasePath is the bbolt database file
	DatabasePath string `json:"database_path"`
	// HistoryCSV optionally seeds patient history at startup; empty skips
	HistoryCSV string `json:"history_csv"`
}

// MetricsConfig configures the /metrics HTTP server
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// LogConfig configures structured logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level"`
	// Format is text or json
	Format string `json:"format"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		MLLP: MLLPConfig{
			Address:       "localhost:8440",
			ReadChunkSize: 1024,
			DialTimeout:   10,
			Backoff: BackoffConfig{
				InitialSeconds:   5,
				IncrementSeconds: 5,
				CapSeconds:       120,
				MaxAttempts:      0,
			},
		},
		Pager: PagerConfig{
			URL:     "http://localhost:8441",
			Timeout: 10,
		},
		Store: StoreConfig{
			DatabasePath: "state/patients.db",
			HistoryCSV:   "",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the JSON file at path (if
// path is non-empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "read config file")
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides layers the deployment environment variables over the
// file values. PAGER_ADDRESS may be a bare host:port; a scheme is added.
func applyEnvOverrides(cfg *Config) {
	if addr := os.Getenv(EnvMLLPAddress); addr != "" {
		cfg.MLLP.Address = addr
	}
	if addr := os.Getenv(EnvPagerAddress); addr != "" {
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		cfg.Pager.URL = addr
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.MLLP.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "mllp address is required")
	}
	if _, _, err := net.SplitHostPort(c.MLLP.Address); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "parse mllp address")
	}
	if c.MLLP.ReadChunkSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"read chunk size must be positive")
	}
	if c.MLLP.DialTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"dial timeout must be positive")
	}
	if err := c.MLLP.Backoff.validate(); err != nil {
		return err
	}

	if c.Pager.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "pager url is required")
	}
	u, err := url.Parse(c.Pager.URL)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "parse pager url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unsupported pager scheme %q", u.Scheme))
	}
	if c.Pager.Timeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"pager timeout must be positive")
	}

	if c.Store.DatabasePath == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"database path is required")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("metrics port %d out of range", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"metrics path must start with /")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	return nil
}

func (b *BackoffConfig) validate() error {
	if b.InitialSeconds < 0 || b.IncrementSeconds < 0 || b.CapSeconds < 0 || b.MaxAttempts < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"backoff values must not be negative")
	}
	if b.CapSeconds > 0 && b.InitialSeconds > b.CapSeconds {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"backoff initial delay exceeds cap")
	}
	return nil
}
