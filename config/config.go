// Package config provides configuration management for the PDF search
// pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoQueries           = errors.New("at least one query is required")
	ErrEmptyQuery          = errors.New("query text must not be empty")
	ErrInvalidProvider     = errors.New("provider must be 'google' or 'duckduckgo'")
	ErrInvalidMaxResults   = errors.New("max_results must be at least 1")
	ErrInvalidWorkers      = errors.New("workers must be at least 1")
	ErrInvalidQueryWorkers = errors.New("query_workers must be at least 1")
	ErrInvalidRateCalls    = errors.New("rate_limit.calls must be at least 1")
	ErrInvalidRatePeriod   = errors.New("rate_limit.period_sec must be positive")
	ErrInvalidMaxAttempts  = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidMultiplier   = errors.New("retry.multiplier must be >= 1.0")
	ErrInvalidTimeout      = errors.New("timeout_sec must be at least 1")
	ErrInvalidCacheBackend = errors.New("cache.backend must be one of: file, leveldb, memory")
	ErrMissingCachePath    = errors.New("cache.path is required for persistent backends")
	ErrMissingOutputPath   = errors.New("output.path is required")
	ErrInvalidOutputFormat = errors.New("output.format must be 'text' or 'json'")
)

// Config is the complete pipeline configuration.
type Config struct {
	Queries      []QueryConfig   `yaml:"queries"`
	Provider     string          `yaml:"provider"`
	MaxResults   int             `yaml:"max_results"`
	Workers      int             `yaml:"workers"`
	QueryWorkers int             `yaml:"query_workers"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Retry        RetryConfig     `yaml:"retry"`
	TimeoutSec   int             `yaml:"timeout_sec"`
	CheckContent bool            `yaml:"check_content"`
	UserAgent    string          `yaml:"user_agent"`
	Cache        CacheConfig     `yaml:"cache"`
	Output       OutputConfig    `yaml:"output"`
}

// QueryConfig pairs a report title with the provider search text. An empty
// title falls back to the text.
type QueryConfig struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// RateLimitConfig bounds outbound request frequency.
type RateLimitConfig struct {
	Calls     int     `yaml:"calls"`
	PeriodSec float64 `yaml:"period_sec"`
}

// Period returns the sliding window as a duration.
func (r RateLimitConfig) Period() time.Duration {
	return time.Duration(r.PeriodSec * float64(time.Second))
}

// RetryConfig defines retry behavior for failed requests.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
}

// InitialDelay returns the first backoff as a duration.
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the backoff cap as a duration.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// CacheConfig selects the processed-URL store.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// OutputConfig defines where and how the report file is written.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Queries: []QueryConfig{
			{Title: "🔵 FY 2024 DoD Budget PDFs", Text: "DoD budget FY 2024 spending filetype:pdf"},
			{Title: "🟢 FY 2025 DoD Budget PDFs", Text: "DoD budget FY 2025 spending filetype:pdf"},
		},
		Provider:     "duckduckgo",
		MaxResults:   10,
		Workers:      8,
		QueryWorkers: 4,
		RateLimit:    RateLimitConfig{Calls: 10, PeriodSec: 1.0},
		Retry:        RetryConfig{MaxAttempts: 3, InitialDelayMs: 500, MaxDelayMs: 8000, Multiplier: 2.0},
		TimeoutSec:   15,
		CheckContent: true,
		Cache:        CacheConfig{Backend: "file", Path: "pdf_url_cache.txt"},
		Output:       OutputConfig{Path: "dod_spending_pdfs.txt", Format: "text"},
	}
}

// Load reads a YAML config file layered over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadEnv loads a .env file from the working directory into the process
// environment. A missing file is not an error.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Validate checks the configuration against the sentinel errors above.
func (c *Config) Validate() error {
	if len(c.Queries) == 0 {
		return ErrNoQueries
	}

	for i, q := range c.Queries {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: queries[%d]", ErrEmptyQuery, i)
		}
	}

	switch c.Provider {
	case "google", "duckduckgo":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidProvider, c.Provider)
	}

	if c.MaxResults < 1 {
		return ErrInvalidMaxResults
	}

	if c.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.QueryWorkers < 1 {
		return ErrInvalidQueryWorkers
	}

	if c.RateLimit.Calls < 1 {
		return ErrInvalidRateCalls
	}

	if c.RateLimit.PeriodSec <= 0 {
		return ErrInvalidRatePeriod
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.Multiplier < 1.0 {
		return ErrInvalidMultiplier
	}

	if c.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	switch c.Cache.Backend {
	case "file", "leveldb":
		if c.Cache.Path == "" {
			return fmt.Errorf("%w: backend %q", ErrMissingCachePath, c.Cache.Backend)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCacheBackend, c.Cache.Backend)
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}

	if c.Output.Format != "text" && c.Output.Format != "json" {
		return ErrInvalidOutputFormat
	}

	return nil
}
