package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

const validConfigYAML = `
queries:
  - title: "FY 2024"
    text: "DoD budget FY 2024 spending filetype:pdf"
  - text: "DoD budget FY 2025 spending filetype:pdf"
provider: duckduckgo
max_results: 5
workers: 4
query_workers: 2
rate_limit:
  calls: 5
  period_sec: 2.5
retry:
  max_attempts: 2
  initial_delay_ms: 100
  max_delay_ms: 1000
  multiplier: 2.0
timeout_sec: 10
check_content: false
cache:
  backend: memory
output:
  path: "out.txt"
  format: "json"
`

func TestLoad_Valid(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Queries) != 2 {
		t.Fatalf("Expected 2 queries, got %d", len(cfg.Queries))
	}
	if cfg.Queries[0].Title != "FY 2024" {
		t.Errorf("Expected title 'FY 2024', got %q", cfg.Queries[0].Title)
	}
	if cfg.MaxResults != 5 {
		t.Errorf("Expected max_results 5, got %d", cfg.MaxResults)
	}
	if cfg.CheckContent {
		t.Error("Expected check_content false")
	}
	if cfg.RateLimit.Period() != 2500*time.Millisecond {
		t.Errorf("Expected period 2.5s, got %v", cfg.RateLimit.Period())
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Expected format json, got %q", cfg.Output.Format)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Queries) != 2 {
		t.Errorf("Expected 2 default queries, got %d", len(cfg.Queries))
	}
	if cfg.Provider != "duckduckgo" {
		t.Errorf("Expected default provider duckduckgo, got %q", cfg.Provider)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	configPath := createTempConfigFile(t, "max_results: 3\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxResults != 3 {
		t.Errorf("Expected max_results 3, got %d", cfg.MaxResults)
	}
	if cfg.Workers != 8 {
		t.Errorf("Expected default workers 8, got %d", cfg.Workers)
	}
	if !cfg.CheckContent {
		t.Error("Expected default check_content true")
	}
	if len(cfg.Queries) != 2 {
		t.Errorf("Expected default queries kept, got %d", len(cfg.Queries))
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "queries: [}")
	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}

func TestConfig_Validate_Sentinels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no queries", func(c *Config) { c.Queries = nil }, ErrNoQueries},
		{"blank query text", func(c *Config) { c.Queries[0].Text = "  " }, ErrEmptyQuery},
		{"bad provider", func(c *Config) { c.Provider = "bing" }, ErrInvalidProvider},
		{"zero max_results", func(c *Config) { c.MaxResults = 0 }, ErrInvalidMaxResults},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"zero query_workers", func(c *Config) { c.QueryWorkers = 0 }, ErrInvalidQueryWorkers},
		{"zero rate calls", func(c *Config) { c.RateLimit.Calls = 0 }, ErrInvalidRateCalls},
		{"zero rate period", func(c *Config) { c.RateLimit.PeriodSec = 0 }, ErrInvalidRatePeriod},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"negative initial delay", func(c *Config) { c.Retry.InitialDelayMs = -1 }, ErrInvalidInitialDelay},
		{"sub-one multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }, ErrInvalidMultiplier},
		{"zero timeout", func(c *Config) { c.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }, ErrInvalidCacheBackend},
		{"file backend without path", func(c *Config) { c.Cache.Path = "" }, ErrMissingCachePath},
		{"no output path", func(c *Config) { c.Output.Path = "" }, ErrMissingOutputPath},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, ErrInvalidOutputFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfig_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "memory"
	cfg.Cache.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestRetryConfig_Delays(t *testing.T) {
	r := RetryConfig{InitialDelayMs: 500, MaxDelayMs: 8000}
	if got := r.InitialDelay(); got != 500*time.Millisecond {
		t.Errorf("InitialDelay() = %v, want 500ms", got)
	}
	if got := r.MaxDelay(); got != 8*time.Second {
		t.Errorf("MaxDelay() = %v, want 8s", got)
	}
}

func TestConfig_Timeout(t *testing.T) {
	cfg := &Config{TimeoutSec: 15}
	if got := cfg.Timeout(); got != 15*time.Second {
		t.Errorf("Timeout() = %v, want 15s", got)
	}
}
