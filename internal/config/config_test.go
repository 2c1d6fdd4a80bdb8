package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Collector.MaxConcurrentCollections != 3 {
		t.Fatalf("default concurrency = %d, want 3", cfg.Collector.MaxConcurrentCollections)
	}
	if cfg.Extractor.Timeout.Std() != 30*time.Second {
		t.Fatalf("default extractor timeout = %v", cfg.Extractor.Timeout)
	}
	if !cfg.Extractor.FallbackEnabled {
		t.Fatal("fallback must default to enabled")
	}
	if cfg.Risk.KEVFeedName != "cisa-kev" {
		t.Fatalf("default kev feed = %q", cfg.Risk.KEVFeedName)
	}
	if len(cfg.Feeds) == 0 {
		t.Fatal("defaults must seed at least one feed")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database:
  dsn: postgres://test@localhost/ts
collector:
  maxConcurrentCollections: 7
scheduler:
  interval: 1m
feeds:
  - id: vendor
    name: vendor-advisories
    sourceType: html_advisory
    url: https://vendor.example.com/advisories
    priority: P1
    frequency: 1h
    enabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Database.DSN != "postgres://test@localhost/ts" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Collector.MaxConcurrentCollections != 7 {
		t.Fatalf("concurrency = %d, want 7", cfg.Collector.MaxConcurrentCollections)
	}
	if cfg.Scheduler.Interval.Std() != time.Minute {
		t.Fatalf("interval = %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].ID != "vendor" {
		t.Fatalf("feeds = %+v", cfg.Feeds)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Risk.KEVFeedName != "cisa-kev" {
		t.Fatalf("kev feed = %q", cfg.Risk.KEVFeedName)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  dsn: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "from-env")
	t.Setenv(maxConcurrencyEnv, "9")

	cfg := Load()

	if cfg.Database.DSN != "from-env" {
		t.Fatalf("dsn = %q, env must win over file", cfg.Database.DSN)
	}
	if cfg.Collector.MaxConcurrentCollections != 9 {
		t.Fatalf("concurrency = %d, want 9", cfg.Collector.MaxConcurrentCollections)
	}
}

func TestLoadIgnoresInvalidEnvConcurrency(t *testing.T) {
	t.Setenv(maxConcurrencyEnv, "not-a-number")

	cfg := Load()
	if cfg.Collector.MaxConcurrentCollections != 3 {
		t.Fatalf("concurrency = %d, want default 3", cfg.Collector.MaxConcurrentCollections)
	}
}

func TestLoadUnreadableFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.Risk.KEVFeedName != "cisa-kev" {
		t.Fatalf("expected defaults, got %+v", cfg.Risk)
	}
}
