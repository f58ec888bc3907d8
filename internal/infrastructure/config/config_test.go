package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/txledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("METRICS_TEXTFILE", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Fatalf("expected default log level warn, got %q", cfg.LogLevel)
	}

	if cfg.SkipMalformedRows {
		t.Fatalf("expected fail-fast by default")
	}

	if cfg.OutputPrecision != 4 {
		t.Fatalf("expected default precision 4, got %d", cfg.OutputPrecision)
	}

	if cfg.RedisEnabled() {
		t.Fatalf("expected redis export disabled by default")
	}

	if cfg.SnapshotTTL != 24*time.Hour {
		t.Fatalf("expected default snapshot TTL 24h, got %s", cfg.SnapshotTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SKIP_MALFORMED_ROWS", "true")
	t.Setenv("OUTPUT_PRECISION", "2")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("SNAPSHOT_TTL", "45s")
	t.Setenv("METRICS_TEXTFILE", "/tmp/txledger.prom")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("expected logging overrides, got level=%s format=%s", cfg.LogLevel, cfg.LogFormat)
	}

	if !cfg.SkipMalformedRows {
		t.Fatalf("expected skip malformed rows override")
	}

	if cfg.OutputPrecision != 2 {
		t.Fatalf("expected precision override, got %d", cfg.OutputPrecision)
	}

	if !cfg.RedisEnabled() || cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.SnapshotTTL != 45*time.Second {
		t.Fatalf("expected snapshot TTL override, got %s", cfg.SnapshotTTL)
	}

	if cfg.MetricsTextfile != "/tmp/txledger.prom" {
		t.Fatalf("expected metrics textfile override, got %s", cfg.MetricsTextfile)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("SNAPSHOT_TIMEOUT")
	t.Setenv("SNAPSHOT_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("SNAPSHOT_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
