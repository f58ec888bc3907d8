package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Batch processing
	SkipMalformedRows bool `env:"SKIP_MALFORMED_ROWS" envDefault:"false"`
	OutputPrecision   int  `env:"OUTPUT_PRECISION"    envDefault:"4"`

	// Metrics (optional - leave empty to disable)
	MetricsTextfile string `env:"METRICS_TEXTFILE" envDefault:""`

	// Redis snapshot export (optional - leave empty to disable)
	RedisURL          string        `env:"REDIS_URL"           envDefault:""`
	SnapshotKeyPrefix string        `env:"SNAPSHOT_KEY_PREFIX" envDefault:"txledger:snapshot:"`
	SnapshotTTL       time.Duration `env:"SNAPSHOT_TTL"        envDefault:"24h"`
	SnapshotTimeout   time.Duration `env:"SNAPSHOT_TIMEOUT"    envDefault:"10s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// RedisEnabled reports whether the snapshot should be exported to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}
