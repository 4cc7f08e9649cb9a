package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8990"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Upstream UpstreamConfig
	State    StateConfig
	Redis    RedisConfig
}

type UpstreamConfig struct {
	// URL is the base URL of the feedback backend.
	URL string `env:"UPSTREAM_URL, default=http://localhost:8000"`
	// Timeout bounds each upstream request. Zero disables the client-side
	// bound and leaves timeouts to the transport.
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT, default=0s"`
}

type StateConfig struct {
	// Dir holds the persistent session file when Redis is not configured.
	Dir string `env:"STATE_DIR, default=.feedback-desk"`
	// DownloadDir receives exported PDFs. Empty keeps exports in-memory.
	DownloadDir string `env:"DOWNLOAD_DIR, default=downloads"`
}

type RedisConfig struct {
	// Addr switches the persistent tier to Redis when non-empty.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// SessionFile is the path of the file-backed persistent tier.
func (c *Config) SessionFile() string {
	return filepath.Join(c.State.Dir, "session.json")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
