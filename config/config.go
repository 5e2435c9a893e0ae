// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"ranked-ledger/utils"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the typed view of the service environment.
type Config struct {
	Port             int           `env:"PORT" envDefault:"5200"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	GatewayToken     string        `env:"GAME_SERVICE_TOKEN"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RepositoryDriver string        `env:"REPOSITORY_DRIVER" envDefault:"postgres"`
	CacheSyncEvery   time.Duration `env:"CACHE_SYNC_INTERVAL" envDefault:"15s"`
	ArchiveEvery     time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"24h"`
	DefaultLocale    string        `env:"DEFAULT_LOCALE" envDefault:"en"`

	R2AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL        string `env:"CDN_BASE_URL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	c.RepositoryDriver = strings.ToLower(strings.TrimSpace(c.RepositoryDriver))
	c.DefaultLocale = strings.TrimSpace(c.DefaultLocale)
}

// Validate reports settings that make the service unable to start.
func (c Config) Validate() error {
	switch c.RepositoryDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown REPOSITORY_DRIVER %q (want %s or %s)", c.RepositoryDriver, DriverPostgres, DriverMemory)
	}
	if c.GatewayToken == "" {
		return fmt.Errorf("GAME_SERVICE_TOKEN is not set: service cannot authenticate the gateway")
	}
	if c.CacheSyncEvery <= 0 {
		return fmt.Errorf("CACHE_SYNC_INTERVAL must be positive, got %s", c.CacheSyncEvery)
	}
	if c.ArchiveEvery <= 0 {
		return fmt.Errorf("ARCHIVE_INTERVAL must be positive, got %s", c.ArchiveEvery)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CORSOrigins joins the allowed origins the way fiber's cors middleware expects.
func (c Config) CORSOrigins() string {
	return strings.Join(c.AllowedOrigins, ",")
}

// R2 returns the archive bucket settings.
func (c Config) R2() utils.R2Options {
	return utils.R2Options{
		AccountID:       c.R2AccountID,
		AccessKeyID:     c.R2AccessKeyID,
		AccessKeySecret: c.R2AccessKeySecret,
		Bucket:          c.R2Bucket,
		CDNBaseURL:      c.CDNBaseURL,
	}
}
