package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	var cfg Config

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 5200 {
		t.Fatalf("expected default port 5200, got %d", cfg.Port)
	}
	if cfg.RepositoryDriver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.RepositoryDriver)
	}
	if cfg.CacheSyncEvery != 15*time.Second {
		t.Fatalf("expected 15s cache sync, got %s", cfg.CacheSyncEvery)
	}
	if cfg.ArchiveEvery != 24*time.Hour {
		t.Fatalf("expected 24h archive interval, got %s", cfg.ArchiveEvery)
	}
	if cfg.CORSOrigins() != "http://localhost:3000" {
		t.Fatalf("unexpected origins %q", cfg.CORSOrigins())
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg Config
	t.Setenv("PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestNormalizeOrigins(t *testing.T) {
	cfg := Config{
		AllowedOrigins:   []string{" https://a.example ", "", "https://b.example"},
		RepositoryDriver: " Memory ",
	}
	cfg.normalize()

	if got := cfg.CORSOrigins(); got != "https://a.example,https://b.example" {
		t.Fatalf("unexpected origins %q", got)
	}
	if cfg.RepositoryDriver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.RepositoryDriver)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		RepositoryDriver: DriverMemory,
		GatewayToken:     "secret",
		CacheSyncEvery:   time.Second,
		ArchiveEvery:     time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory ok", mutate: func(*Config) {}},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.RepositoryDriver = DriverPostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.RepositoryDriver = DriverPostgres
				c.DatabaseURL = "postgres://localhost/ranked"
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.RepositoryDriver = "sqlite" },
			wantErr: "REPOSITORY_DRIVER",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.GatewayToken = "" },
			wantErr: "GAME_SERVICE_TOKEN",
		},
		{
			name:    "zero cache interval",
			mutate:  func(c *Config) { c.CacheSyncEvery = 0 },
			wantErr: "CACHE_SYNC_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestR2Options(t *testing.T) {
	cfg := Config{R2AccountID: "acct", R2AccessKeyID: "id", R2AccessKeySecret: "secret"}
	if cfg.R2().Configured() {
		t.Fatal("expected bucket to be required")
	}
	cfg.R2Bucket = "ranked"
	if !cfg.R2().Configured() {
		t.Fatal("expected R2 to be configured")
	}
}
