package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/config"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.Kind != "memory" {
		t.Errorf("cache kind = %q", cfg.Cache.Kind)
	}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("access ttl = %v", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("refresh ttl = %v", got)
	}
	if got := cfg.SessionTTL(); got != 24*time.Hour {
		t.Errorf("session ttl = %v", got)
	}
	if cfg.Rate.PublicPerMinute != 60 {
		t.Errorf("rate = %d", cfg.Rate.PublicPerMinute)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeYAML(t, `
app:
  env: staging
server:
  addr: ":9090"
jwt:
  access_ttl: 5m
session:
  ttl: 1h
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "staging" {
		t.Errorf("env = %q", cfg.App.Env)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if got := cfg.AccessTTL(); got != 5*time.Minute {
		t.Errorf("access ttl = %v", got)
	}
	if got := cfg.SessionTTL(); got != time.Hour {
		t.Errorf("session ttl = %v", got)
	}
	// lo no declarado conserva el default
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("refresh ttl = %v", got)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
server:
  addr: ":9090"
storage:
  dsn: postgres://yaml/db
`)
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("STORAGE_DSN", "postgres://env/db")
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "https://a.com, https://b.com")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.DSN != "postgres://env/db" {
		t.Errorf("dsn = %q", cfg.Storage.DSN)
	}
	want := []string{"https://a.com", "https://b.com"}
	if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[0] != want[0] || cfg.Server.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("cors = %v", cfg.Server.CORSAllowedOrigins)
	}
}

func TestInvalidDuration(t *testing.T) {
	path := writeYAML(t, `
jwt:
  access_ttl: cuando-pinte
`)
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestProdRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	if _, err := config.Load(""); err == nil {
		t.Fatal("expected error for missing secrets in prod")
	}

	t.Setenv("JWT_ACCESS_SECRET", "mismo")
	t.Setenv("JWT_REFRESH_SECRET", "mismo")
	if _, err := config.Load(""); err == nil {
		t.Fatal("expected error for equal secrets in prod")
	}

	t.Setenv("JWT_REFRESH_SECRET", "distinto")
	if _, err := config.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
