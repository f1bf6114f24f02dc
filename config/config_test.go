package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.ListenAddr(); got != "localhost:9090" {
		t.Errorf("expected default listen addr localhost:9090, got %s", got)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Errorf("expected default ping interval 5s, got %v", cfg.PingInterval)
	}
	if cfg.IdleTimeout != 10*time.Second {
		t.Errorf("expected default idle timeout 10s, got %v", cfg.IdleTimeout)
	}
	if cfg.DatabasePath != "" {
		t.Errorf("expected empty database path, got %s", cfg.DatabasePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADDR", "0.0.0.0")
	t.Setenv("PORT", "8123")
	t.Setenv("DATABASE_PATH", "/tmp/outbreak.db")
	t.Setenv("PING_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.ListenAddr(); got != "0.0.0.0:8123" {
		t.Errorf("expected listen addr 0.0.0.0:8123, got %s", got)
	}
	if cfg.DatabasePath != "/tmp/outbreak.db" {
		t.Errorf("expected database path override, got %s", cfg.DatabasePath)
	}
	if cfg.PingInterval != 2*time.Second {
		t.Errorf("expected ping interval 2s, got %v", cfg.PingInterval)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is missing")
	}
}
