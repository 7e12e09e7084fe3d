package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port '8080', got '%s'", cfg.Port)
	}
	if cfg.JWTSecret != "dev-secret-change-in-prod" {
		t.Errorf("expected default JWT secret, got '%s'", cfg.JWTSecret)
	}
	if cfg.MigrationsPath != "migrations" {
		t.Errorf("expected default migrations path, got '%s'", cfg.MigrationsPath)
	}
	if cfg.KafkaBrokers != "" {
		t.Errorf("expected empty Kafka brokers by default, got '%s'", cfg.KafkaBrokers)
	}
	if cfg.KeepAliveSeconds != "25" {
		t.Errorf("expected default keep-alive of 25s, got '%s'", cfg.KeepAliveSeconds)
	}
	if cfg.AccessTokenMinutes != "15" {
		t.Errorf("expected default access token lifetime of 15 minutes, got '%s'", cfg.AccessTokenMinutes)
	}
	if cfg.RefreshTokenHours != "168" {
		t.Errorf("expected default refresh token lifetime of 168 hours, got '%s'", cfg.RefreshTokenHours)
	}
	if cfg.DBMaxConns != "10" {
		t.Errorf("expected default pool cap of 10, got '%s'", cfg.DBMaxConns)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("SSE_KEEPALIVE_SECONDS", "10")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("SSE_KEEPALIVE_SECONDS")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.KeepAliveSeconds != "10" {
		t.Errorf("expected keep-alive '10', got '%s'", cfg.KeepAliveSeconds)
	}
}

func TestGetEnvFallback(t *testing.T) {
	result := getEnv("NONEXISTENT_VAR_12345", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", result)
	}
}
