package api

import (
	"testing"
	"time"
)

func TestAPIConfig_IsEnabled(t *testing.T) {
	var cfg APIConfig
	if !cfg.IsEnabled() {
		t.Error("Expected unset Enabled to count as enabled")
	}

	disabled := false
	cfg.Enabled = &disabled
	if cfg.IsEnabled() {
		t.Error("Expected explicit false to disable")
	}

	enabled := true
	cfg.Enabled = &enabled
	if !cfg.IsEnabled() {
		t.Error("Expected explicit true to enable")
	}
}

func TestAPIConfig_ApplyDefaults(t *testing.T) {
	var cfg APIConfig
	cfg.applyDefaults()

	if cfg.Port != 8790 {
		t.Errorf("Expected default port 8790, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.ReadTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.IdleTimeout)
	}
	if cfg.Username != "admin" {
		t.Errorf("Expected default username 'admin', got '%s'", cfg.Username)
	}
	if cfg.JWT.AccessTokenDuration != 15*time.Minute {
		t.Errorf("Expected default access token duration 15m, got %v", cfg.JWT.AccessTokenDuration)
	}
	if cfg.JWT.RefreshTokenDuration != 7*24*time.Hour {
		t.Errorf("Expected default refresh token duration 168h, got %v", cfg.JWT.RefreshTokenDuration)
	}
}

func TestAPIConfig_ApplyDefaults_PreservesSetValues(t *testing.T) {
	cfg := APIConfig{
		Port:     9000,
		Username: "operator",
	}
	cfg.applyDefaults()

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000 to be preserved, got %d", cfg.Port)
	}
	if cfg.Username != "operator" {
		t.Errorf("Expected username 'operator' to be preserved, got '%s'", cfg.Username)
	}
}

func TestAPIConfig_GetJWTSecret(t *testing.T) {
	t.Run("config value", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "")

		cfg := APIConfig{JWT: JWTConfig{Secret: "config-secret"}}
		if got := cfg.GetJWTSecret(); got != "config-secret" {
			t.Errorf("Expected 'config-secret', got '%s'", got)
		}
	})

	t.Run("env overrides config", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "env-secret")

		cfg := APIConfig{JWT: JWTConfig{Secret: "config-secret"}}
		if got := cfg.GetJWTSecret(); got != "env-secret" {
			t.Errorf("Expected 'env-secret', got '%s'", got)
		}
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "")

		var cfg APIConfig
		if cfg.HasJWTSecret() {
			t.Error("Expected HasJWTSecret to be false with no secret")
		}
	})
}
