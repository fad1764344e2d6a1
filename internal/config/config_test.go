package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"BCRYPT_COST", "SESSION_TTL_HOURS", "VERIFY_TOKEN_TTL_HOURS", "APP_URL", "SESSION_COOKIE_SECURE"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.VerifyTokenTTL != 24*time.Hour {
		t.Errorf("VerifyTokenTTL = %v, want 24h", cfg.VerifyTokenTTL)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
	if !cfg.SessionCookieSecure {
		t.Error("SessionCookieSecure should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BCRYPT_COST", "14")
	t.Setenv("APP_URL", "https://vault.example.com/")
	t.Setenv("SESSION_COOKIE_SECURE", "false")
	t.Setenv("RESET_TOKEN_TTL_MINUTES", "not-a-number")

	cfg := Load()

	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.AppURL != "https://vault.example.com" {
		t.Errorf("AppURL = %q, trailing slash should be trimmed", cfg.AppURL)
	}
	if cfg.SessionCookieSecure {
		t.Error("SessionCookieSecure should be false")
	}
	if cfg.ResetTokenTTL != time.Hour {
		t.Errorf("ResetTokenTTL = %v, invalid value should fall back to 1h", cfg.ResetTokenTTL)
	}
}
