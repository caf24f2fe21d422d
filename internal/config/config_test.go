package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.AuthMode != "jwt" {
		t.Fatalf("expected default auth mode jwt, got %q", cfg.AuthMode)
	}
	if cfg.TokenTTL() != 600*time.Second {
		t.Fatalf("expected 600s token TTL, got %v", cfg.TokenTTL())
	}
	if cfg.StaleEventWindow() != 30*time.Second {
		t.Fatalf("expected 30s stale window, got %v", cfg.StaleEventWindow())
	}
	if cfg.LedgerAppendAttempts != 3 {
		t.Fatalf("expected 3 append attempts, got %d", cfg.LedgerAppendAttempts)
	}
	if cfg.KeyBaseURL != "/stream/key" {
		t.Fatalf("expected default key base URL, got %q", cfg.KeyBaseURL)
	}
	if cfg.RateLimitRequests != 0 {
		t.Fatalf("rate limiting must default to off, got %d", cfg.RateLimitRequests)
	}
	if cfg.ChainVerifyCacheTTL() != 30*time.Second {
		t.Fatalf("expected 30s verify cache TTL, got %v", cfg.ChainVerifyCacheTTL())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("TOKEN_TTL_SECONDS", "120")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")
	t.Setenv("RATE_LIMIT_FAIL_CLOSED", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected :9999, got %q", cfg.HTTPAddr)
	}
	if cfg.AuthMode != "none" {
		t.Fatalf("expected none, got %q", cfg.AuthMode)
	}
	if cfg.TokenTTL() != 120*time.Second {
		t.Fatalf("expected 120s TTL, got %v", cfg.TokenTTL())
	}
	if cfg.RateLimitRequests != 50 || !cfg.RateLimitFailClosed {
		t.Fatalf("rate limit overrides not applied: %+v", cfg)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr, got %q", cfg.RedisAddr)
	}
}

func TestInvalidIntsFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL_SECONDS", "not-a-number")

	cfg := FromEnv()
	if cfg.TokenTTLSeconds != 600 {
		t.Fatalf("junk int must fall back to default, got %d", cfg.TokenTTLSeconds)
	}

	cfg.TokenTTLSeconds = -5
	if cfg.TokenTTL() != 600*time.Second {
		t.Fatalf("negative TTL must clamp to default, got %v", cfg.TokenTTL())
	}
}
