package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// SecretKey signs capability tokens and salts every chain fingerprint.
	// It is read-only after startup and must never be logged or echoed.
	SecretKey string

	AuthMode  string
	JWTSecret string

	TokenTTLSeconds         int
	StaleEventWindowSeconds int
	LedgerAppendAttempts    int

	MediaRoot        string
	FFmpegPath       string
	KeyBaseURL       string
	PackagingWorkers int

	AnchorURL            string
	AnchorAPIKey         string
	AnchorTimeoutSeconds int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PolicyBundlePath string

	ChainVerifyCacheTTLSeconds int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                   addr,
		PostgresDSN:                os.Getenv("POSTGRES_DSN"),
		LogLevel:                   envDefault("LOG_LEVEL", "info"),
		SecretKey:                  os.Getenv("SECRET_KEY"),
		AuthMode:                   envDefault("AUTH_MODE", "jwt"),
		JWTSecret:                  os.Getenv("JWT_SECRET"),
		TokenTTLSeconds:            envIntDefault("TOKEN_TTL_SECONDS", 600),
		StaleEventWindowSeconds:    envIntDefault("STALE_EVENT_WINDOW_SECONDS", 30),
		LedgerAppendAttempts:       envIntDefault("LEDGER_APPEND_ATTEMPTS", 3),
		MediaRoot:                  envDefault("MEDIA_ROOT", "media"),
		FFmpegPath:                 envDefault("FFMPEG_PATH", "ffmpeg"),
		KeyBaseURL:                 envDefault("KEY_BASE_URL", "/stream/key"),
		PackagingWorkers:           envIntDefault("PACKAGING_WORKERS", 1),
		AnchorURL:                  os.Getenv("ANCHOR_URL"),
		AnchorAPIKey:               os.Getenv("ANCHOR_API_KEY"),
		AnchorTimeoutSeconds:       envIntDefault("ANCHOR_TIMEOUT_SECONDS", 2),
		RateLimitRequests:          envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:     envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:        envBool("RATE_LIMIT_FAIL_CLOSED"),
		RateLimitMaxKeys:           envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    envIntDefault("REDIS_DB", 0),
		PolicyBundlePath:           os.Getenv("POLICY_BUNDLE_PATH"),
		ChainVerifyCacheTTLSeconds: envIntDefault("CHAIN_VERIFY_CACHE_TTL_SECONDS", 30),
	}
}

func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLSeconds <= 0 {
		return 600 * time.Second
	}
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

func (c Config) StaleEventWindow() time.Duration {
	if c.StaleEventWindowSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.StaleEventWindowSeconds) * time.Second
}

func (c Config) AnchorTimeout() time.Duration {
	if c.AnchorTimeoutSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.AnchorTimeoutSeconds) * time.Second
}

func (c Config) ChainVerifyCacheTTL() time.Duration {
	if c.ChainVerifyCacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ChainVerifyCacheTTLSeconds) * time.Second
}

func envDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntDefault(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string) bool {
	raw := os.Getenv(key)
	return raw == "1" || raw == "true" || raw == "yes"
}
