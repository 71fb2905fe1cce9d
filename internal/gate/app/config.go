package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	SigningSecret string // Required: HS256 signing secret for access tokens
	Issuer        string // Optional: issuer claim for tokens (default: gatekeeper)
	Audience      string // Optional: audience claim for tokens (default: gatekeeper-clients)

	RedisAddr     string // Optional: redis address for the token store (default: localhost:6379)
	RedisPassword string // Optional: redis password
	RedisDB       int    // Optional: redis database number (default: 0)

	DatabaseFile string // Optional: path to SQLite database file (default: ./gate.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Optional: refresh session lifetime (default: 168h)

	RateLimitRequests int           // Optional: requests allowed per window (default: 100)
	RateLimitWindow   time.Duration // Optional: fixed rate-limit window (default: 60s)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "gatekeeper"),
		Audience:      getEnvOrDefault("AUTH_AUDIENCE", "gatekeeper-clients"),

		RedisAddr:     getEnvOrDefault("AUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("AUTH_REDIS_DB", 0),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "gate.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),

		RateLimitRequests: getEnvIntOrDefault("RATELIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDurationOrDefault("RATELIMIT_WINDOW_SEC", 60*time.Second),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
