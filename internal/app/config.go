package app

import (
	"os"
	"strconv"
	"time"

	"github.com/clouddoctor/server/pkg/jwtx"
)

type Config struct {
	AuthSecret string // Required: HMAC secret for token signing

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 5m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 2h)

	DatabaseFile string // Optional: path to SQLite database file (default: ./clouddoctor.db)
	RedisAddr    string // Optional: Redis host:port for the access-token cache; empty = in-memory
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	CookieSecure bool   // Optional: issue Secure SameSite=None cookies (default: true outside dev)
	CookieDomain string // Optional: cookie domain for production deployments

	AuditAPIURL string // Optional: base URL of the scanning backend; empty disables audit proxying

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		AuthSecret:           os.Getenv("AUTH_SECRET"),
		AccessTokenTTL:       getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL:      getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "clouddoctor.db"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		PepperFile:           getEnvOrDefault("PEPPER_FILE", "pepper"),
		CookieDomain:         os.Getenv("COOKIE_DOMAIN"),
		AuditAPIURL:          os.Getenv("AUDIT_API_URL"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Dev runs over plain HTTP, so Secure cookies would never stick.
	cfg.CookieSecure = getEnvBoolOrDefault("COOKIE_SECURE", cfg.Env != "dev")

	return cfg
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
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

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
