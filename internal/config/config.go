package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string
	LogLevel    string

	// Valorant catalog API
	ValorantAPIBase   string
	ValorantUserAgent string
	RetryAttempts     uint
	RetryBaseDelay    time.Duration
	TierCacheTTL      time.Duration // 0 keeps tiers for the process lifetime

	// Catalog persistence pacing
	ImportPause      time.Duration
	ImportPauseEvery int

	DaemonInterval time.Duration
}

func Load() *Config {
	defaultDSN := "root:root@tcp(127.0.0.1:3306)/traking_shop?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", defaultDSN),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ValorantAPIBase:   getEnv("VALORANT_API_BASE", "https://valorant-api.com"),
		ValorantUserAgent: getEnv("VALORANT_USER_AGENT", "Traking.shop/1.0"),
		RetryAttempts:     uint(getEnvInt("VALORANT_RETRY_ATTEMPTS", 3)),
		RetryBaseDelay:    time.Duration(getEnvInt("VALORANT_RETRY_BASE_MS", 1000)) * time.Millisecond,
		TierCacheTTL:      getEnvDuration("TIER_CACHE_TTL", 0),

		ImportPause:      time.Duration(getEnvInt("IMPORT_PAUSE_MS", 200)) * time.Millisecond,
		ImportPauseEvery: getEnvInt("IMPORT_PAUSE_EVERY", 50),

		DaemonInterval: getEnvDuration("DAEMON_INTERVAL", 6*time.Hour),
	}
}

// IsProduction reports whether the service runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}
