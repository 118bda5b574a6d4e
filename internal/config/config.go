package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	APIBaseURL string
	RedisURL   string
	AuthSecret string
	LogLevel   string
}

// Load reads configuration from the environment, after merging in a .env
// file if one is present. Every value has a working default except
// RedisURL and AuthSecret, whose absence disables the feature.
func Load() *Config {
	// Missing .env is the normal case in production
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", "4000"),
		APIBaseURL: strings.TrimRight(getEnv("API_URL", "http://localhost:3000"), "/"),
		RedisURL:   getEnv("REDIS_URL", ""),
		AuthSecret: getEnv("AUTH_SECRET", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel onto slog's levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
