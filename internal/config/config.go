// Package config reads the client settings from the environment, after loading an optional
// .env file from the working directory.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL        string
	Session       string
	SessionCookie string
	Timeout       time.Duration
	// StateDSN is a Postgres DSN for remembered board choices. Empty keeps them in memory.
	StateDSN string
	LogLevel slog.Level
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// LoadDotEnv loads .env (or the given files) without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	c := Config{
		APIURL:        getenv("ROOMBOARD_API_URL", "http://localhost:5000"),
		Session:       getenv("ROOMBOARD_SESSION", ""),
		SessionCookie: getenv("ROOMBOARD_SESSION_COOKIE", "session"),
		StateDSN:      getenv("ROOMBOARD_STATE_DSN", ""),
	}

	timeout, err := time.ParseDuration(getenv("ROOMBOARD_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("ROOMBOARD_TIMEOUT: %q is not a positive duration", os.Getenv("ROOMBOARD_TIMEOUT"))
	}
	c.Timeout = timeout

	level, err := ParseLevel(getenv("ROOMBOARD_LOG_LEVEL", "warn"))
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level
	return c, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("ROOMBOARD_LOG_LEVEL: unknown level %q", s)
	}
}
