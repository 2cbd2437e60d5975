package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/Kerhoff/planner/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// TelegramToken enables the bot when set.
	TelegramToken string
	// DatabaseURL selects the Postgres store; empty keeps everything in memory.
	DatabaseURL    string
	MigrationsPath string
	MaxOpenConns   int

	LogLevel       string
	LogFormat      string
	Port           string
	PrometheusPort string

	DefaultTimezone    string
	HorizonRefreshCron string
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MigrationsPath:     getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
		Port:               getEnvOrDefault("PORT", "8080"),
		PrometheusPort:     getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		DefaultTimezone:    getEnvOrDefault("DEFAULT_TIMEZONE", "UTC"),
		HorizonRefreshCron: getEnvOrDefault("HORIZON_REFRESH_CRON", "0 3 1 1 *"),
	}

	var err error
	if cfg.MaxOpenConns, err = strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "25")); err != nil || cfg.MaxOpenConns < 1 {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS must be a positive integer")
	}

	if _, err := models.LoadZone(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.HorizonRefreshCron); err != nil {
		return nil, fmt.Errorf("HORIZON_REFRESH_CRON %q: %w", cfg.HorizonRefreshCron, err)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
