package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings, sourced from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	MetricsNamespace string

	DatabaseURL    string
	DatabaseSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	DashboardTTL  time.Duration

	WhatsAppStorePath string
	WhatsAppLogLevel  string
	WhatsAppEnabled   bool

	StoreName        string
	DispatchInterval time.Duration
	DebtReminderCron string
	ScheduledCron    string
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "urbanstore"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseSchema: getEnv("DATABASE_SCHEMA", "public"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		WhatsAppStorePath: getEnv("WHATSAPP_STORE_PATH", "data/whatsapp.db"),
		WhatsAppLogLevel:  getEnv("WHATSAPP_LOG_LEVEL", "WARN"),

		StoreName:        getEnv("STORE_NAME", "Urban Store"),
		DebtReminderCron: getEnv("DEBT_REMINDER_CRON", "0 9 * * 1"),
		ScheduledCron:    getEnv("SCHEDULED_REMINDER_CRON", "30 9 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = getEnvBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.WhatsAppEnabled, err = getEnvBool("WHATSAPP_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.DashboardTTL, err = getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval, err = getEnvDuration("DISPATCH_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval < time.Second {
		// Provider rate limits assume at least one second between sends.
		cfg.DispatchInterval = time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
