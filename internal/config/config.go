package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/metar-service/internal/store"
	"github.com/i474232898/metar-service/internal/weather/providers"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// CORSAllowOrigins is a comma-separated origin list, "*" for any.
	CORSAllowOrigins string

	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// LocalTimezone is the zone localObsTime is rendered in.
	LocalTimezone *time.Location

	Store store.Config

	// StoreHealthInterval controls how often the store is probed.
	StoreHealthInterval time.Duration
}

// Load reads configuration from the environment with sensible defaults.
// Callers load any .env file beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.CORSAllowOrigins = getenvDefault("CORS_ALLOW_ORIGINS", "*")
	cfg.UpstreamBaseURL = getenvDefault("UPSTREAM_BASE_URL", providers.DefaultAviationWeatherURL)

	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: must be positive")
	}

	tzName := getenvDefault("LOCAL_TIMEZONE", "America/Los_Angeles")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TIMEZONE %q: %w", tzName, err)
	}
	cfg.LocalTimezone = loc

	storeCfg, err := loadStore()
	if err != nil {
		return nil, err
	}
	cfg.Store = storeCfg

	if cfg.StoreHealthInterval, err = getenvDuration("STORE_HEALTH_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadStore() (store.Config, error) {
	sc := store.Config{
		Driver:   strings.ToLower(getenvDefault("DB_DRIVER", store.DriverPostgres)),
		DSN:      strings.TrimSpace(os.Getenv("DB_DSN")),
		Host:     getenvDefault("DB_HOST", "localhost"),
		Name:     getenvDefault("DB_NAME", "historic_METAR"),
		User:     getenvDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
	}
	switch sc.Driver {
	case store.DriverPostgres, store.DriverMemory:
	default:
		return store.Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: postgres, memory)", sc.Driver)
	}

	var err error
	if sc.Port, err = getenvInt("DB_PORT", 5432); err != nil {
		return store.Config{}, err
	}
	if sc.MaxOpenConns, err = getenvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return store.Config{}, err
	}
	if sc.MaxIdleConns, err = getenvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return store.Config{}, err
	}
	if sc.ConnMaxLifetime, err = getenvDuration("DB_CONN_MAX_LIFETIME", "30m"); err != nil {
		return store.Config{}, err
	}

	migrate := getenvDefault("DB_MIGRATE", "false")
	if sc.Migrate, err = strconv.ParseBool(migrate); err != nil {
		return store.Config{}, fmt.Errorf("invalid DB_MIGRATE %q: %w", migrate, err)
	}

	return sc, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
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
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
