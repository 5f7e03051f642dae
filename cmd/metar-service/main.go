package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/metar-service/internal/api/http"
	"github.com/i474232898/metar-service/internal/config"
	"github.com/i474232898/metar-service/internal/logging"
	"github.com/i474232898/metar-service/internal/metrics"
	"github.com/i474232898/metar-service/internal/scheduler"
	"github.com/i474232898/metar-service/internal/store"
	"github.com/i474232898/metar-service/internal/weather"
	"github.com/i474232898/metar-service/internal/weather/providers"
)

const appName = "metar-service"

// observationStore is what the service and the health probe need from a store.
type observationStore interface {
	weather.Store
	scheduler.Pinger
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel, appName)
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"port", cfg.Port,
		"upstreamBaseURL", cfg.UpstreamBaseURL,
		"upstreamTimeout", cfg.UpstreamTimeout,
		"localTimezone", cfg.LocalTimezone.String(),
		"dbDriver", cfg.Store.Driver,
		"dbHost", cfg.Store.Host,
		"dbName", cfg.Store.Name,
		"dbMaxOpenConns", cfg.Store.MaxOpenConns,
		"dbMigrate", cfg.Store.Migrate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obsStore, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	recorder := metrics.NewRecorder()

	// Upstream provider with explicit timeout and circuit breaker.
	provider := providers.NewAviationWeatherProvider(
		cfg.UpstreamBaseURL,
		providers.DefaultHTTPClientConfig(cfg.UpstreamTimeout),
	)

	service := weather.NewService(provider, obsStore, cfg.LocalTimezone, logger, recorder)

	// Periodic store probe backing /health.
	sched := scheduler.New(obsStore, cfg.StoreHealthInterval, recorder, logger)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.AppOptions{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:        true,
	})
	httpapi.RegisterOps(app, sched, recorder.Handler())
	httpapi.RegisterRoutes(app, service, logger)

	go func() {
		slog.Info("http listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}

// openStore returns the configured store and a function releasing its resources.
func openStore(ctx context.Context, cfg store.Config) (observationStore, func(), error) {
	if cfg.Driver == store.DriverMemory {
		slog.Warn("using in-memory observation store; history endpoints return no data")
		return store.NewMemoryStore(), func() {}, nil
	}

	if cfg.Migrate {
		if err := store.Migrate(cfg); err != nil {
			return nil, nil, err
		}
	}

	db, err := store.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	pgStore := store.NewPostgresStore(db)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pgStore.Ping(pingCtx); err != nil {
		// Live queries do not need the store; history queries fail until it is reachable.
		slog.Warn("database unreachable at startup", "error", err)
	} else {
		slog.Info("database connection successful")
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			slog.Error("db close", "error", err)
		}
	}
	return pgStore, closeFn, nil
}
