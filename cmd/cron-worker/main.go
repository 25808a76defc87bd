package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/premiumcity-backend/internal/cron"
	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
	"github.com/angelmondragon/premiumcity-backend/pkg/migrate"
	"github.com/angelmondragon/premiumcity-backend/pkg/outbox"
	"github.com/angelmondragon/premiumcity-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "maintenance-worker"

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Env:         cfg.App.Env,
		Format:      cfg.App.LogFormat,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	maintenanceMetrics := metrics.NewMaintenanceMetrics(registry)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("maintenance", lockEnv(cfg.App.Env)), 0)
	if err != nil {
		return fmt.Errorf("maintenance lock: %w", err)
	}

	conn := dbClient.DB()
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("ledger service: %w", err)
	}
	reconcileJob, err := cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:    logg,
		Users:     users.NewRepository(conn),
		Ledger:    ledgerService,
		Metrics:   maintenanceMetrics,
		BatchSize: cfg.Maintenance.ReconcileBatch,
	})
	if err != nil {
		return fmt.Errorf("ledger reconcile job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		Metrics:    maintenanceMetrics,
		Retention:  cfg.Maintenance.OutboxRetention,
	})
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcileJob, retentionJob),
		Lock:     lock,
		Metrics:  maintenanceMetrics,
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return fmt.Errorf("maintenance service: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Maintenance.Interval.String(),
	})

	if cfg.FeatureFlags.Metrics {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
	}

	logg.Info(ctx, "starting maintenance worker")

	runErr := service.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := multierr.Append(runErr, metricsServer.Shutdown(shutdownCtx)); err != nil {
		return err
	}
	logg.Info(ctx, "maintenance worker shutting down gracefully")
	return nil
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
