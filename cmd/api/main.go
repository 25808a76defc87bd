package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/premiumcity-backend/api/routes"
	"github.com/angelmondragon/premiumcity-backend/internal/auth"
	"github.com/angelmondragon/premiumcity-backend/internal/banks"
	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/notifications"
	"github.com/angelmondragon/premiumcity-backend/internal/orders"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/internal/wallet"
	"github.com/angelmondragon/premiumcity-backend/pkg/auth/session"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
	"github.com/angelmondragon/premiumcity-backend/pkg/migrate"
	"github.com/angelmondragon/premiumcity-backend/pkg/outbox"
	"github.com/angelmondragon/premiumcity-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Format:      cfg.App.LogFormat,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shopMetrics := metrics.NewShopMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()
	dbClient.OnRetry(func(attempt int, cause error) {
		shopMetrics.IncTxRetry("wallet_tx")
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"error":   cause.Error(),
		}), "transaction retry")
	})

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	queue, err := notifications.NewQueue(outbox.NewRepository(conn))
	if err != nil {
		return err
	}
	alerts := notifications.NewAlerts(queue, cfg.Notifications, logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return err
	}
	catalogAdmin, err := catalog.NewAdminService(dbClient, catalogRepo, logg)
	if err != nil {
		return err
	}
	banksService, err := banks.NewService(banks.NewRepository(conn))
	if err != nil {
		return err
	}
	inventoryService, err := inventory.NewService(inventoryRepo, catalogRepo)
	if err != nil {
		return err
	}
	allocator, err := inventory.NewAllocator(inventoryRepo)
	if err != nil {
		return err
	}
	engine, err := orders.NewEngine(orders.EngineParams{
		DB:          dbClient,
		Users:       userRepo,
		Products:    catalogRepo,
		Orders:      ordersRepo,
		Allocator:   allocator,
		Ledger:      ledgerService,
		Alerts:      alerts,
		Metrics:     shopMetrics,
		Logger:      logg,
		MaxQuantity: cfg.Wallet.MaxPurchaseQuantity,
	})
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		DB:     dbClient,
		Orders: ordersRepo,
		Users:  userRepo,
		Ledger: ledgerService,
		Alerts: alerts,
		Logger: logg,
	})
	if err != nil {
		return err
	}
	walletService, err := wallet.NewService(wallet.ServiceParams{
		DB:      dbClient,
		Topups:  wallet.NewTopupRepository(conn),
		Users:   userRepo,
		Ledger:  ledgerService,
		Alerts:  alerts,
		Metrics: shopMetrics,
		Logger:  logg,
		Config:  cfg.Wallet,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Cache:        redisClient,
			Sessions:     sessionManager,
			HTTPMetrics:  httpMetrics,
			Gatherer:     registry,
			Auth:         authService,
			Catalog:      catalogService,
			CatalogAdmin: catalogAdmin,
			Banks:        banksService,
			Engine:       engine,
			Orders:       ordersService,
			Wallet:       walletService,
			Inventory:    inventoryService,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
