package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/premiumcity-backend/api/controllers"
	"github.com/angelmondragon/premiumcity-backend/api/middleware"
	"github.com/angelmondragon/premiumcity-backend/internal/auth"
	"github.com/angelmondragon/premiumcity-backend/internal/banks"
	"github.com/angelmondragon/premiumcity-backend/internal/catalog"
	"github.com/angelmondragon/premiumcity-backend/internal/inventory"
	"github.com/angelmondragon/premiumcity-backend/internal/orders"
	"github.com/angelmondragon/premiumcity-backend/internal/wallet"
	"github.com/angelmondragon/premiumcity-backend/pkg/auth/session"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/premiumcity-backend/pkg/redis"
)

// CacheStore is the redis surface the HTTP layer needs.
type CacheStore interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
	pkgredis.Pinger
}

// Params collects everything the router wires into handlers.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Cache       CacheStore
	Sessions    session.AccessSessionChecker
	HTTPMetrics middleware.HTTPObserver
	Gatherer    prometheus.Gatherer

	Auth         auth.Service
	Catalog      catalog.Service
	CatalogAdmin catalog.AdminService
	Banks        banks.Service
	Engine       controllers.OrderPlacer
	Orders       orders.Service
	Wallet       wallet.Service
	Inventory    inventory.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.Notifications.PublicBaseURL),
	)

	var (
		limiter    pkgredis.RateLimiter
		idemStore  pkgredis.IdempotencyStore
		readyCheck = map[string]controllers.Pinger{"database": p.DB}
	)
	if p.Cache != nil {
		limiter = p.Cache
		idemStore = p.Cache
		readyCheck["redis"] = p.Cache
	}
	idempotent := middleware.Idempotency(idemStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyCheck))
	})

	if cfg.FeatureFlags.Metrics {
		if p.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Throttled(middleware.LoginThrottle(cfg.AuthRateLimit), limiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(middleware.Throttled(middleware.RegisterThrottle(cfg.AuthRateLimit), limiter, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
		})

		r.Get("/categories", controllers.CatalogCategories(p.Catalog, logg))
		r.Get("/categories/{slug}", controllers.CatalogCategory(p.Catalog, logg))
		r.Get("/products/{slug}", controllers.CatalogProduct(p.Catalog, logg))
		r.Get("/banks", controllers.BankAccounts(p.Banks, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotent).Post("/", controllers.OrderCreate(p.Engine, logg))
				r.Get("/", controllers.OrderList(p.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
			})
			r.Get("/wallet", controllers.WalletOverview(p.Wallet, logg))
			r.Route("/topups", func(r chi.Router) {
				r.With(idempotent).Post("/", controllers.TopupSubmit(p.Wallet, logg))
				r.Get("/", controllers.TopupList(p.Wallet, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminOrders(p.Orders, logg))
					r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
					r.Post("/{orderId}/deliver", controllers.AdminOrderDeliver(p.Orders, logg))
					r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(p.Orders, logg))
				})
				r.Route("/topups", func(r chi.Router) {
					r.Get("/", controllers.AdminTopups(p.Wallet, logg))
					r.Post("/{topupId}", controllers.AdminTopupDecide(p.Wallet, logg))
				})
				r.Post("/wallets/{userId}/adjust", controllers.AdminWalletAdjust(p.Wallet, logg))
				r.Post("/inventory", controllers.AdminInventoryStock(p.Inventory, logg))
				r.Post("/categories", controllers.AdminCategoryCreate(p.CatalogAdmin, logg))
				r.Route("/products", func(r chi.Router) {
					r.Post("/", controllers.AdminProductCreate(p.CatalogAdmin, logg))
					r.Post("/{productId}/variants", controllers.AdminVariantCreate(p.CatalogAdmin, logg))
					r.Put("/{productId}/stock", controllers.AdminProductStock(p.CatalogAdmin, logg))
				})
				r.Post("/banks", controllers.AdminBankAccountCreate(p.Banks, logg))
			})
		})
	})

	return r
}
