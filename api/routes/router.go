package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/elitejewels-backend/api/controllers"
	"github.com/angelmondragon/elitejewels-backend/api/controllers/admin"
	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/pkg/auth/session"
	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
)

// KeyValueStore is the redis surface the rate limit and idempotency
// middleware need. Leaving it nil disables both.
type KeyValueStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Params carries everything the router wires. Nil services answer with an
// internal error rather than panicking.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Storefront
	Gatherer prometheus.Gatherer
	Health   map[string]controllers.Pinger
	Store    KeyValueStore
	Sessions session.AccessSessionChecker

	Auth          controllers.AuthService
	SessionStores controllers.SessionStoreFactory
	Catalog       controllers.CatalogService
	Cart          controllers.CartService
	Favorites     controllers.FavoritesService
	Orders        controllers.OrdersService
	Rates         controllers.RatesReader

	AdminCatalog admin.CatalogService
	AdminOrders  admin.OrdersService
	AdminRates   admin.RatesPublisher
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)
	r.NotFound(responses.WriteNotFound)
	r.MethodNotAllowed(responses.WriteNotFound)

	rl := cfg.AuthRateLimit
	otpLimit := authRateLimit(middleware.NewAuthRateLimitPolicy("otp", rl.OTPWindow, rl.OTPIPLimit, rl.OTPPhoneLimit), p.Store, logg)
	loginLimit := authRateLimit(middleware.NewAuthRateLimitPolicy("login", rl.LoginWindow, rl.LoginIPLimit, rl.LoginPhoneLimit), p.Store, logg)
	idempotent := middleware.Idempotency(nil, logg)
	if p.Store != nil {
		idempotent = middleware.Idempotency(p.Store, logg)
	}
	requireAuth := middleware.Auth(cfg.JWT, p.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, p.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Health))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(otpLimit).Post("/otp", controllers.AuthRequestOTP(p.Auth, logg))
			r.With(otpLimit).Post("/otp/resend", controllers.AuthResendOTP(p.Auth, logg))
			r.With(loginLimit).Post("/otp/verify", controllers.AuthVerifyOTP(p.Auth, logg))
			r.With(otpLimit).Post("/signup", controllers.AuthSignUp(p.Auth, logg))
			r.With(loginLimit).Post("/signup/verify", controllers.AuthVerifySignup(p.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthPasswordLogin(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.SessionLogout(p.SessionStores, logg))
			if cfg.FeatureFlags.DemoAuth && p.SessionStores != nil {
				r.Post("/demo", controllers.SessionDemo(p.SessionStores))
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/session", controllers.SessionRestore(p.SessionStores, logg))
			r.Post("/session/login", controllers.SessionLogin(p.SessionStores, logg))
			r.Get("/session/events", controllers.SessionEvents(p.SessionStores, logg))

			r.Get("/catalog/taxonomy", controllers.CatalogTaxonomy())
			r.Get("/catalog/new-arrivals", controllers.CatalogNewArrivals(p.Catalog, logg))
			r.Get("/catalog/{material}", controllers.CatalogBrowse(p.Catalog, logg))
			r.Post("/catalog/{material}/view-more", controllers.CatalogViewMore(p.Catalog, logg))
			r.Get("/rates", controllers.MarketRates(p.Rates, logg))
			r.Get("/contact", controllers.ContactHandoff(p.Orders, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Use(middleware.RequireDeviceID(logg))
			r.Get("/", controllers.FavoritesList(p.Favorites, logg))
			r.Post("/", controllers.FavoritesAdd(p.Favorites, logg))
			r.Post("/toggle", controllers.FavoritesToggle(p.Favorites, logg))
			r.Get("/{productId}", controllers.FavoritesContains(p.Favorites, logg))
			r.Delete("/{productId}", controllers.FavoritesRemove(p.Favorites, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Cart, logg))
				r.Post("/items", controllers.CartAdd(p.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateQuantity(p.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemove(p.Cart, logg))
				r.Delete("/", controllers.CartClear(p.Cart, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(p.Orders, p.SessionStores, logg))
				r.With(idempotent).Post("/", controllers.OrdersCreate(p.Orders, p.Cart, p.SessionStores, logg))
				r.Get("/{orderId}/inquiry", controllers.OrdersInquiry(p.Orders, p.SessionStores, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", admin.ListProducts(p.AdminCatalog, logg))
			r.Post("/", admin.CreateProduct(p.AdminCatalog, cfg.Media.MaxUploadBytes(), logg))
		})
		r.Post("/new-arrivals", admin.CreateNewArrival(p.AdminCatalog, cfg.Media.MaxUploadBytes(), logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admin.ListOrders(p.AdminOrders, logg))
			r.With(idempotent).Post("/", admin.CreateOrder(p.AdminOrders, logg))
			r.Patch("/{orderId}", admin.UpdateOrder(p.AdminOrders, logg))
			r.Delete("/{orderId}", admin.DeleteOrder(p.AdminOrders, logg))
		})
		r.Get("/profiles/phones", admin.ProfilePhones(p.AdminOrders, logg))
		r.Post("/rates", admin.PublishRates(p.AdminRates, logg))
	})

	return r
}

func authRateLimit(policy middleware.AuthRateLimitPolicy, store KeyValueStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return middleware.AuthRateLimit(policy, nil, logg)
	}
	return middleware.AuthRateLimit(policy, store, logg)
}
