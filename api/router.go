package api

import (
	"fmt"
	"net/http"
	"perfumery_server/api/auth"
	"perfumery_server/api/cart"
	"perfumery_server/api/debug"
	"perfumery_server/api/health"
	"perfumery_server/api/middleware"
	"perfumery_server/api/orders"
	"perfumery_server/api/products"
	"perfumery_server/config"
	"perfumery_server/services"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	chiware "github.com/go-chi/chi/v5/middleware"
)

func App(logger *gecho.Logger, cfg *structs.Config, sm *services.ServiceManager) chi.Router {
	r := chi.NewRouter()

	// request lines are logged without caller info
	mwLogger := gecho.NewLogger(gecho.NewConfig(
		gecho.WithShowCaller(false),
		gecho.WithLogLevel(gecho.ParseLogLevel(config.LogLevel(cfg.Server))),
	))

	mw := middleware.NewMiddleware(cfg, mwLogger, sm.AuthService, sm.CacheService)

	// Core infra
	r.Use(chiware.RequestID)
	r.Use(chiware.RealIP)
	r.Use(chiware.Recoverer)
	r.Use(chiware.StripSlashes)
	r.Use(chiware.Timeout(cfg.Server.RequestTimeout))

	// Limits & security
	r.Use(mw.BodyLimit(cfg.Server.BodyLimit))
	r.Use(mw.SecurityHeaders())

	// Observability
	r.Use(mw.RequestLogger())
	r.Use(middleware.MetricsMiddleware)

	// CORS (must be before auth)
	r.Use(mw.SetupCORS().Handler)
	r.Use(mw.RateLimit())

	NewRouterManager(
		products.NewProductRoutesManager(logger, cfg, sm.ProductService, mw),
		health.NewHealthRoutesManager(logger, sm.HealthService),
		auth.NewAuthRoutesManager(logger, sm.AuthService, mw),
		orders.NewOrderRoutesManager(logger, sm.OrderService, sm.PaymentService, mw),
		cart.NewCartRoutesManager(logger, sm.CartService, mw),
		debug.NewDebugRoutesManager(logger, cfg, sm.CacheService, mw),
	).RegisterRoutes(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		gecho.Success(w,
			gecho.WithMessage(fmt.Sprintf("Welcome to the %s API", cfg.Server.AppName)),
			gecho.Send(),
		)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		gecho.NotFound(w,
			gecho.WithMessage("Route not found"),
			gecho.Send(),
		)
	})

	return r
}
