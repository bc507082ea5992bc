package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftlabs/driftpay-backend/api/controllers"
	webhookcontrollers "github.com/driftlabs/driftpay-backend/api/controllers/webhooks"
	"github.com/driftlabs/driftpay-backend/api/middleware"
	"github.com/driftlabs/driftpay-backend/internal/auth"
	checkoutsvc "github.com/driftlabs/driftpay-backend/internal/checkout"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	stripewebhook "github.com/driftlabs/driftpay-backend/internal/webhooks/stripe"
	"github.com/driftlabs/driftpay-backend/pkg/config"
	"github.com/driftlabs/driftpay-backend/pkg/db"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/redis"
	"github.com/driftlabs/driftpay-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	authService auth.Service,
	sellerService sellers.Service,
	checkoutService checkoutsvc.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client wrapped in an interface is not a nil interface, so
	// resolve the optional cache dependencies before handing them down.
	var cachePinger db.Pinger
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		cachePinger = redisClient
		idempotencyStore = redisClient
	}

	tokenPolicy := middleware.NewAuthRateLimitPolicy(
		"token",
		cfg.AuthRateLimit.TokenWindow,
		cfg.AuthRateLimit.TokenIPLimit,
		cfg.AuthRateLimit.TokenClientLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, controllers.ReadinessDeps(dbP, cachePinger)))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(tokenPolicy, redisClient, logg)).Post("/token", controllers.AuthToken(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/sellers", controllers.SellerRegister(sellerService, logg))
		r.Get("/sellers/{sellerID}", controllers.SellerGet(sellerService, logg))
		r.Get("/sellers/{sellerID}/sales", controllers.SellerSales(sellerService, logg))
		r.Get("/sellers/{sellerID}/settlements", controllers.SellerSettlements(sellerService, logg))

		r.Post("/checkout/sessions", controllers.CheckoutCreateSession(checkoutService, logg))
	})

	return r
}
