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

	"github.com/driftlabs/driftpay-backend/api/routes"
	"github.com/driftlabs/driftpay-backend/internal/auth"
	checkoutsvc "github.com/driftlabs/driftpay-backend/internal/checkout"
	"github.com/driftlabs/driftpay-backend/internal/ledger"
	"github.com/driftlabs/driftpay-backend/internal/onboarding"
	"github.com/driftlabs/driftpay-backend/internal/routing"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/internal/settlement"
	stripewebhook "github.com/driftlabs/driftpay-backend/internal/webhooks/stripe"
	"github.com/driftlabs/driftpay-backend/pkg/config"
	"github.com/driftlabs/driftpay-backend/pkg/db"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/metrics"
	"github.com/driftlabs/driftpay-backend/pkg/migrate"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/redis"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	currency, err := enums.ParseCurrency(cfg.Payments.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid platform currency", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		AccountRepo: auth.NewRepository(dbClient.DB()),
		JWTConfig:   cfg.JWT,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	sellerRepo := sellers.NewRepository(dbClient.DB())
	saleRepo := checkoutsvc.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), outboxService, cfg.Payments.OnboardNotifyThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	sellerService, err := sellers.NewService(sellerRepo, ledgerService, saleRepo, settlementRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create seller service", err)
		os.Exit(1)
	}

	onboardingService, err := onboarding.NewService(sellerRepo, ledgerService, stripeClient, dbClient, outboxService, logg, cfg.Payments.ProvisionTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create onboarding service", err)
		os.Exit(1)
	}

	routingService, err := routing.NewService(stripeClient, logg, paymentMetrics, cfg.Payments.CapabilityTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create routing service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		SaleRepo:          saleRepo,
		SellerRepo:        sellerRepo,
		Onboarding:        onboardingService,
		Routing:           routingService,
		Sessions:          stripeClient,
		Ledger:            ledgerService,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Logger:            logg,
		FeeRateBp:         cfg.Payments.PlatformFeeBp,
		Currency:          currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		SellerRepo:        sellerRepo,
		SettlementRepo:    settlementRepo,
		Ledger:            ledgerService,
		Transfers:         stripeClient,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Logger:            logg,
		Metrics:           paymentMetrics,
		Currency:          currency,
		TransferTimeout:   cfg.Payments.TransferTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Checkout:   checkoutService,
		Settlement: settlementService,
		Logger:     logg,
		Metrics:    paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			sellerService,
			checkoutService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
