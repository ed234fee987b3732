package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fitmarkethq/fitmarket-backend/api/routes"
	"github.com/fitmarkethq/fitmarket-backend/internal/downloads"
	"github.com/fitmarkethq/fitmarket-backend/internal/gateway"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/internal/ledger"
	"github.com/fitmarkethq/fitmarket-backend/internal/memberships"
	"github.com/fitmarkethq/fitmarket-backend/internal/orders"
	"github.com/fitmarkethq/fitmarket-backend/internal/pickup"
	"github.com/fitmarkethq/fitmarket-backend/internal/products"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/internal/sellers"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/metrics"
	"github.com/fitmarkethq/fitmarket-backend/pkg/migrate"
	"github.com/fitmarkethq/fitmarket-backend/pkg/redis"
	pkgstripe "github.com/fitmarkethq/fitmarket-backend/pkg/stripe"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
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
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	refunder, err := gateway.NewStripeRefunder(stripeClient, cfg.Stripe.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund gateway", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()

	sellersSvc, err := sellers.NewService(sellers.NewRepository(gdb))
	if err != nil {
		fatal(logg, "sellers service", err)
	}
	productsSvc, err := products.NewService(products.NewRepository(gdb), sellersSvc)
	if err != nil {
		fatal(logg, "products service", err)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb), dbClient)
	if err != nil {
		fatal(logg, "inventory service", err)
	}
	downloadsSvc, err := downloads.NewService(downloads.NewRepository(gdb))
	if err != nil {
		fatal(logg, "downloads service", err)
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(gdb), dbClient, inventorySvc, downloadsSvc, logg, cfg.Engine)
	if err != nil {
		fatal(logg, "orders service", err)
	}
	refundMetrics := metrics.NewRefundMetrics(prometheus.DefaultRegisterer)
	refundsSvc, err := refunds.NewService(refunds.NewRepository(gdb), dbClient, refunder, inventorySvc, logg, refundMetrics, cfg.Engine)
	if err != nil {
		fatal(logg, "refunds service", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb), cfg.Engine)
	if err != nil {
		fatal(logg, "ledger service", err)
	}
	pickupSvc, err := pickup.NewService(pickup.NewRepository(gdb))
	if err != nil {
		fatal(logg, "pickup service", err)
	}
	membershipsSvc, err := memberships.NewService(memberships.NewRepository(gdb), dbClient, logg)
	if err != nil {
		fatal(logg, "memberships service", err)
	}

	router := routes.NewRouter(routes.Deps{
		Cfg:         cfg,
		Logg:        logg,
		DB:          dbClient,
		Cache:       redisClient,
		Limiter:     redisClient,
		Orders:      ordersSvc,
		Refunds:     refundsSvc,
		Ledger:      ledgerSvc,
		Products:    productsSvc,
		Sellers:     sellersSvc,
		Inventory:   inventorySvc,
		Pickup:      pickupSvc,
		Memberships: membershipsSvc,
		Downloads:   downloadsSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func fatal(logg *logger.Logger, what string, err error) {
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
