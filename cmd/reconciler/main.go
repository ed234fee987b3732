package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitmarkethq/fitmarket-backend/internal/gateway"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/internal/reconcile"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/metrics"
	"github.com/fitmarkethq/fitmarket-backend/pkg/migrate"
	"github.com/fitmarkethq/fitmarket-backend/pkg/redis"
	pkgstripe "github.com/fitmarkethq/fitmarket-backend/pkg/stripe"
)

const jobName = "refund-reconcile"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "reconciler"

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
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
	refundMetrics := metrics.NewRefundMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	refundsSvc, err := refunds.NewService(refunds.NewRepository(gdb), dbClient, refunder, inventorySvc, logg, refundMetrics, cfg.Engine)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}
	reconciler, err := reconcile.New(refundsSvc, refunder, redisClient, logg, refundMetrics, cfg.Engine)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	go serveMetrics(cfg.App.Port, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting refund reconciler")

	// The interval doubles as the stale cutoff so a refund is examined at
	// most once per window.
	ticker := time.NewTicker(cfg.Engine.ReconcileAfter)
	defer ticker.Stop()

	for {
		runOnce(ctx, reconciler, jobMetrics, logg)
		select {
		case <-ctx.Done():
			logg.Info(ctx, "reconciler shutting down gracefully")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, reconciler *reconcile.Reconciler, jobMetrics *metrics.JobMetrics, logg *logger.Logger) {
	start := time.Now()
	report, err := reconciler.Run(ctx)
	jobMetrics.ObserveDuration(jobName, time.Since(start))
	if err != nil {
		jobMetrics.IncFailure(jobName)
		logg.Error(ctx, "reconcile pass finished with errors", err)
	} else {
		jobMetrics.IncSuccess(jobName)
	}
	if report.Skipped {
		return
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"examined":  report.Examined,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"left":      report.Left,
	}), "reconcile pass complete")
}

func serveMetrics(port string, logg *logger.Logger) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
	}
}
