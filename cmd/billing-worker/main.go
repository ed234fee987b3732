package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fitmarkethq/fitmarket-backend/internal/memberships"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db"
	"github.com/fitmarkethq/fitmarket-backend/pkg/instance"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/metrics"
	"github.com/fitmarkethq/fitmarket-backend/pkg/migrate"
	"github.com/fitmarkethq/fitmarket-backend/pkg/redis"
)

const (
	jobName  = "membership-billing"
	lockName = "billing-worker"
	lockTTL  = 10 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "billing-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "billing-worker"

	logg = logger.New(logger.Options{
		ServiceName: "billing-worker",
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

	membershipsSvc, err := memberships.NewService(memberships.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create memberships service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	holder := instance.GetID() + "-" + uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting billing worker")

	ticker := time.NewTicker(cfg.Engine.BillingInterval)
	defer ticker.Stop()

	for {
		runOnce(ctx, cfg, membershipsSvc, redisClient, jobMetrics, holder, logg)
		select {
		case <-ctx.Done():
			logg.Info(ctx, "billing worker shutting down gracefully")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(
	ctx context.Context,
	cfg *config.Config,
	svc memberships.Service,
	locks *redis.Client,
	jobMetrics *metrics.JobMetrics,
	holder string,
	logg *logger.Logger,
) {
	acquired, err := locks.AcquireLock(ctx, lockName, holder, lockTTL)
	if err != nil {
		logg.Error(ctx, "acquire billing lock", err)
		return
	}
	if !acquired {
		logg.Info(ctx, "billing lock held elsewhere, skipping run")
		return
	}
	defer func() {
		if err := locks.ReleaseLock(ctx, lockName); err != nil {
			logg.Error(ctx, "release billing lock", err)
		}
	}()

	start := time.Now()
	renewed, err := svc.RenewDue(ctx, time.Now(), cfg.Engine.BillingBatchSize)
	jobMetrics.ObserveDuration(jobName, time.Since(start))
	if err != nil {
		jobMetrics.IncFailure(jobName)
		logg.Error(ctx, "billing pass finished with errors", err)
	} else {
		jobMetrics.IncSuccess(jobName)
	}
	logg.Info(logg.WithField(ctx, "renewed", renewed), "billing pass complete")
}
