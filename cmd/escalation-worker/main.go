package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/cron"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/escalation"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/metrics"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/migrate"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/redis"
)

const lockKeyFormat = "dispatch:escalation-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "escalation-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "escalation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "escalation-worker",
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

	job, err := escalation.NewJob(escalation.JobParams{
		Logger:    logg,
		DB:        dbClient,
		Orders:    dispatch.NewRepository(dbClient.DB()),
		Trackings: tracking.NewRepository(dbClient.DB()),
		Threshold: cfg.Escalation.Threshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escalation job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Escalation.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Escalation.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker loop", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting escalation worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "escalation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "escalation worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
