package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/routes"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/settlement"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/migrate"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/payos"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/redis"
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

	gateway, err := payos.NewClient(context.Background(), cfg.PayOS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	dispatchRepo := dispatch.NewRepository(dbClient.DB())
	trackingRepo := tracking.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())

	trackingService, err := tracking.NewService(trackingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlementRepo, dispatchRepo, gateway, dbClient, cfg.Commission, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(dispatchRepo, trackingRepo, dbClient, settlementService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			dispatchService, trackingService, settlementService, gateway),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
