package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftdrop/settlement-backend/api/routes"
	"github.com/swiftdrop/settlement-backend/internal/commissions"
	"github.com/swiftdrop/settlement-backend/internal/destinations"
	"github.com/swiftdrop/settlement-backend/internal/limits"
	"github.com/swiftdrop/settlement-backend/internal/orders"
	"github.com/swiftdrop/settlement-backend/internal/payouts"
	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/db"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/migrate"
	"github.com/swiftdrop/settlement-backend/pkg/payeelock"
	"github.com/swiftdrop/settlement-backend/pkg/redis"
	"github.com/swiftdrop/settlement-backend/pkg/tiers"
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

	tiersClient, err := tiers.NewClient(cfg.Tiers)
	if err != nil {
		logg.Error(context.Background(), "failed to create tiers client", err)
		os.Exit(1)
	}

	commissionService, err := commissions.NewService(
		commissions.NewRepository(dbClient.DB()),
		dbClient,
		tiersClient,
		cfg.Settlement.PlatformFeeRate,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, commissionService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	destinationService, err := destinations.NewService(destinations.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create destination service", err)
		os.Exit(1)
	}

	limitService, err := limits.NewService(limits.NewRepository(dbClient.DB()), tiersClient, cfg.Settlement)
	if err != nil {
		logg.Error(context.Background(), "failed to create limit service", err)
		os.Exit(1)
	}

	lockManager, err := payeelock.NewManager(redisClient, cfg.Settlement.AdmissionLockTTL, cfg.Settlement.AdmissionLockWait)
	if err != nil {
		logg.Error(context.Background(), "failed to create admission lock manager", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(
		payouts.NewRepository(dbClient.DB()),
		commissions.NewRepository(dbClient.DB()),
		destinationService,
		limitService,
		lockManager,
		dbClient,
		cfg.Settlement,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

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
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Registry:     registry,
			Orders:       orderService,
			Commissions:  commissionService,
			Payouts:      payoutService,
			Limits:       limitService,
			Destinations: destinationService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
