package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jihoon-choi/receiptlink-backend/internal/automatch"
	"github.com/jihoon-choi/receiptlink-backend/internal/cardsync"
	"github.com/jihoon-choi/receiptlink-backend/internal/cron"
	"github.com/jihoon-choi/receiptlink-backend/internal/erp"
	"github.com/jihoon-choi/receiptlink-backend/internal/matches"
	"github.com/jihoon-choi/receiptlink-backend/internal/matching"
	"github.com/jihoon-choi/receiptlink-backend/internal/ops"
	"github.com/jihoon-choi/receiptlink-backend/internal/receipts"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
	"github.com/jihoon-choi/receiptlink-backend/pkg/metrics"
	"github.com/jihoon-choi/receiptlink-backend/pkg/migrate"
	"github.com/jihoon-choi/receiptlink-backend/pkg/outbox"
	"github.com/jihoon-choi/receiptlink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "recon-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "recon-worker"

	logg = logger.New(logger.Options{
		ServiceName: "recon-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	systemUserID, err := uuid.Parse(cfg.Matching.SystemUserID)
	if err != nil {
		logg.Error(context.Background(), "invalid RECEIPTLINK_MATCHING_SYSTEM_USER_ID", err)
		os.Exit(1)
	}

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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	automatchMetrics := metrics.NewAutoMatchMetrics(prometheus.DefaultRegisterer)

	engine, err := matching.NewEngine(matching.DefaultTaxonomy(), matching.Params{
		DateToleranceDays: cfg.Matching.DateToleranceDays,
		AmountTolerance:   cfg.Matching.AmountTolerance,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build matching engine", err)
		os.Exit(1)
	}

	receiptService, err := receipts.NewService(receipts.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipts service", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService, err := outbox.NewService(outboxRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox service", err)
		os.Exit(1)
	}

	receiptLocker, err := matches.NewReceiptLocker(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt locker", err)
		os.Exit(1)
	}

	matchService, err := matches.NewService(matches.NewRepository(dbClient.DB()), dbClient, outboxService, receiptLocker)
	if err != nil {
		logg.Error(context.Background(), "failed to create matches service", err)
		os.Exit(1)
	}

	gateway, err := erp.NewHTTPGateway(cfg.ERP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create erp gateway", err)
		os.Exit(1)
	}

	orchestrator, err := automatch.NewOrchestrator(receiptService, matchService, gateway, engine, logg, automatchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create automatch orchestrator", err)
		os.Exit(1)
	}

	automatchJob, err := cron.NewAutoMatchJob(cron.AutoMatchJobParams{
		Logger:       logg,
		Orchestrator: orchestrator,
		Matching:     cfg.Matching,
		SystemUserID: systemUserID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create automatch job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	jobs := []cron.Job{automatchJob, retentionJob}

	if cfg.CardSync.Enabled {
		shinhan, err := cardsync.NewShinhanProvider(cfg.CardSync, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create shinhan provider", err)
			os.Exit(1)
		}

		syncService, err := cardsync.NewService(
			cardsync.NewCardRepository(dbClient.DB()),
			receiptService,
			cardsync.NewRegistry(shinhan),
			cfg.CardSync,
			logg,
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create cardsync service", err)
			os.Exit(1)
		}

		cardsyncJob, err := cron.NewCardSyncJob(cron.CardSyncJobParams{
			Logger:     logg,
			Sync:       syncService,
			WindowDays: cfg.CardSync.WindowDays,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create cardsync job", err)
			os.Exit(1)
		}
		jobs = append(jobs, cardsyncJob)
	}

	lock, err := cron.NewCycleLock(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cycle lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  cronMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting recon worker")

	opsServer := &http.Server{
		Addr:    ":" + cfg.Ops.Port,
		Handler: ops.NewRouter(cfg, logg, dbClient, redisClient, nil),
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "ops server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := opsServer.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "error shutting down ops server", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "recon worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "recon worker shutting down gracefully")
}
