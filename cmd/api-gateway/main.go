package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/qongirat/appeals-api/internal/handler"
	"github.com/qongirat/appeals-api/internal/notifier"
	"github.com/qongirat/appeals-api/internal/repository"
	"github.com/qongirat/appeals-api/internal/service"
	"github.com/qongirat/appeals-api/pkg/cache"
	"github.com/qongirat/appeals-api/pkg/config"
	"github.com/qongirat/appeals-api/pkg/database"
	"github.com/qongirat/appeals-api/pkg/jobs"
	"github.com/qongirat/appeals-api/pkg/logger"
	"github.com/qongirat/appeals-api/pkg/storage"
)

// @title Appeals API
// @version 1.0.0
// @description Citizen appeal management backend for municipal organizations
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Statistics.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, statistics cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("uploads directory unavailable", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	regionRepo := repository.NewRegionRepository(db)
	appealRepo := repository.NewAppealRepository(db)
	intakeRepo := repository.NewIntakeRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, true)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "appeals-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	orgSvc := service.NewOrgService(orgRepo, userRepo, validate, logr)
	regionSvc := service.NewRegionService(regionRepo, validate, logr)
	exportSvc := service.NewExportService(appealRepo, logr)
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, cfg.Statistics.CacheTTL, logr)

	var botNotifier service.Notifier
	if cfg.Bot.Enabled {
		botNotifier = notifier.NewTelegramClient(cfg.Bot.APIBaseURL, cfg.Bot.Token, cfg.Bot.Timeout, logr)
	} else {
		botNotifier = notifier.NoopNotifier{}
	}
	deliverySvc := service.NewDeliveryService(appealRepo, store, botNotifier, logr)
	deliveryQueue := jobs.NewQueue("answer-delivery", deliverySvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Bot.WorkerCount,
		MaxRetries: cfg.Bot.WorkerRetries,
		Logger:     logr,
	})

	workflowSvc := service.NewWorkflowService(appealRepo, intakeRepo, deliveryQueue, metricsSvc, validate, logr)
	appealSvc := service.NewAppealService(appealRepo, intakeRepo, validate, logr, cfg.Appeals.DefaultDeadline)
	intakeSvc := service.NewIntakeService(intakeRepo, appealRepo, deliveryQueue, validate, logr)

	router := &handler.Router{
		Config:  cfg,
		Logger:  logr,
		Auth:    authSvc,
		Metrics: metricsSvc,
		Pinger:  db,

		AuthHandler:    handler.NewAuthHandler(authSvc),
		UserHandler:    handler.NewUserHandler(userSvc),
		OrgHandler:     handler.NewOrgHandler(orgSvc),
		RegionHandler:  handler.NewRegionHandler(regionSvc),
		AppealHandler:  handler.NewAppealHandler(appealSvc, workflowSvc, exportSvc),
		IntakeHandler:  handler.NewIntakeHandler(intakeSvc, store, cfg.Uploads.IntakeMaxBytes),
		StatsHandler:   handler.NewStatsHandler(statsSvc),
		FileHandler:    handler.NewFileHandler(store, signer, cfg.Uploads.MaxFileSizeBytes),
		MetricsHandler: handler.NewMetricsHandler(metricsSvc),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveryQueue.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	deliveryQueue.Stop()
	logr.Sugar().Infow("server stopped")
}
