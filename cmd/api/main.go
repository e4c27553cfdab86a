package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/Luffyt01/HemoLink/internal/config"
	"github.com/Luffyt01/HemoLink/internal/directory"
	"github.com/Luffyt01/HemoLink/internal/handler"
	"github.com/Luffyt01/HemoLink/internal/infra/postgresql"
	"github.com/Luffyt01/HemoLink/internal/infra/postgresql/migrations"
	infraredis "github.com/Luffyt01/HemoLink/internal/infra/redis"
	"github.com/Luffyt01/HemoLink/internal/observability"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/Luffyt01/HemoLink/internal/service"
	"github.com/Luffyt01/HemoLink/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	requestRepo := repository.NewGormRequestRepo(db)
	donationRepo := repository.NewGormDonationRepo(db)
	matchLogRepo := repository.NewGormMatchLogRepo(db)

	userDirectory, err := directory.NewUserServiceClient(cfg.UserServiceURL)
	if err != nil {
		logger.Fatal("user service client init failed", zap.Error(err))
	}
	osrm, err := directory.NewOSRMClient(cfg.OSRMURL)
	if err != nil {
		logger.Fatal("osrm client init failed", zap.Error(err))
	}
	donorHold := infraredis.NewDonorHold(rdb, 0)

	requestService, err := service.NewRequestService(requestRepo, userDirectory, logger)
	if err != nil {
		logger.Fatal("request service init failed", zap.Error(err))
	}
	requestService.SetMetrics(metrics)

	matchingService, err := service.NewMatchingService(requestRepo, matchLogRepo, donationRepo, userDirectory, osrm, logger)
	if err != nil {
		logger.Fatal("matching service init failed", zap.Error(err))
	}
	matchingService.SetMetrics(metrics)

	donationService, err := service.NewDonationService(donationRepo, requestRepo, userDirectory, donorHold, logger)
	if err != nil {
		logger.Fatal("donation service init failed", zap.Error(err))
	}
	donationService.SetMetrics(metrics)

	matchLogService, err := service.NewMatchLogService(matchLogRepo, logger)
	if err != nil {
		logger.Fatal("match log service init failed", zap.Error(err))
	}

	sweeper, err := service.NewExpirySweeper(requestService, cfg.SweepInterval, logger)
	if err != nil {
		logger.Fatal("expiry sweeper init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterRequestRoutes(app, requestService); err != nil {
		logger.Fatal("request routes init failed", zap.Error(err))
	}
	if err := handler.RegisterPairingRoutes(app, matchingService, donationService); err != nil {
		logger.Fatal("pairing routes init failed", zap.Error(err))
	}
	if err := handler.RegisterDonationRoutes(app, donationService); err != nil {
		logger.Fatal("donation routes init failed", zap.Error(err))
	}
	if err := handler.RegisterMatchLogRoutes(app, matchLogService); err != nil {
		logger.Fatal("match log routes init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("hemolink api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}
