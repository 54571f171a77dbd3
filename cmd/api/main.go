package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/mkarpenko/hookrelay/internal/auth"
	"github.com/mkarpenko/hookrelay/internal/config"
	"github.com/mkarpenko/hookrelay/internal/handler"
	"github.com/mkarpenko/hookrelay/internal/infra/storage"
	"github.com/mkarpenko/hookrelay/internal/infra/storage/migrations"
	"github.com/mkarpenko/hookrelay/internal/observability"
	"github.com/mkarpenko/hookrelay/internal/provider"
	"github.com/mkarpenko/hookrelay/internal/ratelimit"
	"github.com/mkarpenko/hookrelay/internal/repository"
	"github.com/mkarpenko/hookrelay/internal/service"
	"github.com/mkarpenko/hookrelay/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("storage initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("storage underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	authenticator, err := auth.NewAuthenticator(cfg.APIKey)
	if err != nil {
		logger.Fatal("authenticator initialization failed", zap.Error(err))
	}

	limiter, err := ratelimit.NewMemoryRateLimiter(
		cfg.RateLimitMax,
		time.Duration(cfg.RateLimitWindowSec)*time.Second,
	)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	telegram, err := provider.NewTelegramProvider(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		logger.Fatal("telegram provider initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	deliverer, err := service.NewDeliveryService(
		telegram,
		cfg.DeliveryMaxAttempts,
		time.Duration(cfg.DeliveryBaseDelayMS)*time.Millisecond,
		logger,
	)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}
	deliverer.SetMetrics(metrics)

	svc, err := service.NewNotificationService(repository.NewGormNotificationRepo(db), deliverer, logger)
	if err != nil {
		logger.Fatal("notification service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "hookrelay",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", metrics.Route())

	handler.RegisterHealthRoutes(app, sqlDB)
	if err := handler.RegisterWebhookRoutes(app, svc, authenticator, limiter, metrics, logger); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, svc, handler.RequireAPIKey(authenticator, metrics, logger)); err != nil {
		logger.Fatal("notification route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		if cfg.TLSEnabled() {
			logger.Info("hookrelay api listening with tls", zap.Int("port", cfg.APIPort))
			return app.ListenTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		}
		logger.Info("hookrelay api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(cfg.RateLimitWindowSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.PruneStale()
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("hookrelay api stopped with error", zap.Error(err))
	}
	logger.Info("hookrelay api stopped")
}
