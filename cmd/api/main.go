package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldkit/locate-service/internal/api/http"
	"github.com/fieldkit/locate-service/internal/api/http/handlers"
	"github.com/fieldkit/locate-service/internal/auth"
	"github.com/fieldkit/locate-service/internal/blob"
	"github.com/fieldkit/locate-service/internal/chat"
	"github.com/fieldkit/locate-service/internal/config"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
	"github.com/fieldkit/locate-service/internal/lifecycle"
	"github.com/fieldkit/locate-service/internal/observability"
	"github.com/fieldkit/locate-service/internal/persistence"
	"github.com/fieldkit/locate-service/internal/query"
	"github.com/fieldkit/locate-service/internal/service"
	"github.com/fieldkit/locate-service/internal/store"
	"github.com/fieldkit/locate-service/internal/store/memstore"
	"github.com/fieldkit/locate-service/internal/store/pgstore"
	"github.com/fieldkit/locate-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var docs store.Store
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		docs = pgstore.New(pool, redis.Client, logger)
	} else {
		docs = memstore.New()
	}

	gw := gateway.New(docs, logger)
	dispatcher := events.NewInMemoryDispatcher()
	manager := lifecycle.New(gw, dispatcher, nil, logger)
	synchronizer := chat.New(gw, manager, dispatcher, nil, logger)
	engine := query.New(gw, logger)

	notifications := service.NewNotificationService(dispatcher, gw, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	uploader := blob.NewDiskUploader(cfg.Storage.UploadDir, cfg.Storage.BaseURL, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, gw)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:        handlers.NewTicketsHandler(engine, manager, synchronizer),
		Messages:       handlers.NewMessagesHandler(gw, synchronizer, uploader, logger),
		Users:          handlers.NewUsersHandler(gw, dispatcher),
		AuthMiddleware: authMiddleware,
		UploadDir:      cfg.Storage.UploadDir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
