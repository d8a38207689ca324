package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/investinkids/feedback-service/internal/api/http"
	"github.com/investinkids/feedback-service/internal/api/http/handlers"
	"github.com/investinkids/feedback-service/internal/auth"
	"github.com/investinkids/feedback-service/internal/config"
	"github.com/investinkids/feedback-service/internal/events"
	"github.com/investinkids/feedback-service/internal/gateway"
	"github.com/investinkids/feedback-service/internal/media"
	"github.com/investinkids/feedback-service/internal/observability"
	"github.com/investinkids/feedback-service/internal/persistence"
	"github.com/investinkids/feedback-service/internal/queue"
	"github.com/investinkids/feedback-service/internal/repository"
	"github.com/investinkids/feedback-service/internal/scheduler"
	"github.com/investinkids/feedback-service/internal/service"
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

	store, storePing, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init report store", zap.Error(err))
	}
	defer closeStore()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	notifier := buildNotifier(cfg, logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(store, notifier, cfg.Telegram.AdminChatID, logger, metrics)
	notificationService.RegisterHandlers(dispatcher)

	if cfg.Queue.URL != "" {
		publisher, err := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.QueueName, logger)
		if err != nil {
			logger.Fatal("failed to connect event queue", zap.Error(err))
		}
		defer publisher.Close()
		publisher.RegisterHandlers(dispatcher)
	}

	var mediaStore *media.Store
	if cfg.Media.Endpoint != "" {
		mediaStore, err = media.NewStore(ctx, cfg.Media, logger)
		if err != nil {
			logger.Fatal("failed to connect media store", zap.Error(err))
		}
	}

	reportService := service.NewReportService(service.ReportDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Cache:      redis.Client,
		Logger:     logger,
	})

	reminder := scheduler.NewReminderScheduler(store, notificationService, logger, metrics, scheduler.Config{
		Interval:    cfg.Reminder.Interval(),
		Threshold:   cfg.Reminder.Threshold(),
		Pause:       cfg.Reminder.Pause(),
		RemindedCap: cfg.Reminder.RemindedCap,
	})
	go reminder.Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(map[string]func(context.Context) error{
		"store": storePing,
		"redis": redis.Ping,
	}, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Reports:        handlers.NewReportsHandler(reportService),
		Attachments:    handlers.NewAttachmentsHandler(mediaStore),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

// buildStore opens the configured backend and returns the store, a
// readiness probe and a close func.
func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.ReportStore, func(context.Context) error, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Store.Postgres, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Store.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, nil, err
			}
		}
		store := repository.NewPostgresReportStore(pg.PoolHandle())
		return store, pg.PoolHandle().Ping, pg.Close, nil
	default:
		db, err := persistence.NewSQLite(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using sqlite report store", zap.String("path", cfg.Store.SQLite.Path))
		store := repository.NewSQLiteReportStore(db)
		return store, db.PingContext, closeDB(db), nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() {
		_ = db.Close()
	}
}

// buildNotifier prefers the real Telegram gateway; in development a failed
// bot authentication falls back to log-only delivery so the service can run
// offline.
func buildNotifier(cfg *config.Config, logger *zap.Logger) gateway.Notifier {
	notifier, err := gateway.NewTelegramNotifier(cfg.Telegram.BotToken, logger)
	if err != nil {
		if cfg.App.Env == "development" {
			logger.Warn("telegram unavailable, using log notifier", zap.Error(err))
			return gateway.NewLogNotifier(logger)
		}
		logger.Fatal("failed to authorize telegram bot", zap.Error(err))
	}
	return notifier
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
