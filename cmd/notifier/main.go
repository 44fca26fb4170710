package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/config"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/dispatcher"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/handler"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/infra/postgresql"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/infra/postgresql/migrations"
	infraredis "github.com/Harvey-Wallace/BandSync-sub000/internal/infra/redis"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/observability"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/queue"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/repository"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/scheduler"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/selector"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/service"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/transport"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SendRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	mail, err := newMailTransport(ctx, cfg)
	if err != nil {
		logger.Fatal("mail transport initialization failed", zap.Error(err))
	}
	logger.Info("mail transport ready", zap.String("provider", mail.Name()))

	metrics := observability.NewMetrics()

	disp, err := dispatcher.NewDispatcher(
		mail,
		limiter,
		logger,
		metrics,
		time.Duration(cfg.SendTimeoutSeconds)*time.Second,
		cfg.DispatchConcurrency,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	eventRepo := repository.NewGormEventRepo(db)
	recipientRepo := repository.NewGormRecipientRepo(db)
	ledgerRepo := repository.NewGormLedgerRepo(db)
	reportRepo := repository.NewGormReportRepo(db)

	dueSelector, err := selector.New(eventRepo, 0, 0)
	if err != nil {
		logger.Fatal("selector initialization failed", zap.Error(err))
	}

	notifier, err := service.NewNotifier(dueSelector, recipientRepo, ledgerRepo, disp, logger, metrics)
	if err != nil {
		logger.Fatal("notifier initialization failed", zap.Error(err))
	}

	watcher, err := service.NewWatcher(eventRepo, recipientRepo, reportRepo, disp, logger, metrics)
	if err != nil {
		logger.Fatal("watcher initialization failed", zap.Error(err))
	}

	sched := scheduler.NewScheduler(logger, metrics)
	if err := registerJobs(sched, cfg, notifier); err != nil {
		logger.Fatal("job registration failed", zap.Error(err))
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.ConsumerPrefetch, logger)
	defer consumer.Close()

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	handler.RegisterStatusRoutes(app, sched)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sched.Run(groupCtx)
	})

	group.Go(func() error {
		return consumer.Consume(groupCtx, queue.ChangeQueueName, watcher.HandleChange)
	})

	group.Go(func() error {
		logger.Info("status api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	logger.Info("bandsync notifier started")

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("notifier terminated", zap.Error(err))
	}

	logger.Info("bandsync notifier stopped")
}

func newMailTransport(ctx context.Context, cfg *config.Config) (transport.MailTransport, error) {
	switch cfg.MailProvider {
	case "ses":
		return transport.NewSESTransport(ctx, cfg.AWSRegion, cfg.MailSender)
	case "relay":
		return transport.NewRelayTransport(cfg.MailRelayURL, cfg.MailSender)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, notifier *service.Notifier) error {
	reminderCadence := scheduler.Every(time.Duration(cfg.ReminderScanMinutes) * time.Minute)
	if err := sched.RegisterJob("event-reminder-scan", reminderCadence, notifier.EventReminderJob); err != nil {
		return err
	}

	deadlineCadence := scheduler.DailyAt(cfg.DeadlineReminderHour, 0)
	if err := sched.RegisterJob("deadline-reminder-scan", deadlineCadence, notifier.DeadlineReminderJob); err != nil {
		return err
	}

	reportCadence := scheduler.Every(time.Duration(cfg.ReportScanMinutes) * time.Minute)
	return sched.RegisterJob("attendance-report-scan", reportCadence, notifier.AttendanceReportJob)
}
