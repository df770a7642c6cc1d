package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"feed_poster/internal/admin"
	"feed_poster/internal/config"
	"feed_poster/internal/delivery"
	"feed_poster/internal/filter"
	"feed_poster/internal/pipeline"
	"feed_poster/internal/publisher"
	"feed_poster/internal/scheduler"
	"feed_poster/internal/service"
	"feed_poster/internal/source/rsshub"
	"feed_poster/internal/storage/postgres"
	"feed_poster/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to authorize telegram bot", "error", err)
		os.Exit(1)
	}
	logger.Info("authorized telegram bot", "username", bot.Self.UserName)

	// Initialize stores
	settingStore := postgres.NewSettingStore(db)
	deliveredStore := postgres.NewDeliveredStore(db)
	userStore := postgres.NewUserStore(db)
	txManager := postgres.NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional delivery-event stream
	var events worker.EventPublisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	var scorer pipeline.Scorer
	if cfg.Images.SafetyEndpoint != "" {
		scorer = pipeline.NewHTTPScorer(cfg.Images.SafetyEndpoint, cfg.Images.FetchTimeout)
	}
	images := pipeline.New(pipeline.Config{
		MinDimension: cfg.Images.MinDimension,
		MaxDimension: cfg.Images.MaxDimension,
		JPEGQuality:  cfg.Images.JPEGQuality,
		MaxFileSize:  cfg.Images.MaxFileSize,
		FetchTimeout: cfg.Images.FetchTimeout,
	}, scorer, cfg.Images.SafetyThreshold, logger)

	var operatorID int64
	if len(cfg.Telegram.AdminIDs) > 0 {
		operatorID = cfg.Telegram.AdminIDs[0]
	}
	deliverer := delivery.New(bot, delivery.Config{
		ChannelID:   cfg.Telegram.ChannelID,
		MaxAttempts: cfg.Telegram.MaxAttempts,
		PacingDelay: cfg.Telegram.PacingDelay,
		OperatorID:  operatorID,
	}, logger)

	queue := worker.NewQueue(cfg.Workers.QueueSize)
	pool := worker.NewPool(queue, deliveredStore, txManager, images, deliverer, events, cfg.Workers.Count, logger)

	delivered, err := deliveredStore.List(ctx)
	if err != nil {
		logger.Error("failed to load delivered guids", "error", err)
		os.Exit(1)
	}
	pool.Seed(delivered)
	logger.Info("seeded dedup set", "guids", len(delivered))

	fetcher := rsshub.New(rsshub.Config{
		BaseURL:       cfg.Feed.BaseURL,
		Timeout:       cfg.Feed.Timeout,
		MaxAttempts:   cfg.Feed.MaxAttempts,
		RetryInterval: cfg.Feed.RetryInterval,
	}, logger)

	cycle := service.NewCycleService(
		userStore,
		settingStore,
		fetcher,
		filter.New(deliveredStore, logger),
		queue,
		service.Config{
			Cutoff:        cfg.Cycle.Cutoff,
			DefaultUserID: cfg.Feed.DefaultUserID,
		},
		logger,
	)

	sched := scheduler.New(cycle, deliverer, cfg.Cycle.Interval, cfg.Cycle.Timeout, logger)

	adminHandler := admin.New(bot, userStore, deliveredStore, deliverer, cfg.Telegram.AdminIDs, logger)
	go adminHandler.Run(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	pool.Start(ctx)

	logger.Info("starting feed poster",
		"interval", cfg.Cycle.Interval,
		"workers", cfg.Workers.Count,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
	}

	// Stop intake, let workers finish in-flight batches.
	queue.Close()
	pool.Wait()
	logger.Info("shutdown complete")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
