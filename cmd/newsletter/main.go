package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"newsletter/internal/api"
	"newsletter/internal/config"
	"newsletter/internal/digest"
	"newsletter/internal/feed"
	"newsletter/internal/lock"
	"newsletter/internal/mailer"
	"newsletter/internal/publisher"
	"newsletter/internal/scheduler"
	"newsletter/internal/service"
	"newsletter/internal/storage/postgres"
)

type options struct {
	Config string `short:"c" long:"config" env:"NEWSLETTER_CONFIG" default:"config.yaml" description:"Path to config file"`
	Once   bool   `long:"once" description:"Send the newsletter once and exit"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
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
	logger.Info("connected to database")

	version, err := postgres.RunMigrations(db)
	if err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database schema ready", "version", version)

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
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
		pub = rabbitMQ
	}

	runLock, closeLock, err := buildLock(cfg, logger)
	if err != nil {
		logger.Error("failed to set up run lock", "error", err)
		os.Exit(1)
	}
	defer closeLock()

	contactStore := postgres.NewContactStore(db)
	logStore := postgres.NewEmailLogStore(db)
	eventStore := postgres.NewEventStore(db)
	txManager := postgres.NewTransactionManager(db)

	source := buildSource(cfg, logger)

	renderer := digest.NewRenderer(digest.RendererConfig{
		Brand:        cfg.Digest.Brand,
		BaseURL:      cfg.Digest.BaseURL,
		SiteURL:      cfg.Digest.SiteURL,
		ContactEmail: cfg.Digest.ContactEmail,
	})

	newsletterService := service.NewNewsletterService(
		source,
		contactStore,
		logStore,
		renderer,
		buildMailer(cfg),
		pub,
		runLock,
		logger,
		service.NewsletterConfig{
			Brand:         cfg.Digest.Brand,
			From:          cfg.Mail.From,
			MaxArticles:   cfg.Digest.MaxArticles,
			Concurrency:   cfg.Delivery.Concurrency,
			RatePerSecond: cfg.Delivery.RatePerSecond,
		},
	)
	trackingService := service.NewTrackingService(logStore, eventStore, txManager, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.Once {
		runCtx, cancelRun := context.WithTimeout(ctx, cfg.Schedule.RunTimeout)
		defer cancelRun()

		result, err := newsletterService.Run(runCtx)
		if err != nil {
			logger.Error("newsletter run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("newsletter run finished",
			"outcome", result.Outcome,
			"sent", result.Sent,
			"failed", result.Failed,
		)
		return
	}

	handler := api.NewHandler(newsletterService, trackingService, db, cfg.Schedule.RunTimeout, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           api.NewServer(handler, cfg.HTTP.APIKey, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", httpServer.Addr, "auth", cfg.HTTP.APIKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.Schedule.Interval > 0 {
		sched := scheduler.NewScheduler(newsletterService, cfg.Schedule.Interval, cfg.Schedule.RunTimeout, logger)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler error", "error", err)
			}
		}()
	} else {
		logger.Info("scheduler disabled, runs are triggered over http only")
	}

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("newsletter service stopped")
}

func buildSource(cfg *config.Config, logger *slog.Logger) *feed.Source {
	fetcher := feed.NewFetcher(feed.FetcherConfig{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, logger)

	var parser feed.Parser = feed.NewRegexParser()
	if cfg.Fetch.Parser == "gofeed" {
		parser = feed.NewGofeedParser()
	}

	filter := feed.NewKeywordFilter(cfg.Digest.Keywords, cfg.Digest.MaxPerFeed, cfg.Digest.DescriptionLength)

	return feed.NewSource(fetcher, parser, filter, cfg.SourceFeeds(), logger)
}

func buildMailer(cfg *config.Config) service.Mailer {
	if cfg.Mail.Provider == "smtp" {
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		})
	}
	return mailer.NewResend(mailer.ResendConfig{
		APIKey:   cfg.Mail.Resend.APIKey,
		Endpoint: cfg.Mail.Resend.Endpoint,
		Timeout:  cfg.Mail.Resend.Timeout,
	})
}

// buildLock returns a Redis lock when Redis is configured, otherwise an in-process one.
func buildLock(cfg *config.Config, logger *slog.Logger) (service.RunLock, func(), error) {
	if cfg.Redis.Addr == "" {
		return lock.NewLocalLock(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("using redis run lock", "addr", cfg.Redis.Addr, "key", cfg.Redis.LockKey)
	return lock.NewRedisLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, logger), func() { client.Close() }, nil
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
