package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	redisGo "github.com/redis/go-redis/v9"

	"github.com/foliotrack/backend/internal/config"
	httpDelivery "github.com/foliotrack/backend/internal/delivery/http"
	"github.com/foliotrack/backend/internal/messaging"
	"github.com/foliotrack/backend/internal/messaging/kafka"
	"github.com/foliotrack/backend/internal/outbox"
	"github.com/foliotrack/backend/internal/projection"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/service"
	"github.com/foliotrack/backend/internal/storage/postgres"
	redisStore "github.com/foliotrack/backend/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Environment != "production" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// --- Redis (login logs) ---
	redisClient := redisGo.NewClient(&redisGo.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	loginLogs := redisStore.NewListStore(redisClient, "login-log")

	// --- Storage core ---
	ob := outbox.NewPostgres(db)
	store := postgres.NewEventStore(db, ob)
	blobs := postgres.NewBlobStore(db)

	portfolioRepo := repository.NewPortfolioStorage(store)
	alertsRepo := repository.NewAlertsStorage(store)
	accountRepo := repository.NewAccountStorage(store, loginLogs)

	// --- Downstream consumers ---
	publisher, subscriber := kafka.NewKafkaBroker(cfg.KafkaBrokers)
	dispatcher := outbox.NewDispatcher(db, outbox.DispatcherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		BaseDelay:    cfg.OutboxBaseDelay,
	},
		projection.NewSummaryProjector(portfolioRepo, blobs),
		messaging.NewEventPublisher(publisher, cfg.KafkaTopicPrefix),
	)

	// --- Services ---
	portfolioSvc := service.NewPortfolioService(portfolioRepo)
	alertsSvc := service.NewAlertsService(alertsRepo)
	accountSvc := service.NewAccountService(accountRepo)

	priceConsumer := messaging.NewPriceConsumer(subscriber, alertsSvc, cfg.PriceTopic, cfg.ConsumerGroup)

	// --- HTTP API ---
	handler := httpDelivery.NewHandler(portfolioSvc, alertsSvc, accountSvc, blobs, store)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpDelivery.EnableCORS(mux),
	}

	// --- Start everything ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go dispatcher.Run(ctx)
	go priceConsumer.Run(ctx)

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")
	httpServer.Shutdown(context.Background())
}
