// Package main provides the worker process entry point. The worker owns
// every background component that is not the ambient HTTP surface: the
// transactional outbox dispatcher (C3), its Kafka/Redpanda sink, and the
// reservation-expiry/low-stock sweeper (spec.md §5).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stateset/commerce-core/internal/adapter/cache"
	"github.com/stateset/commerce-core/internal/adapter/observability"
	"github.com/stateset/commerce-core/internal/adapter/repo/postgres"
	"github.com/stateset/commerce-core/internal/adapter/sink/kafka"
	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/config"
	"github.com/stateset/commerce-core/internal/eventbus"
	"github.com/stateset/commerce-core/internal/inventory"
	"github.com/stateset/commerce-core/internal/outbox"
	"github.com/stateset/commerce-core/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sink, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
	if err != nil {
		slog.Error("kafka sink init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer sink.Close()

	bus := eventbus.New(cfg.EventBusBufferSize)
	defer bus.Close()

	outboxRepo := postgres.NewOutboxRepo(pool)
	outboxWorker := outbox.New(outboxRepo, bus, sink, outbox.Config{
		BatchSize:   cfg.OutboxClaimBatch,
		PollEvery:   cfg.OutboxPollInterval,
		MaxAttempts: cfg.OutboxMaxAttempts,
		BaseBackoff: cfg.OutboxBaseBackoff,
		Jitter:      time.Duration(cfg.OutboxJitterMillis) * time.Millisecond,
	}, logger)

	outboxCtx, cancelOutbox := context.WithCancel(ctx)
	defer cancelOutbox()
	go outboxWorker.Run(outboxCtx)
	slog.Info("outbox worker started")

	invRepo := postgres.NewInventoryRepo(pool)
	gw := postgres.NewGateway(pool)
	invDeps := command.Deps{Gateway: gw, Outbox: outboxRepo, Bus: bus}
	invSvc := inventory.NewService(invDeps, invRepo, cfg.ReservationDefaultDurationDays, cfg.LowStockThreshold)

	if cfg.RedisURL != "" {
		redisClient, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Warn("balance cache disabled, redis connect failed", slog.Any("error", err))
		} else {
			defer redisClient.Close()
			balCache := cache.New(redisClient, cfg.CacheTTL)
			balCache.Subscribe(bus)
			invSvc.AttachCache(balCache)
			slog.Info("balance cache enabled")
		}
	}

	scheduler, err := sweeper.NewScheduler(cfg.RedisURL, cronSpec(cfg), cronSpec(cfg))
	if err != nil {
		slog.Error("sweeper scheduler init failed", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("sweeper scheduler stopped", slog.Any("error", err))
		}
	}()

	sweeperWorker, err := sweeper.NewWorker(cfg.RedisURL, invSvc, invRepo, bus, cfg.LowStockThreshold)
	if err != nil {
		slog.Error("sweeper worker init failed", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		if err := sweeperWorker.Start(ctx); err != nil {
			slog.Error("sweeper worker stopped", slog.Any("error", err))
		}
	}()
	defer sweeperWorker.Stop()

	slog.Info("worker started successfully, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	slog.Info("worker stopped")
}

// cronSpec turns the single SWEEPER_INTERVAL duration into an asynq cron
// spec of the form "@every <dur>" shared by both periodic tasks.
func cronSpec(cfg config.Config) string {
	return "@every " + cfg.SweeperInterval.String()
}
