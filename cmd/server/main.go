// Command server starts the commerce-core HTTP server: the ambient
// liveness/readiness/metrics surface described in spec.md §1. cmd/worker
// runs the outbox dispatcher and the reservation/low-stock sweeper and
// constructs the inventory command service they use; neither binary wires
// the other aggregates' command services. This binary never dispatches a
// command over HTTP (spec.md §1 Non-goals), so it only needs the DB/Redis
// connections for its readiness checks.
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

	"github.com/redis/go-redis/v9"

	"github.com/stateset/commerce-core/internal/adapter/cache"
	"github.com/stateset/commerce-core/internal/adapter/httpserver"
	"github.com/stateset/commerce-core/internal/adapter/observability"
	"github.com/stateset/commerce-core/internal/adapter/repo/postgres"
	"github.com/stateset/commerce-core/internal/app"
	"github.com/stateset/commerce-core/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Error("redis connect failed, running without the balance cache", slog.Any("error", err))
			redisClient = nil
		}
	}

	if redisClient != nil {
		defer redisClient.Close()
	}

	checks := []httpserver.Check{
		{Name: "db", Run: app.DBCheck(pool)},
		{Name: "redis", Run: app.RedisCheck(redisClient)},
	}
	srv := httpserver.NewServer(checks...)

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
