package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/api"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/application/factories/infrastructure"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/config"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/postgres"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/usecase"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	if err := postgres.EnsureSchema(ctx, pgPool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it the API loses request idempotency and
	// the read-list cache, not correctness.
	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", "error", err)
		redisClient = nil
	}

	// Repositories
	orderRepo := postgres.NewOrderRepository(pgPool)
	outboxRepo := postgres.NewOutboxRepository(pgPool)
	readRepo := postgres.NewReadModelRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)

	// UseCases
	createOrderUC := usecase.NewCreateOrder(txManager, orderRepo, outboxRepo)
	listOrdersUC := usecase.NewListOrders(orderRepo)
	listReadOrdersUC := usecase.NewListReadOrders(redisClient, readRepo)

	handlers := api.NewHandlers(createOrderUC, listOrdersUC, listReadOrdersUC)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: api.NewRouter(handlers, redisClient),
	}

	go func() {
		logger.Info("orders API starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exiting")
}
