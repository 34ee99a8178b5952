package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/application/factories/infrastructure"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/config"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/customers"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/postgres"
)

func main() {
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

	customerRepo := postgres.NewCustomerRepository(pgPool)
	if err := customerRepo.Seed(ctx); err != nil {
		logger.Error("failed to seed customers", "error", err)
		os.Exit(1)
	}

	handlers := customers.NewHandlers(customerRepo)
	srv := &http.Server{
		Addr:    ":" + cfg.Customers.HTTPPort,
		Handler: customers.NewRouter(handlers),
	}

	go func() {
		logger.Info("customers API starting", "port", cfg.Customers.HTTPPort)
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
