package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/application/factories/infrastructure"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/config"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/customers"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/kafka"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/postgres"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/rabbitmq"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/projector"
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

	// Metrics Server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("projector metrics listening", "port", cfg.Projector.MetricsPort)
		http.ListenAndServe(":"+cfg.Projector.MetricsPort, mux)
	}()

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

	consumer, err := newConsumer(cfg)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	readRepo := postgres.NewReadModelRepository(pgPool)
	lookup := customers.NewClient(cfg.Customers.BaseURL)

	p := projector.New(consumer, readRepo, lookup)
	if err := p.Run(ctx); err != nil {
		logger.Error("projector stopped with error", "error", err)
	}

	logger.Info("projector exited")
}

func newConsumer(cfg *config.Config) (bus.Consumer, error) {
	if cfg.Bus.Driver == "kafka" {
		return kafka.NewConsumer(cfg.Bus.Kafka.Brokers, cfg.Bus.Kafka.Topic, cfg.Bus.Kafka.GroupID), nil
	}
	return rabbitmq.NewConsumer(cfg.Bus.AMQP.URL, cfg.Bus.AMQP.Exchange, cfg.Bus.AMQP.Queue)
}
