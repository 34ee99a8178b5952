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
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/kafka"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/postgres"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/rabbitmq"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/relay"
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
		logger.Info("relay metrics listening", "port", cfg.Relay.MetricsPort)
		http.ListenAndServe(":"+cfg.Relay.MetricsPort, mux)
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

	publisher, err := newPublisher(cfg)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	outboxRepo := postgres.NewOutboxRepository(pgPool)
	r := relay.New(outboxRepo, publisher, cfg.Relay.PollInterval, cfg.Relay.BatchSize)

	if err := r.Run(ctx); err != nil {
		logger.Error("relay stopped with error", "error", err)
	}

	logger.Info("relay exited")
}

func newPublisher(cfg *config.Config) (bus.Publisher, error) {
	if cfg.Bus.Driver == "kafka" {
		return kafka.NewProducer(kafka.Config{
			Brokers: cfg.Bus.Kafka.Brokers,
			Topic:   cfg.Bus.Kafka.Topic,
		}), nil
	}
	return rabbitmq.NewPublisher(cfg.Bus.AMQP.URL, cfg.Bus.AMQP.Exchange)
}
