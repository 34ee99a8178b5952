// Package relay moves committed outbox rows to the message bus. It is the
// at-least-once half of the pipeline: a crash between publish and
// mark-processed republishes on the next cycle, and consumers are expected to
// dedup. A single relay instance is assumed; nothing here takes a lease.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/outbox"
)

var (
	messagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbox_messages_published_total",
		Help: "The total number of outbox messages published to the bus",
	})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbox_publish_errors_total",
		Help: "The total number of failed publish attempts",
	})
)

type Relay struct {
	outboxRepo   outbox.Repository
	publisher    bus.Publisher
	pollInterval time.Duration
	batchSize    int
}

func New(outboxRepo outbox.Repository, publisher bus.Publisher, pollInterval time.Duration, batchSize int) *Relay {
	return &Relay{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	slog.Info("outbox relay started", "poll_interval", r.pollInterval, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Transient store or bus failures are absorbed here; the
				// unprocessed rows stay in the outbox until the next cycle.
				slog.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

// processBatch publishes unprocessed rows in ascending id order, then marks
// everything published in one batch update. Publishing stops at the first
// failure so a retried row is never published behind its successors.
func (r *Relay) processBatch(ctx context.Context) error {
	messages, err := r.outboxRepo.FetchUnprocessed(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("fetch outbox batch: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	var published []int64
	var publishErr error

	for _, m := range messages {
		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := r.publisher.Publish(sendCtx, strconv.FormatInt(m.ID, 10), m.Payload)
		cancel()

		if err != nil {
			publishErrors.Inc()
			publishErr = fmt.Errorf("publish outbox message %d: %w", m.ID, err)
			break
		}

		messagesPublished.Inc()
		published = append(published, m.ID)
	}

	if len(published) > 0 {
		if err := r.outboxRepo.MarkProcessed(ctx, published); err != nil {
			// The publishes already happened; the rows will be republished
			// next cycle. At-least-once by construction.
			return fmt.Errorf("mark %d messages processed: %w", len(published), err)
		}
		slog.Info("published outbox batch", "count", len(published))
	}

	return publishErr
}
