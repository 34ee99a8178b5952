// Package projector maintains the orders_read denormalization from the
// OrderCreated stream. Delivery is at least once and may be reordered across
// network hops; both are absorbed by the orders_read primary key, since the
// projected row is a pure function of its event.
package projector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/customer"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/event"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/readmodel"
)

var (
	eventsProjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projector_events_projected_total",
		Help: "The total number of events projected into the read store",
	})
	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projector_duplicates_skipped_total",
		Help: "The total number of redelivered events skipped by the idempotency check",
	})
	lookupFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projector_lookup_fallbacks_total",
		Help: "The total number of projections that used a placeholder customer name",
	})
	projectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "projector_projection_duration_seconds",
		Help:    "Time taken to project one event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
	})
)

const maxRetries = 5

type Projector struct {
	consumer  bus.Consumer
	readRepo  readmodel.Repository
	customers customer.Lookup
}

func New(consumer bus.Consumer, readRepo readmodel.Repository, customers customer.Lookup) *Projector {
	return &Projector{
		consumer:  consumer,
		readRepo:  readRepo,
		customers: customers,
	}
}

func (p *Projector) Run(ctx context.Context) error {
	slog.Info("read-model projector started")

	for {
		d, err := p.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to fetch delivery", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(1 * time.Second):
			}
			continue
		}

		p.handle(ctx, d)
	}
}

// handle processes one delivery in its own scope: dedup, enrich, insert, ack.
// The ack happens strictly after the insert commits; a crash in between
// causes a redelivery, which the dedup check turns into a no-op.
func (p *Projector) handle(ctx context.Context, d bus.Delivery) {
	started := time.Now()

	var ev event.OrderCreated
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		// Not our contract (or corrupt). Ack and move on.
		slog.Error("dropping undecodable delivery", "error", err)
		if err := d.Ack(ctx); err != nil {
			slog.Error("failed to ack dropped delivery", "error", err)
		}
		return
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			slog.Info("retrying projection", "attempt", attempt, "max", maxRetries, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		err := p.project(ctx, ev)
		if err == nil {
			if err := d.Ack(ctx); err != nil {
				slog.Error("failed to ack delivery", "event_id", ev.EventID, "error", err)
			}
			projectionDuration.Observe(time.Since(started).Seconds())
			return
		}

		if ctx.Err() != nil {
			return
		}
		slog.Error("projection failed", "event_id", ev.EventID, "order_id", ev.OrderID, "error", err)
	}

	// The read store stayed unreachable through every retry. Requeue so the
	// event survives and gets another round later.
	if err := d.Requeue(ctx); err != nil {
		slog.Error("failed to requeue delivery", "event_id", ev.EventID, "error", err)
	}
}

func (p *Projector) project(ctx context.Context, ev event.OrderCreated) error {
	exists, err := p.readRepo.Exists(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if exists {
		duplicatesSkipped.Inc()
		slog.Info("skipping duplicate delivery", "event_id", ev.EventID, "order_id", ev.OrderID)
		return nil
	}

	inserted, err := p.readRepo.Insert(ctx, &readmodel.OrderRead{
		OrderID:      ev.OrderID,
		CustomerName: p.resolveName(ctx, ev.CustomerID),
		Total:        ev.Total,
		CreatedAt:    ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert read row: %w", err)
	}

	if !inserted {
		duplicatesSkipped.Inc()
		return nil
	}

	eventsProjected.Inc()
	slog.Info("projected order", "event_id", ev.EventID, "order_id", ev.OrderID)
	return nil
}

// resolveName enriches the row with the customer name. A lookup miss or an
// unreachable collaborator degrades to a placeholder instead of failing the
// projection: read-model availability wins over name completeness.
func (p *Projector) resolveName(ctx context.Context, customerID int64) string {
	c, err := p.customers.GetByID(ctx, customerID)
	if err != nil {
		if !errors.Is(err, customer.ErrNotFound) {
			slog.Warn("customer lookup unavailable", "customer_id", customerID, "error", err)
		}
		lookupFallbacks.Inc()
		return fmt.Sprintf("Customer#%d", customerID)
	}
	return c.Name
}
