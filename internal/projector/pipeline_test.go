package projector

import (
	"context"
	"testing"
	"time"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/order"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/outbox"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/relay"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/usecase"
)

type pipeTx struct{}

func (pipeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type pipeOrders struct {
	orders []*order.Order
}

func (r *pipeOrders) Create(ctx context.Context, o *order.Order) error {
	o.ID = int64(len(r.orders) + 1)
	r.orders = append(r.orders, o)
	return nil
}

func (r *pipeOrders) List(ctx context.Context) ([]*order.Order, error) {
	return r.orders, nil
}

type pipeOutbox struct {
	messages []*outbox.Message
}

func (m *pipeOutbox) Create(ctx context.Context, msg *outbox.Message) error {
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *pipeOutbox) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var out []*outbox.Message
	for _, msg := range m.messages {
		if msg.ProcessedOn == nil {
			out = append(out, msg)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *pipeOutbox) MarkProcessed(ctx context.Context, ids []int64) error {
	now := time.Now()
	for _, id := range ids {
		for _, msg := range m.messages {
			if msg.ID == id {
				msg.ProcessedOn = &now
			}
		}
	}
	return nil
}

// chanBus is an in-memory fanout with a single bound queue.
type chanBus struct {
	ch chan []byte
}

func newChanBus() *chanBus {
	return &chanBus{ch: make(chan []byte, 64)}
}

func (b *chanBus) Publish(ctx context.Context, messageID string, body []byte) error {
	b.ch <- body
	return nil
}

func (b *chanBus) Fetch(ctx context.Context) (bus.Delivery, error) {
	select {
	case <-ctx.Done():
		return bus.Delivery{}, ctx.Err()
	case body := <-b.ch:
		return bus.NewDelivery(body, nil, nil), nil
	}
}

func (b *chanBus) Close() error { return nil }

// TestPipeline_CreateToReadRow drives the full path: transactional write with
// outbox, relay poll, bus delivery, projection, read query.
func TestPipeline_CreateToReadRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orders := &pipeOrders{}
	outboxStore := &pipeOutbox{}
	readStore := newMemReadStore()
	broker := newChanBus()

	createOrder := usecase.NewCreateOrder(pipeTx{}, orders, outboxStore)
	id, err := createOrder.Execute(ctx, usecase.CreateOrderParams{CustomerID: 7, Total: 42.50})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// The outbox row exists as soon as the write commits.
	if len(outboxStore.messages) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(outboxStore.messages))
	}

	go relay.New(outboxStore, broker, 5*time.Millisecond, 100).Run(ctx)
	go New(broker, readStore, aliceLookup()).Run(ctx)

	waitFor(t, func() bool {
		exists, _ := readStore.Exists(ctx, id)
		return exists
	}, "read row never appeared")

	row := readStore.get(id)
	if row.CustomerName != "Alice" || row.Total != 42.50 {
		t.Fatalf("row = %+v, want Alice / 42.50", row)
	}

	// Simulated redelivery: publishing the same event again must not create
	// a second row.
	broker.Publish(ctx, "replay", outboxStore.messages[0].Payload)
	time.Sleep(50 * time.Millisecond)
	if readStore.count() != 1 {
		t.Fatalf("rows after replay = %d, want 1", readStore.count())
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
