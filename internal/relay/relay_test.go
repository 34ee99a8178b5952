package relay

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/outbox"
)

type memOutbox struct {
	messages []*outbox.Message
	fetchErr error
	markErr  error
}

func (m *memOutbox) Create(ctx context.Context, msg *outbox.Message) error {
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memOutbox) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Message, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
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

func (m *memOutbox) MarkProcessed(ctx context.Context, ids []int64) error {
	if m.markErr != nil {
		return m.markErr
	}
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

func (m *memOutbox) unprocessedCount() int {
	n := 0
	for _, msg := range m.messages {
		if msg.ProcessedOn == nil {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	published []string
	failOn    map[string]error
}

func (p *recordingPublisher) Publish(ctx context.Context, messageID string, body []byte) error {
	if err := p.failOn[messageID]; err != nil {
		return err
	}
	p.published = append(p.published, messageID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func seedOutbox(t *testing.T, store *memOutbox, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := store.Create(context.Background(), &outbox.Message{
			OccurredOn: time.Now(),
			EventType:  "OrderCreated",
			Payload:    []byte(`{"orderId":` + strconv.Itoa(i+1) + `}`),
		}); err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}
}

func TestProcessBatch_PublishesAscendingAndMarksAll(t *testing.T) {
	store := &memOutbox{}
	seedOutbox(t, store, 3)
	pub := &recordingPublisher{}

	r := New(store, pub, time.Second, 100)
	if err := r.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch returned error: %v", err)
	}

	want := []string{"1", "2", "3"}
	if len(pub.published) != len(want) {
		t.Fatalf("published = %v, want %v", pub.published, want)
	}
	for i := range want {
		if pub.published[i] != want[i] {
			t.Fatalf("published[%d] = %q, want %q", i, pub.published[i], want[i])
		}
	}
	if got := store.unprocessedCount(); got != 0 {
		t.Fatalf("unprocessed = %d, want 0", got)
	}
}

func TestProcessBatch_PublishFailureStopsBatchAndLeavesRows(t *testing.T) {
	store := &memOutbox{}
	seedOutbox(t, store, 3)
	pub := &recordingPublisher{failOn: map[string]error{"2": errors.New("bus down")}}

	r := New(store, pub, time.Second, 100)
	if err := r.processBatch(context.Background()); err == nil {
		t.Fatal("expected publish error")
	}

	// Only the published prefix may be marked; 2 and 3 wait for the next cycle.
	if len(pub.published) != 1 || pub.published[0] != "1" {
		t.Fatalf("published = %v, want [1]", pub.published)
	}
	if got := store.unprocessedCount(); got != 2 {
		t.Fatalf("unprocessed = %d, want 2", got)
	}

	// Bus recovers: the next cycle drains the rest in order.
	pub.failOn = nil
	if err := r.processBatch(context.Background()); err != nil {
		t.Fatalf("second processBatch returned error: %v", err)
	}
	if got := store.unprocessedCount(); got != 0 {
		t.Fatalf("unprocessed after recovery = %d, want 0", got)
	}
	if want := []string{"1", "2", "3"}; len(pub.published) != len(want) {
		t.Fatalf("published = %v, want %v", pub.published, want)
	}
}

func TestProcessBatch_MarkFailureCausesRepublish(t *testing.T) {
	store := &memOutbox{markErr: errors.New("store down")}
	seedOutbox(t, store, 2)
	pub := &recordingPublisher{}

	r := New(store, pub, time.Second, 100)
	if err := r.processBatch(context.Background()); err == nil {
		t.Fatal("expected mark-processed error")
	}

	// At-least-once: the publishes happened but the rows stayed unprocessed,
	// so the next cycle republishes the same messages.
	store.markErr = nil
	if err := r.processBatch(context.Background()); err != nil {
		t.Fatalf("second processBatch returned error: %v", err)
	}
	if want := []string{"1", "2", "1", "2"}; len(pub.published) != len(want) {
		t.Fatalf("published = %v, want %v", pub.published, want)
	}
	if got := store.unprocessedCount(); got != 0 {
		t.Fatalf("unprocessed = %d, want 0", got)
	}
}

func TestProcessBatch_NoMarkWithoutPublish(t *testing.T) {
	store := &memOutbox{}
	seedOutbox(t, store, 1)
	pub := &recordingPublisher{failOn: map[string]error{"1": errors.New("bus down")}}

	r := New(store, pub, time.Second, 100)
	if err := r.processBatch(context.Background()); err == nil {
		t.Fatal("expected publish error")
	}
	if got := store.unprocessedCount(); got != 1 {
		t.Fatalf("unprocessed = %d, want 1", got)
	}
}

func TestProcessBatch_RespectsBatchSize(t *testing.T) {
	store := &memOutbox{}
	seedOutbox(t, store, 5)
	pub := &recordingPublisher{}

	r := New(store, pub, time.Second, 2)
	if err := r.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch returned error: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.published))
	}
	if got := store.unprocessedCount(); got != 3 {
		t.Fatalf("unprocessed = %d, want 3", got)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := &memOutbox{}
	pub := &recordingPublisher{}
	r := New(store, pub, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
