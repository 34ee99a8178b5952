package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestFetch_RequeuedMessageIsRedeliveredFirst(t *testing.T) {
	c := &Consumer{pending: &kafka.Message{Offset: 3, Value: []byte("stuck event")}}

	d, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(d.Body) != "stuck event" {
		t.Fatalf("Fetch() body = %q, want %q", d.Body, "stuck event")
	}

	// Requeue parks the message again; the next Fetch must hand it back
	// instead of advancing, so no later commit can skip past its offset.
	if err := d.Requeue(context.Background()); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}

	d2, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() after requeue error = %v", err)
	}
	if string(d2.Body) != "stuck event" {
		t.Fatalf("Fetch() after requeue body = %q, want %q", d2.Body, "stuck event")
	}
}
