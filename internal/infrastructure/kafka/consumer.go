package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
)

type Consumer struct {
	reader *kafka.Reader

	mu      sync.Mutex
	pending *kafka.Message
}

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: false, // Force IPv4
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,    // Process immediately
		MaxBytes:    10e6, // 10MB
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{reader: r}
}

// Fetch returns the next delivery. A requeued message is held and redelivered
// before anything newer: committing a later offset would also commit this one,
// and the group would never see it again.
func (c *Consumer) Fetch(ctx context.Context) (bus.Delivery, error) {
	c.mu.Lock()
	held := c.pending
	c.pending = nil
	c.mu.Unlock()

	var msg kafka.Message
	if held != nil {
		msg = *held
	} else {
		var err error
		msg, err = c.reader.FetchMessage(ctx)
		if err != nil {
			return bus.Delivery{}, err
		}
	}

	return bus.NewDelivery(msg.Value,
		func(ackCtx context.Context) error {
			return c.reader.CommitMessages(ackCtx, msg)
		},
		func(context.Context) error {
			c.mu.Lock()
			c.pending = &msg
			c.mu.Unlock()
			return nil
		},
	), nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
