// Package bus defines the broker contract the relay publishes through and the
// projector consumes from. The broker itself is an external dependency; this
// package only fixes the shape: a durable fanout of every published message to
// every subscriber group's queue, with at-least-once delivery and manual acks.
package bus

import "context"

type Publisher interface {
	// Publish delivers one message body to the fanout topic. messageID is a
	// stable identifier for the message (the outbox row id), used as the
	// broker-level message id or partition key.
	Publish(ctx context.Context, messageID string, body []byte) error
	Close() error
}

type Consumer interface {
	// Fetch blocks until a delivery arrives or ctx is cancelled.
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}

// Delivery is one received message plus its acknowledgement handles.
type Delivery struct {
	Body []byte

	ack     func(ctx context.Context) error
	requeue func(ctx context.Context) error
}

func NewDelivery(body []byte, ack, requeue func(ctx context.Context) error) Delivery {
	return Delivery{Body: body, ack: ack, requeue: requeue}
}

// Ack confirms the delivery so the broker will not redeliver it.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Requeue returns the delivery to the broker for a later attempt.
func (d Delivery) Requeue(ctx context.Context) error {
	if d.requeue == nil {
		return nil
	}
	return d.requeue(ctx)
}
