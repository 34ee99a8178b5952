package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/bus"
)

// Consumer binds a durable queue to the fanout exchange so the subscriber
// group receives every published event, surviving broker restarts and
// consumer downtime. Deliveries are acked manually by the caller.
type Consumer struct {
	url      string
	exchange string
	queue    string

	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
}

func NewConsumer(url, exchange, queue string) (*Consumer, error) {
	c := &Consumer{
		url:      url,
		exchange: exchange,
		queue:    queue,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := dialWithRetry(c.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(ch, c.exchange); err != nil {
		conn.Close()
		return err
	}

	if _, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	if err := ch.QueueBind(c.queue, "", c.exchange, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("bind queue %s to %s: %w", c.queue, c.exchange, err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack: we ack only after the read-store write commits
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("register consumer on %s: %w", c.queue, err)
	}

	c.conn = conn
	c.channel = ch
	c.deliveries = deliveries
	return nil
}

func (c *Consumer) Fetch(ctx context.Context) (bus.Delivery, error) {
	for {
		select {
		case <-ctx.Done():
			return bus.Delivery{}, ctx.Err()
		case d, ok := <-c.deliveries:
			if !ok {
				// Channel closed by the broker; reconnect and keep fetching.
				slog.Warn("rabbitmq delivery channel closed, reconnecting")
				if err := c.connect(); err != nil {
					return bus.Delivery{}, fmt.Errorf("reconnect: %w", err)
				}
				continue
			}
			return bus.NewDelivery(d.Body,
				func(context.Context) error { return d.Ack(false) },
				func(context.Context) error { return d.Nack(false, true) },
			), nil
		}
	}
}

func (c *Consumer) Close() error {
	var errs []error
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
