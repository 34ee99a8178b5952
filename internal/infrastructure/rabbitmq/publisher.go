package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the slice of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	url      string
	exchange string

	conn    *amqp.Connection
	channel amqpChannel

	redial func() error
}

// NewPublisher connects to the broker and declares the durable fanout
// exchange. The dial is retried because the broker usually takes a few
// seconds to come up in Docker.
func NewPublisher(url, exchange string) (*Publisher, error) {
	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	p.redial = p.connect

	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := dialWithRetry(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(ch, p.exchange); err != nil {
		conn.Close()
		return err
	}

	p.conn = conn
	p.channel = ch
	return nil
}

// Publish delivers one message. A broker disconnect closes the channel for
// good, so a closed-channel failure redials and retries the send once; if the
// broker is still down the caller's next cycle finds the rows untouched in
// the outbox.
func (p *Publisher) Publish(ctx context.Context, messageID string, body []byte) error {
	err := p.send(ctx, messageID, body)
	if err == nil {
		return nil
	}
	if !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("publish message %s: %w", messageID, err)
	}

	slog.Warn("rabbitmq channel closed, reconnecting", "error", err)
	if p.conn != nil {
		p.conn.Close()
	}
	if rerr := p.redial(); rerr != nil {
		return fmt.Errorf("reconnect: %w", rerr)
	}

	if err := p.send(ctx, messageID, body); err != nil {
		return fmt.Errorf("publish message %s after reconnect: %w", messageID, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, messageID string, body []byte) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		"",         // routing key ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func dialWithRetry(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		slog.Warn("failed to connect to rabbitmq, retrying in 2s", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	return nil, fmt.Errorf("connect to rabbitmq: %w", err)
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}
