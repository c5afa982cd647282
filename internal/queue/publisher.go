package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hivecinema/hive/internal/model"
)

// Publisher holds one connection and channel to the broker and publishes
// outbox messages.  Publish failures are returned to the dispatcher, which
// owns the retry budget; the publisher itself only reconnects lazily on the
// next call after a channel error.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the given AMQP URL.  The connection
// is established lazily on first publish so a slow broker does not block
// startup.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// channel returns a usable channel, dialing and declaring the exchange if
// needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	// Durable direct exchange; declaration is idempotent.
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		"direct",     // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// routingKey maps an event type to its routing key.
func routingKey(eventType string) (string, error) {
	switch eventType {
	case model.EventTypeEmailNotification:
		return RoutingKeyEmail, nil
	default:
		return "", fmt.Errorf("no routing key for event type %q", eventType)
	}
}

// Publish sends one outbox message to the broker.  The message id is the
// outbox row id and messages are marked persistent.  A cancelled context is
// returned as an error and treated as a retriable failure by the dispatcher.
func (p *Publisher) Publish(ctx context.Context, m model.OutboxMessage) error {
	key, err := routingKey(m.EventType)
	if err != nil {
		return err
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ID.String(),
		Type:         m.EventType,
		Timestamp:    time.Now().UTC(),
		Body:         m.Payload,
	}
	if err := ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		key,          // routing key
		false,        // mandatory
		false,        // immediate
		pub,
	); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close tears down the channel and connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
