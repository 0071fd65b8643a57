package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationsQueue is the durable queue carrying NotificationEvent bodies.
const NotificationsQueue = "snapscape.notifications"

// DefaultDialTimeout bounds connect and handshake when the caller's context
// has no earlier deadline.
const DefaultDialTimeout = 5 * time.Second

// Publisher sends notification events to RabbitMQ. Each publish opens its
// own connection.
type Publisher struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
}

func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, Queue: NotificationsQueue, DialTimeout: DefaultDialTimeout}
}

// dialer connects under ctx and sets a deadline covering the AMQP handshake:
// the context deadline, or timeout from now if that comes first. amqp clears
// it once the connection is open.
func dialer(ctx context.Context, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		if timeout <= 0 {
			timeout = DefaultDialTimeout
		}
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		nd := net.Dialer{Deadline: deadline}
		conn, err := nd.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev NotificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Locale: "en_US",
		Dial:   dialer(ctx, p.DialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.Queue); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Kind,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	slog.Debug("notification published", "kind", ev.Kind, "competition_id", ev.CompetitionID)
	return nil
}
