package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded notification.
type Handler interface {
	HandleNotification(ctx context.Context, ev NotificationEvent) error
}

type HandlerFunc func(ctx context.Context, ev NotificationEvent) error

func (f HandlerFunc) HandleNotification(ctx context.Context, ev NotificationEvent) error {
	return f(ctx, ev)
}

// Consumer reads the notifications queue and hands every event to Handler.
type Consumer struct {
	URL      string
	Queue    string
	Prefetch int
	Handler  Handler
}

func NewConsumer(url string, h Handler) *Consumer {
	return &Consumer{URL: url, Queue: NotificationsQueue, Prefetch: 20, Handler: h}
}

// Run connects to the broker and consumes until ctx is cancelled, dialing
// again with exponential backoff (capped at 30s) whenever the connection
// drops. It only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			slog.Warn("notification consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("notification consumer: loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.Prefetch, 0, false); err != nil {
		slog.Warn("notification consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, c.Queue); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				slog.Error("notification consumer: handle failed", "error", err)
				_ = d.Nack(false, false) // dropped, never requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.Handler.HandleNotification(ctx, ev)
}
