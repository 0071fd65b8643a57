package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConsumerHandleDecodes(t *testing.T) {
	var got NotificationEvent
	c := NewConsumer("amqp://unused", HandlerFunc(func(_ context.Context, ev NotificationEvent) error {
		got = ev
		return nil
	}))
	body := []byte(`{"kind":"submission.reviewed","competition_id":3,"submission_id":9,"user_id":4,"status":"approved"}`)
	if err := c.handle(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got.Kind != KindSubmissionReviewed || got.SubmissionID != 9 || got.UserID != 4 || got.Status != "approved" {
		t.Fatalf("decoded %+v", got)
	}
}

func TestConsumerHandleErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewConsumer("amqp://unused", HandlerFunc(func(context.Context, NotificationEvent) error { return boom }))
	if err := c.handle(context.Background(), []byte("{")); err == nil {
		t.Fatal("malformed body accepted")
	}
	if err := c.handle(context.Background(), []byte(`{"kind":"x"}`)); !errors.Is(err, boom) {
		t.Fatalf("handler error lost: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumer("amqp://127.0.0.1:1/", HandlerFunc(func(context.Context, NotificationEvent) error { return nil }))
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
