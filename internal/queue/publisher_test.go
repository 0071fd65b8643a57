package queue

import (
	"context"
	"net"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	p.DialTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, NotificationEvent{Kind: KindSubmissionReviewed, SubmissionID: 1})
	if err == nil {
		t.Fatal("publish to silent broker succeeded")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("publish blocked for %s", elapsed)
	}
}

func TestPublishDialTimeoutWithoutDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	p.DialTimeout = 200 * time.Millisecond

	start := time.Now()
	if err := p.Publish(context.Background(), NotificationEvent{Kind: KindSubmissionReviewed}); err == nil {
		t.Fatal("publish to silent broker succeeded")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("publish blocked for %s", elapsed)
	}
}
