package bus_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nodegraph/engine/bus"
)

func TestTrigger_FansOutConcurrently(t *testing.T) {
	b := bus.New()
	var started int32
	release := make(chan struct{})

	for i := 0; i < 3; i++ {
		b.Subscribe("ping", func(ctx context.Context) error {
			atomic.AddInt32(&started, 1)
			<-release
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- b.Trigger(context.Background(), "ping") }()

	deadline := time.After(time.Second)
	for {
		if atomic.LoadInt32(&started) == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("handlers did not all start concurrently")
		case <-time.After(time.Millisecond):
		}
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrigger_CaseInsensitiveAndNoSubscribers(t *testing.T) {
	b := bus.New()
	var fired bool
	b.Subscribe("Ping", func(ctx context.Context) error {
		fired = true
		return nil
	})

	if !b.HasSubscribers("ping") {
		t.Fatal("expected case-insensitive HasSubscribers to match")
	}
	if err := b.Trigger(context.Background(), "PING"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fired {
		t.Fatal("expected handler to fire")
	}

	if b.HasSubscribers("other") {
		t.Fatal("expected no subscribers for unregistered event")
	}
	if err := b.Trigger(context.Background(), "other"); err != nil {
		t.Fatalf("triggering an event with no subscribers should be a no-op: %v", err)
	}
}

func TestTrigger_PropagatesHandlerError(t *testing.T) {
	b := bus.New()
	wantErr := errors.New("boom")
	b.Subscribe("fail", func(ctx context.Context) error { return wantErr })

	err := b.Trigger(context.Background(), "fail")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestTrigger_CancellationWhileHandlersRun(t *testing.T) {
	b := bus.New()
	started := make(chan struct{})
	b.Subscribe("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Trigger(ctx, "slow") }()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Trigger did not return after cancellation")
	}
}
