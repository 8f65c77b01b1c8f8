package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodegraph/engine/gate"
)

func TestGate_DefaultOpenDoesNotBlock(t *testing.T) {
	g := gate.New()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("expected no error on default-open gate, got %v", err)
	}
}

func TestGate_PauseBlocksUntilResume(t *testing.T) {
	g := gate.New()
	g.Pause()

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned before Resume")
	case <-time.After(50 * time.Millisecond):
	}

	g.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Resume")
	}
}

func TestGate_StepOnceAdmitsExactlyOne(t *testing.T) {
	g := gate.New()
	g.Pause()

	first := make(chan error, 1)
	go func() { first <- g.Wait(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	g.StepOnce()

	select {
	case err := <-first:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first waiter was not admitted")
	}

	second := make(chan error, 1)
	go func() { second <- g.Wait(context.Background()) }()
	select {
	case <-second:
		t.Fatal("second waiter should not be admitted without another StepOnce")
	case <-time.After(50 * time.Millisecond):
	}

	g.StepOnce()
	select {
	case err := <-second:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second waiter was not admitted by second StepOnce")
	}
}

func TestGate_WaitRespectsCancellation(t *testing.T) {
	g := gate.New()
	g.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Wait(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not respect cancellation")
	}
}
