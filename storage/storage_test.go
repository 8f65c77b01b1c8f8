package storage_test

import (
	"testing"

	"github.com/nodegraph/engine/bus"
	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/storage"
)

func TestStorage_SetGetOutput(t *testing.T) {
	s := storage.New(bus.New())
	if _, ok := s.GetOutput("A", "Value"); ok {
		t.Fatal("expected miss on empty storage")
	}
	s.SetOutput("A", "Value", model.Int(42))
	v, ok := s.GetOutput("A", "Value")
	if !ok {
		t.Fatal("expected hit after SetOutput")
	}
	got, err := v.AsInt()
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %v (err %v)", got, err)
	}
}

func TestStorage_ScopeFallsThroughOnReadButNotWrite(t *testing.T) {
	parent := storage.New(bus.New())
	parent.SetOutput("A", "Value", model.Int(1))
	child := parent.Scope()

	if v, ok := child.GetOutput("A", "Value"); !ok {
		t.Fatal("expected child to see parent's value on miss")
	} else if n, _ := v.AsInt(); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}

	child.SetOutput("A", "Value", model.Int(2))
	if v, _ := child.GetOutput("A", "Value"); func() int64 { n, _ := v.AsInt(); return n }() != 2 {
		t.Fatal("expected child write to shadow parent value locally")
	}
	if v, _ := parent.GetOutput("A", "Value"); func() int64 { n, _ := v.AsInt(); return n }() != 1 {
		t.Fatal("expected parent to be unaffected by child write")
	}
}

func TestStorage_ExecutedMarkAndReset(t *testing.T) {
	s := storage.New(bus.New())
	if s.HasExecuted("A") {
		t.Fatal("expected A not executed initially")
	}
	s.MarkExecuted("A")
	if !s.HasExecuted("A") {
		t.Fatal("expected A executed after MarkExecuted")
	}
	s.ResetExecuted("A")
	if s.HasExecuted("A") {
		t.Fatal("expected A not executed after ResetExecuted")
	}
}

func TestStorage_VariablesCaseInsensitive(t *testing.T) {
	s := storage.New(bus.New())
	s.SetVariable("Counter", model.Int(7))
	v, ok := s.GetVariable("COUNTER")
	if !ok {
		t.Fatal("expected case-insensitive variable lookup to hit")
	}
	if n, _ := v.AsInt(); n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}

func TestStorage_ScopeSharesBus(t *testing.T) {
	b := bus.New()
	parent := storage.New(b)
	child := parent.Scope()
	if child.Bus() != b {
		t.Fatal("expected child scope to share the parent's event bus")
	}
}
