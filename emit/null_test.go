package emit

import (
	"context"
	"testing"
)

func TestNullEmitter_DiscardsEventsWithoutError(t *testing.T) {
	emitter := NewNullEmitter()

	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-started"})
	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-failed", Meta: map[string]interface{}{"error": "boom"}})
	emitter.Emit(Event{RunID: "run-1", Msg: "run-completed", Meta: nil})

	if err := emitter.EmitBatch(context.Background(), []Event{{RunID: "run-1", Msg: "node-started"}}); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
}

func TestNullEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = NewNullEmitter()
}
