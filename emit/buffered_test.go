package emit

import "testing"

func TestBufferedEmitter_RecordsNodeAndLayerLifecycle(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{RunID: "run-1", LayerID: "layer-0", Msg: "layer-started"})
	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-started"})
	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-completed"})
	emitter.Emit(Event{RunID: "run-1", LayerID: "layer-0", Msg: "layer-completed"})

	history := emitter.GetHistory("run-1")
	if len(history) != 4 {
		t.Fatalf("expected 4 events, got %d", len(history))
	}
	if history[0].Msg != "layer-started" || history[3].Msg != "layer-completed" {
		t.Errorf("expected layer bracket, got %v", history)
	}
}

func TestBufferedEmitter_IsolatesEventsByRunID(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{RunID: "run-1", Msg: "run-started"})
	emitter.Emit(Event{RunID: "run-2", Msg: "run-started"})
	emitter.Emit(Event{RunID: "run-1", Msg: "run-completed"})

	if got := len(emitter.GetHistory("run-1")); got != 2 {
		t.Errorf("expected 2 events for run-1, got %d", got)
	}
	if got := len(emitter.GetHistory("run-2")); got != 1 {
		t.Errorf("expected 1 event for run-2, got %d", got)
	}
	if got := emitter.GetHistory("unknown-run"); len(got) != 0 {
		t.Errorf("expected empty slice for unknown run, got %v", got)
	}
}

func TestBufferedEmitter_GetHistoryWithFilterCombinesConditions(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{RunID: "run-1", Step: 1, NodeID: "nodeA", Msg: "node-started"})
	emitter.Emit(Event{RunID: "run-1", Step: 1, NodeID: "nodeB", Msg: "node-started"})
	emitter.Emit(Event{RunID: "run-1", Step: 2, NodeID: "nodeA", Msg: "node-completed"})

	step := 1
	filter := HistoryFilter{NodeID: "nodeA", Msg: "node-started", MinStep: &step, MaxStep: &step}
	got := emitter.GetHistoryWithFilter("run-1", filter)
	if len(got) != 1 {
		t.Fatalf("expected 1 matching event, got %d", len(got))
	}
	if got[0].NodeID != "nodeA" || got[0].Msg != "node-started" {
		t.Errorf("unexpected match: %+v", got[0])
	}
}

func TestBufferedEmitter_Clear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{RunID: "run-1", Msg: "run-started"})
	emitter.Emit(Event{RunID: "run-2", Msg: "run-started"})

	emitter.Clear("run-1")
	if got := len(emitter.GetHistory("run-1")); got != 0 {
		t.Errorf("expected run-1 cleared, got %d events", got)
	}
	if got := len(emitter.GetHistory("run-2")); got != 1 {
		t.Errorf("expected run-2 untouched, got %d events", got)
	}

	emitter.Clear("")
	if got := len(emitter.GetHistory("run-2")); got != 0 {
		t.Errorf("expected Clear(\"\") to drop every run, got %d events", got)
	}
}

func TestBufferedEmitter_ConcurrentEmitAndRead(t *testing.T) {
	emitter := NewBufferedEmitter()
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				emitter.Emit(Event{RunID: "run-1", Step: j, Msg: "node-started"})
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	if got := len(emitter.GetHistory("run-1")); got != 1000 {
		t.Errorf("expected 1000 events, got %d", got)
	}
}

func TestBufferedEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = NewBufferedEmitter()
}
