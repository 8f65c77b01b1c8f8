package emit

import "context"

// NullEmitter discards every event. engine.WithEmitter falls back to
// one whenever it is handed a nil Emitter, so callers that want to
// silence observability entirely (benchmark runs, embedding the
// engine in a tool that has its own logging) can pass nil instead of
// constructing a no-op by hand.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

func (n *NullEmitter) Emit(Event) {}

func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (n *NullEmitter) Flush(context.Context) error { return nil }
