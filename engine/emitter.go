package engine

import (
	"context"

	"github.com/nodegraph/engine/emit"
)

// fanoutEmitter sends every event to two emitters, used to compose an
// application-supplied backend (log, Prometheus, OTel) with the
// BufferedEmitter every Run keeps for Engine.History.
type fanoutEmitter struct {
	primary   emit.Emitter
	secondary emit.Emitter
}

func (f *fanoutEmitter) Emit(event emit.Event) {
	f.primary.Emit(event)
	f.secondary.Emit(event)
}

func (f *fanoutEmitter) EmitBatch(ctx context.Context, events []emit.Event) error {
	if err := f.primary.EmitBatch(ctx, events); err != nil {
		return err
	}
	return f.secondary.EmitBatch(ctx, events)
}

func (f *fanoutEmitter) Flush(ctx context.Context) error {
	if err := f.primary.Flush(ctx); err != nil {
		return err
	}
	return f.secondary.Flush(ctx)
}
