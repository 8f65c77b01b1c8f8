package stdops

import (
	"context"

	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/storage"
)

// newCancelableContext adapts the binder.Context cancel channel to a
// context.Context for operators (like HTTPRequest) that call into APIs
// expecting one. The returned cancel func must always be called to
// release the background goroutine.
func newCancelableContext(cancel <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, ctxCancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	go func() {
		select {
		case <-cancel:
			ctxCancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		ctxCancel()
	}
}

var trueValue = model.Bool(true)

// Loop headers need state to survive from one iteration's header
// invocation to the next (e.g. a For Loop's current index), but the
// engine resolves a fresh Operator instance on every invocation
// (spec.md §4.4) rather than reusing one instance across a loop's
// iterations. That state therefore lives in run storage under a key
// private to the node (never a declared socket name), read and written
// directly through ctx.Storage() rather than struct fields.

func getPrivateInt(st *storage.Storage, nodeID, key string) int64 {
	v, ok := st.GetOutput(nodeID, key)
	if !ok {
		return 0
	}
	n, _ := v.AsInt()
	return n
}

func setPrivateInt(st *storage.Storage, nodeID, key string, n int64) {
	st.SetOutput(nodeID, key, model.Int(n))
}

func getPrivateBool(st *storage.Storage, nodeID, key string) bool {
	v, ok := st.GetOutput(nodeID, key)
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

func setPrivateBool(st *storage.Storage, nodeID, key string, b bool) {
	st.SetOutput(nodeID, key, model.Bool(b))
}
