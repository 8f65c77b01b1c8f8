package stdops

import (
	"github.com/nodegraph/engine/binder"
)

// Branch triggers True if Cond is true, else False (spec.md §4.7).
type Branch struct{}

func (Branch) Execute(ctx binder.Context, _ <-chan struct{}) error {
	cond, err := ctx.GetInput("Cond")
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return err
	}
	if b {
		return ctx.Trigger("True")
	}
	return ctx.Trigger("False")
}

// Sequence triggers "Then 0".."Then 3" in declaration order (spec.md
// §4.7). Each call only marks its socket fired — the static dispatcher
// still preserves the order downstream nodes become ready in, since
// layers are walked in plan order.
type Sequence struct{}

var sequenceSockets = [...]string{"Then 0", "Then 1", "Then 2", "Then 3"}

func (Sequence) Execute(ctx binder.Context, _ <-chan struct{}) error {
	for _, s := range sequenceSockets {
		if err := ctx.Trigger(s); err != nil {
			return err
		}
	}
	return nil
}

// GateNode triggers Continue if Open is true, else Closed (spec.md
// §4.7 "Gate", renamed to avoid colliding with the gate package's
// pause/resume/step primitive).
type GateNode struct{}

func (GateNode) Execute(ctx binder.Context, _ <-chan struct{}) error {
	open, err := ctx.GetInput("Open")
	if err != nil {
		return err
	}
	b, err := open.AsBool()
	if err != nil {
		return err
	}
	if b {
		return ctx.Trigger("Continue")
	}
	return ctx.Trigger("Closed")
}

// Once fires First the first time it runs in a flow and Already Run
// every time after (spec.md §4.7). A normal (non-loop-body) node only
// executes once per run by construction (planner invariant 4, engine
// invariant 5), so this only ever matters inside a loop body, where
// each iteration re-enters the node; the "has fired before" flag must
// therefore live in run storage, not in operator instance state, since
// the engine resolves a fresh Operator instance for every invocation
// (spec.md §4.4).
type Once struct{}

const onceFiredKey = "__once_fired"

func (Once) Execute(ctx binder.Context, _ <-chan struct{}) error {
	st := ctx.Storage()
	node := ctx.Node()
	if _, fired := st.GetOutput(node.ID, onceFiredKey); fired {
		return ctx.Trigger("Already Run")
	}
	st.SetOutput(node.ID, onceFiredKey, trueValue)
	return ctx.Trigger("First")
}
