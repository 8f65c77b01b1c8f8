package stdops

import (
	"fmt"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/model"
)

// Each loop header's Execute represents exactly one header invocation
// of spec.md §4.2.4 / DESIGN.md's executeLoop: the engine calls
// Execute once, then checks which of LoopPath/Exit fired to decide
// whether to run the body again. The header itself never loops; the
// engine's executeLoop does, driven by which socket this call fires.

const indexKey = "__index"

// ForLoop fires LoopPath with Index = 0..LoopTimes-1, then Exit
// (spec.md §4.7 "For Loop").
type ForLoop struct{}

func (ForLoop) Execute(ctx binder.Context, _ <-chan struct{}) error {
	times, err := ctx.GetInput("LoopTimes")
	if err != nil {
		return err
	}
	n, err := times.AsInt()
	if err != nil {
		return err
	}
	st := ctx.Storage()
	node := ctx.Node()
	i := getPrivateInt(st, node.ID, indexKey)
	if i >= n {
		setPrivateInt(st, node.ID, indexKey, 0)
		return ctx.Trigger("Exit")
	}
	ctx.SetOutput("Index", model.Int(i))
	setPrivateInt(st, node.ID, indexKey, i+1)
	return ctx.Trigger("LoopPath")
}

// WhileLoop fires LoopPath while Condition is true, else Exit (spec.md
// §4.7). The condition input is a data socket, re-pulled fresh every
// header invocation (re-running its upstream producer if it is a pure
// data node), giving the "re-read every iteration" contract for free.
type WhileLoop struct{}

func (WhileLoop) Execute(ctx binder.Context, _ <-chan struct{}) error {
	cond, err := ctx.GetInput("Condition")
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return err
	}
	if b {
		return ctx.Trigger("LoopPath")
	}
	return ctx.Trigger("Exit")
}

// DoWhileLoop runs its body unconditionally the first time, then reads
// Condition after each body run to decide whether to continue (spec.md
// §4.7 "Do While"). The "have we run once yet" flag lives in storage
// for the same reason loop indices do (spec.md §4.4 binding per call).
type DoWhileLoop struct{}

const ranOnceKey = "__ran_once"

func (DoWhileLoop) Execute(ctx binder.Context, _ <-chan struct{}) error {
	st := ctx.Storage()
	node := ctx.Node()
	if !getPrivateBool(st, node.ID, ranOnceKey) {
		setPrivateBool(st, node.ID, ranOnceKey, true)
		return ctx.Trigger("LoopPath")
	}
	cond, err := ctx.GetInput("Condition")
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return err
	}
	if b {
		return ctx.Trigger("LoopPath")
	}
	setPrivateBool(st, node.ID, ranOnceKey, false)
	return ctx.Trigger("Exit")
}

// RepeatUntilLoop is DoWhileLoop's inverse: it runs the body
// unconditionally the first time, then continues for as long as Until
// stays false, stopping (and firing Exit) the iteration Until reads
// true (spec.md §4.7 "Repeat Until").
type RepeatUntilLoop struct{}

func (RepeatUntilLoop) Execute(ctx binder.Context, _ <-chan struct{}) error {
	st := ctx.Storage()
	node := ctx.Node()
	if !getPrivateBool(st, node.ID, ranOnceKey) {
		setPrivateBool(st, node.ID, ranOnceKey, true)
		return ctx.Trigger("LoopPath")
	}
	until, err := ctx.GetInput("Until")
	if err != nil {
		return err
	}
	b, err := until.AsBool()
	if err != nil {
		return err
	}
	if b {
		setPrivateBool(st, node.ID, ranOnceKey, false)
		return ctx.Trigger("Exit")
	}
	return ctx.Trigger("LoopPath")
}

// ForEach iterates a snapshot of List (taken on the first header
// invocation so later data-socket reconvergence cannot change it
// mid-iteration), setting Obj and Index per item (spec.md §4.7
// "ForEach").
type ForEach struct{}

const listSnapshotKey = "__list_snapshot"

func (ForEach) Execute(ctx binder.Context, _ <-chan struct{}) error {
	st := ctx.Storage()
	node := ctx.Node()
	i := getPrivateInt(st, node.ID, indexKey)

	var list model.Value
	if snap, ok := st.GetOutput(node.ID, listSnapshotKey); ok {
		list = snap
	} else {
		v, err := ctx.GetInput("List")
		if err != nil {
			return err
		}
		list = v
		st.SetOutput(node.ID, listSnapshotKey, list)
	}

	if int(i) >= len(list.List) {
		setPrivateInt(st, node.ID, indexKey, 0)
		st.SetOutput(node.ID, listSnapshotKey, model.Nil)
		return ctx.Trigger("Exit")
	}
	ctx.SetOutput("Obj", list.List[i])
	ctx.SetOutput("Index", model.Int(i))
	setPrivateInt(st, node.ID, indexKey, i+1)
	return ctx.Trigger("LoopPath")
}

// ParallelForEach iterates List with bounded concurrency, each
// iteration in its own layered overlay scope (spec.md §4.2.5, §4.7).
// Unlike the sequential loop headers above, it drives its own body
// dispatch directly via TriggerScoped rather than relying on the
// engine's executeLoop to re-run the body once per returned LoopPath:
// item count is runtime data, not graph shape, so the body must be
// fanned out to N dynamically created scopes from inside one header
// invocation. It fires Exit (never LoopPath) when done, which is what
// tells executeLoop not to additionally re-run the body itself
// (DESIGN.md "Execution dispatch is plan-driven").
type ParallelForEach struct{}

func (ParallelForEach) Execute(ctx binder.Context, cancel <-chan struct{}) error {
	list, err := ctx.GetInput("List")
	if err != nil {
		return err
	}
	maxParallelism := 4
	if v, err := ctx.GetInput("MaxParallelism"); err == nil && !v.IsNil() {
		if n, err := v.AsInt(); err == nil && n > 0 {
			maxParallelism = int(n)
		}
	}

	st := ctx.Storage()
	sem := make(chan struct{}, maxParallelism)
	errCh := make(chan error, len(list.List))
	for i, item := range list.List {
		select {
		case <-cancel:
			return fmt.Errorf("parallel for each: cancelled before iteration %d", i)
		case sem <- struct{}{}:
		}
		go func(i int, item model.Value) {
			defer func() { <-sem }()
			child := st.Scope()
			child.SetOutput(ctx.Node().ID, "Item", item)
			child.SetOutput(ctx.Node().ID, "Index", model.Int(int64(i)))
			errCh <- ctx.TriggerScoped("LoopPath", child)
		}(i, item)
	}
	for range list.List {
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-cancel:
			return fmt.Errorf("parallel for each: cancelled while awaiting iterations")
		}
	}
	return ctx.Trigger("Exit")
}
