package stdops

import "github.com/nodegraph/engine/binder"

// SetVariable assigns a run-scoped, case-insensitively-named variable
// (spec.md §4.7 "Set/Get Variable").
type SetVariable struct{}

func (SetVariable) Execute(ctx binder.Context, _ <-chan struct{}) error {
	name, err := ctx.GetInput("Name")
	if err != nil {
		return err
	}
	value, err := ctx.GetInput("Value")
	if err != nil {
		return err
	}
	ctx.SetVariable(name.AsString(), value)
	return ctx.Trigger("Exit")
}

// GetVariable reads a run-scoped variable into its Value output. It is
// a pure data operator (no execution sockets): it has no Enter/Exit,
// so it is only ever invoked lazily by GetInput on a node that
// consumes its Value output (spec.md §3 invariant 7).
type GetVariable struct{}

func (GetVariable) Execute(ctx binder.Context, _ <-chan struct{}) error {
	name, err := ctx.GetInput("Name")
	if err != nil {
		return err
	}
	v, _ := ctx.GetVariable(name.AsString())
	ctx.SetOutput("Value", v)
	return nil
}
