package stdops

import "github.com/nodegraph/engine/binder"

// CustomEventListener is a no-op operator: the node it decorates is
// never invoked through the ordinary plan-driven dispatch. Its role is
// purely declarative — its EventName input's literal default tells the
// engine, at run start, which bus event should drive its Exit-successor
// chain (spec.md §4.2 step 3, §4.5). Registering an Operator for it
// anyway keeps the binder.Registry total: a graph author who
// mistakenly wires an Enter into a listener gets a harmless no-op
// instead of a resolution failure.
type CustomEventListener struct{}

func (CustomEventListener) Execute(binder.Context, <-chan struct{}) error { return nil }

// TriggerEvent fires EventName on the run's event bus and awaits every
// subscriber before returning (spec.md §4.5 "trigger(event-name,
// cancel) -> task").
type TriggerEvent struct{}

func (TriggerEvent) Execute(ctx binder.Context, _ <-chan struct{}) error {
	name, err := ctx.GetInput("EventName")
	if err != nil {
		return err
	}
	if err := ctx.TriggerEvent(name.AsString()); err != nil {
		return err
	}
	return ctx.Trigger("Exit")
}
