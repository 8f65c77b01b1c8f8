package stdops

import (
	"fmt"
	"time"

	"github.com/nodegraph/engine/binder"
)

// Delay suspends the current execution chain for DurationMs
// milliseconds, observing cancel (spec.md §4.7 "Delay", §5 "Suspension
// points": Delay is one of the framework-defined points a node
// invocation may yield at).
type Delay struct{}

func (Delay) Execute(ctx binder.Context, cancel <-chan struct{}) error {
	ms, err := ctx.GetInput("DurationMs")
	if err != nil {
		return err
	}
	n, err := ms.AsInt()
	if err != nil {
		return err
	}
	timer := time.NewTimer(time.Duration(n) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ctx.Trigger("Exit")
	case <-cancel:
		return fmt.Errorf("delay: cancelled after %s", time.Duration(n)*time.Millisecond)
	}
}
