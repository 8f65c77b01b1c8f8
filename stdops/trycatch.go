package stdops

import (
	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/model"
)

// TryCatch runs its Try branch synchronously via TriggerScoped against
// the node's own storage (not a child overlay scope: Try's writes are
// meant to be visible to the rest of the graph, unlike Parallel
// ForEach's isolated iterations), so an OperatorFailure from the Try
// branch's immediate downstream node returns to this Execute call and
// can be caught locally, matching spec.md §7's "OperatorFailure inside
// a Try/Catch's Try region: caught locally". Finally always runs,
// including when cancellation aborted the Try branch — but
// cancellation itself is never swallowed, it still propagates once
// Finally has had its chance (spec.md §7 "Cancellation is not caught by
// Try/Catch").
//
// This catches failures raised by the immediate node(s) wired to Try;
// a failure several hops further down the Try chain surfaces through
// the ordinary plan-driven dispatch path instead, after this node has
// already returned, and is not caught here. Scenario F of spec.md §8
// (a single Throw Error node wired directly to Try) is exactly the
// shape this covers.
type TryCatch struct{}

func (TryCatch) Execute(ctx binder.Context, cancel <-chan struct{}) error {
	st := ctx.Storage()
	tryErr := ctx.TriggerScoped("Try", st)

	select {
	case <-cancel:
		_ = ctx.TriggerScoped("Finally", st)
		return tryErr
	default:
	}

	if tryErr != nil {
		ctx.SetOutput("Error", model.String(tryErr.Error()))
		ctx.EmitFeedback(tryErr.Error(), binder.FeedbackError)
		if catchErr := ctx.TriggerScoped("Catch", st); catchErr != nil {
			_ = ctx.TriggerScoped("Finally", st)
			return catchErr
		}
	}
	return ctx.TriggerScoped("Finally", st)
}
