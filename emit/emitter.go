// Package emit provides event emission and observability for graph execution.
package emit

import "context"

// Emitter receives run/layer/node observability events. Implementations
// must not block the caller for long and must tolerate concurrent
// calls from multiple nodes.
type Emitter interface {
	// Emit sends a single event. Must not panic.
	Emit(event Event)

	// EmitBatch sends events in order. Returns error only on
	// catastrophic, non-per-event failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until buffered events are delivered or ctx expires.
	// Safe to call more than once.
	Flush(ctx context.Context) error
}
