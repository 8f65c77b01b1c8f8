package emit

// Event is one observability record: node/layer/loop lifecycle,
// feedback, or run-level completion/failure/cancellation (spec.md §6).
// An Emitter is the only logging surface this module has — there is no
// separate logger.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is an optional sequential step number within the run. The
	// engine's own events leave it zero; HistoryFilter's MinStep/MaxStep
	// match on it for producers that set it.
	Step int

	// NodeID identifies which node emitted this event. Empty for
	// run-level and layer-level events.
	NodeID string

	// LayerID identifies the LayerStep a layer-started/layer-completed
	// event belongs to. Empty for node- and run-level events.
	LayerID string

	// Msg names the event kind: node-started, node-completed,
	// node-failed, layer-started, layer-completed, feedback,
	// execution-canceled, execution-failed, and so on (spec.md §6).
	Msg string

	// Meta carries event-kind-specific structured data, e.g.
	// "duration_ms", "error", or a feedback event's "kind".
	Meta map[string]interface{}
}
