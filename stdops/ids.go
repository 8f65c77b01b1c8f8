// Package stdops implements the standard operator library (spec.md
// §4.7): control-flow operators (Branch, Sequence, Gate, Once),
// loop headers (For/While/DoWhile/RepeatUntil/ForEach/Parallel ForEach),
// Try/Catch, variable access, Delay, an HTTP request operator, the
// custom-event-bus pair (listener/trigger), and a set of inline
// pure-data operators (math/string/list/dict/json).
// Every operator here is a plain binder.Operator, registered under a
// stable definition id via Register.
package stdops

// Definition ids, the stable keys a graph's NodeDescriptor.DefinitionID
// resolves through binder.Registry (spec.md §4.4 "preferring definition
// id").
const (
	DefBranch              = "std.branch"
	DefSequence            = "std.sequence"
	DefGate                = "std.gate"
	DefOnce                = "std.once"
	DefForLoop             = "std.for_loop"
	DefWhileLoop           = "std.while_loop"
	DefDoWhileLoop         = "std.do_while_loop"
	DefRepeatUntilLoop     = "std.repeat_until_loop"
	DefForEach             = "std.for_each"
	DefParallelForEach     = "std.parallel_for_each"
	DefTryCatch            = "std.try_catch"
	DefSetVariable         = "std.set_variable"
	DefGetVariable         = "std.get_variable"
	DefDelay               = "std.delay"
	DefHTTPRequest         = "std.http_request"
	DefCustomEventListener = "std.event.listener"
	DefTriggerEvent        = "std.event.trigger"

	DefMathAdd      = "std.math.add"
	DefMathSub      = "std.math.sub"
	DefMathMul      = "std.math.mul"
	DefMathDiv      = "std.math.div"
	DefStringConcat = "std.string.concat"
	DefStringSplit  = "std.string.split"
	DefListAppend   = "std.list.append"
	DefListLength   = "std.list.length"
	DefDictGet      = "std.dict.get"
	DefDictSet      = "std.dict.set"
	DefJSONEncode   = "std.json.encode"
	DefJSONDecode   = "std.json.decode"
)

// Conventional execution socket names shared across operators in this
// package, matching the names the planner and engine already look for
// (model.ExecutionInputName, plan.LoopPathSocket, plan.ExitSocket).
const (
	socketEnter = "Enter"
	socketExit  = "Exit"
)

// LoopOperatorDefinitionIDs is the set of definition ids the planner
// must be configured with (engine.WithLoopOperators) for loop-body
// extraction to recognize this package's loop headers (spec.md §4.1
// rule 1).
var LoopOperatorDefinitionIDs = []string{
	DefForLoop,
	DefWhileLoop,
	DefDoWhileLoop,
	DefRepeatUntilLoop,
	DefForEach,
	DefParallelForEach,
}

// EventListenerDefinitionIDs is the set of definition ids the engine
// must be configured with (engine.WithEventListenerOperators) to
// auto-subscribe CustomEventListener nodes at run start (spec.md §4.5).
var EventListenerDefinitionIDs = []string{DefCustomEventListener}
