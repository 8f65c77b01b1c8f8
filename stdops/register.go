package stdops

import (
	"fmt"

	"github.com/nodegraph/engine/binder"
)

// Register populates reg with every operator this package implements,
// under its stable definition id (spec.md §4.7). Callers combine this
// with their own domain-specific operators in one binder.Registry and
// pass LoopOperatorDefinitionIDs / EventListenerDefinitionIDs to
// engine.New's WithLoopOperators / WithEventListenerOperators so the
// planner and runtime recognize this package's loop headers and event
// listeners.
func Register(reg *binder.Registry) {
	reg.Register(DefBranch, "Branch", func() binder.Operator { return Branch{} })
	reg.Register(DefSequence, "Sequence", func() binder.Operator { return Sequence{} })
	reg.Register(DefGate, "Gate", func() binder.Operator { return GateNode{} })
	reg.Register(DefOnce, "Once", func() binder.Operator { return Once{} })

	reg.Register(DefForLoop, "For Loop", func() binder.Operator { return ForLoop{} })
	reg.Register(DefWhileLoop, "While Loop", func() binder.Operator { return WhileLoop{} })
	reg.Register(DefDoWhileLoop, "Do While", func() binder.Operator { return DoWhileLoop{} })
	reg.Register(DefRepeatUntilLoop, "Repeat Until", func() binder.Operator { return RepeatUntilLoop{} })
	reg.Register(DefForEach, "ForEach", func() binder.Operator { return ForEach{} })
	reg.Register(DefParallelForEach, "Parallel ForEach", func() binder.Operator { return ParallelForEach{} })

	reg.Register(DefTryCatch, "Try Catch", func() binder.Operator { return TryCatch{} })
	reg.Register(DefSetVariable, "Set Variable", func() binder.Operator { return SetVariable{} })
	reg.Register(DefGetVariable, "Get Variable", func() binder.Operator { return GetVariable{} })
	reg.Register(DefDelay, "Delay", func() binder.Operator { return Delay{} })
	reg.Register(DefHTTPRequest, "HTTP Request", func() binder.Operator { return HTTPRequest{} })

	reg.Register(DefCustomEventListener, "Custom Event Listener", func() binder.Operator { return CustomEventListener{} })
	reg.Register(DefTriggerEvent, "Trigger Event", func() binder.Operator { return TriggerEvent{} })

	reg.RegisterInline(DefMathAdd, "Add", mathOp("add", func(a, b float64) (float64, error) { return a + b, nil }))
	reg.RegisterInline(DefMathSub, "Subtract", mathOp("subtract", func(a, b float64) (float64, error) { return a - b, nil }))
	reg.RegisterInline(DefMathMul, "Multiply", mathOp("multiply", func(a, b float64) (float64, error) { return a * b, nil }))
	reg.RegisterInline(DefMathDiv, "Divide", mathOp("divide", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	}))

	reg.RegisterInline(DefStringConcat, "Concat", stringConcat)
	reg.RegisterInline(DefStringSplit, "Split", stringSplit)
	reg.RegisterInline(DefListAppend, "List Append", listAppend)
	reg.RegisterInline(DefListLength, "List Length", listLength)
	reg.RegisterInline(DefDictGet, "Dict Get", dictGet)
	reg.RegisterInline(DefDictSet, "Dict Set", dictSet)
	reg.RegisterInline(DefJSONEncode, "JSON Encode", jsonEncode)
	reg.RegisterInline(DefJSONDecode, "JSON Decode", jsonDecode)
}
