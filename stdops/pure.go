package stdops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/model"
)

// Pure data operators: no execution sockets, registered as inline
// operators (spec.md §4.4 route 2, "large families of trivial
// pure-data operators (math, string, list, dict, json, …)"). Each is
// evaluated lazily by GetInput on demand (spec.md §3 invariant 7), so
// none of them ever calls Trigger.

func mathOp(name string, f func(a, b float64) (float64, error)) binder.OperatorFunc {
	return func(ctx binder.Context, _ <-chan struct{}) error {
		av, err := ctx.GetInput("A")
		if err != nil {
			return err
		}
		bv, err := ctx.GetInput("B")
		if err != nil {
			return err
		}
		a, err := av.AsFloat()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		b, err := bv.AsFloat()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		result, err := f(a, b)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if av.Kind == model.KindInt && bv.Kind == model.KindInt {
			ctx.SetOutput("Result", model.Int(int64(result)))
		} else {
			ctx.SetOutput("Result", model.Float(result))
		}
		return nil
	}
}

func stringConcat(ctx binder.Context, _ <-chan struct{}) error {
	a, err := ctx.GetInput("A")
	if err != nil {
		return err
	}
	b, err := ctx.GetInput("B")
	if err != nil {
		return err
	}
	ctx.SetOutput("Result", model.String(a.AsString()+b.AsString()))
	return nil
}

func stringSplit(ctx binder.Context, _ <-chan struct{}) error {
	str, err := ctx.GetInput("Value")
	if err != nil {
		return err
	}
	sep, err := ctx.GetInput("Separator")
	if err != nil {
		return err
	}
	parts := strings.Split(str.AsString(), sep.AsString())
	values := make([]model.Value, len(parts))
	for i, p := range parts {
		values[i] = model.String(p)
	}
	ctx.SetOutput("Result", model.ListVal(values))
	return nil
}

func listAppend(ctx binder.Context, _ <-chan struct{}) error {
	list, err := ctx.GetInput("List")
	if err != nil {
		return err
	}
	item, err := ctx.GetInput("Item")
	if err != nil {
		return err
	}
	out := make([]model.Value, len(list.List), len(list.List)+1)
	copy(out, list.List)
	out = append(out, item)
	ctx.SetOutput("Result", model.ListVal(out))
	return nil
}

func listLength(ctx binder.Context, _ <-chan struct{}) error {
	list, err := ctx.GetInput("List")
	if err != nil {
		return err
	}
	ctx.SetOutput("Result", model.Int(int64(len(list.List))))
	return nil
}

func dictGet(ctx binder.Context, _ <-chan struct{}) error {
	dict, err := ctx.GetInput("Dict")
	if err != nil {
		return err
	}
	key, err := ctx.GetInput("Key")
	if err != nil {
		return err
	}
	v, ok := dict.Map[key.AsString()]
	if !ok {
		ctx.SetOutput("Result", model.Nil)
		return nil
	}
	ctx.SetOutput("Result", v)
	return nil
}

func dictSet(ctx binder.Context, _ <-chan struct{}) error {
	dict, err := ctx.GetInput("Dict")
	if err != nil {
		return err
	}
	key, err := ctx.GetInput("Key")
	if err != nil {
		return err
	}
	value, err := ctx.GetInput("Value")
	if err != nil {
		return err
	}
	out := make(map[string]model.Value, len(dict.Map)+1)
	for k, v := range dict.Map {
		out[k] = v
	}
	out[key.AsString()] = value
	ctx.SetOutput("Result", model.MapVal(out))
	return nil
}

func jsonEncode(ctx binder.Context, _ <-chan struct{}) error {
	value, err := ctx.GetInput("Value")
	if err != nil {
		return err
	}
	plain := valueToPlain(value)
	b, err := json.Marshal(plain)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	ctx.SetOutput("Result", model.String(string(b)))
	return nil
}

func jsonDecode(ctx binder.Context, _ <-chan struct{}) error {
	text, err := ctx.GetInput("Text")
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal([]byte(text.AsString()), &plain); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	ctx.SetOutput("Result", model.FromPlain(plain))
	return nil
}

// valueToPlain mirrors model.Value's unexported toPlain for the
// json.Marshal boundary: it recurses into List/Map, returns scalars
// natively so numbers and bools stay JSON numbers and bools, and uses
// AsString only for the remaining kinds.
func valueToPlain(v model.Value) any {
	switch v.Kind {
	case model.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = valueToPlain(e)
		}
		return out
	case model.KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = valueToPlain(e)
		}
		return out
	case model.KindInt:
		return v.Int
	case model.KindFloat:
		return v.Float
	case model.KindBool:
		return v.Bool
	case model.KindString:
		return v.Str
	case model.KindNil:
		return nil
	default:
		return v.AsString()
	}
}
