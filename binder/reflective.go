package binder

import (
	"fmt"
	"reflect"

	"github.com/nodegraph/engine/model"
)

// Signal marks a reflective operator's output-struct field as an
// execution output: setting it true fires that socket after the call
// returns (spec.md §4.4 "Legacy reflective binding").
type Signal bool

// Fire is the conventional true value for a Signal field.
const Fire Signal = true

var errorType = reflect.TypeOf((*error)(nil)).Elem()
var signalType = reflect.TypeOf(Signal(false))
var valueType = reflect.TypeOf(model.Value{})

// RegisterReflective binds fn — a func(*In, *Out) error whose In
// fields are tagged `in:"SocketName"` and whose Out fields are tagged
// `out:"SocketName"` (execution outputs typed Signal) — as node's
// operator. Every invocation: populates a fresh In from ctx.GetInput
// by tag, calls fn, then copies Out fields back via ctx.SetOutput or
// ctx.Trigger, in struct declaration order (spec.md §4.4).
func RegisterReflective(r *Registry, node model.NodeDescriptor, fn interface{}) error {
	rt := reflect.TypeOf(fn)
	if rt == nil || rt.Kind() != reflect.Func {
		return fmt.Errorf("binder: RegisterReflective requires a func, got %T", fn)
	}
	if rt.NumIn() != 2 ||
		rt.In(0).Kind() != reflect.Ptr || rt.In(0).Elem().Kind() != reflect.Struct ||
		rt.In(1).Kind() != reflect.Ptr || rt.In(1).Elem().Kind() != reflect.Struct {
		return fmt.Errorf("binder: reflective operator must be func(*In, *Out) error")
	}
	if rt.NumOut() != 1 || !rt.Out(0).Implements(errorType) {
		return fmt.Errorf("binder: reflective operator must return error")
	}

	inType := rt.In(0).Elem()
	outType := rt.In(1).Elem()
	fnVal := reflect.ValueOf(fn)

	r.Register(node.DefinitionID, node.Name, func() Operator {
		return OperatorFunc(func(ctx Context, cancel <-chan struct{}) error {
			inPtr := reflect.New(inType)
			if err := populateIn(ctx, inPtr.Elem()); err != nil {
				return err
			}
			outPtr := reflect.New(outType)
			results := fnVal.Call([]reflect.Value{inPtr, outPtr})
			if errVal := results[0]; !errVal.IsNil() {
				return errVal.Interface().(error)
			}
			return applyOut(ctx, node, outPtr.Elem())
		})
	})
	return nil
}

func populateIn(ctx Context, in reflect.Value) error {
	t := in.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("in")
		if tag == "" {
			continue
		}
		v, err := ctx.GetInput(tag)
		if err != nil {
			return err
		}
		if err := assignField(in.Field(i), v); err != nil {
			return fmt.Errorf("binder: input %q: %w", tag, err)
		}
	}
	return nil
}

func assignField(field reflect.Value, v model.Value) error {
	switch field.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, err := v.AsInt()
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64, reflect.Float32:
		f, err := v.AsFloat()
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.String:
		field.SetString(v.AsString())
	default:
		if field.Type() == valueType {
			field.Set(reflect.ValueOf(v))
			return nil
		}
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func applyOut(ctx Context, node model.NodeDescriptor, out reflect.Value) error {
	t := out.Type()
	fired := false
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("out")
		if tag == "" {
			continue
		}
		fv := out.Field(i)
		if field.Type == signalType {
			if fv.Bool() {
				fired = true
				if err := ctx.Trigger(tag); err != nil {
					return err
				}
			}
			continue
		}
		v, err := fieldToValue(fv)
		if err != nil {
			return fmt.Errorf("binder: output %q: %w", tag, err)
		}
		ctx.SetOutput(tag, v)
	}

	// Execution-signal default (spec.md §4.4): a callable node with
	// exactly one execution output and no Signal field in Out fires it
	// automatically on success.
	if !fired && !hasSignalField(t) {
		if outs := node.ExecutionOutputs(); len(outs) == 1 {
			return ctx.Trigger(outs[0].Name)
		}
	}
	return nil
}

func hasSignalField(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type == signalType {
			return true
		}
	}
	return false
}

func fieldToValue(fv reflect.Value) (model.Value, error) {
	switch fv.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		return model.Int(fv.Int()), nil
	case reflect.Float64, reflect.Float32:
		return model.Float(fv.Float()), nil
	case reflect.Bool:
		return model.Bool(fv.Bool()), nil
	case reflect.String:
		return model.String(fv.String()), nil
	default:
		if fv.Type() == valueType {
			return fv.Interface().(model.Value), nil
		}
		return model.Nil, fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
}
