// Package model defines the static data shapes that flow through a node
// graph: sockets, nodes, connections, and the tagged-variant value type
// that crosses socket boundaries at runtime.
package model

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which alternative of Value is populated.
type Kind int

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindList
	KindMap
	KindStream
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindStream:
		return "stream"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is the tagged-variant payload carried by a socket at runtime. A
// node graph is untyped at the host-language boundary (sockets only
// declare a type *name*); Value is how this engine represents "any
// socket payload" without resorting to bare interface{} everywhere.
//
// Exactly one of the typed fields is meaningful, selected by Kind.
// OpaqueType is only set when Kind is KindOpaque, and names the type a
// TypeResolver should use to interpret OpaqueData.
type Value struct {
	Kind       Kind
	Int        int64
	Float      float64
	Bool       bool
	Str        string
	Bytes      []byte
	List       []Value
	Map        map[string]Value
	OpaqueType string
	OpaqueData []byte
}

// Nil is the zero Value.
var Nil = Value{Kind: KindNil}

func Int(v int64) Value        { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value    { return Value{Kind: KindFloat, Float: v} }
func Bool(v bool) Value        { return Value{Kind: KindBool, Bool: v} }
func String(v string) Value    { return Value{Kind: KindString, Str: v} }
func BytesVal(v []byte) Value  { return Value{Kind: KindBytes, Bytes: v} }
func ListVal(v []Value) Value  { return Value{Kind: KindList, List: v} }
func MapVal(v map[string]Value) Value {
	return Value{Kind: KindMap, Map: v}
}
func Opaque(typeID string, data []byte) Value {
	return Value{Kind: KindOpaque, OpaqueType: typeID, OpaqueData: data}
}

// IsNil reports whether v carries no payload.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// AsInt returns the int64 payload, converting from float (truncating)
// and bool (1 or 0). Every other kind, including string and nil, is an
// error.
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindFloat:
		return int64(v.Float), nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value of kind %s cannot convert to int", v.Kind)
	}
}

// AsFloat returns the float64 payload, converting from int where safe.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.Float, nil
	case KindInt:
		return float64(v.Int), nil
	default:
		return 0, fmt.Errorf("value of kind %s cannot convert to float", v.Kind)
	}
}

// AsBool returns the bool payload, treating non-zero numbers and
// non-empty strings as true.
func (v Value) AsBool() (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.Int != 0, nil
	case KindFloat:
		return v.Float != 0, nil
	case KindString:
		return v.Str != "", nil
	default:
		return false, fmt.Errorf("value of kind %s cannot convert to bool", v.Kind)
	}
}

// AsString renders the value as a string. Every kind has a string
// rendering, so this never errors.
func (v Value) AsString() string {
	switch v.Kind {
	case KindNil:
		return ""
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindBytes:
		return string(v.Bytes)
	case KindList, KindMap:
		b, err := json.Marshal(v.toPlain())
		if err != nil {
			return fmt.Sprintf("%v", v.toPlain())
		}
		return string(b)
	case KindOpaque:
		return fmt.Sprintf("opaque(%s)", v.OpaqueType)
	default:
		return ""
	}
}

// toPlain converts a Value to a plain Go value (map[string]any, []any,
// scalars) suitable for json.Marshal, used both for string rendering
// and for serializing literal defaults.
func (v Value) toPlain() any {
	switch v.Kind {
	case KindNil:
		return nil
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.toPlain()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.toPlain()
		}
		return out
	case KindOpaque:
		return map[string]any{"type": v.OpaqueType, "data": v.OpaqueData}
	default:
		return nil
	}
}

// FromPlain lifts a decoded JSON value (as produced by json.Unmarshal
// into interface{}) into a Value. Used by resolvers to deserialize
// socket literal defaults.
func FromPlain(v any) Value {
	switch t := v.(type) {
	case nil:
		return Nil
	case bool:
		return Bool(t)
	case float64:
		return Float(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case string:
		return String(t)
	case []byte:
		return BytesVal(t)
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = FromPlain(e)
		}
		return ListVal(list)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromPlain(e)
		}
		return MapVal(m)
	default:
		return Nil
	}
}
