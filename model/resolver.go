package model

import "encoding/json"

// TypeResolver maps a socket's declared type name (a string, spec.md
// §3) to runtime conversions: decoding a literal default and
// converting a produced Value to the type an input socket declares.
// Host applications register one resolver covering every type name
// used by their node registry; the engine never hardcodes type names.
type TypeResolver interface {
	// DecodeDefault parses a socket's serialized literal default
	// (typically JSON text) into a Value of the given type name.
	DecodeDefault(typeName, literal string) (Value, error)

	// Convert coerces v, produced for some other purpose, into the
	// shape declared by typeName. Implementations should accept a
	// Value already of the right Kind unchanged, and may implement
	// widening conversions (e.g. int -> float). Return an error if no
	// conversion exists.
	Convert(typeName string, v Value) (Value, error)
}

// DefaultResolver is a TypeResolver covering the built-in scalar and
// collection type names ("int", "float", "bool", "string", "bytes",
// "list", "map", "any"). Node registries with custom opaque types
// should wrap DefaultResolver and fall back to it for the built-ins.
type DefaultResolver struct{}

// DecodeDefault decodes literal as JSON and lifts the result into a
// Value, then converts it to typeName.
func (DefaultResolver) DecodeDefault(typeName, literal string) (Value, error) {
	if literal == "" {
		return Nil, nil
	}
	var plain any
	if err := json.Unmarshal([]byte(literal), &plain); err != nil {
		// Not valid JSON: treat the literal as a raw string default,
		// e.g. an unquoted node-authored default like `hello` failing
		// to parse falls back to "hello" the string, matching how
		// visual-scripting literal fields are typically free text.
		return String(literal), nil
	}
	return DefaultResolver{}.Convert(typeName, FromPlain(plain))
}

// Convert performs the built-in conversions; "any" accepts every kind
// unchanged.
func (DefaultResolver) Convert(typeName string, v Value) (Value, error) {
	switch typeName {
	case "", "any":
		return v, nil
	case "int":
		if v.Kind == KindInt {
			return v, nil
		}
		n, err := v.AsInt()
		if err != nil {
			return Nil, err
		}
		return Int(n), nil
	case "float":
		if v.Kind == KindFloat {
			return v, nil
		}
		f, err := v.AsFloat()
		if err != nil {
			return Nil, err
		}
		return Float(f), nil
	case "bool":
		if v.Kind == KindBool {
			return v, nil
		}
		b, err := v.AsBool()
		if err != nil {
			return Nil, err
		}
		return Bool(b), nil
	case "string":
		if v.Kind == KindString {
			return v, nil
		}
		return String(v.AsString()), nil
	case "bytes":
		if v.Kind == KindBytes {
			return v, nil
		}
		return BytesVal([]byte(v.AsString())), nil
	case "list":
		if v.Kind == KindList || v.Kind == KindNil {
			return v, nil
		}
		return Nil, errTypeMismatch(typeName, v)
	case "map":
		if v.Kind == KindMap || v.Kind == KindNil {
			return v, nil
		}
		return Nil, errTypeMismatch(typeName, v)
	default:
		// Unknown/opaque type name: accept already-opaque values of
		// this type name, or nil; reject everything else.
		if v.Kind == KindNil || (v.Kind == KindOpaque && v.OpaqueType == typeName) {
			return v, nil
		}
		return Nil, errTypeMismatch(typeName, v)
	}
}

func errTypeMismatch(typeName string, v Value) error {
	return &ConvertError{TypeName: typeName, Kind: v.Kind}
}

// ConvertError reports that a Value could not be converted to a
// socket's declared type.
type ConvertError struct {
	TypeName string
	Kind     Kind
}

func (e *ConvertError) Error() string {
	return "cannot convert value of kind " + e.Kind.String() + " to type " + e.TypeName
}
