package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrInvalidAttribute is returned when an attribute value cannot be decoded.
var ErrInvalidAttribute = errors.New("invalid attribute value")

// =============================================================================
// Value
// =============================================================================

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is one attribute payload: a string, number, bool, list of strings,
// or nested attribute map. The zero Value is invalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
	m    Attributes
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func List(items ...string) Value { return Value{kind: KindList, list: slices.Clone(items)} }
func Map(attrs Attributes) Value { return Value{kind: KindMap, m: attrs.Clone()} }

// Kind reports the populated variant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

func (v Value) AsMap() (Attributes, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		return slices.Equal(v.list, o.list)
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return true
	}
}

// MarshalJSON encodes the value as its plain JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("%w: zero value", ErrInvalidAttribute)
	}
}

// UnmarshalJSON decodes any plain JSON value except null and arrays
// containing non-strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttribute, err)
	}
	decoded, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case bool:
		return Bool(x), nil
	case []any:
		items := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: list element %d is not a string", ErrInvalidAttribute, i)
			}
			items = append(items, s)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		attrs := make(Attributes, len(x))
		for k, item := range x {
			val, err := fromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = val
		}
		return Value{kind: KindMap, m: attrs}, nil
	case nil:
		return Value{}, fmt.Errorf("%w: null", ErrInvalidAttribute)
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAttribute, raw)
	}
}

// =============================================================================
// Attributes
// =============================================================================

// Attributes is the open key/value payload populated by phase hooks.
type Attributes map[string]Value

// Clone returns a deep copy. A nil map clones to an empty one.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		switch v.kind {
		case KindList:
			v.list = slices.Clone(v.list)
		case KindMap:
			v.m = v.m.Clone()
		}
		out[k] = v
	}
	return out
}

// Merge copies every key of other into a, overwriting existing keys.
func (a Attributes) Merge(other Attributes) {
	maps.Copy(a, other.Clone())
}

// Equal reports deep equality.
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
