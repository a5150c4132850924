package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a scalar cell: set member, parameter value or literal.
// The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Int creates an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool creates a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Number returns v as float64. Booleans convert to 0/1; strings fail.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt, KindBool:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Int returns v as int64 when it holds an integer.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Truth returns the boolean interpretation of v.
func (v Value) Truth() bool {
	switch v.kind {
	case KindInt, KindBool:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	default:
		return false
	}
}

// Text returns the display text of v without quoting.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	default:
		return "<invalid>"
	}
}

// Interface returns v as int64, float64, string or bool; nil when invalid.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.i != 0
	default:
		return nil
	}
}

// String implements fmt.Stringer. Strings are quoted.
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.Text()
}

// Normalize folds integral floats into ints so that a CSV cell "2.0" and
// the range member 2 are the same member.
func (v Value) Normalize() Value {
	if v.kind == KindFloat && v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
		return Int(int64(v.f))
	}
	return v
}

// Key returns the canonical map key of v.
func (v Value) Key() string {
	n := v.Normalize()
	switch n.kind {
	case KindInt:
		return "i" + strconv.FormatInt(n.i, 10)
	case KindFloat:
		return "f" + strconv.FormatFloat(n.f, 'g', -1, 64)
	case KindString:
		return "s" + strconv.Itoa(len(n.s)) + ":" + n.s
	case KindBool:
		return "b" + strconv.FormatInt(n.i, 10)
	default:
		return "?"
	}
}

// Equal reports whether v and o are the same member after normalisation.
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// ParseCell converts raw text from a tabular source into a Value:
// integers first, then floats, otherwise the trimmed text as a string.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f)
	}
	return String(s)
}

// FromAny converts a Go scalar into a Value.
func FromAny(x any) (Value, error) {
	switch val := x.(type) {
	case Value:
		return val, nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(int64(val)), nil
	case float32:
		return Float(float64(val)), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	default:
		return Value{}, fmt.Errorf("unsupported scalar type %T", x)
	}
}

// Tuple is an ordered index tuple. The empty Tuple addresses a scalar.
type Tuple []Value

// Key returns the canonical map key for t.
func (t Tuple) Key() string {
	switch len(t) {
	case 0:
		return ""
	case 1:
		return t[0].Key()
	}
	var b strings.Builder
	for i, v := range t {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(v.Key())
	}
	return b.String()
}

// Clone returns a copy of t that does not share its backing array.
func (t Tuple) Clone() Tuple {
	if t == nil {
		return nil
	}
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

// String renders t as "[A,1]".
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.Text()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
