// Package evaluator implements the slox tree-walking evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// Value is the interface for all slox runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Nil represents the nil value.
type Nil struct{}

func (Nil) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents a numeric value. All numbers are float64.
type Number struct {
	Value float64
}

func (Number) value() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) value() {}

// NewNil creates the nil value.
func NewNil() Value {
	return Nil{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// FromLiteral converts a scanned literal (nil, bool, float64 or string)
// into a runtime value.
func FromLiteral(lit any) Value {
	switch v := lit.(type) {
	case bool:
		return NewBool(v)
	case float64:
		return NewNumber(v)
	case string:
		return NewString(v)
	default:
		return NewNil()
	}
}

// Truthy returns the boolean interpretation of a value.
// nil and false are falsy; everything else, including 0 and "", is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Nil:
		return false
	case Bool:
		return val.Value
	default:
		return true
	}
}

// Equal compares two values for ==. Primitives compare structurally;
// a callable is never equal to anything, itself included.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x.Value == y.Value
	case Number:
		y, ok := b.(Number)
		return ok && x.Value == y.Value
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value
	default:
		return false
	}
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Callable:
		return "function"
	default:
		return "unknown"
	}
}

// FormatNumber renders a number the way `print` shows it: integral values
// have no fractional part and very large or small magnitudes use exponent
// notation.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}

	abs := math.Abs(n)
	var text string
	if abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		text = strconv.FormatFloat(n, 'f', -1, 64)
	} else {
		text = strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strings.TrimSuffix(text, ".0")
}

// Stringify renders any value for display.
func Stringify(v Value) string {
	switch val := v.(type) {
	case nil, Nil:
		return "nil"
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(val.Value)
	case String:
		return val.Value
	case Callable:
		return val.String()
	default:
		return "?"
	}
}
