package stdlib

import (
	"fmt"

	"github.com/thomasrohde/slox/pkg/evaluator"
)

// RegisterDefaults adds all stdlib functions.
func RegisterDefaults(r *Registry) {
	// Conversions
	r.Register(Fn{Name: "str", Arity: 1, Execute: stdlibStr})
	r.Register(Fn{Name: "num", Arity: 1, Execute: stdlibNum})
	r.Register(Fn{Name: "type", Arity: 1, Execute: stdlibType})

	// String ops
	r.Register(Fn{Name: "len", Arity: 1, Execute: stdlibLen})
	r.Register(Fn{Name: "upper", Arity: 1, Execute: stdlibUpper})
	r.Register(Fn{Name: "lower", Arity: 1, Execute: stdlibLower})

	// Math
	r.Register(Fn{Name: "floor", Arity: 1, Execute: stdlibFloor})
	r.Register(Fn{Name: "abs", Arity: 1, Execute: stdlibAbs})
	r.Register(Fn{Name: "max", Arity: 2, Execute: stdlibMax})
	r.Register(Fn{Name: "min", Arity: 2, Execute: stdlibMin})
}

// Defaults returns a registry populated by RegisterDefaults.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// --- shared helpers ---

func numberArg(fn string, v evaluator.Value) (float64, error) {
	n, ok := v.(evaluator.Number)
	if !ok {
		return 0, fmt.Errorf("%s: expected a number, got %s", fn, evaluator.TypeName(v))
	}
	return n.Value, nil
}

func stringArg(fn string, v evaluator.Value) (string, error) {
	s, ok := v.(evaluator.String)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %s", fn, evaluator.TypeName(v))
	}
	return s.Value, nil
}

// str(v) → string, rendered as print shows it
func stdlibStr(args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(evaluator.Stringify(args[0])), nil
}

// type(v) → "nil" | "boolean" | "number" | "string" | "function"
func stdlibType(args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(evaluator.TypeName(args[0])), nil
}
