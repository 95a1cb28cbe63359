package stdlib

import (
	"math"

	"github.com/thomasrohde/slox/pkg/evaluator"
)

// floor(n) → number
func stdlibFloor(args []evaluator.Value) (evaluator.Value, error) {
	n, err := numberArg("floor", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewNumber(math.Floor(n)), nil
}

// abs(n) → number
func stdlibAbs(args []evaluator.Value) (evaluator.Value, error) {
	n, err := numberArg("abs", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewNumber(math.Abs(n)), nil
}

// max(a, b) → number
func stdlibMax(args []evaluator.Value) (evaluator.Value, error) {
	a, err := numberArg("max", args[0])
	if err != nil {
		return nil, err
	}
	b, err := numberArg("max", args[1])
	if err != nil {
		return nil, err
	}
	return evaluator.NewNumber(math.Max(a, b)), nil
}

// min(a, b) → number
func stdlibMin(args []evaluator.Value) (evaluator.Value, error) {
	a, err := numberArg("min", args[0])
	if err != nil {
		return nil, err
	}
	b, err := numberArg("min", args[1])
	if err != nil {
		return nil, err
	}
	return evaluator.NewNumber(math.Min(a, b)), nil
}
