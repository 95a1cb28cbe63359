package stdlib

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/slox/pkg/evaluator"
)

// len(s) → number of characters
func stdlibLen(args []evaluator.Value) (evaluator.Value, error) {
	s, err := stringArg("len", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewNumber(float64(utf8.RuneCountInString(s))), nil
}

// upper(s) → string
func stdlibUpper(args []evaluator.Value) (evaluator.Value, error) {
	s, err := stringArg("upper", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewString(strings.ToUpper(s)), nil
}

// lower(s) → string
func stdlibLower(args []evaluator.Value) (evaluator.Value, error) {
	s, err := stringArg("lower", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewString(strings.ToLower(s)), nil
}

// num(s) → number; numbers pass through unchanged
func stdlibNum(args []evaluator.Value) (evaluator.Value, error) {
	switch v := args[0].(type) {
	case evaluator.Number:
		return v, nil
	case evaluator.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("num: cannot convert %q to a number", v.Value)
		}
		return evaluator.NewNumber(n), nil
	default:
		return nil, fmt.Errorf("num: expected a string, got %s", evaluator.TypeName(args[0]))
	}
}
