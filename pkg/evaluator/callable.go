package evaluator

import (
	"fmt"

	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/lexer"
)

// Callable is implemented by user functions and native builtins.
type Callable interface {
	Value
	Name() string
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
	String() string
}

// Function is a user-defined function closed over its defining frame.
type Function struct {
	name    string
	params  []lexer.Token
	body    []ast.Stmt
	closure *Environment
}

func (*Function) value() {}

func newFunction(name string, params []lexer.Token, body []ast.Stmt, closure *Environment) *Function {
	return &Function{name: name, params: params, body: body, closure: closure}
}

// Name returns the declared name, or "" for an anonymous function.
func (f *Function) Name() string { return f.name }

func (f *Function) Arity() int { return len(f.params) }

func (f *Function) String() string {
	if f.name == "" {
		return "<fn>"
	}
	return fmt.Sprintf("<fn %s>", f.name)
}

// Call runs the body in a fresh frame parented to the closure.
func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := f.closure.Child()
	for i, param := range f.params {
		env.Define(param.Lexeme, args[i])
	}

	out, err := in.executeBlock(f.body, env)
	if err != nil {
		return nil, err
	}

	switch out.flow {
	case flowReturn:
		return out.value, nil
	case flowBreak:
		// a break never crosses a call boundary
		return nil, &RuntimeError{
			Code:    diagnostics.EBreak,
			Message: msgBreakOutsideLoop,
			Token:   out.at,
		}
	}
	return NewNil(), nil
}

// NativeFunc is the Go implementation of a builtin.
type NativeFunc func(args []Value) (Value, error)

// Native is a builtin implemented in Go.
type Native struct {
	name  string
	arity int
	fn    NativeFunc
}

func (*Native) value() {}

// NewNative creates a builtin with a fixed arity.
func NewNative(name string, arity int, fn NativeFunc) *Native {
	return &Native{name: name, arity: arity, fn: fn}
}

func (n *Native) Name() string { return n.name }

func (n *Native) Arity() int { return n.arity }

func (n *Native) String() string { return "<native fn>" }

func (n *Native) Call(_ *Interpreter, args []Value) (Value, error) {
	val, err := n.fn(args)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return NewNil(), nil
	}
	return val, nil
}
