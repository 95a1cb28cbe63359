package evaluator

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/lexer"
)

const (
	msgBreakOutsideLoop = "Can't use 'break' outside of a loop."
	msgReturnTopLevel   = "Can't return from top-level code."
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart     TraceEventType = "run_start"
	TraceRunEnd       TraceEventType = "run_end"
	TraceCallStart    TraceEventType = "call_start"
	TraceCallEnd      TraceEventType = "call_end"
	TraceRuntimeError TraceEventType = "runtime_error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Line      int               `json:"line,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// Options configures an Interpreter.
type Options struct {
	// Stdout receives `print` output. Defaults to os.Stdout.
	Stdout io.Writer
	Trace  func(event TraceEvent)
	RunID  string
	// MaxDepth bounds nested calls; 0 leaves recursion unbounded.
	MaxDepth int
}

// RuntimeError represents a runtime error during slox execution.
type RuntimeError struct {
	Code    string
	Message string
	Token   lexer.Token
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a runtime-track diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Token.Line, "")
}

// flow says how a statement finished.
type flow int

const (
	flowNormal flow = iota
	flowBreak
	flowReturn
)

// outcome is the result of executing a statement. at holds the
// break or return keyword so an escaping signal can be reported.
type outcome struct {
	flow  flow
	value Value
	at    lexer.Token
}

// Interpreter walks the AST. Globals persist across Interpret calls.
type Interpreter struct {
	opts    Options
	out     io.Writer
	globals *Environment
	env     *Environment
	depth   int
}

// New creates an interpreter with the clock builtin pre-registered.
func New(opts Options) *Interpreter {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	globals := NewEnvironment(nil)
	in := &Interpreter{
		opts:    opts,
		out:     out,
		globals: globals,
		env:     globals,
	}
	in.DefineNative("clock", 0, func([]Value) (Value, error) {
		return NewNumber(float64(time.Now().UnixNano()) / 1e9), nil
	})
	return in
}

// Globals returns the process-lifetime global frame.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// DefineNative registers a builtin in the global frame.
func (in *Interpreter) DefineNative(name string, arity int, fn NativeFunc) {
	in.globals.Define(name, NewNative(name, arity, fn))
}

// invoke runs fn one call level deeper.
func (in *Interpreter) invoke(fn Callable, args []Value) (Value, error) {
	in.depth++
	defer func() { in.depth-- }()
	return fn.Call(in, args)
}

func (in *Interpreter) emit(event TraceEventType, line int, data map[string]string) {
	if in.opts.Trace != nil {
		in.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     in.opts.RunID,
			Event:     event,
			Line:      line,
			Data:      data,
		})
	}
}

// Interpret executes top-level statements in order. The first runtime
// error aborts the remaining statements and is returned as a
// *RuntimeError; global definitions made before it are kept.
func (in *Interpreter) Interpret(stmts []ast.Stmt) error {
	in.env = in.globals
	in.depth = 0
	in.emit(TraceRunStart, 0, map[string]string{"statements": fmt.Sprint(len(stmts))})

	err := in.interpret(stmts)

	if rtErr, ok := err.(*RuntimeError); ok {
		in.emit(TraceRuntimeError, rtErr.Token.Line, map[string]string{
			"code":    rtErr.Code,
			"message": rtErr.Message,
		})
	}
	in.emit(TraceRunEnd, 0, nil)
	return err
}

func (in *Interpreter) interpret(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		out, err := in.execute(stmt)
		if err != nil {
			return err
		}
		switch out.flow {
		case flowBreak:
			return &RuntimeError{Code: diagnostics.EBreak, Message: msgBreakOutsideLoop, Token: out.at}
		case flowReturn:
			return &RuntimeError{Code: diagnostics.EReturn, Message: msgReturnTopLevel, Token: out.at}
		}
	}
	return nil
}

// executeBlock runs stmts with env as the current frame and restores the
// previous frame on every exit path.
func (in *Interpreter) executeBlock(stmts []ast.Stmt, env *Environment) (outcome, error) {
	prev := in.env
	in.env = env
	defer func() { in.env = prev }()

	for _, stmt := range stmts {
		out, err := in.execute(stmt)
		if err != nil || out.flow != flowNormal {
			return out, err
		}
	}
	return outcome{}, nil
}

func (in *Interpreter) execute(stmt ast.Stmt) (outcome, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := in.evaluate(s.Expr)
		return outcome{}, err

	case *ast.PrintStmt:
		val, err := in.evaluate(s.Expr)
		if err != nil {
			return outcome{}, err
		}
		fmt.Fprintln(in.out, Stringify(val))
		return outcome{}, nil

	case *ast.VarDecl:
		var val Value = NewNil()
		if s.Init != nil {
			v, err := in.evaluate(s.Init)
			if err != nil {
				return outcome{}, err
			}
			val = v
		}
		in.env.Define(s.Name.Lexeme, val)
		return outcome{}, nil

	case *ast.Block:
		return in.executeBlock(s.Statements, in.env.Child())

	case *ast.IfStmt:
		cond, err := in.evaluate(s.Cond)
		if err != nil {
			return outcome{}, err
		}
		if Truthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return outcome{}, nil

	case *ast.WhileStmt:
		for {
			cond, err := in.evaluate(s.Cond)
			if err != nil {
				return outcome{}, err
			}
			if !Truthy(cond) {
				return outcome{}, nil
			}
			out, err := in.execute(s.Body)
			if err != nil {
				return outcome{}, err
			}
			switch out.flow {
			case flowBreak:
				return outcome{}, nil
			case flowReturn:
				return out, nil
			}
		}

	case *ast.BreakStmt:
		return outcome{flow: flowBreak, at: s.Keyword}, nil

	case *ast.FunDecl:
		// Defined before the body ever runs, so it can call itself.
		in.env.Define(s.Name.Lexeme, newFunction(s.Name.Lexeme, s.Params, s.Body, in.env))
		return outcome{}, nil

	case *ast.ReturnStmt:
		var val Value = NewNil()
		if s.Value != nil {
			v, err := in.evaluate(s.Value)
			if err != nil {
				return outcome{}, err
			}
			val = v
		}
		return outcome{flow: flowReturn, value: val, at: s.Keyword}, nil

	case *ast.EmptyStmt:
		return outcome{}, nil

	default:
		return outcome{}, fmt.Errorf("unknown statement type: %T", stmt)
	}
}

func (in *Interpreter) evaluate(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return FromLiteral(e.Value), nil

	case *ast.Grouping:
		return in.evaluate(e.Inner)

	case *ast.Unary:
		return in.evalUnary(e)

	case *ast.Binary:
		return in.evalBinary(e)

	case *ast.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Op.Type == lexer.TokOr {
			if Truthy(left) {
				return left, nil
			}
		} else if !Truthy(left) {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *ast.Variable:
		if val, ok := in.env.Get(e.Name.Lexeme); ok {
			return val, nil
		}
		return nil, undefined(e.Name)

	case *ast.Assign:
		val, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		if !in.env.Assign(e.Name.Lexeme, val) {
			return nil, undefined(e.Name)
		}
		return val, nil

	case *ast.Call:
		return in.evalCall(e)

	case *ast.FunctionExpr:
		return newFunction("", e.Params, e.Body, in.env), nil

	default:
		return nil, fmt.Errorf("unknown expression type: %T", expr)
	}
}

func undefined(name lexer.Token) *RuntimeError {
	return &RuntimeError{
		Code:    diagnostics.EUndefined,
		Message: fmt.Sprintf("Undefined variable '%s'.", name.Lexeme),
		Token:   name,
	}
}

func typeError(op lexer.Token, msg string) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EType, Message: msg, Token: op}
}

func (in *Interpreter) evalUnary(e *ast.Unary) (Value, error) {
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Type {
	case lexer.TokMinus:
		n, ok := right.(Number)
		if !ok {
			return nil, typeError(e.Op, "Operand must be a number.")
		}
		return NewNumber(-n.Value), nil
	case lexer.TokBang:
		return NewBool(!Truthy(right)), nil
	}
	return nil, typeError(e.Op, fmt.Sprintf("Unknown unary operator '%s'.", e.Op.Lexeme))
}

func (in *Interpreter) evalBinary(e *ast.Binary) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Type {
	case lexer.TokEqEq:
		return NewBool(Equal(left, right)), nil
	case lexer.TokBangEq:
		return NewBool(!Equal(left, right)), nil
	case lexer.TokPlus:
		if l, ok := left.(Number); ok {
			if r, ok := right.(Number); ok {
				return NewNumber(l.Value + r.Value), nil
			}
		}
		if l, ok := left.(String); ok {
			if r, ok := right.(String); ok {
				return NewString(l.Value + r.Value), nil
			}
		}
		return nil, typeError(e.Op, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, typeError(e.Op, "Operands must be numbers.")
	}

	switch e.Op.Type {
	case lexer.TokMinus:
		return NewNumber(l.Value - r.Value), nil
	case lexer.TokStar:
		return NewNumber(l.Value * r.Value), nil
	case lexer.TokSlash:
		// IEEE semantics: x/0 is ±inf, 0/0 is nan
		return NewNumber(l.Value / r.Value), nil
	case lexer.TokGt:
		return NewBool(l.Value > r.Value), nil
	case lexer.TokGtEq:
		return NewBool(l.Value >= r.Value), nil
	case lexer.TokLt:
		return NewBool(l.Value < r.Value), nil
	case lexer.TokLtEq:
		return NewBool(l.Value <= r.Value), nil
	}
	return nil, typeError(e.Op, fmt.Sprintf("Unknown binary operator '%s'.", e.Op.Lexeme))
}

// evalCall evaluates the callee, then the arguments left to right, then
// checks callability and arity before invoking.
func (in *Interpreter) evalCall(e *ast.Call) (Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, argExpr := range e.Args {
		arg, err := in.evaluate(argExpr)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.ENotCallable,
			Message: "Can only call functions.",
			Token:   e.Paren,
		}
	}
	if len(args) != fn.Arity() {
		return nil, &RuntimeError{
			Code:    diagnostics.EArity,
			Message: fmt.Sprintf("Expected %d arguments but got %d.", fn.Arity(), len(args)),
			Token:   e.Paren,
		}
	}

	if in.opts.MaxDepth > 0 && in.depth >= in.opts.MaxDepth {
		return nil, &RuntimeError{
			Code:    diagnostics.EStack,
			Message: "Stack overflow.",
			Token:   e.Paren,
		}
	}

	name := fn.Name()
	in.emit(TraceCallStart, e.Paren.Line, map[string]string{"fn": name, "args": fmt.Sprint(len(args))})
	result, err := in.invoke(fn, args)
	in.emit(TraceCallEnd, e.Paren.Line, map[string]string{"fn": name})

	if err != nil {
		if _, ok := err.(*RuntimeError); ok {
			return nil, err
		}
		// Plain Go errors come from natives.
		return nil, &RuntimeError{
			Code:    diagnostics.ENative,
			Message: err.Error(),
			Token:   e.Paren,
		}
	}
	return result, nil
}
