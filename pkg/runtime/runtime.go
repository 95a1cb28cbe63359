// Package runtime provides the top-level slox runtime orchestrator.
package runtime

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/evaluator"
	"github.com/thomasrohde/slox/pkg/formatter"
	"github.com/thomasrohde/slox/pkg/lexer"
	"github.com/thomasrohde/slox/pkg/parser"
	"github.com/thomasrohde/slox/pkg/stdlib"
	"github.com/thomasrohde/slox/pkg/validator"
)

// Result holds the outcome of one Run.
type Result struct {
	HadSyntaxError  bool
	HadRuntimeError bool
	Diagnostics     []diagnostics.Diagnostic
}

// Runtime wires together all slox components. Global definitions persist
// across Run calls on the same Runtime.
type Runtime struct {
	stdout            io.Writer
	logger            *log.Logger
	reporter          diagnostics.Reporter
	trace             func(event evaluator.TraceEvent)
	runID             string
	stdlib            *stdlib.Registry
	natives           []*evaluator.Native
	haltOnSyntaxError bool
	maxDepth          int

	interp *evaluator.Interpreter
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout sets the writer that receives `print` output.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLogger sets the logger for phase information.
func WithLogger(l *log.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithReporter sets the callback that receives every diagnostic.
func WithReporter(r diagnostics.Reporter) Option {
	return func(rt *Runtime) {
		rt.reporter = r
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithStdlib sets the stdlib registry. A nil registry installs no extra
// builtins.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithHaltOnSyntaxError skips execution entirely when the source has any
// scan or parse error.
func WithHaltOnSyntaxError(halt bool) Option {
	return func(rt *Runtime) {
		rt.haltOnSyntaxError = halt
	}
}

// WithNative registers an extra builtin in the global frame.
func WithNative(name string, arity int, fn evaluator.NativeFunc) Option {
	return func(rt *Runtime) {
		rt.natives = append(rt.natives, evaluator.NewNative(name, arity, fn))
	}
}

// WithMaxDepth bounds nested calls; 0 leaves recursion unbounded.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default output goes to os.Stdout, logging is discarded, the stdlib
// defaults are installed and the run ID is a fresh UUID.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdout: os.Stdout,
		stdlib: stdlib.Defaults(),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = log.New(io.Discard)
	}

	rt.interp = evaluator.New(evaluator.Options{
		Stdout:   rt.stdout,
		Trace:    rt.trace,
		RunID:    rt.runID,
		MaxDepth: rt.maxDepth,
	})
	if rt.stdlib != nil {
		rt.stdlib.Install(rt.interp)
	}
	for _, n := range rt.natives {
		rt.interp.Globals().Define(n.Name(), n)
	}
	return rt
}

// RunID returns the identifier stamped on this runtime's trace events.
func (rt *Runtime) RunID() string {
	return rt.runID
}

// GlobalNames returns the names bound in the global frame, sorted.
func (rt *Runtime) GlobalNames() []string {
	names := rt.interp.Globals().Names()
	sort.Strings(names)
	return names
}

// Run scans, parses and executes source. Statements that parsed cleanly
// run even when others failed, unless halt-on-syntax-error is set. The
// first runtime error aborts the rest of this run.
func (rt *Runtime) Run(source, filename string) *Result {
	res := &Result{}

	tokens, scanDiags := lexer.Tokenize(source)
	program, parseDiags := parser.ParseTokens(tokens)
	rt.logger.Debug("parsed", "file", filename, "run", rt.runID,
		"tokens", len(tokens), "statements", len(program.Statements),
		"diagnostics", len(scanDiags)+len(parseDiags))

	for _, d := range append(scanDiags, parseDiags...) {
		rt.record(res, d, filename)
		res.HadSyntaxError = true
	}
	if res.HadSyntaxError && rt.haltOnSyntaxError {
		rt.logger.Debug("halting on syntax error", "file", filename)
		return res
	}

	err := rt.interp.Interpret(program.Statements)
	if err == nil {
		return res
	}
	res.HadRuntimeError = true

	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		rt.record(res, rtErr.Diagnostic(), filename)
		rt.logger.Debug("runtime error", "file", filename, "code", rtErr.Code, "line", rtErr.Token.Line)
		return res
	}
	rt.logger.Error("interpreter failure", "file", filename, "error", err)
	return res
}

func (rt *Runtime) record(res *Result, d diagnostics.Diagnostic, filename string) {
	d.File = filename
	res.Diagnostics = append(res.Diagnostics, d)
	d.Report(rt.reporter)
}

// RunFile reads and runs a script file.
func (rt *Runtime) RunFile(path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return rt.Run(string(source), path), nil
}

// Check parses and validates a slox program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source)
	if len(diags) == 0 {
		diags = validator.Validate(program)
	}
	for i := range diags {
		diags[i].File = filename
	}
	rt.logger.Debug("checked", "file", filename, "diagnostics", len(diags))
	return diags
}

// Format parses and formats a slox program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source)
	if len(diags) > 0 {
		for i := range diags {
			diags[i].File = filename
		}
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
