package evaluator_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/evaluator"
	"github.com/thomasrohde/slox/pkg/parser"
)

// --- helpers ---

// newInterp returns an interpreter writing to a buffer.
func newInterp() (*evaluator.Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	return evaluator.New(evaluator.Options{Stdout: &out}), &out
}

// runIn parses and executes source on an existing interpreter, failing the
// test on parse errors.
func runIn(t *testing.T, in *evaluator.Interpreter, src string) error {
	t.Helper()
	prog, diags := parser.Parse(src)
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, false))
	}
	return in.Interpret(prog.Statements)
}

// run executes source on a fresh interpreter and returns printed output.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	in, out := newInterp()
	err := runIn(t, in, src)
	return out.String(), err
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, src)
	require.NoError(t, err)
	return out
}

// expectOutput asserts the printed lines.
func expectOutput(t *testing.T, src string, lines ...string) {
	t.Helper()
	want := ""
	if len(lines) > 0 {
		want = strings.Join(lines, "\n") + "\n"
	}
	assert.Equal(t, want, mustRun(t, src))
}

// expectRuntimeError asserts the error is a *RuntimeError with the expected code.
func expectRuntimeError(t *testing.T, err error, expectedCode string) *evaluator.RuntimeError {
	t.Helper()
	require.Error(t, err)
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr), "expected *RuntimeError, got %T: %v", err, err)
	assert.Equal(t, expectedCode, rtErr.Code, "message: %s", rtErr.Message)
	return rtErr
}

// --- 1. Literals and printing ---

func TestPrintLiterals(t *testing.T) {
	expectOutput(t, `print 42; print 2.5; print "hi"; print true; print false; print nil;`,
		"42", "2.5", "hi", "true", "false", "nil")
}

func TestPrintCallables(t *testing.T) {
	expectOutput(t, `fun f() {} print f; print clock; print fun () {};`,
		"<fn f>", "<native fn>", "<fn>")
}

// --- 2. Arithmetic ---

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print 2 + 3 * 4;", "14"},
		{"print (2 + 3) * 4;", "20"},
		{"print 10 - 4 - 3;", "3"},
		{"print 12 / 4 / 3;", "1"},
		{"print 7 / 2;", "3.5"},
		{"print -3 + 1;", "-2"},
		{"print --3;", "3"},
		{"print 0.1 + 0.2;", "0.30000000000000004"},
		{"print 1 / 0;", "inf"},
		{"print -1 / 0;", "-inf"},
		{"print 0 / 0;", "nan"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectOutput(t, tt.src, tt.want)
		})
	}
}

func TestStringConcat(t *testing.T) {
	expectOutput(t, `print "a" + "b"; print "" + ""; var s = "x"; print s + s + s;`, "ab", "", "xxx")
}

func TestComparison(t *testing.T) {
	expectOutput(t, `print 1 < 2; print 2 <= 2; print 3 > 4; print 4 >= 5;`,
		"true", "true", "false", "false")
}

func TestEquality(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print 1 == 1;`, "true"},
		{`print 1 != 1;`, "false"},
		{`print "a" == "a";`, "true"},
		{`print nil == nil;`, "true"},
		{`print nil == false;`, "false"},
		{`print 0 == false;`, "false"},
		{`print "1" == 1;`, "false"},
		{`print true != false;`, "true"},
		{`fun f() {} print f == f;`, "false"},
		{`fun f() {} print f != nil;`, "true"},
		{`print clock == clock;`, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectOutput(t, tt.src, tt.want)
		})
	}
}

// --- 3. Type errors ---

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{`"a" + 1;`, "Operands must be two numbers or two strings."},
		{`1 + nil;`, "Operands must be two numbers or two strings."},
		{`"a" - "b";`, "Operands must be numbers."},
		{`true * 2;`, "Operands must be numbers."},
		{`1 < "2";`, "Operands must be numbers."},
		{`-"x";`, "Operand must be a number."},
		{`-nil;`, "Operand must be a number."},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := run(t, tt.src)
			rtErr := expectRuntimeError(t, err, diagnostics.EType)
			assert.Equal(t, tt.msg, rtErr.Message)
		})
	}
}

func TestTypeErrorReportsOperatorLine(t *testing.T) {
	_, err := run(t, "var a = 1;\nvar b = a\n  + \"x\";")
	rtErr := expectRuntimeError(t, err, diagnostics.EType)
	assert.Equal(t, "+", rtErr.Token.Lexeme)
	assert.Equal(t, 3, rtErr.Token.Line)
	assert.Equal(t, "Operands must be two numbers or two strings.\n[line 3]", rtErr.Diagnostic().String())
}

// --- 4. Truthiness and logic ---

func TestTruthinessInBranches(t *testing.T) {
	expectOutput(t, `if (0) print "a"; else print "b";`, "a")
	expectOutput(t, `if (nil) print "a"; else print "b";`, "b")
	expectOutput(t, `if ("") print "a"; else print "b";`, "a")
	expectOutput(t, `if (false) print "a";`)
	expectOutput(t, `print !nil; print !0; print !!"";`, "true", "false", "true")
}

func TestLogicalReturnsOperandValues(t *testing.T) {
	expectOutput(t, `print nil or "x"; print "y" or "z"; print nil and "x"; print 1 and 2;`,
		"x", "y", "nil", "2")
}

func TestShortCircuit(t *testing.T) {
	in, out := newInterp()
	calls := 0
	in.DefineNative("bump", 0, func([]evaluator.Value) (evaluator.Value, error) {
		calls++
		return evaluator.NewBool(true), nil
	})

	require.NoError(t, runIn(t, in, `print false and bump(); print true or bump();`))
	assert.Equal(t, 0, calls)
	assert.Equal(t, "false\ntrue\n", out.String())

	require.NoError(t, runIn(t, in, `print true and bump(); print false or bump();`))
	assert.Equal(t, 2, calls)
}

// --- 5. Variables and scope ---

func TestVariables(t *testing.T) {
	expectOutput(t, `var a; print a; var b = 2; b = b + 1; print b;`, "nil", "3")
}

func TestRedeclaration(t *testing.T) {
	expectOutput(t, `var a = 1; var a = "two"; print a;`, "two")
}

func TestAssignmentIsExpression(t *testing.T) {
	expectOutput(t, `var a; var b; a = b = 3; print a; print b; print a = 4;`, "3", "3", "4")
}

func TestShadowing(t *testing.T) {
	expectOutput(t, `var a = 1; { var a = 2; print a; } print a;`, "2", "1")
}

func TestBlockAssignsOuter(t *testing.T) {
	expectOutput(t, `var a = 1; { a = 2; } print a;`, "2")
}

func TestUndefinedVariable(t *testing.T) {
	_, err := run(t, "print missing;")
	rtErr := expectRuntimeError(t, err, diagnostics.EUndefined)
	assert.Equal(t, "Undefined variable 'missing'.", rtErr.Message)

	_, err = run(t, "missing = 1;")
	expectRuntimeError(t, err, diagnostics.EUndefined)
}

func TestUndefinedAfterBlock(t *testing.T) {
	out, err := run(t, "{ var inner = 1; print inner; }\nprint inner;")
	rtErr := expectRuntimeError(t, err, diagnostics.EUndefined)
	assert.Equal(t, 2, rtErr.Token.Line)
	assert.Equal(t, "1\n", out)
}

func TestAssignDoesNotCreateBinding(t *testing.T) {
	in, _ := newInterp()
	err := runIn(t, in, "{ x = 1; }")
	expectRuntimeError(t, err, diagnostics.EUndefined)
	_, ok := in.Globals().Get("x")
	assert.False(t, ok)
}

// --- 6. Control flow ---

func TestWhile(t *testing.T) {
	expectOutput(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`, "0", "1", "2")
}

func TestFor(t *testing.T) {
	expectOutput(t, `for (var i = 0; i < 3; i = i + 1) print i;`, "0", "1", "2")
}

func TestForLoopVariableScoped(t *testing.T) {
	_, err := run(t, `for (var i = 0; i < 1; i = i + 1) {} print i;`)
	expectRuntimeError(t, err, diagnostics.EUndefined)
}

func TestBreakInnermostLoop(t *testing.T) {
	src := `
for (var i = 0; i < 3; i = i + 1) {
  for (var j = 0; j < 3; j = j + 1) {
    if (j == 1) break;
    print i * 10 + j;
  }
}
print "done";`
	expectOutput(t, src, "0", "10", "20", "done")
}

func TestBreakInfiniteLoop(t *testing.T) {
	expectOutput(t, `var n = 0; while (true) { n = n + 1; if (n == 5) break; } print n;`, "5")
}

func TestBreakOutsideLoop(t *testing.T) {
	out, err := run(t, "print 1;\nbreak;\nprint 2;")
	rtErr := expectRuntimeError(t, err, diagnostics.EBreak)
	assert.Equal(t, 2, rtErr.Token.Line)
	assert.Equal(t, "1\n", out)
}

func TestBreakDoesNotCrossCallBoundary(t *testing.T) {
	src := `
fun f() { break; }
while (true) { f(); }`
	_, err := run(t, src)
	expectRuntimeError(t, err, diagnostics.EBreak)
}

func TestReturnOutsideFunction(t *testing.T) {
	_, err := run(t, "return 1;")
	rtErr := expectRuntimeError(t, err, diagnostics.EReturn)
	assert.Equal(t, "Can't return from top-level code.", rtErr.Message)
}

// --- 7. Functions ---

func TestFunctionCall(t *testing.T) {
	expectOutput(t, `fun add(a, b) { return a + b; } print add(1, 2);`, "3")
}

func TestImplicitNilReturn(t *testing.T) {
	expectOutput(t, `fun f() {} print f(); fun g() { return; } print g();`, "nil", "nil")
}

func TestReturnUnwindsNestedBlocks(t *testing.T) {
	src := `
fun find() {
  var i = 0;
  while (true) {
    {
      if (i == 3) { return i; }
    }
    i = i + 1;
  }
  print "unreachable";
}
print find();`
	expectOutput(t, src, "3")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);`, "610")
}

func TestMutualRecursionInBlock(t *testing.T) {
	src := `
{
  fun isEven(n) { if (n == 0) return true; return isOdd(n - 1); }
  fun isOdd(n) { if (n == 0) return false; return isEven(n - 1); }
  print isEven(10);
  print isOdd(7);
}`
	expectOutput(t, src, "true", "true")
}

func TestClosureCounters(t *testing.T) {
	src := `
fun makeCounter() {
  var count = 0;
  fun inc() { count = count + 1; return count; }
  return inc;
}
var a = makeCounter();
var b = makeCounter();
print a();
print a();
print b();
print a();`
	expectOutput(t, src, "1", "2", "1", "3")
}

func TestClosureSeesLaterMutation(t *testing.T) {
	src := `
var x = "before";
fun show() { print x; }
x = "after";
show();`
	expectOutput(t, src, "after")
}

func TestClosureCapturesDefiningFrame(t *testing.T) {
	src := `
var a = "global";
{
  fun show() { print a; }
  show();
  var a = "block";
  show();
}`
	// no resolver: the block frame is searched at call time
	expectOutput(t, src, "global", "block")
}

func TestCallUsesClosureNotCaller(t *testing.T) {
	src := `
var who = "outer";
fun show() { print who; }
fun caller() { var who = "caller"; show(); }
caller();`
	expectOutput(t, src, "outer")
}

func TestAnonymousFunctions(t *testing.T) {
	src := `
fun apply(f, x) { return f(x); }
print apply(fun (n) { return n * 2; }, 21);
var sq = fun (n) { return n * n; };
print sq(5);`
	expectOutput(t, src, "42", "25")
}

func TestCurriedCalls(t *testing.T) {
	expectOutput(t, `fun add(a) { fun inner(b) { return a + b; } return inner; } print add(1)(2);`, "3")
}

func TestArityMismatch(t *testing.T) {
	src := `
fun f(a, b) { print "body ran"; }
f(1);`
	out, err := run(t, src)
	rtErr := expectRuntimeError(t, err, diagnostics.EArity)
	assert.Equal(t, "Expected 2 arguments but got 1.", rtErr.Message)
	assert.Empty(t, out, "callee body must not run")
}

func TestNativeArity(t *testing.T) {
	_, err := run(t, "clock(1);")
	rtErr := expectRuntimeError(t, err, diagnostics.EArity)
	assert.Equal(t, "Expected 0 arguments but got 1.", rtErr.Message)
}

func TestNotCallable(t *testing.T) {
	for _, src := range []string{`"str"();`, `var x = 1; x();`, `nil();`} {
		t.Run(src, func(t *testing.T) {
			_, err := run(t, src)
			expectRuntimeError(t, err, diagnostics.ENotCallable)
		})
	}
}

func TestArgumentsEvaluatedBeforeCallableCheck(t *testing.T) {
	// the argument error wins over the not-callable error
	_, err := run(t, `nil(missing);`)
	expectRuntimeError(t, err, diagnostics.EUndefined)
}

func TestClock(t *testing.T) {
	expectOutput(t, `var t = clock(); print t > 1000000000;`, "true")
}

func TestNativeError(t *testing.T) {
	in, _ := newInterp()
	in.DefineNative("fail", 0, func([]evaluator.Value) (evaluator.Value, error) {
		return nil, errors.New("native failure")
	})
	err := runIn(t, in, "\nfail();")
	rtErr := expectRuntimeError(t, err, diagnostics.ENative)
	assert.Equal(t, "native failure", rtErr.Message)
	assert.Equal(t, 2, rtErr.Token.Line)
}

func TestMaxDepth(t *testing.T) {
	var out bytes.Buffer
	in := evaluator.New(evaluator.Options{Stdout: &out, MaxDepth: 50})
	err := runIn(t, in, `fun loop(n) { return loop(n + 1); } loop(0);`)
	expectRuntimeError(t, err, diagnostics.EStack)

	// the interpreter is usable afterwards
	require.NoError(t, runIn(t, in, `fun f(n) { if (n == 0) return 0; return f(n - 1); } print f(40);`))
	assert.Equal(t, "0\n", out.String())
}

// --- 8. Driver contract ---

func TestRuntimeErrorAbortsRemainingStatements(t *testing.T) {
	out, err := run(t, `print 1; print nil + 1; print 2;`)
	expectRuntimeError(t, err, diagnostics.EType)
	assert.Equal(t, "1\n", out)
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	in, out := newInterp()
	require.NoError(t, runIn(t, in, `var a = 1;`))

	// an error mid-block leaves the current frame at the globals
	err := runIn(t, in, `{ var a = 2; a + nil; }`)
	expectRuntimeError(t, err, diagnostics.EType)

	require.NoError(t, runIn(t, in, `print a;`))
	assert.Equal(t, "1\n", out.String())
}

func TestCallDepthRestoredAfterNativePanic(t *testing.T) {
	var out bytes.Buffer
	in := evaluator.New(evaluator.Options{Stdout: &out, MaxDepth: 1})
	in.DefineNative("boom", 0, func([]evaluator.Value) (evaluator.Value, error) {
		panic("boom")
	})
	assert.Panics(t, func() { _ = runIn(t, in, `boom();`) })

	require.NoError(t, runIn(t, in, `fun one() { return 1; } print one();`))
	assert.Equal(t, "1\n", out.String())
}

func TestErrorInsideFunctionRestoresFrame(t *testing.T) {
	in, out := newInterp()
	err := runIn(t, in, `var v = "global"; fun f() { var v = "local"; return v + 1; } f();`)
	expectRuntimeError(t, err, diagnostics.EType)

	require.NoError(t, runIn(t, in, `print v;`))
	assert.Equal(t, "global\n", out.String())
}

func TestEmptyProgram(t *testing.T) {
	expectOutput(t, ``)
}

// --- 9. Tracing ---

func TestTraceEvents(t *testing.T) {
	var events []evaluator.TraceEvent
	var out bytes.Buffer
	in := evaluator.New(evaluator.Options{
		Stdout: &out,
		RunID:  "run-1",
		Trace:  func(ev evaluator.TraceEvent) { events = append(events, ev) },
	})

	err := runIn(t, in, "fun f() { return 1; }\nf();\nnil();")
	expectRuntimeError(t, err, diagnostics.ENotCallable)

	var kinds []evaluator.TraceEventType
	for _, ev := range events {
		assert.Equal(t, "run-1", ev.RunID)
		assert.NotEmpty(t, ev.Timestamp)
		kinds = append(kinds, ev.Event)
	}
	assert.Equal(t, []evaluator.TraceEventType{
		evaluator.TraceRunStart,
		evaluator.TraceCallStart,
		evaluator.TraceCallEnd,
		evaluator.TraceRuntimeError,
		evaluator.TraceRunEnd,
	}, kinds)

	assert.Equal(t, "f", events[1].Data["fn"])
	assert.Equal(t, 2, events[1].Line)
	assert.Equal(t, diagnostics.ENotCallable, events[3].Data["code"])
	assert.Equal(t, 3, events[3].Line)
}
