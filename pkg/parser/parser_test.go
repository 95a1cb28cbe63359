package parser_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source)
	require.Empty(t, diags, "unexpected diagnostics")
	require.NotNil(t, prog)
	return prog
}

// helper: parse source and assert at least one diagnostic
func mustFail(t *testing.T, source string) (*ast.Program, []diagnostics.Diagnostic) {
	t.Helper()
	prog, diags := parser.Parse(source)
	require.NotEmpty(t, diags, "expected parse diagnostics")
	require.NotNil(t, prog, "program is returned even on failure")
	return prog, diags
}

// helper: extract the single statement's expression
func singleExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	prog := mustParse(t, source)
	require.Len(t, prog.Statements, 1)
	es, ok := prog.Statements[0].(*ast.ExprStmt)
	require.True(t, ok, "expected ExprStmt, got %T", prog.Statements[0])
	return es.Expr
}

// sexpr renders an expression in prefix form for compact assertions.
func sexpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Literal:
		if n.Value == nil {
			return "nil"
		}
		if s, ok := n.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprint(n.Value)
	case *ast.Grouping:
		return "(group " + sexpr(n.Inner) + ")"
	case *ast.Unary:
		return "(" + n.Op.Lexeme + " " + sexpr(n.Right) + ")"
	case *ast.Binary:
		return "(" + n.Op.Lexeme + " " + sexpr(n.Left) + " " + sexpr(n.Right) + ")"
	case *ast.Logical:
		return "(" + n.Op.Lexeme + " " + sexpr(n.Left) + " " + sexpr(n.Right) + ")"
	case *ast.Variable:
		return n.Name.Lexeme
	case *ast.Assign:
		return "(= " + n.Name.Lexeme + " " + sexpr(n.Value) + ")"
	case *ast.Call:
		parts := []string{"call", sexpr(n.Callee)}
		for _, a := range n.Args {
			parts = append(parts, sexpr(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *ast.FunctionExpr:
		return fmt.Sprintf("(fun/%d)", len(n.Params))
	default:
		return "?"
	}
}

// ---- 1. Literals ----

func TestLiterals(t *testing.T) {
	tests := []struct {
		source string
		want   any
	}{
		{"42;", 42.0},
		{"3.5;", 3.5},
		{`"hi";`, "hi"},
		{"true;", true},
		{"false;", false},
		{"nil;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			lit, ok := singleExpr(t, tt.source).(*ast.Literal)
			require.True(t, ok)
			assert.Equal(t, tt.want, lit.Value)
		})
	}
}

// ---- 2. Precedence and associativity ----

func TestPrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"2 + 3 * 4;", "(+ 2 (* 3 4))"},
		{"(2 + 3) * 4;", "(* (group (+ 2 3)) 4)"},
		{"1 - 2 - 3;", "(- (- 1 2) 3)"},
		{"8 / 4 / 2;", "(/ (/ 8 4) 2)"},
		{"-1 * 2;", "(* (- 1) 2)"},
		{"!!true;", "(! (! true))"},
		{"1 < 2 == true;", "(== (< 1 2) true)"},
		{"a or b and c;", "(or a (and b c))"},
		{"a and b or c;", "(or (and a b) c)"},
		{"a == b != c;", "(!= (== a b) c)"},
		{"a = b = 3;", "(= a (= b 3))"},
		{"x = 1 + 2;", "(= x (+ 1 2))"},
		{"1 + 2 >= 3 - 4;", "(>= (+ 1 2) (- 3 4))"},
		{"-f(1);", "(- (call f 1))"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, sexpr(singleExpr(t, tt.source)))
		})
	}
}

// ---- 3. Calls ----

func TestCalls(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"f();", "(call f)"},
		{"f(1, 2);", "(call f 1 2)"},
		{"f()();", "(call (call f))"},
		{"f(1)(2)(3);", "(call (call (call f 1) 2) 3)"},
		{"f(g(1), a + b);", "(call f (call g 1) (+ a b))"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, sexpr(singleExpr(t, tt.source)))
		})
	}
}

func TestCallKeepsClosingParen(t *testing.T) {
	call, ok := singleExpr(t, "f(\n1\n);").(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, ")", call.Paren.Lexeme)
	assert.Equal(t, 3, call.Paren.Line)
}

func TestTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "1"
	}
	prog, diags := mustFail(t, "f("+strings.Join(args, ", ")+");")

	require.Len(t, diags, 1)
	assert.Equal(t, "Can't have more than 255 arguments.", diags[0].Message)
	// non-fatal: the call is still built
	es := prog.Statements[0].(*ast.ExprStmt)
	assert.Len(t, es.Expr.(*ast.Call).Args, 256)
}

func TestTooManyParameters(t *testing.T) {
	params := make([]string, 256)
	for i := range params {
		params[i] = fmt.Sprintf("p%d", i)
	}
	prog, diags := mustFail(t, "fun f("+strings.Join(params, ", ")+") {}")

	require.Len(t, diags, 1)
	assert.Equal(t, "Can't have more than 255 parameters.", diags[0].Message)
	assert.Equal(t, "at 'p255'", diags[0].Where)
	fn := prog.Statements[0].(*ast.FunDecl)
	assert.Len(t, fn.Params, 256)
}

func TestMaxArgumentsAllowed(t *testing.T) {
	args := make([]string, 255)
	for i := range args {
		args[i] = "nil"
	}
	mustParse(t, "f("+strings.Join(args, ",")+");")
}

// ---- 4. Assignment ----

func TestInvalidAssignmentTarget(t *testing.T) {
	tests := []string{
		"1 = 2;",
		"(a) = 2;",
		"a + b = c;",
		"f() = 1;",
	}

	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			prog, diags := mustFail(t, source+" print 1;")
			require.Len(t, diags, 1)
			assert.Equal(t, "Invalid assignment target.", diags[0].Message)
			assert.Equal(t, "at '='", diags[0].Where)

			// parsing carried on without resynchronizing
			require.Len(t, prog.Statements, 2)
			assert.IsType(t, &ast.ExprStmt{}, prog.Statements[0])
			assert.IsType(t, &ast.PrintStmt{}, prog.Statements[1])
		})
	}
}

// ---- 5. Statements ----

func TestVarDecl(t *testing.T) {
	prog := mustParse(t, "var a; var b = 1 + 2;")
	require.Len(t, prog.Statements, 2)

	a := prog.Statements[0].(*ast.VarDecl)
	assert.Equal(t, "a", a.Name.Lexeme)
	assert.Nil(t, a.Init)

	b := prog.Statements[1].(*ast.VarDecl)
	assert.Equal(t, "(+ 1 2)", sexpr(b.Init))
}

func TestPrintStmt(t *testing.T) {
	prog := mustParse(t, `print "hello";`)
	p, ok := prog.Statements[0].(*ast.PrintStmt)
	require.True(t, ok)
	assert.Equal(t, `"hello"`, sexpr(p.Expr))
}

func TestBlock(t *testing.T) {
	prog := mustParse(t, "{ var a = 1; { print a; } }")
	outer := prog.Statements[0].(*ast.Block)
	require.Len(t, outer.Statements, 2)
	assert.IsType(t, &ast.VarDecl{}, outer.Statements[0])
	inner := outer.Statements[1].(*ast.Block)
	assert.Len(t, inner.Statements, 1)
}

func TestEmptyBlock(t *testing.T) {
	prog := mustParse(t, "{}")
	b := prog.Statements[0].(*ast.Block)
	assert.NotNil(t, b.Statements)
	assert.Empty(t, b.Statements)
}

func TestIfElse(t *testing.T) {
	prog := mustParse(t, `if (a) print 1; else print 2;`)
	s := prog.Statements[0].(*ast.IfStmt)
	assert.Equal(t, "a", sexpr(s.Cond))
	assert.IsType(t, &ast.PrintStmt{}, s.Then)
	assert.IsType(t, &ast.PrintStmt{}, s.Else)
}

func TestDanglingElseBindsInnermost(t *testing.T) {
	prog := mustParse(t, `if (a) if (b) print 1; else print 2;`)
	outer := prog.Statements[0].(*ast.IfStmt)
	assert.Nil(t, outer.Else)
	inner := outer.Then.(*ast.IfStmt)
	assert.NotNil(t, inner.Else)
}

func TestWhile(t *testing.T) {
	prog := mustParse(t, `while (i < 3) { i = i + 1; break; }`)
	w := prog.Statements[0].(*ast.WhileStmt)
	assert.Equal(t, "(< i 3)", sexpr(w.Cond))
	body := w.Body.(*ast.Block)
	assert.IsType(t, &ast.BreakStmt{}, body.Statements[1])
}

func TestReturn(t *testing.T) {
	prog := mustParse(t, `fun f() { return; } fun g() { return 1; }`)
	f := prog.Statements[0].(*ast.FunDecl)
	assert.Nil(t, f.Body[0].(*ast.ReturnStmt).Value)
	g := prog.Statements[1].(*ast.FunDecl)
	assert.Equal(t, "1", sexpr(g.Body[0].(*ast.ReturnStmt).Value))
}

// ---- 6. for desugaring ----

func TestForDesugarsToWhile(t *testing.T) {
	prog := mustParse(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	require.Len(t, prog.Statements, 1)

	outer, ok := prog.Statements[0].(*ast.Block)
	require.True(t, ok, "for with initializer is wrapped in a block")
	require.Len(t, outer.Statements, 2)
	assert.IsType(t, &ast.VarDecl{}, outer.Statements[0])

	loop := outer.Statements[1].(*ast.WhileStmt)
	assert.Equal(t, "(< i 3)", sexpr(loop.Cond))

	body := loop.Body.(*ast.Block)
	require.Len(t, body.Statements, 2)
	assert.IsType(t, &ast.PrintStmt{}, body.Statements[0])
	incr := body.Statements[1].(*ast.ExprStmt)
	assert.Equal(t, "(= i (+ i 1))", sexpr(incr.Expr))
}

func TestForOmittedClauses(t *testing.T) {
	prog := mustParse(t, `for (;;) break;`)
	loop, ok := prog.Statements[0].(*ast.WhileStmt)
	require.True(t, ok, "no initializer means no wrapping block")
	assert.Equal(t, "true", sexpr(loop.Cond))
	assert.IsType(t, &ast.BreakStmt{}, loop.Body)
}

func TestForExpressionInitializer(t *testing.T) {
	prog := mustParse(t, `for (i = 0; i < 1;) print i;`)
	outer := prog.Statements[0].(*ast.Block)
	assert.IsType(t, &ast.ExprStmt{}, outer.Statements[0])
	loop := outer.Statements[1].(*ast.WhileStmt)
	assert.IsType(t, &ast.PrintStmt{}, loop.Body)
}

// ---- 7. Functions ----

func TestFunDecl(t *testing.T) {
	prog := mustParse(t, `fun add(a, b) { return a + b; }`)
	fn := prog.Statements[0].(*ast.FunDecl)
	assert.Equal(t, "add", fn.Name.Lexeme)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Lexeme)
	assert.Equal(t, "b", fn.Params[1].Lexeme)
	require.Len(t, fn.Body, 1)
}

func TestAnonymousFunction(t *testing.T) {
	prog := mustParse(t, `var f = fun (x) { return x; }; fun (y) {};`)
	v := prog.Statements[0].(*ast.VarDecl)
	fe, ok := v.Init.(*ast.FunctionExpr)
	require.True(t, ok)
	assert.Len(t, fe.Params, 1)

	// a bare anonymous function is an expression statement
	es := prog.Statements[1].(*ast.ExprStmt)
	assert.Equal(t, "(fun/1)", sexpr(es.Expr))
}

func TestImmediatelyInvokedFunction(t *testing.T) {
	assert.Equal(t, "(call (group (fun/0)))", sexpr(singleExpr(t, `(fun () {})();`)))
}

// ---- 8. Error messages ----

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		source string
		msg    string
		where  string
	}{
		{"print 1", "Expect ';' after value.", "at end"},
		{"1 +;", "Expect expression.", "at ';'"},
		{"(1;", "Expect ')' after expression.", "at ';'"},
		{"var 1;", "Expect variable name.", "at '1'"},
		{"var a = 1", "Expect ';' after variable declaration.", "at end"},
		{"{ print 1;", "Expect '}' after block.", "at end"},
		{"if 1) print 1;", "Expect '(' after 'if'.", "at '1'"},
		{"if (1 print 1;", "Expect ')' after if condition.", "at 'print'"},
		{"while 1", "Expect '(' after 'while'.", "at '1'"},
		{"for (;; i = 1;", "Expect ')' after for clauses.", "at ';'"},
		{"fun f(1) {}", "Expect parameter name.", "at '1'"},
		{"fun f(a {}", "Expect ')' after parameters.", "at '{'"},
		{"fun f() print 1;", "Expect '{' before function body.", "at 'print'"},
		{"f(1;", "Expect ')' after arguments.", "at ';'"},
		{"break", "Expect ';' after 'break'.", "at end"},
		{"return 1", "Expect ';' after return value.", "at end"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, diags := mustFail(t, tt.source)
			assert.Equal(t, diagnostics.EParse, diags[0].Code)
			assert.Equal(t, tt.msg, diags[0].Message)
			assert.Equal(t, tt.where, diags[0].Where)
		})
	}
}

func TestErrorLine(t *testing.T) {
	_, diags := mustFail(t, "print 1;\nprint 2;\nprint ;")
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].Line)
	assert.Equal(t, "[line 3] Error at ';': Expect expression.", diags[0].String())
}

// ---- 9. Recovery ----

func TestRecoveryKeepsLaterStatements(t *testing.T) {
	prog, diags := mustFail(t, "print 1;\nvar = 2;\nprint 3;")
	require.Len(t, diags, 1)

	require.Len(t, prog.Statements, 3)
	assert.IsType(t, &ast.PrintStmt{}, prog.Statements[0])
	empty, ok := prog.Statements[1].(*ast.EmptyStmt)
	require.True(t, ok)
	assert.Equal(t, 2, empty.Line)
	assert.IsType(t, &ast.PrintStmt{}, prog.Statements[2])
}

func TestRecoveryReportsEachError(t *testing.T) {
	_, diags := mustFail(t, "print ;\nprint 2;\nvar;\nprint 4;")
	require.Len(t, diags, 2)
	assert.Equal(t, 1, diags[0].Line)
	assert.Equal(t, 3, diags[1].Line)
}

func TestRecoveryStopsAtStatementKeyword(t *testing.T) {
	// no ';' before `print`, so synchronize stops at the keyword
	prog, diags := mustFail(t, "var a = (1 2 print a;")
	require.Len(t, diags, 1)
	require.Len(t, prog.Statements, 2)
	assert.IsType(t, &ast.EmptyStmt{}, prog.Statements[0])
	assert.IsType(t, &ast.PrintStmt{}, prog.Statements[1])
}

func TestRecoveryInsideBlock(t *testing.T) {
	prog, diags := mustFail(t, "{ print ; print 2; }\nprint 3;")
	require.Len(t, diags, 1)
	require.Len(t, prog.Statements, 2)
	block := prog.Statements[0].(*ast.Block)
	require.Len(t, block.Statements, 2)
	assert.IsType(t, &ast.EmptyStmt{}, block.Statements[0])
	assert.IsType(t, &ast.PrintStmt{}, block.Statements[1])
}

func TestScanAndParseDiagnosticsCombined(t *testing.T) {
	_, diags := mustFail(t, "var a = @;\nprint a")
	require.Len(t, diags, 3)
	assert.Equal(t, diagnostics.EScan, diags[0].Code)
	assert.Equal(t, diagnostics.EParse, diags[1].Code)
	assert.Equal(t, "Expect expression.", diags[1].Message)
	assert.Equal(t, diagnostics.EParse, diags[2].Code)
	assert.Equal(t, "at end", diags[2].Where)
}

func TestEmptyProgram(t *testing.T) {
	prog := mustParse(t, "")
	assert.Empty(t, prog.Statements)

	prog = mustParse(t, "// only a comment\n")
	assert.Empty(t, prog.Statements)
}

func TestParseTokensAppendsEOF(t *testing.T) {
	prog, diags := parser.ParseTokens(nil)
	assert.Empty(t, diags)
	assert.Empty(t, prog.Statements)
}

// ---- 10. Lines ----

func TestStatementLines(t *testing.T) {
	prog := mustParse(t, "var a = 1;\n\nprint a;\n{\n}\n")
	require.Len(t, prog.Statements, 3)
	assert.Equal(t, 1, prog.Statements[0].NodeLine())
	assert.Equal(t, 3, prog.Statements[1].NodeLine())
	assert.Equal(t, 4, prog.Statements[2].NodeLine())
}
