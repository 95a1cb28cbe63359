// Package validator implements static checks over slox AST programs.
//
// The checks are advisory: the interpreter does not run them, and every
// problem they find is also caught (or tolerated) at runtime.
package validator

import (
	"fmt"

	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/lexer"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

func (s *scope) hasLocal(name string) bool {
	return s.bindings[name]
}

type validator struct {
	diags     []diagnostics.Diagnostic
	scope     *scope // nil at top level
	loopDepth int
	fnDepth   int
}

// Validate performs static analysis on a slox program and returns diagnostics.
//
// It reports `break` outside a loop (E_BREAK), `return` outside a function
// (E_RETURN), repeated parameter names (E_DUP_PARAM) and a local name
// declared twice in the same block (E_DUP_DECL).
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{}
	v.validateStatements(program.Statements)
	return v.diags
}

func (v *validator) addDiag(code, msg string, tok lexer.Token) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, tok.Line, diagnostics.AtLexeme(tok.Lexeme)))
}

func (v *validator) declare(name lexer.Token) {
	// Globals may be redeclared freely.
	if v.scope == nil {
		return
	}
	if v.scope.hasLocal(name.Lexeme) {
		v.addDiag(diagnostics.EDupDecl, "Already a variable with this name in this scope.", name)
		return
	}
	v.scope.add(name.Lexeme)
}

func (v *validator) withScope(fn func()) {
	prev := v.scope
	v.scope = newScope(prev)
	defer func() { v.scope = prev }()
	fn()
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v.validateExpr(s.Expr)

	case *ast.PrintStmt:
		v.validateExpr(s.Expr)

	case *ast.VarDecl:
		if s.Init != nil {
			v.validateExpr(s.Init)
		}
		v.declare(s.Name)

	case *ast.Block:
		v.withScope(func() { v.validateStatements(s.Statements) })

	case *ast.IfStmt:
		v.validateExpr(s.Cond)
		v.validateStmt(s.Then)
		if s.Else != nil {
			v.validateStmt(s.Else)
		}

	case *ast.WhileStmt:
		v.validateExpr(s.Cond)
		v.loopDepth++
		v.validateStmt(s.Body)
		v.loopDepth--

	case *ast.BreakStmt:
		if v.loopDepth == 0 {
			v.addDiag(diagnostics.EBreak, "Can't use 'break' outside of a loop.", s.Keyword)
		}

	case *ast.FunDecl:
		v.declare(s.Name)
		v.validateFunction(s.Params, s.Body)

	case *ast.ReturnStmt:
		if v.fnDepth == 0 {
			v.addDiag(diagnostics.EReturn, "Can't return from top-level code.", s.Keyword)
		}
		if s.Value != nil {
			v.validateExpr(s.Value)
		}

	case *ast.EmptyStmt:
		// placeholder left by parse recovery
	}
}

// validateFunction checks a body in a fresh scope holding the parameters.
// Loops outside the function do not license a `break` inside it.
func (v *validator) validateFunction(params []lexer.Token, body []ast.Stmt) {
	prevLoop := v.loopDepth
	v.loopDepth = 0
	v.fnDepth++
	defer func() {
		v.loopDepth = prevLoop
		v.fnDepth--
	}()

	v.withScope(func() {
		for _, p := range params {
			if v.scope.hasLocal(p.Lexeme) {
				v.addDiag(diagnostics.EDupParam, fmt.Sprintf("Duplicate parameter '%s'.", p.Lexeme), p)
				continue
			}
			v.scope.add(p.Lexeme)
		}
		v.validateStatements(body)
	})
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Grouping:
		v.validateExpr(e.Inner)
	case *ast.Unary:
		v.validateExpr(e.Right)
	case *ast.Binary:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)
	case *ast.Logical:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)
	case *ast.Assign:
		v.validateExpr(e.Value)
	case *ast.Call:
		v.validateExpr(e.Callee)
		for _, arg := range e.Args {
			v.validateExpr(arg)
		}
	case *ast.FunctionExpr:
		v.validateFunction(e.Params, e.Body)
	}
}
