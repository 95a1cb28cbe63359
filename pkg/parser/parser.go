// Package parser implements the slox recursive-descent parser.
package parser

import (
	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/lexer"
)

// maxArgs caps both parameter lists and call argument lists.
const maxArgs = 255

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into an AST.
//
// The program is always returned: a declaration that fails to parse is
// replaced by an *ast.EmptyStmt so the remaining statements survive.
// Scan diagnostics come first, followed by parse diagnostics.
func Parse(source string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, scanDiags := lexer.Tokenize(source)
	prog, parseDiags := ParseTokens(tokens)

	diags := make([]diagnostics.Diagnostic, 0, len(scanDiags)+len(parseDiags))
	diags = append(diags, scanDiags...)
	diags = append(diags, parseDiags...)
	return prog, diags
}

// ParseTokens parses an already scanned token stream.
func ParseTokens(tokens []lexer.Token) (*ast.Program, []diagnostics.Diagnostic) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF, Line: line})
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	return prog, p.diags
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) atEnd() bool {
	return p.peek() == lexer.TokEOF
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

// match consumes the current token if it has one of the given types.
func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.peek() == typ && !p.atEnd() {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(typ lexer.TokenType, msg string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.errorAt(tok, msg)
		return tok, false
	}
	return p.advance(), true
}

// errorAt records a parse diagnostic located at tok.
func (p *parser) errorAt(tok lexer.Token, msg string) {
	where := diagnostics.AtLexeme(tok.Lexeme)
	if tok.Type == lexer.TokEOF {
		where = diagnostics.AtEnd()
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, tok.Line, where))
}

// synchronize discards tokens until just after a ';' or just before a
// token that starts a new statement.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.peek() {
		case lexer.TokClass, lexer.TokFor, lexer.TokFun, lexer.TokIf,
			lexer.TokPrint, lexer.TokReturn, lexer.TokVar, lexer.TokWhile:
			return
		}
		p.advance()
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	var stmts []ast.Stmt
	for !p.atEnd() {
		stmts = append(stmts, p.parseDeclaration())
	}
	return &ast.Program{Statements: stmts}
}

// --- Declarations ---

// parseDeclaration is the recovery boundary: it never returns nil.
func (p *parser) parseDeclaration() ast.Stmt {
	start := p.current()

	var s ast.Stmt
	switch {
	case p.peek() == lexer.TokFun && p.peekAt(1) == lexer.TokIdent:
		p.advance() // consume 'fun'
		s = p.parseFunDecl()
	case p.peek() == lexer.TokVar:
		p.advance() // consume 'var'
		s = p.parseVarDecl()
	default:
		s = p.parseStatement()
	}

	if s == nil {
		p.synchronize()
		return &ast.EmptyStmt{Line: start.Line}
	}
	return s
}

func (p *parser) parseFunDecl() ast.Stmt {
	name, ok := p.expect(lexer.TokIdent, "Expect function name.")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after function name."); !ok {
		return nil
	}
	params, body, ok := p.parseFunctionRest()
	if !ok {
		return nil
	}
	return &ast.FunDecl{Name: name, Params: params, Body: body}
}

// parseFunctionRest parses the parameter list after '(' and the body.
// Named and anonymous functions share it.
func (p *parser) parseFunctionRest() ([]lexer.Token, []ast.Stmt, bool) {
	var params []lexer.Token
	if p.peek() != lexer.TokRParen {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.current(), "Can't have more than 255 parameters.")
			}
			param, ok := p.expect(lexer.TokIdent, "Expect parameter name.")
			if !ok {
				return nil, nil, false
			}
			params = append(params, param)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after parameters."); !ok {
		return nil, nil, false
	}
	if _, ok := p.expect(lexer.TokLBrace, "Expect '{' before function body."); !ok {
		return nil, nil, false
	}
	body, ok := p.parseBlockBody()
	if !ok {
		return nil, nil, false
	}
	return params, body, true
}

func (p *parser) parseVarDecl() ast.Stmt {
	name, ok := p.expect(lexer.TokIdent, "Expect variable name.")
	if !ok {
		return nil
	}

	var init ast.Expr
	if p.match(lexer.TokEquals) {
		init = p.parseExpr()
		if init == nil {
			return nil
		}
	}

	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after variable declaration."); !ok {
		return nil
	}
	return &ast.VarDecl{Name: name, Init: init}
}

// --- Statements ---

func (p *parser) parseStatement() ast.Stmt {
	switch p.peek() {
	case lexer.TokPrint:
		return p.parsePrintStmt()
	case lexer.TokLBrace:
		open := p.advance()
		stmts, ok := p.parseBlockBody()
		if !ok {
			return nil
		}
		return &ast.Block{Line: open.Line, Statements: stmts}
	case lexer.TokIf:
		return p.parseIfStmt()
	case lexer.TokWhile:
		return p.parseWhileStmt()
	case lexer.TokFor:
		return p.parseForStmt()
	case lexer.TokBreak:
		return p.parseBreakStmt()
	case lexer.TokReturn:
		return p.parseReturnStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parsePrintStmt() ast.Stmt {
	kw := p.advance() // consume 'print'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after value."); !ok {
		return nil
	}
	return &ast.PrintStmt{Keyword: kw, Expr: value}
}

func (p *parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after value."); !ok {
		return nil
	}
	return &ast.ExprStmt{Expr: expr}
}

// parseBlockBody parses declarations up to and including the closing '}'.
// The opening '{' has already been consumed.
func (p *parser) parseBlockBody() ([]ast.Stmt, bool) {
	stmts := []ast.Stmt{}
	for p.peek() != lexer.TokRBrace && !p.atEnd() {
		stmts = append(stmts, p.parseDeclaration())
	}
	if _, ok := p.expect(lexer.TokRBrace, "Expect '}' after block."); !ok {
		return nil, false
	}
	return stmts, true
}

func (p *parser) parseIfStmt() ast.Stmt {
	kw := p.advance() // consume 'if'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'if'."); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after if condition."); !ok {
		return nil
	}

	then := p.parseStatement()
	if then == nil {
		return nil
	}

	var els ast.Stmt
	if p.match(lexer.TokElse) {
		els = p.parseStatement()
		if els == nil {
			return nil
		}
	}
	return &ast.IfStmt{Keyword: kw, Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhileStmt() ast.Stmt {
	kw := p.advance() // consume 'while'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'while'."); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after condition."); !ok {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Keyword: kw, Cond: cond, Body: body}
}

// parseForStmt desugars `for (init; cond; incr) body` into
// `{ init; while (cond) { body; incr } }`.
func (p *parser) parseForStmt() ast.Stmt {
	kw := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'for'."); !ok {
		return nil
	}

	var init ast.Stmt
	switch {
	case p.match(lexer.TokSemicolon):
	case p.match(lexer.TokVar):
		init = p.parseVarDecl()
		if init == nil {
			return nil
		}
	default:
		init = p.parseExprStmt()
		if init == nil {
			return nil
		}
	}

	var cond ast.Expr
	if p.peek() != lexer.TokSemicolon {
		cond = p.parseExpr()
		if cond == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after loop condition."); !ok {
		return nil
	}

	var incr ast.Expr
	if p.peek() != lexer.TokRParen {
		incr = p.parseExpr()
		if incr == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after for clauses."); !ok {
		return nil
	}

	body := p.parseStatement()
	if body == nil {
		return nil
	}

	if incr != nil {
		body = &ast.Block{
			Line:       body.NodeLine(),
			Statements: []ast.Stmt{body, &ast.ExprStmt{Expr: incr}},
		}
	}
	if cond == nil {
		cond = &ast.Literal{Line: kw.Line, Value: true}
	}
	var loop ast.Stmt = &ast.WhileStmt{Keyword: kw, Cond: cond, Body: body}
	if init != nil {
		loop = &ast.Block{Line: kw.Line, Statements: []ast.Stmt{init, loop}}
	}
	return loop
}

func (p *parser) parseBreakStmt() ast.Stmt {
	kw := p.advance() // consume 'break'
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after 'break'."); !ok {
		return nil
	}
	return &ast.BreakStmt{Keyword: kw}
}

func (p *parser) parseReturnStmt() ast.Stmt {
	kw := p.advance() // consume 'return'
	var value ast.Expr
	if p.peek() != lexer.TokSemicolon {
		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after return value."); !ok {
		return nil
	}
	return &ast.ReturnStmt{Keyword: kw, Value: value}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseOr()
	if expr == nil {
		return nil
	}

	if p.peek() != lexer.TokEquals {
		return expr
	}
	equals := p.advance()
	value := p.parseAssignment()
	if value == nil {
		return nil
	}

	if v, ok := expr.(*ast.Variable); ok {
		return &ast.Assign{Name: v.Name, Value: value}
	}
	// Reported but not fatal: the parse carries on with the left side.
	p.errorAt(equals, "Invalid assignment target.")
	return expr
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokOr {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokAnd {
		op := p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

// --- Precedence climbing ---

// parseBinary parses one left-associative precedence level.
func (p *parser) parseBinary(next func() ast.Expr, ops ...lexer.TokenType) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}

	for {
		matched := false
		for _, typ := range ops {
			if p.peek() == typ {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		op := p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Left: left, Op: op, Right: right}
	}
}

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinary(p.parseComparison, lexer.TokBangEq, lexer.TokEqEq)
}

func (p *parser) parseComparison() ast.Expr {
	return p.parseBinary(p.parseAdditive, lexer.TokGt, lexer.TokGtEq, lexer.TokLt, lexer.TokLtEq)
}

func (p *parser) parseAdditive() ast.Expr {
	return p.parseBinary(p.parseMultiplicative, lexer.TokMinus, lexer.TokPlus)
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.parseBinary(p.parseUnary, lexer.TokSlash, lexer.TokStar)
}

func (p *parser) parseUnary() ast.Expr {
	if p.peek() == lexer.TokBang || p.peek() == lexer.TokMinus {
		op := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		return &ast.Unary{Op: op, Right: right}
	}
	return p.parseCall()
}

func (p *parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for p.match(lexer.TokLParen) {
		expr = p.finishCall(expr)
		if expr == nil {
			return nil
		}
	}
	return expr
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if p.peek() != lexer.TokRParen {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.current(), "Can't have more than 255 arguments.")
			}
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren, ok := p.expect(lexer.TokRParen, "Expect ')' after arguments.")
	if !ok {
		return nil
	}
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokFalse:
		p.advance()
		return &ast.Literal{Line: tok.Line, Value: false}
	case lexer.TokTrue:
		p.advance()
		return &ast.Literal{Line: tok.Line, Value: true}
	case lexer.TokNil:
		p.advance()
		return &ast.Literal{Line: tok.Line, Value: nil}
	case lexer.TokNumberLit, lexer.TokStringLit:
		p.advance()
		return &ast.Literal{Line: tok.Line, Value: tok.Literal}
	case lexer.TokIdent:
		p.advance()
		return &ast.Variable{Name: tok}

	case lexer.TokLParen:
		// Grouped expression
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen, "Expect ')' after expression."); !ok {
			return nil
		}
		return &ast.Grouping{Line: tok.Line, Inner: inner}

	case lexer.TokFun:
		// Anonymous function literal
		p.advance()
		if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'fun'."); !ok {
			return nil
		}
		params, body, ok := p.parseFunctionRest()
		if !ok {
			return nil
		}
		return &ast.FunctionExpr{Keyword: tok, Params: params, Body: body}

	default:
		p.errorAt(tok, "Expect expression.")
		return nil
	}
}
