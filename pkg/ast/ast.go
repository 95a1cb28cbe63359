// Package ast defines the slox AST node types.
package ast

import "github.com/thomasrohde/slox/pkg/lexer"

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeLine() int
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Expressions ---

// Literal holds nil, a bool, a float64 or a string.
type Literal struct {
	Line  int
	Value any
}

func (n *Literal) Kind() string  { return "Literal" }
func (n *Literal) NodeLine() int { return n.Line }
func (n *Literal) exprNode()     {}

type Grouping struct {
	Line  int
	Inner Expr
}

func (n *Grouping) Kind() string  { return "Grouping" }
func (n *Grouping) NodeLine() int { return n.Line }
func (n *Grouping) exprNode()     {}

type Unary struct {
	Op    lexer.Token
	Right Expr
}

func (n *Unary) Kind() string  { return "Unary" }
func (n *Unary) NodeLine() int { return n.Op.Line }
func (n *Unary) exprNode()     {}

type Binary struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Binary) Kind() string  { return "Binary" }
func (n *Binary) NodeLine() int { return n.Op.Line }
func (n *Binary) exprNode()     {}

// Logical is a short-circuiting `and` / `or`.
type Logical struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Logical) Kind() string  { return "Logical" }
func (n *Logical) NodeLine() int { return n.Op.Line }
func (n *Logical) exprNode()     {}

type Variable struct {
	Name lexer.Token
}

func (n *Variable) Kind() string  { return "Variable" }
func (n *Variable) NodeLine() int { return n.Name.Line }
func (n *Variable) exprNode()     {}

type Assign struct {
	Name  lexer.Token
	Value Expr
}

func (n *Assign) Kind() string  { return "Assign" }
func (n *Assign) NodeLine() int { return n.Name.Line }
func (n *Assign) exprNode()     {}

// Call keeps the closing paren for error attribution.
type Call struct {
	Callee Expr
	Paren  lexer.Token
	Args   []Expr
}

func (n *Call) Kind() string  { return "Call" }
func (n *Call) NodeLine() int { return n.Paren.Line }
func (n *Call) exprNode()     {}

// FunctionExpr is an anonymous `fun (params) { body }` literal.
type FunctionExpr struct {
	Keyword lexer.Token
	Params  []lexer.Token
	Body    []Stmt
}

func (n *FunctionExpr) Kind() string  { return "FunctionExpr" }
func (n *FunctionExpr) NodeLine() int { return n.Keyword.Line }
func (n *FunctionExpr) exprNode()     {}

// --- Statements ---

type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Kind() string  { return "ExprStmt" }
func (n *ExprStmt) NodeLine() int { return n.Expr.NodeLine() }
func (n *ExprStmt) stmtNode()     {}

type PrintStmt struct {
	Keyword lexer.Token
	Expr    Expr
}

func (n *PrintStmt) Kind() string  { return "PrintStmt" }
func (n *PrintStmt) NodeLine() int { return n.Keyword.Line }
func (n *PrintStmt) stmtNode()     {}

// VarDecl has a nil Init when no initializer was written.
type VarDecl struct {
	Name lexer.Token
	Init Expr
}

func (n *VarDecl) Kind() string  { return "VarDecl" }
func (n *VarDecl) NodeLine() int { return n.Name.Line }
func (n *VarDecl) stmtNode()     {}

type Block struct {
	Line       int
	Statements []Stmt
}

func (n *Block) Kind() string  { return "Block" }
func (n *Block) NodeLine() int { return n.Line }
func (n *Block) stmtNode()     {}

type IfStmt struct {
	Keyword lexer.Token
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil when absent
}

func (n *IfStmt) Kind() string  { return "IfStmt" }
func (n *IfStmt) NodeLine() int { return n.Keyword.Line }
func (n *IfStmt) stmtNode()     {}

// WhileStmt is also the target of `for` desugaring.
type WhileStmt struct {
	Keyword lexer.Token
	Cond    Expr
	Body    Stmt
}

func (n *WhileStmt) Kind() string  { return "WhileStmt" }
func (n *WhileStmt) NodeLine() int { return n.Keyword.Line }
func (n *WhileStmt) stmtNode()     {}

type BreakStmt struct {
	Keyword lexer.Token
}

func (n *BreakStmt) Kind() string  { return "BreakStmt" }
func (n *BreakStmt) NodeLine() int { return n.Keyword.Line }
func (n *BreakStmt) stmtNode()     {}

type FunDecl struct {
	Name   lexer.Token
	Params []lexer.Token
	Body   []Stmt
}

func (n *FunDecl) Kind() string  { return "FunDecl" }
func (n *FunDecl) NodeLine() int { return n.Name.Line }
func (n *FunDecl) stmtNode()     {}

// ReturnStmt has a nil Value for a bare `return;`.
type ReturnStmt struct {
	Keyword lexer.Token
	Value   Expr
}

func (n *ReturnStmt) Kind() string  { return "ReturnStmt" }
func (n *ReturnStmt) NodeLine() int { return n.Keyword.Line }
func (n *ReturnStmt) stmtNode()     {}

// EmptyStmt stands in for a declaration that failed to parse.
type EmptyStmt struct {
	Line int
}

func (n *EmptyStmt) Kind() string  { return "EmptyStmt" }
func (n *EmptyStmt) NodeLine() int { return n.Line }
func (n *EmptyStmt) stmtNode()     {}

// --- Program ---

type Program struct {
	Statements []Stmt
}

func (n *Program) Kind() string { return "Program" }
func (n *Program) NodeLine() int {
	if len(n.Statements) == 0 {
		return 1
	}
	return n.Statements[0].NodeLine()
}
