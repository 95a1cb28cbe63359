// Package formatter implements the slox source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/slox/pkg/ast"
	"github.com/thomasrohde/slox/pkg/lexer"
)

const indent = "  "

// Binding strength of each operator level (higher = tighter binding).
const (
	precAssign = iota
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

var precedence = map[lexer.TokenType]int{
	lexer.TokOr:     precOr,
	lexer.TokAnd:    precAnd,
	lexer.TokEqEq:   precEquality,
	lexer.TokBangEq: precEquality,
	lexer.TokGt:     precComparison,
	lexer.TokGtEq:   precComparison,
	lexer.TokLt:     precComparison,
	lexer.TokLtEq:   precComparison,
	lexer.TokPlus:   precTerm,
	lexer.TokMinus:  precTerm,
	lexer.TokStar:   precFactor,
	lexer.TokSlash:  precFactor,
}

func exprPrec(e ast.Expr) int {
	switch expr := e.(type) {
	case *ast.Assign:
		return precAssign
	case *ast.Binary:
		return precedence[expr.Op.Type]
	case *ast.Logical:
		return precedence[expr.Op.Type]
	case *ast.Unary:
		return precUnary
	case *ast.Call:
		return precCall
	}
	return precPrimary
}

// needsParens reports whether child must be wrapped to keep its meaning
// as an operand of an operator at parentPrec. Binary operators are
// left-associative, so an equal-precedence right operand needs parens.
func needsParens(child ast.Expr, parentPrec int, isRight bool) bool {
	childPrec := exprPrec(child)
	if childPrec < parentPrec {
		return true
	}
	return childPrec == parentPrec && isRight
}

// Format pretty-prints a slox AST back to source code.
func Format(program *ast.Program) string {
	var lines []string
	for _, s := range program.Statements {
		if out := formatStmt(s, 0); out != "" {
			lines = append(lines, out)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains `//` comments, which the
// formatter does not preserve.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch {
		case source[i] == '"':
			inString = !inString
		case !inString && source[i] == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr, depth) + ";"
	case *ast.PrintStmt:
		return prefix + "print " + formatExpr(stmt.Expr, depth) + ";"
	case *ast.VarDecl:
		if stmt.Init == nil {
			return prefix + "var " + stmt.Name.Lexeme + ";"
		}
		return prefix + "var " + stmt.Name.Lexeme + " = " + formatExpr(stmt.Init, depth) + ";"
	case *ast.Block:
		return prefix + formatBlock(stmt.Statements, depth)
	case *ast.IfStmt:
		out := prefix + "if (" + formatExpr(stmt.Cond, depth) + ")" + formatBody(stmt.Then, depth)
		if stmt.Else == nil {
			return out
		}
		if _, ok := stmt.Then.(*ast.Block); ok {
			out += " else"
		} else {
			out += "\n" + prefix + "else"
		}
		if elseIf, ok := stmt.Else.(*ast.IfStmt); ok {
			return out + " " + strings.TrimPrefix(formatStmt(elseIf, depth), prefix)
		}
		return out + formatBody(stmt.Else, depth)
	case *ast.WhileStmt:
		return prefix + "while (" + formatExpr(stmt.Cond, depth) + ")" + formatBody(stmt.Body, depth)
	case *ast.BreakStmt:
		return prefix + "break;"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return;"
		}
		return prefix + "return " + formatExpr(stmt.Value, depth) + ";"
	case *ast.FunDecl:
		return prefix + "fun " + stmt.Name.Lexeme + formatParams(stmt.Params) + " " + formatBlock(stmt.Body, depth)
	case *ast.EmptyStmt:
		return ""
	}
	return ""
}

// formatBody renders the statement following an `if`, `else` or `while`
// header: blocks stay on the header line, anything else is indented on
// the next line.
func formatBody(s ast.Stmt, depth int) string {
	if block, ok := s.(*ast.Block); ok {
		return " " + formatBlock(block.Statements, depth)
	}
	return "\n" + formatStmt(s, depth+1)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	var lines []string
	for _, s := range stmts {
		if out := formatStmt(s, depth+1); out != "" {
			lines = append(lines, out)
		}
	}
	if len(lines) == 0 {
		return "{}"
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatParams(params []lexer.Token) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Lexeme
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func formatOperand(child ast.Expr, parentPrec int, isRight bool, depth int) string {
	out := formatExpr(child, depth)
	if needsParens(child, parentPrec, isRight) {
		return "(" + out + ")"
	}
	return out
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.Literal:
		return formatLiteral(expr.Value)
	case *ast.Grouping:
		return "(" + formatExpr(expr.Inner, depth) + ")"
	case *ast.Variable:
		return expr.Name.Lexeme
	case *ast.Assign:
		return expr.Name.Lexeme + " = " + formatExpr(expr.Value, depth)
	case *ast.Unary:
		return expr.Op.Lexeme + formatOperand(expr.Right, precUnary, false, depth)
	case *ast.Binary:
		prec := precedence[expr.Op.Type]
		return formatOperand(expr.Left, prec, false, depth) + " " + expr.Op.Lexeme + " " +
			formatOperand(expr.Right, prec, true, depth)
	case *ast.Logical:
		prec := precedence[expr.Op.Type]
		return formatOperand(expr.Left, prec, false, depth) + " " + expr.Op.Lexeme + " " +
			formatOperand(expr.Right, prec, true, depth)
	case *ast.Call:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a, depth)
		}
		return formatOperand(expr.Callee, precCall, false, depth) + "(" + strings.Join(args, ", ") + ")"
	case *ast.FunctionExpr:
		return "fun " + formatParams(expr.Params) + " " + formatBlock(expr.Body, depth)
	}
	return ""
}

func formatLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumberLiteral(val)
	case string:
		return `"` + val + `"`
	}
	return ""
}

// formatNumberLiteral writes a number the lexer can read back: plain
// decimal digits, never an exponent.
func formatNumberLiteral(value float64) string {
	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if strings.ContainsAny(raw, "eE") {
		return expandScientificNotation(raw)
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact))
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}
