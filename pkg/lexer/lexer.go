// Package lexer implements the slox tokenizer.
package lexer

import (
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/thomasrohde/slox/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Single-character tokens
	TokLParen    TokenType = iota // (
	TokRParen                     // )
	TokLBrace                     // {
	TokRBrace                     // }
	TokComma                      // ,
	TokDot                        // .
	TokMinus                      // -
	TokPlus                       // +
	TokSemicolon                  // ;
	TokSlash                      // /
	TokStar                       // *

	// One or two character tokens
	TokBang   // !
	TokBangEq // !=
	TokEquals // =
	TokEqEq   // ==
	TokGt     // >
	TokGtEq   // >=
	TokLt     // <
	TokLtEq   // <=

	// Literals
	TokIdent
	TokStringLit
	TokNumberLit

	// Keywords
	TokAnd
	TokBreak
	TokClass
	TokElse
	TokFalse
	TokFor
	TokFun
	TokIf
	TokNil
	TokOr
	TokPrint
	TokReturn
	TokSuper
	TokThis
	TokTrue
	TokVar
	TokWhile

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokLParen:    "LEFT_PAREN",
	TokRParen:    "RIGHT_PAREN",
	TokLBrace:    "LEFT_BRACE",
	TokRBrace:    "RIGHT_BRACE",
	TokComma:     "COMMA",
	TokDot:       "DOT",
	TokMinus:     "MINUS",
	TokPlus:      "PLUS",
	TokSemicolon: "SEMICOLON",
	TokSlash:     "SLASH",
	TokStar:      "STAR",
	TokBang:      "BANG",
	TokBangEq:    "BANG_EQUAL",
	TokEquals:    "EQUAL",
	TokEqEq:      "EQUAL_EQUAL",
	TokGt:        "GREATER",
	TokGtEq:      "GREATER_EQUAL",
	TokLt:        "LESS",
	TokLtEq:      "LESS_EQUAL",
	TokIdent:     "IDENTIFIER",
	TokStringLit: "STRING",
	TokNumberLit: "NUMBER",
	TokAnd:       "AND",
	TokBreak:     "BREAK",
	TokClass:     "CLASS",
	TokElse:      "ELSE",
	TokFalse:     "FALSE",
	TokFor:       "FOR",
	TokFun:       "FUN",
	TokIf:        "IF",
	TokNil:       "NIL",
	TokOr:        "OR",
	TokPrint:     "PRINT",
	TokReturn:    "RETURN",
	TokSuper:     "SUPER",
	TokThis:      "THIS",
	TokTrue:      "TRUE",
	TokVar:       "VAR",
	TokWhile:     "WHILE",
	TokEOF:       "EOF",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexer token.
//
// Literal holds the scanned value for number (float64) and string (string)
// tokens and is nil for everything else.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
}

func (t Token) String() string {
	lit := "<nil>"
	if t.Literal != nil {
		lit = fmt.Sprint(t.Literal)
	}
	return fmt.Sprintf("%s %s %s", t.Type, t.Lexeme, lit)
}

var keywords = map[string]TokenType{
	"and":    TokAnd,
	"break":  TokBreak,
	"class":  TokClass,
	"else":   TokElse,
	"false":  TokFalse,
	"for":    TokFor,
	"fun":    TokFun,
	"if":     TokIf,
	"nil":    TokNil,
	"or":     TokOr,
	"print":  TokPrint,
	"return": TokReturn,
	"super":  TokSuper,
	"this":   TokThis,
	"true":   TokTrue,
	"var":    TokVar,
	"while":  TokWhile,
}

// Keywords returns the reserved words in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for word := range keywords {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

type scanner struct {
	source  string
	tokens  []Token
	diags   []diagnostics.Diagnostic
	start   int
	current int
	line    int
}

func newScanner(source string) *scanner {
	return &scanner{
		source: source,
		line:   1,
	}
}

func (s *scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *scanner) advance() byte {
	ch := s.source[s.current]
	s.current++
	if ch == '\n' {
		s.line++
	}
	return ch
}

// match consumes the next byte only if it is expected.
func (s *scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *scanner) addToken(typ TokenType, literal any) {
	s.tokens = append(s.tokens, Token{
		Type:    typ,
		Lexeme:  s.source[s.start:s.current],
		Literal: literal,
		Line:    s.line,
	})
}

// addPair emits the two-character form when the next byte is second.
func (s *scanner) addPair(second byte, two, one TokenType) {
	if s.match(second) {
		s.addToken(two, nil)
		return
	}
	s.addToken(one, nil)
}

func (s *scanner) lexError(msg string) {
	s.diags = append(s.diags, diagnostics.MakeDiag(diagnostics.EScan, msg, s.line, ""))
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() {
	for s.peek() != '"' && !s.atEnd() {
		s.advance()
	}

	if s.atEnd() {
		s.lexError("Unterminated string.")
		return
	}

	s.advance() // consume closing "

	// Trim the surrounding quotes.
	s.addToken(TokStringLit, s.source[s.start+1:s.current-1])
}

func (s *scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}

	// A fractional part needs a digit after the dot.
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	val, _ := strconv.ParseFloat(s.source[s.start:s.current], 64)
	s.addToken(TokNumberLit, val)
}

func (s *scanner) scanIdentOrKeyword() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[s.start:s.current]
	if typ, ok := keywords[text]; ok {
		s.addToken(typ, nil)
		return
	}
	s.addToken(TokIdent, nil)
}

func (s *scanner) scanToken() {
	ch := s.advance()

	switch ch {
	case '(':
		s.addToken(TokLParen, nil)
	case ')':
		s.addToken(TokRParen, nil)
	case '{':
		s.addToken(TokLBrace, nil)
	case '}':
		s.addToken(TokRBrace, nil)
	case ',':
		s.addToken(TokComma, nil)
	case '.':
		s.addToken(TokDot, nil)
	case '-':
		s.addToken(TokMinus, nil)
	case '+':
		s.addToken(TokPlus, nil)
	case ';':
		s.addToken(TokSemicolon, nil)
	case '*':
		s.addToken(TokStar, nil)
	case '!':
		s.addPair('=', TokBangEq, TokBang)
	case '=':
		s.addPair('=', TokEqEq, TokEquals)
	case '<':
		s.addPair('=', TokLtEq, TokLt)
	case '>':
		s.addPair('=', TokGtEq, TokGt)
	case '/':
		if s.match('/') {
			// Comment runs to end of line; the newline itself is left for the main loop.
			for s.peek() != '\n' && !s.atEnd() {
				s.advance()
			}
		} else {
			s.addToken(TokSlash, nil)
		}
	case ' ', '\r', '\t', '\n':
		// advance already counted the newline
	case '"':
		s.scanString()
	default:
		switch {
		case isDigit(ch):
			s.scanNumber()
		case isAlpha(ch):
			s.scanIdentOrKeyword()
		default:
			// Skip the whole rune so multi-byte input yields one error.
			if ch >= utf8.RuneSelf {
				_, size := utf8.DecodeRuneInString(s.source[s.start:])
				s.current = s.start + size
			}
			s.lexError("Unexpected character.")
		}
	}
}

// Tokenize breaks source code into a slice of tokens terminated by TokEOF.
// Scanning never stops early: every lexical error is returned as a
// diagnostic and the offending lexeme contributes no token.
func Tokenize(source string) ([]Token, []diagnostics.Diagnostic) {
	s := newScanner(source)
	for !s.atEnd() {
		s.start = s.current
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokEOF, Lexeme: "", Line: s.line})
	return s.tokens, s.diags
}
