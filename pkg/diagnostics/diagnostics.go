// Package diagnostics defines slox diagnostic types for scan/parse/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Diagnostic code constants.
const (
	EScan        = "E_SCAN"
	EParse       = "E_PARSE"
	EType        = "E_TYPE"
	EArity       = "E_ARITY"
	EUndefined   = "E_UNDEFINED"
	ENotCallable = "E_NOT_CALLABLE"
	EBreak       = "E_BREAK"
	EReturn      = "E_RETURN"
	ENative      = "E_NATIVE"
	EDupParam    = "E_DUP_PARAM"
	EStack       = "E_STACK"
	EDupDecl     = "E_DUP_DECL"
	EIO          = "E_IO"
	EConfig      = "E_CONFIG"
)

// Track identifies which of the three error tracks a diagnostic belongs to.
type Track string

const (
	TrackScan    Track = "scan"
	TrackParse   Track = "parse"
	TrackRuntime Track = "runtime"
)

// Diagnostic represents a scan, parse, or runtime diagnostic.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Where   string `json:"where,omitempty"` // "at end", "at 'x'" or empty
	File    string `json:"file,omitempty"`
}

// Reporter receives every diagnostic as it is produced.
type Reporter func(line int, where, message string)

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, line int, where string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Line:    line,
		Where:   where,
	}
}

// AtEnd is the location hint used for errors at end of input.
func AtEnd() string {
	return "at end"
}

// AtLexeme is the location hint used for errors at a token.
func AtLexeme(lexeme string) string {
	return fmt.Sprintf("at '%s'", lexeme)
}

// TrackOf reports the error track a diagnostic code belongs to.
func TrackOf(code string) Track {
	switch code {
	case EScan:
		return TrackScan
	case EParse, EDupParam, EDupDecl:
		return TrackParse
	default:
		return TrackRuntime
	}
}

// Report forwards d to r if r is set.
func (d Diagnostic) Report(r Reporter) {
	if r != nil {
		r(d.Line, d.Where, d.Message)
	}
}

// String renders the classic one-line form:
//
//	[line 3] Error at 'x': Expect ';' after value.
//
// Runtime diagnostics without a location use the message-then-line form
// instead.
func (d Diagnostic) String() string {
	if d.Line == 0 {
		// Not tied to source (I/O, config).
		return fmt.Sprintf("error[%s]: %s", d.Code, d.Message)
	}
	if TrackOf(d.Code) == TrackRuntime && d.Where == "" {
		return fmt.Sprintf("%s\n[line %d]", d.Message, d.Line)
	}
	if d.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", d.Line, d.Message)
	}
	return fmt.Sprintf("[line %d] Error %s: %s", d.Line, d.Where, d.Message)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		return d.String()
	}
	loc := fmt.Sprintf("line %d", d.Line)
	if d.File != "" {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	head := color.New(color.FgRed, color.Bold).Sprintf("error[%s]", d.Code)
	out := fmt.Sprintf("%s: %s\n  --> %s", head, d.Message, loc)
	if d.Where != "" {
		out += "\n  " + color.New(color.FgCyan).Sprint(d.Where)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, pretty)
	}
	if pretty {
		return strings.Join(parts, "\n\n")
	}
	return strings.Join(parts, "\n")
}

// FormatJSON renders diagnostics as a JSON array.
func FormatJSON(diags []Diagnostic) string {
	if diags == nil {
		diags = []Diagnostic{}
	}
	b, _ := json.Marshal(diags)
	return string(b)
}
