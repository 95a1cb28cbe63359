// Package help holds the built-in slox language reference.
package help

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/thomasrohde/slox/pkg/stdlib"
)

// Version is the language version shown by `slox help` and `slox --version`.
const Version = "v0.3"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "functions", "flow", "stdlib", "diagnostics", "repl", "config", "examples"}

// QUICKREF is printed by `slox help` with no topic.
var QUICKREF = `slox ` + Version + ` quick reference

  print expr;                   print a value
  var name = expr;              declare a variable (initializer optional)
  name = expr                   assign (an expression; yields the value)
  { ... }                       block with its own scope
  if (c) s else s               conditional
  while (c) s                   loop
  for (init; cond; step) s      loop; any clause may be empty
  break;                        leave the innermost loop
  fun name(a, b) { ... }        named function
  fun (a) { ... }               anonymous function expression
  return expr;                  return from a function

Topics (slox help <topic>):
  ` + strings.Join(TopicList, ", ") + `
`

// Topics maps topic names to their help text.
var Topics = map[string]string{
	"syntax": `Syntax

Statements end with ';'. Comments run from '//' to end of line.
Identifiers start with a letter or '_' and continue with letters, digits or '_'.
Reserved words: and break class else false for fun if nil or print return
super this true var while.

Operator precedence, loosest first:
  =                 assignment (right-associative)
  or
  and
  == !=
  > >= < <=
  + -
  * /
  ! -               unary
  f(args)           call
`,

	"types": `Types

  nil        the absent value
  boolean    true, false
  number     64-bit float: 1, 2.5 (no leading or trailing '.')
  string     "double quoted", may span lines, no escapes
  function   named, anonymous or native

Only nil and false are falsy. Equality never converts types; two
functions are never equal. '+' adds numbers or joins strings; other
arithmetic and comparison operators need numbers. Division by zero gives
inf, -inf or nan.
`,

	"functions": `Functions

  fun add(a, b) { return a + b; }
  var twice = fun (f, x) { return f(f(x)); };

Functions capture the scope they are defined in, so closures see later
changes to captured variables. A function without 'return' yields nil.
Calls check arity: calling with the wrong number of arguments is an
E_ARITY error. At most 255 parameters or arguments.
`,

	"flow": `Control flow

  if (cond) stmt else stmt
  while (cond) stmt
  for (var i = 0; i < n; i = i + 1) stmt
  break;

'and' and 'or' short-circuit and yield an operand, not a boolean.
'break' leaves the innermost enclosing loop and never crosses a function
call. 'return' leaves the enclosing function and unwinds any loops.
`,

	"stdlib": `Standard library

clock() is always available and returns seconds since the epoch.
The remaining builtins are installed unless 'stdlib: false' is set in
config. Run 'slox help stdlib --index' for the full list.
A builtin that rejects its arguments raises E_NATIVE.
`,

	"diagnostics": `Diagnostics

Scan and parse errors:
  [line N] Error at 'x': message
  [line N] Error at end: message
Runtime errors:
  message
  [line N]

Codes: E_SCAN, E_PARSE, E_TYPE, E_ARITY, E_UNDEFINED, E_NOT_CALLABLE,
E_BREAK, E_RETURN, E_NATIVE, E_STACK. 'slox check' also reports
E_DUP_PARAM and E_DUP_DECL. Use --pretty for coloured output.

Exit codes: 64 usage, 65 syntax error, 70 runtime error, 74 I/O error.
`,

	"repl": `REPL

Run 'slox' with no arguments on a terminal. Each line runs in the same
global scope, so definitions persist. Errors are reported and the session
continues. History is kept in the configured history file. Tab completes
keywords and global names.
Type 'exit' or press Ctrl-D to quit.
`,

	"config": `Configuration

Settings are read from .slox.yaml in the current directory, else
~/.slox/config.yaml, else built-in defaults:

  prompt: "> "
  historyFile: .slox_history     # relative to the home directory
  logLevel: warn                 # debug, info, warn, error
  pretty: false
  haltOnSyntaxError: false
  stdlib: true
  maxCallDepth: 0                # 0 = unbounded

'slox config' prints the effective settings.
`,

	"examples": `Examples

  fun fib(n) {
    if (n < 2) return n;
    return fib(n - 1) + fib(n - 2);
  }
  print fib(20);

  fun makeCounter() {
    var i = 0;
    return fun () { i = i + 1; return i; };
  }
  var c = makeCounter();
  print c(); // 1
  print c(); // 2
`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", errors.Errorf("unknown help topic %q", query)
	case 1:
		return matches[0], Topics[matches[0]], nil
	default:
		return "", "", errors.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}

// StdlibIndex lists every builtin with its arity.
func StdlibIndex() string {
	reg := stdlib.Defaults()
	names := reg.Names()

	var b strings.Builder
	b.WriteString("Builtins\n\n")
	fmt.Fprintf(&b, "  %-8s arity 0  (always installed)\n", "clock")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-8s arity %d\n", name, reg.Get(name).Arity)
	}
	fmt.Fprintf(&b, "\nTotal: %d functions\n", len(names)+1)
	return b.String()
}
