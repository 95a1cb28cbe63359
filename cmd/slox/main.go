// Command slox is the slox CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/thomasrohde/slox/pkg/config"
	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/formatter"
	"github.com/thomasrohde/slox/pkg/help"
	"github.com/thomasrohde/slox/pkg/lexer"
	"github.com/thomasrohde/slox/pkg/runtime"
	"github.com/thomasrohde/slox/pkg/stdlib"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitUsage    = 64
	exitSyntax   = 65
	exitRuntime  = 70
	exitIOError  = 74
	exitInternal = 1
)

const usage = `usage: slox [script | command] [options]

commands:
  run <file> [--pretty] [--trace <out.jsonl>]   run a script
  repl                                          start an interactive session
  check <file> [--pretty|--json]                report errors without running
  fmt <file> [--write]                          print canonical source
  tokens <file>                                 dump the token stream
  trace <file.jsonl> [--json|--text]            summarise a trace file
  config                                        print effective settings
  help [topic] [--index]                        language reference
  version                                       print the version

global options:
  --log-level <debug|info|warn|error>
`

// cli holds the streams and settings shared by every command.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *log.Logger
	// interactive reports whether stdin is a terminal.
	interactive bool
}

func main() {
	c := &cli{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	os.Exit(c.main(os.Args[1:]))
}

func (c *cli) main(args []string) int {
	args, logLevel, err := extractLogLevel(args)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitUsage
	}

	if c.cfg == nil {
		cwd, _ := os.Getwd()
		cfg, err := config.Load(cwd)
		if err != nil {
			c.printDiags([]diagnostics.Diagnostic{
				diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), 0, ""),
			}, false)
			return exitUsage
		}
		c.cfg = cfg
	}
	if logLevel == "" {
		logLevel = c.cfg.LogLevel
	}
	c.logger = newLogger(c.stderr, logLevel)
	c.logger.Debug("config loaded", "path", c.cfg.Path)

	if len(args) == 0 {
		if c.interactive {
			return c.cmdRepl(nil)
		}
		return c.runSource(c.stdin, "<stdin>", false, "")
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "tokens":
		return c.cmdTokens(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	case "version", "--version":
		fmt.Fprintln(c.stdout, "slox", help.Version)
		return exitOK
	}

	if strings.HasPrefix(cmd, "-") || len(args) > 1 {
		fmt.Fprint(c.stderr, usage)
		return exitUsage
	}
	// slox <script>
	return c.cmdRun(args)
}

// extractLogLevel removes a global --log-level flag from args.
func extractLogLevel(args []string) ([]string, string, error) {
	var rest []string
	level := ""
	for i := 0; i < len(args); i++ {
		if args[i] == "--log-level" {
			if i+1 >= len(args) {
				return nil, "", errors.New("--log-level requires a value")
			}
			i++
			level = args[i]
			continue
		}
		rest = append(rest, args[i])
	}
	return rest, level, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "slox"})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func (c *cli) newRuntime(opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{
		runtime.WithStdout(c.stdout),
		runtime.WithLogger(c.logger),
		runtime.WithHaltOnSyntaxError(c.cfg.HaltOnSyntaxError),
		runtime.WithMaxDepth(c.cfg.MaxCallDepth),
	}
	if !c.cfg.Stdlib {
		base = append(base, runtime.WithStdlib(nil))
	} else {
		base = append(base, runtime.WithStdlib(stdlib.Defaults()))
	}
	return runtime.New(append(base, opts...)...)
}

func (c *cli) printDiags(diags []diagnostics.Diagnostic, pretty bool) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, pretty))
}

func (c *cli) ioError(format string, args ...any) int {
	diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf(format, args...), 0, "")
	c.printDiags([]diagnostics.Diagnostic{diag}, false)
	return exitIOError
}

// exitCodeFor maps a run result to the process exit status. A syntax error
// wins over a runtime error.
func exitCodeFor(res *runtime.Result) int {
	switch {
	case res.HadSyntaxError:
		return exitSyntax
	case res.HadRuntimeError:
		return exitRuntime
	default:
		return exitOK
	}
}

func (c *cli) cmdRun(args []string) int {
	var file string
	pretty := c.cfg.Pretty
	tracePath := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--trace":
			if i+1 >= len(args) {
				fmt.Fprintln(c.stderr, "usage: slox run <file> [--pretty] [--trace <out.jsonl>]")
				return exitUsage
			}
			i++
			tracePath = args[i]
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: slox run <file> [--pretty] [--trace <out.jsonl>]")
		return exitUsage
	}

	if file == "-" {
		return c.runSource(c.stdin, "<stdin>", pretty, tracePath)
	}
	f, err := os.Open(file)
	if err != nil {
		return c.ioError("cannot read file: %s", file)
	}
	defer f.Close()
	return c.runSource(f, file, pretty, tracePath)
}

func (c *cli) runSource(r io.Reader, filename string, pretty bool, tracePath string) int {
	data, err := io.ReadAll(r)
	if err != nil {
		return c.ioError("cannot read %s: %s", filename, err)
	}

	var opts []runtime.Option
	if tracePath != "" {
		tw, err := newTraceWriter(tracePath)
		if err != nil {
			return c.ioError("%s", err)
		}
		defer func() {
			if err := tw.Close(); err != nil {
				c.logger.Error("trace file", "error", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	rt := c.newRuntime(opts...)
	res := rt.Run(string(data), filename)
	c.printDiags(res.Diagnostics, pretty)
	return exitCodeFor(res)
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty := c.cfg.Pretty
	jsonOut := false

	for _, arg := range args {
		switch {
		case arg == "--pretty":
			pretty = true
		case arg == "--json":
			jsonOut = true
		case !strings.HasPrefix(arg, "-"):
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: slox check <file> [--pretty|--json]")
		return exitUsage
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return c.ioError("cannot read file: %s", file)
	}

	rt := c.newRuntime()
	diags := rt.Check(string(source), file)
	if jsonOut {
		fmt.Fprintln(c.stdout, diagnostics.FormatJSON(diags))
		if len(diags) > 0 {
			return exitSyntax
		}
		return exitOK
	}
	if len(diags) > 0 {
		c.printDiags(diags, pretty)
		return exitSyntax
	}

	if pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for _, arg := range args {
		switch {
		case arg == "--write":
			write = true
		case !strings.HasPrefix(arg, "-"):
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: slox fmt <file> [--write]")
		return exitUsage
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		return c.ioError("cannot read file: %s", file)
	}
	source := string(sourceBytes)

	rt := c.newRuntime()
	formatted, fmtErr := rt.Format(source, file)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			c.printDiags(diagErr.Diagnostics, false)
			return exitSyntax
		}
		fmt.Fprintln(c.stderr, fmtErr.Error())
		return exitInternal
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			return c.ioError("cannot write file: %s", file)
		}
		return exitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return exitOK
}

// cmdTokens prints one token per line in TYPE lexeme literal form.
func (c *cli) cmdTokens(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "usage: slox tokens <file>")
		return exitUsage
	}
	source, err := os.ReadFile(args[0])
	if err != nil {
		return c.ioError("cannot read file: %s", args[0])
	}

	tokens, diags := lexer.Tokenize(string(source))
	for _, tok := range tokens {
		fmt.Fprintln(c.stdout, tok.String())
	}
	if len(diags) > 0 {
		c.printDiags(diags, false)
		return exitSyntax
	}
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: slox config")
		return exitUsage
	}
	out, err := c.cfg.Marshal()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitInternal
	}
	source := c.cfg.Path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(c.stdout, "# source: %s\n%s", source, out)
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "stdlib" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the stdlib topic (slox help stdlib --index)")
			return exitUsage
		}
		fmt.Fprint(c.stdout, help.StdlibIndex())
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		fmt.Fprint(c.stdout, "\n"+usage)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}
