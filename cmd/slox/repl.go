package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/thomasrohde/slox/pkg/diagnostics"
	"github.com/thomasrohde/slox/pkg/help"
	"github.com/thomasrohde/slox/pkg/lexer"
	"github.com/thomasrohde/slox/pkg/parser"
	"github.com/thomasrohde/slox/pkg/runtime"
)

const promptCont = "... "

// lineReader is the part of *liner.State the REPL loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// plainReader serves piped input line by line without echoing prompts.
type plainReader struct {
	scanner *bufio.Scanner
}

func (r *plainReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (c *cli) cmdRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: slox repl")
		return exitUsage
	}
	rt := c.newRuntime()
	if !c.interactive {
		return c.repl(rt, &plainReader{scanner: bufio.NewScanner(c.stdin)}, func(string) {})
	}

	fmt.Fprintf(c.stdout, "slox %s (type 'exit' or Ctrl-D to quit)\n", help.Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer(rt))

	histPath := c.cfg.ResolveHistoryFile()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				c.logger.Warn("cannot save history", "path", histPath, "error", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	return c.repl(rt, ln, ln.AppendHistory)
}

// completer offers keywords and global names for the word before the
// cursor.
func completer(rt *runtime.Runtime) liner.Completer {
	return func(line string) []string {
		start := len(line)
		for start > 0 && isWordByte(line[start-1]) {
			start--
		}
		prefix := line[start:]
		if prefix == "" {
			return nil
		}

		var out []string
		seen := make(map[string]bool)
		for _, words := range [][]string{lexer.Keywords(), rt.GlobalNames()} {
			for _, w := range words {
				if strings.HasPrefix(w, prefix) && !seen[w] {
					seen[w] = true
					out = append(out, line[:start]+w)
				}
			}
		}
		return out
	}
}

func isWordByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// repl runs each submitted entry in rt. Errors are reported and the
// session continues.
func (c *cli) repl(rt *runtime.Runtime, in lineReader, remember func(string)) int {
	for {
		src, ok := readEntry(in, c.cfg.Prompt, promptCont)
		if !ok {
			if c.interactive {
				fmt.Fprintln(c.stdout)
			}
			return exitOK
		}

		trimmed := strings.TrimSpace(src)
		switch trimmed {
		case "":
			continue
		case "exit", "quit":
			return exitOK
		}

		remember(strings.ReplaceAll(src, "\n", " "))
		res := rt.Run(src, "repl")
		c.printDiags(res.Diagnostics, c.cfg.Pretty)
	}
}

// readEntry collects lines until they form a complete entry. A blank
// continuation line submits whatever has been typed. exit and quit on a
// fresh entry are returned as is. ok is false on EOF.
func readEntry(in lineReader, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := in.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the pending entry.
			b.Reset()
			continue
		}
		if err != nil {
			if b.Len() > 0 && errors.Is(err, io.EOF) {
				return b.String(), true
			}
			return "", false
		}

		trimmed := strings.TrimSpace(line)
		if b.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			return trimmed, true
		}
		if b.Len() > 0 && trimmed == "" {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !isIncomplete(b.String()) {
			return b.String(), true
		}
	}
}

// isIncomplete reports whether src only fails because input ended early:
// an unterminated string, or parse errors that all sit at end of input.
func isIncomplete(src string) bool {
	tokens, scanDiags := lexer.Tokenize(src)
	for _, d := range scanDiags {
		if d.Message == "Unterminated string." {
			return true
		}
	}
	if len(scanDiags) > 0 {
		return false
	}

	_, parseDiags := parser.ParseTokens(tokens)
	if len(parseDiags) == 0 {
		return false
	}
	for _, d := range parseDiags {
		if d.Where != diagnostics.AtEnd() {
			return false
		}
	}
	return true
}
