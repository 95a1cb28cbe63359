package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thomasrohde/slox/pkg/evaluator"
)

// traceWriter appends trace events to a file as NDJSON.
type traceWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create trace file %s", path)
	}
	buf := bufio.NewWriter(f)
	return &traceWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write records one event. The first encoding error is kept and returned
// by Close.
func (w *traceWriter) Write(ev evaluator.TraceEvent) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(ev)
}

func (w *traceWriter) Close() error {
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	switch {
	case w.err != nil:
		return errors.Wrap(w.err, "write trace")
	case flushErr != nil:
		return errors.Wrap(flushErr, "flush trace")
	case closeErr != nil:
		return errors.Wrap(closeErr, "close trace")
	}
	return nil
}

// TraceSummary aggregates one trace file.
type TraceSummary struct {
	RunID         string         `json:"runId"`
	TotalEvents   int            `json:"totalEvents"`
	Runs          int            `json:"runs"`
	Calls         int            `json:"calls"`
	CallsByName   map[string]int `json:"callsByName"`
	RuntimeErrors int            `json:"runtimeErrors"`
	ErrorCodes    map[string]int `json:"errorCodes,omitempty"`
	StartTime     string         `json:"startTime,omitempty"`
	EndTime       string         `json:"endTime,omitempty"`
	DurationMs    float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			summary.Runs++
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceCallStart:
			summary.Calls++
			name := event.Data["fn"]
			if name == "" {
				name = "<fn>"
			}
			summary.CallsByName[name]++
		case evaluator.TraceRuntimeError:
			summary.RuntimeErrors++
			if code := event.Data["code"]; code != "" {
				if summary.ErrorCodes == nil {
					summary.ErrorCodes = make(map[string]int)
				}
				summary.ErrorCodes[code]++
			}
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d\n", s.Calls)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	fmt.Fprintf(w, "Runtime errors: %d\n", s.RuntimeErrors)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for _, arg := range args {
		switch {
		case arg == "--json":
			textOutput = false
		case arg == "--text":
			textOutput = true
		case !strings.HasPrefix(arg, "-"):
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: slox trace <file.jsonl> [--json|--text]")
		return exitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		return c.ioError("cannot read file: %s", file)
	}
	defer f.Close()

	summary := computeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(c.stdout, summary)
		return exitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(c.stdout, string(b))
	return exitOK
}
