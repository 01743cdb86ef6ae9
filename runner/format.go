package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// TextFormatter prints problems grouped by file, one line per diagnostic,
// and a one-line summary. Clean files print nothing unless Verbose is set.
type TextFormatter struct {
	w       io.Writer
	Verbose bool
}

// NewTextFormatter writes to w.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{w: w}
}

// Format prints the diagnostics of a finished file.
func (f *TextFormatter) Format(event Event, _ *Result) error {
	if !event.Action.IsTerminal() {
		return nil
	}

	switch event.Action {
	case ActionError:
		_, err := fmt.Fprintf(f.w, "%s\n  error  %v\n\n", event.Path, event.Error)

		return err
	case ActionSkip:
		if f.Verbose {
			_, err := fmt.Fprintf(f.w, "%s  skipped\n", event.Path)

			return err
		}

		return nil
	case ActionPass, ActionFail, ActionRun:
	}

	if len(event.Diagnostics) == 0 {
		if f.Verbose {
			_, err := fmt.Fprintf(f.w, "%s  ok (%s)\n", event.Path, formatDuration(event.Elapsed))

			return err
		}

		return nil
	}

	var b strings.Builder

	b.WriteString(event.Path)
	b.WriteString("\n")

	for _, d := range event.Diagnostics {
		pos := fmt.Sprintf("%d:%d", d.Span.Start.Line, d.Span.Start.Column)
		fmt.Fprintf(&b, "  %-8s %-8s %s", pos, severityName(d.Severity), d.Message)

		if d.Code != "" {
			fmt.Fprintf(&b, "  %s", d.Code)
		}

		b.WriteString("\n")
	}

	b.WriteString("\n")

	_, err := io.WriteString(f.w, b.String())

	return err
}

// Summary prints the totals.
func (f *TextFormatter) Summary(result *Result) error {
	var b strings.Builder

	switch {
	case result.ErrorCount == 0 && result.WarningCount == 0 && result.Errors == 0:
		fmt.Fprintf(&b, "%s checked, no problems", plural(result.Total-result.Skipped, "file"))
	default:
		fmt.Fprintf(&b, "%s, %s in %d of %s",
			plural(result.ErrorCount, "error"),
			plural(result.WarningCount, "warning"),
			result.Failed+result.Errors+warnedOnly(result),
			plural(result.Total-result.Skipped, "file"),
		)
	}

	if result.Errors > 0 {
		fmt.Fprintf(&b, " (%d unreadable)", result.Errors)
	}

	fmt.Fprintf(&b, " [%s]\n", formatDuration(result.Elapsed()))

	_, err := io.WriteString(f.w, b.String())

	return err
}

// warnedOnly counts passing files that still carry diagnostics.
func warnedOnly(result *Result) int {
	n := 0

	for _, fr := range result.Files {
		if fr.Action == ActionPass && len(fr.Diagnostics) > 0 {
			n++
		}
	}

	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}

// JSONFormatter writes one JSON object per finished file and a summary
// object, for editors and CI.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter writes to w.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonDiagnostic struct {
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Severity  string `json:"severity"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
}

type jsonEvent struct {
	Time        time.Time        `json:"time"`
	Action      Action           `json:"action"`
	Root        string           `json:"root"`
	Path        string           `json:"path"`
	Namespace   string           `json:"namespace"`
	Elapsed     float64          `json:"elapsed"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Format writes a finished file.
func (f *JSONFormatter) Format(event Event, _ *Result) error {
	if !event.Action.IsTerminal() {
		return nil
	}

	out := jsonEvent{
		Time:      event.Time,
		Action:    event.Action,
		Root:      event.Root,
		Path:      event.Path,
		Namespace: event.Namespace(),
		Elapsed:   event.Elapsed.Seconds(),
	}

	if event.Error != nil {
		out.Error = event.Error.Error()
	}

	for _, d := range event.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, jsonDiagnostic{
			Line:      d.Span.Start.Line,
			Column:    d.Span.Start.Column,
			EndLine:   d.Span.End.Line,
			EndColumn: d.Span.End.Column,
			Severity:  severityName(d.Severity),
			Code:      d.Code,
			Message:   d.Message,
		})
	}

	return f.enc.Encode(out)
}

// Summary writes the totals.
func (f *JSONFormatter) Summary(result *Result) error {
	return f.enc.Encode(map[string]any{
		"action":   "summary",
		"ok":       result.Ok(),
		"total":    result.Total,
		"passed":   result.Passed,
		"failed":   result.Failed,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
		"problems": map[string]int{"error": result.ErrorCount, "warning": result.WarningCount},
		"elapsed":  result.Elapsed().Seconds(),
	})
}

