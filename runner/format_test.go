//nolint:testpackage // Tests need access to internal types
package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
)

func diag(line, col int, sev analysis.DiagnosticSeverity, code, msg string) analysis.Diagnostic {
	return analysis.Diagnostic{
		Span: cw.Span{
			Start: lexer.Position{Line: line, Column: col},
			End:   lexer.Position{Line: line, Column: col + 3},
		},
		Severity: sev,
		Code:     code,
		Message:  msg,
	}
}

func TestTextFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	f := NewTextFormatter(&buf)

	_ = f.Format(Event{Action: ActionRun, Path: "common/buildings/b.txt"}, nil)
	_ = f.Format(Event{Action: ActionPass, Path: "common/buildings/a.txt"}, nil)

	if buf.Len() != 0 {
		t.Errorf("clean files should print nothing, got %q", buf.String())
	}

	_ = f.Format(Event{Action: ActionFail, Path: "common/buildings/b.txt", Diagnostics: []analysis.Diagnostic{
		diag(3, 9, analysis.SeverityError, analysis.CodeTypeMismatch, "expected int[0..100], got '500'"),
		diag(4, 2, analysis.SeverityWarning, "", "unused"),
	}}, nil)

	want := "common/buildings/b.txt\n" +
		"  3:9      error    expected int[0..100], got '500'  type-mismatch\n" +
		"  4:2      warning  unused\n" +
		"\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	buf.Reset()

	_ = f.Format(Event{Action: ActionError, Path: "common/c.txt", Error: errors.New("permission denied")}, nil)

	if got, want := buf.String(), "common/c.txt\n  error  permission denied\n\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer

	f := NewTextFormatter(&buf)
	f.Verbose = true

	_ = f.Format(Event{Action: ActionPass, Path: "a.txt", Elapsed: 10 * time.Millisecond}, nil)
	_ = f.Format(Event{Action: ActionSkip, Path: "readme.md"}, nil)

	if got, want := buf.String(), "a.txt  ok (10ms)\nreadme.md  skipped\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextFormatter_Summary(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   string
	}{
		{
			name:   "clean",
			events: []Event{{Action: ActionPass, Path: "a.txt"}, {Action: ActionPass, Path: "b.txt"}},
			want:   "2 files checked, no problems",
		},
		{
			name: "problems",
			events: []Event{
				{Action: ActionFail, Path: "a.txt", Diagnostics: []analysis.Diagnostic{
					diag(1, 1, analysis.SeverityError, "", "x"),
					diag(2, 1, analysis.SeverityError, "", "y"),
				}},
				{Action: ActionPass, Path: "b.txt", Diagnostics: []analysis.Diagnostic{diag(1, 1, analysis.SeverityWarning, "", "z")}},
				{Action: ActionPass, Path: "c.txt"},
				{Action: ActionSkip, Path: "d.md"},
			},
			want: "2 errors, 1 warning in 2 of 3 files",
		},
		{
			name:   "unreadable",
			events: []Event{{Action: ActionError, Path: "a.txt", Error: errors.New("gone")}},
			want:   "0 errors, 0 warnings in 1 of 1 file (1 unreadable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			result := NewResult()
			for _, e := range tt.events {
				result.Add(e)
			}

			result.Finish()

			_ = NewTextFormatter(&buf).Summary(result)

			if got := buf.String(); !strings.HasPrefix(got, tt.want+" [") {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	f := NewJSONFormatter(&buf)

	fixedTime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	_ = f.Format(Event{Action: ActionRun, Path: "common/buildings/b.txt"}, nil)
	_ = f.Format(Event{
		Time:    fixedTime,
		Action:  ActionFail,
		Root:    "/mod",
		Path:    "common/buildings/b.txt",
		Elapsed: 50 * time.Millisecond,
		Diagnostics: []analysis.Diagnostic{
			diag(3, 9, analysis.SeverityError, analysis.CodeTypeMismatch, "bad"),
		},
	}, nil)

	var got struct {
		Action      string `json:"action"`
		Path        string `json:"path"`
		Namespace   string `json:"namespace"`
		Diagnostics []struct {
			Line      int    `json:"line"`
			EndColumn int    `json:"endColumn"`
			Severity  string `json:"severity"`
			Code      string `json:"code"`
		} `json:"diagnostics"`
	}

	err := json.Unmarshal(buf.Bytes(), &got)
	if err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got.Action != "failed" || got.Namespace != "common/buildings" {
		t.Errorf("got %+v", got)
	}

	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Line != 3 || got.Diagnostics[0].EndColumn != 12 ||
		got.Diagnostics[0].Severity != "error" || got.Diagnostics[0].Code != analysis.CodeTypeMismatch {
		t.Errorf("diagnostics = %+v", got.Diagnostics)
	}
}

func TestJSONFormatter_Summary(t *testing.T) {
	var buf bytes.Buffer

	f := NewJSONFormatter(&buf)

	result := NewResult()
	result.Add(Event{Action: ActionPass, Path: "a.txt"})
	result.Add(Event{Action: ActionFail, Path: "b.txt"})
	result.Finish()

	_ = f.Summary(result)

	var got map[string]any

	err := json.Unmarshal(buf.Bytes(), &got)
	if err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got["action"] != "summary" {
		t.Errorf("action = %v, want summary", got["action"])
	}

	total, ok := got["total"].(float64)
	if !ok || total != 2 {
		t.Errorf("total = %v, want 2", got["total"])
	}

	okVal, ok := got["ok"].(bool)
	if !ok || okVal {
		t.Errorf("ok = %v, want false", got["ok"])
	}
}
