package runner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/module"
)

// DiagnosticEnv is what a filter expression sees of a diagnostic, for
// example `severity == "error" && code != "unknown-key"` or
// `namespace startsWith "common/"`.
type DiagnosticEnv struct {
	Code      string `expr:"code"`
	Severity  string `expr:"severity"`
	Message   string `expr:"message"`
	Path      string `expr:"path"`
	Namespace string `expr:"namespace"`
	Line      int    `expr:"line"`
}

// Filter selects the diagnostics a run reports.
type Filter struct {
	src     string
	program *vm.Program
}

// CompileFilter compiles a boolean expression over DiagnosticEnv. An empty
// expression keeps everything.
func CompileFilter(src string) (*Filter, error) {
	if strings.TrimSpace(src) == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(src, expr.Env(DiagnosticEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", src, err)
	}

	return &Filter{src: src, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.src }

// Match reports whether d, found in the file at rel, passes the filter.
func (f *Filter) Match(rel string, d analysis.Diagnostic) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	env := DiagnosticEnv{
		Code:      d.Code,
		Severity:  severityName(d.Severity),
		Message:   d.Message,
		Path:      rel,
		Namespace: module.NamespaceOf(rel),
		Line:      d.Span.Start.Line,
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.src, err)
	}

	keep, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrFilterNotBool, f.src, out)
	}

	return keep, nil
}

// Apply returns the diagnostics of rel that pass the filter.
func (f *Filter) Apply(rel string, diags []analysis.Diagnostic) ([]analysis.Diagnostic, error) {
	if f == nil || f.program == nil {
		return diags, nil
	}

	out := diags[:0:0]

	for _, d := range diags {
		keep, err := f.Match(rel, d)
		if err != nil {
			return nil, err
		}

		if keep {
			out = append(out, d)
		}
	}

	return out, nil
}

func severityName(s analysis.DiagnosticSeverity) string {
	switch s {
	case analysis.SeverityError:
		return "error"
	case analysis.SeverityWarning:
		return "warning"
	case analysis.SeverityInformation:
		return "info"
	case analysis.SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}
