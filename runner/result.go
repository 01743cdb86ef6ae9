package runner

import (
	"slices"
	"time"

	"github.com/rlch/cw/analysis"
)

// FileResult is the outcome of checking one file.
type FileResult struct {
	Root        string
	Path        string
	Action      Action
	Elapsed     time.Duration
	Diagnostics []analysis.Diagnostic
	Error       error
}

// Result accumulates the outcome of a run.
type Result struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int

	// ErrorCount and WarningCount tally diagnostics across files.
	ErrorCount   int
	WarningCount int

	Files map[string]*FileResult
	order []string

	start time.Time
	end   time.Time
}

// NewResult starts a result clock.
func NewResult() *Result {
	return &Result{
		Files: make(map[string]*FileResult),
		start: time.Now(),
	}
}

// Add records a terminal event; other events are ignored.
func (r *Result) Add(e Event) {
	if !e.Action.IsTerminal() {
		return
	}

	key := e.Key()
	if _, seen := r.Files[key]; !seen {
		r.order = append(r.order, key)
		r.Total++
	}

	r.Files[key] = &FileResult{
		Root:        e.Root,
		Path:        e.Path,
		Action:      e.Action,
		Elapsed:     e.Elapsed,
		Diagnostics: e.Diagnostics,
		Error:       e.Error,
	}

	switch e.Action {
	case ActionPass:
		r.Passed++
	case ActionFail:
		r.Failed++
	case ActionSkip:
		r.Skipped++
	case ActionError:
		r.Errors++
	case ActionRun:
	}

	r.ErrorCount += e.Count(analysis.SeverityError)
	r.WarningCount += e.Count(analysis.SeverityWarning)
}

// Finish stops the clock.
func (r *Result) Finish() {
	if r.end.IsZero() {
		r.end = time.Now()
	}
}

// Elapsed returns the run time, fixed once Finish is called.
func (r *Result) Elapsed() time.Duration {
	if r.end.IsZero() {
		return time.Since(r.start)
	}

	return r.end.Sub(r.start)
}

// Ok reports whether no file failed or errored.
func (r *Result) Ok() bool { return r.Failed == 0 && r.Errors == 0 }

// ExitCode maps the result onto the CLI's exit codes: 2 when a file could
// not be read, 1 when any error diagnostic was found.
func (r *Result) ExitCode() int {
	switch {
	case r.Errors > 0:
		return 2
	case r.Failed > 0:
		return 1
	default:
		return 0
	}
}

// FailedFiles returns failed and errored files in the order they finished.
func (r *Result) FailedFiles() []*FileResult {
	var out []*FileResult

	for _, key := range r.order {
		if f := r.Files[key]; f.Action == ActionFail || f.Action == ActionError {
			out = append(out, f)
		}
	}

	return out
}

// Ordered returns every file result sorted by root and path.
func (r *Result) Ordered() []*FileResult {
	out := make([]*FileResult, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f)
	}

	slices.SortFunc(out, func(a, b *FileResult) int {
		if a.Root != b.Root {
			if a.Root < b.Root {
				return -1
			}

			return 1
		}

		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}

		return 0
	})

	return out
}
