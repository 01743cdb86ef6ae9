package runner

import (
	"time"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/module"
)

// Action is what happened to a file during a check run.
type Action string

// Actions reported by the runner.
const (
	ActionRun   Action = "run"
	ActionPass  Action = "passed"
	ActionFail  Action = "failed"
	ActionSkip  Action = "skipped"
	ActionError Action = "error"
)

// IsTerminal reports whether the action finishes a file.
func (a Action) IsTerminal() bool {
	switch a {
	case ActionPass, ActionFail, ActionSkip, ActionError:
		return true
	case ActionRun:
		return false
	}

	return false
}

// Event describes progress on one file.
type Event struct {
	Time   time.Time
	Action Action

	// Root is the game or mod directory the file belongs to; Path is
	// slash-separated and relative to it.
	Root string
	Path string

	Elapsed     time.Duration
	Diagnostics []analysis.Diagnostic
	Error       error
}

// Key identifies the file across roots.
func (e Event) Key() string { return e.Root + "::" + e.Path }

// Namespace returns the directory of the file's entities.
func (e Event) Namespace() string { return module.NamespaceOf(e.Path) }

// Count returns the number of diagnostics of severity sev.
func (e Event) Count(sev analysis.DiagnosticSeverity) int {
	n := 0

	for _, d := range e.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}

	return n
}
