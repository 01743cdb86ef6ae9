//nolint:testpackage // Tests need access to internal types
package runner

import (
	"errors"
	"strings"
	"testing"

	"github.com/rlch/cw/analysis"
)

func TestBuildCheckTrees(t *testing.T) {
	trees := BuildCheckTrees([]File{
		{Root: "/game", Path: "common/traits/t.txt"},
		{Root: "/game", Path: "common/buildings/b.txt"},
		{Root: "/mod", Path: "events/e.txt"},
		{Root: "/game", Path: "common/buildings/c.txt"},
	})

	if len(trees) != 2 {
		t.Fatalf("got %d trees, want 2", len(trees))
	}

	game := trees[0]
	if game.root != "/game" || len(game.namespaces) != 2 {
		t.Fatalf("unexpected game tree %+v", game)
	}

	if game.namespaces[0].name != "common/buildings" || len(game.namespaces[0].files) != 2 {
		t.Errorf("namespaces not sorted or grouped: %s", game.namespaces[0].name)
	}

	if _, ok := trees[1].idx[Event{Root: "/mod", Path: "events/e.txt"}.Key()]; !ok {
		t.Error("file not indexed by event key")
	}
}

func TestTUIModel_HandleEvent(t *testing.T) {
	m := newTUIModel(BuildCheckTrees([]File{
		{Root: "/game", Path: "common/buildings/a.txt"},
		{Root: "/game", Path: "common/buildings/b.txt"},
		{Root: "/game", Path: "common/buildings/c.txt"},
		{Root: "/game", Path: "events/e.txt"},
	}))

	if m.tally.total != 4 {
		t.Fatalf("total = %d, want 4", m.tally.total)
	}

	ns := m.trees[0].namespaces[0]

	m.handleEvent(Event{Action: ActionRun, Root: "/game", Path: "common/buildings/a.txt"})

	if ns.status() != statusRunning {
		t.Error("namespace with a running file should be running")
	}

	m.handleEvent(Event{Action: ActionPass, Root: "/game", Path: "common/buildings/a.txt"})
	m.handleEvent(Event{Action: ActionPass, Root: "/game", Path: "common/buildings/b.txt", Diagnostics: []analysis.Diagnostic{
		{Severity: analysis.SeverityWarning, Message: "careful"},
	}})
	m.handleEvent(Event{Action: ActionPass, Root: "/game", Path: "common/buildings/c.txt"})

	if got := ns.status(); got != statusWarn {
		t.Errorf("namespace status = %v, want warn", got)
	}

	m.handleEvent(Event{Action: ActionError, Root: "/game", Path: "events/e.txt", Error: errors.New("permission denied")})
	m.handleEvent(Event{Action: ActionPass, Root: "/game", Path: "unknown.txt"})

	if m.tally.passed != 3 || m.tally.warned != 1 || m.tally.errors != 1 {
		t.Errorf("tally = %+v", m.tally)
	}

	m.result = &Result{}

	view := m.FinalView()
	for _, want := range []string{"FAIL", "common/buildings", "3/3", "b.txt", "careful", "permission denied", "3 passed"} {
		if !strings.Contains(view, want) {
			t.Errorf("final view missing %q:\n%s", want, view)
		}
	}

	if strings.Contains(view, "a.txt") {
		t.Error("clean files should not be listed")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]string{
		"<1ms":  formatDuration(0),
		"250ms": formatDuration(250_000_000),
		"1.5s":  formatDuration(1_500_000_000),
		"2m5s":  formatDuration(125_000_000_000),
	}

	for want, got := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
