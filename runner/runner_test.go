package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/runner"
	"github.com/rlch/cw/schema"
)

const rules = `types = {
	type[building] = {
		path = "game/common/buildings"
	}
}

building = {
	cost = int[0..100]
}
`

// recorder keeps every event it sees.
type recorder struct {
	events []runner.Event
}

func (r *recorder) Event(_ context.Context, event runner.Event, _ *runner.Result) error {
	r.events = append(r.events, event)

	return nil
}

func (r *recorder) Err(string) error { return nil }

func testAnalyzer(t *testing.T) *analysis.Analyzer {
	t.Helper()

	f, err := cwt.ParseString("rules.cwt", rules)
	require.NoError(t, err)

	return analysis.NewAnalyzer(cw.Stellaris, schema.Analyze(f), nil)
}

// testMod writes files below a fresh mod root and returns the root.
func testMod(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	files["descriptor.mod"] = `name = "test"`

	for rel, src := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o600))
	}

	return root
}

func TestRunner_NoAnalyzer(t *testing.T) {
	t.Parallel()

	_, err := runner.New().Run(context.Background(), nil)
	require.ErrorIs(t, err, runner.ErrNoAnalyzer)
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	root := testMod(t, map[string]string{
		"common/buildings/good.txt": "b = { cost = 5 }\n",
		"common/buildings/bad.txt":  "b = { cost = 500 }\n",
		"common/buildings/notes.md": "not a script\n",
	})

	files := []runner.File{
		{Root: root, Path: "common/buildings/good.txt"},
		{Root: root, Path: "common/buildings/bad.txt"},
		{Root: root, Path: "common/buildings/notes.md"},
		{Root: root, Path: "common/buildings/missing.txt"},
	}

	handler := &recorder{}

	result, err := runner.New(
		runner.WithAnalyzer(testAnalyzer(t)),
		runner.WithHandler(handler),
	).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 2, result.ExitCode())

	bad := result.Files[runner.Event{Root: root, Path: "common/buildings/bad.txt"}.Key()]
	require.NotNil(t, bad)
	require.Len(t, bad.Diagnostics, 1)
	assert.Equal(t, analysis.CodeTypeMismatch, bad.Diagnostics[0].Code)

	missing := result.Files[runner.Event{Root: root, Path: "common/buildings/missing.txt"}.Key()]
	require.NotNil(t, missing)
	assert.Equal(t, runner.ActionError, missing.Action)
	require.ErrorIs(t, missing.Error, os.ErrNotExist)

	// Every file that is read gets a run event before its outcome.
	runs := 0

	for _, e := range handler.events {
		if e.Action == runner.ActionRun {
			runs++
		}
	}

	assert.Equal(t, 3, runs)
	assert.Len(t, handler.events, 7)
}

func TestRunner_FailFast(t *testing.T) {
	t.Parallel()

	root := testMod(t, map[string]string{
		"common/buildings/a.txt": "a = { cost = 500 }\n",
		"common/buildings/b.txt": "b = { cost = 500 }\n",
		"common/buildings/c.txt": "c = { cost = 500 }\n",
	})

	files := []runner.File{
		{Root: root, Path: "common/buildings/a.txt"},
		{Root: root, Path: "common/buildings/b.txt"},
		{Root: root, Path: "common/buildings/c.txt"},
	}

	result, err := runner.New(
		runner.WithAnalyzer(testAnalyzer(t)),
		runner.WithFailFast(true),
		runner.WithConcurrency(1),
	).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.ExitCode())
}

func TestRunner_Include(t *testing.T) {
	t.Parallel()

	root := testMod(t, map[string]string{
		"common/buildings/a.txt": "a = { cost = 500 }\n",
		"events/e.txt":           "namespace = test\n",
	})

	result, err := runner.New(
		runner.WithAnalyzer(testAnalyzer(t)),
		runner.WithInclude(`^events/`),
	).Run(context.Background(), []runner.File{
		{Root: root, Path: "common/buildings/a.txt"},
		{Root: root, Path: "events/e.txt"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Passed)
	assert.True(t, result.Ok())
}

func TestRunner_Filter(t *testing.T) {
	t.Parallel()

	root := testMod(t, map[string]string{
		"common/buildings/a.txt": "a = { cost = 500 }\n",
	})

	filter, err := runner.CompileFilter(`code != "type-mismatch"`)
	require.NoError(t, err)

	result, err := runner.New(
		runner.WithAnalyzer(testAnalyzer(t)),
		runner.WithFilter(filter),
	).Run(context.Background(), []runner.File{{Root: root, Path: "common/buildings/a.txt"}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Zero(t, result.ErrorCount)
}

func TestRunner_Concurrency(t *testing.T) {
	t.Parallel()

	src := make(map[string]string)

	var files []runner.File

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		rel := "common/buildings/" + name + ".txt"
		src[rel] = name + " = { cost = 1 }\n"
		files = append(files, runner.File{Path: rel})
	}

	root := testMod(t, src)
	for i := range files {
		files[i].Root = root
	}

	result, err := runner.New(
		runner.WithAnalyzer(testAnalyzer(t)),
		runner.WithConcurrency(4),
	).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Passed)

	ordered := result.Ordered()
	require.Len(t, ordered, 8)
	assert.Equal(t, "common/buildings/a.txt", ordered[0].Path)
	assert.Equal(t, "common/buildings/h.txt", ordered[7].Path)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	root := testMod(t, map[string]string{
		"common/buildings/a.txt": "",
		"common/traits/t.txt":    "",
		"events/e.txt":           "",
		"readme.txt":             "",
		".git/config.txt":        "",
	})

	loader := module.NewLoader(cw.Stellaris)

	t.Run("root", func(t *testing.T) {
		t.Parallel()

		files, err := runner.Collect(loader, root)
		require.NoError(t, err)

		var rels []string

		for _, f := range files {
			assert.Equal(t, root, f.Root)
			rels = append(rels, f.Path)
		}

		assert.ElementsMatch(t, []string{"common/buildings/a.txt", "common/traits/t.txt", "events/e.txt"}, rels)
	})

	t.Run("subdirectory keeps the mod root", func(t *testing.T) {
		t.Parallel()

		files, err := runner.Collect(loader, filepath.Join(root, "common"))
		require.NoError(t, err)
		require.Len(t, files, 2)

		for _, f := range files {
			assert.Equal(t, root, f.Root)
			assert.Contains(t, []string{"common/buildings/a.txt", "common/traits/t.txt"}, f.Path)
		}
	})

	t.Run("file named twice", func(t *testing.T) {
		t.Parallel()

		p := filepath.Join(root, "events", "e.txt")

		files, err := runner.Collect(loader, p, p)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, runner.File{Root: root, Path: "events/e.txt"}, files[0])
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()

		_, err := runner.Collect(loader, filepath.Join(root, "nope"))
		require.Error(t, err)
	})
}
