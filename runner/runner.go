package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/module"
)

// File is a script file to check.
type File struct {
	Root string // game or mod directory
	Path string // slash-separated, relative to Root
}

// Abs returns the file's path on disk.
func (f File) Abs() string { return filepath.Join(f.Root, filepath.FromSlash(f.Path)) }

// Runner checks script files and reports each one through a Handler.
type Runner struct {
	analyzer    *analysis.Analyzer
	handler     Handler
	failFast    bool
	include     *regexp.Regexp
	filter      *Filter
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithAnalyzer sets the analyzer files are checked with.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(r *Runner) {
		r.analyzer = a
	}
}

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithFailFast stops on the first failing file.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithInclude sets a regex pattern over relative paths; files that do not
// match are skipped.
func WithInclude(pattern string) Option {
	return func(r *Runner) {
		if pattern != "" {
			r.include = regexp.MustCompile(pattern)
		}
	}
}

// WithFilter drops the diagnostics that do not pass f.
func WithFilter(f *Filter) Option {
	return func(r *Runner) {
		r.filter = f
	}
}

// WithConcurrency sets how many files are checked at once. Zero uses
// GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}

	if r.concurrency <= 0 {
		r.concurrency = runtime.GOMAXPROCS(0)
	}

	return r
}

// Run checks files and returns the results. Handlers see the events of one
// file at a time, in the order workers finish them.
func (r *Runner) Run(ctx context.Context, files []File) (*Result, error) {
	if r.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	result := NewResult()

	handlers := []Handler{NewResultHandler()}
	if r.handler != nil {
		handlers = append(handlers, r.handler)
	}

	if r.failFast {
		handlers = append(handlers, NewStopOnFailHandler(1))
	}

	handler := &syncHandler{h: NewMultiHandler(handlers...)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil //nolint:nilerr // cancelled runs stop quietly
			}

			return r.check(ctx, f, handler, result)
		})
	}

	err := g.Wait()

	result.Finish()

	if errors.Is(err, ErrMaxFailures) {
		return result, nil
	}

	return result, err
}

func (r *Runner) check(ctx context.Context, f File, handler Handler, result *Result) error {
	start := time.Now()

	event := func(action Action) Event {
		return Event{Time: time.Now(), Action: action, Root: f.Root, Path: f.Path, Elapsed: time.Since(start)}
	}

	if r.include != nil && !r.include.MatchString(f.Path) {
		return handler.Event(ctx, event(ActionSkip), result)
	}

	if !r.analyzer.Game().Matches(f.Path) {
		return handler.Event(ctx, event(ActionSkip), result)
	}

	if err := handler.Event(ctx, Event{Time: start, Action: ActionRun, Root: f.Root, Path: f.Path}, result); err != nil {
		return err
	}

	data, err := os.ReadFile(f.Abs())
	if err != nil {
		e := event(ActionError)
		e.Error = err

		return handler.Event(ctx, e, result)
	}

	file := r.analyzer.Analyze(f.Path, data)

	diags, err := r.filter.Apply(f.Path, file.Diagnostics)
	if err != nil {
		return err
	}

	action := ActionPass
	if slices.ContainsFunc(diags, func(d analysis.Diagnostic) bool { return d.Severity == analysis.SeverityError }) {
		action = ActionFail
	}

	e := event(action)
	e.Diagnostics = diags

	return handler.Event(ctx, e, result)
}

// Collect expands paths into the script files below them. Each file's root
// is the nearest directory holding one of the game's marker files, else the
// directory given. Files named explicitly are kept even when the game would
// not load them, so that the run can report them as skipped.
func Collect(loader *module.Loader, paths ...string) ([]File, error) {
	var out []File

	seen := make(map[string]bool)
	add := func(f File) {
		if abs := f.Abs(); !seen[abs] {
			seen[abs] = true
			out = append(out, f)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			root, rel := loader.Split(abs)
			add(File{Root: root, Path: rel})

			continue
		}

		root, prefix := abs, ""
		if loader.Game != nil {
			if r, ok := loader.Game.DetectRoot(abs); ok {
				root = r

				prefix, err = filepath.Rel(root, abs)
				if err != nil {
					return nil, err
				}
			}
		}

		rels, err := discover(loader, abs, filepath.ToSlash(prefix))
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", p, err)
		}

		for _, rel := range rels {
			add(File{Root: root, Path: rel})
		}
	}

	return out, nil
}

// discover lists the script files below dir as paths under prefix.
func discover(loader *module.Loader, dir, prefix string) ([]string, error) {
	if prefix == "" || prefix == "." {
		return module.Discover(loader.Game, dir)
	}

	var out []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		rel = prefix + "/" + filepath.ToSlash(rel)
		if loader.Game == nil || loader.Game.Matches(rel) {
			out = append(out, rel)
		}

		return nil
	})

	return out, err
}
