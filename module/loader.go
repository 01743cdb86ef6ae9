// Package module loads script files from game and mod directories into
// model modules.
package module

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rlch/cw"
	"github.com/rlch/cw/model"
)

// Errors wrapped by LoadError.
var (
	ErrNotScript = errors.New("not a script file")
	ErrParse     = errors.New("parse error")
)

// LoadError reports a file that could not be loaded. Path is slash
// separated and relative to Root, like model.Module.Path.
type LoadError struct {
	Root  string
	Path  string
	Cause error
}

// File returns the file's path on disk.
func (e *LoadError) File() string { return filepath.Join(e.Root, filepath.FromSlash(e.Path)) }

func (e *LoadError) Error() string { return e.File() + ": " + e.Cause.Error() }

func (e *LoadError) Unwrap() error { return e.Cause }

// ParseError returns the script parse error behind e, if any.
func (e *LoadError) ParseError() (*cw.ParseError, bool) {
	var pe *cw.ParseError
	ok := errors.As(e.Cause, &pe)

	return pe, ok
}

// Loader reads and parses script files, caching modules by absolute path.
// It is safe for concurrent use.
type Loader struct {
	Game *cw.Game

	// Parser parses a file. Defaults to cw.ParseFile but can be overridden
	// for testing.
	Parser func(filename string, data []byte) (*cw.Module, error)

	mu    sync.Mutex
	cache map[string]*model.Module
}

// NewLoader creates a loader for game's files.
func NewLoader(game *cw.Game) *Loader {
	return &Loader{
		Game:   game,
		Parser: cw.ParseFile,
		cache:  make(map[string]*model.Module),
	}
}

// Load loads the file at rel (slash separated) under root. Cached modules
// are returned as is.
func (l *Loader) Load(root, rel string) (*model.Module, error) {
	rel = filepath.ToSlash(rel)
	abs := filepath.Join(root, filepath.FromSlash(rel))

	l.mu.Lock()
	mod, ok := l.cache[abs]
	l.mu.Unlock()

	if ok {
		return mod, nil
	}

	if l.Game != nil && !l.Game.Matches(rel) {
		return nil, &LoadError{Root: root, Path: rel, Cause: ErrNotScript}
	}

	data, err := os.ReadFile(abs) //nolint:gosec // G304: paths come from directory walks
	if err != nil {
		return nil, &LoadError{Root: root, Path: rel, Cause: err}
	}

	mod, err = l.Parse(rel, data)
	if err != nil {
		return nil, &LoadError{Root: root, Path: rel, Cause: err}
	}

	l.mu.Lock()
	l.cache[abs] = mod
	l.mu.Unlock()

	return mod, nil
}

// LoadPath loads a file by path, finding its root from the game's marker
// files. Without a marker the file's directory is the root.
func (l *Loader) LoadPath(p string) (*model.Module, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, &LoadError{Path: p, Cause: err}
	}

	root, rel := l.Split(abs)

	return l.Load(root, rel)
}

// Split divides an absolute path into its root and the slash-separated path
// below it.
func (l *Loader) Split(abs string) (root, rel string) {
	root = filepath.Dir(abs)

	if l.Game != nil {
		if r, ok := l.Game.DetectRoot(filepath.Dir(abs)); ok {
			root = r
		}
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.Dir(abs), filepath.Base(abs)
	}

	return root, filepath.ToSlash(rel)
}

// Parse parses data as the file at rel without touching the cache. Editors
// use it for unsaved buffers.
func (l *Loader) Parse(rel string, data []byte) (*model.Module, error) {
	ast, err := l.Parser(rel, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return model.NewModule(rel, NamespaceOf(rel), ast), nil
}

// Invalidate drops a cached module.
func (l *Loader) Invalidate(abs string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.cache, abs)
}

// Clear clears the module cache.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*model.Module)
}

// Cached returns all cached modules.
func (l *Loader) Cached() map[string]*model.Module {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]*model.Module, len(l.cache))
	maps.Copy(result, l.cache)

	return result
}

// Discover lists the script files of game under root as slash-separated
// relative paths, sorted.
func Discover(game *cw.Game, root string) ([]string, error) {
	var out []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		if game == nil || game.Matches(rel) {
			out = append(out, rel)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(out)

	return out, nil
}

// NamespaceOf returns the namespace of a file: its directory relative to the
// root, with a leading game/ stripped. Everything from the last common
// directory on is kept, so game, jomini and mod copies of a namespace agree.
func NamespaceOf(rel string) string {
	dir := path.Dir(strings.ReplaceAll(rel, `\`, "/"))
	if dir == "." {
		return ""
	}

	parts := strings.Split(dir, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if strings.EqualFold(parts[i], "common") {
			return strings.Join(parts[i:], "/")
		}
	}

	return strings.TrimPrefix(dir, "game/")
}
