// Package gamedata indexes a game installation plus mods: it parses every
// script file once, groups modules into namespaces, restructures entities
// per their schema type and mines the value sets, complex enums and scripted
// effect parameters the resolver needs.
package gamedata

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/module"
)

// Index is the parsed content of a set of roots: the game directory first,
// then mods. A file in a later root shadows the file with the same relative
// path in an earlier one.
type Index struct {
	Game  *cw.Game
	Roots []string

	modules    []*model.Module
	byPath     map[string]*model.Module
	files      map[string]string
	namespaces map[string]*model.Namespace
	nsVars     map[string]map[interner.Spur]model.Value
	errors     []*module.LoadError
}

// source is a file to load.
type source struct {
	root string
	rel  string
}

// BuildIndex discovers and parses every script file under roots. Files that
// fail to parse are recorded in Errors and skipped; only I/O failures while
// walking a root, or ctx ending, fail the build.
func BuildIndex(ctx context.Context, loader *module.Loader, roots []string, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}

	files := make(map[string]source)

	for _, root := range roots {
		rels, err := module.Discover(loader.Game, root)
		if err != nil {
			return nil, err
		}

		for _, rel := range rels {
			files[rel] = source{root: root, rel: rel}
		}

		log.Debug("discovered files", zap.String("root", root), zap.Int("files", len(rels)))
	}

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}

	sort.Strings(rels)

	var (
		mu      sync.Mutex
		modules = make([]*model.Module, len(rels))
		errs    []*module.LoadError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, rel := range rels {
		src := files[rel]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			mod, err := loader.Load(src.root, src.rel)
			if err != nil {
				var le *module.LoadError
				if !errors.As(err, &le) {
					le = &module.LoadError{Root: src.root, Path: src.rel, Cause: err}
				}

				mu.Lock()
				errs = append(errs, le)
				mu.Unlock()

				return nil
			}

			modules[i] = mod

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := newIndex(loader.Game, roots)
	for i, mod := range modules {
		if mod != nil {
			ix.insert(mod)
			ix.files[mod.Path] = filepath.Join(files[rels[i]].root, filepath.FromSlash(rels[i]))
		}
	}

	slices.SortFunc(errs, func(a, b *module.LoadError) int { return strings.Compare(a.Path, b.Path) })
	ix.errors = errs

	log.Info("indexed game data",
		zap.Int("modules", len(ix.modules)),
		zap.Int("namespaces", len(ix.namespaces)),
		zap.Int("errors", len(errs)),
	)

	return ix, nil
}

func newIndex(game *cw.Game, roots []string) *Index {
	if game == nil {
		game = &cw.Game{}
	}

	return &Index{
		Game:       game,
		Roots:      slices.Clone(roots),
		byPath:     make(map[string]*model.Module),
		files:      make(map[string]string),
		namespaces: make(map[string]*model.Namespace),
		nsVars:     make(map[string]map[interner.Spur]model.Value),
	}
}

// NewIndex builds an index from already parsed modules, inserted in the
// order given.
func NewIndex(game *cw.Game, modules ...*model.Module) *Index {
	ix := newIndex(game, nil)
	for _, m := range modules {
		ix.insert(m)
	}

	return ix
}

func (ix *Index) insert(m *model.Module) {
	ix.modules = append(ix.modules, m)
	ix.byPath[m.Path] = m

	ns, ok := ix.namespaces[m.Namespace]
	if !ok {
		ns = model.NewNamespace(m.Namespace, ix.Game.MergeMode(m.Namespace))
		ix.namespaces[m.Namespace] = ns
	}

	ns.Insert(m)

	vars, ok := ix.nsVars[m.Namespace]
	if !ok {
		vars = make(map[interner.Spur]model.Value)
		ix.nsVars[m.Namespace] = vars
	}

	for k, v := range m.ScriptedVariables() {
		vars[k] = v
	}
}

// Modules returns every module in load order.
func (ix *Index) Modules() []*model.Module { return slices.Clone(ix.modules) }

// Module returns the module at rel.
func (ix *Index) Module(rel string) (*model.Module, bool) {
	m, ok := ix.byPath[rel]

	return m, ok
}

// File returns the absolute path the module at rel was read from. Indexes
// built from parsed modules have none.
func (ix *Index) File(rel string) (string, bool) {
	p, ok := ix.files[rel]

	return p, ok
}

// Namespace returns a namespace by name.
func (ix *Index) Namespace(name string) (*model.Namespace, bool) {
	ns, ok := ix.namespaces[name]

	return ns, ok
}

// Namespaces returns the namespace names, sorted.
func (ix *Index) Namespaces() []string {
	out := make([]string, 0, len(ix.namespaces))
	for name := range ix.namespaces {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Errors returns the files that failed to load.
func (ix *Index) Errors() []*module.LoadError { return slices.Clone(ix.errors) }

// Variables returns the scripted variables defined anywhere in a namespace.
func (ix *Index) Variables(namespace string) map[interner.Spur]model.Value {
	return ix.nsVars[namespace]
}

// variableName adds the @ a scripted variable is written with when name
// lacks it.
func variableName(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}

	return "@" + name
}

// Variable looks a scripted variable up from m: the module itself, then its
// namespace, then the game's global variables. m may be nil. The leading @
// of name is optional.
func (ix *Index) Variable(m *model.Module, name string) (model.Value, bool) {
	k := interner.Intern(variableName(name))

	if m != nil {
		if list := m.Properties.GetSpur(k); len(list) > 0 {
			last, _ := list.Last()

			return last.Value, true
		}

		if v, ok := ix.nsVars[m.Namespace][k]; ok {
			return v, true
		}
	}

	v, ok := ix.nsVars[ix.Game.GlobalVariables][k]

	return v, ok
}

// VariableDefinition finds where a scripted variable visible from namespace
// is defined: the last definition in the namespace, then in the global
// variables. Module-local definitions are the caller's to check.
func (ix *Index) VariableDefinition(namespace, name string) (*model.Module, *model.PropertyInfo, bool) {
	name = variableName(name)

	for _, n := range []string{namespace, ix.Game.GlobalVariables} {
		ns, ok := ix.namespaces[n]
		if !ok {
			continue
		}

		mods := ns.Modules()
		for i := len(mods) - 1; i >= 0; i-- {
			if p, ok := mods[i].Properties.Get(name).Last(); ok {
				return mods[i], p, true
			}
		}
	}

	return nil, nil, false
}
