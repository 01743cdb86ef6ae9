package analysis

import (
	"errors"
	"path"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
)

// maxDepth bounds recursion into nested blocks.
const maxDepth = 64

// DataSource supplies the indexed game data. *gamedata.Cache implements it.
type DataSource interface {
	Snapshot() (*gamedata.Snapshot, error)
}

// Analyzer performs semantic analysis on script files.
type Analyzer struct {
	game   *cw.Game
	schema *schema.Analyzer

	// data is used for type keys, enums, value sets and variables defined
	// in other files. Can be nil for single-file analysis.
	data DataSource

	// rules is the set of semantic checks to run.
	rules []*Rule
}

// NewAnalyzer creates a new analyzer with default rules. s and data may be
// nil: without a schema only parse errors and scripted variables are
// checked; without data, references to game entities are not checked.
func NewAnalyzer(game *cw.Game, s *schema.Analyzer, data DataSource) *Analyzer {
	return NewAnalyzerWithRules(game, s, data, DefaultRules())
}

// NewAnalyzerWithRules creates an analyzer with custom rules.
func NewAnalyzerWithRules(game *cw.Game, s *schema.Analyzer, data DataSource, rules []*Rule) *Analyzer {
	if game == nil {
		game = cw.Stellaris
	}

	return &Analyzer{game: game, schema: s, data: data, rules: rules}
}

// Game returns the game profile.
func (a *Analyzer) Game() *cw.Game { return a.game }

// Schema returns the schema, which may be nil.
func (a *Analyzer) Schema() *schema.Analyzer { return a.schema }

// Analyze parses and analyzes a script file. rel is the file's path relative
// to its game or mod root; it decides the namespace and thus the schema
// types that apply.
func (a *Analyzer) Analyze(rel string, content []byte) *AnalyzedFile {
	rel = strings.ReplaceAll(rel, "\\", "/")

	result := &AnalyzedFile{
		Path:        rel,
		Content:     content,
		Diagnostics: []Diagnostic{},
		Symbols:     NewSymbolTable(),
	}

	ast, err := cw.ParseFile(path.Base(rel), content)
	if err != nil {
		result.ParseError = err
		result.Diagnostics = append(result.Diagnostics, parseErrorToDiagnostic(err))

		return result
	}

	result.Module = ast
	result.Model = model.NewModule(rel, module.NamespaceOf(rel), ast)

	buildSymbols(result, a.schema)

	p := a.Pass(result)
	for _, rule := range a.rules {
		rule.Run(p)
	}

	return result
}

// parseErrorToDiagnostic converts a parse error to a diagnostic.
func parseErrorToDiagnostic(err error) Diagnostic {
	span := cw.Span{}
	msg := err.Error()

	var pe *cw.ParseError
	if errors.As(err, &pe) {
		span = pe.Span
		msg = pe.Msg
	}

	return Diagnostic{
		Span:     span,
		Severity: SeverityError,
		Message:  msg,
		Code:     CodeParseError,
		Source:   source,
	}
}

// buildSymbols extracts the entity and variable definitions of the file.
func buildSymbols(f *AnalyzedFile, s *schema.Analyzer) {
	for k, list := range f.Model.Properties.All() {
		if !strings.HasPrefix(list[0].Key, "@") {
			continue
		}

		p, _ := list.Last()
		f.Symbols.Variables[k] = &VariableSymbol{
			Symbol:  Symbol{Name: p.Key, Span: propertySpan(p), Kind: SymbolKindVariable},
			KeySpan: p.KeySpan,
			Value:   p.Value,
		}
	}

	entities := gamedata.ModuleEntities(f.Model, s)
	if len(entities) == 0 {
		entities = untypedEntities(f.Model)
	}

	for _, e := range entities {
		sym := &EntitySymbol{
			Symbol: Symbol{Name: e.Name, Kind: SymbolKindEntity},
			Entity: e,
		}

		if e.Type != nil {
			sym.Type = e.Type.Name
		}

		switch {
		case e.Info != nil:
			sym.Span = propertySpan(e.Info)
			sym.KeySpan = e.Info.KeySpan
		case e.Entity != nil:
			// type_per_file: the whole file is the entity.
			sym.Span = f.Module.Span()
		}

		f.Symbols.Entities = append(f.Symbols.Entities, sym)
	}
}

// untypedEntities lists the top-level blocks of a module no type claims.
func untypedEntities(m *model.Module) []*gamedata.Entity {
	var out []*gamedata.Entity

	for _, list := range m.Properties.All() {
		for _, p := range list {
			e, ok := model.AsEntity(p.Value)
			if !ok || strings.HasPrefix(p.Key, "@") {
				continue
			}

			out = append(out, &gamedata.Entity{Name: p.Key, Key: p.Key, Namespace: m.Namespace, Entity: e, Info: p})
		}
	}

	return out
}

// Pass is the state shared by the rules and queries run over one file.
type Pass struct {
	File     *AnalyzedFile
	Game     *cw.Game
	Schema   *schema.Analyzer
	Snapshot *gamedata.Snapshot
	Resolver *resolver.Resolver
}

// Pass prepares a query over f against the current game data snapshot.
func (a *Analyzer) Pass(f *AnalyzedFile) *Pass {
	p := &Pass{File: f, Game: a.game, Schema: a.schema}

	if a.data != nil {
		if snap, err := a.data.Snapshot(); err == nil {
			p.Snapshot = snap
		}
	}

	if a.schema != nil {
		var data resolver.Data
		if p.Snapshot != nil {
			data = p.Snapshot.Analysis
		}

		p.Resolver = resolver.New(a.schema, data)
	}

	return p
}

// Report records a diagnostic.
func (p *Pass) Report(d Diagnostic) {
	if d.Source == "" {
		d.Source = source
	}

	p.File.Diagnostics = append(p.File.Diagnostics, d)
}

// Namespace returns the file's namespace.
func (p *Pass) Namespace() string {
	if p.File.Model == nil {
		return ""
	}

	return p.File.Model.Namespace
}

// Root returns the type an entity's body is checked against, with active
// subtypes and root scope. It returns nil for untyped entities. A scope
// directive that fails to apply is returned with the partial type.
func (p *Pass) Root(ent *EntitySymbol) (*resolver.ScopedType, error) {
	if p.Resolver == nil || ent.Entity.Type == nil {
		return nil, nil //nolint:nilnil // untyped entities have no root type
	}

	ns := p.Namespace()

	st, err := p.Resolver.RootIn(ent.Entity.Type, ent.Entity.Key, ent.Entity.Entity, p.Game.RootScope(ns))
	if st != nil {
		st.InScriptedEffect = p.Game.IsScriptedEffect(ns)
	}

	return st, err
}

// Resolve walks path from an entity's root type.
func (p *Pass) Resolve(ent *EntitySymbol, path []*model.PropertyInfo) (*resolver.ScopedType, error) {
	st, _ := p.Root(ent)
	if st == nil {
		return nil, resolver.ErrUnknownKey
	}

	for _, prop := range path {
		child, err := p.Resolver.Property(st, prop.Key)
		if err != nil {
			return st, err
		}

		if e, ok := model.AsEntity(prop.Value); ok {
			if narrowed, err := p.Resolver.Narrow(child, prop.Key, e); err == nil {
				child = narrowed
			}
		}

		st = child
	}

	return st, nil
}

// Variable looks a scripted variable up from this file: the file itself,
// then its namespace, then the game's global variables.
func (p *Pass) Variable(name string) (model.Value, bool) {
	if v, ok := p.File.Symbols.Variable(name); ok {
		return v.Value, true
	}

	if p.Snapshot != nil && p.File.Model != nil {
		return p.Snapshot.Index.Variable(p.File.Model, name)
	}

	return nil, false
}

// Parameters returns the parameters of a scripted effect or trigger.
func (p *Pass) Parameters(effect string) []string {
	if p.Snapshot == nil {
		return nil
	}

	return p.Snapshot.Analysis.Parameters(effect)
}

// hasVariable reports whether name is defined, @ included.
func (p *Pass) hasVariable(name string) bool {
	_, ok := p.Variable(name)

	return ok
}
