package analysis

import (
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
)

// DocumentSymbol is an outline entry.
type DocumentSymbol struct {
	Name   string
	Detail string
	Kind   SymbolKind

	// Span covers the whole definition, SelectionSpan its name.
	Span          cw.Span
	SelectionSpan cw.Span

	Children []DocumentSymbol
}

// DocumentSymbols returns the outline of a file: scripted variables and
// entities, with each entity's top-level properties as children.
func DocumentSymbols(f *AnalyzedFile) []DocumentSymbol {
	var out []DocumentSymbol

	if f.Model == nil {
		return out
	}

	for _, list := range f.Model.Properties.All() {
		for _, p := range list {
			if !strings.HasPrefix(p.Key, "@") {
				continue
			}

			out = append(out, DocumentSymbol{
				Name:          p.Key,
				Detail:        p.Value.String(),
				Kind:          SymbolKindVariable,
				Span:          propertySpan(p),
				SelectionSpan: p.KeySpan,
			})
		}
	}

	for _, ent := range f.Symbols.Entities {
		sym := DocumentSymbol{
			Name:          ent.Name,
			Detail:        ent.Type,
			Kind:          SymbolKindEntity,
			Span:          ent.Span,
			SelectionSpan: ent.KeySpan,
		}

		if ent.KeySpan == (cw.Span{}) {
			sym.SelectionSpan = ent.Span
		}

		if e := ent.Entity.Entity; e != nil {
			for _, list := range e.Properties.All() {
				for _, p := range list {
					sym.Children = append(sym.Children, DocumentSymbol{
						Name:          p.Key,
						Detail:        detail(p.Value),
						Kind:          SymbolKindProperty,
						Span:          propertySpan(p),
						SelectionSpan: p.KeySpan,
					})
				}
			}
		}

		out = append(out, sym)
	}

	return out
}

func detail(v model.Value) string {
	if _, ok := model.AsEntity(v); ok {
		return "{ ... }"
	}

	return v.String()
}

// VariableAt returns the scripted variable defined or used at offset.
func VariableAt(f *AnalyzedFile, offset int) (string, bool) {
	if f.Module == nil {
		return "", false
	}

	path := cw.Path(f.Module, offset)
	for i := len(path) - 1; i >= 0; i-- {
		if s, ok := path[i].(*cw.String); ok && s.IsScriptedVariable() {
			return s.Text, true
		}
	}

	return "", false
}

// VariableOccurrence is a definition or use of a scripted variable.
type VariableOccurrence struct {
	Span       cw.Span
	Definition bool
}

// VariableOccurrences lists every definition and use of name in the file,
// in source order.
func VariableOccurrences(m *cw.Module, name string) []VariableOccurrence {
	var out []VariableOccurrence

	if m == nil {
		return out
	}

	in := interner.Default()
	keys := make(map[*cw.String]bool)

	cw.Inspect(m, func(n cw.Node) bool {
		switch n := n.(type) {
		case *cw.Expression:
			keys[n.Key] = true

			if n.Key.IsScriptedVariable() && in.Equal(n.Key.Text, name) {
				out = append(out, VariableOccurrence{Span: n.Key.Span(), Definition: true})
			}
		case *cw.String:
			if !keys[n] && n.IsScriptedVariable() && in.Equal(n.Text, name) {
				out = append(out, VariableOccurrence{Span: n.Span()})
			}
		}

		return true
	})

	return out
}
