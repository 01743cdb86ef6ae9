package model

import (
	"path"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// Module is one parsed script file.
type Module struct {
	*Entity

	// Filename is the base name; Path is relative to the game or mod root
	// using forward slashes.
	Filename  string
	Path      string
	Namespace string

	// AST is the parse tree the module was built from, kept for positions.
	AST *cw.Module
}

// NewModule builds a module from a parse tree. rel is the file's path
// relative to its root.
func NewModule(rel, namespace string, ast *cw.Module) *Module {
	rel = strings.ReplaceAll(rel, `\`, "/")

	return &Module{
		Entity:    EntityFromModule(ast),
		Filename:  path.Base(rel),
		Path:      rel,
		Namespace: namespace,
		AST:       ast,
	}
}

// ScriptedVariables returns the module's @-prefixed definitions.
func (m *Module) ScriptedVariables() map[interner.Spur]Value {
	out := make(map[interner.Spur]Value)

	for k, list := range m.Properties.All() {
		if !strings.HasPrefix(list[0].Key, "@") {
			continue
		}

		if last, ok := list.Last(); ok {
			out[k] = last.Value
		}
	}

	return out
}

// ToAST converts the module back into a parse tree for printing.
func (m *Module) ToAST() *cw.Module {
	return &cw.Module{Filename: m.Path, Items: m.astItems()}
}

func (m *Module) String() string {
	return cw.Format(m.ToAST())
}
