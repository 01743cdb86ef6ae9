// Package analysis answers editor queries over one script file: it parses
// the file, checks every entity against the schema and the indexed game
// data, and serves hover, completion, semantic tokens and symbols.
package analysis

import (
	"github.com/rlch/cw"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
)

// AnalyzedFile holds semantic analysis results for a single file.
type AnalyzedFile struct {
	// Path is the slash-separated path relative to the game or mod root.
	Path string

	Content []byte

	// Module is the parsed AST. Nil if parsing failed.
	Module *cw.Module

	// Model is the semantic view of Module. Nil if parsing failed.
	Model *model.Module

	// ParseError holds the parse error if parsing failed.
	ParseError error

	// Diagnostics contains all errors and warnings found during analysis.
	Diagnostics []Diagnostic

	// Symbols contains all definitions in this file.
	Symbols *SymbolTable

	lines *LineIndex
}

// Lines returns the file's line index.
func (f *AnalyzedFile) Lines() *LineIndex {
	if f.lines == nil {
		f.lines = NewLineIndex(f.Content)
	}

	return f.lines
}

// SymbolTable holds the named definitions of a file.
type SymbolTable struct {
	// Entities are the top-level entities, after restructuring, in source
	// order.
	Entities []*EntitySymbol

	// Variables maps a scripted variable, @ included, to its definition.
	Variables map[interner.Spur]*VariableSymbol
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{Variables: make(map[interner.Spur]*VariableSymbol)}
}

// Variable returns the definition of a scripted variable in this file.
func (t *SymbolTable) Variable(name string) (*VariableSymbol, bool) {
	k, ok := interner.Get(name)
	if !ok {
		return nil, false
	}

	v, ok := t.Variables[k]

	return v, ok
}

// SymbolKind represents the type of a symbol.
type SymbolKind int

// Symbol kind constants.
const (
	SymbolKindEntity SymbolKind = iota
	SymbolKindVariable
	SymbolKindProperty
)

// Symbol is the base type for all symbol kinds.
type Symbol struct {
	Name string
	Span cw.Span
	Kind SymbolKind
}

// EntitySymbol is a top-level entity.
type EntitySymbol struct {
	Symbol

	// KeySpan covers the key the entity was written under.
	KeySpan cw.Span

	// Type is the schema type, empty for untyped namespaces.
	Type string

	Entity *gamedata.Entity
}

// VariableSymbol is an @variable definition.
type VariableSymbol struct {
	Symbol

	KeySpan cw.Span
	Value   model.Value
}

// Diagnostic represents an error or warning found during analysis.
type Diagnostic struct {
	Span     cw.Span
	Severity DiagnosticSeverity
	Message  string
	Code     string // e.g., "unknown-key", "type-mismatch"
	Source   string // "cw"
}

// DiagnosticSeverity indicates the severity of a diagnostic.
type DiagnosticSeverity int

// Diagnostic severity constants.
const (
	SeverityError DiagnosticSeverity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic codes.
const (
	CodeParseError       = "parse-error"
	CodeUnknownKey       = "unknown-key"
	CodeTypeMismatch     = "type-mismatch"
	CodeUnknownVariable  = "unknown-scripted-variable"
	CodeInvalidScopePath = "invalid-scope-path"
	CodeScopeOverflow    = "scope-overflow"
	CodeValueNotInSet    = "value-not-in-set"
	CodeDuplicateEntity  = "duplicate-entity"
)

const source = "cw"
