package schema

import (
	"github.com/rlch/cw/cwt"
)

// Options are the `##` directives of a rule.
type Options struct {
	Cardinality cwt.Cardinality

	// PushScope names the scope the rule's value is evaluated in.
	PushScope    string
	ReplaceScope []cwt.ScopeBinding

	// Scopes restricts the rule to the listed scopes.
	Scopes []string

	Severity          string
	StartsWith        string
	TypeKeyFilter     []string
	TypeKeyNegated    bool
	GraphRelatedTypes []string
	Required          bool
	Primary           bool
	DisplayName       string
	Abbreviation      string

	// Doc is the `###` documentation.
	Doc string
}

// DefaultOptions apply to a rule without directives.
var DefaultOptions = Options{Cardinality: cwt.DefaultCardinality}

// OptionsFrom collects the directives of meta.
func OptionsFrom(meta *cwt.Meta) Options {
	if meta == nil {
		return DefaultOptions
	}

	o := Options{
		Cardinality:       meta.Cardinality(),
		ReplaceScope:      meta.ReplaceScope(),
		Scopes:            meta.Scopes(),
		GraphRelatedTypes: meta.GraphRelatedTypes(),
		Required:          meta.Required(),
		Primary:           meta.Primary(),
		Doc:               meta.Documentation(),
	}

	o.PushScope, _ = meta.PushScope()
	o.Severity, _ = meta.Severity()
	o.StartsWith, _ = meta.StartsWith()
	o.DisplayName, _ = meta.DisplayName()
	o.Abbreviation, _ = meta.Abbreviation()
	o.TypeKeyFilter, o.TypeKeyNegated, _ = meta.TypeKeyFilter()

	return o
}

// ChangesScope reports whether the options push or replace scopes.
func (o Options) ChangesScope() bool {
	return o.PushScope != "" || len(o.ReplaceScope) > 0
}
