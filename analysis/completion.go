package analysis

import (
	"slices"
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
)

// CompletionKind indicates what kind of completion is expected at a position.
type CompletionKind string

const (
	// CompletionKindNone indicates no specific completion context.
	CompletionKindNone CompletionKind = "none"
	// CompletionKindKey indicates completion for a property key.
	CompletionKindKey CompletionKind = "key"
	// CompletionKindValue indicates completion for the value after an operator.
	CompletionKindValue CompletionKind = "value"
)

// CompletionContext holds information about where completion was triggered.
type CompletionContext struct {
	Kind   CompletionKind
	Prefix string // Word before the cursor
	Key    string // Key before the operator, for values
}

// ItemKind classifies a completion item.
type ItemKind int

// Completion item kinds.
const (
	ItemProperty ItemKind = iota
	ItemValue
	ItemScope
	ItemVariable
	ItemParameter
)

// CompletionItem is one suggestion.
type CompletionItem struct {
	Label  string
	Detail string
	Kind   ItemKind
}

// isWordByte reports whether c can appear in a key or value being typed.
func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}

	return strings.IndexByte("_.@:$|-'", c) >= 0
}

// ContextAt inspects the text before offset.
func ContextAt(content []byte, offset int) *CompletionContext {
	offset = min(max(offset, 0), len(content))
	cc := &CompletionContext{Kind: CompletionKindKey}

	start := offset
	for start > 0 && isWordByte(content[start-1]) {
		start--
	}

	cc.Prefix = string(content[start:offset])

	i := start
	for i > 0 && (content[i-1] == ' ' || content[i-1] == '\t') {
		i--
	}

	if i == 0 || !strings.ContainsRune("=<>", rune(content[i-1])) {
		if i > 0 && content[i-1] == '#' {
			cc.Kind = CompletionKindNone
		}

		return cc
	}

	for i > 0 && strings.ContainsRune("=<>!?", rune(content[i-1])) {
		i--
	}

	for i > 0 && (content[i-1] == ' ' || content[i-1] == '\t') {
		i--
	}

	end := i
	for i > 0 && isWordByte(content[i-1]) {
		i--
	}

	cc.Kind = CompletionKindValue
	cc.Key = string(content[i:end])

	return cc
}

// Complete suggests keys or values for the cursor at offset.
func (a *Analyzer) Complete(f *AnalyzedFile, offset int) []CompletionItem {
	return a.CompleteContext(f, ContextAt(f.Content, offset), offset)
}

// CompleteContext is Complete with the context taken from other text. An
// editor whose buffer no longer parses completes against the last file that
// did, with cc read from the current buffer.
func (a *Analyzer) CompleteContext(f *AnalyzedFile, cc *CompletionContext, offset int) []CompletionItem {
	if cc.Kind == CompletionKindNone {
		return nil
	}

	p := a.Pass(f)

	if strings.HasPrefix(cc.Prefix, "@") {
		return filterByPrefix(variableItems(p), cc.Prefix)
	}

	loc := Locate(f, offset)
	if loc.Entity == nil || p.Resolver == nil {
		return nil
	}

	if strings.HasPrefix(cc.Prefix, "$") && p.Game.IsScriptedEffect(p.Namespace()) {
		return filterByPrefix(ownParameterItems(p, loc.Entity), cc.Prefix)
	}

	path := loc.Path
	if last, ok := loc.Property(); ok {
		if _, isBlock := model.AsEntity(last.Value); !isBlock || loc.OnKey {
			path = path[:len(path)-1]
		}
	}

	var items []CompletionItem

	// Calls to scripted effects take their parameters as keys, whether or
	// not the schema knows the effect.
	if cc.Kind == CompletionKindKey && len(path) > 0 {
		items = parameterItems(p, path[len(path)-1].Key)
	}

	parent, err := p.Resolve(loc.Entity, path)
	if err != nil || parent == nil {
		return filterByPrefix(items, cc.Prefix)
	}

	switch cc.Kind {
	case CompletionKindKey:
		items = append(items, keyItems(p.Resolver, parent)...)
	case CompletionKindValue:
		child, err := p.Resolver.Property(parent, cc.Key)
		if err != nil {
			return nil
		}

		items = valueItems(p.Resolver, child)
	}

	return filterByPrefix(dedupe(items), cc.Prefix)
}

// keyItems lists the keys a block accepts: named properties, pattern keys
// with enumerable words, and scope navigations.
func keyItems(r *resolver.Resolver, st *resolver.ScopedType) []CompletionItem {
	var items []CompletionItem

	addBlock := func(m *resolver.ScopedType, blk *schema.BlockType) {
		for _, prop := range blk.PropertyList() {
			items = append(items, CompletionItem{Label: prop.Key, Detail: prop.Type.String(), Kind: ItemProperty})
		}

		for _, pat := range blk.Patterns {
			keys := r.Expand(&resolver.ScopedType{Type: pat.Key, Scope: m.Scope})
			for _, w := range literals(keys.Type) {
				items = append(items, CompletionItem{Label: w, Detail: pat.Value.String(), Kind: ItemProperty})
			}
		}
	}

	scoped := false

	for _, m := range st.Each() {
		t := r.Structural(m.Type)
		if !t.IsBlock() {
			continue
		}

		addBlock(m, t.Block)

		for _, sub := range t.Block.Subtypes {
			if sub.Block != nil && m.HasSubtype(sub.Name) {
				addBlock(m, sub.Block)
			}
		}

		if !scoped && m.Scope != nil && !m.Scope.IsUnknown() {
			scoped = true

			for _, nav := range r.Navigations(m.Scope) {
				items = append(items, CompletionItem{Label: nav, Detail: "scope", Kind: ItemScope})
			}
		}
	}

	return items
}

func valueItems(r *resolver.Resolver, st *resolver.ScopedType) []CompletionItem {
	var items []CompletionItem

	for _, m := range r.Expand(st).Each() {
		t := r.Structural(m.Type)

		if t.Kind == schema.KindSimple && t.Simple == cwt.KindBool {
			items = append(items,
				CompletionItem{Label: "yes", Kind: ItemValue},
				CompletionItem{Label: "no", Kind: ItemValue})

			continue
		}

		for _, w := range literals(t) {
			items = append(items, CompletionItem{Label: w, Detail: st.String(), Kind: ItemValue})
		}
	}

	return items
}

// literals returns the words of a literal or literal set type.
func literals(t *schema.Type) []string {
	t = t.Unwrap()

	switch t.Kind {
	case schema.KindLiteral:
		return []string{t.Literal}
	case schema.KindLiteralSet:
		return t.Literals
	case schema.KindUnion:
		var out []string
		for _, m := range t.Members {
			out = append(out, literals(m)...)
		}

		return out
	}

	return nil
}

// parameterItems suggests the parameters of a scripted effect or trigger
// being called.
func parameterItems(p *Pass, effect string) []CompletionItem {
	var items []CompletionItem

	for _, name := range p.Parameters(effect) {
		items = append(items, CompletionItem{Label: name, Detail: effect + " parameter", Kind: ItemParameter})
	}

	return items
}

// ownParameterItems suggests $PARAM$ tokens inside a scripted effect body.
func ownParameterItems(p *Pass, ent *EntitySymbol) []CompletionItem {
	var items []CompletionItem

	for _, name := range p.Parameters(ent.Name) {
		items = append(items, CompletionItem{Label: "$" + name + "$", Detail: "parameter", Kind: ItemParameter})
	}

	return items
}

func variableItems(p *Pass) []CompletionItem {
	seen := make(interner.Set)

	var items []CompletionItem

	add := func(vars map[interner.Spur]model.Value, detail string, spell func(interner.Spur) string) {
		for k, v := range vars {
			if seen.Has(k) {
				continue
			}

			seen.Add(k)
			items = append(items, CompletionItem{Label: spell(k), Detail: detail + " = " + v.String(), Kind: ItemVariable})
		}
	}

	local := make(map[interner.Spur]model.Value, len(p.File.Symbols.Variables))
	for k, v := range p.File.Symbols.Variables {
		local[k] = v.Value
	}

	add(local, "file", func(k interner.Spur) string { return p.File.Symbols.Variables[k].Name })

	if p.Snapshot != nil {
		ix := p.Snapshot.Index

		// Labels use the key as written at the definition.
		defined := func(namespace string) func(interner.Spur) string {
			return func(k interner.Spur) string {
				if _, def, ok := ix.VariableDefinition(namespace, interner.Resolve(k)); ok {
					return def.Key
				}

				return interner.Resolve(k)
			}
		}

		add(ix.Variables(p.Namespace()), "namespace", defined(p.Namespace()))
		add(ix.Variables(p.Game.GlobalVariables), "global", defined(p.Game.GlobalVariables))
	}

	slices.SortFunc(items, func(a, b CompletionItem) int { return strings.Compare(a.Label, b.Label) })

	return items
}

func dedupe(items []CompletionItem) []CompletionItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]

	for _, it := range items {
		if seen[it.Label] {
			continue
		}

		seen[it.Label] = true
		out = append(out, it)
	}

	return out
}

// filterByPrefix keeps items whose label starts with prefix, ignoring case.
func filterByPrefix(items []CompletionItem, prefix string) []CompletionItem {
	if prefix == "" {
		return items
	}

	prefix = strings.ToLower(prefix)

	var out []CompletionItem

	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), prefix) {
			out = append(out, it)
		}
	}

	return out
}
