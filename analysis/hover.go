package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
)

// maxHoverChildren caps the properties listed for a block.
const maxHoverChildren = 10

// Hover is the markdown shown for a cursor position.
type Hover struct {
	Markdown string
	Span     cw.Span
}

// Hover describes what sits under offset: the expected type of a key or
// value, an entity, a scripted variable or a maths expression.
func (a *Analyzer) Hover(f *AnalyzedFile, offset int) (*Hover, bool) {
	if f.Module == nil {
		return nil, false
	}

	p := a.Pass(f)
	loc := Locate(f, offset)

	switch v := loc.Value.(type) {
	case *model.Maths:
		return hoverMaths(p, v), true
	case *model.String:
		if v.IsScriptedVariable() {
			return hoverVariableRef(p, v), true
		}
	}

	if loc.Variable != nil {
		return &Hover{
			Markdown: fmt.Sprintf("**Scripted variable** `%s = %s`", loc.Variable.Name, loc.Variable.Value),
			Span:     loc.Variable.KeySpan,
		}, true
	}

	if loc.Entity == nil {
		return nil, false
	}

	if len(loc.Path) == 0 {
		return hoverEntity(p, loc.Entity), true
	}

	if p.Resolver == nil {
		return nil, false
	}

	prop, _ := loc.Property()

	st, err := p.Resolve(loc.Entity, loc.Path)
	if err != nil {
		if errors.Is(err, resolver.ErrUnknownKey) {
			return &Hover{Markdown: fmt.Sprintf("**%s**: unknown key", prop.Key), Span: prop.KeySpan}, true
		}

		return nil, false
	}

	span := prop.KeySpan
	if !loc.OnKey && loc.Value != nil {
		span = loc.Value.Span()
	}

	return &Hover{Markdown: formatType(p.Resolver, prop.Key, st), Span: span}, true
}

func hoverEntity(p *Pass, ent *EntitySymbol) *Hover {
	var b strings.Builder

	if ent.Type != "" {
		fmt.Fprintf(&b, "**%s** `%s`", ent.Type, ent.Name)
	} else {
		fmt.Fprintf(&b, "`%s`", ent.Name)
	}

	if ns := p.Namespace(); ns != "" {
		fmt.Fprintf(&b, "\n\nNamespace: `%s`", ns)
	}

	if st, _ := p.Root(ent); st != nil {
		b.WriteString("\n\n")
		b.WriteString(describeScoped(p.Resolver, st))
	}

	return &Hover{Markdown: b.String(), Span: ent.KeySpan}
}

func hoverVariableRef(p *Pass, v *model.String) *Hover {
	val, ok := p.Variable(v.Text)
	if !ok {
		return &Hover{Markdown: fmt.Sprintf("`%s`: unknown scripted variable", v.Text), Span: v.Span()}
	}

	return &Hover{Markdown: fmt.Sprintf("**Scripted variable** `%s = %s`", v.Text, val), Span: v.Span()}
}

func hoverMaths(p *Pass, m *model.Maths) *Hover {
	h := &Hover{Span: m.Span()}

	result, err := EvalMaths(m.Text, p.Variable)
	if err != nil {
		h.Markdown = fmt.Sprintf("`%s`\n\n%s", m, err)

		return h
	}

	h.Markdown = fmt.Sprintf("`%s` = **%s**", m, formatNumber(result))

	return h
}

// formatType renders the expected type of key.
func formatType(r *resolver.Resolver, key string, st *resolver.ScopedType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**: `%s`", key, describe(st))

	if doc := st.Each()[0].Options.Doc; doc != "" {
		b.WriteString("\n\n")
		b.WriteString(doc)
	}

	b.WriteString("\n\n")
	b.WriteString(describeScoped(r, st))

	return strings.TrimRight(b.String(), "\n")
}

// describeScoped lists the scope, active subtypes and children of st.
func describeScoped(r *resolver.Resolver, st *resolver.ScopedType) string {
	var b strings.Builder

	if s := st.Each()[0].Scope; s != nil && !s.IsUnknown() {
		fmt.Fprintf(&b, "Scope: `%s`\n\n", s)
	}

	if len(st.Subtypes) > 0 {
		fmt.Fprintf(&b, "*Subtypes: %s*\n\n", strings.Join(st.Subtypes, ", "))
	}

	children := childLines(r, st)
	for i, line := range children {
		if i == maxHoverChildren {
			fmt.Fprintf(&b, "- *…and %d more*\n", len(children)-maxHoverChildren)

			break
		}

		b.WriteString(line + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func childLines(r *resolver.Resolver, st *resolver.ScopedType) []string {
	var lines []string

	add := func(blk *schema.BlockType) {
		for _, prop := range blk.PropertyList() {
			lines = append(lines, fmt.Sprintf("- `%s` = %s", prop.Key, prop.Type))
		}

		for _, pat := range blk.Patterns {
			lines = append(lines, fmt.Sprintf("- `%s` = %s", pat.Key, pat.Value))
		}
	}

	for _, m := range st.Each() {
		t := r.Structural(m.Type)
		if !t.IsBlock() {
			continue
		}

		add(t.Block)

		for _, sub := range t.Block.Subtypes {
			if sub.Block != nil && m.HasSubtype(sub.Name) {
				add(sub.Block)
			}
		}
	}

	return lines
}
