package schema

import (
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// visitScope lowers `Country = { aliases = { country } }`. The first alias
// is the canonical name; a scope without aliases is its own name.
func (a *Analyzer) visitScope(r *cwt.Rule) {
	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidScopeFormat, r.Span(), "scope %s must be a block", r.Key.Text)

		return
	}

	s := &Scope{Name: r.Key.Text}

	if ar, ok := body.Rule("aliases"); ok {
		ab, ok := ar.Value.(*cwt.Block)
		if !ok {
			a.errorf(InvalidScopeFormat, ar.Span(), "scope %s: aliases must be a block", s.Name)
		} else {
			for _, id := range ab.Values() {
				s.Aliases = append(s.Aliases, id.Text)
			}
		}
	}

	canonical := s.Name
	if len(s.Aliases) > 0 {
		canonical = s.Aliases[0]
	}

	s.ID = interner.Intern(canonical)

	a.scopes = append(a.scopes, s)
	a.scopeNames[interner.Intern(s.Name)] = s.ID

	for _, alias := range s.Aliases {
		a.scopeNames[interner.Intern(alias)] = s.ID
	}
}

// visitScopeGroup lowers `celestial = { planet star }`.
func (a *Analyzer) visitScopeGroup(r *cwt.Rule) {
	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidScopeFormat, r.Span(), "scope group %s must be a block", r.Key.Text)

		return
	}

	var members []interner.Spur

	for _, id := range body.Values() {
		sp, ok := a.ResolveScopeName(id.Text)
		if !ok {
			a.errorf(MissingReference, id.Span(), "scope group %s: unknown scope %s", r.Key.Text, id.Text)

			continue
		}

		members = append(members, sp)
	}

	a.scopeGroups[interner.Intern(r.Key.Text)] = members
}

// visitLink lowers
// `owner = { input_scopes = { planet } output_scope = country ... }`.
func (a *Analyzer) visitLink(r *cwt.Rule) {
	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidLinkFormat, r.Span(), "link %s must be a block", r.Key.Text)

		return
	}

	l := &Link{Name: r.Key.Text, Span: r.Span(), OutputScope: interner.Intern("any")}

	for _, it := range body.Items {
		lr, ok := it.(*cwt.Rule)
		if !ok {
			continue
		}

		switch strings.ToLower(lr.Key.Text) {
		case "desc":
			l.Desc = scalarText(lr)
		case "input_scopes", "input_scope":
			for _, name := range words(lr) {
				if sp, ok := a.linkScope(l, lr, name); ok {
					l.InputScopes = append(l.InputScopes, sp)
				}
			}
		case "output_scope":
			if sp, ok := a.linkScope(l, lr, scalarText(lr)); ok {
				l.OutputScope = sp
			}
		case "from_data":
			id, _ := lr.Value.(*cwt.Identifier)
			l.FromData = isYes(id)
		case "type":
			l.Type = scalarText(lr)
		case "data_source":
			l.DataSources = append(l.DataSources, scalarText(lr))
		case "prefix":
			l.Prefix = scalarText(lr)
		}
	}

	if l.Prefix != "" && l.FromData {
		a.prefixLinks = append(a.prefixLinks, l)

		return
	}

	a.links[interner.Intern(l.Name)] = l
}

func (a *Analyzer) linkScope(l *Link, r *cwt.Rule, name string) (interner.Spur, bool) {
	sp, ok := a.ResolveScopeName(name)
	if !ok {
		a.errorf(MissingReference, r.Span(), "link %s: unknown scope %s", l.Name, name)
	}

	return sp, ok
}

// scalarText returns the identifier value of r, or "".
func scalarText(r *cwt.Rule) string {
	if id, ok := r.Value.(*cwt.Identifier); ok {
		return id.Text
	}

	return ""
}

// words returns a scalar value or the values of a block.
func words(r *cwt.Rule) []string {
	switch v := r.Value.(type) {
	case *cwt.Identifier:
		return []string{v.Text}
	case *cwt.Block:
		out := make([]string, 0, len(v.Items))
		for _, id := range v.Values() {
			out = append(out, id.Text)
		}

		return out
	}

	return nil
}
