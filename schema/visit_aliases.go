package schema

import (
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// visitAlias lowers `alias[category:name] = T`. A second definition of the
// same category and name unions its type into the first.
func (a *Analyzer) visitAlias(r *cwt.Rule) {
	category, name, ok := r.Key.AliasParts()
	if r.Key.Kind != cwt.KindAlias || !ok || category == "" || name == "" {
		a.errorf(InvalidAliasFormat, r.Span(), "%s is not of the form alias[category:name]", r.Key.Text)

		return
	}

	alias := &Alias{
		Category: category,
		Name:     aliasName(name),
		Type:     a.convertRule(r),
		Options:  OptionsFrom(&r.Meta),
		Span:     r.Span(),
	}

	k := interner.Intern(category)

	for _, existing := range a.aliases[k] {
		if existing.Name.Kind == alias.Name.Kind && interner.Default().Equal(existing.Name.String(), alias.Name.String()) {
			existing.Type = UnionOf(existing.Type, alias.Type)

			return
		}
	}

	a.aliases[k] = append(a.aliases[k], alias)
}

// aliasName classifies the name half of an alias.
func aliasName(text string) AliasName {
	id := cwt.Classify(text)

	switch id.Kind {
	case cwt.KindTypeRef:
		if id.Prefix != "" || id.Suffix != "" {
			return AliasName{Kind: AliasTypeRefWithAffix, Name: id.Name, Prefix: id.Prefix, Suffix: id.Suffix}
		}

		return AliasName{Kind: AliasTypeRef, Name: id.Name}
	case cwt.KindEnum:
		return AliasName{Kind: AliasEnum, Name: id.Name}
	}

	return AliasName{Kind: AliasStatic, Name: text}
}

// visitSingleAlias lowers `single_alias[name] = T`. Redefinitions union.
func (a *Analyzer) visitSingleAlias(r *cwt.Rule, name string) {
	if name == "" {
		a.errorf(InvalidAliasFormat, r.Span(), "%s has no name", r.Key.Text)

		return
	}

	k := interner.Intern(name)
	a.singleAliases[k] = UnionOf(a.singleAliases[k], a.convertRule(r))
}
