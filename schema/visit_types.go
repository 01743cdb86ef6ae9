package schema

import (
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// visitType lowers `type[name] = { path = ... }`.
func (a *Analyzer) visitType(r *cwt.Rule) {
	if r.Key.Kind != cwt.KindType || r.Key.Name == "" {
		a.errorf(InvalidTypeDefinition, r.Span(), "%s is not a type definition", r.Key.Text)

		return
	}

	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidTypeDefinition, r.Span(), "type[%s] must be a block", r.Key.Name)

		return
	}

	k := interner.Intern(r.Key.Name)

	def, ok := a.types[k]
	if !ok {
		def = &TypeDefinition{Name: r.Key.Name, Span: r.Span()}
		a.types[k] = def
	}

	def.Options = OptionsFrom(&r.Meta)
	def.StartsWith = def.Options.StartsWith

	var skips []*cwt.Rule

	for _, it := range body.Items {
		tr, ok := it.(*cwt.Rule)
		if !ok {
			continue
		}

		if tr.Key.Kind == cwt.KindSubtype {
			def.subtypes = append(def.subtypes, a.subtypeConditions(tr))

			continue
		}

		value, _ := tr.Value.(*cwt.Identifier)

		switch strings.ToLower(tr.Key.Text) {
		case "path":
			if value != nil {
				def.Paths = append(def.Paths, gamePath(value.Text))
			}
		case "name_field":
			if value != nil {
				def.NameField = value.Text
			}
		case "path_strict":
			def.PathStrict = isYes(value)
		case "path_file":
			if value != nil {
				def.PathFile = value.Text
			}
		case "path_extension":
			if value != nil {
				def.PathExtension = value.Text
			}
		case "type_per_file":
			def.TypePerFile = isYes(value)
		case "unique":
			def.Unique = isYes(value)
		case "starts_with":
			if value != nil {
				def.StartsWith = value.Text
			}
		case "severity":
			if value != nil {
				def.Options.Severity = value.Text
			}
		case "skip_root_key":
			skips = append(skips, tr)
		case "localisation":
			a.visitLocalisation(def, tr, "")
		case "modifiers":
			a.visitModifiers(def, tr, "")
		case "display_name", "graph_related_types":
		default:
			a.errorf(UnsupportedFeature, tr.Span(), "type[%s]: unknown setting %s", def.Name, tr.Key.Text)
		}
	}

	if len(skips) > 0 {
		def.SkipRootKey = skipRootKey(skips)
	}

	if len(def.Paths) == 0 {
		a.errorf(InvalidTypeDefinition, r.Span(), "type[%s] has no path", def.Name)
	}
}

// gamePath strips the leading game/ of a schema path.
func gamePath(p string) string {
	p = strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
	if rest, ok := strings.CutPrefix(p, "game/"); ok {
		return rest
	}

	if p == "game" {
		return ""
	}

	return p
}

func isYes(id *cwt.Identifier) bool {
	return id != nil && strings.EqualFold(id.Text, "yes")
}

// skipRootKey folds the skip_root_key rules of a type. any wins over
// exclusions, exclusions over lists; one specific key stays specific.
func skipRootKey(rules []*cwt.Rule) *SkipRootKey {
	var (
		specific, except, multiple []string
		anyKey                     bool
	)

	for _, r := range rules {
		switch v := r.Value.(type) {
		case *cwt.Identifier:
			text := strings.TrimPrefix(v.Text, "!")

			switch {
			case r.Op == cw.OpNotEquals || v.Negated:
				except = append(except, text)
			case strings.EqualFold(text, "any"):
				anyKey = true
			default:
				specific = append(specific, text)
			}
		case *cwt.Block:
			for _, id := range v.Values() {
				multiple = append(multiple, id.Text)
			}
		}
	}

	switch {
	case anyKey:
		return &SkipRootKey{Kind: SkipAny}
	case len(except) > 0:
		return &SkipRootKey{Kind: SkipExcept, Keys: except}
	case len(multiple) > 0:
		return &SkipRootKey{Kind: SkipMultiple, Keys: multiple}
	case len(specific) == 1:
		return &SkipRootKey{Kind: SkipSpecific, Keys: specific}
	case len(specific) > 1:
		return &SkipRootKey{Kind: SkipMultiple, Keys: specific}
	}

	return nil
}

// visitLocalisation lowers `localisation = { name = "$" subtype[x] = { ... } }`.
func (a *Analyzer) visitLocalisation(def *TypeDefinition, r *cwt.Rule, subtype string) {
	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidTypeDefinition, r.Span(), "type[%s]: localisation must be a block", def.Name)

		return
	}

	for _, it := range body.Items {
		lr, ok := it.(*cwt.Rule)
		if !ok {
			continue
		}

		if lr.Key.Kind == cwt.KindSubtype && subtype == "" {
			name, _ := subtypeName(lr.Key)
			a.visitLocalisation(def, lr, name)

			continue
		}

		pattern, ok := lr.Value.(*cwt.Identifier)
		if !ok {
			continue
		}

		def.Localisation = append(def.Localisation, &LocalisationSpec{
			Key:      lr.Key.Text,
			Pattern:  pattern.Text,
			Required: lr.Required(),
			Primary:  lr.Primary(),
			Subtype:  subtype,
		})
	}
}

// visitModifiers lowers `modifiers = { "$_mult" = planet }`.
func (a *Analyzer) visitModifiers(def *TypeDefinition, r *cwt.Rule, subtype string) {
	body, ok := r.Value.(*cwt.Block)
	if !ok {
		a.errorf(InvalidTypeDefinition, r.Span(), "type[%s]: modifiers must be a block", def.Name)

		return
	}

	for _, it := range body.Items {
		mr, ok := it.(*cwt.Rule)
		if !ok {
			continue
		}

		if mr.Key.Kind == cwt.KindSubtype && subtype == "" {
			name, _ := subtypeName(mr.Key)
			a.visitModifiers(def, mr, name)

			continue
		}

		if category, ok := mr.Value.(*cwt.Identifier); ok {
			def.Modifiers = append(def.Modifiers, &ModifierSpec{
				Pattern:  mr.Key.Text,
				Category: category.Text,
				Subtype:  subtype,
			})
		}
	}
}
