package analysis

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rlch/cw"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/resolver"
	"github.com/rlch/cw/schema"
	"github.com/rlch/cw/scope"
)

// Rule represents a semantic analysis check.
// Inspired by go/analysis.Analyzer pattern.
type Rule struct {
	// Name is a short identifier for the rule.
	Name string

	// Doc is a brief description of what the rule checks.
	Doc string

	// Severity is the default severity for diagnostics from this rule.
	Severity DiagnosticSeverity

	// Run executes the rule and reports diagnostics through the pass.
	Run func(p *Pass)
}

// DefaultRules returns all built-in semantic analysis rules.
func DefaultRules() []*Rule {
	return []*Rule{
		// Error-level checks.
		typeCheckRule,
		scriptedVariableRule,

		// Warning-level checks.
		duplicateEntityRule,
	}
}

// maxListedValues caps the expected values quoted in a message.
const maxListedValues = 12

// ----------------------------------------------------------------------------
// Rule: type-check
// ----------------------------------------------------------------------------

var typeCheckRule = &Rule{
	Name:     "type-check",
	Doc:      "Checks every typed entity against its schema: keys, values, scopes and scripted variables.",
	Severity: SeverityError,
	Run:      checkTypes,
}

func checkTypes(p *Pass) {
	if p.Resolver == nil {
		return
	}

	for _, ent := range p.File.Symbols.Entities {
		st, err := p.Root(ent)
		if err != nil {
			p.Report(scopeDiagnostic(ent.KeySpan, err))
		}

		if st == nil || ent.Entity.Entity == nil {
			continue
		}

		c := &checker{p: p, r: p.Resolver}
		c.block(st, ent.Entity.Entity, 0)
	}
}

type checker struct {
	p *Pass
	r *resolver.Resolver
}

func (c *checker) block(st *resolver.ScopedType, e *model.Entity, depth int) {
	if depth > maxDepth || c.open(st) {
		return
	}

	for _, list := range e.Properties.All() {
		for _, prop := range list {
			c.property(st, prop, depth)
		}
	}

	for _, cond := range e.Conditionals {
		if cond.Body != nil {
			c.block(st, cond.Body, depth+1)
		}
	}
}

// open reports whether st accepts anything, so that nothing below it can be
// checked.
func (c *checker) open(st *resolver.ScopedType) bool {
	for _, m := range st.Each() {
		switch c.r.Structural(m.Type).Kind {
		case schema.KindAny, schema.KindUnknown:
		default:
			return false
		}
	}

	return true
}

func (c *checker) property(st *resolver.ScopedType, prop *model.PropertyInfo, depth int) {
	// $PARAM$ keys are substituted by the caller; @keys define variables.
	if strings.Contains(prop.Key, "$") || strings.HasPrefix(prop.Key, "@") {
		return
	}

	child, err := c.r.Property(st, prop.Key)
	if err != nil {
		c.p.Report(keyDiagnostic(prop.KeySpan, err))

		return
	}

	e, ok := model.AsEntity(prop.Value)
	if !ok {
		c.value(child, prop.Value)

		return
	}

	narrowed, err := c.r.Narrow(child, prop.Key, e)
	if err != nil {
		c.p.Report(scopeDiagnostic(prop.KeySpan, err))
	} else {
		child = narrowed
	}

	c.entity(child, e, depth)
}

// entity checks a block value against the block and list alternatives of st.
func (c *checker) entity(st *resolver.ScopedType, e *model.Entity, depth int) {
	blocks := false

	for _, m := range st.Each() {
		t := c.r.Structural(m.Type)

		switch t.Kind {
		case schema.KindAny, schema.KindUnknown:
			return
		case schema.KindBlock:
			blocks = true
		case schema.KindUnion:
			for _, u := range t.Members {
				if c.r.Structural(u).IsBlock() {
					blocks = true
				}
			}
		case schema.KindArray:
			elem := &resolver.ScopedType{Type: t.Elem, Scope: m.Scope, InScriptedEffect: m.InScriptedEffect}
			for _, item := range e.Items {
				c.value(elem, item)
			}

			return
		}
	}

	if !blocks {
		c.p.Report(Diagnostic{
			Span:     e.Span(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("expected %s, got a block", describe(st)),
			Code:     CodeTypeMismatch,
		})

		return
	}

	c.block(st, e, depth+1)
}

func (c *checker) value(st *resolver.ScopedType, v model.Value) {
	switch v := v.(type) {
	case *model.String:
		if v.IsScriptedVariable() {
			c.variable(st, v)

			return
		}

		if !c.r.AcceptsValue(st, v.Text) {
			c.mismatch(st, v.Span(), v.Text)
		}
	case *model.Number:
		text := v.Text
		if v.Percent {
			text += "%"
		}

		if !c.r.AcceptsValue(st, text) {
			c.mismatch(st, v.Span(), text)
		}
	case *model.Entity:
		c.entity(st, v, 0)
	}
}

// variable checks an @variable value. Localisation fields take @ text
// literally.
func (c *checker) variable(st *resolver.ScopedType, v *model.String) {
	if isLocalisation(c.r, st) {
		return
	}

	val, ok := c.p.Variable(v.Text)
	if !ok {
		c.p.Report(unknownVariable(v))

		return
	}

	var text string

	switch val := val.(type) {
	case *model.Number:
		text = val.Text
		if val.Percent {
			text += "%"
		}
	case *model.String:
		text = val.Text
	default:
		return
	}

	if !c.r.AcceptsValue(st, text) {
		c.p.Report(Diagnostic{
			Span:     v.Span(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is %s, expected %s", v.Text, text, describe(st)),
			Code:     CodeTypeMismatch,
		})
	}
}

func isLocalisation(r *resolver.Resolver, st *resolver.ScopedType) bool {
	for _, m := range st.Each() {
		t := r.Structural(m.Type)
		if t.Kind != schema.KindSimple {
			return false
		}

		switch t.Simple {
		case cwt.KindLocalisation, cwt.KindLocalisationSynced, cwt.KindLocalisationInline:
		default:
			return false
		}
	}

	return true
}

// mismatch reports a rejected scalar with the most specific code: a failed
// scope path, a value missing from a closed set, or a plain type mismatch.
func (c *checker) mismatch(st *resolver.ScopedType, span cw.Span, text string) {
	switch classify(c.r, st) {
	case classScope:
		s := st.Each()[0].Scope
		if s == nil {
			break
		}

		if _, err := c.r.ScopePath(s, text); err != nil {
			c.p.Report(keyDiagnostic(span, err))

			return
		}
	case classSet:
		msg := fmt.Sprintf("'%s' is not a valid %s", text, describe(st))
		if words := expected(c.r, st); len(words) > 0 && len(words) <= maxListedValues {
			msg += " (expected one of " + strings.Join(words, ", ") + ")"
		}

		c.p.Report(Diagnostic{Span: span, Severity: SeverityError, Message: msg, Code: CodeValueNotInSet})

		return
	}

	c.p.Report(Diagnostic{
		Span:     span,
		Severity: SeverityError,
		Message:  fmt.Sprintf("expected %s, got '%s'", describe(st), text),
		Code:     CodeTypeMismatch,
	})
}

type valueClass int

const (
	classOther valueClass = iota
	classSet
	classScope
)

// classify reports what kind of value st expects, when all alternatives
// agree.
func classify(r *resolver.Resolver, st *resolver.ScopedType) valueClass {
	class := classOther

	for i, m := range st.Each() {
		got := classOf(r.Structural(m.Type))
		if i > 0 && got != class {
			return classOther
		}

		class = got
	}

	return class
}

func classOf(t *schema.Type) valueClass {
	switch t.Kind {
	case schema.KindUnion:
		class := classOther

		for i, m := range t.Members {
			got := classOf(m.Unwrap())
			if i > 0 && got != class {
				return classOther
			}

			class = got
		}

		return class
	case schema.KindLiteral, schema.KindLiteralSet:
		return classSet
	case schema.KindSimple:
		if t.Simple == cwt.KindScopeField {
			return classScope
		}
	case schema.KindReference:
		switch t.Ref.Kind {
		case schema.RefEnum, schema.RefComplexEnum, schema.RefType, schema.RefTypeWithAffix, schema.RefValue:
			return classSet
		case schema.RefScope, schema.RefScopeGroup:
			return classScope
		}
	}

	return classOther
}

// expected lists the words a set-valued type accepts.
func expected(r *resolver.Resolver, st *resolver.ScopedType) []string {
	expanded := r.Expand(st)

	var out []string

	var collect func(t *schema.Type)
	collect = func(t *schema.Type) {
		t = t.Unwrap()

		switch t.Kind {
		case schema.KindLiteral:
			out = append(out, t.Literal)
		case schema.KindLiteralSet:
			out = append(out, t.Literals...)
		case schema.KindUnion:
			for _, m := range t.Members {
				collect(m)
			}
		}
	}

	for _, m := range expanded.Each() {
		collect(m.Type)
	}

	slices.Sort(out)

	return slices.Compact(out)
}

func describe(st *resolver.ScopedType) string {
	if st.IsUnion() {
		parts := make([]string, 0, len(st.Members))
		for _, m := range st.Members {
			parts = append(parts, m.Type.String())
		}

		return strings.Join(parts, " or ")
	}

	return st.Type.String()
}

func keyDiagnostic(span cw.Span, err error) Diagnostic {
	d := Diagnostic{Span: span, Severity: SeverityError, Message: err.Error(), Code: CodeUnknownKey}

	switch {
	case errors.Is(err, scope.ErrOverflow):
		d.Code = CodeScopeOverflow
	case errors.Is(err, resolver.ErrInvalidLink), errors.Is(err, resolver.ErrInvalidScopePath):
		d.Code = CodeInvalidScopePath
	case errors.Is(err, resolver.ErrUnknownKey):
	default:
		var se *scope.Error
		if errors.As(err, &se) {
			d.Code = CodeInvalidScopePath
		}
	}

	return d
}

func scopeDiagnostic(span cw.Span, err error) Diagnostic {
	d := Diagnostic{Span: span, Severity: SeverityError, Message: err.Error(), Code: CodeInvalidScopePath}
	if errors.Is(err, scope.ErrOverflow) {
		d.Code = CodeScopeOverflow
	}

	return d
}

func unknownVariable(v *model.String) Diagnostic {
	return Diagnostic{
		Span:     v.Span(),
		Severity: SeverityError,
		Message:  "unknown scripted variable " + v.Text,
		Code:     CodeUnknownVariable,
	}
}

// ----------------------------------------------------------------------------
// Rule: unknown-scripted-variable
// ----------------------------------------------------------------------------

var scriptedVariableRule = &Rule{
	Name:     "unknown-scripted-variable",
	Doc:      "Reports @variables that are not defined, outside typed entities.",
	Severity: SeverityError,
	Run:      checkScriptedVariables,
}

func checkScriptedVariables(p *Pass) {
	if p.File.Model == nil {
		return
	}

	// Typed entities are covered by type-check, which knows when @ is text.
	typed := make(map[*model.Entity]bool)

	if p.Resolver != nil {
		for _, ent := range p.File.Symbols.Entities {
			if ent.Entity.Type != nil && ent.Entity.Entity != nil {
				typed[ent.Entity.Entity] = true
			}
		}
	}

	if typed[p.File.Model.Entity] {
		return
	}

	var walk func(e *model.Entity, depth int)

	check := func(v model.Value, depth int) {
		switch v := v.(type) {
		case *model.String:
			if v.IsScriptedVariable() && !p.hasVariable(v.Text) {
				p.Report(unknownVariable(v))
			}
		case *model.Entity:
			if !typed[v] {
				walk(v, depth+1)
			}
		}
	}

	walk = func(e *model.Entity, depth int) {
		if depth > maxDepth {
			return
		}

		for _, list := range e.Properties.All() {
			for _, prop := range list {
				check(prop.Value, depth)
			}
		}

		for _, v := range e.Items {
			check(v, depth)
		}

		for _, cond := range e.Conditionals {
			if cond.Body != nil {
				walk(cond.Body, depth+1)
			}
		}
	}

	walk(p.File.Model.Entity, 0)
}

// ----------------------------------------------------------------------------
// Rule: duplicate-entity
// ----------------------------------------------------------------------------

var duplicateEntityRule = &Rule{
	Name:     "duplicate-entity",
	Doc:      "Reports entities defined twice in namespaces that do not allow overriding.",
	Severity: SeverityWarning,
	Run:      checkDuplicateEntities,
}

func checkDuplicateEntities(p *Pass) {
	if p.Game.MergeMode(p.Namespace()).Kind != cw.MergeNone {
		return
	}

	seen := make(map[string]map[interner.Spur]*EntitySymbol)

	for _, ent := range p.File.Symbols.Entities {
		def := ent.Entity.Type
		if def == nil || def.TypePerFile || def.NameField != "" || ent.Entity.Info == nil {
			continue
		}

		byKey, ok := seen[def.Name]
		if !ok {
			byKey = make(map[interner.Spur]*EntitySymbol)
			seen[def.Name] = byKey
		}

		k := interner.Intern(ent.Entity.Key)
		if first, ok := byKey[k]; ok {
			p.Report(Diagnostic{
				Span:     ent.KeySpan,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("duplicate %s %s (first defined at line %d)", def.Name, ent.Entity.Key, first.KeySpan.Start.Line),
				Code:     CodeDuplicateEntity,
			})

			continue
		}

		byKey[k] = ent
	}
}
