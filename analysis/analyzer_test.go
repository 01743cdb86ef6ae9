package analysis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/schema"
)

const rules = `scopes = {
	Country = { aliases = { country } }
	Planet = { aliases = { planet } }
	Ship = { aliases = { ship } }
}

links = {
	owner = {
		input_scopes = { planet ship }
		output_scope = Country
	}
	capital_scope = {
		input_scopes = { country }
		output_scope = planet
	}
}

types = {
	type[building] = {
		path = "game/common/buildings"
		subtype[hidden] = {
			hidden = yes
		}
	}
	type[trait] = {
		path = "game/common/traits"
	}
	type[scripted_effect] = {
		path = "game/common/scripted_effects"
	}
}

enums = {
	enum[size] = { small large }
}

building = {
	name = localisation
	hidden = bool
	cost = int[0..100]
	size = enum[size]
	potential = single_alias_right[trigger_clause]
	subtype[hidden] = {
		secret = bool
	}
}

trait = {
	cost = int
}

scripted_effect = {
	alias_name[effect] = alias_match_left[effect]
}

alias[effect:add_resource] = {
	amount = int
}

alias[trigger:exists] = scope[any]
alias[trigger:is_capital] = bool

single_alias[trigger_clause] = {
	alias_name[trigger] = alias_match_left[trigger]
}
`

func schemaFor(t *testing.T) *schema.Analyzer {
	t.Helper()

	return compile(t, rules)
}

func compile(t *testing.T, src string) *schema.Analyzer {
	t.Helper()

	f, err := cwt.ParseString("rules.cwt", src)
	require.NoError(t, err)

	a := schema.Analyze(f)
	require.Empty(t, a.Errors())

	return a
}

// analyzerFor builds an analyzer over src rules with no game data.
func analyzerFor(t *testing.T, src string) *analysis.Analyzer {
	t.Helper()

	return analysis.NewAnalyzer(cw.Stellaris, compile(t, src), nil)
}

// staticData serves a fixed snapshot.
type staticData struct {
	snap *gamedata.Snapshot
}

func (d staticData) Snapshot() (*gamedata.Snapshot, error) { return d.snap, nil }

func mod(t *testing.T, rel, src string) *model.Module {
	t.Helper()

	m, err := module.NewLoader(cw.Stellaris).Parse(rel, []byte(src))
	require.NoError(t, err)

	return m
}

// newAnalyzer builds an analyzer over the test schema and a game made of
// mods.
func newAnalyzer(t *testing.T, mods ...*model.Module) *analysis.Analyzer {
	t.Helper()

	s := schemaFor(t)

	snap, err := gamedata.NewSnapshot(context.Background(), gamedata.NewIndex(cw.Stellaris, mods...), s, nil)
	require.NoError(t, err)

	return analysis.NewAnalyzer(cw.Stellaris, s, staticData{snap})
}

func analyze(t *testing.T, rel, src string) *analysis.AnalyzedFile {
	t.Helper()

	return newAnalyzer(t).Analyze(rel, []byte(src))
}

func codes(f *analysis.AnalyzedFile) []string {
	out := make([]string, 0, len(f.Diagnostics))
	for _, d := range f.Diagnostics {
		out = append(out, d.Code)
	}

	return out
}

func diagnostic(t *testing.T, f *analysis.AnalyzedFile, code string) analysis.Diagnostic {
	t.Helper()

	for _, d := range f.Diagnostics {
		if d.Code == code {
			return d
		}
	}

	require.Failf(t, "missing diagnostic", "no %s in %v", code, f.Diagnostics)

	return analysis.Diagnostic{}
}

func TestAnalyze_ParseError(t *testing.T) {
	t.Parallel()

	f := analyze(t, "common/buildings/b.txt", "b = {\n\tcost = 1\n")

	require.Error(t, f.ParseError)
	assert.Nil(t, f.Module)
	assert.Nil(t, f.Model)

	d := diagnostic(t, f, analysis.CodeParseError)
	assert.Equal(t, analysis.SeverityError, d.Severity)
	assert.Equal(t, "cw", d.Source)
}

func TestAnalyze_Symbols(t *testing.T) {
	t.Parallel()

	f := analyze(t, "common/buildings/b.txt", `@cost = 10
b1 = { cost = @cost }
b2 = { hidden = yes }
`)
	require.NoError(t, f.ParseError)
	assert.Empty(t, f.Diagnostics)

	require.Len(t, f.Symbols.Entities, 2)
	assert.Equal(t, "b1", f.Symbols.Entities[0].Name)
	assert.Equal(t, "building", f.Symbols.Entities[0].Type)
	assert.Equal(t, "b2", f.Symbols.Entities[1].Name)

	v, ok := f.Symbols.Variable("@COST")
	require.True(t, ok)
	assert.Equal(t, "10", v.Value.String())
	assert.Equal(t, "common/buildings", f.Model.Namespace)
}

func TestAnalyze_UntypedNamespace(t *testing.T) {
	t.Parallel()

	f := analyze(t, "common/misc/m.txt", `thing = { a = 1 }`)

	require.Len(t, f.Symbols.Entities, 1)
	assert.Empty(t, f.Symbols.Entities[0].Type)
	assert.Empty(t, f.Diagnostics)
}

func TestAnalyze_WithoutSchema(t *testing.T) {
	t.Parallel()

	a := analysis.NewAnalyzer(nil, nil, nil)
	assert.Same(t, cw.Stellaris, a.Game())

	f := a.Analyze("common/buildings/b.txt", []byte(`@x = 1
b = { cost = @x other = @y }
`))

	assert.Equal(t, []string{analysis.CodeUnknownVariable}, codes(f))
	assert.Contains(t, f.Diagnostics[0].Message, "@y")
}

func TestAnalyze_VariablesFromGameData(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(t,
		mod(t, "common/scripted_variables/00_vars.txt", `@global_cost = 20`),
		mod(t, "common/buildings/00_other.txt", `@shared_cost = 30`),
	)

	f := a.Analyze("common/buildings/b.txt", []byte(`b = { cost = @global_cost }
c = { cost = @shared_cost }
`))
	assert.Empty(t, f.Diagnostics)

	f = a.Analyze("common/traits/t.txt", []byte(`t = { cost = @shared_cost }`))
	assert.Equal(t, []string{analysis.CodeUnknownVariable}, codes(f))
}

func TestAnalyze_CustomRules(t *testing.T) {
	t.Parallel()

	var seen []string

	rule := &analysis.Rule{
		Name: "count",
		Run: func(p *analysis.Pass) {
			for _, e := range p.File.Symbols.Entities {
				seen = append(seen, e.Name)
			}
		},
	}

	a := analysis.NewAnalyzerWithRules(cw.Stellaris, schemaFor(t), nil, []*analysis.Rule{rule})
	f := a.Analyze(`common\buildings\b.txt`, []byte(`a = { } b = { }`))

	assert.Equal(t, "common/buildings/b.txt", f.Path)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Empty(t, f.Diagnostics)
}

func TestAnalyzedFile_Lines(t *testing.T) {
	t.Parallel()

	f := analyze(t, "common/misc/m.txt", "a = 1\nb = 2\n")
	assert.Equal(t, 3, f.Lines().Lines())
	assert.True(t, strings.HasPrefix(string(f.Content), "a = 1"))
}
