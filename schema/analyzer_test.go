package schema_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/schema"
)

func analyze(t *testing.T, src string) *schema.Analyzer {
	t.Helper()

	f, err := cwt.ParseString("test.cwt", src)
	require.NoError(t, err)

	return schema.Analyze(f)
}

func TestAnalyzer_TypeWithBody(t *testing.T) {
	t.Parallel()

	a := analyze(t, `types = {
	## type_key_filter = { building_a building_b }
	type[building] = {
		path = "game/common/buildings"
		name_field = "key"
		subtype[capital] = {
			capital = yes
		}
		subtype[hidden] = {
			## cardinality = 0..0
			visible = scalar
		}
		localisation = {
			## required
			name = "$"
			subtype[capital] = {
				capital_desc = "$_capital"
			}
		}
		modifiers = {
			"$_cost_mult" = country
		}
	}
}

building = {
	name = localisation
	## cardinality = 0..1
	cost == int[0..100]
	<building> = bool
	subtype[capital] = {
		capital_bonus = float
	}
	flag_a
	flag_b
}
`)

	def, ok := a.Type("BUILDING")
	require.True(t, ok, "type names are case-insensitive")
	assert.Equal(t, []string{"common/buildings"}, def.Paths)
	assert.Equal(t, "key", def.NameField)
	assert.Equal(t, []string{"building_a", "building_b"}, def.Options.TypeKeyFilter)
	assert.True(t, def.AcceptsKey("building_a"))
	assert.False(t, def.AcceptsKey("building_c"))

	require.Len(t, def.Localisation, 2)
	assert.True(t, def.Localisation[0].Required)
	assert.Equal(t, "capital", def.Localisation[1].Subtype)
	require.Len(t, def.Modifiers, 1)
	assert.Equal(t, "country", def.Modifiers[0].Category)

	blk := def.Block()
	require.NotNil(t, blk)
	assert.Equal(t, "building", blk.Name)

	name, ok := blk.Property("name")
	require.True(t, ok)
	assert.Equal(t, "localisation", name.Type.String())

	cost, ok := blk.Property("cost")
	require.True(t, ok)
	assert.Equal(t, schema.KindComparable, cost.Type.Kind)
	assert.Equal(t, "int[0..100]", cost.Type.Unwrap().String())
	assert.True(t, cost.Options.Cardinality.Optional())

	require.Len(t, blk.Patterns, 1)
	assert.Equal(t, "<building>", blk.Patterns[0].Key.String())
	assert.Equal(t, []string{"flag_a", "flag_b"}, []string{blk.Flags[0].Literal, blk.Flags[1].Literal})

	require.Len(t, blk.Subtypes, 2)
	capital := blk.Subtypes[0]
	assert.Equal(t, "capital", capital.Name)
	assert.Equal(t, []schema.Condition{{Kind: schema.CondEquals, Key: "capital", Value: "yes"}}, capital.Conditions)

	_, ok = capital.Block.Property("capital_bonus")
	assert.True(t, ok)

	hidden := blk.Subtypes[1]
	assert.Equal(t, []schema.Condition{{Kind: schema.CondNotExists, Key: "visible"}}, hidden.Conditions)
}

func TestAnalyzer_SkipRootKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules string
		want  *schema.SkipRootKey
	}{
		{"specific", "skip_root_key = variant", &schema.SkipRootKey{Kind: schema.SkipSpecific, Keys: []string{"variant"}}},
		{"any", "skip_root_key = any", &schema.SkipRootKey{Kind: schema.SkipAny}},
		{"except", "skip_root_key != tech_group skip_root_key != military_group", &schema.SkipRootKey{
			Kind: schema.SkipExcept, Keys: []string{"tech_group", "military_group"},
		}},
		{"block", "skip_root_key = { a b }", &schema.SkipRootKey{Kind: schema.SkipMultiple, Keys: []string{"a", "b"}}},
		{"repeated", "skip_root_key = a skip_root_key = b", &schema.SkipRootKey{Kind: schema.SkipMultiple, Keys: []string{"a", "b"}}},
		{"none", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := analyze(t, `types = { type[skip_`+tt.name+`] = { path = "game/common/x" `+tt.rules+` } }`)

			def, ok := a.Type("skip_" + tt.name)
			require.True(t, ok)

			if diff := cmp.Diff(tt.want, def.SkipRootKey); diff != "" {
				t.Errorf("skip_root_key mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSkipRootKey_Skips(t *testing.T) {
	t.Parallel()

	except := &schema.SkipRootKey{Kind: schema.SkipExcept, Keys: []string{"tech_group"}}
	assert.True(t, except.Skips("other"))
	assert.False(t, except.Skips("TECH_GROUP"))

	multiple := &schema.SkipRootKey{Kind: schema.SkipMultiple, Keys: []string{"a", "b"}}
	assert.True(t, multiple.Skips("b"))
	assert.False(t, multiple.Skips("c"))

	assert.True(t, (&schema.SkipRootKey{Kind: schema.SkipAny}).Skips("anything"))
}

func TestTypeDefinition_MatchesPath(t *testing.T) {
	t.Parallel()

	def := &schema.TypeDefinition{Paths: []string{"common/ship_designs"}}
	assert.True(t, def.MatchesPath("common/ship_designs/00_designs.txt"))
	assert.True(t, def.MatchesPath("common/ship_designs/sub/x.txt"))
	assert.False(t, def.MatchesPath("common/buildings/x.txt"))

	def.PathStrict = true
	assert.False(t, def.MatchesPath("common/ship_designs/sub/x.txt"))

	def.PathExtension = ".asset"
	assert.False(t, def.MatchesPath("common/ship_designs/x.txt"))
	assert.True(t, def.MatchesPath("common/ship_designs/x.asset"))
}

func TestAnalyzer_Enums(t *testing.T) {
	t.Parallel()

	a := analyze(t, `enums = {
	enum[weapon_type] = { missile energy missile }
	complex_enum[tradition_swap] = {
		path = "game/common/traditions"
		start_from_root = no
		name = {
			tradition_swap = {
				name = enum_name
			}
		}
	}
}
enum[weapon_type] = { kinetic }
`)

	e, ok := a.Enum("weapon_type")
	require.True(t, ok)
	assert.Equal(t, []string{"missile", "energy", "kinetic"}, e.Values)
	assert.True(t, e.Set.Has(interner.Intern("KINETIC")))

	ce, ok := a.ComplexEnum("tradition_swap")
	require.True(t, ok)
	assert.Equal(t, []string{"common/traditions"}, ce.Paths)
	assert.False(t, ce.StartFromRoot)
	require.True(t, ce.Structure.IsBlock())

	swap, ok := ce.Structure.Block.Property("tradition_swap")
	require.True(t, ok)

	inner, ok := swap.Type.Block.Property("name")
	require.True(t, ok)
	assert.Equal(t, schema.EnumNameMarker, inner.Type.Literal)
}

func TestAnalyzer_Aliases(t *testing.T) {
	t.Parallel()

	a := analyze(t, `## push_scope = country
alias[trigger:owner_is] = scope[country]
alias[trigger:exists] = scope[any]
alias[Trigger:exists] = bool
alias[effect:<scripted_effect>] = bool
alias[effect:enum[weapon_type]] = int
alias[effect:pre_<ship_size>] = yes
single_alias[trigger_clause] = { alias_name[trigger] = alias_match_left[trigger] }
`)

	triggers := a.Aliases("TRIGGER")
	require.Len(t, triggers, 2, "categories fold case and repeated names union")

	assert.Equal(t, "country", triggers[0].Options.PushScope)
	assert.Equal(t, schema.KindUnion, triggers[1].Type.Kind)
	assert.Equal(t, "scope[any] | bool", triggers[1].Type.String())

	effects := a.Aliases("effect")
	require.Len(t, effects, 3)
	assert.Equal(t, schema.AliasName{Kind: schema.AliasTypeRef, Name: "scripted_effect"}, effects[0].Name)
	assert.Equal(t, schema.AliasName{Kind: schema.AliasEnum, Name: "weapon_type"}, effects[1].Name)
	assert.Equal(t, schema.AliasName{Kind: schema.AliasTypeRefWithAffix, Name: "ship_size", Prefix: "pre_"}, effects[2].Name)

	clause, ok := a.SingleAlias("trigger_clause")
	require.True(t, ok)
	require.True(t, clause.IsBlock())
	require.Len(t, clause.Block.Patterns, 1)
	assert.Equal(t, "alias_name[trigger]", clause.Block.Patterns[0].Key.String())
	assert.Equal(t, "alias_match_left[trigger]", clause.Block.Patterns[0].Value.String())
}

func TestAnalyzer_ScopesAndLinks(t *testing.T) {
	t.Parallel()

	links := analyze(t, `links = {
	owner = {
		desc = "Owner"
		input_scopes = { planet ship }
		output_scope = Country
	}
	event_target = {
		from_data = yes
		prefix = event_target:
		output_scope = any
	}
}`)

	// Links read before the scopes section are canonicalised once it loads.
	f, err := cwt.ParseString("scopes.cwt", `scopes = {
	Country = { aliases = { country } }
	Planet = { aliases = { planet } }
	Ship = { aliases = { ship } }
	"Pop Faction" = { aliases = { pop_faction } }
}
scope_groups = {
	celestial = { planet ship }
}`)
	require.NoError(t, err)
	links.AddFile(f)

	id, ok := links.ResolveScopeName("Pop Faction")
	require.True(t, ok)
	assert.Equal(t, interner.Intern("pop_faction"), id)
	assert.Equal(t, "Pop Faction", links.ScopeName(id))

	_, ok = links.ResolveScopeName("galaxy")
	assert.False(t, ok)

	owner, ok := links.Link("owner")
	require.True(t, ok)
	assert.Equal(t, interner.Intern("country"), owner.OutputScope)
	assert.True(t, owner.AcceptsInput(interner.Intern("planet")))
	assert.False(t, owner.AcceptsInput(interner.Intern("country")))

	target, ok := links.Link("event_target:my_target")
	require.True(t, ok)
	assert.Equal(t, "event_target", target.Name)

	assert.Len(t, links.LinksFrom(interner.Intern("country")), 0)
	assert.Len(t, links.LinksFrom(interner.Intern("unknown")), 1)

	group, ok := links.ScopeGroup("celestial")
	require.True(t, ok)
	assert.Equal(t, []interner.Spur{interner.Intern("planet"), interner.Intern("ship")}, group)

	stats := links.Stats()
	assert.Equal(t, 4, stats.Scopes)
	assert.Equal(t, 2, stats.Links)
}

func TestAnalyzer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		kind schema.ErrorKind
	}{
		{"cardinality", "## cardinality = 3..1\nrule = int", schema.InvalidCardinality},
		{"alias format", "alias[no_colon] = int", schema.InvalidAliasFormat},
		{"enum format", "enums = { enum[e] = int }", schema.InvalidEnumFormat},
		{"complex enum path", "enums = { complex_enum[c] = { name = { enum_name } } }", schema.InvalidComplexEnum},
		{"link format", "links = { owner = country }", schema.InvalidLinkFormat},
		{"scope format", "scopes = { Country = yes }", schema.InvalidScopeFormat},
		{"type without path", "types = { type[t] = { } }", schema.InvalidTypeDefinition},
		{"subtype format", "x = { subtype[s] = int }", schema.InvalidSubtypeFormat},
		{"unknown scope", "scopes = { Country = { } } links = { l = { output_scope = galaxy } }", schema.MissingReference},
		{"nested type", "x = { type[t] = { } }", schema.UnsupportedFeature},
		{"top-level bare value", "loose", schema.InvalidRuleDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := analyze(t, tt.src)

			errs := a.Errors()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.kind, errs[0].Kind, errs[0].Error())
			assert.Equal(t, len(errs), a.Stats().Errors)
		})
	}
}

func TestAnalyzer_RepeatedKeysUnion(t *testing.T) {
	t.Parallel()

	a := analyze(t, `thing = {
	modifier = { factor = float }
	modifier = int
	list = { <building> }
	words = { a b c }
}`)

	rule, ok := a.Rule("thing")
	require.True(t, ok)

	modifier, ok := rule.Type.Block.Property("modifier")
	require.True(t, ok)
	assert.Equal(t, schema.KindUnion, modifier.Type.Kind)
	assert.Len(t, modifier.Type.Members, 2)

	list, _ := rule.Type.Block.Property("list")
	assert.Equal(t, schema.KindArray, list.Type.Kind)
	assert.Equal(t, "<building>", list.Type.Elem.String())

	words, _ := rule.Type.Block.Property("words")
	assert.Equal(t, "{ a | b | c ... }", words.Type.String())
}

func TestUnionOf(t *testing.T) {
	t.Parallel()

	assert.Same(t, schema.Unknown, schema.UnionOf())
	assert.Same(t, schema.Any, schema.UnionOf(nil, schema.Unknown, schema.Any))

	inner := schema.UnionOf(schema.LiteralOf("a"), schema.LiteralOf("b"))
	outer := schema.UnionOf(inner, schema.LiteralOf("c"))
	assert.Len(t, outer.Members, 3, "nested unions flatten")
}
