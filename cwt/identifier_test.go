package cwt_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw/cwt"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		kind   cwt.Kind
		name   string
		prefix string
		suffix string
	}{
		{"building", cwt.KindPlain, "", "", ""},
		{"bool", cwt.KindBool, "", "", ""},
		{"int", cwt.KindInt, "", "", ""},
		{"scalar", cwt.KindScalar, "", "", ""},
		{"localisation", cwt.KindLocalisation, "", "", ""},
		{"scope_field", cwt.KindScopeField, "", "", ""},
		{"filepath", cwt.KindFilepathField, "", "", ""},
		{"<ship_size>", cwt.KindTypeRef, "ship_size", "", ""},
		{"pre_<ship_size>_suf", cwt.KindTypeRef, "ship_size", "pre_", "_suf"},
		{"enum[weapon_type]", cwt.KindEnum, "weapon_type", "", ""},
		{"complex_enum[tradition_swap]", cwt.KindComplexEnum, "tradition_swap", "", ""},
		{"scope[country]", cwt.KindScope, "country", "", ""},
		{"scope_group[celestial]", cwt.KindScopeGroup, "celestial", "", ""},
		{"alias[trigger:exists]", cwt.KindAlias, "trigger:exists", "", ""},
		{"alias[effect:<scripted_effect>]", cwt.KindAlias, "effect:<scripted_effect>", "", ""},
		{"alias_name[effect]", cwt.KindAliasName, "effect", "", ""},
		{"alias_match_left[effect]", cwt.KindAliasMatchLeft, "effect", "", ""},
		{"alias_keys_field[trigger]", cwt.KindAliasKeysField, "trigger", "", ""},
		{"single_alias_right[trigger_clause]", cwt.KindSingleAlias, "trigger_clause", "", ""},
		{"value[variable]", cwt.KindValue, "variable", "", ""},
		{"value_set[event_target]", cwt.KindValueSet, "event_target", "", ""},
		{"icon[gfx/interface/icons]", cwt.KindIcon, "gfx/interface/icons", "", ""},
		{"filepath[music/]", cwt.KindFilepath, "music/", "", ""},
		{"colour[rgb]", cwt.KindColour, "rgb", "", ""},
		{"stellaris_name_format[empire]", cwt.KindStellarisNameFormat, "empire", "", ""},
		{"type[building]", cwt.KindType, "building", "", ""},
		{"subtype[hidden]", cwt.KindSubtype, "hidden", "", ""},
		{"unknown_thing[x]", cwt.KindPlain, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			id := cwt.Classify(tt.text)
			assert.Equal(t, tt.kind, id.Kind)
			assert.Equal(t, tt.name, id.Name)
			assert.Equal(t, tt.prefix, id.Prefix)
			assert.Equal(t, tt.suffix, id.Suffix)
			assert.Equal(t, tt.text, id.Text)
		})
	}
}

func TestClassify_Ranges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		kind     cwt.Kind
		min, max float64
	}{
		{"int[0..10]", cwt.KindInt, 0, 10},
		{"int[-5..5]", cwt.KindInt, -5, 5},
		{"float[-inf..inf]", cwt.KindFloat, math.Inf(-1), math.Inf(1)},
		{"float[0.0...1.5]", cwt.KindFloat, 0, 1.5},
		{"value_field[0..inf]", cwt.KindValueField, 0, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			id := cwt.Classify(tt.text)
			assert.Equal(t, tt.kind, id.Kind)
			require.NotNil(t, id.Range)
			assert.Equal(t, tt.min, id.Range.Min)
			assert.Equal(t, tt.max, id.Range.Max)
		})
	}

	r := cwt.Classify("int[0..10]").Range
	assert.True(t, r.Contains(10))
	assert.False(t, r.Contains(11))
}

func TestClassify_Negated(t *testing.T) {
	t.Parallel()

	id := cwt.Classify("!<ship_size>")
	assert.True(t, id.Negated)
	assert.Equal(t, cwt.KindTypeRef, id.Kind)
	assert.Equal(t, "ship_size", id.Name)
}

func TestIdentifier_AliasParts(t *testing.T) {
	t.Parallel()

	id := cwt.Classify("alias[modifier_rule:has_modifier]")
	cat, name, ok := id.AliasParts()
	require.True(t, ok)
	assert.Equal(t, "modifier_rule", cat)
	assert.Equal(t, "has_modifier", name)
}

func TestKind_Predicates(t *testing.T) {
	t.Parallel()

	assert.True(t, cwt.KindBool.IsSimple())
	assert.True(t, cwt.KindIconField.IsSimple())
	assert.False(t, cwt.KindEnum.IsSimple())
	assert.True(t, cwt.KindEnum.IsReference())
	assert.False(t, cwt.KindPlain.IsReference())
	assert.Equal(t, "enum", cwt.KindEnum.String())
}
