package cw

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownGame is returned when no game profile is registered under a name.
var ErrUnknownGame = errors.New("unknown game")

// MergeMode says how same-named entities from different files of a namespace
// combine when mods override the game.
type MergeMode struct {
	Kind MergeKind

	// Key is the field used to identify duplicates for MergeFIOSKeyed.
	Key string
}

// MergeKind enumerates merge strategies.
type MergeKind int

// Merge strategies.
const (
	// MergeUnknown means the engine behaviour was never documented.
	MergeUnknown MergeKind = iota
	// MergeLIOS keeps the last entity loaded (last in, only served).
	MergeLIOS
	// MergeFIOS keeps the first entity loaded (first in, only served).
	MergeFIOS
	// MergeFIOSKeyed is FIOS keyed on a field value instead of the entity name.
	MergeFIOSKeyed
	// MergeDeep merges same-named entities property by property, recursively.
	MergeDeep
	// MergeShallow is LIOS applied to the entity's properties instead of the
	// entity itself.
	MergeShallow
	// MergeDuplicate keeps every entity; the name maps to a list.
	MergeDuplicate
	// MergeNone forbids overriding individual entities; whole files must be
	// replaced.
	MergeNone
)

var mergeKindNames = [...]string{
	MergeUnknown:   "unknown",
	MergeLIOS:      "LIOS",
	MergeFIOS:      "FIOS",
	MergeFIOSKeyed: "FIOS-keyed",
	MergeDeep:      "merge",
	MergeShallow:   "merge-shallow",
	MergeDuplicate: "duplicate",
	MergeNone:      "no",
}

func (k MergeKind) String() string {
	if int(k) < len(mergeKindNames) {
		return mergeKindNames[k]
	}

	return fmt.Sprintf("MergeKind(%d)", int(k))
}

func (m MergeMode) String() string {
	if m.Kind == MergeFIOSKeyed {
		return fmt.Sprintf("%s(%s)", m.Kind, m.Key)
	}

	return m.Kind.String()
}

// FileRule selects script files under Dir (relative to a game or mod root)
// with one of Exts.
type FileRule struct {
	Dir  string
	Exts []string
}

// Game is a profile of one title: where its script lives, how its namespaces
// merge, and how to recognise an installation.
type Game struct {
	Name string

	// Markers are files whose presence identifies a game or mod root.
	Markers []string

	Files []FileRule

	// Namespaces with a documented merge mode. Unlisted namespaces are
	// MergeUnknown.
	MergeModes map[string]MergeMode

	// GlobalVariables is the namespace whose @variables are visible from
	// every file.
	GlobalVariables string

	// ScriptedEffects lists namespaces whose entities take $PARAM$ arguments.
	ScriptedEffects []string

	// RootScopes gives the scope entities of a namespace are evaluated in
	// when the schema does not push one.
	RootScopes map[string]string
}

// RootScope returns the default root scope of a namespace, or "" when
// unknown.
func (g *Game) RootScope(namespace string) string {
	return g.RootScopes[namespace]
}

// IsScriptedEffect reports whether namespace holds scripted effects or
// triggers.
func (g *Game) IsScriptedEffect(namespace string) bool {
	return slices.Contains(g.ScriptedEffects, namespace)
}

// MergeMode returns the merge mode of a namespace such as
// "common/static_modifiers".
func (g *Game) MergeMode(namespace string) MergeMode {
	return g.MergeModes[strings.TrimSpace(namespace)]
}

// Matches reports whether a slash-separated path relative to a root is a
// script file of this game.
func (g *Game) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	ext := path.Ext(rel)

	for _, r := range g.Files {
		if strings.HasPrefix(rel, r.Dir+"/") && slices.Contains(r.Exts, ext) {
			return true
		}
	}

	return false
}

// DetectRoot walks up from p to the nearest directory holding one of the
// game's marker files.
func (g *Game) DetectRoot(p string) (string, bool) {
	dir, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}

	for {
		for _, marker := range g.Markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}

		dir = parent
	}
}

var (
	gamesMu sync.RWMutex
	games   = make(map[string]*Game)
)

// RegisterGame registers a game profile by name, replacing any previous
// profile of that name.
func RegisterGame(g *Game) {
	gamesMu.Lock()
	defer gamesMu.Unlock()

	games[strings.ToLower(g.Name)] = g
}

// LookupGame returns the profile registered under name.
func LookupGame(name string) (*Game, error) {
	gamesMu.RLock()
	defer gamesMu.RUnlock()

	g, ok := games[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, name)
	}

	return g, nil
}

// RegisteredGames returns the names of all registered games, sorted.
func RegisteredGames() []string {
	gamesMu.RLock()
	defer gamesMu.RUnlock()

	names := make([]string, 0, len(games))
	for name := range games {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func lios() MergeMode      { return MergeMode{Kind: MergeLIOS} }
func fios() MergeMode      { return MergeMode{Kind: MergeFIOS} }
func duplicate() MergeMode { return MergeMode{Kind: MergeDuplicate} }

// Stellaris is the built-in Stellaris profile.
var Stellaris = &Game{
	Name:    "stellaris",
	Markers: []string{"stellaris.exe", "Stellaris.exe", "descriptor.mod"},
	Files: []FileRule{
		{Dir: "common", Exts: []string{".txt"}},
		{Dir: "events", Exts: []string{".txt"}},
		{Dir: "interface", Exts: []string{".gui", ".gfx"}},
		{Dir: "gfx", Exts: []string{".gfx", ".asset", ".txt"}},
		{Dir: "flags", Exts: []string{".txt"}},
		{Dir: "music", Exts: []string{".txt", ".asset"}},
		{Dir: "sound", Exts: []string{".txt", ".asset"}},
		{Dir: "map", Exts: []string{".txt"}},
	},
	MergeModes: map[string]MergeMode{
		"common/agendas":                      lios(),
		"common/agreement_term_values":        fios(),
		"common/anomalies":                    lios(),
		"common/armies":                       lios(),
		"common/artifact_actions":             lios(),
		"common/ascension_perks":              lios(),
		"common/attitudes":                    lios(),
		"common/bombardment_stances":          lios(),
		"common/defines":                      {Kind: MergeShallow},
		"common/on_actions":                   {Kind: MergeDeep},
		"common/special_projects":             {Kind: MergeFIOSKeyed, Key: "key"},
		"common/component_sets":               fios(),
		"common/component_templates":          fios(),
		"common/event_chains":                 fios(),
		"common/global_ship_designs":          fios(),
		"common/observation_station_missions": lios(),
		"common/opinion_modifiers":            duplicate(),
		"common/planet_classes":               duplicate(),
		"common/section_templates":            {Kind: MergeNone},
		"common/ship_behaviors":               fios(),
		"common/start_screen_messages":        fios(),
		"common/static_modifiers":             fios(),
		"common/strategic_resources":          fios(),
		"common/terraform":                    duplicate(),
		"common/traits":                       {Kind: MergeNone},
	},
	GlobalVariables: "common/scripted_variables",
	ScriptedEffects: []string{"common/scripted_effects", "common/scripted_triggers"},
	RootScopes: map[string]string{
		"common/buildings":           "planet",
		"common/districts":           "planet",
		"common/pop_jobs":            "pop",
		"common/edicts":              "country",
		"common/policies":            "country",
		"common/technology":          "country",
		"common/ascension_perks":     "country",
		"common/traditions":          "country",
		"common/component_templates": "ship",
		"common/ship_sizes":          "ship",
		"common/species_rights":      "species",
		"common/megastructures":      "megastructure",
	},
}

// Victoria3 is the built-in Victoria 3 profile. Its installation splits
// script between the game and the shared jomini framework.
var Victoria3 = &Game{
	Name:    "victoria3",
	Markers: []string{"launcher-settings.json", "descriptor.mod", ".metadata"},
	Files: []FileRule{
		{Dir: "game/common", Exts: []string{".txt"}},
		{Dir: "game/events", Exts: []string{".txt"}},
		{Dir: "game/interface", Exts: []string{".txt"}},
		{Dir: "game/gui", Exts: []string{".gui", ".gfx"}},
		{Dir: "game/gfx", Exts: []string{".gfx", ".asset", ".txt"}},
		{Dir: "game/map_data", Exts: []string{".txt"}},
		{Dir: "jomini/common", Exts: []string{".txt"}},
		{Dir: "jomini/gui", Exts: []string{".gui", ".gfx"}},
		{Dir: "common", Exts: []string{".txt"}},
		{Dir: "events", Exts: []string{".txt"}},
	},
	MergeModes:      map[string]MergeMode{},
	GlobalVariables: "common/scripted_variables",
	ScriptedEffects: []string{"common/scripted_effects", "common/scripted_triggers"},
}

func init() {
	RegisterGame(Stellaris)
	RegisterGame(Victoria3)
}
