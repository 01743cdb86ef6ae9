package model

import (
	"slices"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// Conflict records an entity that a namespace refused to override.
type Conflict struct {
	Key  string
	Path string
}

// Namespace combines the modules of one directory. Modules are inserted in
// load order; same-named entities combine per the namespace's merge mode.
type Namespace struct {
	Name      string
	MergeMode cw.MergeMode

	Properties *Properties
	Values     []Value

	// Conflicts lists redefinitions rejected under MergeNone.
	Conflicts []Conflict

	modules []*Module
	keyed   map[string]bool
}

// NewNamespace returns an empty namespace.
func NewNamespace(name string, mode cw.MergeMode) *Namespace {
	return &Namespace{
		Name:       name,
		MergeMode:  mode,
		Properties: NewProperties(),
		keyed:      make(map[string]bool),
	}
}

// Insert adds a module. A module with the same filename as an earlier one
// replaces it, the way a mod file shadows the game file of the same name.
func (n *Namespace) Insert(m *Module) {
	if i := slices.IndexFunc(n.modules, func(o *Module) bool { return o.Filename == m.Filename }); i >= 0 {
		n.modules[i] = m
		n.rebuild()

		return
	}

	n.modules = append(n.modules, m)
	n.merge(m)
}

// Module returns the module with the given base name.
func (n *Namespace) Module(filename string) (*Module, bool) {
	i := slices.IndexFunc(n.modules, func(o *Module) bool { return o.Filename == filename })
	if i < 0 {
		return nil, false
	}

	return n.modules[i], true
}

// Modules returns the modules in load order.
func (n *Namespace) Modules() []*Module { return slices.Clone(n.modules) }

// Only returns the value of a key defined exactly once.
func (n *Namespace) Only(key string) (Value, bool) { return n.Properties.Get(key).Only() }

// Entity returns the effective entity named key.
func (n *Namespace) Entity(key string) (*Entity, bool) {
	last, ok := n.Properties.Get(key).Last()
	if !ok {
		return nil, false
	}

	return AsEntity(last.Value)
}

func (n *Namespace) rebuild() {
	n.Properties = NewProperties()
	n.Values = nil
	n.Conflicts = nil
	n.keyed = make(map[string]bool)

	for _, m := range n.modules {
		n.merge(m)
	}
}

func (n *Namespace) merge(m *Module) {
	n.Values = append(n.Values, m.Items...)

	for k, list := range m.Properties.All() {
		existing := n.Properties.GetSpur(k)

		if n.MergeMode.Kind == cw.MergeFIOSKeyed {
			n.mergeKeyed(k, existing, list)

			continue
		}

		if len(existing) == 0 {
			n.Properties.Set(k, slices.Clone(list))

			continue
		}

		switch n.MergeMode.Kind {
		case cw.MergeFIOS:
		case cw.MergeDuplicate:
			n.Properties.Set(k, append(slices.Clone(existing), list...))
		case cw.MergeNone:
			n.Conflicts = append(n.Conflicts, Conflict{Key: list[0].Key, Path: m.Path})
		case cw.MergeDeep:
			n.Properties.Set(k, combine(existing, list, MergeDeep))
		case cw.MergeShallow:
			n.Properties.Set(k, combine(existing, list, MergeShallow))
		default:
			// LIOS, and undocumented namespaces, keep the last definition.
			n.Properties.Set(k, slices.Clone(list))
		}
	}
}

// mergeKeyed keeps the first entity for each value of the mode's key field;
// entities without the field fall back to FIOS on their name.
func (n *Namespace) mergeKeyed(k interner.Spur, existing, list PropertyInfoList) {
	out := slices.Clone(existing)

	for _, p := range list {
		id := interner.Resolve(k)

		if e, ok := AsEntity(p.Value); ok {
			if v, ok := e.Only(n.MergeMode.Key); ok {
				id = "\x00" + Text(v)
			}
		}

		if n.keyed[id] {
			continue
		}

		n.keyed[id] = true
		out = append(out, p)
	}

	n.Properties.Set(k, out)
}

// combine merges each incoming entity into the last existing one. Non-entity
// values replace.
func combine(existing, incoming PropertyInfoList, fn func(dst, src *Entity) *Entity) PropertyInfoList {
	last, _ := existing.Last()
	acc := *last

	for _, p := range incoming {
		dst, ok1 := AsEntity(acc.Value)
		src, ok2 := AsEntity(p.Value)

		if !ok1 || !ok2 {
			acc = *p

			continue
		}

		acc.Value = fn(dst, src)
	}

	out := slices.Clone(existing[:len(existing)-1])

	return append(out, &acc)
}
