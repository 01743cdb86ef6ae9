package gamedata

import (
	"path"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
	"github.com/rlch/cw/schema"
)

// Entity is a top-level entity after restructuring.
type Entity struct {
	// Name identifies the entity: its key, the value of the type's
	// name_field, or the file name for type_per_file types. Repeated names
	// within a type get _2, _3, ... suffixes.
	Name string

	// Key is the key the entity was written under.
	Key string

	Namespace string
	Type      *schema.TypeDefinition
	Entity    *model.Entity
	Info      *model.PropertyInfo
}

// Entities is the restructured content of one namespace.
type Entities struct {
	Namespace string
	List      []*Entity

	keys      interner.Set
	values    interner.Set
	variables map[interner.Spur]model.Value
}

// Keys returns the entity names.
func (e *Entities) Keys() interner.Set { return e.keys }

// Values returns the namespace's bare items, for flat enums.
func (e *Entities) Values() interner.Set { return e.values }

// Variables returns the namespace's scripted variables.
func (e *Entities) Variables() map[interner.Spur]model.Value { return e.variables }

// Restructured is every namespace of an index reshaped per the schema.
type Restructured struct {
	Index *Index

	namespaces map[string]*Entities
	types      map[string]interner.Set
	byType     map[string]map[interner.Spur]*Entity
}

// Restructure applies each type's skip_root_key, type_per_file,
// name_field, starts_with and type_key_filter rules to the index.
// Restructuring is a pure function of its inputs.
func Restructure(ix *Index, s *schema.Analyzer, log *zap.Logger) *Restructured {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Restructured{
		Index:      ix,
		namespaces: make(map[string]*Entities),
		types:      make(map[string]interner.Set),
		byType:     make(map[string]map[interner.Spur]*Entity),
	}

	var defs []*schema.TypeDefinition
	if s != nil {
		defs = s.Types()
	}

	for _, name := range ix.Namespaces() {
		ns, _ := ix.Namespace(name)
		r.namespaces[name] = r.restructureNamespace(ns, defs)
	}

	for _, d := range defs {
		if _, ok := r.types[d.Name]; !ok {
			r.types[d.Name] = make(interner.Set)
		}
	}

	log.Debug("restructured entities", zap.Int("namespaces", len(r.namespaces)), zap.Int("types", len(r.types)))

	return r
}

func (r *Restructured) restructureNamespace(ns *model.Namespace, defs []*schema.TypeDefinition) *Entities {
	out := &Entities{
		Namespace: ns.Name,
		keys:      make(interner.Set),
		values:    make(interner.Set),
		variables: r.Index.Variables(ns.Name),
	}

	for _, v := range ns.Values {
		if s, ok := model.AsString(v); ok {
			out.values.Insert(s.Text)
		}
	}

	typed := false

	for _, d := range defs {
		mods := matchingModules(ns, d)
		if len(mods) == 0 {
			continue
		}

		typed = true
		b := &builder{out: out, def: d, counts: make(map[interner.Spur]int)}

		switch {
		case d.TypePerFile:
			for _, m := range mods {
				name := strings.TrimSuffix(m.Filename, path.Ext(m.Filename))
				b.add(name, name, m.Entity, nil)
			}
		case len(mods) == len(ns.Modules()):
			b.collect(ns.Properties, 0)
		default:
			for _, m := range mods {
				b.collect(m.Properties, 0)
			}
		}

		r.record(d, b.entities)
	}

	if !typed {
		b := &builder{out: out, counts: make(map[interner.Spur]int)}
		b.collect(ns.Properties, 0)
	}

	return out
}

func (r *Restructured) record(d *schema.TypeDefinition, entities []*Entity) {
	keys, ok := r.types[d.Name]
	if !ok {
		keys = make(interner.Set)
		r.types[d.Name] = keys
		r.byType[d.Name] = make(map[interner.Spur]*Entity)
	}

	for _, e := range entities {
		k := keys.Insert(e.Name)

		if _, dup := r.byType[d.Name][k]; !dup {
			r.byType[d.Name][k] = e
		}
	}
}

func matchingModules(ns *model.Namespace, d *schema.TypeDefinition) []*model.Module {
	var out []*model.Module

	for _, m := range ns.Modules() {
		if d.MatchesPath(ns.Name + "/" + m.Filename) {
			out = append(out, m)
		}
	}

	return out
}

type builder struct {
	out      *Entities
	def      *schema.TypeDefinition
	counts   map[interner.Spur]int
	entities []*Entity
}

// collect walks props at a nesting level below the file root, descending
// through skip_root_key wrappers.
func (b *builder) collect(props *model.Properties, level int) {
	skip := b.skip()

	for _, list := range props.All() {
		for _, p := range list {
			if strings.HasPrefix(p.Key, "@") {
				continue
			}

			e, ok := model.AsEntity(p.Value)

			if skip != nil && ok && b.descends(p.Key, level) {
				b.collect(e.Properties, level+1)

				continue
			}

			if skip != nil && level == 0 {
				continue
			}

			if !ok || (b.def != nil && !b.def.AcceptsKey(p.Key)) {
				continue
			}

			name := p.Key

			if b.def != nil && b.def.NameField != "" {
				if v, ok := e.Only(b.def.NameField); ok && model.Text(v) != "" {
					name = model.Text(v)
				}
			}

			b.add(name, p.Key, e, p)
		}
	}
}

func (b *builder) skip() *schema.SkipRootKey {
	if b.def == nil {
		return nil
	}

	return b.def.SkipRootKey
}

// descends reports whether a wrapper key at level is stepped through.
// Single-level rules apply at the root only; a key list applies at every
// level.
func (b *builder) descends(key string, level int) bool {
	skip := b.skip()

	if level > 0 && skip.Kind != schema.SkipMultiple {
		return false
	}

	return skip.Skips(key)
}

func (b *builder) add(name, key string, e *model.Entity, info *model.PropertyInfo) {
	k := interner.Intern(name)

	b.counts[k]++
	if n := b.counts[k]; n > 1 {
		name += "_" + strconv.Itoa(n)
	}

	ent := &Entity{Name: name, Key: key, Namespace: b.out.Namespace, Type: b.def, Entity: e, Info: info}

	b.out.List = append(b.out.List, ent)
	b.out.keys.Insert(name)
	b.entities = append(b.entities, ent)
}

// Namespace returns the restructured entities of a namespace.
func (r *Restructured) Namespace(name string) (*Entities, bool) {
	e, ok := r.namespaces[name]

	return e, ok
}

// EntityKeys returns the entity names of a namespace.
func (r *Restructured) EntityKeys(namespace string) interner.Set {
	if e, ok := r.namespaces[namespace]; ok {
		return e.keys
	}

	return nil
}

// TypeKeys returns the names of every entity of a type. ok is false for
// types the schema does not define.
func (r *Restructured) TypeKeys(typeName string) (interner.Set, bool) {
	k, ok := r.types[typeName]

	return k, ok
}

// Lookup returns the entity of a type called name.
func (r *Restructured) Lookup(typeName, name string) (*Entity, bool) {
	k, ok := interner.Get(name)
	if !ok {
		return nil, false
	}

	e, ok := r.byType[typeName][k]

	return e, ok
}

// EntitiesOf returns every entity of a type in namespace order.
func (r *Restructured) EntitiesOf(typeName string) []*Entity {
	var out []*Entity

	for _, name := range r.Index.Namespaces() {
		for _, e := range r.namespaces[name].List {
			if e.Type != nil && e.Type.Name == typeName {
				out = append(out, e)
			}
		}
	}

	return out
}

// All returns every entity in namespace order.
func (r *Restructured) All() []*Entity {
	var out []*Entity

	for _, name := range r.Index.Namespaces() {
		out = append(out, r.namespaces[name].List...)
	}

	return slices.Clip(out)
}

// ModuleEntities restructures one module on its own, against the type
// definitions whose path matches it. An entity accepted by several
// definitions is reported once, for the first. Documents being edited are
// diagnosed this way without rebuilding the index.
func ModuleEntities(m *model.Module, s *schema.Analyzer) []*Entity {
	if s == nil {
		return nil
	}

	out := &Entities{
		Namespace: m.Namespace,
		keys:      make(interner.Set),
		values:    make(interner.Set),
	}

	seen := make(map[*model.Entity]bool)

	var result []*Entity

	for _, d := range s.Types() {
		if !d.MatchesPath(m.Namespace + "/" + m.Filename) {
			continue
		}

		b := &builder{out: out, def: d, counts: make(map[interner.Spur]int)}

		if d.TypePerFile {
			name := strings.TrimSuffix(m.Filename, path.Ext(m.Filename))
			b.add(name, name, m.Entity, nil)
		} else {
			b.collect(m.Properties, 0)
		}

		for _, e := range b.entities {
			if seen[e.Entity] {
				continue
			}

			seen[e.Entity] = true
			result = append(result, e)
		}
	}

	return result
}
