package model

import (
	"iter"
	"slices"

	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
)

// PropertyInfo is one `key op value` occurrence.
type PropertyInfo struct {
	// Key keeps the surface form; lookups go through the interned handle.
	Key      string
	KeySpan  cw.Span
	Operator cw.Operator
	Value    Value
}

// PropertyInfoList holds every occurrence of a key in one block, in source
// order. Lists stored in Properties are never empty.
type PropertyInfoList []*PropertyInfo

// Values returns the values of the list.
func (l PropertyInfoList) Values() []Value {
	out := make([]Value, len(l))
	for i, p := range l {
		out[i] = p.Value
	}

	return out
}

// Only returns the value when the key occurs exactly once.
func (l PropertyInfoList) Only() (Value, bool) {
	if len(l) != 1 {
		return nil, false
	}

	return l[0].Value, true
}

// Last returns the final occurrence.
func (l PropertyInfoList) Last() (*PropertyInfo, bool) {
	if len(l) == 0 {
		return nil, false
	}

	return l[len(l)-1], true
}

// Properties maps interned keys to their occurrences. Keys iterate in order
// of first appearance.
type Properties struct {
	keys []interner.Spur
	kv   map[interner.Spur]PropertyInfoList
}

// NewProperties returns an empty map.
func NewProperties() *Properties {
	return &Properties{kv: make(map[interner.Spur]PropertyInfoList)}
}

// Add appends an occurrence of key and returns its index in the key's list.
func (p *Properties) Add(info *PropertyInfo) int {
	k := interner.Intern(info.Key)

	list, ok := p.kv[k]
	if !ok {
		p.keys = append(p.keys, k)
	}

	p.kv[k] = append(list, info)

	return len(list)
}

// Get returns the occurrences of key, compared case-insensitively.
func (p *Properties) Get(key string) PropertyInfoList {
	k, ok := interner.Get(key)
	if !ok {
		return nil
	}

	return p.kv[k]
}

// GetSpur returns the occurrences of an interned key.
func (p *Properties) GetSpur(k interner.Spur) PropertyInfoList {
	return p.kv[k]
}

// Has reports whether key occurs.
func (p *Properties) Has(key string) bool { return len(p.Get(key)) > 0 }

// Set replaces every occurrence of the list's key. An empty list deletes it.
func (p *Properties) Set(k interner.Spur, list PropertyInfoList) {
	if len(list) == 0 {
		p.Delete(k)

		return
	}

	if _, ok := p.kv[k]; !ok {
		p.keys = append(p.keys, k)
	}

	p.kv[k] = list
}

// Delete removes a key.
func (p *Properties) Delete(k interner.Spur) {
	if _, ok := p.kv[k]; !ok {
		return
	}

	delete(p.kv, k)
	p.keys = slices.DeleteFunc(p.keys, func(s interner.Spur) bool { return s == k })
}

// Keys returns the keys in order of first appearance.
func (p *Properties) Keys() []interner.Spur { return slices.Clone(p.keys) }

// Len returns the number of distinct keys.
func (p *Properties) Len() int { return len(p.keys) }

// All iterates keys and their occurrences in order of first appearance.
func (p *Properties) All() iter.Seq2[interner.Spur, PropertyInfoList] {
	return func(yield func(interner.Spur, PropertyInfoList) bool) {
		for _, k := range p.keys {
			if !yield(k, p.kv[k]) {
				return
			}
		}
	}
}

// Clone copies the map and lists; values are shared.
func (p *Properties) Clone() *Properties {
	out := &Properties{
		keys: slices.Clone(p.keys),
		kv:   make(map[interner.Spur]PropertyInfoList, len(p.kv)),
	}

	for k, l := range p.kv {
		out.kv[k] = slices.Clone(l)
	}

	return out
}
