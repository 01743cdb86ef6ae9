package interner

import (
	"slices"
	"strings"
)

// Set is an unordered set of interned strings. Membership is by handle, so
// it ignores case; each member also keeps the spelling it was first inserted
// with, which is what Strings shows.
type Set map[Spur]string

// NewSet returns a set holding the given handles. Their spelling is resolved
// from the interner when needed.
func NewSet(spurs ...Spur) Set {
	s := make(Set, len(spurs))
	for _, sp := range spurs {
		s.Add(sp)
	}

	return s
}

// SetOf interns strs into the default interner and returns their set.
func SetOf(strs ...string) Set {
	s := make(Set, len(strs))
	for _, str := range strs {
		s.Insert(str)
	}

	return s
}

// Add inserts sp without a spelling of its own.
func (s Set) Add(sp Spur) {
	if _, ok := s[sp]; !ok {
		s[sp] = ""
	}
}

// Insert interns str into the default interner and adds it. The first
// spelling inserted for a handle is kept.
func (s Set) Insert(str string) Spur {
	sp := Intern(str)
	if surface, ok := s[sp]; !ok || surface == "" {
		s[sp] = str
	}

	return sp
}

// Has reports whether sp is in the set.
func (s Set) Has(sp Spur) bool {
	_, ok := s[sp]

	return ok
}

// Union adds every member of other to s. Members already in s keep their
// spelling.
func (s Set) Union(other Set) {
	for sp, surface := range other {
		if cur, ok := s[sp]; !ok || cur == "" {
			s[sp] = surface
		}
	}
}

// Clone returns a shallow copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Union(s)

	return out
}

// Strings returns every member's spelling, falling back to in for members
// added by handle, sorted case-insensitively.
func (s Set) Strings(in *Interner) []string {
	out := make([]string, 0, len(s))
	for sp, surface := range s {
		if surface == "" {
			surface = in.Resolve(sp)
		}

		out = append(out, surface)
	}

	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	return out
}
