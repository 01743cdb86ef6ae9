// Package interner provides a thread-safe, case-insensitive string table.
//
// Every identifier that flows through the model, schema and resolver layers is
// interned once and then compared as a small integer. Two strings intern to the
// same Spur iff their case-folded forms are equal; the first surface form seen
// is kept for display.
package interner

import (
	"hash/maphash"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Spur is an interned string handle. The zero value is never handed out and
// can be used as "no string".
type Spur uint32

// IsZero reports whether s is the zero handle.
func (s Spur) IsZero() bool { return s == 0 }

const shardCount = 64

type shard struct {
	mu sync.RWMutex
	m  map[string]Spur
}

// Interner maps case-folded strings to Spurs. The zero value is not usable;
// construct with New.
type Interner struct {
	seed   maphash.Seed
	shards [shardCount]shard

	// names is indexed by Spur-1 and holds the first surface form interned.
	namesMu sync.RWMutex
	names   []string

	folders sync.Pool
}

// New creates an empty interner.
func New() *Interner {
	in := &Interner{seed: maphash.MakeSeed()}
	for i := range in.shards {
		in.shards[i].m = make(map[string]Spur)
	}

	in.folders.New = func() any {
		c := cases.Fold()

		return &c
	}

	return in
}

var global = New()

// Default returns the process-wide interner.
func Default() *Interner { return global }

// Intern interns s in the process-wide interner.
func Intern(s string) Spur { return global.Intern(s) }

// Get looks s up in the process-wide interner without inserting.
func Get(s string) (Spur, bool) { return global.Get(s) }

// Resolve returns the surface form of s from the process-wide interner.
func Resolve(s Spur) string { return global.Resolve(s) }

// Fold returns the case-folded form used as the interner key.
func (in *Interner) Fold(s string) string {
	ascii := true

	upper := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf {
			ascii = false

			break
		}

		if c >= 'A' && c <= 'Z' {
			upper = true
		}
	}

	if ascii {
		if !upper {
			return s
		}

		b := []byte(s)
		for i, c := range b {
			if c >= 'A' && c <= 'Z' {
				b[i] = c + ('a' - 'A')
			}
		}

		return string(b)
	}

	// cases.Caser is stateful and must not be shared between goroutines.
	c := in.folders.Get().(*cases.Caser) //nolint:forcetypeassert
	defer in.folders.Put(c)

	return c.String(s)
}

func (in *Interner) shardFor(folded string) *shard {
	return &in.shards[maphash.String(in.seed, folded)%shardCount]
}

// Intern returns the handle for s, allocating one if needed.
func (in *Interner) Intern(s string) Spur {
	folded := in.Fold(s)
	sh := in.shardFor(folded)

	sh.mu.RLock()
	id, ok := sh.m[folded]
	sh.mu.RUnlock()

	if ok {
		return id
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if id, ok := sh.m[folded]; ok {
		return id
	}

	in.namesMu.Lock()
	in.names = append(in.names, s)
	id = Spur(len(in.names)) //nolint:gosec
	in.namesMu.Unlock()

	sh.m[folded] = id

	return id
}

// Get returns the handle for s if it has been interned.
func (in *Interner) Get(s string) (Spur, bool) {
	folded := in.Fold(s)
	sh := in.shardFor(folded)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	id, ok := sh.m[folded]

	return id, ok
}

// Resolve returns the surface form recorded for s, or "" for unknown handles.
func (in *Interner) Resolve(s Spur) string {
	in.namesMu.RLock()
	defer in.namesMu.RUnlock()

	if s == 0 || int(s) > len(in.names) {
		return ""
	}

	return in.names[s-1]
}

// Len returns the number of distinct strings interned.
func (in *Interner) Len() int {
	in.namesMu.RLock()
	defer in.namesMu.RUnlock()

	return len(in.names)
}

// Equal reports whether a and b intern to the same handle.
func (in *Interner) Equal(a, b string) bool {
	return in.Fold(a) == in.Fold(b)
}
