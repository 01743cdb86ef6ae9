// Package scope tracks the game-object scopes a script block is evaluated
// in.
//
// A Stack holds the current scope (this), the chain of scopes it was entered
// from (prev, prevprev, ...), the root scope and the from chain of the event
// or effect that started evaluation. Scope types are interned names such as
// country or planet; the special type unknown accepts everything.
package scope

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rlch/cw/cwt"
	"github.com/rlch/cw/interner"
)

// MaxDepth bounds the number of pushed scopes.
const MaxDepth = 16

// Errors returned by stack operations, wrapped in *Error.
var (
	ErrOverflow     = errors.New("scope stack overflow")
	ErrUnknownScope = errors.New("unknown scope")
	ErrUnknownFrame = errors.New("unknown scope frame")
)

// Error is a failed stack operation.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return e.Op + ": " + e.Err.Error()
	}

	return fmt.Sprintf("%s %s: %s", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Names resolves scope names and aliases to canonical scope types.
// *schema.Analyzer implements it.
type Names interface {
	ResolveScopeName(name string) (interner.Spur, bool)
}

// Well-known scope types.
var (
	Unknown = interner.Intern("unknown")
	Any     = interner.Intern("any")
)

const maxFromDepth = 4

// Stack is a scope context. The zero value is not usable; use New.
type Stack struct {
	frames []interner.Spur
	root   interner.Spur
	from   []interner.Spur
}

// New returns a stack whose this and root are scope.
func New(scope interner.Spur) *Stack {
	return &Stack{frames: []interner.Spur{scope}, root: scope}
}

// NewUnknown returns a stack in the unknown scope.
func NewUnknown() *Stack { return New(Unknown) }

// Branch returns an independent copy.
func (s *Stack) Branch() *Stack {
	return &Stack{
		frames: slices.Clone(s.frames),
		root:   s.root,
		from:   slices.Clone(s.from),
	}
}

// This returns the current scope.
func (s *Stack) This() interner.Spur { return s.frames[len(s.frames)-1] }

// Root returns the root scope.
func (s *Stack) Root() interner.Spur { return s.root }

// Depth returns the number of frames, this included.
func (s *Stack) Depth() int { return len(s.frames) }

// IsUnknown reports whether the current scope is unknown. Unknown scopes
// accept every link and frame name.
func (s *Stack) IsUnknown() bool { return s.This() == Unknown }

// Matches reports whether the current scope satisfies one of the wanted
// scopes. any, unknown and an empty list match everything.
func (s *Stack) Matches(wanted ...interner.Spur) bool {
	if len(wanted) == 0 || s.IsUnknown() || s.This() == Any {
		return true
	}

	return slices.Contains(wanted, s.This()) || slices.Contains(wanted, Any)
}

// Push enters scope, keeping the current one reachable as prev.
func (s *Stack) Push(scope interner.Spur) error {
	if len(s.frames) >= MaxDepth {
		return &Error{Op: "push", Name: interner.Resolve(scope), Err: ErrOverflow}
	}

	s.frames = append(s.frames, scope)

	return nil
}

// PushScopeType resolves name and pushes it.
func (s *Stack) PushScopeType(names Names, name string) error {
	sp, ok := names.ResolveScopeName(name)
	if !ok {
		return &Error{Op: "push", Name: name, Err: ErrUnknownScope}
	}

	return s.Push(sp)
}

// SetFrom sets the from chain: from, fromfrom, ...
func (s *Stack) SetFrom(chain ...interner.Spur) {
	s.from = slices.Clone(chain[:min(len(chain), maxFromDepth)])
}

// Replace rebinds a named frame.
func (s *Stack) Replace(frame string, scope interner.Spur) error {
	f := strings.ToLower(frame)

	switch {
	case f == "this":
		s.frames[len(s.frames)-1] = scope
	case f == "root":
		s.root = scope
	case isRepeat(f, "from"):
		n := len(f) / len("from")
		for len(s.from) < n {
			s.from = append(s.from, Unknown)
		}

		s.from[n-1] = scope
	case isRepeat(f, "prev"):
		n := len(f) / len("prev")
		for len(s.frames) <= n {
			if len(s.frames) >= MaxDepth {
				return &Error{Op: "replace", Name: frame, Err: ErrOverflow}
			}

			s.frames = slices.Insert(s.frames, 0, Unknown)
		}

		s.frames[len(s.frames)-1-n] = scope
	default:
		return &Error{Op: "replace", Name: frame, Err: ErrUnknownFrame}
	}

	return nil
}

// ReplaceScopeFromStrings applies `replace_scope = { this = x root = y }`
// bindings in order. The first failure stops the rebinding.
func (s *Stack) ReplaceScopeFromStrings(names Names, bindings []cwt.ScopeBinding) error {
	for _, b := range bindings {
		sp, ok := names.ResolveScopeName(b.Scope)
		if !ok {
			return &Error{Op: "replace", Name: b.Scope, Err: ErrUnknownScope}
		}

		if err := s.Replace(b.Frame, sp); err != nil {
			return err
		}
	}

	return nil
}

// Frame returns the scope bound to a frame name: this, root, from, fromfrom,
// prev, prevprev, ...
func (s *Stack) Frame(name string) (interner.Spur, bool) {
	f := strings.ToLower(name)

	switch {
	case f == "this":
		return s.This(), true
	case f == "root":
		return s.root, true
	case isRepeat(f, "from"):
		n := len(f) / len("from")
		if n > len(s.from) {
			if s.IsUnknown() {
				return Unknown, true
			}

			return 0, false
		}

		return s.from[n-1], true
	case isRepeat(f, "prev"):
		n := len(f) / len("prev")
		if n >= len(s.frames) {
			if s.IsUnknown() {
				return Unknown, true
			}

			return 0, false
		}

		return s.frames[len(s.frames)-1-n], true
	}

	return 0, false
}

// FrameNames lists the frame names currently bound.
func (s *Stack) FrameNames() []string {
	out := []string{"this", "root"}

	for i := range s.from {
		out = append(out, strings.Repeat("from", i+1))
	}

	for i := 1; i < len(s.frames); i++ {
		out = append(out, strings.Repeat("prev", i))
	}

	return out
}

// String renders the stack for hover text: `country (prev planet, root country)`.
func (s *Stack) String() string {
	var b strings.Builder

	b.WriteString(interner.Resolve(s.This()))

	var extra []string
	if len(s.frames) > 1 {
		extra = append(extra, "prev "+interner.Resolve(s.frames[len(s.frames)-2]))
	}

	extra = append(extra, "root "+interner.Resolve(s.root))

	if len(s.from) > 0 {
		extra = append(extra, "from "+interner.Resolve(s.from[0]))
	}

	b.WriteString(" (" + strings.Join(extra, ", ") + ")")

	return b.String()
}

// Equal reports whether two stacks bind the same frames.
func (s *Stack) Equal(o *Stack) bool {
	return s.root == o.root && slices.Equal(s.frames, o.frames) && slices.Equal(s.from, o.from)
}

// Key is a comparable summary of the stack, for memoisation.
func (s *Stack) Key() string {
	var b strings.Builder

	for _, f := range s.frames {
		fmt.Fprintf(&b, "%d.", f)
	}

	fmt.Fprintf(&b, "r%d", s.root)

	for _, f := range s.from {
		fmt.Fprintf(&b, ".f%d", f)
	}

	return b.String()
}

// isRepeat reports whether s is word repeated one to four times.
func isRepeat(s, word string) bool {
	if s == "" || len(s)%len(word) != 0 || len(s)/len(word) > maxFromDepth {
		return false
	}

	return strings.Repeat(word, len(s)/len(word)) == s
}
