package symbols

import (
	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// Local is a value bound in a lexical scope. Owner is the function whose
// body produced Value; nil for values that belong to no function, such as
// function handles.
type Local struct {
	Value mir.Value
	Type  types.TypeID
	Owner *mir.Func
}

type scope map[string]Local

// ScopeStack is the stack of lexical scopes. The root scope is never
// popped. Scopes below floor are hidden from lookups.
type ScopeStack struct {
	scopes []scope
	floor  int
}

func NewScopeStack() *ScopeStack {
	return &ScopeStack{scopes: []scope{{}}}
}

// Push opens a new innermost scope.
func (s *ScopeStack) Push() {
	s.scopes = append(s.scopes, scope{})
}

// Pop discards the innermost scope. Popping the root scope is a contract
// violation and panics.
func (s *ScopeStack) Pop() {
	if len(s.scopes) == 1 {
		panic(diag.New(diag.InvalidIR, "", "pop of the root scope"))
	}
	if len(s.scopes) == s.floor {
		panic(diag.New(diag.InvalidIR, "", "pop of a scope hidden by a global-only guard"))
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Depth counts open scopes, the root included.
func (s *ScopeStack) Depth() int {
	return len(s.scopes)
}

// Bind binds name in the innermost scope and returns what it replaced there.
func (s *ScopeStack) Bind(name string, l Local) (prev Local, had bool) {
	name = Canonical(name)
	top := s.scopes[len(s.scopes)-1]
	prev, had = top[name]
	top[name] = l
	return prev, had
}

// Unbind removes name from the innermost scope.
func (s *ScopeStack) Unbind(name string) {
	delete(s.scopes[len(s.scopes)-1], Canonical(name))
}

// Restore undoes a Bind given its results.
func (s *ScopeStack) Restore(name string, prev Local, had bool) {
	if had {
		s.scopes[len(s.scopes)-1][Canonical(name)] = prev
		return
	}
	s.Unbind(name)
}

// Forget removes every binding, in any scope, for which drop reports true
// and returns how many were removed.
func (s *ScopeStack) Forget(drop func(name string, l Local) bool) int {
	n := 0
	for _, sc := range s.scopes {
		for name, l := range sc {
			if drop(name, l) {
				delete(sc, name)
				n++
			}
		}
	}
	return n
}

// Lookup searches innermost to outermost, skipping hidden scopes.
func (s *ScopeStack) Lookup(name string) (Local, bool) {
	name = Canonical(name)
	for i := len(s.scopes) - 1; i >= s.floor; i-- {
		if l, ok := s.scopes[i][name]; ok {
			return l, true
		}
	}
	return Local{}, false
}

// IgnoreLocals hides every open scope until the returned function is
// called. Scopes pushed meanwhile stay visible, so function bodies compiled
// under the guard still see their parameters. Guards nest.
func (s *ScopeStack) IgnoreLocals() (restore func()) {
	prev := s.floor
	s.floor = len(s.scopes)
	return func() { s.floor = prev }
}

// IgnoringLocals reports whether some scopes are hidden.
func (s *ScopeStack) IgnoringLocals() bool {
	return s.floor > 0
}

// Names lists the visible names of every scope, innermost scope first.
func (s *ScopeStack) Names() [][]string {
	out := make([][]string, 0, len(s.scopes))
	for i := len(s.scopes) - 1; i >= 0; i-- {
		names := make([]string, 0, len(s.scopes[i]))
		for n := range s.scopes[i] {
			names = append(names, n)
		}
		out = append(out, names)
	}
	return out
}
