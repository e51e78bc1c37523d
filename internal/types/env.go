package types

import (
	"slices"
)

// Env is the type environment the compiler core shares with the front end:
// the interner plus the polytypes of every named operator and global.
type Env struct {
	in      *Interner
	sigs    map[string]Poly
	aliases map[string]TypeID
}

// NewEnv creates an environment over a fresh interner.
func NewEnv() *Env {
	return NewEnvWith(NewInterner())
}

// NewEnvWith creates an environment sharing an existing interner.
func NewEnvWith(in *Interner) *Env {
	e := &Env{
		in:      in,
		sigs:    make(map[string]Poly),
		aliases: make(map[string]TypeID),
	}
	b := in.Builtins()
	for name, id := range map[string]TypeID{
		"unit": b.Unit, "bool": b.Bool, "char": b.Char, "byte": b.Byte,
		"short": b.Short, "int": b.Int, "long": b.Long, "float": b.Float,
		"double": b.Double, "string": b.String, "ptr": b.Ptr,
	} {
		e.aliases[name] = id
	}
	return e
}

// Types returns the interner.
func (e *Env) Types() *Interner {
	return e.in
}

// Bind records the polytype of a name, replacing any previous one.
func (e *Env) Bind(name string, p Poly) {
	e.sigs[name] = p
}

// Unbind forgets a name.
func (e *Env) Unbind(name string) {
	delete(e.sigs, name)
}

// Lookup returns the polytype bound to name.
func (e *Env) Lookup(name string) (Poly, bool) {
	p, ok := e.sigs[name]
	return p, ok
}

// Alias names a monotype.
func (e *Env) Alias(name string, t TypeID) {
	e.aliases[name] = t
}

// Resolve returns the monotype spelled by name.
func (e *Env) Resolve(name string) (TypeID, bool) {
	t, ok := e.aliases[name]
	return t, ok
}

// Names lists bound names in sorted order.
func (e *Env) Names() []string {
	out := make([]string, 0, len(e.sigs))
	for name := range e.sigs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
