package symbols

import (
	"slices"

	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// Ref says what kind of definition a global is: VarRef or FuncRef.
type Ref interface {
	Value() mir.Value
	isRef()
}

// VarRef is a global variable with storage at Global.Addr.
type VarRef struct {
	Global *mir.Global
}

// FuncRef is a global function: a *mir.Func compiled by the JIT or an
// extern for host machine code.
type FuncRef struct {
	Fn mir.Value
}

func (r VarRef) Value() mir.Value  { return r.Global }
func (r FuncRef) Value() mir.Value { return r.Fn }
func (VarRef) isRef()              {}
func (FuncRef) isRef()             {}

// Global is one entry of the globals table.
type Global struct {
	Name string
	Type types.TypeID
	// Addr is the storage of a variable or the entry of a function; it is
	// filled in once the defining unit is finalized.
	Addr uintptr
	Ref  Ref
}

// Globals maps names to global definitions. Entries are never replaced.
type Globals struct {
	byName map[string]*Global
	order  []string
}

func NewGlobals() *Globals {
	return &Globals{byName: make(map[string]*Global)}
}

// Define adds g; an existing entry under the same name is DuplicateSymbol.
func (t *Globals) Define(g *Global) error {
	g.Name = Canonical(g.Name)
	if _, ok := t.byName[g.Name]; ok {
		return diag.New(diag.DuplicateSymbol, g.Name, "already defined")
	}
	t.byName[g.Name] = g
	t.order = append(t.order, g.Name)
	return nil
}

// Remove drops name. Only used to undo a Define within one operation.
func (t *Globals) Remove(name string) {
	name = Canonical(name)
	if _, ok := t.byName[name]; !ok {
		return
	}
	delete(t.byName, name)
	t.order = slices.DeleteFunc(t.order, func(n string) bool { return n == name })
}

func (t *Globals) Lookup(name string) (*Global, bool) {
	g, ok := t.byName[Canonical(name)]
	return g, ok
}

// Len counts entries.
func (t *Globals) Len() int {
	return len(t.order)
}

// All returns the entries in definition order.
func (t *Globals) All() []*Global {
	out := make([]*Global, len(t.order))
	for i, n := range t.order {
		out[i] = t.byName[n]
	}
	return out
}
