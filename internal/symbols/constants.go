package symbols

import (
	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// Constant is an interned literal with storage in the global data region.
type Constant struct {
	Name  string
	Value *expr.Lit
	Repr  mir.Type
	Type  types.TypeID
	Ref   *mir.Global
}

// Constants is the constant pool. Named constants come from global
// definitions; anonymous literals are deduplicated by value.
type Constants struct {
	list   []*Constant
	byName map[string]*Constant
	byLit  map[expr.Key]*Constant
}

func NewConstants() *Constants {
	return &Constants{
		byName: make(map[string]*Constant),
		byLit:  make(map[expr.Key]*Constant),
	}
}

// Add records c under its name. Anonymous literals are also indexed by
// value so Find returns them.
func (t *Constants) Add(c *Constant, anonymous bool) error {
	c.Name = Canonical(c.Name)
	if _, ok := t.byName[c.Name]; ok {
		return diag.New(diag.DuplicateSymbol, c.Name, "constant already defined")
	}
	t.list = append(t.list, c)
	t.byName[c.Name] = c
	if anonymous {
		t.byLit[c.Value.Key()] = c
	}
	return nil
}

func (t *Constants) Lookup(name string) (*Constant, bool) {
	c, ok := t.byName[Canonical(name)]
	return c, ok
}

// Find returns the anonymous constant holding lit's value.
func (t *Constants) Find(lit *expr.Lit) (*Constant, bool) {
	c, ok := t.byLit[lit.Key()]
	return c, ok
}

// Len counts entries; it doubles as a checkpoint for Truncate.
func (t *Constants) Len() int {
	return len(t.list)
}

// Truncate forgets every constant added after the pool had n entries.
func (t *Constants) Truncate(n int) {
	for _, c := range t.list[n:] {
		delete(t.byName, c.Name)
		if cur, ok := t.byLit[c.Value.Key()]; ok && cur == c {
			delete(t.byLit, c.Value.Key())
		}
	}
	clear(t.list[n:])
	t.list = t.list[:n]
}

// All returns the entries in creation order.
func (t *Constants) All() []*Constant {
	return append([]*Constant(nil), t.list...)
}
