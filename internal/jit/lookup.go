package jit

import (
	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/symbols"
	"jitcc/internal/types"
)

// PushScope opens a scope.
func (c *Compiler) PushScope() {
	c.scopes.Push()
}

// PopScope closes the innermost scope. Popping the root scope panics.
func (c *Compiler) PopScope() {
	c.scopes.Pop()
}

// BindScope binds name in the innermost scope. A zero ty disables the type
// check in LookupVar.
func (c *Compiler) BindScope(name string, ty types.TypeID, v mir.Value) {
	c.scopes.Bind(name, symbols.Local{Value: v, Type: ty, Owner: c.builder.Func()})
}

// LookupVar resolves name through locals, constants and globals, in that
// order. A non-zero ty must match the declared type of what is found.
func (c *Compiler) LookupVar(name string, ty types.TypeID) (mir.Value, error) {
	v, _, err := c.lookup(name, ty)
	return v, err
}

func (c *Compiler) lookup(name string, want types.TypeID) (mir.Value, types.TypeID, error) {
	name = symbols.Canonical(name)
	if l, ok := c.scopes.Lookup(name); ok {
		if l.Owner != nil && l.Owner != c.builder.Func() {
			if _, isFn := l.Value.(*mir.Func); !isFn {
				return nil, 0, diag.New(diag.UnboundSymbol, name, "local of %s is not visible here", l.Owner.Name)
			}
		}
		if err := c.checkType(name, l.Type, want); err != nil {
			return nil, 0, err
		}
		return c.ref(l.Value), l.Type, nil
	}
	if k, ok := c.consts.Lookup(name); ok {
		if err := c.checkType(name, k.Type, want); err != nil {
			return nil, 0, err
		}
		v, err := c.constValue(k)
		return v, k.Type, err
	}
	if g, ok := c.globals.Lookup(name); ok {
		if err := c.checkType(name, g.Type, want); err != nil {
			return nil, 0, err
		}
		v, err := c.globalValue(g)
		return v, g.Type, err
	}
	return nil, 0, diag.Unbound(name)
}

func (c *Compiler) checkType(name string, have, want types.TypeID) error {
	if want == types.NoTypeID || have == types.NoTypeID || have == want {
		return nil
	}
	return diag.Mismatch(name, c.typeName(want), c.typeName(have))
}

// globalValue loads a global variable, or references a global function.
func (c *Compiler) globalValue(g *symbols.Global) (mir.Value, error) {
	switch r := g.Ref.(type) {
	case symbols.FuncRef:
		return c.ref(r.Fn), nil
	case symbols.VarRef:
		if err := c.requireActive("load of " + g.Name); err != nil {
			return nil, err
		}
		return c.builder.Load(r.Global.Elem, c.ref(r.Global)), nil
	default:
		return nil, diag.New(diag.InvalidIR, g.Name, "global without a reference")
	}
}

// LookupFunction returns the function bound to name, or nil. Locally bound
// functions of a LetRec group shadow global ones.
func (c *Compiler) LookupFunction(name string) mir.Value {
	name = symbols.Canonical(name)
	if l, ok := c.scopes.Lookup(name); ok {
		if f, isFn := l.Value.(*mir.Func); isFn {
			return c.ref(f)
		}
		return nil
	}
	if g, ok := c.globals.Lookup(name); ok {
		if r, isFn := g.Ref.(symbols.FuncRef); isFn {
			return c.ref(r.Fn)
		}
	}
	return nil
}

// LookupVarRef returns the data cell of a global variable. Constants,
// functions and names shadowed by a visible local give nil.
func (c *Compiler) LookupVarRef(name string) *mir.Global {
	name = symbols.Canonical(name)
	if _, ok := c.scopes.Lookup(name); ok {
		return nil
	}
	g, ok := c.globals.Lookup(name)
	if !ok {
		return nil
	}
	if r, isVar := g.Ref.(symbols.VarRef); isVar {
		return r.Global
	}
	return nil
}

// LookupGlobal returns the globals table entry for name.
func (c *Compiler) LookupGlobal(name string) (*symbols.Global, bool) {
	return c.globals.Lookup(name)
}

// IsDefined reports whether name is a global, a constant or an operator.
func (c *Compiler) IsDefined(name string) bool {
	name = symbols.Canonical(name)
	if _, ok := c.globals.Lookup(name); ok {
		return true
	}
	if _, ok := c.consts.Lookup(name); ok {
		return true
	}
	_, ok := c.ops[name]
	return ok
}
