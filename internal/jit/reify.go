package jit

import (
	"strconv"

	"jitcc/internal/diag"
	"jitcc/internal/engine"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/symbols"
	"jitcc/internal/trace"
	"jitcc/internal/types"
)

// Finalize seals the current unit into an image. With no open unit it
// returns nil.
func (c *Compiler) Finalize() (*engine.Image, error) {
	var unit *mir.Module
	if c.eng.HasCurrent() {
		unit = c.eng.Current()
	}
	var img *engine.Image
	err := c.measure("finalize", func() error {
		var err error
		img, err = c.eng.Finalize()
		return err
	})
	if err != nil && unit != nil {
		c.forgetUnit(unit)
	}
	return img, err
}

// forgetUnit drops every binding to a function of unit after the engine
// discarded it, so later code neither calls nor inlines it.
func (c *Compiler) forgetUnit(unit *mir.Module) {
	inUnit := func(v mir.Value) bool {
		f, ok := v.(*mir.Func)
		return ok && f.Module == unit
	}
	n := c.scopes.Forget(func(_ string, l symbols.Local) bool {
		return inUnit(l.Value) || (l.Owner != nil && l.Owner.Module == unit)
	})
	for _, g := range c.globals.All() {
		if g.Ref != nil && inUnit(g.Ref.Value()) {
			c.globals.Remove(g.Name)
			delete(c.retained, g.Name)
			n++
		}
	}
	if f := c.builder.Func(); f != nil && f.Module == unit {
		c.builder.SetInsertPoint(nil)
	}
	trace.Point(c.tracer, trace.ScopeUnit, "forget", unit.Name+" ("+strconv.Itoa(n)+" bindings)")
}

// isolated builds a fresh unit with build and finalizes it, leaving a
// half-built current unit and the builder position untouched. A complete
// current unit is finalized first so the new unit can reference it.
func (c *Compiler) isolated(build func() error) (*engine.Image, error) {
	if c.eng.HasCurrent() && !c.builder.Active() && unitComplete(c.eng.Current()) {
		if _, err := c.Finalize(); err != nil {
			return nil, err
		}
	}
	saved := c.builder.Save()
	c.eng.Suspend()
	c.builder.SetInsertPoint(nil)
	defer func() {
		c.eng.Discard()
		c.builder.Restore(saved)
		c.eng.Resume()
	}()
	if err := build(); err != nil {
		return nil, err
	}
	img, err := c.Finalize()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, diag.New(diag.InvalidIR, "", "isolated unit is empty")
	}
	return img, nil
}

// unitComplete reports whether every block of every function of m is
// terminated.
func unitComplete(m *mir.Module) bool {
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			if !b.Terminated() {
				return false
			}
		}
	}
	return true
}

// ReifyMachineCodeForFn compiles body as an anonymous function of the
// given signature in its own image and returns its Go-callable entry. Wrap
// the entry with engine.MakeFunc and release it with ReleaseMachineCode.
func (c *Compiler) ReifyMachineCodeForFn(rty types.TypeID, argNames []string, argTypes []types.TypeID, body expr.Expr) (uintptr, error) {
	if bt := body.Type(); bt != rty {
		return 0, diag.Mismatch(".reify", c.typeName(rty), c.typeName(bt))
	}
	span := trace.Begin(c.tracer, trace.ScopeUnit, "reify", 0).
		WithExtra("args", strconv.Itoa(len(argNames)))
	fn := &expr.Fn{Ty: c.in.RegisterFn(argTypes, rty), Params: argNames, Body: body}
	var (
		f   *mir.Func
		img *engine.Image
	)
	err := c.measure("reify", func() error {
		var err error
		img, err = c.isolated(func() error {
			var err error
			if f, err = c.allocFunction(".reify", fn.Ty); err != nil {
				return err
			}
			f.Stub = true
			return c.compileBody(f, fn)
		})
		return err
	})
	if err != nil {
		span.End(err.Error())
		return 0, err
	}
	entry, ok := img.EntryAddr(f)
	if !ok {
		span.End("no entry")
		return 0, diag.New(diag.InvalidIR, f.Name, "image has no entry stub")
	}
	span.WithExtra("image", strconv.Itoa(img.ID)).End("")
	return entry, nil
}

// ReleaseMachineCode unmaps the image that produced entry. Releasing an
// unknown or already released entry panics with an InvalidRelease error.
func (c *Compiler) ReleaseMachineCode(entry uintptr) {
	c.eng.Release(entry)
}

// MachineCodeForExpr compiles e as a function without parameters and
// returns the bytes of its body. No image is retained.
func (c *Compiler) MachineCodeForExpr(e expr.Expr) ([]byte, error) {
	fn := &expr.Fn{Ty: c.in.RegisterFn(nil, e.Type()), Body: e}
	var f *mir.Func
	img, err := c.isolated(func() error {
		var err error
		if f, err = c.allocFunction(".code", fn.Ty); err != nil {
			return err
		}
		restore := c.scopes.IgnoreLocals()
		defer restore()
		return c.compileBody(f, fn)
	})
	if err != nil {
		return nil, err
	}
	defer c.eng.FreeImage(img)
	code, ok := img.FuncBytes(f)
	if !ok {
		return nil, diag.New(diag.InvalidIR, f.Name, "function missing from its image")
	}
	return code, nil
}
