package jit

import (
	"strconv"

	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/symbols"
	"jitcc/internal/trace"
	"jitcc/internal/types"
)

// AllocFunction adds a function skeleton with an empty entry block to the
// current unit. Nothing is bound.
func (c *Compiler) AllocFunction(name string, argTypes []types.TypeID, rty types.TypeID) (*mir.Func, error) {
	return c.allocFunction(name, c.in.RegisterFn(argTypes, rty))
}

func (c *Compiler) allocFunction(name string, fnTy types.TypeID) (*mir.Func, error) {
	sig, _, err := c.signature(name, fnTy)
	if err != nil {
		return nil, err
	}
	return c.Module().NewFunc(symbols.Canonical(name), sig), nil
}

// CompileFunction compiles one function and binds it in the innermost
// scope. The binding exists before the body is compiled, so the body may
// call the function.
func (c *Compiler) CompileFunction(name string, argNames []string, argTypes []types.TypeID, body expr.Expr) (*mir.Func, error) {
	fn := &expr.Fn{Ty: c.in.RegisterFn(argTypes, body.Type()), Params: argNames, Body: body}
	fns, err := c.compileGroup([]expr.Binding{{Name: name, Fn: fn}}, true)
	if err != nil {
		return nil, err
	}
	return fns[0], nil
}

// CompileFunctions compiles a group of possibly mutually recursive
// functions. Every skeleton is allocated and bound first; bodies are
// compiled afterwards, in order. On failure no name of the group stays
// bound and the skeletons are removed from the unit.
func (c *Compiler) CompileFunctions(bindings []expr.Binding) ([]*mir.Func, error) {
	return c.compileGroup(bindings, true)
}

// CompileFunctionsInto is CompileFunctions appending to results.
func (c *Compiler) CompileFunctionsInto(bindings []expr.Binding, results *[]*mir.Func) error {
	fns, err := c.compileGroup(bindings, true)
	if err != nil {
		return err
	}
	*results = append(*results, fns...)
	return nil
}

type unbinding struct {
	name string
	prev symbols.Local
	had  bool
}

func (c *Compiler) compileGroup(bindings []expr.Binding, bind bool) (out []*mir.Func, err error) {
	span := trace.Begin(c.tracer, trace.ScopeFunction, "functions", 0).
		WithExtra("count", strconv.Itoa(len(bindings)))
	saved := c.builder.Save()
	owner := c.builder.Func()

	var (
		made    []*mir.Func
		undoing []unbinding
	)
	defer func() {
		c.builder.Restore(saved)
		if err == nil {
			span.End("")
			return
		}
		for i := len(undoing) - 1; i >= 0; i-- {
			u := undoing[i]
			c.scopes.Restore(u.name, u.prev, u.had)
		}
		for _, f := range made {
			f.Module.RemoveFunc(f)
		}
		span.End(err.Error())
	}()

	for _, b := range bindings {
		if b.Fn == nil {
			return nil, diag.New(diag.InvalidIR, b.Name, "binding without a function")
		}
		f, err := c.allocFunction(b.Name, b.Fn.Ty)
		if err != nil {
			return nil, err
		}
		made = append(made, f)
		if bind {
			prev, had := c.scopes.Bind(b.Name, symbols.Local{Value: f, Type: b.Fn.Ty, Owner: owner})
			undoing = append(undoing, unbinding{name: b.Name, prev: prev, had: had})
		}
	}
	for i, b := range bindings {
		if err := c.compileBody(made[i], b.Fn); err != nil {
			return nil, err
		}
	}
	return made, nil
}

// compileBody fills f's entry block with fn's body in a fresh scope that
// binds the parameters.
func (c *Compiler) compileBody(f *mir.Func, fn *expr.Fn) error {
	info, ok := c.in.FnInfo(fn.Ty)
	if !ok {
		return diag.New(diag.TypeMismatch, f.Name, "%s is not a function type", c.typeName(fn.Ty))
	}
	if len(fn.Params) != len(info.Params) {
		return diag.New(diag.ArityMismatch, f.Name, "%d parameter names for %d parameters", len(fn.Params), len(info.Params))
	}
	if bt := fn.Body.Type(); bt != types.NoTypeID && bt != info.Result {
		return diag.Mismatch(f.Name, c.typeName(info.Result), c.typeName(bt))
	}

	saved := c.builder.Save()
	defer c.builder.Restore(saved)
	c.builder.SetInsertPoint(f.Entry())
	c.scopes.Push()
	defer c.scopes.Pop()
	for i, p := range fn.Params {
		c.BindScope(p, info.Params[i], f.Param(i))
	}
	v, err := c.compileExpr(fn.Body)
	if err != nil {
		return err
	}
	c.builder.Ret(v)
	return nil
}
