package jit

import (
	"fmt"

	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/symbols"
	"jitcc/internal/types"
)

// Compile emits e at the builder's insertion point and returns its value.
func (c *Compiler) Compile(e expr.Expr) (mir.Value, error) {
	if err := c.requireActive("compile"); err != nil {
		return nil, err
	}
	return c.compileExpr(e)
}

// CompileNamed compiles e and binds the result in the innermost scope.
func (c *Compiler) CompileNamed(name string, e expr.Expr) (mir.Value, error) {
	v, err := c.Compile(e)
	if err != nil {
		return nil, err
	}
	c.BindScope(name, e.Type(), v)
	return v, nil
}

// CompileAtGlobalScope compiles e with every open scope hidden, so names
// resolve to constants and globals only.
func (c *Compiler) CompileAtGlobalScope(e expr.Expr) (mir.Value, error) {
	restore := c.scopes.IgnoreLocals()
	defer restore()
	return c.Compile(e)
}

// CompileArgs compiles operator arguments left to right.
func (c *Compiler) CompileArgs(args []expr.Expr) ([]mir.Value, error) {
	out := make([]mir.Value, len(args))
	for i, a := range args {
		v, err := c.compileExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Compiler) compileExpr(e expr.Expr) (mir.Value, error) {
	switch e := e.(type) {
	case *expr.Lit:
		return c.literal(e)
	case *expr.Var:
		return c.LookupVar(e.Name, e.Ty)
	case *expr.Let:
		return c.compileLet(e)
	case *expr.LetRec:
		return c.compileLetRec(e)
	case *expr.Fn:
		return c.compileFnValue(e)
	case *expr.App:
		return c.compileApp(e)
	case *expr.If:
		return c.compileIf(e)
	case nil:
		return nil, diag.New(diag.InvalidIR, "", "nil expression")
	default:
		return nil, diag.New(diag.InvalidIR, "", "unsupported expression %T", e)
	}
}

func (c *Compiler) compileLet(e *expr.Let) (mir.Value, error) {
	v, err := c.compileExpr(e.Value)
	if err != nil {
		return nil, err
	}
	c.scopes.Push()
	defer c.scopes.Pop()
	c.BindScope(e.Name, e.Value.Type(), v)
	return c.compileExpr(e.Body)
}

func (c *Compiler) compileLetRec(e *expr.LetRec) (mir.Value, error) {
	c.scopes.Push()
	defer c.scopes.Pop()
	if _, err := c.CompileFunctions(e.Bindings); err != nil {
		return nil, err
	}
	return c.compileExpr(e.Body)
}

// compileFnValue compiles a function literal in value position into an
// anonymous function of the current unit.
func (c *Compiler) compileFnValue(e *expr.Fn) (mir.Value, error) {
	c.anon++
	name := fmt.Sprintf(".lambda%d", c.anon)
	f, err := c.compileGroup([]expr.Binding{{Name: name, Fn: e}}, false)
	if err != nil {
		return nil, err
	}
	return f[0], nil
}

func (c *Compiler) compileApp(e *expr.App) (mir.Value, error) {
	switch fn := e.Fn.(type) {
	case *expr.Fn:
		return c.inlineCall(fn, e.Args)
	case *expr.Var:
		if _, local := c.scopes.Lookup(fn.Name); !local {
			if op, ok := c.ops[symbols.Canonical(fn.Name)]; ok {
				return c.applyOp(fn.Name, op, e)
			}
		}
	}
	callee, fnTy, err := c.calleeOf(e.Fn)
	if err != nil {
		return nil, err
	}
	return c.call(calleeName(e.Fn), callee, fnTy, e.Args, e.Ty)
}

func calleeName(e expr.Expr) string {
	if v, ok := e.(*expr.Var); ok {
		return v.Name
	}
	return ""
}

// calleeOf compiles the head of an application. An unannotated variable
// takes the declared type of what it resolves to.
func (c *Compiler) calleeOf(e expr.Expr) (mir.Value, types.TypeID, error) {
	if v, ok := e.(*expr.Var); ok {
		return c.lookup(v.Name, v.Ty)
	}
	v, err := c.compileExpr(e)
	return v, e.Type(), err
}

// call applies a function value. Argument types must match the
// parameters exactly.
func (c *Compiler) call(name string, callee mir.Value, fnTy types.TypeID, args []expr.Expr, want types.TypeID) (mir.Value, error) {
	sig, info, err := c.signature(name, fnTy)
	if err != nil {
		return nil, err
	}
	if len(args) != len(info.Params) {
		return nil, diag.New(diag.ArityMismatch, name, "expected %d arguments, got %d", len(info.Params), len(args))
	}
	for i, a := range args {
		if at := a.Type(); at != types.NoTypeID && at != info.Params[i] {
			return nil, diag.New(diag.TypeMismatch, name, "argument %d: expected %s, got %s", i, c.typeName(info.Params[i]), c.typeName(at))
		}
	}
	if want != types.NoTypeID && want != info.Result {
		return nil, diag.New(diag.TypeMismatch, name, "result: expected %s, got %s", c.typeName(want), c.typeName(info.Result))
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.builder.Call(callee, sig, vals...), nil
}

// inlineCall applies a function literal in place: arguments are evaluated
// in the caller's scope, then bound to the parameters.
func (c *Compiler) inlineCall(fn *expr.Fn, args []expr.Expr) (mir.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, diag.New(diag.ArityMismatch, "", "function literal takes %d arguments, got %d", len(fn.Params), len(args))
	}
	params := make([]types.TypeID, len(args))
	if info, ok := c.in.FnInfo(fn.Ty); ok {
		if len(info.Params) != len(fn.Params) {
			return nil, diag.New(diag.ArityMismatch, "", "function type %s does not fit %d parameters", c.typeName(fn.Ty), len(fn.Params))
		}
		copy(params, info.Params)
	} else {
		for i, a := range args {
			params[i] = a.Type()
		}
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	c.scopes.Push()
	defer c.scopes.Pop()
	for i, p := range fn.Params {
		c.BindScope(p, params[i], vals[i])
	}
	return c.compileExpr(fn.Body)
}

// compileIf emits a diamond. On failure the builder is rewound to where
// the expression started, so no half-built branch stays in the function.
func (c *Compiler) compileIf(e *expr.If) (v mir.Value, err error) {
	mark := c.builder.Mark()
	defer func() {
		if err != nil {
			c.builder.Rewind(mark)
		}
	}()
	cond, err := c.compileExpr(e.Cond)
	if err != nil {
		return nil, err
	}
	if cond.Type() != mir.I1 {
		return nil, diag.Mismatch("if", "bool", c.typeName(e.Cond.Type()))
	}
	repr, err := c.reprOf("if", e.Ty)
	if err != nil {
		return nil, err
	}
	f := c.builder.Func()
	then, els, join := f.NewBlock("then"), f.NewBlock("else"), f.NewBlock("join")
	c.builder.If(cond, then, els)

	arm := func(blk *mir.Block, body expr.Expr) (mir.Value, *mir.Block, error) {
		c.builder.SetInsertPoint(blk)
		v, err := c.compileExpr(body)
		if err != nil {
			return nil, nil, err
		}
		end := c.builder.Block()
		c.builder.Jump(join)
		return v, end, nil
	}
	tv, tend, err := arm(then, e.Then)
	if err != nil {
		return nil, err
	}
	ev, eend, err := arm(els, e.Else)
	if err != nil {
		return nil, err
	}
	c.builder.SetInsertPoint(join)
	phi := c.builder.Phi(repr)
	mir.AddIncoming(phi, tv, tend)
	mir.AddIncoming(phi, ev, eend)
	return phi, nil
}
