package ops

import (
	"fortio.org/safecast"

	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// Arrays live on the runtime heap as {len int64; elems...}. Indexing is
// not bounds checked.

func arrayOf(in *types.Interner) (elem, arr types.TypeID) {
	elem = in.Var(0)
	return elem, in.Array(elem)
}

// elemLayout returns the element representation and stride of array type t.
func elemLayout(c *jit.Compiler, op string, t types.TypeID) (mir.Type, int64, error) {
	in := c.TypeEnv().Types()
	elem, ok := in.ElemOf(t)
	if !ok {
		return mir.Void, 0, unsupported(c, op, t)
	}
	stride, err := safecast.Conv[int64](in.LayoutOf(elem).Size)
	if err != nil || stride == 0 {
		return mir.Void, 0, diag.New(diag.TypeMismatch, op, "element %s has no layout", in.String(elem))
	}
	return c.Repr(elem), stride, nil
}

// elemAddr computes the address of element i.
func elemAddr(c *jit.Compiler, arr, i mir.Value, stride int64) mir.Value {
	return c.Builder().PtrAdd(arr, i, stride, types.ArrayHeaderSize)
}

type newArray struct{}

func (newArray) Type(env *types.Env) types.Poly {
	in := env.Types()
	_, arr := arrayOf(in)
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{in.Builtins().Long}, arr)}
}

func (newArray) Apply(c *jit.Compiler, _ []types.TypeID, rty types.TypeID, args []expr.Expr) (mir.Value, error) {
	_, stride, err := elemLayout(c, "newArray", rty)
	if err != nil {
		return nil, err
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	b := c.Builder()
	n := vals[0]
	size := b.Binary(mir.OpAdd, b.Binary(mir.OpMul, n, b.ConstInt(mir.I64, stride)), b.ConstInt(mir.I64, types.ArrayHeaderSize))
	arr, err := c.CompileAllocStmtV(size, b.ConstInt(mir.I64, types.ArrayHeaderSize), rty, true)
	if err != nil {
		return nil, err
	}
	b.Store(arr, n)
	return arr, nil
}

type length struct{}

func (length) Type(env *types.Env) types.Poly {
	in := env.Types()
	_, arr := arrayOf(in)
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{arr}, in.Builtins().Long)}
}

func (length) Apply(c *jit.Compiler, _ []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.Builder().Load(mir.I64, vals[0]), nil
}

type index struct{}

func (index) Type(env *types.Env) types.Poly {
	in := env.Types()
	elem, arr := arrayOf(in)
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{arr, in.Builtins().Long}, elem)}
}

func (index) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	repr, stride, err := elemLayout(c, "index", argTypes[0])
	if err != nil {
		return nil, err
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.Builder().Load(repr, elemAddr(c, vals[0], vals[1], stride)), nil
}

type update struct{}

func (update) Type(env *types.Env) types.Poly {
	in := env.Types()
	elem, arr := arrayOf(in)
	b := in.Builtins()
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{arr, b.Long, elem}, b.Unit)}
}

func (update) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	_, stride, err := elemLayout(c, "update", argTypes[0])
	if err != nil {
		return nil, err
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	c.Builder().Store(elemAddr(c, vals[0], vals[1], stride), vals[2])
	return c.UnitValue(), nil
}
