package ops

import (
	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// arith picks the machine operation by operand kind. float is OpInvalid
// for integral-only operations; bools admits bool operands.
type arith struct {
	signed, unsigned, float mir.Op
	bools                   bool
}

var (
	opsAdd = arith{signed: mir.OpAdd, unsigned: mir.OpAdd, float: mir.OpFAdd}
	opsSub = arith{signed: mir.OpSub, unsigned: mir.OpSub, float: mir.OpFSub}
	opsMul = arith{signed: mir.OpMul, unsigned: mir.OpMul, float: mir.OpFMul}
	opsDiv = arith{signed: mir.OpSDiv, unsigned: mir.OpUDiv, float: mir.OpFDiv}
	opsRem = arith{signed: mir.OpSRem, unsigned: mir.OpURem}
	opsAnd = arith{signed: mir.OpAnd, unsigned: mir.OpAnd, bools: true}
	opsOr  = arith{signed: mir.OpOr, unsigned: mir.OpOr, bools: true}
	opsXor = arith{signed: mir.OpXor, unsigned: mir.OpXor, bools: true}
	opsShl = arith{signed: mir.OpShl, unsigned: mir.OpShl}
	opsShr = arith{signed: mir.OpAShr, unsigned: mir.OpLShr}
)

func (a arith) pick(k types.Kind) mir.Op {
	switch {
	case k.IsFloat():
		return a.float
	case k.IsIntegral() && k.IsSigned():
		return a.signed
	case k.IsIntegral():
		return a.unsigned
	case k == types.KindBool && a.bools:
		return a.unsigned
	}
	return mir.OpInvalid
}

// endo is the type (t0) -> t0 or (t0, t0) -> t0.
func endo(env *types.Env, arity int) types.Poly {
	in := env.Types()
	t := in.Var(0)
	params := make([]types.TypeID, arity)
	for i := range params {
		params[i] = t
	}
	return types.Poly{Vars: 1, Body: in.RegisterFn(params, t)}
}

type binary struct {
	name string
	a    arith
}

func (o binary) Type(env *types.Env) types.Poly {
	return endo(env, 2)
}

func (o binary) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	op := o.a.pick(kindOf(c, argTypes[0]))
	if op == mir.OpInvalid {
		return nil, unsupported(c, o.name, argTypes[0])
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.Builder().Binary(op, vals[0], vals[1]), nil
}

type negate struct{}

func (negate) Type(env *types.Env) types.Poly {
	return endo(env, 1)
}

func (negate) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	op := arith{signed: mir.OpNeg, unsigned: mir.OpNeg, float: mir.OpFNeg}.pick(kindOf(c, argTypes[0]))
	if op == mir.OpInvalid {
		return nil, unsupported(c, "neg", argTypes[0])
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.Builder().Unary(op, vals[0]), nil
}

type sqrt struct{}

func (sqrt) Type(env *types.Env) types.Poly {
	return endo(env, 1)
}

func (sqrt) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	if !kindOf(c, argTypes[0]).IsFloat() {
		return nil, unsupported(c, "sqrt", argTypes[0])
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	return c.Builder().Unary(mir.OpFSqrt, vals[0]), nil
}
