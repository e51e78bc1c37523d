package ops

import (
	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

type comparison struct {
	name             string
	signed, unsigned mir.Pred
	// equality also applies to arrays and pointers
	equality bool
}

var comparisons = []comparison{
	{name: "==", signed: mir.PredEQ, unsigned: mir.PredEQ, equality: true},
	{name: "!=", signed: mir.PredNE, unsigned: mir.PredNE, equality: true},
	{name: "<", signed: mir.PredLT, unsigned: mir.PredULT},
	{name: "<=", signed: mir.PredLE, unsigned: mir.PredULE},
	{name: ">", signed: mir.PredGT, unsigned: mir.PredUGT},
	{name: ">=", signed: mir.PredGE, unsigned: mir.PredUGE},
}

type compare struct {
	comparison
}

func (o compare) Type(env *types.Env) types.Poly {
	in := env.Types()
	t := in.Var(0)
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{t, t}, in.Builtins().Bool)}
}

func (o compare) Apply(c *jit.Compiler, argTypes []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	k := kindOf(c, argTypes[0])
	ok := k.IsNumeric() || k == types.KindBool ||
		(o.equality && (k == types.KindArray || k == types.KindPointer || k == types.KindUnit))
	if !ok {
		return nil, unsupported(c, o.name, argTypes[0])
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	b := c.Builder()
	switch {
	case k.IsFloat():
		// fcmp takes the ordered predicates
		return b.FCmp(o.signed, vals[0], vals[1]), nil
	case k.IsSigned():
		return b.ICmp(o.signed, vals[0], vals[1]), nil
	default:
		return b.ICmp(o.unsigned, vals[0], vals[1]), nil
	}
}

type not struct{}

func (not) Type(env *types.Env) types.Poly {
	in := env.Types()
	bt := in.Builtins().Bool
	return types.Mono(in.RegisterFn([]types.TypeID{bt}, bt))
}

func (not) Apply(c *jit.Compiler, _ []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	b := c.Builder()
	return b.Binary(mir.OpXor, vals[0], b.ConstBool(true)), nil
}

// logic is short-circuit and/or: the right operand runs only when the left
// does not decide the result.
type logic struct {
	or bool
}

func (logic) Type(env *types.Env) types.Poly {
	in := env.Types()
	bt := in.Builtins().Bool
	return types.Mono(in.RegisterFn([]types.TypeID{bt, bt}, bt))
}

func (o logic) Apply(c *jit.Compiler, _ []types.TypeID, _ types.TypeID, args []expr.Expr) (mir.Value, error) {
	b := c.Builder()
	lhs, err := c.Compile(args[0])
	if err != nil {
		return nil, err
	}
	f := b.Func()
	rhs, join := f.NewBlock("rhs"), f.NewBlock("join")
	decided := b.ConstBool(o.or)
	start := b.Block()
	if o.or {
		b.If(lhs, join, rhs)
	} else {
		b.If(lhs, rhs, join)
	}
	b.SetInsertPoint(rhs)
	rv, err := c.Compile(args[1])
	if err != nil {
		return nil, err
	}
	end := b.Block()
	b.Jump(join)
	b.SetInsertPoint(join)
	phi := b.Phi(mir.I1)
	mir.AddIncoming(phi, decided, start)
	mir.AddIncoming(phi, rv, end)
	return phi, nil
}
