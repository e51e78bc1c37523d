package ops

import (
	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

type conversion struct {
	name   string
	target func(types.Builtins) types.TypeID
}

var conversions = []conversion{
	{"toBool", func(b types.Builtins) types.TypeID { return b.Bool }},
	{"toChar", func(b types.Builtins) types.TypeID { return b.Char }},
	{"toByte", func(b types.Builtins) types.TypeID { return b.Byte }},
	{"toShort", func(b types.Builtins) types.TypeID { return b.Short }},
	{"toInt", func(b types.Builtins) types.TypeID { return b.Int }},
	{"toLong", func(b types.Builtins) types.TypeID { return b.Long }},
	{"toFloat", func(b types.Builtins) types.TypeID { return b.Float }},
	{"toDouble", func(b types.Builtins) types.TypeID { return b.Double }},
}

type convert struct {
	conversion
}

func (o convert) Type(env *types.Env) types.Poly {
	in := env.Types()
	return types.Poly{Vars: 1, Body: in.RegisterFn([]types.TypeID{in.Var(0)}, o.target(in.Builtins()))}
}

func (o convert) Apply(c *jit.Compiler, argTypes []types.TypeID, rty types.TypeID, args []expr.Expr) (mir.Value, error) {
	from, to := kindOf(c, argTypes[0]), kindOf(c, rty)
	if !numericLike(from) {
		return nil, unsupported(c, o.name, argTypes[0])
	}
	vals, err := c.CompileArgs(args)
	if err != nil {
		return nil, err
	}
	v, err := Convert(c, vals[0], from, to)
	if err != nil {
		return nil, diag.Wrap(diag.TypeMismatch, o.name, err)
	}
	return v, nil
}

func numericLike(k types.Kind) bool {
	return k.IsNumeric() || k == types.KindBool
}

// Convert emits a numeric conversion of v from kind from to kind to.
// Integers widen by the signedness of the source; floats truncate toward
// zero; anything converts to bool by comparing with zero.
func Convert(c *jit.Compiler, v mir.Value, from, to types.Kind) (mir.Value, error) {
	if !numericLike(from) || !numericLike(to) {
		return nil, diag.New(diag.TypeMismatch, "", "cannot convert %s to %s", from, to)
	}
	b := c.Builder()
	fr, tr := v.Type(), jit.KindRepr(to)
	switch {
	case from == to:
		return v, nil
	case to == types.KindBool:
		if from.IsFloat() {
			return b.FCmp(mir.PredNE, v, b.ConstFloat(fr, 0)), nil
		}
		return b.ICmp(mir.PredNE, v, b.ConstInt(fr, 0)), nil
	case from.IsFloat() && to.IsFloat():
		if tr.Size() > fr.Size() {
			return b.Convert(mir.OpFPExt, v, tr), nil
		}
		return b.Convert(mir.OpFPTrunc, v, tr), nil
	case to.IsFloat():
		return b.Convert(mir.OpSIToFP, widen(c, v, from, mir.I64), tr), nil
	case from.IsFloat():
		wide := b.Convert(mir.OpFPToSI, v, mir.I64)
		if tr == mir.I64 {
			return wide, nil
		}
		return b.Convert(mir.OpTrunc, wide, tr), nil
	default:
		return widen(c, v, from, tr), nil
	}
}

// widen resizes an integer by the signedness of its kind.
func widen(c *jit.Compiler, v mir.Value, from types.Kind, to mir.Type) mir.Value {
	b := c.Builder()
	switch fr := v.Type(); {
	case fr == to:
		return v
	case to.Bits() < fr.Bits():
		return b.Convert(mir.OpTrunc, v, to)
	case from.IsSigned():
		return b.Convert(mir.OpSExt, v, to)
	default:
		return b.Convert(mir.OpZExt, v, to)
	}
}
