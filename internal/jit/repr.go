package jit

import (
	"jitcc/internal/backend/amd64"
	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// Repr returns the native representation of a monotype, Void when t has
// none.
func (c *Compiler) Repr(t types.TypeID) mir.Type {
	return KindRepr(c.in.KindOf(t))
}

// KindRepr returns the native representation of values of kind k.
func KindRepr(k types.Kind) mir.Type {
	switch k {
	case types.KindUnit, types.KindChar, types.KindByte:
		return mir.I8
	case types.KindBool:
		return mir.I1
	case types.KindShort:
		return mir.I16
	case types.KindInt:
		return mir.I32
	case types.KindLong:
		return mir.I64
	case types.KindFloat:
		return mir.F32
	case types.KindDouble:
		return mir.F64
	case types.KindArray, types.KindPointer, types.KindFn:
		return mir.Ptr
	default:
		return mir.Void
	}
}

func (c *Compiler) reprOf(name string, t types.TypeID) (mir.Type, error) {
	r := c.Repr(t)
	if r == mir.Void {
		return mir.Void, diag.New(diag.TypeMismatch, name, "%s has no native representation", c.typeName(t))
	}
	return r, nil
}

// signature lowers a function type.
func (c *Compiler) signature(name string, fnTy types.TypeID) (*mir.Signature, *types.FnInfo, error) {
	info, ok := c.in.FnInfo(fnTy)
	if !ok {
		return nil, nil, diag.New(diag.TypeMismatch, name, "%s is not a function type", c.typeName(fnTy))
	}
	sig := &mir.Signature{Params: make([]mir.Type, len(info.Params))}
	for i, p := range info.Params {
		r, err := c.reprOf(name, p)
		if err != nil {
			return nil, nil, err
		}
		sig.Params[i] = r
	}
	r, err := c.reprOf(name, info.Result)
	if err != nil {
		return nil, nil, err
	}
	sig.Result = r
	if err := amd64.CheckSignature(sig); err != nil {
		return nil, nil, diag.New(diag.UnsupportedTarget, name, "%v", err)
	}
	return sig, info, nil
}

// UnitValue emits the single value of type unit.
func (c *Compiler) UnitValue() mir.Value {
	return c.builder.ConstInt(mir.I8, 0)
}
