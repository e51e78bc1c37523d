package expr

import "jitcc/internal/types"

// Literal constructors use the builtin types of an interner.

func Unit(b types.Builtins) *Lit { return &Lit{Ty: b.Unit, Kind: types.KindUnit} }

func Bool(b types.Builtins, v bool) *Lit {
	l := &Lit{Ty: b.Bool, Kind: types.KindBool}
	if v {
		l.Int = 1
	}
	return l
}

func Char(b types.Builtins, v byte) *Lit {
	return &Lit{Ty: b.Char, Kind: types.KindChar, Int: int64(int8(v))}
}

func Byte(b types.Builtins, v byte) *Lit {
	return &Lit{Ty: b.Byte, Kind: types.KindByte, Int: int64(v)}
}

func Short(b types.Builtins, v int16) *Lit {
	return &Lit{Ty: b.Short, Kind: types.KindShort, Int: int64(v)}
}

func Int(b types.Builtins, v int32) *Lit {
	return &Lit{Ty: b.Int, Kind: types.KindInt, Int: int64(v)}
}

func Long(b types.Builtins, v int64) *Lit {
	return &Lit{Ty: b.Long, Kind: types.KindLong, Int: v}
}

func Float(b types.Builtins, v float32) *Lit {
	return &Lit{Ty: b.Float, Kind: types.KindFloat, Float: float64(v)}
}

func Double(b types.Builtins, v float64) *Lit {
	return &Lit{Ty: b.Double, Kind: types.KindDouble, Float: v}
}

func String(b types.Builtins, v string) *Lit {
	return &Lit{Ty: b.String, Kind: types.KindArray, Str: v}
}

// IsString reports a string literal.
func (e *Lit) IsString() bool {
	return e.Kind == types.KindArray
}

// Key identifies the literal's value and type for deduplication.
type Key struct {
	Ty    types.TypeID
	Int   int64
	Float float64
	Str   string
}

func (e *Lit) Key() Key {
	return Key{Ty: e.Ty, Int: e.Int, Float: e.Float, Str: e.Str}
}
