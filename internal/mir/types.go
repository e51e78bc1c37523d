package mir

import "fmt"

// Type is the native representation of a value in generated code.
type Type uint8

const (
	Void Type = iota
	I1
	I8
	I16
	I32
	I64
	F32
	F64
	Ptr
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Ptr:
		return "ptr"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// Size returns the storage size in bytes.
func (t Type) Size() int {
	switch t {
	case I1, I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64, Ptr:
		return 8
	default:
		return 0
	}
}

// Bits returns the width in bits; i1 reports 1.
func (t Type) Bits() int {
	if t == I1 {
		return 1
	}
	return t.Size() * 8
}

// IsInt reports integer types, excluding pointers.
func (t Type) IsInt() bool {
	return t >= I1 && t <= I64
}

// IsFloat reports IEEE types.
func (t Type) IsFloat() bool {
	return t == F32 || t == F64
}

// InIntReg reports values carried in general purpose registers.
func (t Type) InIntReg() bool {
	return t.IsInt() || t == Ptr
}

// Signature describes the native shape of a function.
type Signature struct {
	Params []Type
	Result Type
}

func (s *Signature) String() string {
	if s == nil {
		return "fn(?)"
	}
	out := "fn("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += p.String()
	}
	return out + ") -> " + s.Result.String()
}

// Equal compares two signatures structurally.
func (s *Signature) Equal(o *Signature) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Result != o.Result || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}
