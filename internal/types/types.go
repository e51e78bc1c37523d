package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindChar
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindArray
	KindPointer
	KindFn
	KindVar
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindArray:
		return "array"
	case KindPointer:
		return "ptr"
	case KindFn:
		return "fn"
	case KindVar:
		return "var"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsPrimitive reports kinds that carry no structure.
func (k Kind) IsPrimitive() bool {
	return k >= KindUnit && k <= KindDouble
}

// IsIntegral reports the fixed-width integer kinds, including char and byte.
func (k Kind) IsIntegral() bool {
	switch k {
	case KindChar, KindByte, KindShort, KindInt, KindLong:
		return true
	}
	return false
}

// IsFloat reports the IEEE floating kinds.
func (k Kind) IsFloat() bool {
	return k == KindFloat || k == KindDouble
}

// IsNumeric reports kinds accepted by arithmetic.
func (k Kind) IsNumeric() bool {
	return k.IsIntegral() || k.IsFloat()
}

// IsSigned reports integer kinds with two's complement sign.
// byte and bool are unsigned; char follows the C convention of a signed byte.
func (k Kind) IsSigned() bool {
	switch k {
	case KindChar, KindShort, KindInt, KindLong:
		return true
	}
	return false
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // for arrays
	Payload uint32 // fn info slot, or the index of a type variable
}

// Descriptor helpers ---------------------------------------------------------

// MakeArray describes an array of elem. Strings are arrays of char.
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}

// MakeVar describes the i-th quantified variable of a polytype.
func MakeVar(i uint32) Type {
	return Type{Kind: KindVar, Payload: i}
}
