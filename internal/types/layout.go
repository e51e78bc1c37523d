package types

// Layout is the native storage shape of a monotype.
type Layout struct {
	Size  uint64
	Align uint64
}

// ArrayHeaderSize is the byte offset of the first element of an array; the
// header holds the element count as a 64-bit integer.
const ArrayHeaderSize = 8

// LayoutOf returns the size and alignment of a value of type t.
// Aggregates are represented by pointers.
func (in *Interner) LayoutOf(t TypeID) Layout {
	switch in.KindOf(t) {
	case KindUnit, KindBool, KindChar, KindByte:
		return Layout{Size: 1, Align: 1}
	case KindShort:
		return Layout{Size: 2, Align: 2}
	case KindInt, KindFloat:
		return Layout{Size: 4, Align: 4}
	case KindLong, KindDouble, KindArray, KindPointer, KindFn:
		return Layout{Size: 8, Align: 8}
	default:
		return Layout{}
	}
}
