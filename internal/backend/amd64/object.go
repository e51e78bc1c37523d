package amd64

import (
	"fmt"

	"jitcc/internal/mir"
)

// RelocKind says how a relocation is patched.
type RelocKind uint8

const (
	// RelocAbs64 is an absolute 64-bit address in a movabs immediate.
	RelocAbs64 RelocKind = iota
)

// Reloc is a reference to a symbol outside the object.
type Reloc struct {
	Offset int
	Kind   RelocKind
	Target *mir.Extern
}

// Symbol locates a function inside Object.Code.
type Symbol struct {
	Name   string
	Func   *mir.Func
	Offset int
	Size   int
	// Stub is the offset of the Go-callable entry stub, -1 when absent.
	Stub int
}

// Object is position independent machine code for one unit; only Relocs
// depend on where other code and data live.
type Object struct {
	Code    []byte
	Symbols []Symbol
	Relocs  []Reloc
}

// Lookup finds the symbol of f.
func (o *Object) Lookup(f *mir.Func) (Symbol, bool) {
	for _, s := range o.Symbols {
		if s.Func == f {
			return s, true
		}
	}
	return Symbol{}, false
}

// Resolver maps an external declaration to its address.
type Resolver func(*mir.Extern) (uintptr, error)

// Relocate patches every relocation in place.
func (o *Object) Relocate(resolve Resolver) error {
	for _, r := range o.Relocs {
		addr, err := resolve(r.Target)
		if err != nil {
			return fmt.Errorf("relocate %s: %w", r.Target.Ref(), err)
		}
		switch r.Kind {
		case RelocAbs64:
			(&Asm{buf: o.Code}).PatchU64(r.Offset, uint64(addr))
		default:
			return fmt.Errorf("relocate %s: unknown kind %d", r.Target.Ref(), r.Kind)
		}
	}
	return nil
}
