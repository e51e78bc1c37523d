package engine

import (
	"fmt"
	"io"
	"slices"

	"jitcc/internal/backend/amd64"
	"jitcc/internal/mir"
	"jitcc/internal/vmem"
)

// Image is the executable form of one finalized unit.
type Image struct {
	ID   int
	Unit *mir.Module

	mem      *vmem.Mapping
	symbols  []amd64.Symbol
	byName   map[string]int
	codeLen  int
	released bool
}

func newImage(unit *mir.Module, obj *amd64.Object) (*Image, error) {
	mem, err := vmem.Alloc(len(obj.Code))
	if err != nil {
		return nil, err
	}
	copy(mem.Bytes(), obj.Code)
	if err := mem.Seal(); err != nil {
		_ = mem.Free()
		return nil, err
	}
	img := &Image{
		ID:      unit.ID,
		Unit:    unit,
		mem:     mem,
		symbols: obj.Symbols,
		byName:  make(map[string]int, len(obj.Symbols)),
		codeLen: len(obj.Code),
	}
	for i, s := range obj.Symbols {
		img.byName[s.Name] = i
	}
	return img, nil
}

// Base is the address of the first code byte.
func (img *Image) Base() uintptr {
	return img.mem.Addr()
}

// Contains reports whether addr points into the image's code.
func (img *Image) Contains(addr uintptr) bool {
	return !img.released && addr >= img.Base() && addr < img.Base()+uintptr(img.codeLen)
}

// Released reports whether the image memory has been returned.
func (img *Image) Released() bool {
	return img.released
}

// FuncAddr returns the native-convention entry of f.
func (img *Image) FuncAddr(f *mir.Func) (uintptr, bool) {
	for _, s := range img.symbols {
		if s.Func == f {
			return img.Base() + uintptr(s.Offset), true
		}
	}
	return 0, false
}

// EntryAddr returns the Go-callable stub of f.
func (img *Image) EntryAddr(f *mir.Func) (uintptr, bool) {
	for _, s := range img.symbols {
		if s.Func == f && s.Stub >= 0 {
			return img.Base() + uintptr(s.Stub), true
		}
	}
	return 0, false
}

// Symbol returns the address of the named function, 0 when absent.
func (img *Image) Symbol(name string) uintptr {
	i, ok := img.byName[name]
	if !ok || img.released {
		return 0
	}
	return img.Base() + uintptr(img.symbols[i].Offset)
}

// FuncBytes copies the machine code of f's body.
func (img *Image) FuncBytes(f *mir.Func) ([]byte, bool) {
	if img.released {
		return nil, false
	}
	for _, s := range img.symbols {
		if s.Func == f {
			code := img.mem.Bytes()[s.Offset : s.Offset+s.Size]
			return slices.Clone(code), true
		}
	}
	return nil, false
}

// Code copies the whole image, nil once released.
func (img *Image) Code() []byte {
	if img.released {
		return nil
	}
	return slices.Clone(img.mem.Bytes()[:img.codeLen])
}

// Symbols lists the functions in layout order.
func (img *Image) Symbols() []amd64.Symbol {
	return slices.Clone(img.symbols)
}

func (img *Image) dump(w io.Writer) {
	fmt.Fprintf(w, "image #%d %s @%#x (%d bytes)\n", img.ID, img.Unit.Name, img.Base(), img.codeLen)
	for _, s := range img.symbols {
		fmt.Fprintf(w, "  %#x %-24s %5d bytes", img.Base()+uintptr(s.Offset), s.Name, s.Size)
		if s.Stub >= 0 {
			fmt.Fprintf(w, "  entry %#x", img.Base()+uintptr(s.Stub))
		}
		fmt.Fprintln(w)
	}
}

// retire revokes access to the code but keeps its addresses reserved, so a
// later image never reuses them and stale entries stay detectable.
func (img *Image) retire() error {
	img.released = true
	return img.mem.Retire()
}

func (img *Image) free() error {
	img.released = true
	return img.mem.Free()
}
