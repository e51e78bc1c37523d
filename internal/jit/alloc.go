package jit

import (
	"fortio.org/safecast"

	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

// CompileAllocStmt emits an allocation of size bytes aligned to align from
// the runtime heap. repr is the type stored in the cell; with zero the
// memory is cleared first.
func (c *Compiler) CompileAllocStmt(size, align uint64, repr types.TypeID, zero bool) (mir.Value, error) {
	if err := c.requireActive("allocation"); err != nil {
		return nil, err
	}
	sz, err := safecast.Conv[int64](size)
	if err != nil {
		return nil, diag.Wrap(diag.InvalidIR, "", err)
	}
	al, err := safecast.Conv[int64](align)
	if err != nil {
		return nil, diag.Wrap(diag.InvalidIR, "", err)
	}
	if al == 0 || al&(al-1) != 0 {
		return nil, diag.New(diag.InvalidIR, "", "alignment %d is not a power of two", align)
	}
	return c.CompileAllocStmtV(c.builder.ConstInt(mir.I64, sz), c.builder.ConstInt(mir.I64, al), repr, zero)
}

// CompileAllocStmtV is CompileAllocStmt with sizes computed at run time.
// Exhausting the heap traps.
func (c *Compiler) CompileAllocStmtV(size, align mir.Value, repr types.TypeID, zero bool) (mir.Value, error) {
	if err := c.requireActive("allocation"); err != nil {
		return nil, err
	}
	if !size.Type().IsInt() || !align.Type().IsInt() {
		return nil, diag.New(diag.TypeMismatch, "", "allocation sizes must be integers, got %s and %s", size.Type(), align.Type())
	}
	size, align = c.widen(size), c.widen(align)
	return c.builder.Alloc(size, align, c.Repr(repr), zero), nil
}

// widen sign-extends an integer value to 64 bits.
func (c *Compiler) widen(v mir.Value) mir.Value {
	if v.Type() == mir.I64 {
		return v
	}
	return c.builder.Convert(mir.OpSExt, v, mir.I64)
}

// ResetHeap rewinds the runtime heap. Memory handed out before is reused.
func (c *Compiler) ResetHeap() {
	c.eng.Heap().Reset()
}

// HeapUsed reports bytes allocated by generated code since the last reset.
func (c *Compiler) HeapUsed() int64 {
	return c.eng.Heap().Used()
}
