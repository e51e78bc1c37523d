package amd64

import (
	"errors"

	"jitcc/internal/mir"
)

// emitAlloc bumps the heap cursor at HeapControl:
//
//	start = (cur + align - 1) &^ (align - 1)
//	end   = start + size
//	if end > limit { ud2 }
//	cur   = end
//
// and optionally clears the block with rep stosb.
func (fe *funcEmitter) emitAlloc(in *mir.Instr) error {
	if fe.e.opts.HeapControl == 0 {
		return errors.New("allocation without a runtime heap")
	}
	a := fe.a
	if err := fe.loadInt(RCX, in.Args[1], extZero); err != nil {
		return err
	}
	if err := fe.loadInt(RSI, in.Args[0], extZero); err != nil {
		return err
	}
	a.MovAbs(RDX, uint64(fe.e.opts.HeapControl))
	a.Load(RAX, RDX, 0, 8, false)
	a.Alu(AluAdd, RAX, RCX)
	a.AluImm(AluSub, RAX, 1)
	a.Neg(RCX)
	a.Alu(AluAnd, RAX, RCX)
	a.MovRR(RDI, RAX)
	a.Alu(AluAdd, RDI, RSI)
	a.CmpMem(RDI, RDX, 8)
	ok := a.Jcc(CondBE)
	a.Ud2()
	a.PatchRel32(ok, a.Len())
	a.Store(RDX, 0, RDI, 8)
	if in.Imm != 0 {
		a.MovRR(RDX, RAX)
		a.MovRR(RDI, RAX)
		a.MovRR(RCX, RSI)
		a.Alu(AluXor, RAX, RAX)
		a.RepStosb()
		a.MovRR(RAX, RDX)
	}
	return fe.storeInt(in, RAX)
}
