package amd64

import (
	"encoding/binary"
)

// Asm accumulates encoded instructions.
type Asm struct {
	buf []byte
}

func (a *Asm) Len() int {
	return len(a.buf)
}

func (a *Asm) Bytes() []byte {
	return a.buf
}

func (a *Asm) emit(bs ...byte) {
	a.buf = append(a.buf, bs...)
}

func (a *Asm) u32(v uint32) {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, v)
}

func (a *Asm) u64(v uint64) {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
}

// Align pads with int3 up to a multiple of n.
func (a *Asm) Align(n int) {
	for len(a.buf)%n != 0 {
		a.buf = append(a.buf, 0xCC)
	}
}

// PatchRel32 points the rel32 field at `at` to the code offset target.
func (a *Asm) PatchRel32(at, target int) {
	binary.LittleEndian.PutUint32(a.buf[at:], uint32(int32(target-(at+4))))
}

// PatchU64 overwrites an imm64 field.
func (a *Asm) PatchU64(at int, v uint64) {
	binary.LittleEndian.PutUint64(a.buf[at:], v)
}

// rex emits a REX prefix when W, an extended register or force requires it.
// force covers byte access to spl, bpl, sil and dil.
func (a *Asm) rex(w bool, reg, rm byte, force bool) {
	b := byte(0x40)
	if w {
		b |= 0x08
	}
	if reg&8 != 0 {
		b |= 0x04
	}
	if rm&8 != 0 {
		b |= 0x01
	}
	if b != 0x40 || force {
		a.emit(b)
	}
}

// rr encodes a register-direct instruction: [prefix] [REX] opcode ModRM.
func (a *Asm) rr(prefix byte, w, force bool, opcode []byte, reg, rm byte) {
	if prefix != 0 {
		a.emit(prefix)
	}
	a.rex(w, reg, rm, force)
	a.emit(opcode...)
	a.emit(0xC0 | (reg&7)<<3 | rm&7)
}

// rm encodes an instruction with a [base+disp] memory operand.
func (a *Asm) rm(prefix byte, w, force bool, opcode []byte, reg byte, base Reg, disp int32) {
	if prefix != 0 {
		a.emit(prefix)
	}
	a.rex(w, reg, byte(base), force)
	a.emit(opcode...)
	a.mem(reg, base, disp)
}

// mem writes ModRM (plus SIB for rsp/r12 bases) and the displacement.
func (a *Asm) mem(reg byte, base Reg, disp int32) {
	r, b := (reg&7)<<3, byte(base)&7
	sib := b == 4
	switch {
	case disp == 0 && b != 5:
		a.emit(r | b)
		if sib {
			a.emit(0x24)
		}
	case disp >= -128 && disp <= 127:
		a.emit(0x40 | r | b)
		if sib {
			a.emit(0x24)
		}
		a.emit(byte(int8(disp)))
	default:
		a.emit(0x80 | r | b)
		if sib {
			a.emit(0x24)
		}
		a.u32(uint32(disp))
	}
}

func byteReg(r Reg) bool {
	return r >= RSP && r <= RDI
}
