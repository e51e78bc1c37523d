package amd64

// MovRR copies src to dst (64-bit).
func (a *Asm) MovRR(dst, src Reg) {
	a.rr(0, true, false, []byte{0x89}, byte(src), byte(dst))
}

// MovAbs loads a full 64-bit immediate and returns the offset of the
// immediate so it can be relocated.
func (a *Asm) MovAbs(dst Reg, imm uint64) int {
	a.rex(true, 0, byte(dst), false)
	a.emit(0xB8 + byte(dst)&7)
	at := a.Len()
	a.u64(imm)
	return at
}

// MovImm loads imm using the shortest encoding.
func (a *Asm) MovImm(dst Reg, imm int64) {
	switch {
	case imm >= 0 && imm <= 0xFFFFFFFF:
		// mov r32, imm32 zero-extends
		a.rex(false, 0, byte(dst), false)
		a.emit(0xB8 + byte(dst)&7)
		a.u32(uint32(imm))
	case imm >= -1<<31 && imm < 1<<31:
		a.rr(0, true, false, []byte{0xC7}, 0, byte(dst))
		a.u32(uint32(int32(imm)))
	default:
		a.MovAbs(dst, uint64(imm))
	}
}

// Load reads size bytes at [base+disp] into dst, sign- or zero-extending
// narrower values to 64 bits.
func (a *Asm) Load(dst, base Reg, disp int32, size int, signed bool) {
	switch size {
	case 8:
		a.rm(0, true, false, []byte{0x8B}, byte(dst), base, disp)
	case 4:
		if signed {
			a.rm(0, true, false, []byte{0x63}, byte(dst), base, disp)
		} else {
			a.rm(0, false, false, []byte{0x8B}, byte(dst), base, disp)
		}
	case 2:
		if signed {
			a.rm(0, true, false, []byte{0x0F, 0xBF}, byte(dst), base, disp)
		} else {
			a.rm(0, false, false, []byte{0x0F, 0xB7}, byte(dst), base, disp)
		}
	case 1:
		if signed {
			a.rm(0, true, false, []byte{0x0F, 0xBE}, byte(dst), base, disp)
		} else {
			a.rm(0, false, false, []byte{0x0F, 0xB6}, byte(dst), base, disp)
		}
	default:
		panic("amd64: unsupported load size")
	}
}

// Store writes the low size bytes of src to [base+disp].
func (a *Asm) Store(base Reg, disp int32, src Reg, size int) {
	switch size {
	case 8:
		a.rm(0, true, false, []byte{0x89}, byte(src), base, disp)
	case 4:
		a.rm(0, false, false, []byte{0x89}, byte(src), base, disp)
	case 2:
		a.rm(0x66, false, false, []byte{0x89}, byte(src), base, disp)
	case 1:
		a.rm(0, false, byteReg(src), []byte{0x88}, byte(src), base, disp)
	default:
		panic("amd64: unsupported store size")
	}
}

// LeaRIP loads a rip-relative address; returns the offset of the rel32.
func (a *Asm) LeaRIP(dst Reg) int {
	a.rex(true, byte(dst), 0, false)
	a.emit(0x8D, 0x05|(byte(dst)&7)<<3)
	at := a.Len()
	a.u32(0)
	return at
}

// Alu applies op to dst and src (64-bit).
func (a *Asm) Alu(op AluOp, dst, src Reg) {
	a.rr(0, true, false, []byte{aluEncoding[op].opcode}, byte(src), byte(dst))
}

// AluImm applies op to dst and a sign-extended imm32.
func (a *Asm) AluImm(op AluOp, dst Reg, imm int32) {
	a.rr(0, true, false, []byte{0x81}, aluEncoding[op].ext, byte(dst))
	a.u32(uint32(imm))
}

// CmpMem compares r with the 64-bit value at [base+disp].
func (a *Asm) CmpMem(r, base Reg, disp int32) {
	a.rm(0, true, false, []byte{0x3B}, byte(r), base, disp)
}

// Imul multiplies dst by src.
func (a *Asm) Imul(dst, src Reg) {
	a.rr(0, true, false, []byte{0x0F, 0xAF}, byte(dst), byte(src))
}

// ImulImm sets dst = src * imm.
func (a *Asm) ImulImm(dst, src Reg, imm int32) {
	a.rr(0, true, false, []byte{0x69}, byte(dst), byte(src))
	a.u32(uint32(imm))
}

// Test sets flags from x & y.
func (a *Asm) Test(x, y Reg) {
	a.rr(0, true, false, []byte{0x85}, byte(y), byte(x))
}

// Cqo sign-extends rax into rdx:rax.
func (a *Asm) Cqo() {
	a.emit(0x48, 0x99)
}

// unary emits the F7 group (not, neg, div, idiv) on r.
func (a *Asm) unary(ext byte, r Reg) {
	a.rr(0, true, false, []byte{0xF7}, ext, byte(r))
}

func (a *Asm) Not(r Reg)  { a.unary(2, r) }
func (a *Asm) Neg(r Reg)  { a.unary(3, r) }
func (a *Asm) Div(r Reg)  { a.unary(6, r) }
func (a *Asm) Idiv(r Reg) { a.unary(7, r) }

// Shift by cl: ext 4 shl, 5 shr, 7 sar.
func (a *Asm) shiftCL(ext byte, r Reg) {
	a.rr(0, true, false, []byte{0xD3}, ext, byte(r))
}

func (a *Asm) ShlCL(r Reg) { a.shiftCL(4, r) }
func (a *Asm) ShrCL(r Reg) { a.shiftCL(5, r) }
func (a *Asm) SarCL(r Reg) { a.shiftCL(7, r) }

// Setcc writes the condition into the low byte of r.
func (a *Asm) Setcc(c Cond, r Reg) {
	a.rr(0, false, byteReg(r), []byte{0x0F, 0x90 | byte(c)}, 0, byte(r))
}

// Movzx8 zero-extends the low byte of src into dst.
func (a *Asm) Movzx8(dst, src Reg) {
	a.rr(0, false, byteReg(src), []byte{0x0F, 0xB6}, byte(dst), byte(src))
}

// Jmp emits jmp rel32 and returns the offset of the rel32.
func (a *Asm) Jmp() int {
	a.emit(0xE9)
	at := a.Len()
	a.u32(0)
	return at
}

// Jcc emits a conditional rel32 jump and returns the offset of the rel32.
func (a *Asm) Jcc(c Cond) int {
	a.emit(0x0F, 0x80|byte(c))
	at := a.Len()
	a.u32(0)
	return at
}

// Call emits call rel32 and returns the offset of the rel32.
func (a *Asm) Call() int {
	a.emit(0xE8)
	at := a.Len()
	a.u32(0)
	return at
}

// CallReg calls the address in r.
func (a *Asm) CallReg(r Reg) {
	a.rr(0, false, false, []byte{0xFF}, 2, byte(r))
}

func (a *Asm) Push(r Reg) {
	a.rex(false, 0, byte(r), false)
	a.emit(0x50 + byte(r)&7)
}

func (a *Asm) Pop(r Reg) {
	a.rex(false, 0, byte(r), false)
	a.emit(0x58 + byte(r)&7)
}

func (a *Asm) Ret()      { a.emit(0xC3) }
func (a *Asm) Leave()    { a.emit(0xC9) }
func (a *Asm) Ud2()      { a.emit(0x0F, 0x0B) }
func (a *Asm) RepStosb() { a.emit(0xF3, 0xAA) }
