package amd64

func scalarPrefix(f32 bool) byte {
	if f32 {
		return 0xF3
	}
	return 0xF2
}

// MovsLoad loads a scalar float from [base+disp].
func (a *Asm) MovsLoad(dst XReg, base Reg, disp int32, f32 bool) {
	a.rm(scalarPrefix(f32), false, false, []byte{0x0F, 0x10}, byte(dst), base, disp)
}

// MovsStore stores a scalar float to [base+disp].
func (a *Asm) MovsStore(base Reg, disp int32, src XReg, f32 bool) {
	a.rm(scalarPrefix(f32), false, false, []byte{0x0F, 0x11}, byte(src), base, disp)
}

// Sse applies a scalar arithmetic op: dst = dst op src.
func (a *Asm) Sse(op SseOp, dst, src XReg, f32 bool) {
	a.rr(scalarPrefix(f32), false, false, []byte{0x0F, byte(op)}, byte(dst), byte(src))
}

// Ucomis compares x with y, setting ZF, PF and CF.
func (a *Asm) Ucomis(x, y XReg, f32 bool) {
	var prefix byte
	if !f32 {
		prefix = 0x66
	}
	a.rr(prefix, false, false, []byte{0x0F, 0x2E}, byte(x), byte(y))
}

// Cvtsi2s converts the signed 64-bit integer in src.
func (a *Asm) Cvtsi2s(dst XReg, src Reg, f32 bool) {
	a.rr(scalarPrefix(f32), true, false, []byte{0x0F, 0x2A}, byte(dst), byte(src))
}

// Cvtts2si truncates src to a signed 64-bit integer.
func (a *Asm) Cvtts2si(dst Reg, src XReg, f32 bool) {
	a.rr(scalarPrefix(f32), true, false, []byte{0x0F, 0x2C}, byte(dst), byte(src))
}

// Cvtss2sd widens a single to a double.
func (a *Asm) Cvtss2sd(dst, src XReg) {
	a.rr(0xF3, false, false, []byte{0x0F, 0x5A}, byte(dst), byte(src))
}

// Cvtsd2ss narrows a double to a single.
func (a *Asm) Cvtsd2ss(dst, src XReg) {
	a.rr(0xF2, false, false, []byte{0x0F, 0x5A}, byte(dst), byte(src))
}

// MovqToX copies a general register into the low quadword of dst.
func (a *Asm) MovqToX(dst XReg, src Reg) {
	a.rr(0x66, true, false, []byte{0x0F, 0x6E}, byte(dst), byte(src))
}

// MovqFromX copies the low quadword of src into dst.
func (a *Asm) MovqFromX(dst Reg, src XReg) {
	a.rr(0x66, true, false, []byte{0x0F, 0x7E}, byte(src), byte(dst))
}
