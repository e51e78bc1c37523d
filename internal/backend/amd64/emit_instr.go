package amd64

import (
	"fmt"

	"fortio.org/safecast"

	"jitcc/internal/mir"
)

type extend uint8

const (
	extZero extend = iota
	extSign
)

// naturalExt is the extension used when a value leaves a function: booleans
// are zero-extended, other integers sign-extended.
func naturalExt(t mir.Type) extend {
	if t == mir.I1 {
		return extZero
	}
	return extSign
}

// loadInt puts an integer or pointer operand in r, extended to 64 bits.
func (fe *funcEmitter) loadInt(r Reg, v mir.Value, ext extend) error {
	switch v := v.(type) {
	case *mir.Instr:
		if v.Op == mir.OpConst {
			if ext == extSign {
				fe.a.MovImm(r, mir.SignExtend(v.Ty, v.Imm))
			} else {
				fe.a.MovImm(r, int64(mir.ZeroExtend(v.Ty, v.Imm)))
			}
			return nil
		}
		slot, err := fe.slot(v)
		if err != nil {
			return err
		}
		if v.Ty == mir.I1 {
			fe.a.Load(r, RBP, slot, 1, false)
			return nil
		}
		fe.a.Load(r, RBP, slot, v.Ty.Size(), ext == extSign)
		return nil
	case *mir.Global:
		fe.a.MovAbs(r, uint64(v.Addr))
		return nil
	case *mir.Func:
		if v.Module != fe.f.Module {
			return fmt.Errorf("%s belongs to another unit", v.Ref())
		}
		fe.e.fixups = append(fe.e.fixups, callFixup{at: fe.a.LeaRIP(r), target: v})
		return nil
	case *mir.Extern:
		fe.e.relocs = append(fe.e.relocs, Reloc{Offset: fe.a.MovAbs(r, 0), Kind: RelocAbs64, Target: v})
		return nil
	}
	return fmt.Errorf("cannot load %T", v)
}

// loadBits puts the raw 8-byte slot contents (or the constant bits) in r.
func (fe *funcEmitter) loadBits(r Reg, v mir.Value) error {
	in, ok := v.(*mir.Instr)
	if !ok {
		return fe.loadInt(r, v, extZero)
	}
	if in.Op == mir.OpConst {
		fe.a.MovImm(r, in.Imm)
		return nil
	}
	slot, err := fe.slot(in)
	if err != nil {
		return err
	}
	fe.a.Load(r, RBP, slot, 8, false)
	return nil
}

// loadFloat puts a floating operand in x. Constants pass through rax.
func (fe *funcEmitter) loadFloat(x XReg, v mir.Value) error {
	in, ok := v.(*mir.Instr)
	if !ok || !in.Ty.IsFloat() {
		return fmt.Errorf("%s is not a floating value", v.Ref())
	}
	if in.Op == mir.OpConst {
		fe.a.MovImm(RAX, in.Imm)
		fe.a.MovqToX(x, RAX)
		return nil
	}
	slot, err := fe.slot(in)
	if err != nil {
		return err
	}
	fe.a.MovsLoad(x, RBP, slot, in.Ty == mir.F32)
	return nil
}

func (fe *funcEmitter) storeInt(in *mir.Instr, r Reg) error {
	slot, err := fe.slot(in)
	if err != nil {
		return err
	}
	fe.a.Store(RBP, slot, r, 8)
	return nil
}

func (fe *funcEmitter) storeFloat(in *mir.Instr, x XReg) error {
	slot, err := fe.slot(in)
	if err != nil {
		return err
	}
	fe.a.MovsStore(RBP, slot, x, in.Ty == mir.F32)
	return nil
}

func (fe *funcEmitter) loadPair(x, y mir.Value, ext extend) error {
	if err := fe.loadInt(RAX, x, ext); err != nil {
		return err
	}
	return fe.loadInt(RCX, y, ext)
}

func (fe *funcEmitter) loadFloatPair(x, y mir.Value) error {
	if err := fe.loadFloat(X0, x); err != nil {
		return err
	}
	return fe.loadFloat(X1, y)
}

var (
	intPredCond = map[mir.Pred]Cond{
		mir.PredEQ: CondE, mir.PredNE: CondNE,
		mir.PredLT: CondL, mir.PredLE: CondLE, mir.PredGT: CondG, mir.PredGE: CondGE,
		mir.PredULT: CondB, mir.PredULE: CondBE, mir.PredUGT: CondA, mir.PredUGE: CondAE,
	}
	aluOps = map[mir.Op]AluOp{
		mir.OpAdd: AluAdd, mir.OpSub: AluSub, mir.OpAnd: AluAnd, mir.OpOr: AluOr, mir.OpXor: AluXor,
	}
	sseOps = map[mir.Op]SseOp{
		mir.OpFAdd: SseAdd, mir.OpFSub: SseSub, mir.OpFMul: SseMul, mir.OpFDiv: SseDiv,
	}
)

func (fe *funcEmitter) emitInstr(in *mir.Instr) error {
	a := fe.a
	switch in.Op {
	case mir.OpConst, mir.OpPhi:
		// constants are materialized at each use; phis are filled by predecessors
		return nil
	case mir.OpAdd, mir.OpSub, mir.OpAnd, mir.OpOr, mir.OpXor:
		if err := fe.loadPair(in.Args[0], in.Args[1], extZero); err != nil {
			return err
		}
		a.Alu(aluOps[in.Op], RAX, RCX)
		return fe.storeInt(in, RAX)
	case mir.OpMul:
		if err := fe.loadPair(in.Args[0], in.Args[1], extZero); err != nil {
			return err
		}
		a.Imul(RAX, RCX)
		return fe.storeInt(in, RAX)
	case mir.OpSDiv, mir.OpSRem:
		if err := fe.loadPair(in.Args[0], in.Args[1], extSign); err != nil {
			return err
		}
		a.Cqo()
		a.Idiv(RCX)
		if in.Op == mir.OpSRem {
			return fe.storeInt(in, RDX)
		}
		return fe.storeInt(in, RAX)
	case mir.OpUDiv, mir.OpURem:
		if err := fe.loadPair(in.Args[0], in.Args[1], extZero); err != nil {
			return err
		}
		a.Alu(AluXor, RDX, RDX)
		a.Div(RCX)
		if in.Op == mir.OpURem {
			return fe.storeInt(in, RDX)
		}
		return fe.storeInt(in, RAX)
	case mir.OpShl, mir.OpLShr, mir.OpAShr:
		ext := extZero
		if in.Op == mir.OpAShr {
			ext = extSign
		}
		if err := fe.loadPair(in.Args[0], in.Args[1], ext); err != nil {
			return err
		}
		switch in.Op {
		case mir.OpShl:
			a.ShlCL(RAX)
		case mir.OpLShr:
			a.ShrCL(RAX)
		default:
			a.SarCL(RAX)
		}
		return fe.storeInt(in, RAX)
	case mir.OpNeg, mir.OpNot:
		if err := fe.loadInt(RAX, in.Args[0], extZero); err != nil {
			return err
		}
		if in.Op == mir.OpNeg {
			a.Neg(RAX)
		} else {
			a.Not(RAX)
		}
		return fe.storeInt(in, RAX)
	case mir.OpFAdd, mir.OpFSub, mir.OpFMul, mir.OpFDiv:
		if err := fe.loadFloatPair(in.Args[0], in.Args[1]); err != nil {
			return err
		}
		a.Sse(sseOps[in.Op], X0, X1, in.Ty == mir.F32)
		return fe.storeFloat(in, X0)
	case mir.OpFSqrt:
		if err := fe.loadFloat(X0, in.Args[0]); err != nil {
			return err
		}
		a.Sse(SseSqrt, X0, X0, in.Ty == mir.F32)
		return fe.storeFloat(in, X0)
	case mir.OpFNeg:
		if err := fe.loadBits(RAX, in.Args[0]); err != nil {
			return err
		}
		sign := int64(-1 << 63)
		if in.Ty == mir.F32 {
			sign = 1 << 31
		}
		a.MovImm(RCX, sign)
		a.Alu(AluXor, RAX, RCX)
		return fe.storeInt(in, RAX)
	case mir.OpICmp:
		return fe.emitICmp(in)
	case mir.OpFCmp:
		return fe.emitFCmp(in)
	case mir.OpSExt, mir.OpZExt, mir.OpTrunc:
		ext := extZero
		if in.Op == mir.OpSExt {
			ext = extSign
		}
		if err := fe.loadInt(RAX, in.Args[0], ext); err != nil {
			return err
		}
		if in.Op == mir.OpTrunc && in.Ty == mir.I1 {
			a.AluImm(AluAnd, RAX, 1)
		}
		return fe.storeInt(in, RAX)
	case mir.OpSIToFP:
		if err := fe.loadInt(RAX, in.Args[0], extSign); err != nil {
			return err
		}
		a.Cvtsi2s(X0, RAX, in.Ty == mir.F32)
		return fe.storeFloat(in, X0)
	case mir.OpFPToSI:
		if err := fe.loadFloat(X0, in.Args[0]); err != nil {
			return err
		}
		a.Cvtts2si(RAX, X0, in.Args[0].Type() == mir.F32)
		return fe.storeInt(in, RAX)
	case mir.OpFPExt:
		if err := fe.loadFloat(X0, in.Args[0]); err != nil {
			return err
		}
		a.Cvtss2sd(X0, X0)
		return fe.storeFloat(in, X0)
	case mir.OpFPTrunc:
		if err := fe.loadFloat(X0, in.Args[0]); err != nil {
			return err
		}
		a.Cvtsd2ss(X0, X0)
		return fe.storeFloat(in, X0)
	case mir.OpBitcast:
		if err := fe.loadBits(RAX, in.Args[0]); err != nil {
			return err
		}
		return fe.storeInt(in, RAX)
	case mir.OpLoad:
		if err := fe.loadInt(RCX, in.Args[0], extZero); err != nil {
			return err
		}
		a.Load(RAX, RCX, 0, in.Ty.Size(), false)
		return fe.storeInt(in, RAX)
	case mir.OpStore:
		if err := fe.loadInt(RCX, in.Args[0], extZero); err != nil {
			return err
		}
		if err := fe.loadBits(RAX, in.Args[1]); err != nil {
			return err
		}
		a.Store(RCX, 0, RAX, in.Args[1].Type().Size())
		return nil
	case mir.OpPtrAdd:
		return fe.emitPtrAdd(in)
	case mir.OpAlloc:
		return fe.emitAlloc(in)
	case mir.OpCall:
		return fe.emitCall(in)
	}
	return fmt.Errorf("no lowering for %s", in.Op)
}

func (fe *funcEmitter) emitICmp(in *mir.Instr) error {
	cond, ok := intPredCond[in.Pred]
	if !ok {
		return fmt.Errorf("unknown predicate %s", in.Pred)
	}
	ext := extZero
	switch in.Pred {
	case mir.PredLT, mir.PredLE, mir.PredGT, mir.PredGE:
		ext = extSign
	}
	if err := fe.loadPair(in.Args[0], in.Args[1], ext); err != nil {
		return err
	}
	fe.a.Alu(AluCmp, RAX, RCX)
	fe.a.Setcc(cond, RAX)
	fe.a.Movzx8(RAX, RAX)
	return fe.storeInt(in, RAX)
}

// emitFCmp lowers ordered comparisons. ucomis sets ZF, PF and CF all to 1 for
// unordered operands, so "above" style conditions are false on NaN; equality
// additionally checks PF.
func (fe *funcEmitter) emitFCmp(in *mir.Instr) error {
	a := fe.a
	f32 := in.Args[0].Type() == mir.F32
	if err := fe.loadFloatPair(in.Args[0], in.Args[1]); err != nil {
		return err
	}
	switch in.Pred {
	case mir.PredEQ, mir.PredNE:
		a.Ucomis(X0, X1, f32)
		combine, flag := AluAnd, CondNP
		cond := CondE
		if in.Pred == mir.PredNE {
			combine, flag, cond = AluOr, CondP, CondNE
		}
		a.Setcc(cond, RAX)
		a.Setcc(flag, RCX)
		a.Movzx8(RAX, RAX)
		a.Movzx8(RCX, RCX)
		a.Alu(combine, RAX, RCX)
		return fe.storeInt(in, RAX)
	case mir.PredGT:
		a.Ucomis(X0, X1, f32)
		a.Setcc(CondA, RAX)
	case mir.PredGE:
		a.Ucomis(X0, X1, f32)
		a.Setcc(CondAE, RAX)
	case mir.PredLT:
		a.Ucomis(X1, X0, f32)
		a.Setcc(CondA, RAX)
	case mir.PredLE:
		a.Ucomis(X1, X0, f32)
		a.Setcc(CondAE, RAX)
	default:
		return fmt.Errorf("predicate %s is not valid for floats", in.Pred)
	}
	a.Movzx8(RAX, RAX)
	return fe.storeInt(in, RAX)
}

func (fe *funcEmitter) emitPtrAdd(in *mir.Instr) error {
	a := fe.a
	if err := fe.loadInt(RAX, in.Args[0], extZero); err != nil {
		return err
	}
	if len(in.Args) == 2 {
		scale, err := safecast.Conv[int32](in.Imm)
		if err != nil {
			return fmt.Errorf("ptradd scale: %w", err)
		}
		if err := fe.loadInt(RCX, in.Args[1], extSign); err != nil {
			return err
		}
		if scale != 1 {
			a.ImulImm(RCX, RCX, scale)
		}
		a.Alu(AluAdd, RAX, RCX)
	}
	if in.Disp != 0 {
		disp, err := safecast.Conv[int32](in.Disp)
		if err != nil {
			return fmt.Errorf("ptradd displacement: %w", err)
		}
		a.AluImm(AluAdd, RAX, disp)
	}
	return fe.storeInt(in, RAX)
}

// emitCall loads floating arguments first, since float constants pass
// through rax, then the callee and the integer arguments.
func (fe *funcEmitter) emitCall(in *mir.Instr) error {
	a := fe.a
	sig := in.Sig
	callee, args := in.Args[0], in.Args[1:]
	floats := 0
	for i, arg := range args {
		if !sig.Params[i].IsFloat() {
			continue
		}
		if floats >= len(floatArgRegs) {
			return fmt.Errorf("more than %d floating arguments", len(floatArgRegs))
		}
		if err := fe.loadFloat(floatArgRegs[floats], arg); err != nil {
			return err
		}
		floats++
	}
	direct, isDirect := callee.(*mir.Func)
	isDirect = isDirect && direct.Module == fe.f.Module
	if !isDirect {
		if err := fe.loadInt(callScratch, callee, extZero); err != nil {
			return err
		}
	}
	ints := 0
	for i, arg := range args {
		if sig.Params[i].IsFloat() {
			continue
		}
		if ints >= len(intArgRegs) {
			return fmt.Errorf("more than %d integer arguments", len(intArgRegs))
		}
		if err := fe.loadInt(intArgRegs[ints], arg, naturalExt(sig.Params[i])); err != nil {
			return err
		}
		ints++
	}
	if isDirect {
		fe.e.fixups = append(fe.e.fixups, callFixup{at: a.Call(), target: direct})
	} else {
		a.CallReg(callScratch)
	}
	switch {
	case sig.Result.IsFloat():
		return fe.storeFloat(in, X0)
	case sig.Result != mir.Void:
		return fe.storeInt(in, RAX)
	}
	return nil
}
