package mir

import (
	"math"
)

// FoldConstants rewrites instructions whose operands are all constants into
// constants. Instructions are rewritten in place so existing uses stay valid.
// Divisions by zero and out-of-range shifts are left for run time.
func FoldConstants(f *Func) bool {
	changed := false
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if bits, ok := foldInstr(in); ok {
				in.Op = OpConst
				in.Imm = bits
				in.Args = nil
				changed = true
			}
		}
	}
	return changed
}

func foldInstr(in *Instr) (int64, bool) {
	switch {
	case in.Op.IsIntBinary():
		x, okx := AsConst(in.Args[0])
		y, oky := AsConst(in.Args[1])
		if !okx || !oky {
			return 0, false
		}
		return foldIntBinary(in.Op, in.Ty, x.Imm, y.Imm)
	case in.Op.IsFloatBinary():
		x, okx := AsConst(in.Args[0])
		y, oky := AsConst(in.Args[1])
		if !okx || !oky {
			return 0, false
		}
		return floatBits(in.Ty, foldFloatBinary(in.Op, x.Float(), y.Float(), in.Ty)), true
	case in.Op == OpNeg || in.Op == OpNot || in.Op == OpFNeg || in.Op == OpFSqrt:
		x, ok := AsConst(in.Args[0])
		if !ok {
			return 0, false
		}
		switch in.Op {
		case OpNeg:
			return SignExtend(in.Ty, -x.Imm), true
		case OpNot:
			return SignExtend(in.Ty, ^x.Imm), true
		case OpFNeg:
			return floatBits(in.Ty, -x.Float()), true
		default:
			return floatBits(in.Ty, math.Sqrt(x.Float())), true
		}
	case in.Op == OpICmp:
		x, okx := AsConst(in.Args[0])
		y, oky := AsConst(in.Args[1])
		if !okx || !oky {
			return 0, false
		}
		return boolBits(compareInts(in.Pred, x.Ty, x.Imm, y.Imm)), true
	case in.Op == OpFCmp:
		x, okx := AsConst(in.Args[0])
		y, oky := AsConst(in.Args[1])
		if !okx || !oky {
			return 0, false
		}
		return boolBits(compareFloats(in.Pred, x.Float(), y.Float())), true
	case in.Op.IsConversion():
		x, ok := AsConst(in.Args[0])
		if !ok {
			return 0, false
		}
		return foldConversion(in.Op, x, in.Ty)
	}
	return 0, false
}

func foldIntBinary(op Op, t Type, a, b int64) (int64, bool) {
	sa, sb := SignExtend(t, a), SignExtend(t, b)
	ua, ub := ZeroExtend(t, a), ZeroExtend(t, b)
	var r int64
	switch op {
	case OpAdd:
		r = sa + sb
	case OpSub:
		r = sa - sb
	case OpMul:
		r = sa * sb
	case OpSDiv, OpSRem:
		if sb == 0 {
			return 0, false
		}
		if op == OpSDiv {
			r = sa / sb
		} else {
			r = sa % sb
		}
	case OpUDiv, OpURem:
		if ub == 0 {
			return 0, false
		}
		if op == OpUDiv {
			r = int64(ua / ub)
		} else {
			r = int64(ua % ub)
		}
	case OpAnd:
		r = sa & sb
	case OpOr:
		r = sa | sb
	case OpXor:
		r = sa ^ sb
	case OpShl, OpLShr, OpAShr:
		if ub >= uint64(t.Bits()) {
			return 0, false
		}
		switch op {
		case OpShl:
			r = sa << ub
		case OpLShr:
			r = int64(ua >> ub)
		default:
			r = sa >> ub
		}
	default:
		return 0, false
	}
	return SignExtend(t, r), true
}

func foldFloatBinary(op Op, a, b float64, t Type) float64 {
	if t == F32 {
		x, y := float32(a), float32(b)
		switch op {
		case OpFAdd:
			return float64(x + y)
		case OpFSub:
			return float64(x - y)
		case OpFMul:
			return float64(x * y)
		default:
			return float64(x / y)
		}
	}
	switch op {
	case OpFAdd:
		return a + b
	case OpFSub:
		return a - b
	case OpFMul:
		return a * b
	default:
		return a / b
	}
}

func compareInts(p Pred, t Type, a, b int64) bool {
	sa, sb := SignExtend(t, a), SignExtend(t, b)
	ua, ub := ZeroExtend(t, a), ZeroExtend(t, b)
	switch p {
	case PredEQ:
		return ua == ub
	case PredNE:
		return ua != ub
	case PredLT:
		return sa < sb
	case PredLE:
		return sa <= sb
	case PredGT:
		return sa > sb
	case PredGE:
		return sa >= sb
	case PredULT:
		return ua < ub
	case PredULE:
		return ua <= ub
	case PredUGT:
		return ua > ub
	default:
		return ua >= ub
	}
}

func compareFloats(p Pred, a, b float64) bool {
	switch p {
	case PredEQ:
		return a == b
	case PredNE:
		return a != b
	case PredLT:
		return a < b
	case PredLE:
		return a <= b
	case PredGT:
		return a > b
	default:
		return a >= b
	}
}

func foldConversion(op Op, x *Instr, to Type) (int64, bool) {
	switch op {
	case OpSExt:
		return SignExtend(to, SignExtend(x.Ty, x.Imm)), true
	case OpZExt:
		return SignExtend(to, int64(ZeroExtend(x.Ty, x.Imm))), true
	case OpTrunc:
		return SignExtend(to, x.Imm), true
	case OpSIToFP:
		return floatBits(to, float64(SignExtend(x.Ty, x.Imm))), true
	case OpFPToSI:
		v := x.Float()
		if math.IsNaN(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return SignExtend(to, int64(v)), true
	case OpFPExt, OpFPTrunc:
		return floatBits(to, x.Float()), true
	case OpBitcast:
		if to.IsFloat() {
			return int64(ZeroExtend(to.intOfSize(), x.Imm)), true
		}
		return SignExtend(to, x.Imm), true
	}
	return 0, false
}

func (t Type) intOfSize() Type {
	switch t.Size() {
	case 4:
		return I32
	case 2:
		return I16
	case 1:
		return I8
	}
	return I64
}

func floatBits(t Type, v float64) int64 {
	if t == F32 {
		return int64(math.Float32bits(float32(v)))
	}
	return int64(math.Float64bits(v))
}

func boolBits(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
