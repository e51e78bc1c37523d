package mir

import (
	"fmt"
	"math"
)

// Value is anything an instruction can consume: an instruction result, a
// function, a global data cell or an external declaration.
type Value interface {
	Type() Type
	Ref() string
}

// Op enumerates instruction operations.
type Op uint8

const (
	OpInvalid Op = iota
	OpConst
	OpParam

	// integer arithmetic
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
	OpNeg
	OpNot

	// floating arithmetic
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg
	OpFSqrt

	OpICmp
	OpFCmp

	// conversions
	OpSExt
	OpZExt
	OpTrunc
	OpSIToFP
	OpFPToSI
	OpFPExt
	OpFPTrunc
	OpBitcast

	// memory
	OpLoad
	OpStore
	OpPtrAdd
	OpAlloc

	OpCall
	OpPhi
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpConst:   "const",
	OpParam:   "param",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpSDiv:    "sdiv",
	OpUDiv:    "udiv",
	OpSRem:    "srem",
	OpURem:    "urem",
	OpAnd:     "and",
	OpOr:      "or",
	OpXor:     "xor",
	OpShl:     "shl",
	OpLShr:    "lshr",
	OpAShr:    "ashr",
	OpNeg:     "neg",
	OpNot:     "not",
	OpFAdd:    "fadd",
	OpFSub:    "fsub",
	OpFMul:    "fmul",
	OpFDiv:    "fdiv",
	OpFNeg:    "fneg",
	OpFSqrt:   "fsqrt",
	OpICmp:    "icmp",
	OpFCmp:    "fcmp",
	OpSExt:    "sext",
	OpZExt:    "zext",
	OpTrunc:   "trunc",
	OpSIToFP:  "sitofp",
	OpFPToSI:  "fptosi",
	OpFPExt:   "fpext",
	OpFPTrunc: "fptrunc",
	OpBitcast: "bitcast",
	OpLoad:    "load",
	OpStore:   "store",
	OpPtrAdd:  "ptradd",
	OpAlloc:   "alloc",
	OpCall:    "call",
	OpPhi:     "phi",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// IsIntBinary reports two-operand integer operations.
func (op Op) IsIntBinary() bool {
	return op >= OpAdd && op <= OpAShr
}

// IsFloatBinary reports two-operand floating operations.
func (op Op) IsFloatBinary() bool {
	return op >= OpFAdd && op <= OpFDiv
}

// IsConversion reports width and domain conversions.
func (op Op) IsConversion() bool {
	return op >= OpSExt && op <= OpBitcast
}

// HasSideEffects reports operations that must survive even when unused.
func (op Op) HasSideEffects() bool {
	switch op {
	case OpStore, OpCall, OpAlloc, OpParam:
		return true
	}
	return false
}

// Pred is a comparison predicate. For OpFCmp the ordered predicates apply
// and PredNE is true for unordered operands.
type Pred uint8

const (
	PredEQ Pred = iota
	PredNE
	PredLT
	PredLE
	PredGT
	PredGE
	PredULT
	PredULE
	PredUGT
	PredUGE
)

var predNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge", "ult", "ule", "ugt", "uge"}

func (p Pred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return fmt.Sprintf("Pred(%d)", p)
}

// IsUnsigned reports the unsigned integer predicates.
func (p Pred) IsUnsigned() bool {
	return p >= PredULT
}

// Incoming is one phi operand.
type Incoming struct {
	Value Value
	Pred  *Block
}

// Instr is an SSA instruction; its result is the instruction itself.
type Instr struct {
	ID   int
	Op   Op
	Ty   Type
	Args []Value

	Imm  int64 // const bits, param index, ptradd scale, alloc zero-fill flag
	Disp int64 // ptradd byte displacement
	Pred Pred
	Sig  *Signature // call signature
	Elem Type       // alloc: representation of the allocated cell

	Incoming []Incoming
	Block    *Block
	Label    string
}

func (i *Instr) Type() Type { return i.Ty }

func (i *Instr) Ref() string {
	if i.Label != "" {
		return fmt.Sprintf("%%%s.%d", i.Label, i.ID)
	}
	return fmt.Sprintf("%%%d", i.ID)
}

// IsConst reports a constant instruction.
func (i *Instr) IsConst() bool {
	return i != nil && i.Op == OpConst
}

// Float returns the constant as a float64; F32 constants are widened.
func (i *Instr) Float() float64 {
	if i.Ty == F32 {
		return float64(math.Float32frombits(uint32(i.Imm)))
	}
	return math.Float64frombits(uint64(i.Imm))
}

// AsConst returns v as a constant instruction.
func AsConst(v Value) (*Instr, bool) {
	in, ok := v.(*Instr)
	if !ok || in.Op != OpConst {
		return nil, false
	}
	return in, true
}

// Global is a data cell at a fixed address owned by a compilation unit.
type Global struct {
	Name   string
	Elem   Type
	Addr   uintptr
	Module *Module
}

func (g *Global) Type() Type  { return Ptr }
func (g *Global) Ref() string { return "$" + g.Name }

func (g *Global) String() string {
	return fmt.Sprintf("$%s: %s @ %#x", g.Name, g.Elem, g.Addr)
}

// ExternKind separates code from data declarations.
type ExternKind uint8

const (
	ExternFunc ExternKind = iota
	ExternData
)

// Extern declares a symbol defined outside the unit that references it.
// Target is the defining Func or Global when it lives in another unit;
// Addr is set for host-provided symbols.
type Extern struct {
	Name   string
	Kind   ExternKind
	Sig    *Signature
	Elem   Type
	Target Value
	Addr   uintptr
	Module *Module
}

func (e *Extern) Type() Type  { return Ptr }
func (e *Extern) Ref() string { return "!" + e.Name }
