package amd64

import "fmt"

// Reg is a general purpose register by hardware encoding.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var regNames = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("reg(%d)", r)
}

// XReg is an SSE register.
type XReg uint8

const (
	X0 XReg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
)

func (x XReg) String() string {
	return fmt.Sprintf("xmm%d", x)
}

// Calling convention shared by generated functions and entry stubs. It is
// the Go register ABI on amd64, so a Go func value can point at a stub.
var (
	intArgRegs   = [...]Reg{RAX, RBX, RCX, RDI, RSI, R8, R9, R10, R11}
	floatArgRegs = [...]XReg{X0, X1, X2, X3, X4, X5, X6, X7, X8, X9, X10, X11, X12, X13, X14}
)

const (
	// goSP holds the caller's stack pointer inside an entry stub.
	goSP = R12
	// callScratch carries indirect and absolute call targets.
	callScratch = R13
)

// Cond is an x86 condition code.
type Cond uint8

const (
	CondO  Cond = 0x0
	CondB  Cond = 0x2
	CondAE Cond = 0x3
	CondE  Cond = 0x4
	CondNE Cond = 0x5
	CondBE Cond = 0x6
	CondA  Cond = 0x7
	CondP  Cond = 0xA
	CondNP Cond = 0xB
	CondL  Cond = 0xC
	CondGE Cond = 0xD
	CondLE Cond = 0xE
	CondG  Cond = 0xF
)

// AluOp selects one of the classic two-operand integer instructions.
type AluOp uint8

const (
	AluAdd AluOp = iota
	AluOr
	AluAnd
	AluSub
	AluXor
	AluCmp
)

// opcode is the r/m64, r64 form; ext is the /digit of the imm32 form.
var aluEncoding = [...]struct{ opcode, ext byte }{
	AluAdd: {0x01, 0},
	AluOr:  {0x09, 1},
	AluAnd: {0x21, 4},
	AluSub: {0x29, 5},
	AluXor: {0x31, 6},
	AluCmp: {0x39, 7},
}

// SseOp selects a scalar SSE arithmetic instruction.
type SseOp byte

const (
	SseSqrt SseOp = 0x51
	SseAdd  SseOp = 0x58
	SseMul  SseOp = 0x59
	SseSub  SseOp = 0x5C
	SseDiv  SseOp = 0x5E
)
