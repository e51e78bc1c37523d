package mir

import (
	"fmt"
	"math"
)

// InsertPoint is a saved builder position.
type InsertPoint struct {
	block *Block
}

// Builder appends instructions at the end of its current block.
type Builder struct {
	block *Block
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SetInsertPoint positions the builder at the end of b; nil clears it.
func (b *Builder) SetInsertPoint(blk *Block) {
	b.block = blk
}

// Block returns the current block or nil.
func (b *Builder) Block() *Block {
	return b.block
}

// Func returns the function being built or nil.
func (b *Builder) Func() *Func {
	if b.block == nil {
		return nil
	}
	return b.block.Func
}

// Active reports whether instructions can be emitted.
func (b *Builder) Active() bool {
	return b.block != nil && !b.block.Terminated()
}

// Save captures the current position.
func (b *Builder) Save() InsertPoint {
	return InsertPoint{block: b.block}
}

// Restore returns to a saved position.
func (b *Builder) Restore(ip InsertPoint) {
	b.block = ip.block
}

// Mark records the position together with the state of its block and
// function, so Rewind can drop everything emitted after it.
type Mark struct {
	ip     InsertPoint
	instrs int
	term   Terminator
	blocks int
}

// Mark captures the current position for Rewind.
func (b *Builder) Mark() Mark {
	m := Mark{ip: b.Save()}
	if b.block != nil {
		m.instrs = len(b.block.Instrs)
		m.term = b.block.Term
		m.blocks = len(b.block.Func.Blocks)
	}
	return m
}

// Rewind returns to m and discards the instructions, terminator and blocks
// added to its function since. Values emitted after m must not be used.
func (b *Builder) Rewind(m Mark) {
	if blk := m.ip.block; blk != nil {
		clear(blk.Instrs[m.instrs:])
		blk.Instrs = blk.Instrs[:m.instrs]
		blk.Term = m.term
		f := blk.Func
		clear(f.Blocks[m.blocks:])
		f.Blocks = f.Blocks[:m.blocks]
	}
	b.Restore(m.ip)
}

func (b *Builder) emit(op Op, ty Type, args ...Value) *Instr {
	if b.block == nil {
		panic("mir: builder has no insertion point")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("mir: emitting %s into terminated block %s", op, b.block.Name()))
	}
	in := b.block.Func.newInstr(op, ty)
	in.Args = args
	in.Block = b.block
	b.block.Instrs = append(b.block.Instrs, in)
	return in
}

// Const emits a constant with raw bits.
func (b *Builder) Const(t Type, bits int64) *Instr {
	in := b.emit(OpConst, t)
	in.Imm = bits
	return in
}

// ConstInt emits an integer constant normalized to the width of t.
func (b *Builder) ConstInt(t Type, v int64) *Instr {
	return b.Const(t, SignExtend(t, v))
}

// ConstFloat emits a floating constant of type t.
func (b *Builder) ConstFloat(t Type, v float64) *Instr {
	if t == F32 {
		return b.Const(t, int64(math.Float32bits(float32(v))))
	}
	return b.Const(t, int64(math.Float64bits(v)))
}

// ConstBool emits an i1 constant.
func (b *Builder) ConstBool(v bool) *Instr {
	if v {
		return b.Const(I1, 1)
	}
	return b.Const(I1, 0)
}

// Binary emits a two-operand arithmetic or bitwise operation.
func (b *Builder) Binary(op Op, x, y Value) *Instr {
	return b.emit(op, x.Type(), x, y)
}

// Unary emits neg, not, fneg or fsqrt.
func (b *Builder) Unary(op Op, x Value) *Instr {
	return b.emit(op, x.Type(), x)
}

// ICmp compares integers or pointers.
func (b *Builder) ICmp(p Pred, x, y Value) *Instr {
	in := b.emit(OpICmp, I1, x, y)
	in.Pred = p
	return in
}

// FCmp compares floats.
func (b *Builder) FCmp(p Pred, x, y Value) *Instr {
	in := b.emit(OpFCmp, I1, x, y)
	in.Pred = p
	return in
}

// Convert emits a conversion of x to type to.
func (b *Builder) Convert(op Op, x Value, to Type) *Instr {
	return b.emit(op, to, x)
}

// Load reads a t from ptr.
func (b *Builder) Load(t Type, ptr Value) *Instr {
	return b.emit(OpLoad, t, ptr)
}

// Store writes v to ptr.
func (b *Builder) Store(ptr, v Value) *Instr {
	return b.emit(OpStore, Void, ptr, v)
}

// PtrAdd computes ptr + index*scale + disp; index may be nil.
func (b *Builder) PtrAdd(ptr, index Value, scale, disp int64) *Instr {
	args := []Value{ptr}
	if index != nil {
		args = append(args, index)
	}
	in := b.emit(OpPtrAdd, Ptr, args...)
	in.Imm = scale
	in.Disp = disp
	return in
}

// Alloc reserves size bytes aligned to align from the runtime heap.
func (b *Builder) Alloc(size, align Value, elem Type, zero bool) *Instr {
	in := b.emit(OpAlloc, Ptr, size, align)
	in.Elem = elem
	if zero {
		in.Imm = 1
	}
	return in
}

// Call invokes callee with the given signature.
func (b *Builder) Call(callee Value, sig *Signature, args ...Value) *Instr {
	in := b.emit(OpCall, sig.Result, append([]Value{callee}, args...)...)
	in.Sig = sig
	return in
}

// Phi emits a phi at the head of the current block.
func (b *Builder) Phi(t Type) *Instr {
	blk := b.block
	if blk == nil {
		panic("mir: builder has no insertion point")
	}
	in := blk.Func.newInstr(OpPhi, t)
	in.Block = blk
	n := len(blk.Phis())
	blk.Instrs = append(blk.Instrs, nil)
	copy(blk.Instrs[n+1:], blk.Instrs[n:])
	blk.Instrs[n] = in
	return in
}

// AddIncoming records that phi takes v when entered from pred.
func AddIncoming(phi *Instr, v Value, pred *Block) {
	phi.Incoming = append(phi.Incoming, Incoming{Value: v, Pred: pred})
}

// Ret terminates with a value.
func (b *Builder) Ret(v Value) {
	b.terminate(Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: v}})
}

// RetVoid terminates without a value.
func (b *Builder) RetVoid() {
	b.terminate(Terminator{Kind: TermReturn})
}

// Jump terminates with an unconditional branch.
func (b *Builder) Jump(target *Block) {
	b.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: target}})
}

// If terminates with a conditional branch on an i1.
func (b *Builder) If(cond Value, then, els *Block) {
	b.terminate(Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: then, Else: els}})
}

// Unreachable terminates with a trap.
func (b *Builder) Unreachable() {
	b.terminate(Terminator{Kind: TermUnreachable})
}

func (b *Builder) terminate(t Terminator) {
	if b.block == nil {
		panic("mir: builder has no insertion point")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("mir: block %s already terminated", b.block.Name()))
	}
	b.block.Term = t
}

// SignExtend truncates v to the width of t and sign-extends it back.
func SignExtend(t Type, v int64) int64 {
	switch t {
	case I1:
		return v & 1
	case I8:
		return int64(int8(v))
	case I16:
		return int64(int16(v))
	case I32:
		return int64(int32(v))
	}
	return v
}

// ZeroExtend truncates v to the width of t without sign.
func ZeroExtend(t Type, v int64) uint64 {
	switch t {
	case I1:
		return uint64(v) & 1
	case I8:
		return uint64(uint8(v))
	case I16:
		return uint64(uint16(v))
	case I32:
		return uint64(uint32(v))
	}
	return uint64(v)
}
