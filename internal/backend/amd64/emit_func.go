package amd64

import (
	"fmt"

	"fortio.org/safecast"

	"jitcc/internal/mir"
)

// CheckSignature fails when sig passes more arguments of one class than
// there are argument registers for it. Stack-passed arguments are not
// supported.
func CheckSignature(sig *mir.Signature) error {
	ints, floats := 0, 0
	for _, p := range sig.Params {
		if p.IsFloat() {
			floats++
		} else {
			ints++
		}
	}
	if ints > len(intArgRegs) {
		return fmt.Errorf("more than %d integer parameters", len(intArgRegs))
	}
	if floats > len(floatArgRegs) {
		return fmt.Errorf("more than %d floating parameters", len(floatArgRegs))
	}
	return nil
}

type jumpFixup struct {
	at     int
	target *mir.Block
}

type funcEmitter struct {
	e        *Emitter
	a        *Asm
	f        *mir.Func
	blockOff map[*mir.Block]int
	jumps    []jumpFixup
}

func (e *Emitter) emitFunction(f *mir.Func) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("function has no blocks")
	}
	fe := &funcEmitter{
		e:        e,
		a:        &e.asm,
		f:        f,
		blockOff: make(map[*mir.Block]int, len(f.Blocks)),
	}
	if err := fe.prologue(); err != nil {
		return err
	}
	for i, b := range f.Blocks {
		fe.blockOff[b] = fe.a.Len()
		for _, in := range b.Instrs {
			if err := fe.emitInstr(in); err != nil {
				return fmt.Errorf("%s: %s: %w", b.Name(), mir.FormatInstr(in), err)
			}
		}
		var next *mir.Block
		if i+1 < len(f.Blocks) {
			next = f.Blocks[i+1]
		}
		if err := fe.emitTerm(b, next); err != nil {
			return fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	for _, j := range fe.jumps {
		off, ok := fe.blockOff[j.target]
		if !ok {
			return fmt.Errorf("jump to unknown block %s", j.target.Name())
		}
		fe.a.PatchRel32(j.at, off)
	}
	return nil
}

// prologue: push rbp; mov rbp, rsp; sub rsp, frame; spill parameters.
func (fe *funcEmitter) prologue() error {
	frame, err := safecast.Conv[int32](fe.f.NumValues() * 8)
	if err != nil {
		return fmt.Errorf("frame too large: %w", err)
	}
	frame = (frame + 15) &^ 15
	fe.a.Push(RBP)
	fe.a.MovRR(RBP, RSP)
	if frame > 0 {
		fe.a.AluImm(AluSub, RSP, frame)
	}
	ints, floats := 0, 0
	for _, p := range fe.f.Params {
		slot, err := fe.slot(p)
		if err != nil {
			return err
		}
		if p.Ty.IsFloat() {
			if floats >= len(floatArgRegs) {
				return fmt.Errorf("more than %d floating parameters", len(floatArgRegs))
			}
			fe.a.MovsStore(RBP, slot, floatArgRegs[floats], p.Ty == mir.F32)
			floats++
			continue
		}
		if ints >= len(intArgRegs) {
			return fmt.Errorf("more than %d integer parameters", len(intArgRegs))
		}
		fe.a.Store(RBP, slot, intArgRegs[ints], 8)
		ints++
	}
	return nil
}

func (fe *funcEmitter) slot(in *mir.Instr) (int32, error) {
	off, err := safecast.Conv[int32](-8 * (in.ID + 1))
	if err != nil {
		return 0, fmt.Errorf("slot of %s: %w", in.Ref(), err)
	}
	return off, nil
}

func (fe *funcEmitter) emitTerm(b, next *mir.Block) error {
	switch b.Term.Kind {
	case mir.TermReturn:
		if b.Term.Return.HasValue {
			v := b.Term.Return.Value
			if v.Type().IsFloat() {
				if err := fe.loadFloat(X0, v); err != nil {
					return err
				}
			} else if err := fe.loadInt(RAX, v, naturalExt(v.Type())); err != nil {
				return err
			}
		}
		fe.a.Leave()
		fe.a.Ret()
	case mir.TermJump:
		return fe.jumpTo(b, b.Term.Jump.Target, next)
	case mir.TermIf:
		t := b.Term.If
		if t.Then == t.Else {
			return fe.jumpTo(b, t.Then, next)
		}
		if err := fe.loadInt(RAX, t.Cond, extZero); err != nil {
			return err
		}
		fe.a.Test(RAX, RAX)
		// phi moves run per edge, after the branch
		taken := fe.a.Jcc(CondNE)
		if err := fe.phiMoves(b, t.Else); err != nil {
			return err
		}
		fe.jumps = append(fe.jumps, jumpFixup{at: fe.a.Jmp(), target: t.Else})
		fe.a.PatchRel32(taken, fe.a.Len())
		return fe.jumpTo(b, t.Then, next)
	case mir.TermUnreachable:
		fe.a.Ud2()
	default:
		return fmt.Errorf("unterminated block")
	}
	return nil
}

func (fe *funcEmitter) jumpTo(from, target, next *mir.Block) error {
	if err := fe.phiMoves(from, target); err != nil {
		return err
	}
	if target != next {
		fe.jumps = append(fe.jumps, jumpFixup{at: fe.a.Jmp(), target: target})
	}
	return nil
}

// phiMoves copies the values flowing along from->to into the phi slots of
// to. Several phis are moved through the stack so they read the old values.
func (fe *funcEmitter) phiMoves(from, to *mir.Block) error {
	type move struct {
		src mir.Value
		dst int32
	}
	var moves []move
	for _, phi := range to.Phis() {
		var src mir.Value
		for _, inc := range phi.Incoming {
			if inc.Pred == from {
				src = inc.Value
				break
			}
		}
		if src == nil {
			return fmt.Errorf("%s has no value for edge from %s", phi.Ref(), from.Name())
		}
		dst, err := fe.slot(phi)
		if err != nil {
			return err
		}
		moves = append(moves, move{src: src, dst: dst})
	}
	if len(moves) == 1 {
		if err := fe.loadBits(RAX, moves[0].src); err != nil {
			return err
		}
		fe.a.Store(RBP, moves[0].dst, RAX, 8)
		return nil
	}
	for _, m := range moves {
		if err := fe.loadBits(RAX, m.src); err != nil {
			return err
		}
		fe.a.Push(RAX)
	}
	for i := len(moves) - 1; i >= 0; i-- {
		fe.a.Pop(RAX)
		fe.a.Store(RBP, moves[i].dst, RAX, 8)
	}
	return nil
}
