package mir

import "fmt"

type Block struct {
	ID     int
	Label  string
	Instrs []*Instr
	Term   Terminator
	Func   *Func
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

func (b *Block) Name() string {
	if b.Label != "" {
		return fmt.Sprintf("bb%d.%s", b.ID, b.Label)
	}
	return fmt.Sprintf("bb%d", b.ID)
}

// Phis returns the leading phi instructions.
func (b *Block) Phis() []*Instr {
	n := 0
	for n < len(b.Instrs) && b.Instrs[n].Op == OpPhi {
		n++
	}
	return b.Instrs[:n]
}

// Succs returns the successor blocks named by the terminator.
func (b *Block) Succs() []*Block {
	switch b.Term.Kind {
	case TermJump:
		return []*Block{b.Term.Jump.Target}
	case TermIf:
		if b.Term.If.Then == b.Term.If.Else {
			return []*Block{b.Term.If.Then}
		}
		return []*Block{b.Term.If.Then, b.Term.If.Else}
	}
	return nil
}
