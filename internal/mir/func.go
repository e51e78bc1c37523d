package mir

import "fmt"

type Func struct {
	Name   string
	Sig    *Signature
	Params []*Instr
	Blocks []*Block
	Module *Module

	// Stub requests a Go-callable entry stub for the function.
	Stub bool

	nextID    int
	nextBlock int
}

func (f *Func) Type() Type  { return Ptr }
func (f *Func) Ref() string { return "@" + f.Name }

// Entry returns the entry block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends an empty block.
func (f *Func) NewBlock(label string) *Block {
	b := &Block{ID: f.nextBlock, Label: label, Func: f}
	f.nextBlock++
	f.Blocks = append(f.Blocks, b)
	return b
}

// NumValues is one past the largest instruction ID handed out.
func (f *Func) NumValues() int {
	return f.nextID
}

func (f *Func) newInstr(op Op, ty Type) *Instr {
	in := &Instr{ID: f.nextID, Op: op, Ty: ty}
	f.nextID++
	return in
}

// Param returns the i-th parameter.
func (f *Func) Param(i int) *Instr {
	if i < 0 || i >= len(f.Params) {
		panic(fmt.Sprintf("mir: %s has no parameter %d", f.Name, i))
	}
	return f.Params[i]
}

// Instrs iterates every instruction in block order.
func (f *Func) Instrs(yield func(*Instr) bool) {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if !yield(in) {
				return
			}
		}
	}
}
