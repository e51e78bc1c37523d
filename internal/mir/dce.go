package mir

// EliminateDeadCode removes instructions without side effects whose results
// are never used, until nothing changes.
func EliminateDeadCode(f *Func) bool {
	removed := false
	for {
		uses := countUses(f)
		changed := false
		for _, b := range f.Blocks {
			kept := b.Instrs[:0]
			for _, in := range b.Instrs {
				if uses[in] == 0 && !in.Op.HasSideEffects() {
					changed = true
					continue
				}
				kept = append(kept, in)
			}
			for i := len(kept); i < len(b.Instrs); i++ {
				b.Instrs[i] = nil
			}
			b.Instrs = kept
		}
		if !changed {
			return removed
		}
		removed = true
	}
}

func countUses(f *Func) map[*Instr]int {
	uses := make(map[*Instr]int)
	note := func(v Value) {
		if in, ok := v.(*Instr); ok {
			uses[in]++
		}
	}
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for _, a := range in.Args {
				note(a)
			}
			for _, inc := range in.Incoming {
				if inc.Value != Value(in) {
					note(inc.Value)
				}
			}
		}
		for _, v := range b.Term.Operands() {
			note(v)
		}
	}
	return uses
}

// Optimize runs the standard pass pipeline over every function of m.
// Level 0 leaves the unit untouched.
func Optimize(m *Module, level int) {
	if level <= 0 {
		return
	}
	for _, f := range m.Funcs {
		for range level {
			FoldConstants(f)
			SimplifyCFG(f)
			if !EliminateDeadCode(f) {
				break
			}
		}
	}
}
