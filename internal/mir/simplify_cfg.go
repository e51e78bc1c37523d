package mir

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
// 1. Turn branches on constant conditions into jumps
// 2. Forward trivial jump blocks (no instructions, target without phis)
// 3. Remove unreachable blocks
// 4. Renumber blocks deterministically
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}

	// Phase 1: Resolve constant branches
	foldBranches(f)

	// Phase 2: Build redirect map for trivial jump blocks and apply it
	redirects := buildRedirectMap(f)
	applyRedirects(f, redirects)

	// Phase 3: Compute reachability and remove dead blocks
	reachable := computeReachability(f)

	// Phase 4: Compact and renumber blocks
	compactBlocks(f, reachable)
}

func foldBranches(f *Func) {
	for _, b := range f.Blocks {
		if b.Term.Kind != TermIf {
			continue
		}
		c, ok := AsConst(b.Term.If.Cond)
		if !ok {
			continue
		}
		taken, dropped := b.Term.If.Then, b.Term.If.Else
		if c.Imm&1 == 0 {
			taken, dropped = dropped, taken
		}
		if taken != dropped {
			removeIncoming(dropped, b)
		}
		b.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: taken}}
	}
}

// buildRedirectMap finds all trivial jump blocks and builds a mapping
// from them to their final targets (following chains).
func buildRedirectMap(f *Func) map[*Block]*Block {
	redirects := make(map[*Block]*Block)
	entry := f.Entry()
	for _, b := range f.Blocks {
		if b == entry || !isTrivialJumpBlock(b) {
			continue
		}
		target := b.Term.Jump.Target
		visited := map[*Block]bool{b: true}
		for !visited[target] && isTrivialJumpBlock(target) && target != entry {
			visited[target] = true
			target = target.Term.Jump.Target
		}
		if visited[target] {
			// jump cycle, keep it
			continue
		}
		redirects[b] = target
	}
	return redirects
}

// isTrivialJumpBlock checks for an empty block ending in a jump whose target
// has no phis, so bypassing it does not change any phi edge.
func isTrivialJumpBlock(b *Block) bool {
	return len(b.Instrs) == 0 && b.Term.Kind == TermJump && len(b.Term.Jump.Target.Phis()) == 0
}

// applyRedirects updates all terminators to use the redirected targets.
func applyRedirects(f *Func, redirects map[*Block]*Block) {
	if len(redirects) == 0 {
		return
	}
	redirect := func(b *Block) *Block {
		if nb, ok := redirects[b]; ok {
			return nb
		}
		return b
	}
	for _, b := range f.Blocks {
		switch b.Term.Kind {
		case TermJump:
			b.Term.Jump.Target = redirect(b.Term.Jump.Target)
		case TermIf:
			then, els := redirect(b.Term.If.Then), redirect(b.Term.If.Else)
			if (len(then.Phis()) > 0 || len(els.Phis()) > 0) && then == els && b.Term.If.Then != b.Term.If.Else {
				// merging both arms would collapse two phi edges into one
				continue
			}
			b.Term.If.Then, b.Term.If.Else = then, els
		}
	}
}

// computeReachability marks blocks reachable from the entry.
func computeReachability(f *Func) map[*Block]bool {
	reachable := make(map[*Block]bool, len(f.Blocks))
	work := []*Block{f.Entry()}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		if reachable[b] {
			continue
		}
		reachable[b] = true
		work = append(work, b.Succs()...)
	}
	return reachable
}

// compactBlocks drops unreachable blocks, prunes their phi edges and
// renumbers the survivors in layout order.
func compactBlocks(f *Func, reachable map[*Block]bool) {
	kept := f.Blocks[:0]
	var dead []*Block
	for _, b := range f.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		} else {
			dead = append(dead, b)
		}
	}
	f.Blocks = kept
	for _, d := range dead {
		for _, s := range d.Succs() {
			if reachable[s] {
				removeIncoming(s, d)
			}
		}
	}
	for i, b := range f.Blocks {
		b.ID = i
	}
	f.nextBlock = len(f.Blocks)
}

func removeIncoming(b, pred *Block) {
	for _, phi := range b.Phis() {
		out := phi.Incoming[:0]
		for _, inc := range phi.Incoming {
			if inc.Pred != pred {
				out = append(out, inc)
			}
		}
		phi.Incoming = out
	}
}
