package mir

import (
	"errors"
	"fmt"
)

// Validate checks unit invariants.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func) error {
	if len(f.Blocks) == 0 {
		return errors.New("function has no blocks")
	}

	var errs []error

	// 1. Check all blocks terminated
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}

	// 2. Check branch targets belong to the function
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}

	// 3. Check operands are visible from the function
	if err := validateOperands(f); err != nil {
		errs = append(errs, err)
	}

	// 4. Check operand types per operation
	if err := validateTypes(f); err != nil {
		errs = append(errs, err)
	}

	// 5. Check phi incoming edges match predecessors
	if err := validatePhis(f); err != nil {
		errs = append(errs, err)
	}

	// 6. Check return type matching
	if err := validateReturn(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateBlocksTerminated checks that every block ends with a terminator.
func validateBlocksTerminated(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if b.Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Name()))
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	owned := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		owned[b] = true
	}
	var errs []error
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			if s == nil || !owned[s] {
				errs = append(errs, fmt.Errorf("%s: branch to a block outside the function", b.Name()))
			}
		}
	}
	return errors.Join(errs...)
}

func validateOperands(f *Func) error {
	var errs []error
	check := func(where string, v Value) {
		if v == nil {
			errs = append(errs, fmt.Errorf("%s: nil operand", where))
			return
		}
		switch v := v.(type) {
		case *Instr:
			if v.Op == OpParam {
				if v.Imm < 0 || int(v.Imm) >= len(f.Params) || f.Params[v.Imm] != v {
					errs = append(errs, fmt.Errorf("%s: parameter %s of another function", where, v.Ref()))
				}
				return
			}
			if v.Block == nil || v.Block.Func != f {
				errs = append(errs, fmt.Errorf("%s: %s is defined in another function", where, v.Ref()))
			}
			if v.Ty == Void {
				errs = append(errs, fmt.Errorf("%s: %s produces no value", where, v.Ref()))
			}
		case *Func, *Extern, *Global:
			if !f.Module.Owns(v) {
				errs = append(errs, fmt.Errorf("%s: %s belongs to another unit", where, v.Ref()))
			}
		}
	}
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			where := fmt.Sprintf("%s: %s", b.Name(), in.Ref())
			for _, a := range in.Args {
				check(where, a)
			}
			for _, inc := range in.Incoming {
				check(where, inc.Value)
			}
		}
		for _, v := range b.Term.Operands() {
			check(b.Name()+": terminator", v)
		}
	}
	return errors.Join(errs...)
}

func validateTypes(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if err := checkInstrTypes(in); err != nil {
				errs = append(errs, fmt.Errorf("%s: %s = %s: %w", b.Name(), in.Ref(), in.Op, err))
			}
		}
		if b.Term.Kind == TermIf && b.Term.If.Cond != nil && b.Term.If.Cond.Type() != I1 {
			errs = append(errs, fmt.Errorf("%s: branch condition has type %s", b.Name(), b.Term.If.Cond.Type()))
		}
	}
	return errors.Join(errs...)
}

func checkInstrTypes(in *Instr) error {
	argc := func(n int) error {
		if len(in.Args) != n {
			return fmt.Errorf("expected %d operands, got %d", n, len(in.Args))
		}
		for _, a := range in.Args {
			if a == nil {
				return errors.New("nil operand")
			}
		}
		return nil
	}
	switch {
	case in.Op == OpConst:
		if in.Ty == Void {
			return errors.New("void constant")
		}
	case in.Op.IsIntBinary():
		if err := argc(2); err != nil {
			return err
		}
		if !in.Ty.IsInt() || in.Args[0].Type() != in.Ty || in.Args[1].Type() != in.Ty {
			return fmt.Errorf("operands %s, %s for %s result", in.Args[0].Type(), in.Args[1].Type(), in.Ty)
		}
	case in.Op.IsFloatBinary():
		if err := argc(2); err != nil {
			return err
		}
		if !in.Ty.IsFloat() || in.Args[0].Type() != in.Ty || in.Args[1].Type() != in.Ty {
			return fmt.Errorf("operands %s, %s for %s result", in.Args[0].Type(), in.Args[1].Type(), in.Ty)
		}
	case in.Op == OpNeg || in.Op == OpNot:
		if err := argc(1); err != nil {
			return err
		}
		if !in.Ty.IsInt() || in.Args[0].Type() != in.Ty {
			return fmt.Errorf("operand %s", in.Args[0].Type())
		}
	case in.Op == OpFNeg || in.Op == OpFSqrt:
		if err := argc(1); err != nil {
			return err
		}
		if !in.Ty.IsFloat() || in.Args[0].Type() != in.Ty {
			return fmt.Errorf("operand %s", in.Args[0].Type())
		}
	case in.Op == OpICmp:
		if err := argc(2); err != nil {
			return err
		}
		x, y := in.Args[0].Type(), in.Args[1].Type()
		if x != y || !x.InIntReg() {
			return fmt.Errorf("operands %s, %s", x, y)
		}
	case in.Op == OpFCmp:
		if err := argc(2); err != nil {
			return err
		}
		x, y := in.Args[0].Type(), in.Args[1].Type()
		if x != y || !x.IsFloat() || in.Pred.IsUnsigned() {
			return fmt.Errorf("operands %s, %s pred %s", x, y, in.Pred)
		}
	case in.Op.IsConversion():
		if err := argc(1); err != nil {
			return err
		}
		return checkConversion(in.Op, in.Args[0].Type(), in.Ty)
	case in.Op == OpLoad:
		if err := argc(1); err != nil {
			return err
		}
		if in.Args[0].Type() != Ptr || in.Ty == Void {
			return fmt.Errorf("load %s from %s", in.Ty, in.Args[0].Type())
		}
	case in.Op == OpStore:
		if err := argc(2); err != nil {
			return err
		}
		if in.Args[0].Type() != Ptr || in.Args[1].Type() == Void {
			return fmt.Errorf("store %s to %s", in.Args[1].Type(), in.Args[0].Type())
		}
	case in.Op == OpPtrAdd:
		if len(in.Args) < 1 || len(in.Args) > 2 || in.Args[0].Type() != Ptr {
			return errors.New("ptradd needs a pointer and an optional index")
		}
		if len(in.Args) == 2 && !in.Args[1].Type().IsInt() {
			return fmt.Errorf("index of type %s", in.Args[1].Type())
		}
	case in.Op == OpAlloc:
		if err := argc(2); err != nil {
			return err
		}
		if in.Args[0].Type() != I64 || in.Args[1].Type() != I64 {
			return errors.New("alloc size and alignment must be i64")
		}
	case in.Op == OpCall:
		if len(in.Args) < 1 || in.Sig == nil {
			return errors.New("call without callee or signature")
		}
		if in.Args[0].Type() != Ptr {
			return fmt.Errorf("callee of type %s", in.Args[0].Type())
		}
		if got := len(in.Args) - 1; got != len(in.Sig.Params) {
			return fmt.Errorf("call with %d arguments to %s", got, in.Sig)
		}
		for i, p := range in.Sig.Params {
			if in.Args[i+1].Type() != p {
				return fmt.Errorf("argument %d: %s, want %s", i, in.Args[i+1].Type(), p)
			}
		}
		if in.Ty != in.Sig.Result {
			return fmt.Errorf("result %s, signature says %s", in.Ty, in.Sig.Result)
		}
	case in.Op == OpPhi:
		for _, inc := range in.Incoming {
			if inc.Value != nil && inc.Value.Type() != in.Ty {
				return fmt.Errorf("incoming %s of type %s", inc.Value.Ref(), inc.Value.Type())
			}
		}
	case in.Op == OpParam:
		return errors.New("parameter inside a block")
	default:
		return errors.New("unknown operation")
	}
	return nil
}

func checkConversion(op Op, from, to Type) error {
	ok := false
	switch op {
	case OpSExt, OpZExt:
		ok = from.IsInt() && to.IsInt() && from.Bits() <= to.Bits()
	case OpTrunc:
		ok = from.InIntReg() && to.IsInt() && from.Bits() >= to.Bits()
	case OpSIToFP:
		ok = from.IsInt() && to.IsFloat()
	case OpFPToSI:
		ok = from.IsFloat() && to.IsInt()
	case OpFPExt:
		ok = from == F32 && to == F64
	case OpFPTrunc:
		ok = from == F64 && to == F32
	case OpBitcast:
		ok = from.Size() == to.Size() && from != Void
	}
	if !ok {
		return fmt.Errorf("cannot %s %s to %s", op, from, to)
	}
	return nil
}

func validatePhis(f *Func) error {
	preds := Predecessors(f)
	var errs []error
	for _, b := range f.Blocks {
		for _, phi := range b.Phis() {
			if len(phi.Incoming) != len(preds[b]) {
				errs = append(errs, fmt.Errorf("%s: %s has %d incoming values for %d predecessors", b.Name(), phi.Ref(), len(phi.Incoming), len(preds[b])))
				continue
			}
			for _, inc := range phi.Incoming {
				found := false
				for _, p := range preds[b] {
					if p == inc.Pred {
						found = true
						break
					}
				}
				if !found {
					errs = append(errs, fmt.Errorf("%s: %s has an incoming edge from a non-predecessor", b.Name(), phi.Ref()))
				}
			}
		}
		for _, in := range b.Instrs[len(b.Phis()):] {
			if in.Op == OpPhi {
				errs = append(errs, fmt.Errorf("%s: %s is not at the head of its block", b.Name(), in.Ref()))
			}
		}
	}
	return errors.Join(errs...)
}

func validateReturn(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if b.Term.Kind != TermReturn {
			continue
		}
		r := b.Term.Return
		switch {
		case f.Sig.Result == Void && r.HasValue:
			errs = append(errs, fmt.Errorf("%s: value returned from void function", b.Name()))
		case f.Sig.Result != Void && !r.HasValue:
			errs = append(errs, fmt.Errorf("%s: missing return value", b.Name()))
		case r.HasValue && r.Value != nil && r.Value.Type() != f.Sig.Result:
			errs = append(errs, fmt.Errorf("%s: returns %s, want %s", b.Name(), r.Value.Type(), f.Sig.Result))
		}
	}
	return errors.Join(errs...)
}

// Predecessors maps each block to the blocks that branch to it, in layout order.
// A conditional branch with identical arms counts once.
func Predecessors(f *Func) map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}
