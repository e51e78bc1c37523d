package mir

import (
	"fmt"
	"io"
	"strings"
)

// DumpOptions configures unit dumping.
type DumpOptions struct {
	// Header prints the unit line and external declarations.
	Header bool
}

// DumpModule writes a human-readable representation of a unit.
func DumpModule(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	if opts.Header {
		state := "open"
		if m.Finalized {
			state = "finalized"
		}
		if _, err := fmt.Fprintf(w, "unit #%d %s (%s)\n", m.ID, m.Name, state); err != nil {
			return err
		}
		for _, e := range m.Externs {
			if _, err := fmt.Fprintf(w, "  extern %s\n", formatExtern(e)); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "funcs=%d\n", len(m.Funcs))
	for _, f := range m.Funcs {
		if err := dumpFunc(w, f); err != nil {
			return err
		}
	}
	return nil
}

func formatExtern(e *Extern) string {
	var sb strings.Builder
	sb.WriteString(e.Ref())
	if e.Kind == ExternFunc {
		sb.WriteString(": ")
		sb.WriteString(e.Sig.String())
	} else {
		sb.WriteString(": data ")
		sb.WriteString(e.Elem.String())
	}
	switch t := e.Target.(type) {
	case *Func:
		fmt.Fprintf(&sb, " = %s (unit #%d)", t.Ref(), t.Module.ID)
	case *Global:
		fmt.Fprintf(&sb, " = %s", t.Ref())
	}
	if e.Addr != 0 {
		fmt.Fprintf(&sb, " @ %#x", e.Addr)
	}
	return sb.String()
}

func dumpFunc(w io.Writer, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Ref() + " " + p.Ty.String()
	}
	flags := ""
	if f.Stub {
		flags = " [stub]"
	}
	if _, err := fmt.Fprintf(w, "\nfn %s(%s) -> %s%s:\n", f.Ref(), strings.Join(params, ", "), f.Sig.Result, flags); err != nil {
		return err
	}
	for _, b := range f.Blocks {
		if _, err := fmt.Fprintf(w, "  %s:\n", b.Name()); err != nil {
			return err
		}
		for _, in := range b.Instrs {
			if _, err := fmt.Fprintf(w, "    %s\n", FormatInstr(in)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "    %s\n", formatTerm(&b.Term)); err != nil {
			return err
		}
	}
	return nil
}

// FormatInstr renders one instruction.
func FormatInstr(in *Instr) string {
	var sb strings.Builder
	if in.Ty != Void {
		fmt.Fprintf(&sb, "%s = ", in.Ref())
	}
	sb.WriteString(in.Op.String())
	switch in.Op {
	case OpConst:
		if in.Ty.IsFloat() {
			fmt.Fprintf(&sb, " %s %g", in.Ty, in.Float())
		} else {
			fmt.Fprintf(&sb, " %s %d", in.Ty, in.Imm)
		}
		return sb.String()
	case OpICmp, OpFCmp:
		fmt.Fprintf(&sb, " %s", in.Pred)
	case OpPhi:
		fmt.Fprintf(&sb, " %s", in.Ty)
		for i, inc := range in.Incoming {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, " [%s, %s]", refOf(inc.Value), inc.Pred.Name())
		}
		return sb.String()
	case OpCall:
		fmt.Fprintf(&sb, " %s", in.Sig)
	case OpAlloc:
		fmt.Fprintf(&sb, " %s zero=%t", in.Elem, in.Imm != 0)
	}
	if in.Ty != Void && in.Op != OpCall && in.Op != OpAlloc {
		fmt.Fprintf(&sb, " %s", in.Ty)
	}
	for i, a := range in.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(' ')
		sb.WriteString(refOf(a))
	}
	if in.Op == OpPtrAdd {
		fmt.Fprintf(&sb, " *%d +%d", in.Imm, in.Disp)
	}
	return sb.String()
}

func formatTerm(t *Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return "ret " + refOf(t.Return.Value)
		}
		return "ret"
	case TermJump:
		return "jmp " + t.Jump.Target.Name()
	case TermIf:
		return fmt.Sprintf("br %s, %s, %s", refOf(t.If.Cond), t.If.Then.Name(), t.If.Else.Name())
	case TermUnreachable:
		return "unreachable"
	}
	return "<unterminated>"
}

func refOf(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Ref()
}
