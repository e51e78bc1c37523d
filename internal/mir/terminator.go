package mir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermJump
	TermIf
	TermUnreachable
)

type Terminator struct {
	Kind TermKind

	Return      ReturnTerm
	Jump        JumpTerm
	If          IfTerm
	Unreachable struct{}
}

type ReturnTerm struct {
	HasValue bool
	Value    Value
}

type JumpTerm struct {
	Target *Block
}

type IfTerm struct {
	Cond Value
	Then *Block
	Else *Block
}

// Operands lists values consumed by the terminator.
func (t *Terminator) Operands() []Value {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return []Value{t.Return.Value}
		}
	case TermIf:
		return []Value{t.If.Cond}
	}
	return nil
}
