package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown error
	UnknownCode Code = 0

	// Symbol resolution
	UnboundSymbol   Code = 1001
	DuplicateSymbol Code = 1002

	// Typing of applications and definitions
	TypeMismatch  Code = 2001
	ArityMismatch Code = 2002

	// Memory and code lifecycle
	RegionExhausted   Code = 3001
	InvalidRelease    Code = 3002
	UnsupportedTarget Code = 3003

	// Internal representation
	InvalidIR Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:       "Unknown error",
	UnboundSymbol:     "Unbound symbol",
	DuplicateSymbol:   "Symbol already defined",
	TypeMismatch:      "Type mismatch",
	ArityMismatch:     "Arity mismatch",
	RegionExhausted:   "Global data region exhausted",
	InvalidRelease:    "Release of unknown machine code",
	UnsupportedTarget: "Unsupported execution target",
	InvalidIR:         "Invalid intermediate representation",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IR%04d", ic)
	}
	return fmt.Sprintf("E%04d", int(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
