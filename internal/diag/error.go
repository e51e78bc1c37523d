package diag

import (
	"errors"
	"fmt"
)

// Sentinels, one per Code. Every *Error unwraps to the sentinel of its code.
var (
	ErrUnboundSymbol     = errors.New("unbound symbol")
	ErrDuplicateSymbol   = errors.New("symbol already defined")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrRegionExhausted   = errors.New("global data region exhausted")
	ErrInvalidRelease    = errors.New("invalid machine code release")
	ErrUnsupportedTarget = errors.New("unsupported execution target")
	ErrInvalidIR         = errors.New("invalid intermediate representation")
)

var sentinels = map[Code]error{
	UnboundSymbol:     ErrUnboundSymbol,
	DuplicateSymbol:   ErrDuplicateSymbol,
	TypeMismatch:      ErrTypeMismatch,
	ArityMismatch:     ErrArityMismatch,
	RegionExhausted:   ErrRegionExhausted,
	InvalidRelease:    ErrInvalidRelease,
	UnsupportedTarget: ErrUnsupportedTarget,
	InvalidIR:         ErrInvalidIR,
}

// Error is a categorized failure of the JIT core.
type Error struct {
	Code  Code
	Name  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	prefix := e.Code.ID()
	if s, ok := sentinels[e.Code]; ok {
		prefix = s.Error()
	}
	msg := prefix
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the code sentinel and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := sentinels[e.Code]; ok {
		out = append(out, s)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// New builds an *Error for a named symbol.
func New(code Code, name, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Name: name, Msg: msg}
}

// Wrap attaches a code to an existing error.
func Wrap(code Code, name string, cause error) *Error {
	return &Error{Code: code, Name: name, Cause: cause}
}

// Unbound reports a name that resolves to nothing.
func Unbound(name string) *Error {
	return &Error{Code: UnboundSymbol, Name: name}
}

// Mismatch reports an expected/actual type disagreement.
func Mismatch(name, expected, actual string) *Error {
	return &Error{Code: TypeMismatch, Name: name, Msg: fmt.Sprintf("expected %s, got %s", expected, actual)}
}

// CodeOf returns the code carried by the first *Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}
