package types

import (
	"jitcc/internal/diag"
)

// Poly is a type quantified over Vars variables numbered 0..Vars-1.
// A Poly with no variables is a plain monotype.
type Poly struct {
	Vars int
	Body TypeID
}

// Mono lifts a monotype.
func Mono(t TypeID) Poly {
	return Poly{Body: t}
}

// Subst maps variable indices to the monotypes they were unified with.
// NoTypeID marks an unbound variable.
type Subst []TypeID

// Lookup returns the binding of variable i.
func (s Subst) Lookup(i int) (TypeID, bool) {
	if i < 0 || i >= len(s) || s[i] == NoTypeID {
		return NoTypeID, false
	}
	return s[i], true
}

// Instantiate checks a use of p at the given argument and result types.
// When p is a function type the argument count must match its parameters;
// a non-function p accepts only a use without arguments.
func (in *Interner) Instantiate(p Poly, args []TypeID, result TypeID) (Subst, error) {
	s := make(Subst, p.Vars)
	info, isFn := in.FnInfo(p.Body)
	if !isFn {
		if len(args) != 0 {
			return nil, diag.New(diag.ArityMismatch, "", "%s is not a function, applied to %d arguments", in.String(p.Body), len(args))
		}
		if !in.unify(s, p.Body, result) {
			return nil, diag.Mismatch("", in.String(p.Body), in.String(result))
		}
		return s, nil
	}
	if len(info.Params) != len(args) {
		return nil, diag.New(diag.ArityMismatch, "", "expected %d arguments, got %d", len(info.Params), len(args))
	}
	for i, want := range info.Params {
		if !in.unify(s, want, args[i]) {
			return nil, diag.New(diag.TypeMismatch, "", "argument %d: expected %s, got %s", i, in.String(in.Apply(s, want)), in.String(args[i]))
		}
	}
	if result != NoTypeID && !in.unify(s, info.Result, result) {
		return nil, diag.New(diag.TypeMismatch, "", "result: expected %s, got %s", in.String(in.Apply(s, info.Result)), in.String(result))
	}
	return s, nil
}

// Apply substitutes bound variables inside t.
func (in *Interner) Apply(s Subst, t TypeID) TypeID {
	tt, ok := in.Lookup(t)
	if !ok {
		return t
	}
	switch tt.Kind {
	case KindVar:
		if b, ok := s.Lookup(int(tt.Payload)); ok {
			return b
		}
		return t
	case KindArray:
		return in.Array(in.Apply(s, tt.Elem))
	case KindFn:
		info := in.fns[tt.Payload]
		params := make([]TypeID, len(info.Params))
		for i, p := range info.Params {
			params[i] = in.Apply(s, p)
		}
		return in.RegisterFn(params, in.Apply(s, info.Result))
	default:
		return t
	}
}

// unify matches pattern (which may mention variables) against a monotype.
func (in *Interner) unify(s Subst, pattern, actual TypeID) bool {
	if pattern == actual {
		return true
	}
	pt, ok := in.Lookup(pattern)
	if !ok {
		return false
	}
	if pt.Kind == KindVar {
		i := int(pt.Payload)
		if i >= len(s) {
			return false
		}
		if s[i] == NoTypeID {
			s[i] = actual
			return true
		}
		return s[i] == actual
	}
	at, ok := in.Lookup(actual)
	if !ok || at.Kind != pt.Kind {
		return false
	}
	switch pt.Kind {
	case KindArray:
		return in.unify(s, pt.Elem, at.Elem)
	case KindFn:
		pi, ai := in.fns[pt.Payload], in.fns[at.Payload]
		if len(pi.Params) != len(ai.Params) {
			return false
		}
		for i := range pi.Params {
			if !in.unify(s, pi.Params[i], ai.Params[i]) {
				return false
			}
		}
		return in.unify(s, pi.Result, ai.Result)
	default:
		// distinct interned primitives
		return false
	}
}

// IsMono reports whether t mentions no type variables.
func (in *Interner) IsMono(t TypeID) bool {
	tt, ok := in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindVar:
		return false
	case KindArray:
		return in.IsMono(tt.Elem)
	case KindFn:
		info := in.fns[tt.Payload]
		for _, p := range info.Params {
			if !in.IsMono(p) {
				return false
			}
		}
		return in.IsMono(info.Result)
	}
	return true
}
