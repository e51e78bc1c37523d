package types

import (
	"errors"
	"testing"

	"jitcc/internal/diag"
)

func TestInstantiateBindsVariables(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.Var(0)
	p := Poly{Vars: 1, Body: in.RegisterFn([]TypeID{a, a}, a)}

	s, err := in.Instantiate(p, []TypeID{b.Long, b.Long}, b.Long)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if got, ok := s.Lookup(0); !ok || got != b.Long {
		t.Fatalf("t0 bound to %v, want long", got)
	}
	if in.Apply(s, p.Body) != in.RegisterFn([]TypeID{b.Long, b.Long}, b.Long) {
		t.Fatalf("substitution did not produce the monomorphic signature")
	}
}

func TestInstantiateReportsMismatch(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.Var(0)
	p := Poly{Vars: 1, Body: in.RegisterFn([]TypeID{a, a}, b.Bool)}

	if _, err := in.Instantiate(p, []TypeID{b.Long, b.Double}, b.Bool); !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if _, err := in.Instantiate(p, []TypeID{b.Long}, b.Bool); !errors.Is(err, diag.ErrArityMismatch) {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
	if _, err := in.Instantiate(p, []TypeID{b.Long, b.Long}, b.Long); !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("expected result mismatch, got %v", err)
	}
}

func TestInstantiateThroughArrays(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.Var(0)
	index := Poly{Vars: 1, Body: in.RegisterFn([]TypeID{in.Array(a), b.Long}, a)}
	if _, err := in.Instantiate(index, []TypeID{b.String, b.Long}, b.Char); err != nil {
		t.Fatalf("index over string: %v", err)
	}
	if in.IsMono(index.Body) {
		t.Fatalf("polytype body reported monomorphic")
	}
}

func TestEnvResolvesBuiltinNames(t *testing.T) {
	env := NewEnv()
	id, ok := env.Resolve("long")
	if !ok || id != env.Types().Builtins().Long {
		t.Fatalf("long did not resolve")
	}
	env.Bind("f", Mono(id))
	if p, ok := env.Lookup("f"); !ok || p.Body != id {
		t.Fatalf("binding lost")
	}
	env.Unbind("f")
	if _, ok := env.Lookup("f"); ok {
		t.Fatalf("unbind had no effect")
	}
}
