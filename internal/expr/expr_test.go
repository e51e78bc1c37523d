package expr

import (
	"slices"
	"testing"

	"jitcc/internal/types"
)

func TestFreeVarsRespectsBinders(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	long := b.Long
	fnTy := in.RegisterFn([]types.TypeID{long}, long)

	// letrec f = fn(x) g(x, y) in let z = f(1) in (+ z w)
	e := &LetRec{
		Ty: long,
		Bindings: []Binding{{Name: "f", Fn: &Fn{Ty: fnTy, Params: []string{"x"}, Body: &App{
			Ty: long, Fn: &Var{Name: "g"}, Args: []Expr{&Var{Ty: long, Name: "x"}, &Var{Ty: long, Name: "y"}},
		}}}},
		Body: &Let{
			Ty: long, Name: "z",
			Value: &App{Ty: long, Fn: &Var{Name: "f"}, Args: []Expr{Long(b, 1)}},
			Body:  &App{Ty: long, Fn: &Var{Name: "+"}, Args: []Expr{&Var{Name: "z"}, &Var{Name: "w"}}},
		},
	}
	got := SortedNames(FreeVars(e))
	if want := []string{"+", "g", "w", "y"}; !slices.Equal(got, want) {
		t.Fatalf("free vars %v, want %v", got, want)
	}
}

func TestFreeVarsShadowing(t *testing.T) {
	b := types.NewInterner().Builtins()
	// (let x x x): the value's x is free, the body's is bound
	e := &Let{Ty: b.Long, Name: "x", Value: &Var{Name: "x"}, Body: &Var{Name: "x"}}
	if got := SortedNames(FreeVars(e)); !slices.Equal(got, []string{"x"}) {
		t.Fatalf("unexpected free vars %v", got)
	}
}

func TestRewriteSharesUntouchedNodes(t *testing.T) {
	b := types.NewInterner().Builtins()
	keep := &If{Ty: b.Long, Cond: Bool(b, true), Then: Long(b, 1), Else: Long(b, 2)}
	e := &App{Ty: b.Long, Fn: &Var{Name: "+"}, Args: []Expr{keep, &Var{Ty: b.Long, Name: "n"}}}

	out := Rewrite(e, func(n Expr) Expr {
		if v, ok := n.(*Var); ok && v.Name == "n" {
			return Long(b, 40)
		}
		return n
	})
	app := out.(*App)
	if app == e {
		t.Fatalf("changed node must be copied")
	}
	if app.Args[0] != keep {
		t.Fatalf("untouched subtree must be shared")
	}
	if lit, ok := app.Args[1].(*Lit); !ok || lit.Int != 40 {
		t.Fatalf("replacement missing: %#v", app.Args[1])
	}
	if _, ok := e.Args[1].(*Var); !ok {
		t.Fatalf("input must not be mutated")
	}
	if same := Rewrite(keep, func(n Expr) Expr { return n }); same != keep {
		t.Fatalf("identity rewrite must return the same node")
	}
}

func TestFormat(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	e := &Let{Ty: b.Long, Name: "s", Value: String(b, "hi"), Body: &If{
		Ty: b.Double, Cond: Bool(b, false), Then: Double(b, 1.5), Else: &Var{Ty: b.Double, Name: "d"},
	}}
	if got := Format(e, nil); got != `(let s "hi" (if false 1.5 d))` {
		t.Fatalf("unexpected rendering %s", got)
	}
	if got := Format(&Var{Ty: b.Long, Name: "n"}, in); got != "n:long" {
		t.Fatalf("unexpected typed rendering %s", got)
	}
}

func TestWalkCanPrune(t *testing.T) {
	b := types.NewInterner().Builtins()
	e := &If{Ty: b.Long, Cond: Bool(b, true), Then: &Let{Ty: b.Long, Name: "x", Value: Long(b, 1), Body: &Var{Name: "x"}}, Else: Long(b, 2)}
	seen := 0
	Walk(e, func(n Expr) bool {
		seen++
		_, isLet := n.(*Let)
		return !isLet
	})
	// if, cond, let, else
	if seen != 4 {
		t.Fatalf("visited %d nodes", seen)
	}
}
