package main

import (
	"fmt"
	"slices"
	"unsafe"

	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/types"
)

// sample is a program of the catalog. setup defines its globals on the
// compiler and returns the long-typed expression whose value is checked.
type sample struct {
	name  string
	about string
	want  int64
	setup func(c *jit.Compiler) (expr.Expr, error)
}

// hostBase is host memory bound into the "host" sample.
var hostBase int64 = 100

var catalog = []sample{
	{name: "answer", about: "global variable computed by its initializer", want: 42, setup: setupAnswer},
	{name: "fact", about: "self-recursive global function", want: 3628800, setup: setupFact},
	{name: "fib", about: "doubly recursive global function", want: 6765, setup: setupFib},
	{name: "parity", about: "mutually recursive local functions", want: 1, setup: setupParity},
	{name: "squares", about: "array fill and sum on the runtime heap", want: 285, setup: setupSquares},
	{name: "greeting", about: "interned string constant", want: 12, setup: setupGreeting},
	{name: "mix", about: "numeric conversions", want: 10, setup: setupMix},
	{name: "host", about: "variable initialized from bound host memory", want: 201, setup: setupHost},
}

func findSample(name string) (*sample, error) {
	for i := range catalog {
		if catalog[i].name == name {
			return &catalog[i], nil
		}
	}
	names := make([]string, 0, len(catalog))
	for _, s := range catalog {
		names = append(names, s.name)
	}
	slices.Sort(names)
	return nil, fmt.Errorf("unknown sample %q (known: %v)", name, names)
}

// builder shortens expression construction over one type environment.
type builder struct {
	in *types.Interner
	b  types.Builtins
}

func newBuilder(c *jit.Compiler) builder {
	in := c.TypeEnv().Types()
	return builder{in: in, b: in.Builtins()}
}

func (x builder) long(v int64) expr.Expr { return expr.Long(x.b, v) }

func (x builder) ref(ty types.TypeID, name string) *expr.Var {
	return &expr.Var{Ty: ty, Name: name}
}

// op applies an operator or a declared global by name.
func (x builder) op(ty types.TypeID, name string, args ...expr.Expr) *expr.App {
	return &expr.App{Ty: ty, Fn: &expr.Var{Name: name}, Args: args}
}

func (x builder) fn(result types.TypeID, params []string, paramTypes []types.TypeID, body expr.Expr) *expr.Fn {
	return &expr.Fn{Ty: x.in.RegisterFn(paramTypes, result), Params: params, Body: body}
}

func (x builder) cond(ty types.TypeID, c, then, els expr.Expr) *expr.If {
	return &expr.If{Ty: ty, Cond: c, Then: then, Else: els}
}

func setupAnswer(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	if err := c.DefineGlobal("answer", x.op(x.b.Long, "*", x.long(6), x.long(7))); err != nil {
		return nil, err
	}
	return x.ref(x.b.Long, "answer"), nil
}

func setupFact(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	n := x.ref(x.b.Long, "n")
	fact := x.fn(x.b.Long, []string{"n"}, []types.TypeID{x.b.Long},
		x.cond(x.b.Long, x.op(x.b.Bool, "<=", n, x.long(1)),
			x.long(1),
			x.op(x.b.Long, "*", n, x.op(x.b.Long, "fact", x.op(x.b.Long, "-", n, x.long(1))))))
	if err := c.DefineGlobal("fact", fact); err != nil {
		return nil, err
	}
	return x.op(x.b.Long, "fact", x.long(10)), nil
}

func setupFib(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	n := x.ref(x.b.Long, "n")
	fib := x.fn(x.b.Long, []string{"n"}, []types.TypeID{x.b.Long},
		x.cond(x.b.Long, x.op(x.b.Bool, "<", n, x.long(2)),
			n,
			x.op(x.b.Long, "+",
				x.op(x.b.Long, "fib", x.op(x.b.Long, "-", n, x.long(1))),
				x.op(x.b.Long, "fib", x.op(x.b.Long, "-", n, x.long(2))))))
	if err := c.DefineGlobal("fib", fib); err != nil {
		return nil, err
	}
	return x.op(x.b.Long, "fib", x.long(20)), nil
}

func setupParity(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	n := x.ref(x.b.Long, "n")
	isZero := x.op(x.b.Bool, "==", n, x.long(0))
	pred := func(base bool, other string) *expr.Fn {
		return x.fn(x.b.Bool, []string{"n"}, []types.TypeID{x.b.Long},
			x.cond(x.b.Bool, isZero, expr.Bool(x.b, base), x.op(x.b.Bool, other, x.op(x.b.Long, "-", n, x.long(1)))))
	}
	return &expr.LetRec{
		Ty: x.b.Long,
		Bindings: []expr.Binding{
			{Name: "even", Fn: pred(true, "odd")},
			{Name: "odd", Fn: pred(false, "even")},
		},
		Body: x.op(x.b.Long, "toLong", x.op(x.b.Bool, "even", x.long(10))),
	}, nil
}

func setupSquares(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	arr := x.in.Array(x.b.Long)
	a, i, acc := x.ref(arr, "a"), x.ref(x.b.Long, "i"), x.ref(x.b.Long, "acc")
	done := x.op(x.b.Bool, ">=", i, x.op(x.b.Long, "length", a))
	next := x.op(x.b.Long, "+", i, x.long(1))

	fill := x.fn(x.b.Unit, []string{"a", "i"}, []types.TypeID{arr, x.b.Long},
		x.cond(x.b.Unit, done,
			expr.Unit(x.b),
			&expr.Let{
				Ty:    x.b.Unit,
				Name:  "_",
				Value: x.op(x.b.Unit, "update", a, i, x.op(x.b.Long, "*", i, i)),
				Body:  x.op(x.b.Unit, "fill", a, next),
			}))
	sum := x.fn(x.b.Long, []string{"a", "i", "acc"}, []types.TypeID{arr, x.b.Long, x.b.Long},
		x.cond(x.b.Long, done,
			acc,
			x.op(x.b.Long, "sum", a, next, x.op(x.b.Long, "+", acc, x.op(x.b.Long, "index", a, i)))))

	return &expr.LetRec{
		Ty:       x.b.Long,
		Bindings: []expr.Binding{{Name: "fill", Fn: fill}, {Name: "sum", Fn: sum}},
		Body: &expr.Let{
			Ty:    x.b.Long,
			Name:  "a",
			Value: x.op(arr, "newArray", x.long(10)),
			Body: &expr.Let{
				Ty:    x.b.Long,
				Name:  "_",
				Value: x.op(x.b.Unit, "fill", a, x.long(0)),
				Body:  x.op(x.b.Long, "sum", a, x.long(0), x.long(0)),
			},
		},
	}, nil
}

func setupGreeting(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	greeting := expr.String(x.b, "hello, world")
	if err := c.DefineGlobal("greeting", greeting); err != nil {
		return nil, err
	}
	return x.op(x.b.Long, "length", x.ref(greeting.Ty, "greeting")), nil
}

func setupMix(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	scaled := x.op(x.b.Double, "*", x.op(x.b.Double, "toDouble", x.long(7)), expr.Double(x.b, 1.5))
	return x.op(x.b.Long, "toLong", scaled), nil
}

func setupHost(c *jit.Compiler) (expr.Expr, error) {
	x := newBuilder(c)
	if err := c.BindGlobal("base", x.b.Long, uintptr(unsafe.Pointer(&hostBase))); err != nil {
		return nil, err
	}
	if err := c.DefineGlobal("scale", x.op(x.b.Long, "*", x.ref(x.b.Long, "base"), x.long(2))); err != nil {
		return nil, err
	}
	return x.op(x.b.Long, "+", x.ref(x.b.Long, "scale"), x.long(1)), nil
}
