package jit_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unsafe"

	"jitcc/internal/diag"
	"jitcc/internal/engine"
	"jitcc/internal/expr"
	"jitcc/internal/jit"
	"jitcc/internal/jit/ops"
	"jitcc/internal/mir"
	"jitcc/internal/types"
)

func newCompiler(t *testing.T) (*jit.Compiler, types.Builtins) {
	t.Helper()
	return newCompilerWith(t, jit.Options{OptLevel: 1, Verify: true})
}

func newCompilerWith(t *testing.T, opts jit.Options) (*jit.Compiler, types.Builtins) {
	t.Helper()
	if !engine.CanExecute() {
		t.Skip("generated code cannot run on this host")
	}
	c, err := jit.New(types.NewEnv(), opts)
	if err != nil {
		t.Fatalf("new compiler: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	if err := ops.Install(c); err != nil {
		t.Fatalf("install ops: %v", err)
	}
	return c, c.TypeEnv().Types().Builtins()
}

func ref(ty types.TypeID, name string) *expr.Var {
	return &expr.Var{Ty: ty, Name: name}
}

func call(ty types.TypeID, fn string, args ...expr.Expr) *expr.App {
	return &expr.App{Ty: ty, Fn: &expr.Var{Name: fn}, Args: args}
}

func fnType(c *jit.Compiler, result types.TypeID, params ...types.TypeID) types.TypeID {
	return c.TypeEnv().Types().RegisterFn(params, result)
}

// openScratch positions the builder in a fresh function returning long.
func openScratch(t *testing.T, c *jit.Compiler, b types.Builtins) *mir.Func {
	t.Helper()
	f, err := c.AllocFunction("scratch", nil, b.Long)
	if err != nil {
		t.Fatalf("alloc scratch: %v", err)
	}
	c.Builder().SetInsertPoint(f.Entry())
	return f
}

func constImm(t *testing.T, v mir.Value) int64 {
	t.Helper()
	k, ok := mir.AsConst(v)
	if !ok {
		t.Fatalf("expected a constant, got %s", v.Ref())
	}
	return k.Imm
}

func TestReifyIncrementAndRelease(t *testing.T) {
	c, b := newCompiler(t)
	body := call(b.Long, "+", ref(b.Long, "x"), expr.Long(b, 1))
	entry, err := c.ReifyMachineCodeForFn(b.Long, []string{"x"}, []types.TypeID{b.Long}, body)
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	inc := engine.MakeFunc[func(int64) int64](entry)
	if got := inc(41); got != 42 {
		t.Fatalf("inc(41) = %d, want 42", got)
	}
	c.ReleaseMachineCode(entry)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, diag.ErrInvalidRelease) {
			t.Fatalf("second release: want InvalidRelease panic, got %v", r)
		}
	}()
	c.ReleaseMachineCode(entry)
}

func TestReifyRejectsBodyOfOtherType(t *testing.T) {
	c, b := newCompiler(t)
	_, err := c.ReifyMachineCodeForFn(b.Int, nil, nil, expr.Long(b, 1))
	if !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("want TypeMismatch, got %v", err)
	}
}

func TestDefinedGlobalLooksUpWithItsType(t *testing.T) {
	c, b := newCompiler(t)
	if err := c.DefineGlobal("answer", call(b.Long, "*", expr.Long(b, 6), expr.Long(b, 7))); err != nil {
		t.Fatalf("define: %v", err)
	}
	g, ok := c.LookupGlobal("answer")
	if !ok || g.Type != b.Long || g.Addr == 0 {
		t.Fatalf("globals entry %+v", g)
	}
	if got := *(*int64)(unsafe.Pointer(g.Addr)); got != 42 {
		t.Fatalf("stored value %d, want 42", got)
	}

	openScratch(t, c, b)
	v, err := c.LookupVar("answer", b.Long)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v.Type() != mir.I64 {
		t.Fatalf("lookup type %s, want i64", v.Type())
	}
	c.Builder().Ret(v)
	if _, err := c.LookupVar("answer", b.Int); !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("want TypeMismatch for a wrong type, got %v", err)
	}

	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, ref(b.Long, "answer"))
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != 42 {
		t.Fatalf("answer = %d", got)
	}
}

func TestRedefinitionIsDuplicate(t *testing.T) {
	c, b := newCompiler(t)
	if err := c.DefineGlobal("k", expr.Long(b, 1)); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := c.DefineGlobal("k", expr.Long(b, 2)); !errors.Is(err, diag.ErrDuplicateSymbol) {
		t.Fatalf("want DuplicateSymbol, got %v", err)
	}
	if err := c.DefineGlobal("+", expr.Long(b, 2)); !errors.Is(err, diag.ErrDuplicateSymbol) {
		t.Fatalf("operators share the namespace, got %v", err)
	}
}

func parityBindings(c *jit.Compiler, b types.Builtins, evenFirst bool) []expr.Binding {
	ty := fnType(c, b.Bool, b.Long)
	step := func(name string, base bool, other string) expr.Binding {
		n := ref(b.Long, "n")
		return expr.Binding{Name: name, Fn: &expr.Fn{Ty: ty, Params: []string{"n"}, Body: &expr.If{
			Ty:   b.Bool,
			Cond: call(b.Bool, "==", n, expr.Long(b, 0)),
			Then: expr.Bool(b, base),
			Else: call(b.Bool, other, call(b.Long, "-", n, expr.Long(b, 1))),
		}}}
	}
	even, odd := step("even", true, "odd"), step("odd", false, "even")
	if evenFirst {
		return []expr.Binding{even, odd}
	}
	return []expr.Binding{odd, even}
}

func TestMutualRecursionInAnyOrder(t *testing.T) {
	for _, evenFirst := range []bool{true, false} {
		c, b := newCompiler(t)
		c.PushScope()
		fns, err := c.CompileFunctions(parityBindings(c, b, evenFirst))
		if err != nil {
			t.Fatalf("compile group (even first %v): %v", evenFirst, err)
		}
		if len(fns) != 2 || c.LookupFunction("even") == nil || c.LookupFunction("odd") == nil {
			t.Fatalf("group handles %v", fns)
		}
		entry, err := c.ReifyMachineCodeForFn(b.Bool, []string{"x"}, []types.TypeID{b.Long}, call(b.Bool, "even", ref(b.Long, "x")))
		if err != nil {
			t.Fatalf("reify: %v", err)
		}
		even := engine.MakeFunc[func(int64) bool](entry)
		if !even(10) || even(7) {
			t.Fatalf("even(10)=%v even(7)=%v", even(10), even(7))
		}
		c.ReleaseMachineCode(entry)
		c.PopScope()
		if c.LookupFunction("even") != nil {
			t.Fatalf("group binding survived its scope")
		}
	}
}

func TestFailedGroupLeavesNoBinding(t *testing.T) {
	c, b := newCompiler(t)
	ty := fnType(c, b.Long, b.Long)
	good := expr.Binding{Name: "good", Fn: &expr.Fn{Ty: ty, Params: []string{"n"}, Body: ref(b.Long, "n")}}
	bad := expr.Binding{Name: "bad", Fn: &expr.Fn{Ty: ty, Params: []string{"n"}, Body: ref(b.Long, "missing")}}
	unit := c.Module()
	before := len(unit.Funcs)
	var out []*mir.Func
	if err := c.CompileFunctionsInto([]expr.Binding{good, bad}, &out); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("want UnboundSymbol, got %v", err)
	}
	if len(out) != 0 || c.LookupFunction("good") != nil || c.LookupFunction("bad") != nil {
		t.Fatalf("failed group left bindings")
	}
	if len(unit.Funcs) != before {
		t.Fatalf("failed group left %d skeletons", len(unit.Funcs)-before)
	}
}

func TestScopePopDoesNotLeak(t *testing.T) {
	c, b := newCompiler(t)
	if err := c.DefineGlobal("x", expr.Long(b, 5)); err != nil {
		t.Fatalf("define: %v", err)
	}
	openScratch(t, c, b)
	c.PushScope()
	local, err := c.CompileNamed("x", expr.Long(b, 9))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if v, err := c.Compile(ref(b.Long, "x")); err != nil || v != local {
		t.Fatalf("x inside the scope: %v %v", v, err)
	}
	if _, err := c.CompileNamed("y", expr.Long(b, 1)); err != nil {
		t.Fatalf("bind y: %v", err)
	}
	c.PopScope()

	v, err := c.Compile(ref(b.Long, "x"))
	if err != nil {
		t.Fatalf("x after pop: %v", err)
	}
	if got := constImm(t, v); got != 5 {
		t.Fatalf("x after pop = %d, want the global 5", got)
	}
	if _, err := c.Compile(ref(b.Long, "y")); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("y after pop: want UnboundSymbol, got %v", err)
	}
}

func TestPopRootScopePanics(t *testing.T) {
	c, _ := newCompiler(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("popping the root scope must panic")
		}
	}()
	c.PopScope()
}

func TestCompileAtGlobalScopeSkipsShadow(t *testing.T) {
	c, b := newCompiler(t)
	if err := c.DefineGlobal("g", expr.Long(b, 1)); err != nil {
		t.Fatalf("define: %v", err)
	}
	openScratch(t, c, b)
	c.PushScope()
	defer c.PopScope()
	if _, err := c.CompileNamed("g", expr.Long(b, 2)); err != nil {
		t.Fatalf("shadow: %v", err)
	}
	v, err := c.CompileAtGlobalScope(ref(b.Long, "g"))
	if err != nil || constImm(t, v) != 1 {
		t.Fatalf("global scope sees %v, %v", v, err)
	}
	if _, err := c.CompileAtGlobalScope(ref(b.Long, "nope")); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("want UnboundSymbol, got %v", err)
	}
	v, err = c.Compile(ref(b.Long, "g"))
	if err != nil || constImm(t, v) != 2 {
		t.Fatalf("shadow not restored: %v, %v", v, err)
	}
}

func TestLocalOfOtherFunctionIsInvisible(t *testing.T) {
	c, b := newCompiler(t)
	openScratch(t, c, b)
	c.PushScope()
	defer c.PopScope()
	if _, err := c.CompileNamed("y", expr.Long(b, 3)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := c.CompileFunction("inner", nil, nil, ref(b.Long, "y")); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("want UnboundSymbol, got %v", err)
	}
}

func TestCompileNeedsActiveBuilder(t *testing.T) {
	c, b := newCompiler(t)
	if _, err := c.Compile(expr.Long(b, 1)); !errors.Is(err, diag.ErrInvalidIR) {
		t.Fatalf("want InvalidIR, got %v", err)
	}
}

func TestInternConstStringShares(t *testing.T) {
	c, b := newCompiler(t)
	openScratch(t, c, b)
	s1, err := c.InternConstString("hello")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	used := c.GlobalDataUsed()
	s2, err := c.InternConstString("hello")
	if err != nil {
		t.Fatalf("intern again: %v", err)
	}
	if s1 != s2 || c.GlobalDataUsed() != used {
		t.Fatalf("equal strings must share storage")
	}
	s3, err := c.InternConstString("world")
	if err != nil || s3 == s1 {
		t.Fatalf("distinct strings must not share: %v", err)
	}
}

func TestStringLiteralLayout(t *testing.T) {
	c, b := newCompiler(t)
	body := call(b.Long, "length", expr.String(b, "héllo"))
	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, body)
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != int64(len("héllo")) {
		t.Fatalf("length = %d", got)
	}
}

func TestFailedDefineRollsBack(t *testing.T) {
	c, b := newCompiler(t)
	before := c.GlobalDataUsed()
	bad := &expr.Let{
		Ty:    b.Long,
		Name:  "s",
		Value: expr.String(b, "only in the failed attempt"),
		Body:  call(b.Long, "+", expr.Long(b, 1), ref(b.Long, "missing")),
	}
	if err := c.DefineGlobal("bad", bad); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("want UnboundSymbol, got %v", err)
	}
	if got := c.GlobalDataUsed(); got != before {
		t.Fatalf("region grew from %d to %d", before, got)
	}
	if c.IsDefined("bad") {
		t.Fatalf("failed definition left an entry")
	}
	if _, ok := c.LookupGlobal("bad"); ok {
		t.Fatalf("failed definition left a global")
	}
	if err := c.DefineGlobal("bad", expr.Long(b, 1)); err != nil {
		t.Fatalf("name must stay available: %v", err)
	}
}

func TestGlobalFunctionCallsItself(t *testing.T) {
	c, b := newCompiler(t)
	ty := fnType(c, b.Long, b.Long)
	n := ref(b.Long, "n")
	fact := &expr.Fn{Ty: ty, Params: []string{"n"}, Body: &expr.If{
		Ty:   b.Long,
		Cond: call(b.Bool, "<=", n, expr.Long(b, 1)),
		Then: expr.Long(b, 1),
		Else: call(b.Long, "*", n, call(b.Long, "fact", call(b.Long, "-", n, expr.Long(b, 1)))),
	}}
	if err := c.DefineGlobal("fact", fact); err != nil {
		t.Fatalf("define: %v", err)
	}
	if c.SymbolAddress("fact") == 0 {
		t.Fatalf("fact has no address")
	}
	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, call(b.Long, "fact", expr.Long(b, 10)))
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != 3628800 {
		t.Fatalf("fact(10) = %d", got)
	}
}

var hostCell = new(int64)

func TestBindGlobalHostMemory(t *testing.T) {
	c, b := newCompiler(t)
	*hostCell = 7
	if err := c.BindGlobal("hostv", b.Long, uintptr(unsafe.Pointer(hostCell))); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if c.LookupVarRef("hostv") == nil {
		t.Fatalf("host variable must have a var ref")
	}
	if err := c.DefineGlobal("k", expr.Long(b, 1)); err != nil {
		t.Fatalf("define: %v", err)
	}
	if c.LookupVarRef("k") != nil {
		t.Fatalf("constants have no var ref")
	}
	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, call(b.Long, "+", ref(b.Long, "hostv"), ref(b.Long, "k")))
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != 8 {
		t.Fatalf("hostv + k = %d", got)
	}
}

func TestInlineGlobals(t *testing.T) {
	c, b := newCompiler(t)
	ty := fnType(c, b.Long, b.Long)
	if err := c.DefineGlobal("step", expr.Long(b, 1)); err != nil {
		t.Fatalf("define step: %v", err)
	}
	inc := &expr.Fn{Ty: ty, Params: []string{"x"}, Body: call(b.Long, "+", ref(b.Long, "x"), ref(b.Long, "step"))}
	if err := c.DefineGlobal("inc", inc); err != nil {
		t.Fatalf("define inc: %v", err)
	}

	out := c.InlineGlobals(call(b.Long, "inc", expr.Long(b, 41)))
	app, ok := out.(*expr.App)
	if !ok {
		t.Fatalf("inlined to %T", out)
	}
	lam, ok := app.Fn.(*expr.Fn)
	if !ok {
		t.Fatalf("call of inc was not inlined: %s", expr.Format(out, nil))
	}
	if _, ok := lam.Body.(*expr.App).Args[1].(*expr.Lit); !ok {
		t.Fatalf("constant step was not substituted: %s", expr.Format(out, nil))
	}

	shadowed := &expr.Let{Ty: b.Long, Name: "step", Value: expr.Long(b, 5), Body: call(b.Long, "inc", ref(b.Long, "step"))}
	out = c.InlineGlobals(shadowed)
	if _, ok := out.(*expr.Let).Body.(*expr.App).Fn.(*expr.Var); !ok {
		t.Fatalf("inlining under a capturing local: %s", expr.Format(out, nil))
	}

	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, c.InlineGlobals(call(b.Long, "inc", expr.Long(b, 41))))
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != 42 {
		t.Fatalf("inlined inc(41) = %d", got)
	}
}

func TestInlineStopsAtRecursion(t *testing.T) {
	c, b := newCompiler(t)
	ty := fnType(c, b.Long, b.Long)
	loop := &expr.Fn{Ty: ty, Params: []string{"n"}, Body: call(b.Long, "loop", ref(b.Long, "n"))}
	if err := c.DefineGlobal("loop", loop); err != nil {
		t.Fatalf("define: %v", err)
	}
	out := c.InlineGlobals(call(b.Long, "loop", expr.Long(b, 1)))
	lam := out.(*expr.App).Fn.(*expr.Fn)
	if _, ok := lam.Body.(*expr.App).Fn.(*expr.Var); !ok {
		t.Fatalf("recursive call must stay a call: %s", expr.Format(out, nil))
	}
}

func TestMachineCodeForExpr(t *testing.T) {
	c, b := newCompiler(t)
	code, err := c.MachineCodeForExpr(call(b.Long, "+", expr.Long(b, 1), expr.Long(b, 2)))
	if err != nil {
		t.Fatalf("machine code: %v", err)
	}
	if !bytes.HasPrefix(code, []byte{0x55, 0x48, 0x89, 0xE5}) {
		t.Fatalf("unexpected prologue % x", code[:min(len(code), 8)])
	}
	if n := len(c.Engine().Images()); n != 0 {
		t.Fatalf("%d images retained", n)
	}
}

func TestArraysOnTheRuntimeHeap(t *testing.T) {
	c, b := newCompiler(t)
	arrTy := c.TypeEnv().Types().Array(b.Long)
	a := ref(arrTy, "a")
	body := &expr.Let{Ty: b.Long, Name: "a", Value: call(arrTy, "newArray", expr.Long(b, 3)),
		Body: &expr.Let{Ty: b.Long, Name: "_", Value: call(b.Unit, "update", a, expr.Long(b, 1), expr.Long(b, 40)),
			Body: call(b.Long, "+", call(b.Long, "index", a, expr.Long(b, 1)), call(b.Long, "length", a)),
		}}
	entry, err := c.ReifyMachineCodeForFn(b.Long, nil, nil, body)
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	if got := engine.MakeFunc[func() int64](entry)(); got != 43 {
		t.Fatalf("got %d, want 43", got)
	}
	if c.HeapUsed() < 8+3*8 {
		t.Fatalf("heap used %d", c.HeapUsed())
	}
	c.ResetHeap()
	if c.HeapUsed() != 0 {
		t.Fatalf("reset left %d bytes", c.HeapUsed())
	}
}

func TestConversionsAndLogic(t *testing.T) {
	c, b := newCompiler(t)
	x := ref(b.Double, "x")
	// toLong(x * 2.5) when x > 0 or x < -10, else toLong(toBool(x))
	body := &expr.If{
		Ty: b.Long,
		Cond: call(b.Bool, "or",
			call(b.Bool, ">", x, expr.Double(b, 0)),
			call(b.Bool, "<", x, expr.Double(b, -10))),
		Then: call(b.Long, "toLong", call(b.Double, "*", x, expr.Double(b, 2.5))),
		Else: call(b.Long, "toLong", call(b.Bool, "toBool", x)),
	}
	entry, err := c.ReifyMachineCodeForFn(b.Long, []string{"x"}, []types.TypeID{b.Double}, body)
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	defer c.ReleaseMachineCode(entry)
	f := engine.MakeFunc[func(float64) int64](entry)
	cases := map[float64]int64{3: 7, -20: -50, -1: 1, 0: 0}
	for in, want := range cases {
		if got := f(in); got != want {
			t.Fatalf("f(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestOperatorTyping(t *testing.T) {
	c, b := newCompiler(t)
	openScratch(t, c, b)
	mixed := call(b.Long, "+", expr.Long(b, 1), expr.Int(b, 2))
	if _, err := c.Compile(mixed); !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("mixed operands: want TypeMismatch, got %v", err)
	}
	three := call(b.Long, "+", expr.Long(b, 1), expr.Long(b, 2), expr.Long(b, 3))
	if _, err := c.Compile(three); !errors.Is(err, diag.ErrArityMismatch) {
		t.Fatalf("three operands: want ArityMismatch, got %v", err)
	}
	if _, err := c.Compile(call(b.Double, "%", expr.Double(b, 1), expr.Double(b, 2))); !errors.Is(err, diag.ErrTypeMismatch) {
		t.Fatalf("float remainder: want TypeMismatch, got %v", err)
	}
	if c.LookupOp("+") == nil || c.LookupOp("nope") != nil {
		t.Fatalf("operator lookup")
	}
	if p, ok := c.TypeEnv().Lookup("=="); !ok || p.Vars != 1 {
		t.Fatalf("== not published in the type environment")
	}
}

func TestDumpListsSymbols(t *testing.T) {
	c, b := newCompiler(t)
	if err := c.DefineGlobal("größe", expr.Long(b, 3)); err != nil {
		t.Fatalf("define: %v", err)
	}
	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"größe", "const long", "op ", "region"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump misses %q:\n%s", want, out)
		}
	}
}

func TestWideSignatureRejectedBeforeBinding(t *testing.T) {
	c, b := newCompiler(t)
	if _, err := c.CompileFunction("inc", []string{"x"}, []types.TypeID{b.Long},
		call(b.Long, "+", ref(b.Long, "x"), expr.Long(b, 1))); err != nil {
		t.Fatalf("compile inc: %v", err)
	}
	names := make([]string, 10)
	argTypes := make([]types.TypeID, 10)
	for i := range names {
		names[i] = string(rune('a' + i))
		argTypes[i] = b.Long
	}
	_, err := c.CompileFunction("wide", names, argTypes, ref(b.Long, "a"))
	if !errors.Is(err, diag.ErrUnsupportedTarget) {
		t.Fatalf("want UnsupportedTarget for 10 integer parameters, got %v", err)
	}
	if c.LookupFunction("wide") != nil {
		t.Fatalf("rejected function stayed bound")
	}
	body := call(b.Long, "inc", ref(b.Long, "x"))
	for round := range 2 {
		entry, err := c.ReifyMachineCodeForFn(b.Long, []string{"x"}, []types.TypeID{b.Long}, body)
		if err != nil {
			t.Fatalf("reify %d: %v", round, err)
		}
		if got := engine.MakeFunc[func(int64) int64](entry)(41); got != 42 {
			t.Fatalf("round %d: inc(41) = %d", round, got)
		}
	}
}

func TestFailedFinalizeForgetsUnit(t *testing.T) {
	c, b := newCompiler(t)
	inc := call(b.Long, "+", ref(b.Long, "x"), expr.Long(b, 1))
	if _, err := c.CompileFunction("inc", []string{"x"}, []types.TypeID{b.Long}, inc); err != nil {
		t.Fatalf("compile inc: %v", err)
	}
	// left without a body, so the unit cannot be validated
	if _, err := c.AllocFunction("broken", nil, b.Long); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if _, err := c.Finalize(); !errors.Is(err, diag.ErrInvalidIR) {
		t.Fatalf("want InvalidIR, got %v", err)
	}
	if c.LookupFunction("inc") != nil {
		t.Fatalf("function of a discarded unit stayed bound")
	}
	if _, err := c.CompileFunction("inc", []string{"x"}, []types.TypeID{b.Long}, inc); err != nil {
		t.Fatalf("recompile inc: %v", err)
	}
	entry, err := c.ReifyMachineCodeForFn(b.Long, []string{"x"}, []types.TypeID{b.Long}, call(b.Long, "inc", ref(b.Long, "x")))
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	if got := engine.MakeFunc[func(int64) int64](entry)(1); got != 2 {
		t.Fatalf("inc(1) = %d", got)
	}
}

func TestStaleReleaseLeavesNewerCode(t *testing.T) {
	c, b := newCompiler(t)
	reify := func(k int64) uintptr {
		t.Helper()
		entry, err := c.ReifyMachineCodeForFn(b.Long, []string{"x"}, []types.TypeID{b.Long},
			call(b.Long, "+", ref(b.Long, "x"), expr.Long(b, k)))
		if err != nil {
			t.Fatalf("reify: %v", err)
		}
		return entry
	}
	e1 := reify(1)
	c.ReleaseMachineCode(e1)
	e2 := reify(2)
	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, diag.ErrInvalidRelease) {
				t.Fatalf("stale release: want InvalidRelease panic, got %v", r)
			}
		}()
		c.ReleaseMachineCode(e1)
	}()
	if n := len(c.Engine().Images()); n != 1 {
		t.Fatalf("%d live images, want 1", n)
	}
	if got := engine.MakeFunc[func(int64) int64](e2)(40); got != 42 {
		t.Fatalf("second function returned %d", got)
	}
}

func TestMemAllocUsesGlobalRegion(t *testing.T) {
	c, _ := newCompilerWith(t, jit.Options{OptLevel: 1, Verify: true, RegionLimit: 64})
	p, err := c.MemAlloc(16, 8)
	if err != nil {
		t.Fatalf("memalloc: %v", err)
	}
	if uintptr(p)%8 != 0 {
		t.Fatalf("%p is not 8-byte aligned", p)
	}
	mem := unsafe.Slice((*byte)(p), 16)
	for i, v := range mem {
		if v != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
	mem[15] = 0xff
	used := c.GlobalDataUsed()
	if used < 16 {
		t.Fatalf("region reports %d bytes after a 16 byte allocation", used)
	}
	if _, err := c.MemAlloc(1024, 8); !errors.Is(err, diag.ErrRegionExhausted) {
		t.Fatalf("want RegionExhausted, got %v", err)
	}
	if got := c.GlobalDataUsed(); got != used {
		t.Fatalf("failed allocation moved the region from %d to %d", used, got)
	}
}

func TestFailedIfRewindsBuilder(t *testing.T) {
	c, b := newCompiler(t)
	f := openScratch(t, c, b)
	entry := c.Builder().Block()
	blocks := len(f.Blocks)
	bad := &expr.If{
		Ty:   b.Long,
		Cond: call(b.Bool, "<", expr.Long(b, 1), expr.Long(b, 2)),
		Then: expr.Long(b, 1),
		Else: ref(b.Long, "missing"),
	}
	if _, err := c.Compile(bad); !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("want UnboundSymbol, got %v", err)
	}
	if c.Builder().Block() != entry || entry.Terminated() {
		t.Fatalf("builder left at %v", c.Builder().Block())
	}
	if len(f.Blocks) != blocks {
		t.Fatalf("failed if left %d blocks", len(f.Blocks)-blocks)
	}
	if _, err := c.Compile(expr.Long(b, 5)); err != nil {
		t.Fatalf("builder unusable after failed if: %v", err)
	}
}

func TestRegionExhaustedDefineRollsBack(t *testing.T) {
	c, b := newCompilerWith(t, jit.Options{OptLevel: 1, Verify: true, RegionLimit: 32})
	if err := c.DefineGlobal("small", expr.Long(b, 1)); err != nil {
		t.Fatalf("define small: %v", err)
	}
	before := c.GlobalDataUsed()
	big := call(b.Long, "length", expr.String(b, strings.Repeat("x", 64)))
	if err := c.DefineGlobal("big", big); !errors.Is(err, diag.ErrRegionExhausted) {
		t.Fatalf("want RegionExhausted, got %v", err)
	}
	if got := c.GlobalDataUsed(); got != before {
		t.Fatalf("region moved from %d to %d", before, got)
	}
	if c.IsDefined("big") {
		t.Fatalf("exhausted definition left an entry")
	}
	if err := c.DefineGlobal("big", expr.Long(b, 2)); err != nil {
		t.Fatalf("name must stay available: %v", err)
	}
}

func TestDumpTagsLocationsAndScopes(t *testing.T) {
	c, b := newCompiler(t)
	hostCell := new(int64)
	if err := c.BindGlobal("hostv", b.Long, uintptr(unsafe.Pointer(hostCell))); err != nil {
		t.Fatalf("bind: %v", err)
	}
	double := &expr.Fn{Ty: fnType(c, b.Long, b.Long), Params: []string{"x"}, Body: call(b.Long, "*", ref(b.Long, "x"), expr.Long(b, 2))}
	if err := c.DefineGlobal("double", double); err != nil {
		t.Fatalf("define: %v", err)
	}
	openScratch(t, c, b)
	c.PushScope()
	defer c.PopScope()
	if _, err := c.CompileNamed("yonder", expr.Long(b, 3)); err != nil {
		t.Fatalf("bind local: %v", err)
	}
	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{" host\n", "image #", "scopes", "yonder"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump misses %q:\n%s", want, out)
		}
	}
}
