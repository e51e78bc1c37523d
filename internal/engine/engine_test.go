package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"jitcc/internal/diag"
	"jitcc/internal/mir"
)

var i64Sig = &mir.Signature{Params: []mir.Type{mir.I64}, Result: mir.I64}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	if !CanExecute() {
		t.Skip("generated code cannot run on this host")
	}
	m, err := NewManager(Options{OptLevel: 1, Verify: true, StackSize: 64 << 10, HeapSize: 4096})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return m
}

func addConst(unit *mir.Module, name string, k int64, stub bool) *mir.Func {
	f := unit.NewFunc(name, i64Sig)
	f.Stub = stub
	b := mir.NewBuilder()
	b.SetInsertPoint(f.Entry())
	b.Ret(b.Binary(mir.OpAdd, f.Param(0), b.ConstInt(mir.I64, k)))
	return f
}

func TestFinalizeAndCall(t *testing.T) {
	m := newTestManager(t)
	inc := addConst(m.Current(), "inc", 1, true)
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if m.HasCurrent() || !inc.Module.Finalized {
		t.Fatalf("finalize must close the unit")
	}
	entry, ok := img.EntryAddr(inc)
	if !ok {
		t.Fatalf("missing entry stub")
	}
	fn := MakeFunc[func(int64) int64](entry)
	if got := fn(41); got != 42 {
		t.Fatalf("inc(41) = %d", got)
	}
	if got := fn(-1); got != 0 {
		t.Fatalf("inc(-1) = %d", got)
	}
}

func TestCrossUnitCall(t *testing.T) {
	m := newTestManager(t)
	inc := addConst(m.Current(), "inc", 1, false)
	if _, err := m.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	unit := m.Current()
	f := unit.NewFunc("twice", i64Sig)
	f.Stub = true
	ext := unit.DeclareExtern(inc)
	b := mir.NewBuilder()
	b.SetInsertPoint(f.Entry())
	x := b.Call(ext, i64Sig, f.Param(0))
	b.Ret(b.Call(ext, i64Sig, x))
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entry, _ := img.EntryAddr(f)
	if got := MakeFunc[func(int64) int64](entry)(40); got != 42 {
		t.Fatalf("twice(40) = %d", got)
	}
	if m.SymbolAddress("inc") == 0 || m.SymbolAddress("twice") == 0 {
		t.Fatalf("symbols must be visible")
	}
	if m.SymbolAddress("nope") != 0 {
		t.Fatalf("unknown symbol must resolve to 0")
	}
}

func TestHostSymbolResolution(t *testing.T) {
	m := newTestManager(t)
	addConst(m.Current(), "add10", 10, false)
	if _, err := m.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	m.DefineData("host_add10", m.SymbolAddress("add10"))

	unit := m.Current()
	host := unit.DeclareHost("host_add10", mir.ExternFunc, i64Sig, mir.Void, 0)
	f := unit.NewFunc("viaHost", i64Sig)
	f.Stub = true
	b := mir.NewBuilder()
	b.SetInsertPoint(f.Entry())
	b.Ret(b.Call(host, i64Sig, f.Param(0)))
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entry, _ := img.EntryAddr(f)
	if got := MakeFunc[func(int64) int64](entry)(5); got != 15 {
		t.Fatalf("viaHost(5) = %d", got)
	}

	unit = m.Current()
	missing := unit.DeclareHost("missing", mir.ExternFunc, i64Sig, mir.Void, 0)
	g := unit.NewFunc("broken", i64Sig)
	b.SetInsertPoint(g.Entry())
	b.Ret(b.Call(missing, i64Sig, g.Param(0)))
	_, err = m.Finalize()
	if !errors.Is(err, diag.ErrUnboundSymbol) {
		t.Fatalf("expected unbound symbol, got %v", err)
	}
	if m.HasCurrent() {
		t.Fatalf("failed unit must be dropped")
	}
}

func TestFloatArithmetic(t *testing.T) {
	m := newTestManager(t)
	sig := &mir.Signature{Params: []mir.Type{mir.F64, mir.I64}, Result: mir.F64}
	f := m.Current().NewFunc("scale", sig)
	f.Stub = true
	b := mir.NewBuilder()
	b.SetInsertPoint(f.Entry())
	n := b.Convert(mir.OpSIToFP, f.Param(1), mir.F64)
	y := b.Binary(mir.OpFMul, f.Param(0), n)
	b.Ret(b.Binary(mir.OpFAdd, y, b.ConstFloat(mir.F64, 0.5)))
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entry, _ := img.EntryAddr(f)
	if got := MakeFunc[func(float64, int64) float64](entry)(1.5, 3); got != 5.0 {
		t.Fatalf("scale(1.5, 3) = %v", got)
	}
}

func TestInlineAllocation(t *testing.T) {
	m := newTestManager(t)
	f := m.Current().NewFunc("box", &mir.Signature{Params: []mir.Type{mir.I64}, Result: mir.Ptr})
	f.Stub = true
	b := mir.NewBuilder()
	b.SetInsertPoint(f.Entry())
	p := b.Alloc(b.ConstInt(mir.I64, 16), b.ConstInt(mir.I64, 8), mir.I64, true)
	b.Store(b.PtrAdd(p, nil, 1, 8), f.Param(0))
	b.Ret(p)
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entry, _ := img.EntryAddr(f)
	box := MakeFunc[func(int64) uintptr](entry)
	p1, p2 := box(7), box(9)
	if p2-p1 != 16 || m.Heap().Used() != 32 {
		t.Fatalf("unexpected bump: %#x %#x used %d", p1, p2, m.Heap().Used())
	}
	mem := m.heap.mem.Bytes()
	off := int(p2 - m.heap.Control())
	if got := binary.LittleEndian.Uint64(mem[off+8:]); got != 9 {
		t.Fatalf("stored %d, want 9", got)
	}
	m.Heap().Reset()
	if m.Heap().Used() != 0 {
		t.Fatalf("reset must rewind the heap")
	}
}

func TestReleaseContract(t *testing.T) {
	m := newTestManager(t)
	inc := addConst(m.Current(), "inc", 1, true)
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entry, _ := img.EntryAddr(inc)
	m.Release(entry)
	if !img.Released() || len(m.Images()) != 0 || m.SymbolAddress("inc") != 0 {
		t.Fatalf("release must drop the image")
	}
	defer func() {
		r := recover()
		de, ok := r.(*diag.Error)
		if !ok || de.Code != diag.InvalidRelease {
			t.Fatalf("expected InvalidRelease panic, got %v", r)
		}
		if !strings.Contains(de.Error(), "already released") {
			t.Fatalf("unexpected message %q", de.Error())
		}
	}()
	m.Release(entry)
}

func TestSuspendResume(t *testing.T) {
	m := newTestManager(t)
	outer := m.Current()
	m.Suspend()
	inner := m.Current()
	if inner == outer {
		t.Fatalf("suspend must open a fresh unit")
	}
	addConst(inner, "inner", 2, false)
	if _, err := m.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	m.Resume()
	if m.Current() != outer {
		t.Fatalf("resume must restore the parked unit")
	}
	var buf bytes.Buffer
	if err := m.Dump(&buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(buf.String(), "image #2") || !strings.Contains(buf.String(), "unit #1") {
		t.Fatalf("unexpected dump:\n%s", buf.String())
	}
}

func TestFinalizeWithoutUnit(t *testing.T) {
	m := newTestManager(t)
	img, err := m.Finalize()
	if img != nil || err != nil {
		t.Fatalf("finalizing nothing must be a no-op")
	}
}

func TestStaleReleaseKeepsNewerImage(t *testing.T) {
	m := newTestManager(t)
	first := addConst(m.Current(), "first", 1, true)
	img1, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	e1, _ := img1.EntryAddr(first)
	m.Release(e1)

	second := addConst(m.Current(), "second", 2, true)
	img2, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	e2, _ := img2.EntryAddr(second)
	if img2.Contains(e1) {
		t.Fatalf("new image reused released address %#x", e1)
	}
	func() {
		defer func() {
			r := recover()
			de, ok := r.(*diag.Error)
			if !ok || de.Code != diag.InvalidRelease {
				t.Fatalf("expected InvalidRelease panic, got %v", r)
			}
		}()
		m.Release(e1)
	}()
	if img2.Released() || len(m.Images()) != 1 {
		t.Fatalf("stale release must not touch the live image")
	}
	if got := MakeFunc[func(int64) int64](e2)(40); got != 42 {
		t.Fatalf("second(40) = %d", got)
	}
	if img1.Code() != nil {
		t.Fatalf("released image must not expose its code")
	}
}

func TestFreeImageUnmaps(t *testing.T) {
	m := newTestManager(t)
	addConst(m.Current(), "once", 1, true)
	img, err := m.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	base := img.Base()
	m.FreeImage(img)
	if !img.Released() || len(m.Images()) != 0 || img.Base() != 0 {
		t.Fatalf("free must drop and unmap the image")
	}
	defer func() {
		r := recover()
		de, ok := r.(*diag.Error)
		if !ok || de.Code != diag.InvalidRelease || strings.Contains(de.Error(), "already released") {
			t.Fatalf("expected InvalidRelease for an unknown address, got %v", r)
		}
	}()
	m.Release(base)
}
