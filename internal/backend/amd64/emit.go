// Package amd64 lowers compilation units to x86-64 machine code.
//
// Every SSA value gets an 8-byte slot in the frame of its function; operands
// are loaded into scratch registers, combined, and written back. Calls use
// the register convention in regs.go. Branches and intra-unit calls are
// rel32 fixups resolved once the whole unit is laid out; references to other
// units and to host symbols become absolute relocations.
package amd64

import (
	"errors"
	"fmt"

	"jitcc/internal/diag"
	"jitcc/internal/mir"
)

// Options carries the addresses generated code is specialized for.
type Options struct {
	// StackTop is the 16-byte aligned top of the native stack entry stubs
	// switch to.
	StackTop uintptr
	// HeapControl points at {cur, limit uintptr} used by inline allocation.
	HeapControl uintptr
}

type callFixup struct {
	at     int
	target *mir.Func
}

type Emitter struct {
	mod     *mir.Module
	opts    Options
	asm     Asm
	funcOff map[*mir.Func]int
	fixups  []callFixup
	relocs  []Reloc
	symbols []Symbol
}

// EmitModule lowers every function of mod and the entry stubs it requests.
func EmitModule(mod *mir.Module, opts Options) (*Object, error) {
	if mod == nil {
		return nil, errors.New("amd64: nil unit")
	}
	e := &Emitter{
		mod:     mod,
		opts:    opts,
		funcOff: make(map[*mir.Func]int, len(mod.Funcs)),
	}
	for _, f := range mod.Funcs {
		e.asm.Align(16)
		start := e.asm.Len()
		e.funcOff[f] = start
		if err := e.emitFunction(f); err != nil {
			return nil, diag.Wrap(diag.InvalidIR, f.Name, err)
		}
		e.symbols = append(e.symbols, Symbol{Name: f.Name, Func: f, Offset: start, Size: e.asm.Len() - start, Stub: -1})
	}
	for i := range e.symbols {
		sym := &e.symbols[i]
		if !sym.Func.Stub {
			continue
		}
		if e.opts.StackTop == 0 || e.opts.StackTop%16 != 0 {
			return nil, fmt.Errorf("amd64: entry stub for %s needs an aligned stack top", sym.Name)
		}
		e.asm.Align(16)
		sym.Stub = e.asm.Len()
		e.emitStub(sym.Func)
	}
	for _, fx := range e.fixups {
		off, ok := e.funcOff[fx.target]
		if !ok {
			return nil, diag.New(diag.InvalidIR, fx.target.Name, "call to a function outside the unit")
		}
		e.asm.PatchRel32(fx.at, off)
	}
	return &Object{Code: e.asm.Bytes(), Symbols: e.symbols, Relocs: e.relocs}, nil
}

// emitStub switches from the caller's stack to the native stack, calls the
// function body and switches back. Arguments pass through untouched.
func (e *Emitter) emitStub(f *mir.Func) {
	a := &e.asm
	a.MovRR(goSP, RSP)
	a.MovAbs(callScratch, uint64(e.opts.StackTop))
	a.MovRR(RSP, callScratch)
	e.fixups = append(e.fixups, callFixup{at: a.Call(), target: f})
	a.MovRR(RSP, goSP)
	a.Ret()
}
