// Package jit is the compiler core: it translates typed expressions into
// compilation units, owns the symbol tables and the global data region, and
// drives finalization through the engine.
package jit

import (
	"errors"
	"fmt"

	"jitcc/internal/diag"
	"jitcc/internal/engine"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/observ"
	"jitcc/internal/region"
	"jitcc/internal/symbols"
	"jitcc/internal/trace"
	"jitcc/internal/types"
)

// Options configures a Compiler.
type Options struct {
	// OptLevel 0 disables the pass pipeline.
	OptLevel int
	// Verify validates every unit before lowering.
	Verify bool
	// StackSize and HeapSize size the native stack and runtime heap.
	StackSize int
	HeapSize  int
	// RegionChunk and RegionLimit configure the global data region.
	RegionChunk int
	RegionLimit int64
	Tracer      trace.Tracer
}

// Compiler is a compilation session. It is not safe for concurrent use.
type Compiler struct {
	env     *types.Env
	in      *types.Interner
	b       types.Builtins
	eng     *engine.Manager
	builder *mir.Builder

	scopes  *symbols.ScopeStack
	globals *symbols.Globals
	consts  *symbols.Constants
	strs    *symbols.StringPool
	region  *region.Region

	ops      map[string]Op
	retained map[string]expr.Expr

	tracer trace.Tracer
	timer  *observ.Timer
	anon   int
	closed bool
}

// New creates a compiler over env. It fails with UnsupportedTarget on hosts
// that cannot run generated code.
func New(env *types.Env, opts Options) (*Compiler, error) {
	if env == nil {
		env = types.NewEnv()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	eng, err := engine.NewManager(engine.Options{
		OptLevel:  opts.OptLevel,
		Verify:    opts.Verify,
		StackSize: opts.StackSize,
		HeapSize:  opts.HeapSize,
		Tracer:    opts.Tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("jit: %w", err)
	}
	in := env.Types()
	return &Compiler{
		env:      env,
		in:       in,
		b:        in.Builtins(),
		eng:      eng,
		builder:  mir.NewBuilder(),
		scopes:   symbols.NewScopeStack(),
		globals:  symbols.NewGlobals(),
		consts:   symbols.NewConstants(),
		strs:     symbols.NewStringPool(".str"),
		region:   region.New(region.Options{ChunkSize: opts.RegionChunk, Limit: opts.RegionLimit}),
		ops:      make(map[string]Op),
		retained: make(map[string]expr.Expr),
		tracer:   opts.Tracer,
		timer:    observ.NewTimer(),
	}, nil
}

// TypeEnv returns the shared type environment.
func (c *Compiler) TypeEnv() *types.Env {
	return c.env
}

// Builder returns the instruction cursor used by every compile operation.
func (c *Compiler) Builder() *mir.Builder {
	return c.builder
}

// Module returns the unit code is currently emitted into, creating it if
// needed.
func (c *Compiler) Module() *mir.Module {
	if f := c.builder.Func(); f != nil && !f.Module.Finalized {
		return f.Module
	}
	return c.eng.Current()
}

// Engine exposes the unit and image manager.
func (c *Compiler) Engine() *engine.Manager {
	return c.eng
}

// Timings returns the phase timer fed by definitions and finalization.
func (c *Compiler) Timings() *observ.Timer {
	return c.timer
}

// SymbolAddress resolves name to a runtime address, 0 when absent.
func (c *Compiler) SymbolAddress(name string) uintptr {
	return c.eng.SymbolAddress(symbols.Canonical(name))
}

// Close unmaps every image, the native stack, the runtime heap and the
// global data region. Host memory bound with BindGlobal is untouched.
func (c *Compiler) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.builder.SetInsertPoint(nil)
	return errors.Join(c.eng.Close(), c.region.Close())
}

// requireActive fails unless the builder can take instructions.
func (c *Compiler) requireActive(what string) error {
	if !c.builder.Active() {
		return diag.New(diag.InvalidIR, "", "%s needs an active instruction stream", what)
	}
	return nil
}

// ref makes a function or data cell usable from the unit being built.
// Values owned by another unit are wrapped in an external declaration.
func (c *Compiler) ref(v mir.Value) mir.Value {
	switch v.(type) {
	case *mir.Func, *mir.Global, *mir.Extern:
		m := c.Module()
		if !m.Owns(v) {
			return m.DeclareExtern(v)
		}
	}
	return v
}

// measure runs fn as a timed phase.
func (c *Compiler) measure(name string, fn func() error) error {
	idx := c.timer.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	c.timer.End(idx, note)
	return err
}

func (c *Compiler) typeName(t types.TypeID) string {
	if t == types.NoTypeID {
		return "<none>"
	}
	return c.in.String(t)
}
