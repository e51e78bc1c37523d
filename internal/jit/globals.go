package jit

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"fortio.org/safecast"

	"jitcc/internal/diag"
	"jitcc/internal/engine"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/region"
	"jitcc/internal/symbols"
	"jitcc/internal/trace"
	"jitcc/internal/types"
)

// txn remembers what a global definition may roll back.
type txn struct {
	cp     region.Checkpoint
	consts int
	strs   int
}

func (c *Compiler) begin() txn {
	return txn{cp: c.region.Checkpoint(), consts: c.consts.Len(), strs: c.strs.Len()}
}

func (c *Compiler) rollback(t txn) {
	c.consts.Truncate(t.consts)
	c.strs.Truncate(t.strs)
	if err := c.region.Rollback(t.cp); err != nil {
		trace.Point(c.tracer, trace.ScopeUnit, "rollback", err.Error())
	}
}

// DefineGlobal compiles e at global scope and records it under name. A
// literal becomes a named constant, a function literal a global function
// that may call itself, anything else a variable in the global data region
// holding the value of e. On failure nothing of the attempt survives.
func (c *Compiler) DefineGlobal(name string, e expr.Expr) error {
	name = symbols.Canonical(name)
	if c.IsDefined(name) {
		return diag.New(diag.DuplicateSymbol, name, "already defined")
	}
	span := trace.Begin(c.tracer, trace.ScopeUnit, "define", 0).WithExtra("name", name)
	tx := c.begin()
	err := c.measure("define", func() error {
		switch e := e.(type) {
		case *expr.Lit:
			return c.defineConstant(name, e)
		case *expr.Fn:
			return c.defineFunction(name, e)
		default:
			return c.defineVariable(name, e)
		}
	})
	if err != nil {
		c.rollback(tx)
		span.End(err.Error())
		return fmt.Errorf("define %s: %w", name, err)
	}
	c.retained[name] = e
	span.End("")
	return nil
}

func (c *Compiler) defineConstant(name string, lit *expr.Lit) error {
	cell, err := c.storeLit(name, lit)
	if err != nil {
		return err
	}
	k := &symbols.Constant{Name: name, Value: lit, Repr: cell.Elem, Type: lit.Ty, Ref: cell}
	if err := c.consts.Add(k, false); err != nil {
		return err
	}
	c.eng.DefineData(name, cell.Addr)
	return nil
}

func (c *Compiler) defineFunction(name string, fn *expr.Fn) error {
	var (
		f *mir.Func
		g *symbols.Global
	)
	img, err := c.isolated(func() error {
		var err error
		if f, err = c.allocFunction(name, fn.Ty); err != nil {
			return err
		}
		g = &symbols.Global{Name: name, Type: fn.Ty, Ref: symbols.FuncRef{Fn: f}}
		if err := c.globals.Define(g); err != nil {
			g = nil
			return err
		}
		restore := c.scopes.IgnoreLocals()
		defer restore()
		return c.compileBody(f, fn)
	})
	if err != nil {
		if g != nil {
			c.globals.Remove(name)
		}
		return err
	}
	g.Addr, _ = img.FuncAddr(f)
	return nil
}

func (c *Compiler) defineVariable(name string, e expr.Expr) error {
	ty := e.Type()
	repr, err := c.reprOf(name, ty)
	if err != nil {
		return err
	}
	cell, _, err := c.allocCell(name, repr)
	if err != nil {
		return err
	}
	var init *mir.Func
	img, err := c.isolated(func() error {
		init = c.Module().NewFunc(".init."+name, &mir.Signature{Result: mir.Void})
		init.Stub = true
		c.builder.SetInsertPoint(init.Entry())
		v, err := c.CompileAtGlobalScope(e)
		if err != nil {
			return err
		}
		c.builder.Store(c.ref(cell), v)
		c.builder.RetVoid()
		return nil
	})
	if err != nil {
		return err
	}
	entry, ok := img.EntryAddr(init)
	if !ok {
		return diag.New(diag.InvalidIR, name, "initializer has no entry stub")
	}
	engine.MakeFunc[func()](entry)()
	// function values may point into the image
	if !c.mentionsFn(ty) {
		c.eng.FreeImage(img)
	}
	if err := c.globals.Define(&symbols.Global{Name: name, Type: ty, Addr: cell.Addr, Ref: symbols.VarRef{Global: cell}}); err != nil {
		return err
	}
	c.eng.DefineData(name, cell.Addr)
	return nil
}

func (c *Compiler) mentionsFn(t types.TypeID) bool {
	switch c.in.KindOf(t) {
	case types.KindFn, types.KindPointer:
		return true
	case types.KindArray:
		elem, _ := c.in.ElemOf(t)
		return c.mentionsFn(elem)
	}
	return false
}

// BindGlobal exposes host memory as a global. For function types hostPtr
// is machine code following the native convention; otherwise it is the
// address of a value. The host keeps ownership.
func (c *Compiler) BindGlobal(name string, ty types.TypeID, hostPtr uintptr) error {
	name = symbols.Canonical(name)
	if c.IsDefined(name) {
		return diag.New(diag.DuplicateSymbol, name, "already defined")
	}
	if hostPtr == 0 {
		return diag.New(diag.InvalidIR, name, "null host address")
	}
	g := &symbols.Global{Name: name, Type: ty, Addr: hostPtr}
	if c.in.KindOf(ty) == types.KindFn {
		sig, _, err := c.signature(name, ty)
		if err != nil {
			return err
		}
		g.Ref = symbols.FuncRef{Fn: &mir.Extern{Name: name, Kind: mir.ExternFunc, Sig: sig, Addr: hostPtr}}
	} else {
		repr, err := c.reprOf(name, ty)
		if err != nil {
			return err
		}
		g.Ref = symbols.VarRef{Global: &mir.Global{Name: name, Elem: repr, Addr: hostPtr}}
	}
	if err := c.globals.Define(g); err != nil {
		return err
	}
	c.eng.DefineData(name, hostPtr)
	return nil
}

// InternConstString returns a pointer to constant storage holding s as an
// array of char. Equal strings share storage.
func (c *Compiler) InternConstString(s string) (mir.Value, error) {
	k, err := c.stringConstant(s)
	if err != nil {
		return nil, err
	}
	return c.ref(k.Ref), nil
}

func (c *Compiler) stringConstant(s string) (*symbols.Constant, error) {
	lit := expr.String(c.b, s)
	if k, ok := c.consts.Find(lit); ok {
		return k, nil
	}
	name, fresh := c.strs.Intern(s)
	if !fresh {
		return nil, diag.New(diag.InvalidIR, name, "interned string without storage")
	}
	cell, err := c.storeLit(name, lit)
	if err == nil {
		k := &symbols.Constant{Name: name, Value: lit, Repr: mir.Ptr, Type: lit.Ty, Ref: cell}
		if err = c.consts.Add(k, true); err == nil {
			return k, nil
		}
	}
	c.strs.Truncate(c.strs.Len() - 1)
	return nil, err
}

// LoadConstant returns the value of a named constant.
func (c *Compiler) LoadConstant(name string) (mir.Value, error) {
	k, ok := c.consts.Lookup(name)
	if !ok {
		return nil, diag.Unbound(name)
	}
	return c.constValue(k)
}

// constValue materializes a constant: scalars as immediates, strings as
// the address of their storage.
func (c *Compiler) constValue(k *symbols.Constant) (mir.Value, error) {
	if k.Value.IsString() {
		return c.ref(k.Ref), nil
	}
	if err := c.requireActive("constant " + k.Name); err != nil {
		return nil, err
	}
	return c.literal(k.Value)
}

// literal emits a literal. Only strings need storage.
func (c *Compiler) literal(l *expr.Lit) (mir.Value, error) {
	switch l.Kind {
	case types.KindUnit:
		return c.UnitValue(), nil
	case types.KindBool:
		return c.builder.ConstBool(l.Int != 0), nil
	case types.KindChar, types.KindByte, types.KindShort, types.KindInt, types.KindLong:
		return c.builder.ConstInt(KindRepr(l.Kind), l.Int), nil
	case types.KindFloat, types.KindDouble:
		return c.builder.ConstFloat(KindRepr(l.Kind), l.Float), nil
	case types.KindArray:
		return c.InternConstString(l.Str)
	default:
		return nil, diag.New(diag.TypeMismatch, "", "literal of kind %s", l.Kind)
	}
}

// allocCell reserves a zeroed data cell in the global data region.
func (c *Compiler) allocCell(name string, repr mir.Type) (*mir.Global, []byte, error) {
	size := repr.Size()
	p, err := c.region.Alloc(size, size)
	if err != nil {
		return nil, nil, err
	}
	return &mir.Global{Name: name, Elem: repr, Addr: uintptr(p)}, unsafe.Slice((*byte)(p), size), nil
}

// storeLit writes a literal into the global data region. Strings are laid
// out as arrays with a trailing NUL and the cell address is the array.
func (c *Compiler) storeLit(name string, l *expr.Lit) (*mir.Global, error) {
	if l.IsString() {
		size := types.ArrayHeaderSize + len(l.Str) + 1
		p, err := c.region.Alloc(size, types.ArrayHeaderSize)
		if err != nil {
			return nil, err
		}
		mem := unsafe.Slice((*byte)(p), size)
		n, err := safecast.Conv[uint64](len(l.Str))
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(mem, n)
		copy(mem[types.ArrayHeaderSize:], l.Str)
		return &mir.Global{Name: name, Elem: mir.Ptr, Addr: uintptr(p)}, nil
	}
	repr := KindRepr(l.Kind)
	if repr == mir.Void {
		return nil, diag.New(diag.TypeMismatch, name, "literal of kind %s", l.Kind)
	}
	cell, mem, err := c.allocCell(name, repr)
	if err != nil {
		return nil, err
	}
	putBits(mem, litBits(l, repr))
	return cell, nil
}

func litBits(l *expr.Lit, repr mir.Type) uint64 {
	switch repr {
	case mir.F32:
		return uint64(math.Float32bits(float32(l.Float)))
	case mir.F64:
		return math.Float64bits(l.Float)
	case mir.I1:
		if l.Int != 0 {
			return 1
		}
		return 0
	default:
		return uint64(l.Int) //nolint:gosec // two's complement bits
	}
}

func putBits(mem []byte, bits uint64) {
	switch len(mem) {
	case 1:
		mem[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(mem, uint16(bits)) //nolint:gosec
	case 4:
		binary.LittleEndian.PutUint32(mem, uint32(bits)) //nolint:gosec
	case 8:
		binary.LittleEndian.PutUint64(mem, bits)
	}
}

// MemAlloc reserves size zeroed bytes aligned to align in the global data
// region. The memory keeps its address until Close. A region at its limit
// fails with RegionExhausted.
func (c *Compiler) MemAlloc(size, align int) (unsafe.Pointer, error) {
	p, err := c.region.Alloc(size, align)
	if err != nil {
		return nil, fmt.Errorf("memalloc %d bytes: %w", size, err)
	}
	return p, nil
}

// GlobalDataUsed reports the high-water mark of the global data region.
func (c *Compiler) GlobalDataUsed() int64 {
	return c.region.Used()
}
