package engine

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"jitcc/internal/backend/amd64"
	"jitcc/internal/diag"
	"jitcc/internal/mir"
	"jitcc/internal/trace"
)

// Options configures a Manager.
type Options struct {
	// OptLevel 0 disables the pass pipeline.
	OptLevel int
	// Verify validates every unit before lowering.
	Verify bool
	// StackSize is the size of the native stack.
	StackSize int
	// HeapSize is the capacity of the inline allocation heap.
	HeapSize int
	Tracer   trace.Tracer
}

const (
	DefaultStackSize = 1 << 20
	DefaultHeapSize  = 16 << 20
)

// Manager owns the current unit and every image produced from it.
type Manager struct {
	opts     Options
	tracer   trace.Tracer
	nextID   int
	current  *mir.Module
	parked   []*mir.Module
	images   []*Image
	byUnit   map[*mir.Module]*Image
	data     map[string]uintptr
	stack    *Stack
	heap     *Heap
	released map[uintptr]bool
	retired  []*Image
}

// NewManager maps the native stack and heap. On hosts that cannot execute
// generated code it fails with UnsupportedTarget.
func NewManager(opts Options) (*Manager, error) {
	if !CanExecute() {
		return nil, diag.New(diag.UnsupportedTarget, "", "generated code needs amd64 on a unix kernel")
	}
	if opts.StackSize <= 0 {
		opts.StackSize = DefaultStackSize
	}
	if opts.HeapSize <= 0 {
		opts.HeapSize = DefaultHeapSize
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	stack, err := newStack(opts.StackSize)
	if err != nil {
		return nil, err
	}
	heap, err := newHeap(opts.HeapSize)
	if err != nil {
		_ = stack.free()
		return nil, err
	}
	return &Manager{
		opts:     opts,
		tracer:   opts.Tracer,
		byUnit:   make(map[*mir.Module]*Image),
		data:     make(map[string]uintptr),
		stack:    stack,
		heap:     heap,
		released: make(map[uintptr]bool),
	}, nil
}

// Current returns the open unit, creating it if needed.
func (m *Manager) Current() *mir.Module {
	if m.current == nil {
		m.nextID++
		m.current = mir.NewModule(m.nextID, "unit"+strconv.Itoa(m.nextID))
	}
	return m.current
}

// HasCurrent reports whether a unit is open.
func (m *Manager) HasCurrent() bool {
	return m.current != nil
}

// Suspend parks the open unit so an unrelated unit can be built and
// finalized. Every Suspend must be matched by Resume.
func (m *Manager) Suspend() {
	m.parked = append(m.parked, m.current)
	m.current = nil
}

// Resume restores the unit parked by the matching Suspend.
func (m *Manager) Resume() {
	if len(m.parked) == 0 {
		panic(diag.New(diag.InvalidIR, "", "resume without suspend"))
	}
	if m.current != nil {
		panic(diag.New(diag.InvalidIR, m.current.Name, "resume over an open unit"))
	}
	m.current = m.parked[len(m.parked)-1]
	m.parked = m.parked[:len(m.parked)-1]
}

// Discard drops the open unit without finalizing it.
func (m *Manager) Discard() {
	if m.current != nil {
		trace.Point(m.tracer, trace.ScopeUnit, "discard", m.current.Name)
	}
	m.current = nil
}

// Finalize lowers the open unit into a new image and closes the unit. With
// no open unit it returns nil. On failure the unit is dropped.
func (m *Manager) Finalize() (*Image, error) {
	unit := m.current
	if unit == nil {
		return nil, nil
	}
	m.current = nil
	span := trace.Begin(m.tracer, trace.ScopeUnit, "finalize", 0).WithExtra("unit", unit.Name)

	img, err := m.finalize(unit)
	if err != nil {
		span.End(err.Error())
		return nil, fmt.Errorf("finalize %s: %w", unit.Name, err)
	}
	span.WithExtra("bytes", strconv.Itoa(img.codeLen)).End("")
	return img, nil
}

func (m *Manager) finalize(unit *mir.Module) (*Image, error) {
	mir.Optimize(unit, m.opts.OptLevel)
	if m.opts.Verify {
		if err := mir.Validate(unit); err != nil {
			return nil, diag.Wrap(diag.InvalidIR, unit.Name, err)
		}
	}
	obj, err := amd64.EmitModule(unit, amd64.Options{
		StackTop:    m.stack.Top(),
		HeapControl: m.heap.Control(),
	})
	if err != nil {
		return nil, err
	}
	if err := obj.Relocate(m.resolve); err != nil {
		return nil, err
	}
	img, err := newImage(unit, obj)
	if err != nil {
		return nil, err
	}
	unit.Finalized = true
	m.images = append(m.images, img)
	m.byUnit[unit] = img
	return img, nil
}

// resolve maps an external declaration to an address. References to other
// units go through the image of the unit that owns the target.
func (m *Manager) resolve(ext *mir.Extern) (uintptr, error) {
	switch t := ext.Target.(type) {
	case *mir.Func:
		img, ok := m.byUnit[t.Module]
		if !ok || img.released {
			return 0, diag.New(diag.UnboundSymbol, t.Name, "unit %s has no live image", t.Module.Name)
		}
		addr, ok := img.FuncAddr(t)
		if !ok {
			return 0, diag.Unbound(t.Name)
		}
		return addr, nil
	case *mir.Global:
		return t.Addr, nil
	case *mir.Extern:
		return m.resolve(t)
	case nil:
		if ext.Addr != 0 {
			return ext.Addr, nil
		}
		if addr := m.SymbolAddress(ext.Name); addr != 0 {
			return addr, nil
		}
		return 0, diag.Unbound(ext.Name)
	}
	return 0, fmt.Errorf("cannot resolve %s: unexpected target %T", ext.Ref(), ext.Target)
}

// ImageOf returns the live image built from unit.
func (m *Manager) ImageOf(unit *mir.Module) (*Image, bool) {
	img, ok := m.byUnit[unit]
	return img, ok
}

// DefineData registers a host or data symbol consulted after the images.
func (m *Manager) DefineData(name string, addr uintptr) {
	m.data[name] = addr
}

// SymbolAddress looks name up in the images, newest first, then in the
// data symbols. It returns 0 when nothing matches.
func (m *Manager) SymbolAddress(name string) uintptr {
	for _, img := range slices.Backward(m.images) {
		if addr := img.Symbol(name); addr != 0 {
			return addr
		}
	}
	return m.data[name]
}

// Release frees the image containing entry. Releasing an address no live
// image contains is a contract violation and panics with InvalidRelease.
func (m *Manager) Release(entry uintptr) {
	for _, img := range m.images {
		if img.Contains(entry) {
			m.ReleaseImage(img)
			return
		}
	}
	detail := "no image contains %#x"
	if m.released[entry] {
		detail = "%#x was already released"
	}
	panic(diag.New(diag.InvalidRelease, "", detail, entry))
}

// ReleaseImage retires img. Its pages lose all access but stay reserved
// until Close, so released entries never alias a newer image. Code in
// other images that still calls into it must not run afterwards.
func (m *Manager) ReleaseImage(img *Image) {
	m.unlink(img)
	for _, s := range img.symbols {
		m.released[img.Base()+uintptr(s.Offset)] = true
		if s.Stub >= 0 {
			m.released[img.Base()+uintptr(s.Stub)] = true
		}
	}
	m.retired = append(m.retired, img)
	if err := img.retire(); err != nil {
		trace.Point(m.tracer, trace.ScopeUnit, "release", err.Error())
		return
	}
	trace.Point(m.tracer, trace.ScopeUnit, "release", img.Unit.Name)
}

// FreeImage unmaps img at once. It is only for images whose addresses
// never left the caller, such as run-once initializers.
func (m *Manager) FreeImage(img *Image) {
	m.unlink(img)
	if err := img.free(); err != nil {
		trace.Point(m.tracer, trace.ScopeUnit, "free", err.Error())
		return
	}
	trace.Point(m.tracer, trace.ScopeUnit, "free", img.Unit.Name)
}

func (m *Manager) unlink(img *Image) {
	i := slices.Index(m.images, img)
	if i < 0 {
		panic(diag.New(diag.InvalidRelease, img.Unit.Name, "image #%d is not live", img.ID))
	}
	m.images = slices.Delete(m.images, i, i+1)
	delete(m.byUnit, img.Unit)
}

// Images lists live images oldest first.
func (m *Manager) Images() []*Image {
	return slices.Clone(m.images)
}

// Heap returns the inline allocation heap.
func (m *Manager) Heap() *Heap {
	return m.heap
}

// Stack returns the native stack.
func (m *Manager) Stack() *Stack {
	return m.stack
}

// Dump writes every image followed by the open and parked units.
func (m *Manager) Dump(w io.Writer) error {
	for _, img := range m.images {
		img.dump(w)
	}
	units := slices.Clone(m.parked)
	units = append(units, m.current)
	for _, unit := range units {
		if unit == nil {
			continue
		}
		if err := mir.DumpModule(w, unit, mir.DumpOptions{Header: true}); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every image and the native memory. The Manager must not
// be used afterwards.
func (m *Manager) Close() error {
	var errs []error
	for _, img := range m.images {
		errs = append(errs, img.free())
	}
	for _, img := range m.retired {
		errs = append(errs, img.free())
	}
	m.images, m.retired = nil, nil
	m.byUnit = map[*mir.Module]*Image{}
	m.current, m.parked = nil, nil
	errs = append(errs, m.stack.free(), m.heap.free())
	return errors.Join(errs...)
}
