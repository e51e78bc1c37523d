package mir

import (
	"fmt"
	"slices"
)

// Module is a compilation unit: functions compiled together and finalized
// into one executable image.
type Module struct {
	ID        int
	Name      string
	Funcs     []*Func
	Externs   []*Extern
	Finalized bool

	funcNames map[string]int
	byTarget  map[Value]*Extern
	byName    map[string]*Extern
}

func NewModule(id int, name string) *Module {
	return &Module{
		ID:        id,
		Name:      name,
		funcNames: make(map[string]int),
		byTarget:  make(map[Value]*Extern),
		byName:    make(map[string]*Extern),
	}
}

// NewFunc adds a function skeleton with parameters and an entry block.
// Names are made unique inside the unit.
func (m *Module) NewFunc(name string, sig *Signature) *Func {
	f := &Func{Name: m.uniqueName(name), Sig: sig, Module: m}
	for i, pt := range sig.Params {
		p := f.newInstr(OpParam, pt)
		p.Imm = int64(i)
		f.Params = append(f.Params, p)
	}
	f.NewBlock("entry")
	m.Funcs = append(m.Funcs, f)
	return f
}

func (m *Module) uniqueName(name string) string {
	n, seen := m.funcNames[name]
	m.funcNames[name] = n + 1
	if !seen {
		return name
	}
	for {
		cand := fmt.Sprintf("%s.%d", name, n)
		if _, taken := m.funcNames[cand]; !taken {
			m.funcNames[cand] = 1
			return cand
		}
		n++
	}
}

// RemoveFunc drops f from the unit. Reports whether it was present.
func (m *Module) RemoveFunc(f *Func) bool {
	idx := slices.Index(m.Funcs, f)
	if idx < 0 {
		return false
	}
	m.Funcs = slices.Delete(m.Funcs, idx, idx+1)
	return true
}

// FuncByName finds a function by its unit-local name.
func (m *Module) FuncByName(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Owns reports whether v may be referenced directly from code in m.
func (m *Module) Owns(v Value) bool {
	switch v := v.(type) {
	case *Func:
		return v.Module == m
	case *Global:
		return v.Module == m
	case *Extern:
		return v.Module == m
	case *Instr:
		return v.Block != nil && v.Block.Func != nil && v.Block.Func.Module == m
	}
	return false
}

// DeclareExtern returns the unit's declaration of a function or global owned
// by another unit, creating it on first use.
func (m *Module) DeclareExtern(target Value) *Extern {
	if e, ok := m.byTarget[target]; ok {
		return e
	}
	var e *Extern
	switch t := target.(type) {
	case *Func:
		e = &Extern{Name: t.Name, Kind: ExternFunc, Sig: t.Sig, Target: t, Module: m}
	case *Global:
		e = &Extern{Name: t.Name, Kind: ExternData, Elem: t.Elem, Target: t, Module: m}
	case *Extern:
		e = &Extern{Name: t.Name, Kind: t.Kind, Sig: t.Sig, Elem: t.Elem, Target: t.Target, Addr: t.Addr, Module: m}
	default:
		panic(fmt.Sprintf("mir: cannot declare %T as external", target))
	}
	m.byTarget[target] = e
	m.Externs = append(m.Externs, e)
	return e
}

// DeclareHost declares a symbol living at a host address.
func (m *Module) DeclareHost(name string, kind ExternKind, sig *Signature, elem Type, addr uintptr) *Extern {
	if e, ok := m.byName[name]; ok && e.Addr == addr {
		return e
	}
	e := &Extern{Name: name, Kind: kind, Sig: sig, Elem: elem, Addr: addr, Module: m}
	m.byName[name] = e
	m.Externs = append(m.Externs, e)
	return e
}

// NewGlobal describes a data cell at addr owned by m.
func (m *Module) NewGlobal(name string, elem Type, addr uintptr) *Global {
	return &Global{Name: name, Elem: elem, Addr: addr, Module: m}
}
