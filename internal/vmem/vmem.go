// Package vmem maps anonymous memory for generated code, global data and the
// native stack used by generated code.
package vmem

import (
	"fmt"
	"unsafe"
)

// Mapping is an anonymous private mapping. Its contents stay at a fixed
// address until Free.
type Mapping struct {
	data    []byte
	exec    bool
	retired bool
}

// Bytes returns the mapped memory. Writing after Seal faults.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Addr returns the base address, 0 once freed.
func (m *Mapping) Addr() uintptr {
	if len(m.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.data[0]))
}

// Len returns the mapped size in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Executable reports whether Seal succeeded.
func (m *Mapping) Executable() bool {
	return m.exec
}

// Contains reports whether addr falls inside the mapping.
func (m *Mapping) Contains(addr uintptr) bool {
	base := m.Addr()
	return base != 0 && addr >= base && addr < base+uintptr(len(m.data))
}

// RoundUp rounds n up to a whole number of pages.
func RoundUp(n int) int {
	ps := PageSize()
	if n <= 0 {
		return ps
	}
	return (n + ps - 1) / ps * ps
}

func checkRange(m *Mapping, off, n int) error {
	if off < 0 || n < 0 || off+n > len(m.data) {
		return fmt.Errorf("vmem: range [%d, %d) outside mapping of %d bytes", off, off+n, len(m.data))
	}
	if off%PageSize() != 0 || n%PageSize() != 0 {
		return fmt.Errorf("vmem: range [%d, %d) is not page aligned", off, off+n)
	}
	return nil
}
