//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package vmem

import (
	"jitcc/internal/diag"
)

// Supported reports whether this host can map memory.
const Supported = false

func PageSize() int {
	return 4096
}

func Alloc(int) (*Mapping, error) {
	return nil, diag.New(diag.UnsupportedTarget, "", "anonymous mappings are not available on this host")
}

func (m *Mapping) Seal() error {
	return diag.New(diag.UnsupportedTarget, "", "executable mappings are not available on this host")
}

func (m *Mapping) Guard(int, int) error {
	return diag.New(diag.UnsupportedTarget, "", "guard pages are not available on this host")
}

func (m *Mapping) Retire() error {
	return nil
}

func (m *Mapping) Free() error {
	return nil
}
