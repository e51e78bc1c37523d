//go:build linux || darwin || freebsd || netbsd || openbsd

package vmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Supported reports whether this host can map memory.
const Supported = true

// PageSize returns the system page size.
func PageSize() int {
	return unix.Getpagesize()
}

// Alloc maps size bytes (rounded up to pages) readable and writable.
func Alloc(size int) (*Mapping, error) {
	n := RoundUp(size)
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", n, err)
	}
	return &Mapping{data: data}, nil
}

// Seal makes the mapping read-only and executable.
func (m *Mapping) Seal() error {
	if err := unix.Mprotect(m.data, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("mprotect exec: %w", err)
	}
	m.exec = true
	return nil
}

// Guard revokes all access to the pages in [off, off+n).
func (m *Mapping) Guard(off, n int) error {
	if err := checkRange(m, off, n); err != nil {
		return err
	}
	if err := unix.Mprotect(m.data[off:off+n], unix.PROT_NONE); err != nil {
		return fmt.Errorf("mprotect guard: %w", err)
	}
	return nil
}

// Retire revokes all access but keeps the address range reserved, so no
// later mapping lands on it. Free still unmaps a retired mapping.
func (m *Mapping) Retire() error {
	if m == nil || m.data == nil || m.retired {
		return nil
	}
	if err := unix.Mprotect(m.data, unix.PROT_NONE); err != nil {
		return fmt.Errorf("mprotect retire: %w", err)
	}
	m.exec = false
	m.retired = true
	return nil
}

// Free unmaps the memory. Freeing twice is a no-op.
func (m *Mapping) Free() error {
	if m == nil || m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	m.data = nil
	m.exec = false
	m.retired = false
	return nil
}
