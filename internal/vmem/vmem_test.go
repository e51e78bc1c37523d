package vmem

import (
	"testing"
)

func TestAllocRoundsToPages(t *testing.T) {
	if !Supported {
		t.Skip("no anonymous mappings on this host")
	}
	m, err := Alloc(10)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	defer m.Free()
	if m.Len() != PageSize() {
		t.Fatalf("len %d, want one page (%d)", m.Len(), PageSize())
	}
	for _, b := range m.Bytes() {
		if b != 0 {
			t.Fatalf("fresh mapping is not zeroed")
		}
	}
	if !m.Contains(m.Addr()) || m.Contains(m.Addr()+uintptr(m.Len())) {
		t.Fatalf("Contains disagrees with the mapping bounds")
	}
}

func TestSealAndFree(t *testing.T) {
	if !Supported {
		t.Skip("no anonymous mappings on this host")
	}
	m, err := Alloc(1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	m.Bytes()[0] = 0xC3
	if err := m.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !m.Executable() {
		t.Fatalf("sealed mapping not marked executable")
	}
	if err := m.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}
	if err := m.Free(); err != nil {
		t.Fatalf("second free must be a no-op: %v", err)
	}
	if m.Addr() != 0 {
		t.Fatalf("freed mapping still reports an address")
	}
}

func TestGuardRejectsUnalignedRange(t *testing.T) {
	if !Supported {
		t.Skip("no anonymous mappings on this host")
	}
	m, err := Alloc(2 * PageSize())
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	defer m.Free()
	if err := m.Guard(1, PageSize()); err == nil {
		t.Fatalf("expected alignment error")
	}
	if err := m.Guard(0, PageSize()); err != nil {
		t.Fatalf("guard first page: %v", err)
	}
}

func TestRetireKeepsAddressReserved(t *testing.T) {
	if !Supported {
		t.Skip("no anonymous mappings on this host")
	}
	m, err := Alloc(1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if err := m.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	base := m.Addr()
	if err := m.Retire(); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if m.Executable() || m.Addr() != base {
		t.Fatalf("retired mapping must keep its address and drop execute access")
	}
	next, err := Alloc(1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	defer next.Free()
	if next.Addr() == base {
		t.Fatalf("new mapping reused a retired address")
	}
	if err := m.Free(); err != nil {
		t.Fatalf("free retired: %v", err)
	}
	if m.Addr() != 0 {
		t.Fatalf("free must unmap a retired mapping")
	}
}
