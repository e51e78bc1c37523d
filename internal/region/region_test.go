package region

import (
	"errors"
	"testing"

	"jitcc/internal/diag"
	"jitcc/internal/vmem"
)

func TestAllocAlignsAndZeroes(t *testing.T) {
	if !vmem.Supported {
		t.Skip("no anonymous mappings on this host")
	}
	r := New(Options{})
	defer r.Close()

	if _, err := r.Alloc(1, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	p, err := r.Alloc(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if uintptr(p)%8 != 0 {
		t.Fatalf("pointer %p not 8-aligned", p)
	}
	if *(*int64)(p) != 0 {
		t.Fatalf("memory not zeroed")
	}
	if r.Used() != 16 {
		t.Fatalf("used %d, want 16 (1 byte, 7 padding, 8 bytes)", r.Used())
	}
	if !r.Contains(uintptr(p)) {
		t.Fatalf("region does not contain its own allocation")
	}
}

func TestRollbackRestoresHighWaterMark(t *testing.T) {
	if !vmem.Supported {
		t.Skip("no anonymous mappings on this host")
	}
	r := New(Options{ChunkSize: vmem.PageSize()})
	defer r.Close()

	first, err := r.Alloc(16, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	*(*int64)(first) = 42
	cp := r.Checkpoint()
	before := r.Used()

	for range 4 {
		if _, err := r.Alloc(vmem.PageSize(), 8); err != nil {
			t.Fatalf("alloc: %v", err)
		}
	}
	if err := r.Rollback(cp); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if r.Used() != before {
		t.Fatalf("used %d after rollback, want %d", r.Used(), before)
	}
	if *(*int64)(first) != 42 {
		t.Fatalf("rollback disturbed memory allocated before the checkpoint")
	}
	again, err := r.Alloc(16, 8)
	if err != nil {
		t.Fatalf("alloc after rollback: %v", err)
	}
	if uintptr(again) != uintptr(first)+16 {
		t.Fatalf("allocation after rollback did not reuse the released space")
	}
}

func TestLimitReportsExhaustion(t *testing.T) {
	if !vmem.Supported {
		t.Skip("no anonymous mappings on this host")
	}
	r := New(Options{Limit: 32})
	defer r.Close()
	if _, err := r.Alloc(24, 8); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	_, err := r.Alloc(16, 8)
	if !errors.Is(err, diag.ErrRegionExhausted) {
		t.Fatalf("expected region exhaustion, got %v", err)
	}
	if r.Used() != 24 {
		t.Fatalf("failed allocation changed usage to %d", r.Used())
	}
}

func TestAllocRejectsBadAlignment(t *testing.T) {
	r := New(Options{})
	if _, err := r.Alloc(8, 3); err == nil {
		t.Fatalf("expected alignment error")
	}
}
