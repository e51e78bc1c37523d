package engine

import (
	"encoding/binary"
	"fmt"

	"jitcc/internal/vmem"
)

// Stack is the native stack generated code runs on. The lowest page is a
// guard so overflow faults instead of corrupting memory.
type Stack struct {
	mem   *vmem.Mapping
	guard int
}

func newStack(size int) (*Stack, error) {
	guard := vmem.PageSize()
	mem, err := vmem.Alloc(vmem.RoundUp(size) + guard)
	if err != nil {
		return nil, fmt.Errorf("native stack: %w", err)
	}
	if err := mem.Guard(0, guard); err != nil {
		_ = mem.Free()
		return nil, fmt.Errorf("native stack: %w", err)
	}
	return &Stack{mem: mem, guard: guard}, nil
}

// Top is the 16-byte aligned initial stack pointer.
func (s *Stack) Top() uintptr {
	return (s.mem.Addr() + uintptr(s.mem.Len())) &^ 15
}

// Size is the usable size without the guard page.
func (s *Stack) Size() int {
	return s.mem.Len() - s.guard
}

func (s *Stack) free() error {
	return s.mem.Free()
}

// heapHeader is the control block {cur, limit} at the start of the heap.
const heapHeader = 16

// Heap is the bump arena behind inline allocation. Generated code reads
// and advances the control block directly.
type Heap struct {
	mem *vmem.Mapping
}

func newHeap(size int) (*Heap, error) {
	mem, err := vmem.Alloc(size + heapHeader)
	if err != nil {
		return nil, fmt.Errorf("runtime heap: %w", err)
	}
	h := &Heap{mem: mem}
	h.Reset()
	return h, nil
}

// Control is the address of the control block.
func (h *Heap) Control() uintptr {
	return h.mem.Addr()
}

// Reset discards every allocation.
func (h *Heap) Reset() {
	b := h.mem.Bytes()
	base := uint64(h.mem.Addr())
	binary.LittleEndian.PutUint64(b[0:], base+heapHeader)
	binary.LittleEndian.PutUint64(b[8:], base+uint64(len(b)))
	clear(b[heapHeader:])
}

// Used reports the bytes handed out since the last Reset.
func (h *Heap) Used() int64 {
	cur := binary.LittleEndian.Uint64(h.mem.Bytes())
	return int64(cur - uint64(h.mem.Addr()) - heapHeader)
}

// Cap reports the heap capacity.
func (h *Heap) Cap() int64 {
	return int64(h.mem.Len() - heapHeader)
}

func (h *Heap) free() error {
	return h.mem.Free()
}
