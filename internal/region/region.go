// Package region implements the global data region: a bump arena over
// mapped chunks whose addresses never move, with checkpoint and rollback.
package region

import (
	"fmt"
	"unsafe"

	"fortio.org/safecast"

	"jitcc/internal/diag"
	"jitcc/internal/vmem"
)

// DefaultChunkSize is used when Options.ChunkSize is zero.
const DefaultChunkSize = 64 << 10

// Options configures a Region.
type Options struct {
	ChunkSize int
	// Limit caps the bytes handed out; zero means unlimited.
	Limit int64
}

// Checkpoint is an opaque high-water mark.
type Checkpoint struct {
	chunks int
	off    int
	used   int64
}

// Region hands out stable, zeroed memory.
type Region struct {
	opts   Options
	chunks []*vmem.Mapping
	off    int // fill of the last chunk
	used   int64
}

func New(opts Options) *Region {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Region{opts: opts}
}

// Alloc returns size bytes aligned to align. align must be a power of two.
func (r *Region) Alloc(size, align int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, fmt.Errorf("region: negative size %d", size)
	}
	if align <= 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return nil, fmt.Errorf("region: alignment %d is not a power of two", align)
	}
	if size == 0 {
		size = 1
	}

	start, fits := r.fit(size, align)
	need := int64(start-r.off) + int64(size)
	if !fits {
		// a fresh chunk starts aligned; the tail of the current one is wasted
		need = int64(len(r.tail())-r.off) + int64(size)
	}
	if r.opts.Limit > 0 && r.used+need > r.opts.Limit {
		return nil, diag.New(diag.RegionExhausted, "", "%d bytes requested, %d of %d in use", size, r.used, r.opts.Limit)
	}
	if !fits {
		m, err := vmem.Alloc(max(r.opts.ChunkSize, size+align))
		if err != nil {
			return nil, diag.Wrap(diag.RegionExhausted, "", err)
		}
		r.chunks = append(r.chunks, m)
		r.off = 0
		start = 0
	}
	mem := r.tail()[start : start+size]
	clear(mem)
	r.off = start + size
	r.used += need
	return unsafe.Pointer(&mem[0]), nil
}

// fit returns where an allocation would start in the current chunk.
func (r *Region) fit(size, align int) (int, bool) {
	tail := r.tail()
	if tail == nil {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&tail[0]))
	addr := (base + uintptr(r.off) + uintptr(align-1)) &^ uintptr(align-1)
	start, err := safecast.Conv[int](addr - base)
	if err != nil {
		return 0, false
	}
	return start, start+size <= len(tail)
}

func (r *Region) tail() []byte {
	if len(r.chunks) == 0 {
		return nil
	}
	return r.chunks[len(r.chunks)-1].Bytes()
}

// Checkpoint captures the current high-water mark.
func (r *Region) Checkpoint() Checkpoint {
	return Checkpoint{chunks: len(r.chunks), off: r.off, used: r.used}
}

// Rollback discards everything allocated after cp. Chunks mapped after cp
// are returned to the system.
func (r *Region) Rollback(cp Checkpoint) error {
	if cp.chunks > len(r.chunks) || cp.used > r.used {
		return fmt.Errorf("region: checkpoint is newer than the region")
	}
	var firstErr error
	for _, m := range r.chunks[cp.chunks:] {
		if err := m.Free(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	clear(r.chunks[cp.chunks:])
	r.chunks = r.chunks[:cp.chunks]
	r.off = cp.off
	r.used = cp.used
	return firstErr
}

// Used reports bytes handed out, including alignment padding.
func (r *Region) Used() int64 {
	return r.used
}

// Contains reports whether p points into the region.
func (r *Region) Contains(p uintptr) bool {
	for _, m := range r.chunks {
		if m.Contains(p) {
			return true
		}
	}
	return false
}

// Close unmaps every chunk.
func (r *Region) Close() error {
	return r.Rollback(Checkpoint{})
}
