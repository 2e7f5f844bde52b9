// Package rawheap hands out raw, address-stable blocks of memory on behalf
// of allocators that lay their own structures out inside them.
//
// Each block is an independent allocation carved from a Go byte slice. The
// backing slice is pinned in a registry keyed by the block's base address, so
// pointers written into raw block memory (which the garbage collector does
// not scan) always target memory the registry keeps live. A block's address
// never changes for its lifetime; Realloc either proves the current block is
// already big enough or produces a fresh block and retires the old one.
//
// All traffic goes through the heap's Hooks, which default to the Sys layer
// and exist so tests can substitute fault-injecting versions.
package rawheap

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	perrors "github.com/pkg/errors"
)

// BlockAlign is the alignment of every block base address, and the quantum
// usable sizes are rounded to.
const BlockAlign = 16

type block struct {
	buf    []byte
	usable int
}

// Heap is a raw block allocator. Heaps are independent: a block must be
// freed, resized and sized by the heap that produced it. A Heap is not safe
// for concurrent use.
type Heap struct {
	hooks  Hooks
	blocks *swiss.Map[uintptr, block]
}

// New creates an empty Heap with the Sys-layer hooks installed.
func New() *Heap {
	h := &Heap{
		blocks: swiss.NewMap[uintptr, block](42),
	}
	h.hooks = Hooks{
		Malloc:  h.SysAlloc,
		Realloc: h.SysRealloc,
		Free:    h.SysFree,
	}
	return h
}

// Alloc returns a new block with usable capacity of at least size bytes, or
// nil if the malloc hook reports exhaustion. Size zero is legal.
func (h *Heap) Alloc(size int) unsafe.Pointer {
	return h.hooks.Malloc(size)
}

// Realloc resizes the block at p to hold at least size bytes, returning its
// possibly-changed address. A nil p behaves as Alloc. On hook failure it
// returns nil and the original block is untouched and still live. Contents
// up to the smaller of the old and new capacities are preserved.
func (h *Heap) Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	return h.hooks.Realloc(p, size)
}

// Free releases the block at p. Freeing nil is a no-op.
func (h *Heap) Free(p unsafe.Pointer) {
	h.hooks.Free(p)
}

// SysAlloc is the default malloc hook.
func (h *Heap) SysAlloc(size int) unsafe.Pointer {
	assertf(size >= 0, "negative block size %d", size)

	usable := sizeClass(size)

	// Over-allocate by one quantum so the base can be aligned by hand;
	// slices only promise the natural alignment of their element type.
	buf := make([]byte, usable+BlockAlign)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := uintptr(AlignUp(int(addr), BlockAlign)) - addr
	base := unsafe.Add(unsafe.Pointer(&buf[0]), pad)

	h.blocks.Put(uintptr(base), block{buf: buf, usable: usable})
	return base
}

// SysRealloc is the default realloc hook.
func (h *Heap) SysRealloc(p unsafe.Pointer, size int) unsafe.Pointer {
	if p == nil {
		return h.SysAlloc(size)
	}
	assertf(size >= 0, "negative block size %d", size)

	addr := uintptr(p)
	blk, ok := h.blocks.Get(addr)
	assertf(ok, "realloc of %#x, which this heap does not own", addr)

	if sizeClass(size) <= blk.usable {
		return p
	}

	np := h.SysAlloc(size)
	copy(unsafe.Slice((*byte)(np), blk.usable), unsafe.Slice((*byte)(p), blk.usable))
	h.blocks.Delete(addr)
	return np
}

// SysFree is the default free hook.
func (h *Heap) SysFree(p unsafe.Pointer) {
	if p == nil {
		return
	}

	addr := uintptr(p)
	_, ok := h.blocks.Get(addr)
	assertf(ok, "free of %#x, which this heap does not own", addr)
	h.blocks.Delete(addr)
}

// UsableSize reports the capacity of the block at p, which may exceed the
// size it was requested with.
func (h *Heap) UsableSize(p unsafe.Pointer) int {
	assertf(p != nil, "usable-size query on a nil block")

	blk, ok := h.blocks.Get(uintptr(p))
	assertf(ok, "usable-size query on %#x, which this heap does not own", uintptr(p))
	return blk.usable
}

// Owns reports whether p is the base address of a live block of this heap.
func (h *Heap) Owns(p unsafe.Pointer) bool {
	_, ok := h.blocks.Get(uintptr(p))
	return ok
}

// BlockCount returns the number of live blocks. Tests use it as a leak
// check.
func (h *Heap) BlockCount() int {
	return h.blocks.Count()
}

// Validate performs internal consistency checks on the block registry.
func (h *Heap) Validate() error {
	var err error
	h.blocks.Iter(func(base uintptr, blk block) bool {
		bufBase := uintptr(unsafe.Pointer(&blk.buf[0]))
		if base < bufBase || base+uintptr(blk.usable) > bufBase+uintptr(len(blk.buf)) {
			err = perrors.Errorf("block at %#x lies outside its backing array", base)
			return true
		}
		if base%BlockAlign != 0 {
			err = perrors.Errorf("block at %#x is not %d-byte aligned", base, BlockAlign)
			return true
		}
		if blk.usable != sizeClass(blk.usable) {
			err = perrors.Errorf("block at %#x has usable size %d, which is not a size class", base, blk.usable)
			return true
		}
		return false
	})
	return err
}

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(cerrors.AssertionFailedf(format, args...))
	}
}
