package nihalloc

import (
	"unsafe"

	"github.com/SiwenZhang/libnih/intlist"
)

// context is the bookkeeping header placed in front of every allocation. It
// lives at the base of the rawheap block whose tail is the user payload, so
// the two travel together through realloc as one unit.
//
// parents holds the reference nodes in which this context is the child side;
// children those in which it is the parent side. Both are in insertion
// order. dtor is an id into the owning Allocator's destructor registry, or 0
// when no destructor is set; func values cannot be stored in raw block
// memory, where the garbage collector would not see them.
type context struct {
	parents  intlist.Node
	children intlist.Node
	dtor     uint64
}

const ctxAlign = 16

// payloadOffset is the distance from a context's base address to its
// payload, not counting the debug margin. Rounded up so the payload keeps
// the block's 16-byte alignment.
const payloadOffset = (int(unsafe.Sizeof(context{})) + ctxAlign - 1) &^ (ctxAlign - 1)

// headerSize is the full distance from block base to payload.
const headerSize = payloadOffset + DebugMargin

// ctxOf maps a payload handle to its context, trapping nil handles and
// handles that do not name a live block of this allocator's heap (foreign,
// or already freed).
func (a *Allocator) ctxOf(ptr unsafe.Pointer) *context {
	assertf(ptr != nil, "nil object handle")

	base := unsafe.Add(ptr, -headerSize)
	assertf(a.heap.Owns(base), "handle %#x does not name a live object of this allocator", uintptr(ptr))
	return (*context)(base)
}

// payloadOf maps a context back to the handle its callers hold.
func payloadOf(ctx *context) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(ctx), headerSize)
}
