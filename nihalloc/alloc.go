package nihalloc

import (
	"unsafe"

	"golang.org/x/exp/slog"

	"github.com/SiwenZhang/libnih/intlist"
)

// Alloc allocates an object with a payload of at least size bytes and
// returns its handle, or nil if the malloc hook reports exhaustion, in which
// case no state has changed.
//
// A non-nil parent installs one reference from the object at parent to the
// new object, so the new object lives until its last parent is dropped. With
// a nil parent the object is a root and must eventually be disposed of with
// Free, Discard or Unref.
//
// Size zero is legal; the object has a zero-byte payload but is otherwise a
// normal node.
func (a *Allocator) Alloc(parent unsafe.Pointer, size int) unsafe.Pointer {
	a.logger.Debug("Allocator::Alloc", slog.Int("Size", size))
	assertf(size >= 0, "negative payload size %d", size)

	p := a.heap.Alloc(headerSize + size)
	if p == nil {
		return nil
	}

	ctx := (*context)(p)
	ctx.parents.Init()
	ctx.children.Init()
	ctx.dtor = 0
	writeMagicValue(p, payloadOffset)

	if parent != nil {
		a.newRef(a.ctxOf(parent), ctx)
	}

	return payloadOf(ctx)
}

// Realloc adjusts the object at ptr to a payload of at least size bytes,
// which may be larger or smaller than before, and returns its
// possibly-changed handle. Payload contents up to the smaller of the two
// sizes, the destructor, and every reference in both directions are
// preserved, each reference keeping its position in its list.
//
// A nil ptr behaves as Alloc(parent, size); otherwise parent is ignored. On
// hook failure Realloc returns nil and the object is untouched, references
// and all.
func (a *Allocator) Realloc(ptr, parent unsafe.Pointer, size int) unsafe.Pointer {
	if ptr == nil {
		return a.Alloc(parent, size)
	}

	a.logger.Debug("Allocator::Realloc", slog.Int("Size", size))
	assertf(size >= 0, "negative payload size %d", size)

	ctx := a.ctxOf(ptr)

	// The block carries both list heads, and the nodes around them point
	// back into it, so moving it would strand the neighbors' pointers.
	// Stripping every reference off before the move and relinking after
	// would work, but doubles the edge traffic and has awkward failure
	// states. Instead, snapshot the first entry of each list: intlist.Add
	// cuts the entry it is given out of its ring writing only through that
	// entry's own pointers, so re-adding the moved head in front of the
	// snapshot rebuilds the ring without ever reading a stale pointer. An
	// empty list has no valid snapshot, and no stale neighbors either; a
	// fresh Init is all it needs.
	var firstParent, firstChild *intlist.Node
	if !ctx.parents.Empty() {
		firstParent = ctx.parents.Next()
	}
	if !ctx.children.Empty() {
		firstChild = ctx.children.Next()
	}

	// If the hook fails here, nothing has been mutated yet.
	p := a.heap.Realloc(unsafe.Pointer(ctx), headerSize+size)
	if p == nil {
		return nil
	}
	ctx = (*context)(p)

	if firstParent != nil {
		intlist.Add(&ctx.parents, firstParent)
	} else {
		ctx.parents.Init()
	}

	if firstChild != nil {
		intlist.Add(&ctx.children, firstChild)
	} else {
		ctx.children.Init()
	}

	// The rings are whole again; point the references at the new address.
	intlist.ForEach(&ctx.parents, func(n *intlist.Node) {
		refFromParentsEntry(n).child = ctx
	})
	intlist.ForEach(&ctx.children, func(n *intlist.Node) {
		refFromChildrenEntry(n).parent = ctx
	})

	writeMagicValue(p, payloadOffset)
	a.debugValidate(ctx)

	return payloadOf(ctx)
}

// Size reports the usable payload capacity of the object at ptr, which may
// exceed the size it was requested with.
func (a *Allocator) Size(ptr unsafe.Pointer) int {
	ctx := a.ctxOf(ptr)
	return a.heap.UsableSize(unsafe.Pointer(ctx)) - headerSize
}
