package nihalloc

import "unsafe"

// Free unconditionally tears down the object at ptr, whether or not parent
// references to it remain. Callers who are unsure whether references exist
// should use Discard; callers who hold one particular reference should drop
// it with Unref.
//
// All parent references are severed first, then the destructor runs, then
// each child is unreferenced, cascading teardown into any child that loses
// its last parent.
//
// Free returns the destructor's return value, or 0 if none is set.
func (a *Allocator) Free(ptr unsafe.Pointer) int {
	a.logger.Debug("Allocator::Free")

	return a.contextFree(a.ctxOf(ptr))
}

// Discard tears down the object at ptr only if nothing holds a parent
// reference to it; otherwise it does nothing and returns 0.
//
// The usual pattern is allocating an object without a parent, passing it to
// functions that may take a reference to it, and then discarding it: the
// object survives exactly when somebody claimed it.
//
// Discard returns the destructor's return value, or 0.
func (a *Allocator) Discard(ptr unsafe.Pointer) int {
	a.logger.Debug("Allocator::Discard")

	ctx := a.ctxOf(ptr)
	if ctx.parents.Empty() {
		return a.contextFree(ctx)
	}
	return 0
}

// DiscardLocal discards the object a local handle variable points at, if it
// points at one. It exists for the defer idiom:
//
//	obj := a.Alloc(nil, size)
//	defer a.DiscardLocal(&obj)
//
// which releases a locally-allocated root on scope exit unless a callee took
// a parent reference to it during the scope.
func (a *Allocator) DiscardLocal(ptr *unsafe.Pointer) {
	if ptr != nil && *ptr != nil {
		a.Discard(*ptr)
	}
}

// contextFree is the teardown shared by Free, Discard and Unref.
//
// The order is load-bearing. Parents are severed first and without
// recursion: the destructor must see an object nobody references anymore,
// parents are not owned by the dying object, and cutting the inbound edges
// here is what makes reference cycles through ctx collectable. The
// destructor then runs against an intact children list. Finally each child
// reference is dropped with recursion, finalizing children that lost their
// last parent. Child iteration tolerates destructors detaching siblings:
// until the loop reaches a sibling, ctx itself still holds an edge to it, so
// it cannot be freed out from under the iteration.
func (a *Allocator) contextFree(ctx *context) int {
	a.debugValidate(ctx)

	ret := 0

	forEachParentsSafe(ctx, func(ref *reference) {
		a.freeRef(ref, false)
	})

	if ctx.dtor != 0 {
		if d, ok := a.dtors.Get(ctx.dtor); ok {
			ret = d(payloadOf(ctx))
		}
		a.dtors.Delete(ctx.dtor)
		ctx.dtor = 0
	}

	forEachChildrenSafe(ctx, func(ref *reference) {
		a.freeRef(ref, true)
	})

	assertf(validateMagicValue(unsafe.Pointer(ctx), payloadOffset),
		"header canary of %#x overwritten", uintptr(unsafe.Pointer(ctx)))

	a.heap.Free(unsafe.Pointer(ctx))
	return ret
}
