package nihalloc

import (
	"unsafe"

	"github.com/SiwenZhang/libnih/intlist"
)

// reference is one directed edge of the graph, shared by exactly one parent
// context and one child context. It sits in the parent's children list
// through childrenEntry and in the child's parents list through
// parentsEntry. The endpoint pointers are immutable for the reference's
// lifetime except for the realloc back-pointer fixup.
//
// A reference occupies its own rawheap block, independent of either
// endpoint's block, so reallocating an endpoint never moves it.
type reference struct {
	childrenEntry intlist.Node
	parentsEntry  intlist.Node
	parent        *context
	child         *context
}

const refSize = int(unsafe.Sizeof(reference{}))

func refFromParentsEntry(n *intlist.Node) *reference {
	return (*reference)(intlist.Owner(n, unsafe.Offsetof(reference{}.parentsEntry)))
}

func refFromChildrenEntry(n *intlist.Node) *reference {
	return (*reference)(intlist.Owner(n, unsafe.Offsetof(reference{}.childrenEntry)))
}

// newRef creates a reference from parent to child and links it at the tail
// of both endpoint lists. Duplicate edges between the same pair accumulate.
//
// The public surface has no way to report reference exhaustion, so a malloc
// hook failure here aborts rather than leaving a half-linked graph.
func (a *Allocator) newRef(parent, child *context) *reference {
	p := a.heap.Alloc(refSize)
	assertf(p != nil, "out of memory allocating a reference node")

	ref := (*reference)(p)
	ref.childrenEntry.Init()
	ref.parentsEntry.Init()
	ref.parent = parent
	ref.child = child

	intlist.Add(&ref.childrenEntry, &parent.children)
	intlist.Add(&ref.parentsEntry, &child.parents)

	return ref
}

// freeRef unlinks ref from both endpoint lists and releases it. With recurse
// set, a child left with no parents is torn down; severing a dying object's
// own parent references passes false, since parents are not owned by the
// child.
func (a *Allocator) freeRef(ref *reference, recurse bool) {
	ref.childrenEntry.Destroy()
	ref.parentsEntry.Destroy()

	if recurse && ref.child.parents.Empty() {
		a.contextFree(ref.child)
	}

	a.heap.Free(unsafe.Pointer(ref))
}

// forEachParentsSafe visits ctx's parent references; fn may free the one it
// is handed.
func forEachParentsSafe(ctx *context, fn func(*reference)) {
	intlist.ForEachSafe(&ctx.parents, func(n *intlist.Node) {
		fn(refFromParentsEntry(n))
	})
}

// forEachChildrenSafe visits ctx's child references; fn may free the one it
// is handed.
func forEachChildrenSafe(ctx *context, fn func(*reference)) {
	intlist.ForEachSafe(&ctx.children, func(n *intlist.Node) {
		fn(refFromChildrenEntry(n))
	})
}

// lookupRef scans child's parents list for the first reference held by
// parent, or nil.
func (a *Allocator) lookupRef(parent, child *context) *reference {
	for n := child.parents.Next(); n != &child.parents; n = n.Next() {
		ref := refFromParentsEntry(n)
		if ref.parent == parent {
			return ref
		}
	}
	return nil
}

// Ref adds a reference to the object at ptr from parent, on top of whatever
// references already exist; each one must be dropped individually with
// Unref. The object will only be freed automatically once the last parent
// unreferences it.
func (a *Allocator) Ref(ptr, parent unsafe.Pointer) {
	a.logger.Debug("Allocator::Ref")
	assertf(parent != nil, "nil parent handle")

	a.newRef(a.ctxOf(parent), a.ctxOf(ptr))
}

// Unref removes one reference to the object at ptr from parent. If that was
// the last parent reference, the object is torn down. A reference from
// parent must exist.
func (a *Allocator) Unref(ptr, parent unsafe.Pointer) {
	a.logger.Debug("Allocator::Unref")
	assertf(parent != nil, "nil parent handle")

	ref := a.lookupRef(a.ctxOf(parent), a.ctxOf(ptr))
	assertf(ref != nil, "no reference from %#x to %#x", uintptr(parent), uintptr(ptr))

	a.freeRef(ref, true)
}

// HasParent reports whether a reference to the object at ptr from parent
// exists. A nil parent matches any reference, so HasParent(ptr, nil) is the
// root test.
func (a *Allocator) HasParent(ptr, parent unsafe.Pointer) bool {
	ctx := a.ctxOf(ptr)

	if parent != nil {
		return a.lookupRef(a.ctxOf(parent), ctx) != nil
	}
	return !ctx.parents.Empty()
}
