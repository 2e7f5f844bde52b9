package nihalloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/SiwenZhang/libnih/intlist"
)

// ValidateObject performs consistency checks on the object at ptr: both of
// its reference rings must be intact, every parent reference must point back
// at the object as its child and be present in its parent's children list,
// and symmetrically for child references. When the allocator is functioning
// correctly it should not be possible for this method to return an error.
func (a *Allocator) ValidateObject(ptr unsafe.Pointer) error {
	return a.validateContext(a.ctxOf(ptr))
}

func (a *Allocator) validateContext(ctx *context) error {
	if err := validateRing(&ctx.parents); err != nil {
		return errors.WithMessage(err, "parents list")
	}
	if err := validateRing(&ctx.children); err != nil {
		return errors.WithMessage(err, "children list")
	}

	var err error
	intlist.ForEach(&ctx.parents, func(n *intlist.Node) {
		if err != nil {
			return
		}
		ref := refFromParentsEntry(n)
		if ref.child != ctx {
			err = errors.Errorf("parent reference at %#x does not name this object as its child", uintptr(unsafe.Pointer(ref)))
			return
		}
		if !ringContains(&ref.parent.children, &ref.childrenEntry) {
			err = errors.Errorf("parent reference at %#x is missing from its parent's children list", uintptr(unsafe.Pointer(ref)))
		}
	})
	if err != nil {
		return err
	}

	intlist.ForEach(&ctx.children, func(n *intlist.Node) {
		if err != nil {
			return
		}
		ref := refFromChildrenEntry(n)
		if ref.parent != ctx {
			err = errors.Errorf("child reference at %#x does not name this object as its parent", uintptr(unsafe.Pointer(ref)))
			return
		}
		if !ringContains(&ref.child.parents, &ref.parentsEntry) {
			err = errors.Errorf("child reference at %#x is missing from its child's parents list", uintptr(unsafe.Pointer(ref)))
		}
	})
	return err
}

// validateRing checks that every neighbor link in the ring headed by head
// has a matching reverse link.
func validateRing(head *intlist.Node) error {
	n := head
	for {
		if n.Next().Prev() != n {
			return errors.Errorf("node at %#x lists a next node whose reverse reference is broken", uintptr(unsafe.Pointer(n)))
		}
		n = n.Next()
		if n == head {
			return nil
		}
	}
}

func ringContains(head, target *intlist.Node) bool {
	found := false
	intlist.ForEach(head, func(n *intlist.Node) {
		if n == target {
			found = true
		}
	})
	return found
}
