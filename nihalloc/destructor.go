package nihalloc

import "unsafe"

// Destructor is a finalizer bound to an object. It receives the object's
// payload handle and is invoked at most once, during teardown, after every
// parent reference has been discarded and while the children list is still
// intact: there is no need for a destructor to free children, that is
// automatic.
//
// The return value is informational only and never aborts teardown. It is
// forwarded as the return value of Free and Discard; an object dying through
// Unref's cascade has it silently dropped, so destructors should not rely on
// it being seen.
//
// A destructor may allocate, may attach or detach references, and may
// dispose of any object other than the one it is being run for.
type Destructor func(ptr unsafe.Pointer) int

// SetDestructor binds d to the object at ptr, replacing any previous
// destructor. A nil d clears it.
func (a *Allocator) SetDestructor(ptr unsafe.Pointer, d Destructor) {
	a.logger.Debug("Allocator::SetDestructor")

	ctx := a.ctxOf(ptr)

	if ctx.dtor != 0 {
		a.dtors.Delete(ctx.dtor)
		ctx.dtor = 0
	}

	if d != nil {
		a.nextDtor++
		ctx.dtor = a.nextDtor
		a.dtors.Put(ctx.dtor, d)
	}
}
