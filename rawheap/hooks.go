package rawheap

import "unsafe"

// Hooks are the three functions a Heap routes every heap interaction
// through. The defaults delegate to the Heap's own Sys layer; tests replace
// individual fields to inject allocation failures.
//
// A hook that returns memory must obtain it from the same Heap's Sys layer
// (SysAlloc or SysRealloc), since only Sys-produced blocks are registered
// with the Heap and kept alive for it. Returning nil signals exhaustion.
//
// Hooks must not be changed while blocks are live.
type Hooks struct {
	Malloc  func(size int) unsafe.Pointer
	Realloc func(p unsafe.Pointer, size int) unsafe.Pointer
	Free    func(p unsafe.Pointer)
}

// SetHooks installs replacement hooks on the heap. Nil fields retain the
// Sys-layer default, so a test overriding Realloc alone can leave the other
// two untouched.
func (h *Heap) SetHooks(hooks Hooks) {
	if hooks.Malloc == nil {
		hooks.Malloc = h.SysAlloc
	}
	if hooks.Realloc == nil {
		hooks.Realloc = h.SysRealloc
	}
	if hooks.Free == nil {
		hooks.Free = h.SysFree
	}
	h.hooks = hooks
}
