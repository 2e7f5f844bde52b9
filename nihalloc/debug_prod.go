//go:build !debug_nihalloc

package nihalloc

import "unsafe"

// DebugMargin is the number of canary bytes placed between the header and
// the payload of every object. It is 0 unless the debug_nihalloc build tag
// is present.
const DebugMargin int = 0

// writeMagicValue writes an easy-to-identify marker across DebugMargin bytes
// at the provided pointer and offset. No-op unless the debug_nihalloc build
// tag is present.
func writeMagicValue(data unsafe.Pointer, offset int) {
}

// validateMagicValue verifies that the marker written by writeMagicValue is
// still present. Always true unless the debug_nihalloc build tag is present.
func validateMagicValue(data unsafe.Pointer, offset int) bool {
	return true
}

// debugValidate runs the context consistency checks and panics on failure.
// No-op unless the debug_nihalloc build tag is present.
func (a *Allocator) debugValidate(ctx *context) {
}
