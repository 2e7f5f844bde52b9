//go:build debug_nihalloc

package nihalloc

import "unsafe"

// DebugMargin is the number of canary bytes placed between the header and
// the payload of every object. It is 0 unless the debug_nihalloc build tag
// is present.
const DebugMargin int = 16

// corruptionDetectionMagicValue is the 4-byte pattern copied across the
// margin between header and payload.
const corruptionDetectionMagicValue uint32 = 0x7F84E666

// writeMagicValue writes an easy-to-identify marker across DebugMargin bytes
// at the provided pointer and offset.
func writeMagicValue(data unsafe.Pointer, offset int) {
	dest := unsafe.Add(data, offset)
	marginSize := DebugMargin / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < marginSize; i++ {
		*(*uint32)(dest) = corruptionDetectionMagicValue
		dest = unsafe.Add(dest, unsafe.Sizeof(uint32(0)))
	}
}

// validateMagicValue verifies that the marker written by writeMagicValue is
// still present. A false return means something wrote past the end of the
// header, or before the start of the payload.
func validateMagicValue(data unsafe.Pointer, offset int) bool {
	source := unsafe.Add(data, offset)
	marginSize := DebugMargin / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < marginSize; i++ {
		if *(*uint32)(source) != corruptionDetectionMagicValue {
			return false
		}
		source = unsafe.Add(source, unsafe.Sizeof(uint32(0)))
	}

	return true
}

// debugValidate runs the context consistency checks and panics on failure.
func (a *Allocator) debugValidate(ctx *context) {
	if err := a.validateContext(ctx); err != nil {
		panic(err)
	}
}
