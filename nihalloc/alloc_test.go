package nihalloc_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/SiwenZhang/libnih/nihalloc"
	"github.com/SiwenZhang/libnih/rawheap"
)

func newTestAllocator() (*nihalloc.Allocator, *rawheap.Heap) {
	heap := rawheap.New()
	return nihalloc.New(nihalloc.Options{Heap: heap}), heap
}

func payload(p unsafe.Pointer, size int) []byte {
	return unsafe.Slice((*byte)(p), size)
}

func TestSoloLifetime(t *testing.T) {
	a, heap := newTestAllocator()

	obj := a.Alloc(nil, 32)
	require.NotNil(t, obj)
	require.GreaterOrEqual(t, a.Size(obj), 32)
	require.False(t, a.HasParent(obj, nil))

	calls := 0
	a.SetDestructor(obj, func(p unsafe.Pointer) int {
		calls++
		require.Equal(t, obj, p)
		return 42
	})

	require.Equal(t, 42, a.Free(obj))
	require.Equal(t, 1, calls)
	require.Zero(t, heap.BlockCount())
}

func TestZeroSizeAllocation(t *testing.T) {
	a, heap := newTestAllocator()

	obj := a.Alloc(nil, 0)
	require.NotNil(t, obj)
	require.GreaterOrEqual(t, a.Size(obj), 0)
	require.False(t, a.HasParent(obj, nil))

	require.Equal(t, 0, a.Free(obj))
	require.Zero(t, heap.BlockCount())
}

func TestPayloadIsUsableAndStable(t *testing.T) {
	a, heap := newTestAllocator()

	obj := a.Alloc(nil, 64)
	copy(payload(obj, 64), "hierarchy")

	other := a.Alloc(obj, 16)
	copy(payload(other, 16), "child")

	require.Equal(t, "hierarchy", string(payload(obj, 9)))
	require.Equal(t, "child", string(payload(other, 5)))

	a.Free(obj)
	require.Zero(t, heap.BlockCount())
}

func TestAllocFailurePropagates(t *testing.T) {
	a, heap := newTestAllocator()

	parent := a.Alloc(nil, 8)

	fail := false
	heap.SetHooks(rawheap.Hooks{
		Malloc: func(size int) unsafe.Pointer {
			if fail {
				return nil
			}
			return heap.SysAlloc(size)
		},
	})

	fail = true
	blocks := heap.BlockCount()
	require.Nil(t, a.Alloc(parent, 1024))

	// No partial state: no block, no edge.
	require.Equal(t, blocks, heap.BlockCount())
	fail = false
	require.Equal(t, 0, a.Free(parent))
	require.Zero(t, heap.BlockCount())
}

func TestSizeReportsUsableCapacity(t *testing.T) {
	a, _ := newTestAllocator()

	obj := a.Alloc(nil, 33)
	size := a.Size(obj)
	require.GreaterOrEqual(t, size, 33)

	// The capacity is real: every reported byte is writable.
	buf := payload(obj, size)
	for i := range buf {
		buf[i] = 0xA5
	}

	a.Free(obj)
}

func TestNilHandleTrips(t *testing.T) {
	a, _ := newTestAllocator()

	require.Panics(t, func() { a.Free(nil) })
	require.Panics(t, func() { a.Discard(nil) })
	require.Panics(t, func() { a.Size(nil) })
	require.Panics(t, func() { a.HasParent(nil, nil) })
	require.Panics(t, func() { a.SetDestructor(nil, nil) })
}

func TestFreedHandleTrips(t *testing.T) {
	a, _ := newTestAllocator()

	obj := a.Alloc(nil, 16)
	a.Free(obj)

	require.Panics(t, func() { a.Free(obj) })
}

func TestForeignHandleTrips(t *testing.T) {
	a, _ := newTestAllocator()
	b, _ := newTestAllocator()

	obj := b.Alloc(nil, 16)
	require.Panics(t, func() { a.Free(obj) })
	b.Free(obj)
}
