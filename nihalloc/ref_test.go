package nihalloc_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/SiwenZhang/libnih/rawheap"
)

func TestHasParent(t *testing.T) {
	a, heap := newTestAllocator()

	objA := a.Alloc(nil, 8)
	objB := a.Alloc(nil, 8)
	objC := a.Alloc(objA, 8)

	require.False(t, a.HasParent(objA, nil))
	require.True(t, a.HasParent(objC, nil))
	require.True(t, a.HasParent(objC, objA))
	require.False(t, a.HasParent(objC, objB))

	a.Free(objA)
	a.Free(objB)
	require.Zero(t, heap.BlockCount())
}

func TestRefUnrefRoundTrip(t *testing.T) {
	a, heap := newTestAllocator()

	keeper := a.Alloc(nil, 8)
	obj := a.Alloc(keeper, 8)
	other := a.Alloc(nil, 8)

	blocks := heap.BlockCount()

	a.Ref(obj, other)
	require.True(t, a.HasParent(obj, other))

	a.Unref(obj, other)
	require.False(t, a.HasParent(obj, other))
	require.True(t, a.HasParent(obj, keeper))
	require.Equal(t, blocks, heap.BlockCount())

	a.Free(keeper)
	a.Free(other)
	require.Zero(t, heap.BlockCount())
}

func TestDuplicateReferencesAccumulate(t *testing.T) {
	a, heap := newTestAllocator()

	objA := a.Alloc(nil, 8)
	objB := a.Alloc(objA, 8)

	// Two more edges between the same pair.
	a.Ref(objB, objA)
	a.Ref(objB, objA)

	calls := 0
	a.SetDestructor(objB, func(p unsafe.Pointer) int {
		calls++
		return 0
	})

	// Each Unref removes exactly one edge.
	a.Unref(objB, objA)
	require.Zero(t, calls)
	require.True(t, a.HasParent(objB, objA))

	a.Unref(objB, objA)
	require.Zero(t, calls)
	require.True(t, a.HasParent(objB, objA))

	a.Unref(objB, objA)
	require.Equal(t, 1, calls)

	a.Free(objA)
	require.Zero(t, heap.BlockCount())
}

func TestUnrefMissingReferenceTrips(t *testing.T) {
	a, _ := newTestAllocator()

	objA := a.Alloc(nil, 8)
	objB := a.Alloc(nil, 8)

	require.Panics(t, func() { a.Unref(objA, objB) })
}

func TestRefNilHandlesTrip(t *testing.T) {
	a, _ := newTestAllocator()

	obj := a.Alloc(nil, 8)

	require.Panics(t, func() { a.Ref(nil, obj) })
	require.Panics(t, func() { a.Ref(obj, nil) })
	require.Panics(t, func() { a.Unref(nil, obj) })
	require.Panics(t, func() { a.Unref(obj, nil) })
}

func TestRefAbortsWhenReferenceNodeAllocationFails(t *testing.T) {
	a, heap := newTestAllocator()

	objA := a.Alloc(nil, 8)
	objB := a.Alloc(nil, 8)

	heap.SetHooks(rawheap.Hooks{
		Malloc: func(size int) unsafe.Pointer {
			return nil
		},
	})

	// There is no failure channel on Ref; exhaustion aborts.
	require.Panics(t, func() { a.Ref(objA, objB) })

	heap.SetHooks(rawheap.Hooks{})
	a.Free(objA)
	a.Free(objB)
	require.Zero(t, heap.BlockCount())
}

func TestSetDestructorRoundTrip(t *testing.T) {
	a, heap := newTestAllocator()

	obj := a.Alloc(nil, 8)

	calls := 0
	a.SetDestructor(obj, func(p unsafe.Pointer) int {
		calls++
		return 1
	})
	a.SetDestructor(obj, nil)

	require.Equal(t, 0, a.Free(obj))
	require.Zero(t, calls)
	require.Zero(t, heap.BlockCount())
}

func TestSetDestructorReplaces(t *testing.T) {
	a, heap := newTestAllocator()

	obj := a.Alloc(nil, 8)

	a.SetDestructor(obj, func(p unsafe.Pointer) int {
		t.Fatal("replaced destructor ran")
		return 0
	})
	a.SetDestructor(obj, func(p unsafe.Pointer) int {
		return 5
	})

	require.Equal(t, 5, a.Free(obj))
	require.Zero(t, heap.BlockCount())
}
