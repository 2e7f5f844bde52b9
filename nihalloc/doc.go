// Package nihalloc implements a multi-reference hierarchical allocator.
//
// Every allocation is a node in a directed graph of parent/child references.
// An object stays alive while at least one parent reference to it exists;
// dropping the last one finalizes the object (its destructor runs) and
// releases its own child references, cascading finalization to any child
// that thereby loses its last parent. Objects may be roots (no parents), may
// be shared between several parents, and may sit on reference cycles, which
// Free collects by severing the dying object's parent references before
// anything else.
//
// The public identity of an object is its payload address, an
// unsafe.Pointer; the bookkeeping header lives at a fixed offset in front of
// it, inside the same rawheap block. Handles must never be passed to an
// Allocator other than the one that produced them.
//
// Allocators are single-threaded by contract. Calls on the same graph from
// multiple goroutines must be serialized externally.
package nihalloc
