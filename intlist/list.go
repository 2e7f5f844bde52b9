// Package intlist implements an intrusive circular doubly-linked list.
//
// A Node carries no payload of its own: it is embedded in the structure it
// links, and the containing structure is recovered from the node address with
// Owner. Because a Node holds only its own prev/next pointers, the list works
// on structures resident in raw memory obtained from rawheap, where the
// garbage collector cannot see the links.
package intlist

import "unsafe"

// Node is one entry in a circular doubly-linked list. A list head is just a
// Node that is not embedded in an element; an initialized head with no
// elements points at itself in both directions.
//
// The zero Node is not valid; call Init before use.
type Node struct {
	prev *Node
	next *Node
}

// Init points the node at itself, making it an empty list (or a detached
// entry, which is the same thing).
func (n *Node) Init() {
	n.prev = n
	n.next = n
}

// Empty returns true if n is the only entry in its ring.
func (n *Node) Empty() bool {
	return n.next == n
}

// Next returns the following entry in the ring. Called on a list head, it
// returns the first element.
func (n *Node) Next() *Node {
	return n.next
}

// Prev returns the preceding entry in the ring. Called on a list head, it
// returns the last element.
func (n *Node) Prev() *Node {
	return n.prev
}

// cut removes n from its current ring. Only n's own prev/next pointers are
// read; the neighbors are written through, never read back. A node whose
// neighbors hold a stale address for it (because the memory holding n moved)
// can therefore still be cut, as long as n's own pointers name live nodes.
func (n *Node) cut() {
	n.prev.next = n.next
	n.next.prev = n.prev
}

// Add splices entry into the ring immediately before head, removing it from
// any ring it currently occupies. When head is a list head this appends entry
// at the tail.
//
// Add inherits cut's relocation property: re-adding a node at its old
// position repairs the ring around it after the node's memory has moved,
// which is what rawheap-backed reallocation relies on.
func Add(entry, head *Node) {
	entry.cut()

	entry.prev = head.prev
	head.prev.next = entry
	entry.next = head
	head.prev = entry
}

// AddAfter splices entry into the ring immediately after head, removing it
// from any ring it currently occupies. When head is a list head this inserts
// entry at the front.
func AddAfter(entry, head *Node) {
	entry.cut()

	entry.next = head.next
	head.next.prev = entry
	entry.prev = head
	head.next = entry
}

// Destroy removes n from its ring and leaves it self-looped. Destroying a
// detached node is a no-op.
func (n *Node) Destroy() {
	n.cut()
	n.Init()
}

// ForEach visits every element of the list headed by head, in insertion
// order. fn must not unlink the visited node; use ForEachSafe for that.
func ForEach(head *Node, fn func(*Node)) {
	for iter := head.next; iter != head; iter = iter.next {
		fn(iter)
	}
}

// ForEachSafe visits every element of the list headed by head, in insertion
// order, capturing the successor before each visit so that fn may Destroy the
// node it is handed.
func ForEachSafe(head *Node, fn func(*Node)) {
	for iter := head.next; iter != head; {
		next := iter.next
		fn(iter)
		iter = next
	}
}

// Owner recovers the address of the structure containing node, where offset
// is the offset of the Node field within that structure, as reported by
// unsafe.Offsetof.
func Owner(node *Node, offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(node)) - offset)
}
