package nihalloc

import (
	"fmt"
	"unsafe"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/SiwenZhang/libnih/intlist"
)

// WriteGraph writes a JSON description of the object at ptr and everything
// reachable through its child references: address, usable payload capacity,
// number of parent references, and children in list order. An object reached
// again through a second edge or a cycle is emitted as a bare back-reference
// instead of being expanded twice.
//
// Intended for diagnostics; the output shape is not a stable interface.
func (a *Allocator) WriteGraph(ptr unsafe.Pointer, writer *jwriter.Writer) {
	a.logger.Debug("Allocator::WriteGraph")

	visited := make(map[*context]struct{})

	obj := writer.Object()
	a.writeNode(a.ctxOf(ptr), &obj, visited)
	obj.End()
}

func (a *Allocator) writeNode(ctx *context, obj *jwriter.ObjectState, visited map[*context]struct{}) {
	visited[ctx] = struct{}{}

	obj.Name("Address").String(addrString(ctx))
	obj.Name("UsableSize").Int(a.heap.UsableSize(unsafe.Pointer(ctx)) - headerSize)

	parentCount := 0
	intlist.ForEach(&ctx.parents, func(*intlist.Node) {
		parentCount++
	})
	obj.Name("Parents").Int(parentCount)

	children := obj.Name("Children").Array()
	intlist.ForEach(&ctx.children, func(n *intlist.Node) {
		ref := refFromChildrenEntry(n)

		child := children.Object()
		if _, seen := visited[ref.child]; seen {
			child.Name("Ref").String(addrString(ref.child))
		} else {
			a.writeNode(ref.child, &child, visited)
		}
		child.End()
	})
	children.End()
}

func addrString(ctx *context) string {
	return fmt.Sprintf("%#x", uintptr(payloadOf(ctx)))
}
