// Package view defines the host tree the runtime renders into.
//
// The runtime never inspects host nodes; it only hands them back to the Host
// that created them.
package view

// Node is an opaque handle to a host node.
type Node any

// Event is an event delivered to a listener.
type Event struct {
	// Type is the event name, such as "click" or "submit".
	Type   string
	Target Node
	// Form holds the named field values of a submitted form.
	Form map[string]any
}

// Host is a mutable tree of elements and text nodes.
type Host interface {
	CreateElement(tag string) Node
	CreateText(text string) Node
	SetText(n Node, text string)

	SetAttr(n Node, name, value string)
	RemoveAttr(n Node, name string)
	// SetProp sets a boolean property such as "disabled" or "readOnly".
	SetProp(n Node, name string, on bool)
	AddClass(n Node, class string)
	RemoveClass(n Node, class string)
	// SetStyle sets one style property. An empty value removes it.
	SetStyle(n Node, name, value string)

	// InsertBefore inserts n as a child of parent before ref, or last if ref
	// is nil. If n is already in the tree, it is moved.
	InsertBefore(parent, n, ref Node)
	// Remove detaches n from its parent. It is a no-op for detached nodes.
	Remove(n Node)

	// Listen registers fn to be called with events of the given type
	// dispatched to n or its descendants. Calling cancel unregisters it.
	Listen(n Node, event string, fn func(Event)) (cancel func())
}
