// Package scope implements the tree of binding contexts that mirrors the
// instantiated regions of a view.
//
// Every instantiated region gets a Scope: each element and text node, each
// component instance, each conditional and its body, each repeat and each of
// its items. Scopes own the host nodes and the dependency edges created for
// their region, and release both when destroyed. Siblings are kept in
// document order, which is what lets a region that currently renders nothing
// find where its content belongs when it appears.
package scope

import (
	"github.com/oklog/ulid/v2"

	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/logutil"
	"src.manglr.sh/pkg/view"
)

var logger = logutil.GetLogger("[scope] ")

// Tree holds what all Scopes of one view share.
type Tree struct {
	Eng       *dep.Engine
	Host      view.Host
	Container view.Node
	// Null is what unresolved names resolve to.
	Null *dep.Dep
}

// NewTree creates a Tree rendering into container.
func NewTree(eng *dep.Engine, host view.Host, container view.Node) *Tree {
	return &Tree{eng, host, container, eng.Const(nil)}
}

// NewRoot creates the root Scope of the tree.
func (t *Tree) NewRoot() *Scope {
	return &Scope{id: ulid.Make(), tree: t}
}

// Scope is a binding context in the tree.
type Scope struct {
	id   ulid.ULID
	tree *Tree

	parent      *Scope
	prev, next  *Scope
	first, last *Scope

	names    map[string]*dep.Dep
	fragment view.Node

	// Passthrough template of a component instance.
	contents  int
	component bool
	// Scope that names are resolved in after this one, when it is not the
	// parent. Set on slot scopes.
	caller *Scope

	edges     []edge
	cleanups  []func()
	destroyed bool
}

type edge struct{ src, sub *dep.Dep }

// ID returns the unique id of the Scope.
func (s *Scope) ID() ulid.ULID { return s.id }

func (s *Scope) String() string { return s.id.String() }

func (s *Scope) Tree() *Tree { return s.tree }
func (s *Scope) Parent() *Scope { return s.parent }
func (s *Scope) Prev() *Scope { return s.prev }
func (s *Scope) Next() *Scope { return s.next }
func (s *Scope) First() *Scope { return s.first }
func (s *Scope) Last() *Scope { return s.last }
func (s *Scope) Fragment() view.Node { return s.fragment }
func (s *Scope) Destroyed() bool { return s.destroyed }
func (s *Scope) Engine() *dep.Engine { return s.tree.Eng }
func (s *Scope) Host() view.Host { return s.tree.Host }
func (s *Scope) Caller() *Scope { return s.caller }
func (s *Scope) SetCaller(caller *Scope) { s.caller = caller }

// SetContents marks s as a component instance with the given passthrough
// template, which may be 0.
func (s *Scope) SetContents(tpl int) { s.contents, s.component = tpl, true }

// Children returns the child Scopes in order.
func (s *Scope) Children() []*Scope {
	var children []*Scope
	for c := s.first; c != nil; c = c.next {
		children = append(children, c)
	}
	return children
}

// NewChild creates a Scope as the last child of s.
func (s *Scope) NewChild() *Scope {
	return s.NewChildAfter(s.last)
}

// NewChildAfter creates a Scope as a child of s following after, or as the
// first child if after is nil.
func (s *Scope) NewChildAfter(after *Scope) *Scope {
	c := &Scope{id: ulid.Make(), tree: s.tree}
	s.link(c, after)
	return c
}

// Links c into the children of s after the given sibling.
func (s *Scope) link(c, after *Scope) {
	c.parent = s
	c.prev = after
	if after == nil {
		c.next = s.first
		s.first = c
	} else {
		c.next = after.next
		after.next = c
	}
	if c.next == nil {
		s.last = c
	} else {
		c.next.prev = c
	}
}

func (s *Scope) unlink(c *Scope) {
	if c.prev == nil {
		s.first = c.next
	} else {
		c.prev.next = c.next
	}
	if c.next == nil {
		s.last = c.prev
	} else {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
}

// Bound reports whether name is bound in s itself.
func (s *Scope) Bound(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Bind binds a name in s. Names are immutable: binding a name twice in the
// same Scope panics.
func (s *Scope) Bind(name string, d *dep.Dep) {
	if _, ok := s.names[name]; ok {
		panic("scope: rebinding " + name)
	}
	if s.names == nil {
		s.names = make(map[string]*dep.Dep)
	}
	s.names[name] = d
}

// Lookup finds the Dep bound to name in s or the Scopes it resolves through.
func (s *Scope) Lookup(name string) (*dep.Dep, bool) {
	for cur := s; cur != nil; cur = cur.outer() {
		if d, ok := cur.names[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// Resolve is like Lookup, but logs unresolved names and resolves them to the
// tree's Null constant.
func (s *Scope) Resolve(name string) *dep.Dep {
	if d, ok := s.Lookup(name); ok {
		return d
	}
	logger.Printf("unresolved name %q in scope %s", name, s)
	return s.tree.Null
}

func (s *Scope) outer() *Scope {
	if s.caller != nil {
		return s.caller
	}
	return s.parent
}

// ContentsOwner finds the nearest component instance Scope, resolving through
// callers like Lookup. It returns nil if there is none.
func (s *Scope) ContentsOwner() (tpl int, owner *Scope) {
	for cur := s; cur != nil; cur = cur.outer() {
		if cur.component {
			return cur.contents, cur
		}
	}
	return 0, nil
}

// Subscribe subscribes sub to src and remembers the edge so that Destroy
// removes it.
func (s *Scope) Subscribe(src, sub *dep.Dep) {
	if src.IsConst() {
		return
	}
	s.tree.Eng.Subscribe(src, sub)
	s.edges = append(s.edges, edge{src, sub})
}

// Edges returns the number of edges the Scope holds.
func (s *Scope) Edges() int { return len(s.edges) }

// OnDestroy registers fn to be called when s is destroyed. Cleanups run in
// reverse order of registration.
func (s *Scope) OnDestroy(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// Own makes n the fragment of s and inserts it into the host tree at the
// position s occupies.
func (s *Scope) Own(n view.Node) {
	s.fragment = n
	s.tree.Host.InsertBefore(s.HostParent(), n, s.InsertionPoint())
}

// HostParent returns the host node that the fragments of s are children of:
// the fragment of the nearest ancestor that has one, or the container.
func (s *Scope) HostParent() view.Node {
	for cur := s.parent; cur != nil; cur = cur.parent {
		if cur.fragment != nil {
			return cur.fragment
		}
	}
	return s.tree.Container
}

// InsertionPoint returns the host node that fragments of s must be inserted
// before: the first fragment in document order after the subtree of s that
// shares its host parent. It returns nil when such content should be
// appended.
func (s *Scope) InsertionPoint() view.Node {
	for cur := s; cur.parent != nil; cur = cur.parent {
		for sib := cur.next; sib != nil; sib = sib.next {
			if n := sib.firstFragment(); n != nil {
				return n
			}
		}
		if cur.parent.fragment != nil {
			break
		}
	}
	return nil
}

func (s *Scope) firstFragment() view.Node {
	if s.fragment != nil {
		return s.fragment
	}
	for c := s.first; c != nil; c = c.next {
		if n := c.firstFragment(); n != nil {
			return n
		}
	}
	return nil
}

// Appends the outermost fragments of the subtree of s in document order.
func (s *Scope) topFragments(nodes []view.Node) []view.Node {
	if s.fragment != nil {
		return append(nodes, s.fragment)
	}
	for c := s.first; c != nil; c = c.next {
		nodes = c.topFragments(nodes)
	}
	return nodes
}

// MoveAfter moves s to follow the sibling after, or to the front if after is
// nil, moving its host nodes along.
func (s *Scope) MoveAfter(after *Scope) {
	if after == s || s.prev == after {
		return
	}
	p := s.parent
	p.unlink(s)
	p.link(s, after)
	nodes := s.topFragments(nil)
	if len(nodes) == 0 {
		return
	}
	parent, ref := s.HostParent(), s.InsertionPoint()
	for _, n := range nodes {
		s.tree.Host.InsertBefore(parent, n, ref)
	}
}

// Destroy detaches s from its parent and the host tree, destroys its
// children, removes every edge it subscribed and runs its cleanups.
// Destroying a Scope twice is a no-op.
func (s *Scope) Destroy() {
	if s.destroyed {
		return
	}
	if s.parent != nil {
		s.parent.unlink(s)
	}
	s.destroy(true)
}

// DestroyChildren destroys all children of s.
func (s *Scope) DestroyChildren() {
	for c := s.first; c != nil; {
		next := c.next
		c.Destroy()
		c = next
	}
}

func (s *Scope) destroy(detach bool) {
	s.destroyed = true
	if s.fragment != nil && detach {
		s.tree.Host.Remove(s.fragment)
		// Descendant fragments leave with it.
		detach = false
	}
	for c := s.first; c != nil; {
		next := c.next
		c.destroy(detach)
		c.parent, c.prev, c.next = nil, nil, nil
		c = next
	}
	s.first, s.last = nil, nil
	for i := len(s.edges) - 1; i >= 0; i-- {
		s.tree.Eng.Unsubscribe(s.edges[i].src, s.edges[i].sub)
	}
	s.edges = nil
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}
