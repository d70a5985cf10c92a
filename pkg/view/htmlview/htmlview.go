// Package htmlview implements view.Host over golang.org/x/net/html nodes.
//
// It is used to render documents on the command line and to observe the
// effects of the runtime in tests.
package htmlview

import (
	"io"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"src.manglr.sh/pkg/view"
)

// Host is a view.Host whose nodes are *html.Node values.
type Host struct {
	// Root is the container the document is rendered into.
	Root      *html.Node
	listeners map[*html.Node][]*listener
}

type listener struct {
	event string
	fn    func(view.Event)
}

var _ view.Host = (*Host)(nil)

// New creates a Host with an empty <body> root.
func New() *Host {
	return &Host{
		Root:      &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body},
		listeners: make(map[*html.Node][]*listener),
	}
}

func node(n view.Node) *html.Node {
	if n == nil {
		return nil
	}
	return n.(*html.Node)
}

func (h *Host) CreateElement(tag string) view.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func (h *Host) CreateText(text string) view.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func (h *Host) SetText(n view.Node, text string) { node(n).Data = text }

func (h *Host) SetAttr(n view.Node, name, value string) {
	hn := node(n)
	for i := range hn.Attr {
		if hn.Attr[i].Key == name {
			hn.Attr[i].Val = value
			return
		}
	}
	hn.Attr = append(hn.Attr, html.Attribute{Key: name, Val: value})
}

func (h *Host) RemoveAttr(n view.Node, name string) {
	hn := node(n)
	hn.Attr = slices.DeleteFunc(hn.Attr, func(a html.Attribute) bool { return a.Key == name })
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n view.Node, name string) (string, bool) {
	for _, a := range node(n).Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetProp reflects boolean properties as valueless attributes with lowercase
// names.
func (h *Host) SetProp(n view.Node, name string, on bool) {
	name = strings.ToLower(name)
	if on {
		h.SetAttr(n, name, "")
	} else {
		h.RemoveAttr(n, name)
	}
}

// Classes returns the class list of an element.
func Classes(n view.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

func (h *Host) AddClass(n view.Node, class string) {
	classes := Classes(n)
	if class == "" || slices.Contains(classes, class) {
		return
	}
	h.SetAttr(n, "class", strings.Join(append(classes, class), " "))
}

func (h *Host) RemoveClass(n view.Node, class string) {
	classes := Classes(n)
	i := slices.Index(classes, class)
	if i < 0 {
		return
	}
	classes = slices.Delete(classes, i, i+1)
	if len(classes) == 0 {
		h.RemoveAttr(n, "class")
	} else {
		h.SetAttr(n, "class", strings.Join(classes, " "))
	}
}

func (h *Host) SetStyle(n view.Node, name, value string) {
	v, _ := Attr(n, "style")
	var decls []string
	for _, decl := range strings.Split(v, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		if k, _, _ := strings.Cut(decl, ":"); strings.TrimSpace(k) == name {
			continue
		}
		decls = append(decls, decl)
	}
	if value != "" {
		decls = append(decls, name+": "+value)
	}
	if len(decls) == 0 {
		h.RemoveAttr(n, "style")
	} else {
		h.SetAttr(n, "style", strings.Join(decls, "; "))
	}
}

func (h *Host) InsertBefore(parent, n, ref view.Node) {
	hn := node(n)
	if hn.Parent != nil {
		hn.Parent.RemoveChild(hn)
	}
	node(parent).InsertBefore(hn, node(ref))
}

func (h *Host) Remove(n view.Node) {
	if hn := node(n); hn.Parent != nil {
		hn.Parent.RemoveChild(hn)
	}
}

func (h *Host) Listen(n view.Node, event string, fn func(view.Event)) func() {
	hn := node(n)
	l := &listener{event, fn}
	h.listeners[hn] = append(h.listeners[hn], l)
	return func() {
		ls := slices.DeleteFunc(h.listeners[hn], func(x *listener) bool { return x == l })
		if len(ls) == 0 {
			delete(h.listeners, hn)
		} else {
			h.listeners[hn] = ls
		}
	}
}

// Listeners returns the number of registered listeners.
func (h *Host) Listeners() int {
	n := 0
	for _, ls := range h.listeners {
		n += len(ls)
	}
	return n
}

// Dispatch delivers an event to the listeners of target and its ancestors,
// innermost first. It reports whether any listener was called.
func (h *Host) Dispatch(target view.Node, ev view.Event) bool {
	ev.Target = target
	called := false
	for hn := node(target); hn != nil; hn = hn.Parent {
		for _, l := range slices.Clone(h.listeners[hn]) {
			if l.event == ev.Type {
				l.fn(ev)
				called = true
			}
		}
	}
	return called
}

// Render writes the children of the root as HTML.
func (h *Host) Render(w io.Writer) error {
	for c := h.Root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered children of the root.
func (h *Host) String() string {
	var sb strings.Builder
	h.Render(&sb)
	return sb.String()
}

// Text returns the concatenated text content of the root.
func (h *Host) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.Root)
	return sb.String()
}

// Find returns the first element in document order with the given tag, or
// nil.
func (h *Host) Find(tag string) *html.Node {
	all := h.FindAll(tag)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAll returns all elements with the given tag in document order.
func (h *Host) FindAll(tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag && n != h.Root {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.Root)
	return found
}
