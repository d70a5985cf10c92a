// Package compile turns a markup tree into a compiled program.
//
// Compilation happens in three steps. Component definitions are found first,
// since they define the custom tags used everywhere else. Each component body
// is then parsed into an AST, applying the directives, prefixes and builtin
// tags registered on the Context. Finally the AST is encoded into an
// instruction stream.
//
// Problems in the source never stop compilation: they are recorded as
// diagnostics and a safe substitute is compiled instead.
package compile

import (
	"fmt"
	"sort"
	"strings"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/diag"
	"src.manglr.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[compile] ")

// DirectiveFunc handles an attribute with a registered name. For prefix
// handlers, suffix is the part of the name after the prefix.
type DirectiveFunc func(ctx *Context, p *Proxy, value, suffix string)

// BuiltinFunc handles an element with a registered tag. It returns the node
// that replaces the element, or nil.
type BuiltinFunc func(ctx *Context, p *Proxy) Node

// CondFunc handles a named condition such as "route: /home" in an "if"
// directive.
type CondFunc func(ctx *Context, p *Proxy, rest string) Expr

// Context holds the state of one compilation.
type Context struct {
	// Name of the source, used in diagnostics.
	Name  string
	Diags []*diag.Error

	symbols  []string
	symIndex map[string]int
	// Template k is templates[k-1].
	templates [][]Node

	directives map[string]DirectiveFunc
	prefixes   map[string]DirectiveFunc
	builtins   map[string]BuiltinFunc
	conds      map[string]CondFunc

	// Component whose body is being parsed.
	comp *component
}

type component struct {
	tag    string
	tpl    int
	parent *component
	tags   map[string]*component
	src    *SourceNode
	// Controller nodes, hoisted to the front of the body.
	ctls []Node
	// Name the router of this component is bound to.
	router string
}

// NewContext creates a Context with the standard directives, prefixes,
// builtin tags and named conditions registered.
func NewContext(name string) *Context {
	ctx := &Context{
		Name:       name,
		symIndex:   make(map[string]int),
		directives: make(map[string]DirectiveFunc),
		prefixes:   make(map[string]DirectiveFunc),
		builtins:   make(map[string]BuiltinFunc),
		conds:      make(map[string]CondFunc),
	}
	registerStandard(ctx)
	return ctx
}

// RegisterDirective registers a handler for attributes named name.
func (ctx *Context) RegisterDirective(name string, fn DirectiveFunc) error {
	return register(ctx.directives, "directive", name, fn)
}

// RegisterPrefix registers a handler for attributes whose name starts with
// prefix.
func (ctx *Context) RegisterPrefix(prefix string, fn DirectiveFunc) error {
	return register(ctx.prefixes, "prefix", prefix, fn)
}

// RegisterBuiltin registers a handler for elements with the given tag.
func (ctx *Context) RegisterBuiltin(tag string, fn BuiltinFunc) error {
	return register(ctx.builtins, "builtin tag", tag, fn)
}

// RegisterCond registers a named condition.
func (ctx *Context) RegisterCond(name string, fn CondFunc) error {
	return register(ctx.conds, "condition", name, fn)
}

func register[F any](m map[string]F, kind, name string, fn F) error {
	if _, ok := m[name]; ok {
		return fmt.Errorf("duplicate %s %q registered", kind, name)
	}
	m[name] = fn
	return nil
}

// Errorf records a diagnostic about a source node.
func (ctx *Context) Errorf(src *SourceNode, format string, args ...any) {
	e := &diag.Error{Type: "compile error", Message: fmt.Sprintf(format, args...),
		Context: diag.Context{Name: ctx.Name}}
	if src != nil {
		e.Context.Line, e.Context.Column = src.Line, src.Column
		if src.Tag != "" {
			e.Context.Where = "<" + src.Tag + ">"
		}
	}
	logger.Println(e.Error())
	ctx.Diags = append(ctx.Diags, e)
}

// Sym interns a symbol.
func (ctx *Context) Sym(s string) int {
	if i, ok := ctx.symIndex[s]; ok {
		return i
	}
	i := len(ctx.symbols)
	ctx.symbols = append(ctx.symbols, s)
	ctx.symIndex[s] = i
	return i
}

// Reserve allocates a template id to be filled in by Define.
func (ctx *Context) Reserve() int {
	ctx.templates = append(ctx.templates, nil)
	return len(ctx.templates)
}

// Define sets the nodes of a reserved template.
func (ctx *Context) Define(tpl int, nodes []Node) {
	ctx.templates[tpl-1] = nodes
}

// Template allocates a template holding nodes. It returns 0, the empty
// template, when there are no nodes.
func (ctx *Context) Template(nodes []Node) int {
	if len(nodes) == 0 {
		return 0
	}
	tpl := ctx.Reserve()
	ctx.Define(tpl, nodes)
	return tpl
}

// Compile compiles a markup tree whose root is the body of the document.
// Diagnostics are available in ctx.Diags afterwards.
func (ctx *Context) Compile(body *SourceNode) *code.Program {
	root := &component{tpl: ctx.Reserve(), tags: make(map[string]*component), src: body}
	found := []*component{root}
	ctx.findComponents(body, root, &found)
	// Parents come before their children in found, so hoisting from the
	// parent brings in the tags of all ancestors.
	for _, comp := range found {
		if comp.parent != nil {
			for tag, c := range comp.parent.tags {
				if _, ok := comp.tags[tag]; ok {
					ctx.Errorf(comp.src, "component tag name %q hides another component with the same name", tag)
				} else {
					comp.tags[tag] = c
				}
			}
		}
		ctx.comp = comp
		nodes := ctx.parseChildren(comp.src)
		ctx.Define(comp.tpl, append(comp.ctls, nodes...))
	}
	ctx.comp = nil
	return ctx.Encode()
}

// Compile compiles a markup tree with a new Context.
func Compile(name string, body *SourceNode) (*code.Program, []*diag.Error) {
	ctx := NewContext(name)
	prog := ctx.Compile(body)
	return prog, ctx.Diags
}

func (ctx *Context) findComponents(n *SourceNode, parent *component, found *[]*component) {
	for _, child := range n.Children {
		switch child.Tag {
		case "":
			continue
		case "component":
			tag, _ := child.Attr("tag")
			comp := &component{tag: tag, tpl: ctx.Reserve(), parent: parent,
				tags: make(map[string]*component), src: child}
			*found = append(*found, comp)
			if tag == "" {
				ctx.Errorf(child, `component must have a "tag" attribute`)
			} else if _, ok := parent.tags[tag]; ok {
				ctx.Errorf(child, "duplicate component tag name %q declared", tag)
			} else {
				parent.tags[tag] = comp
			}
			ctx.findComponents(child, comp, found)
		case "router":
			if id, ok := child.Attr("id"); ok && parent.router == "" {
				parent.router = id
			}
			ctx.findComponents(child, parent, found)
		default:
			ctx.findComponents(child, parent, found)
		}
	}
}

// Router returns the name of the router visible from the component being
// compiled.
func (ctx *Context) Router(src *SourceNode) string {
	for c := ctx.comp; c != nil; c = c.parent {
		if c.router != "" {
			return c.router
		}
	}
	ctx.Errorf(src, "no router in scope for route condition")
	return "@router"
}

// AddController adds a controller node to the front of the component being
// compiled.
func (ctx *Context) AddController(n Node) {
	ctx.comp.ctls = append(ctx.comp.ctls, n)
}

// InComponent reports whether the body being compiled belongs to a component
// definition rather than the document.
func (ctx *Context) InComponent() bool {
	return ctx.comp != nil && ctx.comp.parent != nil
}

func (ctx *Context) parseChildren(n *SourceNode) []Node {
	var nodes []Node
	for _, child := range n.Children {
		nodes = ctx.parseNode(child, nodes)
	}
	return nodes
}

func (ctx *Context) parseNode(n *SourceNode, out []Node) []Node {
	if n.Tag == "" {
		parts, err := ParseText(n.Text)
		if err != nil {
			ctx.Errorf(n, "%v", err)
		}
		for _, part := range parts {
			if t, ok := part.(*ConstText); ok {
				out = append(out, &Text{t.Text})
			} else {
				out = append(out, &BoundText{part})
			}
		}
		return out
	}
	tag := strings.ToLower(n.Tag)
	if tag == "component" || tag == "script" {
		return out
	}
	p := &Proxy{ctx: ctx, src: n, tag: tag, comp: ctx.comp.tags[tag]}
	for _, a := range n.Attrs {
		ctx.parseAttr(p, a)
	}
	p.children = ctx.parseChildren(n)

	var node Node
	if builtin, ok := ctx.builtins[tag]; ok {
		node = builtin(ctx, p)
	} else if p.comp != nil {
		node = &Component{Tag: tag, Tpl: p.comp.tpl, Args: p.args(), Contents: p.children}
	} else {
		if strings.Contains(tag, "-") {
			ctx.Errorf(n, "no component found (in scope) for custom tag %q", tag)
		}
		node = &Element{Tag: tag, Attrs: p.attrs, Children: p.children}
	}
	if node == nil {
		return out
	}
	for _, r := range p.repeats {
		node = &Repeat{Name: r.name, Expr: r.expr, Body: []Node{node}}
	}
	for _, cond := range p.conds {
		node = &Cond{Expr: cond, Body: []Node{node}}
	}
	return append(out, node)
}

func (ctx *Context) parseAttr(p *Proxy, a SourceAttr) {
	name := strings.ToLower(a.Name)
	if fn, ok := ctx.directives[name]; ok {
		fn(ctx, p, a.Value, "")
		return
	}
	if prefix, fn := ctx.matchPrefix(name); fn != nil {
		fn(ctx, p, a.Value, a.Name[len(prefix):])
		return
	}
	if strings.Contains(name, "-") && p.comp == nil && !standardAttr(name) {
		ctx.Errorf(p.src, "no handler registered for custom attribute %q", a.Name)
	}
	p.BindAttr(a.Name, p.TextExpr(a.Value))
}

// Returns the longest registered prefix of name.
func (ctx *Context) matchPrefix(name string) (string, DirectiveFunc) {
	prefixes := make([]string, 0, len(ctx.prefixes))
	for prefix := range ctx.prefixes {
		if strings.HasPrefix(name, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	if len(prefixes) == 0 {
		return "", nil
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	return prefixes[0], ctx.prefixes[prefixes[0]]
}

func standardAttr(name string) bool {
	return strings.HasPrefix(name, "data-") || strings.HasPrefix(name, "aria-") ||
		name == "accept-charset" || name == "http-equiv"
}
