package compile

import (
	"fmt"
	"sort"

	"src.manglr.sh/pkg/code"
)

// Encode encodes all templates into a program. Templates referenced by
// conditions, repeats and component contents are allocated as they are
// encoded.
func (ctx *Context) Encode() *code.Program {
	var bodies [][]int
	for i := 0; i < len(ctx.templates); i++ {
		nodes := ctx.templates[i]
		body := []int{len(nodes)}
		for _, n := range nodes {
			body = ctx.encodeNode(body, n)
		}
		bodies = append(bodies, body)
	}
	n := len(bodies)
	raw := make([]int, 1+n, 1+n+totalLen(bodies))
	raw[0] = n
	prev := 0
	for i, body := range bodies {
		raw[1+i] = len(raw) - prev
		prev = len(raw)
		raw = append(raw, body...)
	}
	prog, err := code.Load(raw, append([]string(nil), ctx.symbols...))
	if err != nil {
		// The encoder produced an inconsistent template table.
		panic(fmt.Sprintf("compile: %v", err))
	}
	return prog
}

func totalLen(bodies [][]int) int {
	n := 0
	for _, b := range bodies {
		n += len(b)
	}
	return n
}

func (ctx *Context) encodeNode(b []int, n Node) []int {
	switch n := n.(type) {
	case *Text:
		return append(b, int(code.NodeText), ctx.Sym(n.Text))
	case *BoundText:
		return ctx.encodeExpr(append(b, int(code.NodeBoundText)), n.Expr)
	case *Element:
		b = append(b, int(code.NodeElement), ctx.Sym(n.Tag), len(n.Attrs))
		attrs := append([]Attr(nil), n.Attrs...)
		sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].op() < attrs[j].op() })
		for _, a := range attrs {
			b = ctx.encodeAttr(b, a)
		}
		b = append(b, len(n.Children))
		for _, c := range n.Children {
			b = ctx.encodeNode(b, c)
		}
		return b
	case *Component:
		b = append(b, int(code.NodeComponent), n.Tpl, ctx.Template(n.Contents), len(n.Args))
		for _, arg := range n.Args {
			b = ctx.encodeExpr(append(b, ctx.Sym(arg.Name)), arg.Expr)
		}
		return b
	case *Cond:
		return ctx.encodeExpr(append(b, int(code.NodeCondition), ctx.Template(n.Body)), n.Expr)
	case *Repeat:
		return ctx.encodeExpr(append(b, int(code.NodeRepeat), ctx.Sym(n.Name), ctx.Template(n.Body)), n.Expr)
	case *Router:
		return append(b, int(code.NodeRouter), ctx.Sym(n.ID))
	case *Auth:
		return append(b, int(code.NodeAuth), ctx.Sym(n.ID), ctx.Sym(n.LoginURL))
	case *Store:
		return append(b, int(code.NodeStore), ctx.Sym(n.ID), ctx.Sym(n.GetURL), ctx.Sym(n.AuthID))
	case *Model:
		return append(b, int(code.NodeModel), ctx.Sym(n.ID))
	case *Contents:
		return append(b, int(code.NodeContents))
	}
	panic(fmt.Sprintf("compile: unknown node %T", n))
}

func (ctx *Context) encodeAttr(b []int, a Attr) []int {
	b = append(b, int(a.op()))
	switch a := a.(type) {
	case *TextAttr:
		return append(b, ctx.Sym(a.Name), ctx.Sym(a.Value))
	case *BoolAttr:
		v := 0
		if a.Value {
			v = 1
		}
		return append(b, ctx.Sym(a.Name), v)
	case *BoundTextAttr:
		return ctx.encodeExpr(append(b, ctx.Sym(a.Name)), a.Expr)
	case *BoundBoolAttr:
		return ctx.encodeExpr(append(b, ctx.Sym(a.Name)), a.Expr)
	case *ClassAttr:
		return append(b, ctx.Sym(a.Name))
	case *BoundClassAttr:
		return ctx.encodeExpr(b, a.Expr)
	case *CondClassAttr:
		return ctx.encodeExpr(append(b, ctx.Sym(a.Name)), a.Expr)
	case *StyleAttr:
		return ctx.encodeExpr(append(b, ctx.Sym(a.Name)), a.Expr)
	case *TapSelectAttr:
		return ctx.encodeExpr(ctx.encodeExpr(b, a.Target), a.Value)
	case *FormSubmitAttr:
		return ctx.encodeExpr(b, a.Target)
	}
	panic(fmt.Sprintf("compile: unknown attribute %T", a))
}

func (ctx *Context) encodeExpr(b []int, e Expr) []int {
	switch e := e.(type) {
	case *ConstText:
		return append(b, int(code.ExprConstText), ctx.Sym(e.Text))
	case *ConstNum:
		return append(b, int(code.ExprConstNum), ctx.Sym(e.Num))
	case *Lookup:
		if len(e.Path) == 0 {
			panic("compile: empty path in lookup")
		}
		b = append(b, int(code.ExprLookup), len(e.Path))
		for _, name := range e.Path {
			b = append(b, ctx.Sym(name))
		}
		return b
	case *Concat:
		args := e.Args
		if len(args) == 0 {
			args = []Expr{&ConstText{""}}
		}
		b = append(b, int(code.ExprConcat), len(args))
		for _, arg := range args {
			b = ctx.encodeExpr(b, arg)
		}
		return b
	case *Binary:
		return ctx.encodeExpr(ctx.encodeExpr(append(b, int(e.Op)), e.Left), e.Right)
	case *Not:
		return ctx.encodeExpr(append(b, int(code.ExprNot)), e.Expr)
	}
	panic(fmt.Sprintf("compile: unknown expression %T", e))
}
