package code

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Disassemble writes a readable listing of every template of p to w. It
// returns a *FormatError if the stream is malformed.
func Disassemble(w io.Writer, p *Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*FormatError)
			if !ok {
				panic(r)
			}
			err = fe
		}
	}()
	d := &disasm{sb: &strings.Builder{}}
	for tpl := 1; tpl <= p.NumTemplates(); tpl++ {
		r := p.Template(tpl)
		fmt.Fprintf(d.sb, "template %d @%d:\n", tpl, r.Pos())
		d.nodes(&r, 1)
	}
	if len(p.Symbols) > 0 {
		d.sb.WriteString("symbols:\n")
		for i, sym := range p.Symbols {
			fmt.Fprintf(d.sb, "  %d %s\n", i, strconv.Quote(sym))
		}
	}
	_, err = io.WriteString(w, d.sb.String())
	return err
}

type disasm struct {
	sb *strings.Builder
}

func (d *disasm) line(depth int, format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *disasm) nodes(r *Reader, depth int) {
	for n := r.Count(); n > 0; n-- {
		d.node(r, depth)
	}
}

func (d *disasm) node(r *Reader, depth int) {
	pos := r.Pos()
	op := NodeOp(r.Next())
	switch op {
	case NodeText:
		d.line(depth, "%s %q", op, r.Sym())
	case NodeBoundText:
		d.line(depth, "%s %s", op, d.expr(r))
	case NodeElement:
		d.line(depth, "%s %s", op, r.Sym())
		for n := r.Count(); n > 0; n-- {
			d.attr(r, depth+1)
		}
		d.nodes(r, depth+1)
	case NodeComponent:
		tpl, contents := r.Next(), r.Next()
		d.line(depth, "%s tpl=%d contents=%d", op, tpl, contents)
		for n := r.Count(); n > 0; n-- {
			name := r.Sym()
			d.line(depth+1, "arg %s = %s", name, d.expr(r))
		}
	case NodeCondition:
		tpl := r.Next()
		d.line(depth, "%s tpl=%d %s", op, tpl, d.expr(r))
	case NodeRepeat:
		name, tpl := r.Sym(), r.Next()
		d.line(depth, "%s %s tpl=%d %s", op, name, tpl, d.expr(r))
	case NodeRouter, NodeModel:
		d.line(depth, "%s %s", op, r.Sym())
	case NodeAuth:
		d.line(depth, "%s %s login=%q", op, r.Sym(), r.Sym())
	case NodeStore:
		d.line(depth, "%s %s get=%q auth=%q", op, r.Sym(), r.Sym(), r.Sym())
	case NodeContents:
		d.line(depth, "%s", op)
	default:
		panic(&FormatError{pos, "bad node opcode " + strconv.Itoa(int(op))})
	}
}

func (d *disasm) attr(r *Reader, depth int) {
	pos := r.Pos()
	op := AttrOp(r.Next())
	switch op {
	case AttrLiteralText:
		d.line(depth, "%s %s=%q", op, r.Sym(), r.Sym())
	case AttrLiteralBool:
		d.line(depth, "%s %s=%v", op, r.Sym(), r.Next() != 0)
	case AttrBoundText, AttrBoundBool, AttrCondClass, AttrBoundStyle:
		d.line(depth, "%s %s %s", op, r.Sym(), d.expr(r))
	case AttrLiteralClass:
		d.line(depth, "%s %s", op, r.Sym())
	case AttrBoundClass, AttrFormSubmit:
		d.line(depth, "%s %s", op, d.expr(r))
	case AttrTapSelect:
		target := d.expr(r)
		d.line(depth, "%s %s = %s", op, target, d.expr(r))
	default:
		panic(&FormatError{pos, "bad attribute opcode " + strconv.Itoa(int(op))})
	}
}

// Returns the expression in prefix form.
func (d *disasm) expr(r *Reader) string {
	pos := r.Pos()
	op := ExprOp(r.Next())
	switch op {
	case ExprConstText:
		return strconv.Quote(r.Sym())
	case ExprConstNum:
		return r.Sym()
	case ExprLookup:
		n := r.Count()
		path := make([]string, n)
		for i := range path {
			path[i] = r.Sym()
		}
		return strings.Join(path, ".")
	case ExprConcat:
		n := r.Count()
		args := make([]string, n)
		for i := range args {
			args[i] = d.expr(r)
		}
		return "(concat_text " + strings.Join(args, " ") + ")"
	case ExprEquals, ExprAdd, ExprSub, ExprMul, ExprDiv:
		x := d.expr(r)
		return "(" + op.String() + " " + x + " " + d.expr(r) + ")"
	case ExprNot:
		return "(not " + d.expr(r) + ")"
	default:
		panic(&FormatError{pos, "bad expression opcode " + strconv.Itoa(int(op))})
	}
}
