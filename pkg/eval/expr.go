package eval

import (
	"strings"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/vals"
)

// Builds the Dep of an expression. Expressions whose inputs are all constant
// are folded into constants.
func (in *interp) expr(r *code.Reader, s *scope.Scope) *dep.Dep {
	pos := r.Pos()
	switch op := code.ExprOp(r.Next()); op {
	case code.ExprConstText:
		return in.eng.Const(r.Sym())
	case code.ExprConstNum:
		return in.eng.Const(vals.ParseNum(r.Sym()))
	case code.ExprLookup:
		n := r.Count()
		if n == 0 {
			panic(&code.FormatError{Pos: pos, Msg: "empty lookup path"})
		}
		d := s.Resolve(r.Sym())
		for i := 1; i < n; i++ {
			d = in.field(s, d, r.Sym())
		}
		return d
	case code.ExprConcat:
		args := make([]*dep.Dep, r.Count())
		for i := range args {
			args[i] = in.expr(r, s)
		}
		return in.derive(s, args, func(vs []any) any {
			var sb strings.Builder
			for _, v := range vs {
				sb.WriteString(vals.ToText(v))
			}
			return sb.String()
		})
	case code.ExprEquals:
		return in.binary(r, s, func(x, y any) any { return vals.Equal(x, y) })
	case code.ExprAdd:
		return in.binary(r, s, vals.Add)
	case code.ExprSub:
		return in.binary(r, s, vals.Sub)
	case code.ExprMul:
		return in.binary(r, s, vals.Mul)
	case code.ExprDiv:
		return in.binary(r, s, vals.Div)
	case code.ExprNot:
		x := in.expr(r, s)
		return in.derive(s, []*dep.Dep{x}, func(vs []any) any { return !vals.Truthy(vs[0]) })
	default:
		panic(&BadOpcode{"expression", int(op), pos})
	}
}

func (in *interp) binary(r *code.Reader, s *scope.Scope, fn func(x, y any) any) *dep.Dep {
	x := in.expr(r, s)
	y := in.expr(r, s)
	return in.derive(s, []*dep.Dep{x, y}, func(vs []any) any { return fn(vs[0], vs[1]) })
}

// Returns a Dep computing fn over the values of args. The slice passed to fn
// is reused between calls.
func (in *interp) derive(s *scope.Scope, args []*dep.Dep, fn func([]any) any) *dep.Dep {
	vs := make([]any, len(args))
	values := func() []any {
		for i, a := range args {
			vs[i] = a.Value()
		}
		return vs
	}
	if allConst(args) {
		return in.eng.Const(fn(values()))
	}
	d := in.eng.Func(func(d *dep.Dep) { d.Store(fn(values())) })
	for _, a := range args {
		s.Subscribe(a, d)
	}
	return d
}

func allConst(ds []*dep.Dep) bool {
	for _, d := range ds {
		if !d.IsConst() {
			return false
		}
	}
	return true
}

// Returns a Dep for one field of the value of src.
//
// When src is a constant Fielder, such as a Model bound in a scope, this is
// the field Dep itself, which is writable. When src varies, the result
// follows whichever field Dep the current value of src provides. Switching
// to another field Dep changes the graph, so it waits until propagation has
// finished.
func (in *interp) field(s *scope.Scope, src *dep.Dep, name string) *dep.Dep {
	if src.IsConst() {
		if f, ok := src.Value().(vals.Fielder); ok {
			return f.Field(name)
		}
		return in.eng.Const(vals.Index(src.Value(), name))
	}

	current := func() *dep.Dep {
		if f, ok := src.Value().(vals.Fielder); ok {
			return f.Field(name)
		}
		return nil
	}
	var target *dep.Dep
	pending := false
	var d *dep.Dep
	retarget := func() {
		pending = false
		if s.Destroyed() {
			return
		}
		fd := current()
		if fd == target {
			return
		}
		if target != nil {
			in.eng.Unsubscribe(target, d)
		}
		target = fd
		if target != nil {
			in.eng.Subscribe(target, d)
		}
	}
	d = in.eng.Func(func(self *dep.Dep) {
		fd := current()
		if fd == nil {
			self.Store(vals.Index(src.Value(), name))
		} else {
			self.Store(fd.Value())
		}
		if fd != target && !pending {
			pending = true
			in.eng.Defer(retarget)
		}
	})
	s.Subscribe(src, d)
	s.OnDestroy(func() {
		if target != nil {
			in.eng.Unsubscribe(target, d)
			target = nil
		}
	})
	return d
}
