package eval

import (
	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/vals"
	"src.manglr.sh/pkg/view"
)

// Applies one attribute record. Literal classes are recorded in literal, so
// that a bound class never removes one; records come sorted by opcode, so
// they are all known before any bound class is applied.
func (in *interp) attr(r *code.Reader, s *scope.Scope, el view.Node, literal map[string]bool) {
	pos := r.Pos()
	h := in.host
	switch op := code.AttrOp(r.Next()); op {
	case code.AttrLiteralText:
		name := r.Sym()
		h.SetAttr(el, name, r.Sym())
	case code.AttrLiteralBool:
		name := r.Sym()
		h.SetProp(el, name, r.Next() != 0)
	case code.AttrBoundText:
		name := r.Sym()
		in.bind(s, in.expr(r, s), func(v any) { h.SetAttr(el, name, vals.ToText(v)) })
	case code.AttrBoundBool:
		name := r.Sym()
		in.bind(s, in.expr(r, s), func(v any) { h.SetProp(el, name, vals.Truthy(v)) })
	case code.AttrLiteralClass:
		class := r.Sym()
		literal[class] = true
		h.AddClass(el, class)
	case code.AttrBoundClass:
		prev := ""
		in.bind(s, in.expr(r, s), func(v any) {
			class := vals.ToText(v)
			if class == prev {
				return
			}
			if prev != "" && !literal[prev] {
				h.RemoveClass(el, prev)
			}
			h.AddClass(el, class)
			prev = class
		})
	case code.AttrCondClass:
		name := r.Sym()
		in.bind(s, in.expr(r, s), func(v any) {
			if vals.Truthy(v) {
				h.AddClass(el, name)
			} else {
				h.RemoveClass(el, name)
			}
		})
	case code.AttrBoundStyle:
		name := r.Sym()
		in.bind(s, in.expr(r, s), func(v any) { h.SetStyle(el, name, vals.ToText(v)) })
	case code.AttrTapSelect:
		target := in.expr(r, s)
		value := in.expr(r, s)
		s.OnDestroy(h.Listen(el, "click", func(view.Event) { tapSelect(target, value) }))
	case code.AttrFormSubmit:
		target := in.expr(r, s)
		s.OnDestroy(h.Listen(el, "submit", func(ev view.Event) { submit(target, ev) }))
	default:
		panic(&BadOpcode{"attribute", int(op), pos})
	}
}

// Toggles target between value and nil.
func tapSelect(target, value *dep.Dep) {
	if !target.Writable() {
		logger.Printf("tap-select target is not writable")
		return
	}
	v := value.Value()
	if vals.Equal(target.Value(), v) {
		target.Set(nil)
	} else {
		target.Set(v)
	}
}

func submit(target *dep.Dep, ev view.Event) {
	sub, ok := target.Value().(vals.Submitter)
	if !ok {
		logger.Printf("submit target %T cannot take form fields", target.Value())
		return
	}
	sub.Submit(ev.Form)
}
