package eval

import (
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/vals"
)

// Shows the body template while the condition is truthy. The body lives in
// a child of a holder scope, so that it keeps its place among its siblings
// when it is created again.
func (in *interp) cond(s *scope.Scope, tpl int, d *dep.Dep) {
	holder := s.NewChild()
	var body *scope.Scope
	update := func() {
		on := vals.Truthy(d.Value())
		switch {
		case on && body == nil:
			body = holder.NewChild()
			in.instantiate(body, tpl)
		case !on && body != nil:
			body.Destroy()
			body = nil
		}
	}
	update()
	in.onChange(holder, d, update)
}

// Calls fn once after each transaction in which d changed, after propagation
// has stopped, as long as s has not been destroyed.
func (in *interp) onChange(s *scope.Scope, d *dep.Dep, fn func()) {
	if d.IsConst() {
		return
	}
	pending := false
	w := in.eng.Func(func(*dep.Dep) {
		if pending {
			return
		}
		pending = true
		in.eng.Defer(func() {
			pending = false
			if !s.Destroyed() {
				fn()
			}
		})
	})
	s.Subscribe(d, w)
}
