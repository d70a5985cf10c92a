package eval

import (
	"github.com/golang/glog"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/ctrl"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/vals"
	"src.manglr.sh/pkg/view"
)

// interp walks the instruction stream of a program.
type interp struct {
	rt   *Runtime
	prog *code.Program
	eng  *dep.Engine
	host view.Host
}

// Instantiates the nodes of a template as children of s. Template 0 is
// empty.
func (in *interp) instantiate(s *scope.Scope, tpl int) {
	if tpl == 0 {
		return
	}
	glog.V(2).Infof("instantiating template %d in scope %s", tpl, s)
	r := in.prog.Template(tpl)
	for n := r.Count(); n > 0; n-- {
		in.node(&r, s)
	}
}

func (in *interp) node(r *code.Reader, s *scope.Scope) {
	pos := r.Pos()
	switch op := code.NodeOp(r.Next()); op {
	case code.NodeText:
		s.NewChild().Own(in.host.CreateText(r.Sym()))
	case code.NodeBoundText:
		d := in.expr(r, s)
		c := s.NewChild()
		n := in.host.CreateText("")
		c.Own(n)
		in.bind(c, d, func(v any) { in.host.SetText(n, vals.ToText(v)) })
	case code.NodeElement:
		in.element(r, s)
	case code.NodeComponent:
		in.component(r, s)
	case code.NodeCondition:
		tpl := r.Next()
		in.cond(s, tpl, in.expr(r, s))
	case code.NodeRepeat:
		name := r.Sym()
		tpl := r.Next()
		in.repeat(s, name, tpl, in.expr(r, s))
	case code.NodeRouter:
		id := r.Sym()
		router := ctrl.NewRouter(in.rt.env, in.rt.history)
		in.bindController(s, id, router, router.Close)
	case code.NodeAuth:
		id, login := r.Sym(), r.Sym()
		auth := ctrl.NewAuth(in.rt.env, id, login)
		in.bindController(s, id, auth, auth.Close)
	case code.NodeStore:
		id, get, authID := r.Sym(), r.Sym(), r.Sym()
		in.store(s, id, get, authID)
	case code.NodeModel:
		id := r.Sym()
		m := vals.NewModel(in.eng)
		if in.bindController(s, id, m, nil) {
			in.rt.register(id, m)
		}
	case code.NodeContents:
		in.contents(s)
	default:
		panic(&BadOpcode{"node", int(op), pos})
	}
}

func (in *interp) element(r *code.Reader, s *scope.Scope) {
	c := s.NewChild()
	el := in.host.CreateElement(r.Sym())
	c.Own(el)
	literal := map[string]bool{}
	for n := r.Count(); n > 0; n-- {
		in.attr(r, c, el, literal)
	}
	for n := r.Count(); n > 0; n-- {
		in.node(r, c)
	}
}

// The arguments of a component are evaluated in the scope of the caller and
// bound in the instance scope.
func (in *interp) component(r *code.Reader, s *scope.Scope) {
	tpl := r.Next()
	contents := r.Next()
	c := s.NewChild()
	c.SetContents(contents)
	for n := r.Count(); n > 0; n-- {
		name := r.Sym()
		in.bindName(c, name, in.expr(r, s))
	}
	in.instantiate(c, tpl)
}

// Contents are instantiated where the <contents> element is, but resolve names
// in the scope that used the component.
func (in *interp) contents(s *scope.Scope) {
	tpl, owner := s.ContentsOwner()
	if owner == nil {
		logger.Printf("contents outside of a component instance in scope %s", s)
		return
	}
	slot := s.NewChild()
	slot.SetCaller(owner.Parent())
	in.instantiate(slot, tpl)
}

func (in *interp) store(s *scope.Scope, id, get, authID string) {
	var auth *ctrl.Auth
	if authID != "" {
		if d, ok := s.Lookup(authID); ok {
			auth, _ = d.Value().(*ctrl.Auth)
		}
		if auth == nil {
			logger.Printf("store %s: %q is not an authentication controller", id, authID)
		}
	}
	st := ctrl.NewStore(in.rt.env, id, get, auth)
	if in.bindController(s, id, st, st.Close) {
		st.Fetch()
	}
}

// Binds a controller and closes it with the scope. It reports whether the
// name was free.
func (in *interp) bindController(s *scope.Scope, id string, v any, close func()) bool {
	if !in.bindName(s, id, in.eng.Const(v)) {
		if close != nil {
			close()
		}
		return false
	}
	if close != nil {
		s.OnDestroy(close)
	}
	return true
}

func (in *interp) bindName(s *scope.Scope, name string, d *dep.Dep) bool {
	if s.Bound(name) {
		logger.Printf("name %q bound twice in scope %s; keeping the first", name, s)
		return false
	}
	s.Bind(name, d)
	return true
}

// Calls fn with the value of d now and whenever it changes.
func (in *interp) bind(s *scope.Scope, d *dep.Dep, fn func(any)) {
	if d.IsConst() {
		fn(d.Value())
		return
	}
	w := in.eng.Func(func(*dep.Dep) { fn(d.Value()) })
	s.Subscribe(d, w)
}
