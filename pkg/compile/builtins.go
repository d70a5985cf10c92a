package compile

import "strings"

func registerStandard(ctx *Context) {
	ctx.RegisterDirective("if", func(ctx *Context, p *Proxy, value, _ string) {
		p.Cond(p.CondExpr(value))
	})
	ctx.RegisterDirective("repeat", repeatDirective)
	ctx.RegisterDirective("if-route", func(ctx *Context, p *Proxy, value, _ string) {
		p.Cond(routeCond(ctx, p, value))
	})
	ctx.RegisterDirective("class", classDirective)
	ctx.RegisterDirective("style", styleDirective)
	ctx.RegisterDirective("tap-select", tapSelectDirective)
	ctx.RegisterDirective("submit", func(ctx *Context, p *Proxy, value, _ string) {
		p.FormSubmit(p.Expr(value))
	})

	ctx.RegisterPrefix("class-", func(ctx *Context, p *Proxy, value, name string) {
		p.CondClass(name, p.CondExpr(value))
	})
	ctx.RegisterPrefix("style-", func(ctx *Context, p *Proxy, value, name string) {
		p.BindStyle(name, p.TextExpr(value))
	})

	ctx.RegisterCond("route", routeCond)

	ctx.RegisterBuiltin("router", routerBuiltin)
	ctx.RegisterBuiltin("authentication", authBuiltin)
	ctx.RegisterBuiltin("store", storeBuiltin)
	ctx.RegisterBuiltin("model", modelBuiltin)
	ctx.RegisterBuiltin("contents", contentsBuiltin)
}

func routeCond(ctx *Context, p *Proxy, rest string) Expr {
	e, err := RouteIs(ctx.Router(p.src), rest)
	if err != nil {
		ctx.Errorf(p.src, "%v", err)
		return Never()
	}
	return e
}

// repeat="name from expr"
func repeatDirective(ctx *Context, p *Proxy, value, _ string) {
	name, src, ok := strings.Cut(value, " from ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		ctx.Errorf(p.src, `incorrect syntax, must be repeat="name from expr": %q`, value)
		return
	}
	p.Repeat(p.Expr(src), name)
}

// class="a b {expr}": literal parts add classes, expressions add the class
// they evaluate to.
func classDirective(ctx *Context, p *Proxy, value, _ string) {
	parts, err := ParseText(value)
	if err != nil {
		ctx.Errorf(p.src, "%v", err)
	}
	for _, part := range parts {
		if t, ok := part.(*ConstText); ok {
			p.AddClass(t.Text)
		} else {
			p.BindClass(part)
		}
	}
}

// style="name: text; ..."
func styleDirective(ctx *Context, p *Proxy, value, _ string) {
	for _, decl := range strings.Split(value, ";") {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		name, text, ok := strings.Cut(decl, ":")
		if !ok {
			ctx.Errorf(p.src, "style declaration must be name: value: %q", decl)
			continue
		}
		p.BindStyle(strings.TrimSpace(name), p.TextExpr(strings.TrimSpace(text)))
	}
}

// tap-select="target = value"
func tapSelectDirective(ctx *Context, p *Proxy, value, _ string) {
	i := assignIndex(value)
	if i < 0 {
		ctx.Errorf(p.src, `incorrect syntax, must be tap-select="target = value": %q`, value)
		return
	}
	p.TapSelect(p.Expr(value[:i]), p.Expr(value[i+1:]))
}

// Returns the index of the first "=" that is not part of "==" or "!=".
func assignIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && s[i-1] == '!' {
			continue
		}
		return i
	}
	return -1
}

// Builtin controllers cannot be wrapped in conditions or repeats. Most of them
// also cannot have children.
func checkController(ctx *Context, p *Proxy, childless bool) bool {
	if p.Wrapped() {
		ctx.Errorf(p.src, "component %q cannot be conditional or repeated", p.tag)
		return false
	}
	if childless && hasElements(p.children) {
		ctx.Errorf(p.src, "component %q cannot have any child elements", p.tag)
		return false
	}
	return true
}

// Reports whether nodes contain anything other than whitespace text.
func hasElements(nodes []Node) bool {
	for _, n := range nodes {
		if t, ok := n.(*Text); !ok || strings.TrimSpace(t.Text) != "" {
			return true
		}
	}
	return false
}

func routerBuiltin(ctx *Context, p *Proxy) Node {
	if !checkController(ctx, p, true) {
		return nil
	}
	if id, ok := p.LiteralAttr("id"); ok {
		ctx.AddController(&Router{id})
	}
	return nil
}

// The children of an authentication element are shown while authentication
// is required, so they usually hold a login form.
func authBuiltin(ctx *Context, p *Proxy) Node {
	if !checkController(ctx, p, false) {
		return nil
	}
	id, ok := p.LiteralAttr("id")
	if !ok {
		return nil
	}
	login, _ := p.OptionalAttr("login")
	ctx.AddController(&Auth{id, login})
	if len(p.children) == 0 {
		return nil
	}
	return &Cond{&Lookup{[]string{id, "auth_required"}}, p.children}
}

func storeBuiltin(ctx *Context, p *Proxy) Node {
	if !checkController(ctx, p, true) {
		return nil
	}
	id, ok1 := p.LiteralAttr("id")
	get, ok2 := p.LiteralAttr("get")
	auth, _ := p.OptionalAttr("auth")
	if ok1 && ok2 {
		ctx.AddController(&Store{id, get, auth})
	}
	return nil
}

func modelBuiltin(ctx *Context, p *Proxy) Node {
	if !checkController(ctx, p, true) {
		return nil
	}
	if id, ok := p.LiteralAttr("id"); ok {
		ctx.AddController(&Model{id})
	}
	return nil
}

func contentsBuiltin(ctx *Context, p *Proxy) Node {
	if !ctx.InComponent() {
		ctx.Errorf(p.src, "contents can only be used inside a component")
		return nil
	}
	return &Contents{}
}
