package compile

import "strings"

// Proxy collects what the directives on an element contribute before the
// element's node is built.
type Proxy struct {
	ctx *Context
	src *SourceNode
	tag string
	// Set when the tag is a component in scope.
	comp *component

	attrs    []Attr
	conds    []Expr
	repeats  []repeat
	children []Node
}

type repeat struct {
	name string
	expr Expr
}

// Tag returns the lowercase tag of the element.
func (p *Proxy) Tag() string { return p.tag }

// Source returns the source node of the element.
func (p *Proxy) Source() *SourceNode { return p.src }

// IsComponent reports whether the element instantiates a component.
func (p *Proxy) IsComponent() bool { return p.comp != nil }

// Children returns the parsed children of the element. It is only meaningful
// to builtin handlers.
func (p *Proxy) Children() []Node { return p.children }

// Wrapped reports whether conditions or repeats were added to the element.
func (p *Proxy) Wrapped() bool { return len(p.conds) > 0 || len(p.repeats) > 0 }

// Expr parses an expression, recording a diagnostic on error.
func (p *Proxy) Expr(src string) Expr {
	e, err := ParseExpr(src)
	if err != nil {
		p.ctx.Errorf(p.src, "%v", err)
	}
	return e
}

// TextExpr parses a text template, recording a diagnostic on error.
func (p *Proxy) TextExpr(text string) Expr {
	e, err := ParseTextExpr(text)
	if err != nil {
		p.ctx.Errorf(p.src, "%v", err)
	}
	return e
}

// CondExpr parses a condition: either an expression or a named condition
// of the form "name: rest". Conditions that fail to compile are never true.
func (p *Proxy) CondExpr(src string) Expr {
	if name, rest, ok := splitNamedCond(src); ok {
		fn, ok := p.ctx.conds[name]
		if !ok {
			p.ctx.Errorf(p.src, "no handler registered for modular condition named %q", name)
			return Never()
		}
		return fn(p.ctx, p, rest)
	}
	e, err := ParseExpr(src)
	if err != nil {
		p.ctx.Errorf(p.src, "%v", err)
		return Never()
	}
	return e
}

// Splits "name: rest", where name starts with a letter.
func splitNamedCond(src string) (name, rest string, ok bool) {
	s := strings.TrimLeft(src, " \t")
	i := 0
	for i < len(s) && (isNameStart(s[i]) || i > 0 && (isDigit(s[i]) || s[i] == '-')) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != ':' {
		return "", "", false
	}
	return s[:i], strings.TrimSpace(s[i+1:]), true
}

// Cond wraps the element in a condition.
func (p *Proxy) Cond(e Expr) { p.conds = append(p.conds, e) }

// Repeat wraps the element in a repeat binding each item to name.
func (p *Proxy) Repeat(e Expr, name string) {
	p.repeats = append(p.repeats, repeat{name, e})
}

// AddClass adds literal classes, split on whitespace.
func (p *Proxy) AddClass(names string) {
	if p.checkNotComponent("a class") {
		for _, name := range strings.Fields(names) {
			p.attrs = append(p.attrs, &ClassAttr{name})
		}
	}
}

// BindClass adds the class named by the value of an expression.
func (p *Proxy) BindClass(e Expr) {
	if p.checkNotComponent("a class") {
		p.attrs = append(p.attrs, &BoundClassAttr{e})
	}
}

// CondClass adds a class while an expression is truthy.
func (p *Proxy) CondClass(name string, e Expr) {
	if p.checkNotComponent("a class") {
		p.attrs = append(p.attrs, &CondClassAttr{name, e})
	}
}

// BindStyle binds a style property.
func (p *Proxy) BindStyle(name string, e Expr) {
	if p.checkNotComponent("a style") {
		p.attrs = append(p.attrs, &StyleAttr{name, e})
	}
}

// TapSelect makes clicks on the element toggle target between value and nil.
func (p *Proxy) TapSelect(target, value Expr) {
	if p.checkNotComponent("an event binding") {
		p.attrs = append(p.attrs, &TapSelectAttr{target, value})
	}
}

// FormSubmit passes submitted form fields to target.
func (p *Proxy) FormSubmit(target Expr) {
	if p.checkNotComponent("an event binding") {
		p.attrs = append(p.attrs, &FormSubmitAttr{target})
	}
}

func (p *Proxy) checkNotComponent(what string) bool {
	if p.comp != nil {
		p.ctx.Errorf(p.src, "cannot add %s to a custom component tag", what)
		return false
	}
	return true
}

// BindAttr binds an attribute to an expression. On host elements, names of
// boolean properties become property bindings under their canonical names.
func (p *Proxy) BindAttr(name string, e Expr) {
	if p.comp == nil {
		if prop, ok := boolProps[strings.ToLower(name)]; ok {
			if t, ok := e.(*ConstText); ok {
				p.attrs = append(p.attrs, &BoolAttr{prop, literalBool(t.Text)})
			} else {
				p.attrs = append(p.attrs, &BoundBoolAttr{prop, e})
			}
			return
		}
	}
	if t, ok := e.(*ConstText); ok {
		p.attrs = append(p.attrs, &TextAttr{name, t.Text})
	} else {
		p.attrs = append(p.attrs, &BoundTextAttr{name, e})
	}
}

// A boolean attribute is on when present, unless its value says otherwise.
func literalBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

// LiteralAttr returns the literal value of an attribute. If the attribute is
// missing or bound to an expression, it records a diagnostic and returns
// false.
func (p *Proxy) LiteralAttr(name string) (string, bool) {
	if v, ok := p.OptionalAttr(name); ok {
		return v, true
	}
	p.ctx.Errorf(p.src, "component requires an %q attribute", name)
	return "", false
}

// OptionalAttr is like LiteralAttr, but records no diagnostic.
func (p *Proxy) OptionalAttr(name string) (string, bool) {
	for _, a := range p.attrs {
		if t, ok := a.(*TextAttr); ok && t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// Returns the arguments of a component instance.
func (p *Proxy) args() []Arg {
	var args []Arg
	for _, a := range p.attrs {
		switch a := a.(type) {
		case *TextAttr:
			args = append(args, Arg{a.Name, &ConstText{a.Value}})
		case *BoundTextAttr:
			args = append(args, Arg{a.Name, a.Expr})
		}
	}
	return args
}

// Canonical names of boolean properties, keyed by lowercase name.
var boolProps = make(map[string]string)

func init() {
	for _, name := range strings.Split("allowFullscreen|async|autofocus|autoplay|"+
		"checked|compact|controls|declare|default|defaultChecked|defaultMuted|"+
		"defaultSelected|defer|disabled|draggable|enabled|formNoValidate|hidden|"+
		"indeterminate|inert|isMap|itemScope|loop|multiple|muted|noHref|noResize|"+
		"noShade|noValidate|noWrap|open|pauseOnExit|readOnly|required|reversed|"+
		"scoped|seamless|selected|sortable|spellcheck|translate|trueSpeed|"+
		"typeMustMatch|visible", "|") {
		boolProps[strings.ToLower(name)] = name
	}
}
