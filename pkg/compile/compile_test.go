package compile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.manglr.sh/pkg/code"
)

func compileYAML(t *testing.T, src string) (*Context, *code.Program) {
	t.Helper()
	body, err := LoadYAML("test.yaml", []byte(src))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	ctx := NewContext("test.yaml")
	prog := ctx.Compile(body)
	return ctx, prog
}

func messages(ctx *Context) []string {
	var msgs []string
	for _, d := range ctx.Diags {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestEncode_Layout(t *testing.T) {
	ctx := NewContext("test")
	root := ctx.Reserve()
	ctx.Define(root, []Node{&Text{"Hi "}, &BoundText{path("user", "name")}})
	prog := ctx.Encode()

	wantRaw := []int{1, 2, 2, 0, 0, 1, 2, 2, 1, 2}
	if diff := cmp.Diff(wantRaw, prog.Raw); diff != "" {
		t.Errorf("Raw (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Hi ", "user", "name"}, prog.Symbols); diff != "" {
		t.Errorf("Symbols (-want +got):\n%s", diff)
	}
}

func TestEncode_AllocatesNestedTemplates(t *testing.T) {
	ctx := NewContext("test")
	root := ctx.Reserve()
	ctx.Define(root, []Node{&Cond{path("a"), []Node{&Text{"x"}}}})
	prog := ctx.Encode()

	wantRaw := []int{2, 3, 6, 1, 4, 2, 2, 1, 0, 1, 0, 1}
	if diff := cmp.Diff(wantRaw, prog.Raw); diff != "" {
		t.Errorf("Raw (-want +got):\n%s", diff)
	}
	if prog.NumTemplates() != 2 {
		t.Errorf("NumTemplates() = %d, want 2", prog.NumTemplates())
	}
}

func TestEncode_EmptyBodiesUseTemplateZero(t *testing.T) {
	ctx := NewContext("test")
	root := ctx.Reserve()
	ctx.Define(root, []Node{&Cond{path("a"), nil}})
	prog := ctx.Encode()

	r := prog.Template(1)
	if r.Count() != 1 || code.NodeOp(r.Next()) != code.NodeCondition {
		t.Fatalf("want a single condition node")
	}
	if tpl := r.Next(); tpl != 0 {
		t.Errorf("condition template = %d, want 0", tpl)
	}
}

func TestEncode_SortsAttributesByOpcode(t *testing.T) {
	ctx, prog := compileYAML(t, `
- div:
    class-on: x
    id: main
`)
	if len(ctx.Diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(ctx))
	}
	wantRaw := []int{1, 2, 1, 2, 0, 2, 0, 1, 2, 6, 3, 2, 1, 4, 0}
	if diff := cmp.Diff(wantRaw, prog.Raw); diff != "" {
		t.Errorf("Raw (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"div", "id", "main", "on", "x"}, prog.Symbols); diff != "" {
		t.Errorf("Symbols (-want +got):\n%s", diff)
	}
}

func TestCompile_Components(t *testing.T) {
	ctx, _ := compileYAML(t, `
- component:
    tag: user-card
    children:
      - model: {id: draft}
      - p: "{name}"
      - contents:
- user-card:
    name: "{user.name}"
    children: [Hello]
`)
	if len(ctx.Diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(ctx))
	}
	want := [][]Node{
		{&Component{Tag: "user-card", Tpl: 2,
			Args:     []Arg{{"name", path("user", "name")}},
			Contents: []Node{&Text{"Hello"}}}},
		{&Model{"draft"},
			&Element{Tag: "p", Children: []Node{&BoundText{path("name")}}},
			&Contents{}},
		// Allocated for the contents while encoding.
		{&Text{"Hello"}},
	}
	if diff := cmp.Diff(want, ctx.templates); diff != "" {
		t.Errorf("templates (-want +got):\n%s", diff)
	}
}

func TestCompile_Attributes(t *testing.T) {
	ctx, _ := compileYAML(t, `
- input:
    readonly: ""
    disabled: "{locked}"
    hidden: "false"
    class: "a b {extra}"
    class-active: "on"
    style: "color: {c}; width: 10px"
    value: "{v}"
    type: text
`)
	if len(ctx.Diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(ctx))
	}
	want := []Node{&Element{Tag: "input", Attrs: []Attr{
		&BoolAttr{"readOnly", true},
		&BoundBoolAttr{"disabled", path("locked")},
		&BoolAttr{"hidden", false},
		&ClassAttr{"a"},
		&ClassAttr{"b"},
		&BoundClassAttr{path("extra")},
		&CondClassAttr{"active", path("on")},
		&StyleAttr{"color", path("c")},
		&StyleAttr{"width", &ConstText{"10px"}},
		&BoundTextAttr{"value", path("v")},
		&TextAttr{"type", "text"},
	}}}
	if diff := cmp.Diff(want, ctx.templates[0]); diff != "" {
		t.Errorf("root template (-want +got):\n%s", diff)
	}
}

func TestCompile_Events(t *testing.T) {
	ctx, _ := compileYAML(t, `
- button:
    tap-select: "selected = item.id"
- form:
    submit: draft
`)
	if len(ctx.Diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(ctx))
	}
	want := []Node{
		&Element{Tag: "button", Attrs: []Attr{
			&TapSelectAttr{path("selected"), path("item", "id")}}},
		&Element{Tag: "form", Attrs: []Attr{&FormSubmitAttr{path("draft")}}},
	}
	if diff := cmp.Diff(want, ctx.templates[0]); diff != "" {
		t.Errorf("root template (-want +got):\n%s", diff)
	}
}

func TestCompile_ControllersAndConditions(t *testing.T) {
	ctx, _ := compileYAML(t, `
- p: hi
- authentication:
    id: auth
    login: /login
    children:
      - form: {submit: auth}
- router: {id: nav}
- div: {if: "route: /home"}
- li:
    repeat: "t from todos"
    if: t.done
    children: ["{t.title}"]
`)
	if len(ctx.Diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(ctx))
	}
	li := &Element{Tag: "li", Children: []Node{&BoundText{path("t", "title")}}}
	want := []Node{
		&Auth{"auth", "/login"},
		&Router{"nav"},
		&Element{Tag: "p", Children: []Node{&Text{"hi"}}},
		&Cond{path("auth", "auth_required"), []Node{
			&Element{Tag: "form", Attrs: []Attr{&FormSubmitAttr{path("auth")}}}}},
		&Cond{bin(code.ExprEquals, path("nav", "route"), &ConstText{"/home"}),
			[]Node{&Element{Tag: "div"}}},
		&Cond{path("t", "done"), []Node{
			&Repeat{"t", path("todos"), []Node{li}}}},
	}
	if diff := cmp.Diff(want, ctx.templates[0]); diff != "" {
		t.Errorf("root template (-want +got):\n%s", diff)
	}
}

func TestCompile_FailedConditionIsNever(t *testing.T) {
	ctx, _ := compileYAML(t, `
- div: {if: "a +"}
`)
	want := []Node{&Cond{Never(), []Node{&Element{Tag: "div"}}}}
	if diff := cmp.Diff(want, ctx.templates[0]); diff != "" {
		t.Errorf("root template (-want +got):\n%s", diff)
	}
	if len(ctx.Diags) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(ctx.Diags))
	}
}

var diagnosticTests = []struct {
	name string
	src  string
	want string
}{
	{"duplicate tag", `
- component: {tag: x-a}
- component: {tag: x-a}
`, `duplicate component tag name "x-a"`},
	{"missing tag", `
- component: {}
`, `must have a "tag" attribute`},
	{"hidden tag", `
- component:
    tag: x-a
    children:
      - component: {tag: x-a}
`, `hides another component`},
	{"unknown custom tag", `
- my-tag: hi
`, `no component found (in scope) for custom tag "my-tag"`},
	{"unknown custom attribute", `
- div: {data-x: "1", foo-bar: "2"}
`, `custom attribute "foo-bar"`},
	{"contents outside component", `
- contents:
`, `contents can only be used inside a component`},
	{"controller with children", `
- router:
    id: nav
    children: [{p: x}]
`, `cannot have any child elements`},
	{"store without get", `
- store: {id: s}
`, `requires an "get" attribute`},
	{"conditional controller", `
- model: {id: m, if: x}
`, `cannot be conditional or repeated`},
	{"bad repeat", `
- li: {repeat: todos}
`, `incorrect syntax`},
	{"route without router", `
- div: {if-route: /home}
`, `no router in scope`},
	{"unknown named condition", `
- div: {if: "foo: bar"}
`, `modular condition named "foo"`},
	{"class on component", `
- component: {tag: x-a}
- x-a: {class-on: x}
`, `cannot add a class to a custom component tag`},
	{"bad tap-select", `
- a: {tap-select: x}
`, `must be tap-select="target = value"`},
	{"bad style", `
- a: {style: color}
`, `style declaration must be name: value`},
	{"bad text", `
- p: "{a +}"
`, `must be followed by an expression`},
}

func TestCompile_Diagnostics(t *testing.T) {
	for _, test := range diagnosticTests {
		t.Run(test.name, func(t *testing.T) {
			ctx, prog := compileYAML(t, test.src)
			if prog == nil {
				t.Fatalf("no program produced")
			}
			msgs := messages(ctx)
			for _, msg := range msgs {
				if strings.Contains(msg, test.want) {
					return
				}
			}
			t.Errorf("want a diagnostic containing %q, got %q", test.want, msgs)
		})
	}
}

func TestCompile_DiagnosticsCarryPosition(t *testing.T) {
	ctx, _ := compileYAML(t, "- p: ok\n- my-tag: x\n")
	if len(ctx.Diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(ctx.Diags))
	}
	c := ctx.Diags[0].Context
	if c.Name != "test.yaml" || c.Line != 2 || c.Column != 3 || c.Where != "<my-tag>" {
		t.Errorf("got context %+v", c)
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	ctx := NewContext("test")
	noop := func(*Context, *Proxy, string, string) {}
	if err := ctx.RegisterDirective("if", noop); err == nil {
		t.Errorf("registering the if directive twice succeeded")
	}
	if err := ctx.RegisterDirective("x-on", noop); err != nil {
		t.Errorf("RegisterDirective: %v", err)
	}
	if err := ctx.RegisterBuiltin("router", nil); err == nil {
		t.Errorf("registering the router builtin twice succeeded")
	}
}

func TestCompile_CustomDirective(t *testing.T) {
	body, err := LoadYAML("test.yaml", []byte(`- p: {x-upper: "{name}"}`))
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext("test.yaml")
	ctx.RegisterPrefix("x-", func(ctx *Context, p *Proxy, value, suffix string) {
		p.BindAttr("data-"+suffix, p.TextExpr(value))
	})
	ctx.Compile(body)
	want := []Node{&Element{Tag: "p", Attrs: []Attr{&BoundTextAttr{"data-upper", path("name")}}}}
	if diff := cmp.Diff(want, ctx.templates[0]); diff != "" {
		t.Errorf("root template (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	body, err := LoadYAML("t", []byte(`
- h1: Todos
- "loose text"
- ul:
    class: list
    children:
      - li: one
`))
	if err != nil {
		t.Fatal(err)
	}
	got := summarize(body)
	want := `body[h1["Todos"] "loose text" ul(class=list)[li["one"]]]`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestLoadYAML_Errors(t *testing.T) {
	for _, src := range []string{
		"- a: 1\n  b: 2\n",
		"- div: {x: [1]}\n",
		"- [1]\n",
		"- div: {children: {a: b}}\n",
		"- p: \"unclosed\n",
	} {
		if _, err := LoadYAML("t", []byte(src)); err == nil {
			t.Errorf("LoadYAML(%q) succeeded", src)
		}
	}
}

func summarize(n *SourceNode) string {
	if n.Tag == "" {
		return `"` + n.Text + `"`
	}
	var sb strings.Builder
	sb.WriteString(n.Tag)
	if len(n.Attrs) > 0 {
		sb.WriteString("(")
		for i, a := range n.Attrs {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(a.Name + "=" + a.Value)
		}
		sb.WriteString(")")
	}
	if len(n.Children) > 0 {
		sb.WriteString("[")
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(summarize(c))
		}
		sb.WriteString("]")
	}
	return sb.String()
}
