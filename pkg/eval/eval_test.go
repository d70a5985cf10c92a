package eval

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/net/html"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/compile"
	"src.manglr.sh/pkg/config"
	"src.manglr.sh/pkg/ctrl"
	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/testutil"
	"src.manglr.sh/pkg/vals"
	"src.manglr.sh/pkg/view"
	"src.manglr.sh/pkg/view/htmlview"
)

func compileSrc(t *testing.T, src string) *code.Program {
	t.Helper()
	body, err := compile.LoadYAML("test.yaml", []byte(testutil.Dedent(src)))
	if err != nil {
		t.Fatal(err)
	}
	prog, diags := compile.Compile("test.yaml", body)
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %v", d)
	}
	return prog
}

func mount(t *testing.T, src string, opts Opts) (*Runtime, *htmlview.Host) {
	t.Helper()
	if opts.Host == nil {
		opts.Host = htmlview.New()
	}
	rt, err := Mount(compileSrc(t, src), opts)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	rt.Flush()
	return rt, opts.Host.(*htmlview.Host)
}

func data(kv ...any) map[string]any {
	m := make(map[string]any)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func newModel(eng *dep.Engine, kv ...any) *vals.Model {
	return vals.NewModelFrom(eng, data(kv...))
}

func textOf(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	s := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			s += c.Data
		} else {
			s += textOf(c)
		}
	}
	return s
}

func wantHTML(t *testing.T, h *htmlview.Host, want string) {
	t.Helper()
	if got := h.String(); got != want {
		t.Errorf("got HTML %q, want %q", got, want)
	}
}

func countEdges(s *scope.Scope) int {
	n := s.Edges()
	for _, c := range s.Children() {
		n += countEdges(c)
	}
	return n
}

func TestBoundTextUnderCondition(t *testing.T) {
	rt, h := mount(t, `
		- p:
		    if: ui.active
		    children: ["Hi {user.name}"]
		`, Opts{Data: data(
		"ui", map[string]any{"active": false},
		"user", map[string]any{"name": "Ann"})})
	wantHTML(t, h, "")

	ui, user := rt.Model("ui"), rt.Model("user")
	ui.Field("active").Set(true)
	rt.Flush()
	wantHTML(t, h, "<p>Hi Ann</p>")

	user.Field("name").Set("Bob")
	rt.Flush()
	wantHTML(t, h, "<p>Hi Bob</p>")

	ui.Field("active").Set(false)
	rt.Flush()
	wantHTML(t, h, "")
	if n := countEdges(rt.Root()); n != 1 {
		t.Errorf("%d edges left after hiding, want 1 for the condition", n)
	}
}

func TestCondition_KeepsPlaceAmongSiblings(t *testing.T) {
	rt, h := mount(t, `
		- a: x
		- b:
		    if: ui.on
		    children: [y]
		- c: z
		`, Opts{Data: data("ui", map[string]any{"on": true})})
	wantHTML(t, h, "<a>x</a><b>y</b><c>z</c>")
	on := rt.Model("ui").Field("on")
	on.Set(false)
	rt.Flush()
	wantHTML(t, h, "<a>x</a><c>z</c>")
	on.Set(true)
	rt.Flush()
	wantHTML(t, h, "<a>x</a><b>y</b><c>z</c>")
}

func todo(id int, title string) map[string]any {
	return map[string]any{"id": id, "title": title}
}

const todoList = `
	- ul:
	  - li:
	      repeat: t from list.items
	      children: ["{t.title}"]
	`

func TestRepeat_ReusesScopesByKey(t *testing.T) {
	rt, h := mount(t, todoList, Opts{Data: data("list", map[string]any{
		"items": []any{todo(1, "a"), todo(2, "b"), todo(3, "c")}})})
	wantHTML(t, h, "<ul><li>a</li><li>b</li><li>c</li></ul>")
	before := h.FindAll("li")

	rt.Model("list").Field("items").Set([]any{todo(3, "c"), todo(1, "a"), todo(4, "d")})
	rt.Flush()
	wantHTML(t, h, "<ul><li>c</li><li>a</li><li>d</li></ul>")
	after := h.FindAll("li")
	if after[0] != before[2] || after[1] != before[0] {
		t.Errorf("retained items were recreated")
	}
	if after[2] == before[1] {
		t.Errorf("new item reused the node of a removed one")
	}
	if before[1].Parent != nil {
		t.Errorf("removed item still attached")
	}
}

func TestRepeat_ReversalKeepsIdentity(t *testing.T) {
	rt, h := mount(t, todoList, Opts{Data: data("list", map[string]any{
		"items": []any{todo(1, "a"), todo(2, "b"), todo(3, "c")}})})
	before := h.FindAll("li")
	rt.Model("list").Field("items").Set([]any{todo(3, "c"), todo(2, "b"), todo(1, "a")})
	rt.Flush()
	wantHTML(t, h, "<ul><li>c</li><li>b</li><li>a</li></ul>")
	after := h.FindAll("li")
	for i := range after {
		if after[i] != before[2-i] {
			t.Errorf("item %d was recreated", i)
		}
	}
}

func TestRepeat_UpdatesRetainedItem(t *testing.T) {
	rt, h := mount(t, todoList, Opts{Data: data("list", map[string]any{
		"items": []any{todo(1, "a")}})})
	before := h.Find("li")
	rt.Model("list").Field("items").Set([]any{todo(1, "A")})
	rt.Flush()
	wantHTML(t, h, "<ul><li>A</li></ul>")
	if h.Find("li") != before {
		t.Errorf("item was recreated")
	}
}

func TestRepeat_KeysWithoutIDByIndex(t *testing.T) {
	rt, h := mount(t, `
		- span:
		    repeat: x from list.items
		    children: ["{x}"]
		`, Opts{Data: data("list", map[string]any{"items": []any{"a", "b"}})})
	wantHTML(t, h, "<span>a</span><span>b</span>")
	first := h.Find("span")
	rt.Model("list").Field("items").Set([]any{"z"})
	rt.Flush()
	wantHTML(t, h, "<span>z</span>")
	if h.Find("span") != first {
		t.Errorf("item at index 0 was recreated")
	}
}

func TestRepeat_NonListIsEmpty(t *testing.T) {
	rt, h := mount(t, todoList, Opts{Data: data("list", map[string]any{
		"items": []any{todo(1, "a")}})})
	rt.Model("list").Field("items").Set("not a list")
	rt.Flush()
	wantHTML(t, h, "<ul></ul>")
	rt.Model("list").Field("items").Set(nil)
	rt.Flush()
	wantHTML(t, h, "<ul></ul>")
}

func TestConstantExpressionsAreFolded(t *testing.T) {
	rt, h := mount(t, `
		- p: "{1 + 2} {'a' == 'a'} {!missing}"
		- b:
		    if: greeting
		    children: ["{greeting}"]
		`, Opts{Data: data("greeting", "hello")})
	wantHTML(t, h, "<p>3  </p><b>hello</b>")
	if n := countEdges(rt.Root()); n != 0 {
		t.Errorf("%d edges for constant expressions, want 0", n)
	}
}

func TestArithmeticAndFields(t *testing.T) {
	rt, h := mount(t, `
		- p: "{n.count * 2 + 1}"
		`, Opts{Data: data("n", map[string]any{"count": 3})})
	wantHTML(t, h, "<p>7</p>")
	rt.Model("n").Field("count").Set(10)
	rt.Flush()
	wantHTML(t, h, "<p>21</p>")
}

func TestFieldOfVaryingModel(t *testing.T) {
	rt, h := mount(t, `
		- p: "{sel.current.name}"
		`, Opts{Data: data("sel", map[string]any{"current": nil})})
	wantHTML(t, h, "<p></p>")

	eng := rt.Engine()
	a := newModel(eng, "name", "a")
	b := newModel(eng, "name", "b")
	current := rt.Model("sel").Field("current")
	current.Set(a)
	rt.Flush()
	wantHTML(t, h, "<p>a</p>")

	a.Field("name").Set("a2")
	rt.Flush()
	wantHTML(t, h, "<p>a2</p>")

	current.Set(b)
	rt.Flush()
	wantHTML(t, h, "<p>b</p>")
	// No longer following a.
	a.Field("name").Set("a3")
	rt.Flush()
	wantHTML(t, h, "<p>b</p>")
	if len(a.Field("name").Forward()) != 0 {
		t.Errorf("still subscribed to the old field")
	}
}

func TestAttributes(t *testing.T) {
	rt, h := mount(t, `
		- div:
		    id: box
		    class: "base {ui.theme}"
		    class-active: ui.active
		    style-color: "{ui.color}"
		    disabled: "{ui.active}"
		    title: "{ui.theme} box"
		`, Opts{Data: data("ui", map[string]any{
		"theme": "dark", "active": true, "color": "red"})})
	wantHTML(t, h, `<div id="box" title="dark box" disabled="" class="base dark active" style="color: red"></div>`)

	ui := rt.Model("ui")
	ui.Field("theme").Set("light")
	ui.Field("active").Set(false)
	ui.Field("color").Set("")
	rt.Flush()
	wantHTML(t, h, `<div id="box" title="light box" class="base light"></div>`)
}

func TestTapSelect(t *testing.T) {
	rt, h := mount(t, `
		- button:
		    tap-select: "ui.selected = 'a'"
		    children: [A]
		- p: "{ui.selected}"
		`, Opts{Data: data("ui", map[string]any{"selected": nil})})
	button := h.Find("button")
	click := view.Event{Type: "click"}

	h.Dispatch(button, click)
	rt.Flush()
	if got := textOf(h.Find("p")); got != "a" {
		t.Errorf("after first click, selected = %q, want a", got)
	}
	h.Dispatch(button, click)
	rt.Flush()
	if got := textOf(h.Find("p")); got != "" {
		t.Errorf("after second click, selected = %q, want empty", got)
	}
}

func TestFormSubmitToModel(t *testing.T) {
	rt, h := mount(t, `
		- form:
		    submit: login
		    children:
		      - p: "{login.user}"
		- model: {id: login}
		`, Opts{})
	if rt.Model("login") == nil {
		t.Fatal("model controller not registered")
	}
	h.Dispatch(h.Find("form"), view.Event{Type: "submit", Form: map[string]any{"user": "ann"}})
	rt.Flush()
	if got := textOf(h.Find("p")); got != "ann" {
		t.Errorf("p = %q, want ann", got)
	}
	if v := rt.Model("login").Field("user").Value(); v != "ann" {
		t.Errorf("model field user = %v", v)
	}
}

func TestComponentWithContents(t *testing.T) {
	_, h := mount(t, `
		- component:
		    tag: my-card
		    children:
		      - div:
		          - b: "{name}"
		          - contents:
		- my-card:
		    name: inner
		    children: ["{name}"]
		`, Opts{Data: data("name", "outer")})
	wantHTML(t, h, "<div><b>inner</b>outer</div>")
}

func TestNestedContents(t *testing.T) {
	_, h := mount(t, `
		- component:
		    tag: x-inner
		    children:
		      - i: [{contents: }]
		- component:
		    tag: x-outer
		    children:
		      - x-inner: [{contents: }]
		- x-outer: [hello]
		`, Opts{})
	wantHTML(t, h, "<i>hello</i>")
}

func TestContentsWithoutPassthrough(t *testing.T) {
	_, h := mount(t, `
		- component:
		    tag: x-empty
		    children:
		      - p: [{contents: }]
		- component:
		    tag: x-wrap
		    children:
		      - x-empty:
		- x-wrap: [ignored]
		`, Opts{})
	wantHTML(t, h, "<p></p>")
}

func TestRouteConditions(t *testing.T) {
	history := ctrl.NewMemHistory("/home")
	rt, h := mount(t, `
		- router: {id: nav}
		- p:
		    if: "route: /home"
		    children: [home]
		- p:
		    if-route: /about
		    children: [about]
		- span: "{nav.query.tab}"
		`, Opts{History: history})
	wantHTML(t, h, "<p>home</p><span></span>")

	history.Push("/about?tab=2")
	rt.Flush()
	wantHTML(t, h, "<p>about</p><span>2</span>")
}

func TestStoreFeedsRepeat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "title": "x"}, {"id": 2, "title": "y"}]`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Store.RetryBudget = 1
	rt, h := mount(t, fmt.Sprintf(`
		- store: {id: todos, get: "%s/todos"}
		- p:
		    if: todos.loading
		    children: [loading]
		- li:
		    repeat: t from todos.items
		    children: ["{t.title}"]
		`, srv.URL), Opts{Config: cfg})
	defer rt.Close()

	want := "<li>x</li><li>y</li>"
	deadline := time.Now().Add(testutil.Scaled(5 * time.Second))
	for h.String() != want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
		rt.Flush()
	}
	wantHTML(t, h, want)
}

func TestMalformedPrograms(t *testing.T) {
	tests := []struct {
		name    string
		raw     []int
		symbols []string
		check   func(error) bool
	}{
		{"bad node opcode", []int{1, 2, 1, 99}, nil, isBadOpcode("node", 99, 3)},
		{"bad opcode after element", []int{1, 2, 1, 2, 0, 0, 1, 99}, []string{"div"},
			isBadOpcode("node", 99, 7)},
		{"bad attribute opcode", []int{1, 2, 1, 2, 0, 1, 42}, []string{"div"},
			isBadOpcode("attribute", 42, 6)},
		{"bad expression opcode", []int{1, 2, 1, 1, 17}, nil, isBadOpcode("expression", 17, 4)},
		{"truncated", []int{1, 2, 1, 1}, nil, isFormatError},
		{"missing symbol", []int{1, 2, 1, 0, 5}, nil, isFormatError},
		{"missing template", []int{1, 2, 1, 4, 7, 0, 0}, []string{"x"}, isFormatError},
		{"empty lookup", []int{1, 2, 1, 1, 2, 0}, nil, isFormatError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			prog, err := code.Load(test.raw, test.symbols)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			h := htmlview.New()
			rt, err := Mount(prog, Opts{Host: h})
			if rt != nil || !test.check(err) {
				t.Errorf("Mount returned (%v, %v)", rt, err)
			}
			wantHTML(t, h, "")
		})
	}
}

func isBadOpcode(kind string, op, pos int) func(error) bool {
	return func(err error) bool {
		var e *BadOpcode
		return errors.As(err, &e) && *e == BadOpcode{kind, op, pos}
	}
}

func isFormatError(err error) bool {
	var e *code.FormatError
	return errors.As(err, &e)
}

func TestMount_NoTemplates(t *testing.T) {
	prog, err := code.Load([]int{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Mount(prog, Opts{}); err != errNoTemplates {
		t.Errorf("got error %v, want %v", err, errNoTemplates)
	}
}

func TestRun_DecodesTransport(t *testing.T) {
	prog := compileSrc(t, `- p: "{1 + 1}"`)
	h := htmlview.New()
	rt, err := Run(code.Encode(prog.Raw), prog.Symbols, Opts{Host: h})
	if err != nil {
		t.Fatal(err)
	}
	rt.Flush()
	wantHTML(t, h, "<p>2</p>")

	if _, err := Run("\x01", nil, Opts{}); err == nil {
		t.Errorf("Run accepted a bad transport string")
	}
}

func TestClose_RemovesEverything(t *testing.T) {
	rt, h := mount(t, `
		- button:
		    tap-select: "ui.x = 1"
		- p:
		    if: ui.x
		    children: ["{ui.x}"]
		- model: {id: m}
		`, Opts{Data: data("ui", map[string]any{"x": 1})})
	if h.Listeners() != 1 {
		t.Fatalf("%d listeners, want 1", h.Listeners())
	}
	rt.Close()
	wantHTML(t, h, "")
	if h.Listeners() != 0 {
		t.Errorf("%d listeners left after Close", h.Listeners())
	}
	if n := countEdges(rt.Root()); n != 0 {
		t.Errorf("%d edges left after Close", n)
	}
	if len(rt.Model("ui").Field("x").Forward()) != 0 {
		t.Errorf("model field still has subscribers")
	}
}

func TestData_SortedModels(t *testing.T) {
	rt, _ := mount(t, `- p: x`, Opts{Data: data(
		"b", map[string]any{}, "a", map[string]any{}, "c", "text")})
	if got := rt.Models(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Models() = %v", got)
	}
}

func TestCondition_PresentRightAfterMount(t *testing.T) {
	h := htmlview.New()
	rt, err := Mount(compileSrc(t, `
		- p:
		    if: user.active
		    children: ["Hi {user.name}"]
		`), Opts{Host: h, Data: data("user", map[string]any{"active": true, "name": "Al"})})
	if err != nil {
		t.Fatal(err)
	}
	wantHTML(t, h, "<p>Hi Al</p>")

	user := rt.Model("user")
	user.Field("active").Set(false)
	rt.Flush()
	wantHTML(t, h, "")
	user.Field("name").Set("Bo")
	user.Field("active").Set(true)
	rt.Flush()
	wantHTML(t, h, "<p>Hi Bo</p>")
}

func TestBoundClass_KeepsLiteralClass(t *testing.T) {
	rt, h := mount(t, `
		- div:
		    class: "base {ui.theme}"
		`, Opts{Data: data("ui", map[string]any{"theme": "base"})})
	wantHTML(t, h, `<div class="base"></div>`)

	theme := rt.Model("ui").Field("theme")
	theme.Set("dark")
	rt.Flush()
	wantHTML(t, h, `<div class="base dark"></div>`)
	theme.Set("light")
	rt.Flush()
	wantHTML(t, h, `<div class="base light"></div>`)
}

func TestRepeat_ModelsWithoutIDAreNotChanged(t *testing.T) {
	rt, h := mount(t, `
		- span:
		    repeat: x from list.items
		    children: ["{x.name}"]
		`, Opts{Data: data("list", map[string]any{"items": nil})})
	a := newModel(rt.Engine(), "name", "a")
	b := newModel(rt.Engine(), "name", "b")
	rt.Model("list").Field("items").Set([]any{a, b})
	rt.Flush()
	wantHTML(t, h, "<span>a</span><span>b</span>")
	if a.Has("id") || b.Has("id") {
		t.Errorf("repeating over models added an id field")
	}
}
