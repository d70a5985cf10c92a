package compile

import (
	"strings"

	"src.manglr.sh/pkg/code"
)

// Node is a node of a template. The set of implementations is closed.
type Node interface{ node() }

// Text is literal text.
type Text struct{ Text string }

// BoundText is a text node showing the value of an expression.
type BoundText struct{ Expr Expr }

// Element is a host element.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
}

// Component is an instance of a component.
type Component struct {
	Tag string
	// Template of the component body.
	Tpl  int
	Args []Arg
	// Passed through to the body, where Contents instantiates them.
	Contents []Node
}

// Arg is a named argument of a component instance.
type Arg struct {
	Name string
	Expr Expr
}

// Cond shows Body while Expr is truthy.
type Cond struct {
	Expr Expr
	Body []Node
}

// Repeat instantiates Body for each item of Expr, binding the item to Name.
type Repeat struct {
	Name string
	Expr Expr
	Body []Node
}

// Router binds a router controller to ID.
type Router struct{ ID string }

// Auth binds an authentication controller to ID.
type Auth struct{ ID, LoginURL string }

// Store binds a remote store controller to ID.
type Store struct{ ID, GetURL, AuthID string }

// Model binds an empty model to ID.
type Model struct{ ID string }

// Contents instantiates the passthrough contents of the enclosing component
// instance.
type Contents struct{}

func (*Text) node()      {}
func (*BoundText) node() {}
func (*Element) node()   {}
func (*Component) node() {}
func (*Cond) node()      {}
func (*Repeat) node()    {}
func (*Router) node()    {}
func (*Auth) node()      {}
func (*Store) node()     {}
func (*Model) node()     {}
func (*Contents) node()  {}

// Attr is an attribute binding of an element. The set of implementations is
// closed.
type Attr interface{ op() code.AttrOp }

// TextAttr is an attribute with a literal value.
type TextAttr struct{ Name, Value string }

// BoolAttr is a boolean property with a literal value.
type BoolAttr struct {
	Name  string
	Value bool
}

// BoundTextAttr is an attribute bound to an expression.
type BoundTextAttr struct {
	Name string
	Expr Expr
}

// BoundBoolAttr is a boolean property bound to the truthiness of an
// expression.
type BoundBoolAttr struct {
	Name string
	Expr Expr
}

// ClassAttr adds a literal class.
type ClassAttr struct{ Name string }

// BoundClassAttr adds the class named by the value of an expression.
type BoundClassAttr struct{ Expr Expr }

// CondClassAttr adds a class while an expression is truthy.
type CondClassAttr struct {
	Name string
	Expr Expr
}

// StyleAttr binds a style property to an expression.
type StyleAttr struct {
	Name string
	Expr Expr
}

// TapSelectAttr sets Target to Value when the element is clicked, or clears
// it if it already holds Value.
type TapSelectAttr struct{ Target, Value Expr }

// FormSubmitAttr passes the fields of a submitted form to Target.
type FormSubmitAttr struct{ Target Expr }

func (*TextAttr) op() code.AttrOp       { return code.AttrLiteralText }
func (*BoolAttr) op() code.AttrOp       { return code.AttrLiteralBool }
func (*BoundTextAttr) op() code.AttrOp  { return code.AttrBoundText }
func (*BoundBoolAttr) op() code.AttrOp  { return code.AttrBoundBool }
func (*ClassAttr) op() code.AttrOp      { return code.AttrLiteralClass }
func (*BoundClassAttr) op() code.AttrOp { return code.AttrBoundClass }
func (*CondClassAttr) op() code.AttrOp  { return code.AttrCondClass }
func (*StyleAttr) op() code.AttrOp      { return code.AttrBoundStyle }
func (*TapSelectAttr) op() code.AttrOp  { return code.AttrTapSelect }
func (*FormSubmitAttr) op() code.AttrOp { return code.AttrFormSubmit }

// Expr is an expression. The set of implementations is closed.
type Expr interface{ expr() }

// ConstText is a text literal.
type ConstText struct{ Text string }

// ConstNum is a number literal, kept in its source form.
type ConstNum struct{ Num string }

// Lookup resolves the first name of Path in scope and indexes the result with
// the rest.
type Lookup struct{ Path []string }

// Concat concatenates the text forms of its arguments.
type Concat struct{ Args []Expr }

// Binary is a binary operation. Op is one of ExprEquals, ExprAdd, ExprSub,
// ExprMul and ExprDiv.
type Binary struct {
	Op          code.ExprOp
	Left, Right Expr
}

// Not negates the truthiness of an expression.
type Not struct{ Expr Expr }

func (*ConstText) expr() {}
func (*ConstNum) expr()  {}
func (*Lookup) expr()    {}
func (*Concat) expr()    {}
func (*Binary) expr()    {}
func (*Not) expr()       {}

// Never is a condition that is always false. It replaces conditions that
// failed to compile.
func Never() Expr { return &Not{&ConstText{""}} }

// RouteIs compares the route of the named router with a text template.
func RouteIs(router, text string) (Expr, error) {
	tpl, err := ParseTextExpr(strings.TrimSpace(text))
	return &Binary{code.ExprEquals, &Lookup{[]string{router, "route"}}, tpl}, err
}
