// Package code defines compiled programs: the instruction stream, its symbol
// table, the opcode enumerations, a Reader for walking templates, and the
// transport and bundle encodings.
package code

import "strconv"

// NodeOp is the opcode of a node instruction.
type NodeOp int

// Node opcodes.
const (
	// text [sym]
	NodeText NodeOp = iota
	// bound_text [expr]
	NodeBoundText
	// element [sym tag, nattr, attrs..., nchild, nodes...]
	NodeElement
	// component [tpl, contents_tpl, narg, (sym name, expr)...]
	NodeComponent
	// condition [tpl, expr]
	NodeCondition
	// repeat [sym name, tpl, expr]
	NodeRepeat
	// router [sym id]
	NodeRouter
	// authentication [sym id, sym login_url]
	NodeAuth
	// store [sym id, sym get_url, sym auth_id]
	NodeStore
	// model [sym id]
	NodeModel
	// contents []
	NodeContents
)

var nodeOpNames = []string{
	"text", "bound_text", "element", "component", "condition", "repeat",
	"router", "authentication", "store", "model", "contents"}

func (op NodeOp) String() string { return opName(nodeOpNames, int(op), "NodeOp") }

// AttrOp is the opcode of an attribute record. The compiler emits the
// attributes of an element sorted by AttrOp.
type AttrOp int

// Attribute opcodes.
const (
	// literal_text [sym name, sym value]
	AttrLiteralText AttrOp = iota
	// literal_bool [sym name, 0|1]
	AttrLiteralBool
	// bound_text [sym name, expr]
	AttrBoundText
	// bound_bool [sym name, expr]
	AttrBoundBool
	// literal_class [sym]
	AttrLiteralClass
	// bound_class [expr]
	AttrBoundClass
	// cond_class [sym, expr]
	AttrCondClass
	// bound_style [sym name, expr]
	AttrBoundStyle
	// tap_select [expr target, expr value]
	AttrTapSelect
	// form_submit [expr target]
	AttrFormSubmit
)

var attrOpNames = []string{
	"literal_text", "literal_bool", "bound_text", "bound_bool",
	"literal_class", "bound_class", "cond_class", "bound_style",
	"tap_select", "form_submit"}

func (op AttrOp) String() string { return opName(attrOpNames, int(op), "AttrOp") }

// ExprOp is the opcode of an expression.
type ExprOp int

// Expression opcodes.
const (
	// const_text [sym]
	ExprConstText ExprOp = iota
	// const_num [sym]
	ExprConstNum
	// scope_lookup [n, sym...]
	ExprLookup
	// concat_text [n, expr...]
	ExprConcat
	// equals [expr, expr]
	ExprEquals
	// add [expr, expr]
	ExprAdd
	// sub [expr, expr]
	ExprSub
	// mul [expr, expr]
	ExprMul
	// div [expr, expr]
	ExprDiv
	// not [expr]
	ExprNot
)

var exprOpNames = []string{
	"const_text", "const_num", "scope_lookup", "concat_text",
	"equals", "add", "sub", "mul", "div", "not"}

func (op ExprOp) String() string { return opName(exprOpNames, int(op), "ExprOp") }

func opName(names []string, i int, kind string) string {
	if 0 <= i && i < len(names) {
		return names[i]
	}
	return kind + "(" + strconv.Itoa(i) + ")"
}
