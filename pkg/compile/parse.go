package compile

import (
	"fmt"
	"strings"

	"src.manglr.sh/pkg/code"
)

// ParseError is an error in the syntax of an expression or text template.
type ParseError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d in %q", e.Msg, e.Pos, e.Source)
}

// ParseExpr parses an expression:
//
//	expr    = compare
//	compare = sum { ("==" | "!=") sum }
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = "!" unary | primary
//	primary = path | number | string | "(" expr ")"
//
// A path is a dot-separated list of names; the first may start with "@".
// Strings are quoted with ' or ", with \ escaping the next character.
//
// On error it returns the error together with an empty text constant.
func ParseExpr(src string) (Expr, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.eof() {
		return &ConstText{""}, p.errorf("expression cannot be empty")
	}
	e := p.compare()
	p.skipSpace()
	if p.err == nil && !p.eof() {
		p.errorf("expecting an operator")
	}
	if p.err != nil {
		return &ConstText{""}, p.err
	}
	return e, nil
}

// ParseText splits a text template into literal parts and expressions in
// braces, such as "Hi {user.name}!". The first error is returned; the
// erroneous part is replaced by an empty text constant.
func ParseText(text string) ([]Expr, error) {
	var parts []Expr
	var firstErr error
	for text != "" {
		i := strings.IndexByte(text, '{')
		if i < 0 {
			parts = append(parts, &ConstText{text})
			break
		}
		if i > 0 {
			parts = append(parts, &ConstText{text[:i]})
		}
		j := strings.IndexByte(text[i:], '}')
		if j < 0 {
			if firstErr == nil {
				firstErr = &ParseError{text, i, "unclosed {"}
			}
			break
		}
		e, err := ParseExpr(text[i+1 : i+j])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		parts = append(parts, e)
		text = text[i+j+1:]
	}
	return parts, firstErr
}

// ParseTextExpr is like ParseText, but combines the parts into one
// expression.
func ParseTextExpr(text string) (Expr, error) {
	parts, err := ParseText(text)
	return joinText(parts), err
}

func joinText(parts []Expr) Expr {
	switch len(parts) {
	case 0:
		return &ConstText{""}
	case 1:
		return parts[0]
	default:
		return &Concat{parts}
	}
}

type parser struct {
	src string
	pos int
	err error
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

// Consumes op if it comes next, ignoring leading space.
func (p *parser) accept(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], op) {
		// "!" must not eat the start of "!=", nor "=" of "==".
		if op == "!" && strings.HasPrefix(p.src[p.pos:], "!=") {
			return false
		}
		p.pos += len(op)
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err == nil {
		p.err = &ParseError{p.src, p.pos, fmt.Sprintf(format, args...)}
	}
	return p.err
}

func (p *parser) compare() Expr {
	left := p.sum()
	for p.err == nil {
		switch {
		case p.accept("=="):
			left = &Binary{code.ExprEquals, left, p.sum()}
		case p.accept("!="):
			left = &Not{&Binary{code.ExprEquals, left, p.sum()}}
		default:
			return left
		}
	}
	return left
}

func (p *parser) sum() Expr {
	left := p.product()
	for p.err == nil {
		switch {
		case p.accept("+"):
			left = &Binary{code.ExprAdd, left, p.product()}
		case p.accept("-"):
			left = &Binary{code.ExprSub, left, p.product()}
		default:
			return left
		}
	}
	return left
}

func (p *parser) product() Expr {
	left := p.unary()
	for p.err == nil {
		switch {
		case p.accept("*"):
			left = &Binary{code.ExprMul, left, p.unary()}
		case p.accept("/"):
			left = &Binary{code.ExprDiv, left, p.unary()}
		default:
			return left
		}
	}
	return left
}

func (p *parser) unary() Expr {
	if p.accept("!") {
		return &Not{p.unary()}
	}
	return p.primary()
}

func (p *parser) primary() Expr {
	p.skipSpace()
	switch c := p.peek(); {
	case p.eof():
		p.errorf("operator must be followed by an expression")
	case c == '(':
		p.pos++
		e := p.compare()
		if !p.accept(")") {
			p.errorf("expecting )")
		}
		return e
	case c == '\'' || c == '"':
		return p.str(c)
	case isDigit(c):
		start := p.pos
		p.digits()
		if p.peek() == '.' && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) {
			p.pos++
			p.digits()
		}
		return &ConstNum{p.src[start:p.pos]}
	case c == '@' || isNameStart(c):
		return p.path()
	default:
		p.errorf("syntax error")
	}
	return &ConstText{""}
}

func (p *parser) str(quote byte) Expr {
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch {
		case c == quote:
			return &ConstText{sb.String()}
		case c == '\\' && !p.eof():
			sb.WriteByte(p.src[p.pos])
			p.pos++
		default:
			sb.WriteByte(c)
		}
	}
	p.errorf("unterminated string")
	return &ConstText{""}
}

func (p *parser) path() Expr {
	var path []string
	for {
		start := p.pos
		if len(path) == 0 && p.peek() == '@' {
			p.pos++
		}
		for !p.eof() && isNameChar(p.peek()) {
			p.pos++
		}
		if p.pos == start {
			p.errorf("expecting a name")
			return &ConstText{""}
		}
		path = append(path, p.src[start:p.pos])
		if p.peek() != '.' {
			return &Lookup{path}
		}
		p.pos++
	}
}

func (p *parser) digits() {
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isNameStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }
