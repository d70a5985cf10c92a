package code

import (
	"errors"
	"fmt"
)

// Program is a loaded instruction stream together with its symbol table.
// It is immutable once loaded and may be shared freely.
type Program struct {
	// Raw is the stream as emitted by the compiler, with template offsets
	// stored as deltas.
	Raw     []int
	Symbols []string
	// Absolute template offsets. Index 0 is the empty template.
	offsets []int
}

// FormatError is the error for a malformed instruction stream.
type FormatError struct {
	Pos int
	Msg string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed program at %d: %s", e.Pos, e.Msg)
}

var errEmptyStream = errors.New("empty instruction stream")

// Load resolves the template table of a raw stream. The stream is not
// copied.
func Load(raw []int, symbols []string) (*Program, error) {
	if len(raw) == 0 {
		return nil, errEmptyStream
	}
	n := raw[0]
	if n < 0 || n > len(raw)-1 {
		return nil, &FormatError{0, fmt.Sprintf("template count %d out of range", n)}
	}
	offsets := make([]int, n+1)
	offset := 0
	for k := 1; k <= n; k++ {
		offset += raw[k]
		if offset <= n || offset >= len(raw) {
			return nil, &FormatError{k, fmt.Sprintf("template %d at %d out of range", k, offset)}
		}
		offsets[k] = offset
	}
	return &Program{Raw: raw, Symbols: symbols, offsets: offsets}, nil
}

// NumTemplates returns the number of templates, not counting the empty
// template 0.
func (p *Program) NumTemplates() int { return len(p.offsets) - 1 }

// Offset returns the absolute offset of a template.
func (p *Program) Offset(tpl int) int {
	if tpl <= 0 || tpl >= len(p.offsets) {
		panic(&FormatError{-1, fmt.Sprintf("no template %d", tpl)})
	}
	return p.offsets[tpl]
}

// Template returns a Reader positioned at the start of a template body, which
// begins with the node count. It panics with a *FormatError if there is no
// such template.
func (p *Program) Template(tpl int) Reader {
	return Reader{p, p.Offset(tpl)}
}

// Symbol returns a symbol, panicking with a *FormatError if the index is out
// of range.
func (p *Program) Symbol(i int) string {
	if i < 0 || i >= len(p.Symbols) {
		panic(&FormatError{-1, fmt.Sprintf("no symbol %d", i)})
	}
	return p.Symbols[i]
}
