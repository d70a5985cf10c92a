package code

import "fmt"

// Reader is a cursor into a Program's instruction stream. It is a small
// value; copying it forks the cursor.
//
// Reading past the end of the stream panics with a *FormatError.
type Reader struct {
	prog *Program
	pos  int
}

// Program returns the Program being read.
func (r *Reader) Program() *Program { return r.prog }

// Pos returns the position of the next integer to be read.
func (r *Reader) Pos() int { return r.pos }

// Next reads one integer.
func (r *Reader) Next() int {
	if r.pos >= len(r.prog.Raw) {
		panic(&FormatError{r.pos, "unexpected end of stream"})
	}
	v := r.prog.Raw[r.pos]
	r.pos++
	return v
}

// Count reads a non-negative count.
func (r *Reader) Count() int {
	pos := r.pos
	n := r.Next()
	if n < 0 || n > len(r.prog.Raw) {
		panic(&FormatError{pos, fmt.Sprintf("bad count %d", n)})
	}
	return n
}

// Sym reads a symbol index and returns the symbol.
func (r *Reader) Sym() string {
	pos := r.pos
	i := r.Next()
	if i < 0 || i >= len(r.prog.Symbols) {
		panic(&FormatError{pos, fmt.Sprintf("no symbol %d", i)})
	}
	return r.prog.Symbols[i]
}
