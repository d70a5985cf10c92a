package code

import (
	"errors"
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	// <div id="box">{{x}}</div>
	p, err := Load(
		[]int{1, 2, 1, 2, 0, 1, 0, 1, 2, 1, 1, 2, 1, 3},
		[]string{"div", "id", "box", "x"})
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := Disassemble(&sb, p); err != nil {
		t.Fatal(err)
	}
	want := `template 1 @2:
  element div
    literal_text id="box"
    bound_text x
symbols:
  0 "div"
  1 "id"
  2 "box"
  3 "x"
`
	if sb.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestDisassemble_Malformed(t *testing.T) {
	p, err := Load([]int{1, 2, 1, 99}, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = Disassemble(&strings.Builder{}, p)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Pos != 3 {
		t.Errorf("got error %v, want *FormatError at 3", err)
	}
}
