package code

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Two templates, each an empty node list.
var twoEmpty = []int{2, 3, 1, 0, 0}

func TestLoad(t *testing.T) {
	p, err := Load(twoEmpty, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumTemplates() != 2 {
		t.Errorf("NumTemplates() = %d, want 2", p.NumTemplates())
	}
	if p.Offset(1) != 3 || p.Offset(2) != 4 {
		t.Errorf("offsets = %d %d, want 3 4", p.Offset(1), p.Offset(2))
	}
}

func TestLoad_Errors(t *testing.T) {
	for _, raw := range [][]int{
		nil,
		{5, 1},
		{-1},
		// Offset pointing into the header.
		{1, 1, 0},
		// Offset past the end.
		{1, 9, 0},
	} {
		if _, err := Load(raw, nil); err == nil {
			t.Errorf("Load(%v) returned no error", raw)
		}
	}
}

func TestReader(t *testing.T) {
	p, err := Load([]int{1, 2, 3, 0, 1, 7}, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	r := p.Template(1)
	if n := r.Count(); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
	fork := r
	if s := r.Sym(); s != "a" {
		t.Errorf("Sym() = %q, want a", s)
	}
	if s := fork.Sym(); s != "a" {
		t.Errorf("forked Sym() = %q, want a", s)
	}
	if s := r.Sym(); s != "b" {
		t.Errorf("Sym() = %q, want b", s)
	}
	assertFormatPanic(t, func() { r.Sym() })
	assertFormatPanic(t, func() { r.Next() })
	assertFormatPanic(t, func() { p.Template(2) })
}

func assertFormatPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if _, ok := r.(*FormatError); !ok {
			t.Errorf("recovered %v, want *FormatError", r)
		}
	}()
	f()
}

func TestBundles(t *testing.T) {
	p, err := Load([]int{1, 2, 1, 2, 0, 1000}, []string{"hello", "", "wörld"})
	if err != nil {
		t.Fatal(err)
	}
	text, err := MarshalText(p)
	if err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		"text":   text,
		"binary": MarshalBinary(p),
	} {
		got, err := Unmarshal(data)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if diff := cmp.Diff(p, got, cmp.AllowUnexported(Program{}), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s round trip (-want +got):\n%s", name, diff)
		}
	}
}

func TestUnmarshal_BadBinary(t *testing.T) {
	data := append(append([]byte(nil), binaryMagic...), 0x0a, 0x05, 0x01)
	_, err := Unmarshal(data)
	if err == nil {
		t.Errorf("no error for truncated bundle")
	}
	if errors.Is(err, errEmptyStream) {
		t.Errorf("truncated bundle parsed as empty")
	}
}
