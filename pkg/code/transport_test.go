package code

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.manglr.sh/pkg/tt"
)

var Args = tt.Args

func TestEncode(t *testing.T) {
	tt.Test(t, Encode,
		Args([]int{}).Rets(""),
		Args([]int{0, 1}).Rets(" !"),
		// '"' is skipped.
		Args([]int{2}).Rets("#"),
		// So is '\\'.
		Args([]int{58, 59, 60}).Rets("[]^"),
		Args([]int{61}).Rets("` "),
		Args([]int{61*32 + 5}).Rets("`_&"),
	)
}

func TestDecode_Errors(t *testing.T) {
	for _, s := range []string{"\"", "\\", "\x1f", "\x7f", "`", "! `"} {
		if _, err := Decode(s); err == nil {
			t.Errorf("Decode(%q) returned no error", s)
		}
	}
}

var roundTripSeqs = [][]int{
	nil,
	{0},
	{60, 61, 62},
	{1, 2, 3, 4, 5, 1000, 31, 32, 33, 61 * 31, 61 * 32, 61*32 - 1},
	{1 << 20, 1<<31 - 1, 1 << 40, math.MaxInt32 * 61},
}

func TestRoundTrip(t *testing.T) {
	for _, seq := range roundTripSeqs {
		got, err := Decode(Encode(seq))
		if err != nil {
			t.Errorf("Decode(Encode(%v)) -> error %v", seq, err)
			continue
		}
		if !cmp.Equal(seq, got, cmp.Comparer(intsEqual)) {
			t.Errorf("Decode(Encode(%v)) -> %v", seq, got)
		}
	}
}

func TestRoundTrip_AllSmallValues(t *testing.T) {
	seq := make([]int, 70000)
	for i := range seq {
		seq[i] = i
	}
	got, err := Decode(Encode(seq))
	if err != nil {
		t.Fatal(err)
	}
	if !intsEqual(seq, got) {
		t.Errorf("round trip of 0..%d failed", len(seq)-1)
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0, 1, 2, 255})
	f.Fuzz(func(t *testing.T, b []byte) {
		seq := make([]int, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			seq = append(seq, int(b[i])<<int(b[i+1]%24))
		}
		got, err := Decode(Encode(seq))
		if err != nil || !intsEqual(seq, got) {
			t.Errorf("round trip of %v -> %v, %v", seq, got, err)
		}
	})
}

func FuzzDecode(f *testing.F) {
	f.Add(" !`_%")
	f.Fuzz(func(t *testing.T, s string) {
		seq, err := Decode(s)
		if err != nil {
			return
		}
		if again := Encode(seq); len(again) > len(s) {
			t.Errorf("Encode(Decode(%q)) = %q is longer than the input", s, again)
		}
	})
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
