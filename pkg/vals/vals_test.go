package vals

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/tt"
)

var Args = tt.Args

func TestTruthy(t *testing.T) {
	tt.Test(t, Truthy,
		Args(nil).Rets(false),
		Args(true).Rets(true),
		Args(false).Rets(false),

		Args(0).Rets(true),
		Args(0.0).Rets(true),
		Args("").Rets(true),
		Args("x").Rets(true),

		Args([]any{}).Rets(false),
		Args([]any{nil}).Rets(true),
		Args(map[string]any{}).Rets(true),
	)
}

func TestToText(t *testing.T) {
	tt.Test(t, ToText,
		Args("Al").Rets("Al"),
		Args(12).Rets("12"),
		Args(3.0).Rets("3"),
		Args(-0.5).Rets("-0.5"),
		Args(nil).Rets(""),
		Args(true).Rets(""),
		Args([]any{"a"}).Rets(""),
		Args(map[string]any{"a": 1}).Rets(""),
	)
}

func TestParseNum(t *testing.T) {
	tt.Test(t, ParseNum,
		Args("42").Rets(42),
		Args("1.5").Rets(1.5),
		Args("x").Rets(nil),
		Args("").Rets(nil),
	)
}

func TestEqual(t *testing.T) {
	m := NewModel(dep.NewEngine(&dep.Manual{}))
	tt.Test(t, Equal,
		Args(nil, nil).Rets(true),
		Args(nil, "").Rets(false),
		Args(1, 1.0).Rets(true),
		Args(1.0, 1).Rets(true),
		Args(1, "1").Rets(false),
		Args("a", "a").Rets(true),
		Args(true, true).Rets(true),
		Args(true, 1).Rets(false),
		Args([]any{1, "a"}, []any{1.0, "a"}).Rets(true),
		Args([]any{1}, []any{1, 2}).Rets(false),
		Args(map[string]any{"a": 1}, map[string]any{"a": 1.0}).Rets(true),
		Args(map[string]any{"a": 1}, map[string]any{"b": 1}).Rets(false),
		Args(m, m).Rets(true),
		Args(m, NewModel(m.Engine())).Rets(false),
	)
}

func TestIndex(t *testing.T) {
	eng := dep.NewEngine(&dep.Manual{})
	m := NewModelFrom(eng, map[string]any{"name": "Al"})
	list := []any{"a", "b"}
	tt.Test(t, Index,
		Args(map[string]any{"a": 1}, "a").Rets(1),
		Args(map[string]any{"a": 1}, "b").Rets(nil),
		Args(m, "name").Rets("Al"),
		Args(m, "missing").Rets(nil),
		Args(list, "length").Rets(2),
		Args(list, 1).Rets("b"),
		Args(list, "0").Rets("a"),
		Args(list, 2).Rets(nil),
		Args(list, -1).Rets(nil),
		Args("text", "length").Rets(nil),
		Args(nil, "a").Rets(nil),
	)
	if m.Has("missing") {
		t.Errorf("Index created the missing field")
	}
}

func TestArithmetic(t *testing.T) {
	tt.Test(t, Add,
		Args(1, 2).Rets(3),
		Args(1, 0.5).Rets(1.5),
		Args("a", 1).Rets("a1"),
		Args(2, "b").Rets("2b"),
		Args("a", nil).Rets("a"),
		Args(nil, 1).Rets(nil),
	)
	tt.Test(t, Sub,
		Args(5, 2).Rets(3),
		Args(0.5, 1).Rets(-0.5),
		Args("5", 2).Rets(nil),
	)
	tt.Test(t, Mul,
		Args(3, 4).Rets(12),
		Args(1.5, 2).Rets(3.0),
		Args(true, 2).Rets(nil),
	)
	tt.Test(t, Div,
		Args(6, 3).Rets(2),
		Args(7, 2).Rets(3.5),
		Args(1, 0).Rets(nil),
		Args(1.0, 0.0).Rets(nil),
		Args("6", 3).Rets(nil),
	)
}

func TestModel_FieldIsStable(t *testing.T) {
	m := NewModel(dep.NewEngine(&dep.Manual{}))
	d := m.Field("x")
	if d != m.Field("x") {
		t.Errorf("Field returned different Deps for the same name")
	}
	if d.Value() != nil {
		t.Errorf("lazily created field = %v, want nil", d.Value())
	}
	if d.Dirty() || d.Wait() != 0 {
		t.Errorf("lazily created field not ready")
	}
}

func TestModel_Load(t *testing.T) {
	sched := &dep.Manual{}
	m := NewModel(dep.NewEngine(sched))
	a := m.Field("a")

	m.Load(map[string]any{"c": 3, "a": 1, "b": 2})
	if !a.Dirty() {
		t.Errorf("Load did not mark existing field dirty")
	}
	if m.Field("b").Dirty() {
		t.Errorf("Load marked new field dirty")
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, m.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}

	m.Load(map[string]any{"b": 20})
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 20, "c": 3}, m.Snapshot()); diff != "" {
		t.Errorf("Snapshot (-want +got):\n%s", diff)
	}
	if !m.Has("c") {
		t.Errorf("Load removed a field")
	}
	sched.Flush()
}
