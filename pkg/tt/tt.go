// Package tt supports table-driven tests with little boilerplate.
//
// A typical use:
//
//	tt.Test(t, strings.Repeat,
//		Args("x", 3).Rets("xxx"),
//		Args("", 10).Rets(""),
//	)
//
// Failures are reported with a diff of the wanted and actual return values.
package tt

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Case is one test case. It is created by Args, and its setters return the
// receiver so that calls can be chained like Args(...).Rets(...).
type Case struct {
	args         []any
	retsMatchers [][]any
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Rets modifies the Case so that it requires the return values to match the
// given values. Arguments implementing Matcher decide for themselves;
// everything else is compared with cmp.Equal.
func (c *Case) Rets(matchers ...any) *Case {
	c.retsMatchers = append(c.retsMatchers, matchers)
	return c
}

// FnDescriptor describes a function under test.
type FnDescriptor struct {
	name    string
	body    any
	argsFmt string
	retsFmt string
}

// Fn wraps a function for Test, allowing customization of error messages.
func Fn(body any) *FnDescriptor {
	return &FnDescriptor{name: funcName(body), body: body}
}

// Named sets the name used in error messages.
func (fn *FnDescriptor) Named(name string) *FnDescriptor {
	fn.name = name
	return fn
}

// ArgsFmt sets the format string for arguments in error messages.
func (fn *FnDescriptor) ArgsFmt(s string) *FnDescriptor {
	fn.argsFmt = s
	return fn
}

// RetsFmt sets the format string for return values in error messages.
func (fn *FnDescriptor) RetsFmt(s string) *FnDescriptor {
	fn.retsFmt = s
	return fn
}

// T is the subset of testing.TB used by Test.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test calls fn, which may be a function or a *FnDescriptor, with each
// Case's arguments and checks its return values.
func Test(t T, fn any, tests ...*Case) {
	t.Helper()
	desc, ok := fn.(*FnDescriptor)
	if !ok {
		desc = Fn(fn)
	}
	for _, test := range tests {
		rets := call(desc.body, test.args)
		for _, want := range test.retsMatchers {
			if match(want, rets) {
				continue
			}
			var args string
			if desc.argsFmt == "" {
				args = sprintCommaDelimited(test.args...)
			} else {
				args = fmt.Sprintf(desc.argsFmt, test.args...)
			}
			if desc.retsFmt == "" {
				t.Errorf("%s(%s) returns (-Wanted +Actual):\n%s",
					desc.name, args, cmp.Diff(want, rets, cmp.Exporter(all)))
			} else {
				t.Errorf("%s(%s) returns %s, want %s", desc.name, args,
					fmt.Sprintf(desc.retsFmt, rets...),
					fmt.Sprintf(desc.retsFmt, want...))
			}
		}
	}
}

// Matcher decides whether a return value is acceptable.
type Matcher interface {
	// Match reports whether the return value matches. The argument is of type
	// RetValue so that the interface is not implemented by accident.
	Match(RetValue) bool
}

// RetValue is the argument type of Matcher.Match.
type RetValue any

// Any matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(RetValue) bool { return true }

func all(reflect.Type) bool { return true }

func match(matchers, actual []any) bool {
	if len(matchers) != len(actual) {
		return false
	}
	for i, m := range matchers {
		if mm, ok := m.(Matcher); ok {
			if !mm.Match(actual[i]) {
				return false
			}
		} else if !cmp.Equal(m, actual[i], cmp.Exporter(all)) {
			return false
		}
	}
	return true
}

func sprintCommaDelimited(args ...any) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, arg)
	}
	return sb.String()
}

func funcName(f any) string {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func {
		return "<not a function>"
	}
	name := runtime.FuncForPC(v.Pointer()).Name()
	// Strip the package path.
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func call(fn any, args []any) []any {
	fnType := reflect.TypeOf(fn)
	argsReflect := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) is the zero Value; use a typed zero of the
			// parameter type instead.
			argsReflect[i] = reflect.Zero(paramType(fnType, i))
		} else {
			argsReflect[i] = reflect.ValueOf(arg)
		}
	}
	retsReflect := reflect.ValueOf(fn).Call(argsReflect)
	rets := make([]any, len(retsReflect))
	for i, r := range retsReflect {
		rets[i] = r.Interface()
	}
	return rets
}

func paramType(fnType reflect.Type, i int) reflect.Type {
	if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
		return fnType.In(fnType.NumIn() - 1).Elem()
	}
	return fnType.In(i)
}
