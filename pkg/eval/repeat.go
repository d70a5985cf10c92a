package eval

import (
	"strconv"

	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/scope"
	"src.manglr.sh/pkg/vals"
)

type repeatItem struct {
	scope *scope.Scope
	// Bound to the item name in scope.
	value *dep.Dep
}

// Instantiates the body template once per item of a list, in a region scope
// of its own.
//
// Items are matched across updates by key: the text of their "id" field when
// they have one, their index otherwise. A matched item keeps its scope, which
// is moved into place and sees the new value through its Dep. Unmatched
// scopes are destroyed.
func (in *interp) repeat(s *scope.Scope, name string, tpl int, d *dep.Dep) {
	region := s.NewChild()
	items := map[string]*repeatItem{}
	var order []string
	update := func() {
		list := toList(d.Value())
		next := make(map[string]*repeatItem, len(list))
		keys := make([]string, 0, len(list))
		var prev *scope.Scope
		for i, v := range list {
			k := itemKey(v, i)
			if _, dup := next[k]; dup {
				logger.Printf("duplicate repeat key %s at %d; matching by index", k, i)
				k = indexKey(i)
			}
			it, ok := items[k]
			if ok {
				delete(items, k)
				it.scope.MoveAfter(prev)
				if !vals.Equal(it.value.Value(), v) {
					it.value.Set(v)
				}
			} else {
				c := region.NewChildAfter(prev)
				it = &repeatItem{c, in.eng.Var(v)}
				c.Bind(name, it.value)
				in.instantiate(c, tpl)
			}
			next[k] = it
			keys = append(keys, k)
			prev = it.scope
		}
		for _, k := range order {
			if it, ok := items[k]; ok {
				it.scope.Destroy()
			}
		}
		items, order = next, keys
	}
	update()
	in.onChange(region, d, update)
}

func toList(v any) []any {
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		logger.Printf("cannot repeat over %T", v)
		return nil
	}
}

func itemKey(v any, i int) string {
	switch v.(type) {
	case map[string]any, vals.Fielder:
		if id := vals.Index(v, "id"); id != nil {
			return "=" + vals.ToText(id)
		}
	}
	return indexKey(i)
}

func indexKey(i int) string { return "#" + strconv.Itoa(i) }
