package vals

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"src.manglr.sh/pkg/dep"
)

// Fielder is implemented by records whose fields are Deps, such as Models and
// controllers.
type Fielder interface {
	// Field returns the Dep holding the named field, creating it if needed.
	// The same Dep is returned for the lifetime of the receiver.
	Field(name string) *dep.Dep
}

// Submitter is implemented by values that accept form submissions.
type Submitter interface {
	Submit(fields map[string]any)
}

// Model is a named record of field Deps that can be loaded from outside.
type Model struct {
	eng    *dep.Engine
	fields map[string]*dep.Dep
	keys   []string
}

var _ Fielder = (*Model)(nil)

// NewModel creates an empty Model whose field Deps belong to eng.
func NewModel(eng *dep.Engine) *Model {
	return &Model{eng: eng, fields: make(map[string]*dep.Dep)}
}

// NewModelFrom creates a Model holding the fields of data.
func NewModelFrom(eng *dep.Engine, data map[string]any) *Model {
	m := NewModel(eng)
	m.Load(data)
	return m
}

// Engine returns the Engine the Model's fields belong to.
func (m *Model) Engine() *dep.Engine { return m.eng }

// Field returns the Dep of the named field. Fields that have not been loaded
// are created holding nil.
func (m *Model) Field(name string) *dep.Dep {
	if d, ok := m.fields[name]; ok {
		return d
	}
	return m.add(name, nil)
}

// Has reports whether the field exists.
func (m *Model) Has(name string) bool {
	_, ok := m.fields[name]
	return ok
}

// Keys returns the field names in creation order.
func (m *Model) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Load merges data into the Model. Existing fields get the new value and are
// marked dirty; new fields are created ready. Fields are never removed.
// Keys are processed in sorted order.
func (m *Model) Load(data map[string]any) {
	keys := maps.Keys(data)
	slices.Sort(keys)
	for _, k := range keys {
		if d, ok := m.fields[k]; ok {
			d.Set(data[k])
		} else {
			m.add(k, data[k])
		}
	}
}

// Submit implements Submitter by loading the submitted fields.
func (m *Model) Submit(fields map[string]any) { m.Load(fields) }

// Snapshot returns the current field values as a map.
func (m *Model) Snapshot() map[string]any {
	snap := make(map[string]any, len(m.fields))
	for k, d := range m.fields {
		snap[k] = d.Value()
	}
	return snap
}

func (m *Model) add(name string, v any) *dep.Dep {
	d := m.eng.Var(v)
	m.fields[name] = d
	m.keys = append(m.keys, name)
	return d
}
