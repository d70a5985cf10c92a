// Package dep implements the incremental dependency graph that keeps live
// views in sync with changing data.
//
// A Dep holds a value, a count of pending upstream updates and a list of
// forward edges. An Engine collects Deps marked dirty and settles them in
// transactions: every Dep reachable from the dirty roots is first told how
// many updates to expect, then recomputes exactly once, after all of its
// upstream roots have settled.
package dep

import "src.manglr.sh/pkg/logutil"

var logger = logutil.GetLogger("[dep] ")

// Dep is a node of the dependency graph.
//
// A negative wait count marks the Dep as constant: its value never changes and
// it never appears in a forward edge list. A zero wait count means the value
// is current; a positive count is the number of upstream updates still
// expected in the running transaction.
type Dep struct {
	value any
	wait  int
	fwd   []*Dep
	fn    func(*Dep)
	dirty bool
	// The source whose Subscribe call marked this Dep dirty, cleared when the
	// Dep is marked dirty for any other reason.
	dirtiedBy *Dep
	eng       *Engine
}

// Value returns the current value.
func (d *Dep) Value() any { return d.value }

// IsConst reports whether the Dep is constant.
func (d *Dep) IsConst() bool { return d.wait < 0 }

// Wait returns the number of upstream updates the Dep still expects.
func (d *Dep) Wait() int { return d.wait }

// Dirty reports whether the Dep is queued as a root for the next
// transaction.
func (d *Dep) Dirty() bool { return d.dirty }

// Writable reports whether Set may be called on the Dep, i.e. it is a
// variable rather than a constant or a derived Dep.
func (d *Dep) Writable() bool { return d.wait >= 0 && d.fn == nil }

// Forward returns a copy of the forward edge list.
func (d *Dep) Forward() []*Dep {
	return append([]*Dep(nil), d.fwd...)
}

// Engine returns the Engine the Dep belongs to.
func (d *Dep) Engine() *Engine { return d.eng }

// Store replaces the value without scheduling anything. It is meant to be
// called from update functions, which run while the graph is settling.
func (d *Dep) Store(v any) {
	if d.wait < 0 {
		logger.Printf("ignoring Store on a constant")
		return
	}
	d.value = v
}

// Set replaces the value and marks the Dep dirty, so that everything
// downstream of it is recomputed in the next transaction.
func (d *Dep) Set(v any) {
	if d.wait < 0 {
		logger.Printf("ignoring Set on a constant")
		return
	}
	d.value = v
	d.eng.MarkDirty(d)
}
