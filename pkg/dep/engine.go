package dep

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Engine schedules and runs transactions over a dependency graph.
//
// An Engine is not safe for concurrent use. All of its methods, and Set on
// its Deps, must be called from the goroutine that runs its Scheduler. Other
// goroutines re-enter through a Poster.
type Engine struct {
	sched Scheduler

	// Roots for the next transaction.
	queue     []*Dep
	scheduled bool

	running     bool
	propagating bool
	// Roots of the running transaction and the index of the next one to
	// settle. Subscribe appends to this list while running.
	roots []*Dep
	next  int

	// Structural work deferred until propagation stops.
	after []func()

	transactions int
}

// NewEngine creates an Engine that uses the given Scheduler to defer
// transactions.
func NewEngine(s Scheduler) *Engine {
	return &Engine{sched: s}
}

// Const creates a constant Dep.
func (e *Engine) Const(v any) *Dep {
	return &Dep{value: v, wait: -1, eng: e}
}

// Var creates a ready Dep with no update function. Its value changes only
// through Set.
func (e *Engine) Var(v any) *Dep {
	return &Dep{value: v, eng: e}
}

// Func creates a derived Dep. The update function is called immediately to
// compute the initial value, and again whenever the Dep settles in a
// transaction.
func (e *Engine) Func(fn func(*Dep)) *Dep {
	d := &Dep{fn: fn, eng: e}
	fn(d)
	return d
}

// Running reports whether a transaction is executing.
func (e *Engine) Running() bool { return e.running }

// Transactions returns the number of transactions run so far.
func (e *Engine) Transactions() int { return e.transactions }

// MarkDirty queues d as a root for the next transaction. It is a no-op if d
// is already dirty or constant.
func (e *Engine) MarkDirty(d *Dep) {
	if d.wait < 0 {
		return
	}
	if d.dirty {
		d.dirtiedBy = nil
		return
	}
	d.dirty = true
	d.dirtiedBy = nil
	e.queue = append(e.queue, d)
	e.schedule()
}

// Defer queues fn to run once the current transaction has finished
// propagating, before the transaction ends. Outside a transaction, it runs at
// the end of the next one, which is scheduled if necessary.
//
// Structural changes, such as creating or destroying Scopes, must be
// deferred when requested from an update function.
func (e *Engine) Defer(fn func()) {
	e.after = append(e.after, fn)
	if !e.running {
		e.schedule()
	}
}

func (e *Engine) schedule() {
	if e.scheduled || e.running {
		return
	}
	e.scheduled = true
	e.sched.Schedule(e.Transact)
}

// Transact settles all queued roots and their downstream closure, then runs
// deferred work. Roots added by Subscribe while this happens are settled in
// the same transaction. Normally it is called by the Scheduler.
func (e *Engine) Transact() {
	if e.running {
		return
	}
	e.scheduled = false
	e.running = true
	e.transactions++

	roots := e.queue
	e.queue = nil
	e.propagating = true
	for _, d := range roots {
		d.dirty = false
		d.dirtiedBy = nil
		e.roots = append(e.roots, d)
		e.incWait(d)
	}
	for {
		e.propagating = true
		for e.next < len(e.roots) {
			d := e.roots[e.next]
			e.next++
			e.decWait(d)
		}
		e.propagating = false
		if len(e.after) == 0 {
			break
		}
		work := e.after
		e.after = nil
		for _, fn := range work {
			fn()
		}
	}
	e.roots = nil
	e.next = 0
	e.running = false
	if len(e.queue) > 0 {
		e.schedule()
	}
}

// Tells d and, the first time, everything downstream of it to expect one more
// update.
func (e *Engine) incWait(d *Dep) {
	d.wait++
	if d.wait == 1 {
		for _, sub := range d.fwd {
			e.incWait(sub)
		}
	}
}

// Delivers one expected update to d. When d has received all of them, it
// recomputes and passes the update on.
func (e *Engine) decWait(d *Dep) {
	if d.wait <= 0 {
		e.violation(fmt.Sprintf("unbalanced update (wait = %d)", d.wait))
		return
	}
	d.wait--
	if d.wait == 0 {
		if d.fn != nil {
			d.fn(d)
		}
		for _, sub := range d.fwd {
			e.decWait(sub)
		}
	}
}

// Subscribe adds an edge from src to sub, so that sub is updated whenever src
// changes. Subscribing twice is a no-op, and so is subscribing to a constant.
//
// If src is itself waiting for updates, sub waits for it too. Otherwise, if a
// transaction is running, sub is appended to its roots; outside a transaction
// sub is marked dirty.
func (e *Engine) Subscribe(src, sub *Dep) {
	if sub.wait < 0 {
		e.violation("subscribing a constant")
		return
	}
	if src.wait < 0 {
		return
	}
	if slices.Contains(src.fwd, sub) {
		return
	}
	if e.propagating {
		e.violation("Subscribe while propagating")
	}
	src.fwd = append(src.fwd, sub)
	switch {
	case src.wait > 0:
		e.incWait(sub)
	case e.running:
		e.incWait(sub)
		e.roots = append(e.roots, sub)
	case !sub.dirty:
		e.MarkDirty(sub)
		sub.dirtiedBy = src
	}
}

// Unsubscribe removes the edge from src to sub. If src still owed sub an
// update, sub stops waiting for it; should that leave sub with nothing to
// wait for in a running transaction, sub is queued to settle on its own.
func (e *Engine) Unsubscribe(src, sub *Dep) {
	i := slices.Index(src.fwd, sub)
	if i < 0 {
		return
	}
	if e.propagating {
		e.violation("Unsubscribe while propagating")
	}
	src.fwd = slices.Delete(src.fwd, i, i+1)
	switch {
	case src.wait > 0:
		sub.wait--
		if sub.wait == 0 && e.running {
			sub.wait = 1
			e.roots = append(e.roots, sub)
		}
	case !e.running && sub.dirty && sub.dirtiedBy == src:
		e.withdraw(sub)
	}
}

// Removes a Dep from the dirty queue.
func (e *Engine) withdraw(d *Dep) {
	if i := slices.Index(e.queue, d); i >= 0 {
		e.queue = slices.Delete(e.queue, i, i+1)
	}
	d.dirty = false
	d.dirtiedBy = nil
}

func (e *Engine) violation(what string) {
	if debug {
		panic("dep: " + what)
	}
	logger.Printf("programmer error: %s", what)
}
