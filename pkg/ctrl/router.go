package ctrl

import (
	"net/url"
	"sync"

	"src.manglr.sh/pkg/vals"
)

// History is the navigation state of the host.
type History interface {
	// Current returns the current location, such as "/todos?filter=done".
	Current() string
	// Listen registers fn to be called with each new location. It may be
	// called on any goroutine.
	Listen(fn func(location string)) (cancel func())
}

// Router exposes the location of a History. Its fields are:
//
//   - route: the path of the location, without the query;
//   - path: the whole location;
//   - query: the query parameters, keeping the first value of each.
type Router struct {
	*vals.Model
	cancel func()
	closed bool
}

// NewRouter creates a Router following h.
func NewRouter(env *Env, h History) *Router {
	r := &Router{Model: vals.NewModel(env.Eng)}
	r.Load(routeFields(h.Current()))
	r.cancel = h.Listen(func(loc string) {
		env.post(func() {
			if !r.closed {
				r.Load(routeFields(loc))
			}
		})
	})
	return r
}

func routeFields(loc string) map[string]any {
	fields := map[string]any{"route": "/", "path": loc, "query": map[string]any{}}
	u, err := url.Parse(loc)
	if err != nil {
		logger.Printf("bad location %q: %v", loc, err)
		return fields
	}
	if u.Path != "" {
		fields["route"] = u.Path
	}
	query := fields["query"].(map[string]any)
	for k, vs := range u.Query() {
		query[k] = vs[0]
	}
	return fields
}

// Close stops following the History.
func (r *Router) Close() {
	if !r.closed {
		r.closed = true
		r.cancel()
	}
}

// MemHistory is a History kept in memory. It is safe for concurrent use.
type MemHistory struct {
	mu        sync.Mutex
	entries   []string
	listeners map[int]func(string)
	nextID    int
}

// NewMemHistory creates a MemHistory at the given location.
func NewMemHistory(location string) *MemHistory {
	return &MemHistory{entries: []string{location}, listeners: make(map[int]func(string))}
}

// Current implements History.
func (h *MemHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Listen implements History.
func (h *MemHistory) Listen(fn func(string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Push navigates to a new location.
func (h *MemHistory) Push(location string) {
	h.change(func() { h.entries = append(h.entries, location) })
}

// Replace replaces the current location.
func (h *MemHistory) Replace(location string) {
	h.change(func() { h.entries[len(h.entries)-1] = location })
}

// Back returns to the previous location. It reports false if there is none.
func (h *MemHistory) Back() bool {
	ok := false
	h.change(func() {
		if len(h.entries) > 1 {
			h.entries = h.entries[:len(h.entries)-1]
			ok = true
		}
	})
	return ok
}

func (h *MemHistory) change(f func()) {
	h.mu.Lock()
	f()
	loc := h.entries[len(h.entries)-1]
	fns := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
}
