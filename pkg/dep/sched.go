package dep

import (
	"context"
	"sync"
)

// Scheduler defers a function to run later on the goroutine that owns an
// Engine.
type Scheduler interface {
	Schedule(fn func())
}

// Poster lets code running on other goroutines, such as network callbacks,
// hand work back to the goroutine that owns an Engine.
type Poster interface {
	Post(fn func())
}

// Manual is a Scheduler and Poster whose work runs only when Flush is
// called. It is safe to call Post concurrently with Flush.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

// Schedule implements Scheduler.
func (m *Manual) Schedule(fn func()) { m.Post(fn) }

// Post implements Poster.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
}

// Pending returns the number of queued functions.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Flush runs queued functions, including those queued while flushing, until
// none remain. It returns how many were run.
func (m *Manual) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		tasks := m.tasks
		m.tasks = nil
		m.mu.Unlock()
		if len(tasks) == 0 {
			return n
		}
		for _, fn := range tasks {
			fn()
			n++
		}
	}
}

// Loop is a Scheduler and Poster backed by an event loop goroutine.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// NewLoop creates a Loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Schedule implements Scheduler.
func (l *Loop) Schedule(fn func()) { l.Post(fn) }

// Post implements Poster. It never blocks, so it may be called from the loop
// itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run runs posted functions in order until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			for {
				l.mu.Lock()
				tasks := l.tasks
				l.tasks = nil
				l.mu.Unlock()
				if len(tasks) == 0 {
					break
				}
				for _, fn := range tasks {
					fn()
				}
			}
		}
	}
}

// Call posts fn and waits for it to run. It must not be called from the loop
// goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
