// Package opqueue runs units of work with dependency ordering.
//
// Two executors exist. Queue is a bounded background pool. MainQueue is a
// single serial loop that owns every piece of visual state; code that may
// only run there takes a *MainContext and calls Assert.
//
// An operation added to either executor starts only after every one of its
// dependencies has finished (successfully, with failure, or cancelled).
package opqueue

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle of an Operation. Finished is terminal
type State int32

const (
	Pending State = iota
	Executing
	Finished
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Executing:
		return "executing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Operation is a unit of work that can be ordered behind other operations
type Operation interface {
	// Start runs the operation. Calling it on a non-pending operation does nothing
	Start(ctx context.Context)
	// Cancel is idempotent and safe from any goroutine
	Cancel()
	State() State
	IsCancelled() bool
	// Done is closed once the operation is Finished
	Done() <-chan struct{}
	// AddDependency must be called before the operation is handed to an executor
	AddDependency(dep Operation)
	Dependencies() []Operation
}

// Base carries the state machine shared by all operations. Embed it and
// implement Start with BeginExecuting and Finish. The zero value is Pending
type Base struct {
	state     atomic.Int32
	cancelled atomic.Bool

	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
	deps     []Operation
}

func (b *Base) doneCh() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		b.done = make(chan struct{})
	}
	return b.done
}

// State returns the current lifecycle state
func (b *Base) State() State { return State(b.state.Load()) }

// IsCancelled reports whether Cancel was ever called
func (b *Base) IsCancelled() bool { return b.cancelled.Load() }

// Done is closed when the operation reaches Finished
func (b *Base) Done() <-chan struct{} { return b.doneCh() }

// BeginExecuting moves Pending to Executing. It returns false when the
// operation already left Pending, in which case Start must return at once
func (b *Base) BeginExecuting() bool {
	return b.state.CompareAndSwap(int32(Pending), int32(Executing))
}

// Finish moves the operation to Finished and releases dependents. Repeated calls are no-ops
func (b *Base) Finish() {
	b.state.Store(int32(Finished))
	ch := b.doneCh()
	b.doneOnce.Do(func() { close(ch) })
}

// Cancel marks the operation cancelled. A pending operation finishes
// immediately; an executing one is left to observe IsCancelled
func (b *Base) Cancel() {
	b.cancelled.Store(true)
	if b.state.CompareAndSwap(int32(Pending), int32(Finished)) {
		ch := b.doneCh()
		b.doneOnce.Do(func() { close(ch) })
	}
}

// AddDependency orders this operation after dep
func (b *Base) AddDependency(dep Operation) {
	if dep == nil {
		return
	}
	b.mu.Lock()
	b.deps = append(b.deps, dep)
	b.mu.Unlock()
}

// Dependencies returns a copy of the dependency list
func (b *Base) Dependencies() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Operation, len(b.deps))
	copy(out, b.deps)
	return out
}

// awaitDependencies blocks until every dependency of op is done. It returns
// false when stop closes first or op itself finishes while waiting
func awaitDependencies(stop <-chan struct{}, op Operation) bool {
	for _, d := range op.Dependencies() {
		select {
		case <-d.Done():
		case <-op.Done():
			return false
		case <-stop:
			return false
		}
	}
	return true
}

// closedCh is returned by trackers with nothing outstanding
var closedCh = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// tracker counts outstanding work and exposes a channel closed when it reaches zero
type tracker struct {
	mu   sync.Mutex
	n    int
	zero chan struct{}
}

func (t *tracker) add() {
	t.mu.Lock()
	if t.n == 0 {
		t.zero = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()
}

func (t *tracker) done() {
	t.mu.Lock()
	t.n--
	if t.n == 0 {
		close(t.zero)
	}
	t.mu.Unlock()
}

func (t *tracker) idle() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		return closedCh
	}
	return t.zero
}
