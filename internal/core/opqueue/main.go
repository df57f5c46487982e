package opqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"timeline/internal/platform/logger"
)

// ErrStopped is returned by Sync once the main loop has exited
var ErrStopped = errors.New("opqueue: main queue stopped")

// MainContext proves the caller is running inside a main queue unit.
// A token is live only while its unit executes; keeping it past that is a bug
type MainContext struct {
	q *MainQueue
}

// Assert panics unless mc is the token of the unit currently executing
func (mc *MainContext) Assert() {
	if mc == nil || mc.q == nil || mc.q.current.Load() != mc {
		panic("opqueue: called off the main queue")
	}
}

type mainKey struct{}

// MainFrom recovers the token of the running main unit from ctx; nil when ctx
// was not handed out by a MainQueue
func MainFrom(ctx context.Context) *MainContext {
	mc, _ := ctx.Value(mainKey{}).(*MainContext)
	return mc
}

type unit struct {
	run  func(ctx context.Context)
	drop func()
}

// MainQueue is the single serial context that owns visual state. Units run
// one at a time in submission order on the goroutine that called Run
type MainQueue struct {
	log *logger.Logger

	mu      sync.Mutex
	pending []unit
	stopped bool
	wake    chan struct{}
	exited  chan struct{}

	running atomic.Bool
	current atomic.Pointer[MainContext]

	waiting tracker
}

// NewMainQueue returns a MainQueue; units queue up until Run is called
func NewMainQueue() *MainQueue {
	return &MainQueue{
		log:    logger.Named("opqueue.main"),
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
}

// Run executes units until ctx ends. Units still queued at that point are
// dropped and operations among them are cancelled. Run may be called once
func (q *MainQueue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return errors.New("opqueue: main queue already running")
	}
	defer close(q.exited)

	for {
		if ctx.Err() != nil {
			q.stop()
			return nil
		}
		if u, ok := q.next(); ok {
			q.exec(ctx, u)
			continue
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			q.stop()
			return nil
		}
	}
}

func (q *MainQueue) next() (unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return unit{}, false
	}
	u := q.pending[0]
	q.pending[0] = unit{}
	q.pending = q.pending[1:]
	return u, true
}

func (q *MainQueue) exec(ctx context.Context, u unit) {
	mc := &MainContext{q: q}
	q.current.Store(mc)
	defer func() {
		q.current.Store(nil)
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Msg("main unit panicked")
		}
	}()
	u.run(context.WithValue(ctx, mainKey{}, mc))
}

func (q *MainQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, u := range dropped {
		if u.drop != nil {
			u.drop()
		}
	}
}

// enqueue appends u, or drops it when the loop has stopped
func (q *MainQueue) enqueue(u unit) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		if u.drop != nil {
			u.drop()
		}
		return
	}
	q.pending = append(q.pending, u)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Async queues fn to run on the main loop. It never blocks
func (q *MainQueue) Async(fn func(mc *MainContext)) {
	q.enqueue(unit{run: func(ctx context.Context) { fn(MainFrom(ctx)) }})
}

// AddOperation runs op on the main loop once its dependencies are done
func (q *MainQueue) AddOperation(op Operation) {
	q.waiting.add()
	go func() {
		defer q.waiting.done()
		if !awaitDependencies(q.exited, op) {
			op.Cancel()
			return
		}
		q.enqueue(unit{run: op.Start, drop: op.Cancel})
	}()
}

// Sync runs fn on the main loop and waits for it to return. Called from a
// main unit (ctx carries a live token) fn runs inline
func (q *MainQueue) Sync(ctx context.Context, fn func(mc *MainContext)) error {
	if mc := MainFrom(ctx); mc != nil && q.current.Load() == mc {
		fn(mc)
		return nil
	}
	var ran bool
	done := make(chan struct{})
	q.enqueue(unit{
		run: func(c context.Context) {
			defer close(done)
			ran = true
			fn(MainFrom(c))
		},
		drop: func() { close(done) },
	})
	select {
	case <-done:
		if !ran {
			return ErrStopped
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Barrier waits until every operation handed to AddOperation so far has been
// queued, then until the loop has drained everything queued before it
func (q *MainQueue) Barrier(ctx context.Context) error {
	select {
	case <-q.waiting.idle():
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.Sync(ctx, func(*MainContext) {})
}

// Stopped is closed when Run returns
func (q *MainQueue) Stopped() <-chan struct{} { return q.exited }
