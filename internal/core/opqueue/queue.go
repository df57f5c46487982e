package opqueue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"timeline/internal/platform/logger"
)

// DefaultMaxConcurrent bounds a Queue created with a non-positive limit
const DefaultMaxConcurrent = 4

// QueueStats is a point-in-time snapshot of a Queue
type QueueStats struct {
	Waiting   int // added, not yet running
	Running   int
	Finished  int
	Cancelled int // never ran: cancelled before start or dropped on Close
}

// Queue runs operations on background goroutines with bounded parallelism
type Queue struct {
	name string
	sem  *semaphore.Weighted
	log  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	stats  QueueStats

	outstanding tracker
}

// NewQueue returns a running Queue. maxConcurrent <= 0 means DefaultMaxConcurrent
func NewQueue(name string, maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		name:   name,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		log:    logger.Named("opqueue." + name),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddOperation schedules op to start once its dependencies are done.
// After Close the operation is cancelled instead
func (q *Queue) AddOperation(op Operation) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		op.Cancel()
		return
	}
	q.stats.Waiting++
	q.outstanding.add()
	q.mu.Unlock()

	go q.run(op)
}

func (q *Queue) run(op Operation) {
	defer q.outstanding.done()

	if !awaitDependencies(q.ctx.Done(), op) || op.State() != Pending {
		q.skip(op)
		return
	}
	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		q.skip(op)
		return
	}
	defer q.sem.Release(1)

	q.mu.Lock()
	q.stats.Waiting--
	q.stats.Running++
	q.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Msg("operation panicked")
			// dependents must not hang on a broken operation
			op.Cancel()
			if b, ok := op.(interface{ Finish() }); ok {
				b.Finish()
			}
		}
		q.mu.Lock()
		q.stats.Running--
		q.stats.Finished++
		q.mu.Unlock()
	}()
	op.Start(q.ctx)
}

func (q *Queue) skip(op Operation) {
	op.Cancel()
	q.mu.Lock()
	q.stats.Waiting--
	q.stats.Cancelled++
	q.mu.Unlock()
}

// Wait blocks until every operation added so far is done or ctx ends
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.outstanding.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, cancels the context handed to running
// operations, and waits for every goroutine to return
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	<-q.outstanding.idle()
	q.log.Debug().Int("finished", q.Stats().Finished).Msg("queue closed")
}

// Stats returns a snapshot of the queue counters
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
