// Package service implements the post detail screen and its audio loader
package service

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"timeline/internal/core/cache"
	"timeline/internal/core/fetch"
	"timeline/internal/core/opqueue"
	"timeline/internal/core/reconcile"
	"timeline/internal/platform/logger"
	"timeline/internal/services/detail/domain"
	posts "timeline/internal/services/posts/domain"
)

// pendingRegistry holds the in-flight fetch per comment. It is owned by the
// main queue: every method asserts the caller's token
type pendingRegistry struct {
	m map[uuid.UUID]*fetch.AudioTask
}

func (r *pendingRegistry) get(mc *opqueue.MainContext, id uuid.UUID) (*fetch.AudioTask, bool) {
	mc.Assert()
	t, ok := r.m[id]
	return t, ok
}

func (r *pendingRegistry) put(mc *opqueue.MainContext, id uuid.UUID, t *fetch.AudioTask) {
	mc.Assert()
	if r.m == nil {
		r.m = make(map[uuid.UUID]*fetch.AudioTask)
	}
	r.m[id] = t
}

// release drops the entry for id only while t still owns it
func (r *pendingRegistry) release(mc *opqueue.MainContext, id uuid.UUID, t *fetch.AudioTask) {
	mc.Assert()
	if r.m[id] == t {
		delete(r.m, id)
	}
}

func (r *pendingRegistry) len(mc *opqueue.MainContext) int {
	mc.Assert()
	return len(r.m)
}

// LoaderConfig wires an AudioLoader
type LoaderConfig struct {
	Session    fetch.Session
	Background *opqueue.Queue
	Main       *opqueue.MainQueue
	Table      domain.Table
	// Cache may be shared between loaders; nil gets a private one
	Cache   *cache.Cache[uuid.UUID, []byte]
	Metrics *Metrics
}

type counters struct {
	hits, misses, started, attached, stale atomic.Int64
	ok, failed, cancelled                  atomic.Int64
}

// AudioLoader fetches comment audio in the background and applies it to the
// slot that asked for it, unless the slot has moved on to another row
type AudioLoader struct {
	session fetch.Session
	bg      *opqueue.Queue
	main    *opqueue.MainQueue
	table   domain.Table
	cache   *cache.Cache[uuid.UUID, []byte]
	metrics *Metrics
	log     *logger.Logger

	pending pendingRegistry
	n       counters
}

// NewAudioLoader builds a loader; Session, Background, Main and Table are required
func NewAudioLoader(cfg LoaderConfig) *AudioLoader {
	if cfg.Session == nil || cfg.Background == nil || cfg.Main == nil || cfg.Table == nil {
		panic("detail: loader needs a session, both queues and a table")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New[uuid.UUID, []byte]()
	}
	return &AudioLoader{
		session: cfg.Session,
		bg:      cfg.Background,
		main:    cfg.Main,
		table:   cfg.Table,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		log:     logger.Named("detail.loader"),
	}
}

// EnsureAudioLoaded makes sure the audio of c ends up on h.Slot if the slot
// still shows h.Row when it arrives. Cached audio is applied right away;
// a fetch already in flight for c is joined instead of duplicated
func (l *AudioLoader) EnsureAudioLoaded(mc *opqueue.MainContext, h domain.RowHandle, c posts.Comment) {
	mc.Assert()
	if !c.HasAudio() {
		return
	}
	if data, ok := l.cache.Value(c.ID); ok {
		l.n.hits.Add(1)
		l.metrics.hit()
		h.Slot.SetAudioData(mc, data)
		return
	}
	l.n.misses.Add(1)
	l.metrics.miss()

	if t, ok := l.pending.get(mc, c.ID); ok && !t.IsCancelled() {
		l.n.attached.Add(1)
		l.metrics.attached()
		l.log.Debug().Str("comment_id", c.ID.String()).Int("row", h.Row).Msg("joined in-flight audio fetch")
		l.main.AddOperation(l.reconcileUnit(h, t, false))
		return
	}

	task := fetch.NewAudioTask(c.ID, c.AudioURL, l.session)
	store := opqueue.NewBlock(func(context.Context) {
		data, ok := task.AudioData()
		if !ok {
			return
		}
		l.cache.Store(c.ID, data)
		l.main.Async(func(mc *opqueue.MainContext) { l.apply(mc, h, data) })
	})
	store.AddDependency(task)
	rec := l.reconcileUnit(h, task, true)

	l.pending.put(mc, c.ID, task)
	l.n.started.Add(1)
	l.metrics.started()

	l.bg.AddOperation(task)
	l.bg.AddOperation(store)
	l.main.AddOperation(rec)
}

// reconcileUnit runs on the main queue after t finishes. The owning unit
// releases the registry entry and records the outcome
func (l *AudioLoader) reconcileUnit(h domain.RowHandle, t *fetch.AudioTask, owner bool) opqueue.Operation {
	op := opqueue.NewBlock(func(ctx context.Context) {
		mc := opqueue.MainFrom(ctx)
		if owner {
			l.pending.release(mc, t.Key(), t)
			l.record(t.Outcome())
		}
		data, ok := t.AudioData()
		if !ok {
			return
		}
		l.apply(mc, h, data)
	})
	op.AddDependency(t)
	return op
}

// apply sets data on the requested slot unless it now shows another row
func (l *AudioLoader) apply(mc *opqueue.MainContext, h domain.RowHandle, data []byte) {
	slot, ok := reconcile.Target(mc, h.Row, h.Slot, l.table)
	if !ok {
		l.n.stale.Add(1)
		l.metrics.stale()
		l.log.Debug().Int("row", h.Row).Msg("audio arrived for a reused slot, dropped")
		return
	}
	slot.SetAudioData(mc, data)
}

func (l *AudioLoader) record(o fetch.Outcome) {
	switch o {
	case fetch.OutcomeOK:
		l.n.ok.Add(1)
	case fetch.OutcomeFailed:
		l.n.failed.Add(1)
	case fetch.OutcomeCancelled:
		l.n.cancelled.Add(1)
	}
	l.metrics.outcome(o)
}

// CancelLoad cancels the in-flight fetch of c, if any. The task still
// finishes, so its reconcile unit runs and releases the registry entry
func (l *AudioLoader) CancelLoad(mc *opqueue.MainContext, c posts.Comment) {
	if t, ok := l.pending.get(mc, c.ID); ok {
		t.Cancel()
	}
}

// Cached returns the cached audio of a comment
func (l *AudioLoader) Cached(id uuid.UUID) ([]byte, bool) { return l.cache.Value(id) }

// Pending is the number of comments with a fetch in flight
func (l *AudioLoader) Pending(mc *opqueue.MainContext) int { return l.pending.len(mc) }

// Stats returns a snapshot of the loader counters
func (l *AudioLoader) Stats() domain.Stats {
	return domain.Stats{
		CacheHits:      int(l.n.hits.Load()),
		CacheMisses:    int(l.n.misses.Load()),
		FetchesStarted: int(l.n.started.Load()),
		DedupAttaches:  int(l.n.attached.Load()),
		StaleDiscards:  int(l.n.stale.Load()),
		Succeeded:      int(l.n.ok.Load()),
		Failed:         int(l.n.failed.Load()),
		Cancelled:      int(l.n.cancelled.Load()),
		Cached:         l.cache.Len(),
	}
}
