package repo

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	perr "timeline/internal/platform/errors"
	"timeline/internal/services/posts/domain"
)

// memState is the data behind the memory repo; methods assume the caller holds the lock
type memState struct {
	posts    map[uuid.UUID]domain.Post // Comments unset, see comments
	order    []uuid.UUID               // insert order
	comments map[uuid.UUID][]domain.Comment
	commentN map[uuid.UUID]struct{}
	audio    map[uuid.UUID]domain.Blob
}

func newMemState() *memState {
	return &memState{
		posts:    make(map[uuid.UUID]domain.Post),
		comments: make(map[uuid.UUID][]domain.Comment),
		commentN: make(map[uuid.UUID]struct{}),
		audio:    make(map[uuid.UUID]domain.Blob),
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.posts {
		c.posts[k] = v
	}
	c.order = slices.Clone(m.order)
	for k, v := range m.comments {
		c.comments[k] = slices.Clone(v)
	}
	for k := range m.commentN {
		c.commentN[k] = struct{}{}
	}
	for k, v := range m.audio {
		c.audio[k] = v
	}
	return c
}

func (m *memState) post(id uuid.UUID) (domain.Post, bool) {
	p, ok := m.posts[id]
	if !ok {
		return p, false
	}
	p.Comments = slices.Clone(m.comments[id])
	if p.Comments == nil {
		p.Comments = []domain.Comment{}
	}
	return p, true
}

func (m *memState) listPosts(limit int) []domain.Post {
	out := make([]domain.Post, 0, len(m.order))
	for _, id := range slices.Backward(m.order) {
		p, _ := m.post(id)
		out = append(out, p)
	}
	// newest first; later inserts win ties
	slices.SortStableFunc(out, func(a, b domain.Post) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memState) insertPost(p domain.Post) error {
	if _, ok := m.posts[p.ID]; ok {
		return perr.Newf(perr.ErrorCodeDuplicateKey, "post %s exists", p.ID)
	}
	p.Comments = nil
	m.posts[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memState) insertComment(c domain.Comment) error {
	if _, ok := m.posts[c.PostID]; !ok {
		return perr.NotFoundf("post %s not found", c.PostID)
	}
	if _, ok := m.commentN[c.ID]; ok {
		return perr.Newf(perr.ErrorCodeDuplicateKey, "comment %s exists", c.ID)
	}
	m.commentN[c.ID] = struct{}{}
	m.comments[c.PostID] = append(m.comments[c.PostID], c)
	return nil
}

// Memory is an in-process Repo for tests and database-less runs
type Memory struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemory returns an empty memory repo
func NewMemory() *Memory { return &Memory{state: newMemState()} }

// ListPosts implements Storage
func (r *Memory) ListPosts(_ context.Context, limit int) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.listPosts(limit), nil
}

// GetPost implements Storage
func (r *Memory) GetPost(_ context.Context, id uuid.UUID) (domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.state.post(id); ok {
		return p, nil
	}
	return domain.Post{}, perr.NotFoundf("post %s not found", id)
}

// InsertPost implements Storage
func (r *Memory) InsertPost(_ context.Context, p domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.insertPost(p)
}

// InsertComment implements Storage
func (r *Memory) InsertComment(_ context.Context, c domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.insertComment(c)
}

// PutAudio implements Storage; the bytes are copied
func (r *Memory) PutAudio(_ context.Context, commentID uuid.UUID, b domain.Blob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Data = bytes.Clone(b.Data)
	r.state.audio[commentID] = b
	return nil
}

// GetAudio implements Storage
func (r *Memory) GetAudio(_ context.Context, commentID uuid.UUID) (domain.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.state.audio[commentID]
	if !ok {
		return domain.Blob{}, perr.NotFoundf("audio for comment %s not found", commentID)
	}
	b.Data = bytes.Clone(b.Data)
	return b, nil
}

// Tx runs fn on a copy of the data and swaps it in when fn succeeds
func (r *Memory) Tx(ctx context.Context, fn func(Storage) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeCanceled, "memory tx")
	}
	work := &Memory{state: r.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	r.state = work.state
	return nil
}
