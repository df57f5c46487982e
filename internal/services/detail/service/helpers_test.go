package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"timeline/internal/core/fetch"
	"timeline/internal/core/opqueue"
	"timeline/internal/services/detail/domain"
	posts "timeline/internal/services/posts/domain"
)

// harness runs a main loop and a background queue for one test
type harness struct {
	main *opqueue.MainQueue
	bg   *opqueue.Queue
	ctx  context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{main: opqueue.NewMainQueue(), bg: opqueue.NewQueue("audio", 4), ctx: ctx}
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_ = h.main.Run(ctx)
	}()
	t.Cleanup(func() {
		h.bg.Close()
		cancel()
		<-exited
	})
	return h
}

func (h *harness) onMain(t *testing.T, fn func(mc *opqueue.MainContext)) {
	t.Helper()
	if err := h.main.Sync(h.ctx, fn); err != nil {
		t.Fatalf("main sync: %v", err)
	}
}

// settle waits for background work, then for the main units it queued
func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()
	if err := h.bg.Wait(ctx); err != nil {
		t.Fatalf("background wait: %v", err)
	}
	if err := h.main.Barrier(ctx); err != nil {
		t.Fatalf("main barrier: %v", err)
	}
}

// stubSession serves payloads by url. With gate set, requests hold until the
// gate closes or the request is aborted
type stubSession struct {
	mu       sync.Mutex
	payloads map[string][]byte
	fallback []byte
	status   int
	calls    map[string]int
	gate     chan struct{}
	entered  chan string
}

func newStubSession() *stubSession {
	return &stubSession{
		payloads: map[string][]byte{},
		calls:    map[string]int{},
		entered:  make(chan string, 256),
	}
}

func (s *stubSession) DataTask(ctx context.Context, url string) (fetch.Response, error) {
	s.mu.Lock()
	s.calls[url]++
	gate, status := s.gate, s.status
	data, ok := s.payloads[url]
	if !ok {
		data = s.fallback
	}
	s.mu.Unlock()
	s.entered <- url

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fetch.Response{}, ctx.Err()
		}
	}
	if status != 0 {
		return fetch.Response{Status: status}, nil
	}
	if data == nil {
		return fetch.Response{}, errors.New("connection refused")
	}
	return fetch.Response{Status: 200, Data: data, ContentType: "audio/mp4"}, nil
}

func (s *stubSession) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubSession) waitEntered(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d requests started", i, n)
		}
	}
}

// fakeSlot is a bare AudioSlot
type fakeSlot struct {
	comment posts.Comment
	data    []byte
	sets    int
}

func (s *fakeSlot) Comment(mc *opqueue.MainContext) (posts.Comment, bool) {
	mc.Assert()
	return s.comment, true
}

func (s *fakeSlot) SetAudioData(mc *opqueue.MainContext, data []byte) {
	mc.Assert()
	s.data = data
	s.sets++
}

func (s *fakeSlot) AudioData(mc *opqueue.MainContext) []byte {
	mc.Assert()
	return s.data
}

// fakeTable binds slots to rows
type fakeTable struct {
	rows map[domain.AudioSlot]int
}

func newFakeTable() *fakeTable { return &fakeTable{rows: map[domain.AudioSlot]int{}} }

func (f *fakeTable) RowForSlot(mc *opqueue.MainContext, s domain.AudioSlot) (int, bool) {
	mc.Assert()
	r, ok := f.rows[s]
	return r, ok
}

func (f *fakeTable) SlotForRow(mc *opqueue.MainContext, row int) (domain.AudioSlot, bool) {
	mc.Assert()
	for s, r := range f.rows {
		if r == row {
			return s, true
		}
	}
	return nil, false
}

func audioComment(url string) posts.Comment {
	return posts.Comment{ID: uuid.New(), Author: posts.Author{Name: "bo"}, AudioURL: url}
}

// fakePlayer records what it was asked to play
type fakePlayer struct {
	mu    sync.Mutex
	plays [][]byte
	err   error
}

func (p *fakePlayer) Play(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.plays = append(p.plays, data)
	return nil
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}
