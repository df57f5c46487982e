package service

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"timeline/internal/core/opqueue"
	"timeline/internal/platform/notify"
	"timeline/internal/platform/testkit"
	"timeline/internal/services/detail/domain"
	posts "timeline/internal/services/posts/domain"
	"timeline/internal/services/posts/repo"
	postsvc "timeline/internal/services/posts/service"
)

type fixture struct {
	h      *harness
	s      *stubSession
	svc    *postsvc.Service
	center *notify.Center
	player *fakePlayer
	m      *Metrics
	d      *ImagePostDetail
}

// newFixture creates a post whose rows are the given kinds, "text" or "audio",
// and a detail screen with a pool of size cells showing it
func newFixture(t *testing.T, pool int, kinds ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		h:      newHarness(t),
		s:      newStubSession(),
		svc:    postsvc.New(repo.NewMemory(), nil, postsvc.Options{PublicBaseURL: "http://api.test"}),
		center: notify.New(),
		player: &fakePlayer{},
		m:      NewMetrics(nil),
	}
	p, err := f.svc.CreatePost(ctx, posts.CreatePostInput{Author: "ana", Title: "pier", MediaType: posts.MediaImage})
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range kinds {
		switch k {
		case "text":
			if _, err := f.svc.AddComment(ctx, p.ID, posts.AddCommentInput{Author: "bo", Text: "text " + strconv.Itoa(i)}); err != nil {
				t.Fatal(err)
			}
		case "audio":
			c, err := f.svc.AddAudioComment(ctx, p.ID, posts.AddAudioCommentInput{Author: "cy", ContentType: "audio/aac", Audio: []byte{1}})
			if err != nil {
				t.Fatal(err)
			}
			f.s.payloads[c.AudioURL] = payloadFor(i)
		}
	}
	if p, err = f.svc.Post(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	f.d, err = NewImagePostDetail(Config{
		Post:       p,
		Controller: f.svc,
		Session:    f.s,
		Background: f.h.bg,
		Main:       f.h.main,
		Player:     f.player,
		Center:     f.center,
		Metrics:    f.m,
		PoolSize:   pool,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = f.h.main.Sync(context.Background(), f.d.Teardown)
	})
	return f
}

func payloadFor(row int) []byte { return []byte("audio-" + strconv.Itoa(row)) }

func (f *fixture) rows(t *testing.T) int {
	t.Helper()
	var n int
	f.h.onMain(t, func(mc *opqueue.MainContext) { n = f.d.NumberOfRows(mc) })
	return n
}

func (f *fixture) reloads(t *testing.T) int {
	t.Helper()
	var n int
	f.h.onMain(t, func(mc *opqueue.MainContext) { n = f.d.Reloads(mc) })
	return n
}

func TestDetail_RowsSkipTheCaption(t *testing.T) {
	f := newFixture(t, 2, "text", "audio", "text")
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if f.d.NumberOfRows(mc) != 3 || f.d.Title(mc) != "pier" {
			t.Errorf("rows=%d title=%q", f.d.NumberOfRows(mc), f.d.Title(mc))
		}
		r0, err := f.d.CellForRow(mc, 0)
		if err != nil || r0.Kind != RowText || r0.Text != "text 0" || r0.Author != "bo" {
			t.Errorf("row 0 = %+v %v", r0, err)
		}
		r1, err := f.d.CellForRow(mc, 1)
		if err != nil || r1.Kind != RowAudio || r1.Cell == nil || r1.Author != "cy" {
			t.Errorf("row 1 = %+v %v", r1, err)
		}
		if _, err := f.d.CellForRow(mc, 3); err == nil {
			t.Errorf("row 3 should be out of range")
		}
	})
}

func TestDetail_NumberOfRowsClampsAtZero(t *testing.T) {
	f := newFixture(t, 1)
	if n := f.rows(t); n != 0 {
		t.Fatalf("caption only rows = %d", n)
	}

	empty, err := NewImagePostDetail(Config{
		Post: posts.Post{ID: uuid.New()}, Controller: f.svc, Session: f.s,
		Background: f.h.bg, Main: f.h.main, Player: f.player,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if n := empty.NumberOfRows(mc); n != 0 {
			t.Errorf("no comments rows = %d", n)
		}
		empty.Teardown(mc)
	})
}

func TestDetail_ScrollReusesPoolAndLoadsEachRow(t *testing.T) {
	f := newFixture(t, 2, "audio", "audio", "audio", "audio", "audio")

	for _, first := range []int{0, 3} {
		f.h.onMain(t, func(mc *opqueue.MainContext) {
			if _, err := f.d.Scroll(mc, first, 2); err != nil {
				t.Errorf("scroll: %v", err)
			}
		})
		f.h.settle(t)
	}

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		bound := 0
		for _, st := range f.d.Slots(mc) {
			if st.Row < 0 {
				continue
			}
			bound++
			s, _ := f.d.SlotForRow(mc, st.Row)
			if !bytes.Equal(s.AudioData(mc), payloadFor(st.Row)) || !st.PlayEnabled {
				t.Errorf("cell %d row %d shows %q", st.Cell, st.Row, s.AudioData(mc))
			}
		}
		if bound != 2 {
			t.Errorf("bound cells = %d", bound)
		}
	})
	if st := f.d.Loader().Stats(); st.FetchesStarted != 4 || f.s.total() != 4 {
		t.Fatalf("stats = %+v calls = %d", st, f.s.total())
	}
}

func TestDetail_ReusedCellShowsOnlyItsNewRow(t *testing.T) {
	f := newFixture(t, 1, "audio", "audio")
	f.s.gate = make(chan struct{})

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if _, err := f.d.CellForRow(mc, 0); err != nil {
			t.Error(err)
		}
		// the only cell is taken over by row 1 while row 0 is still loading
		if _, err := f.d.CellForRow(mc, 1); err != nil {
			t.Error(err)
		}
	})
	f.s.waitEntered(t, 2)
	close(f.s.gate)
	f.h.settle(t)

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		s, ok := f.d.SlotForRow(mc, 1)
		if !ok || !bytes.Equal(s.AudioData(mc), payloadFor(1)) {
			t.Errorf("row 1 cell = %v", s)
		}
		if _, ok := f.d.SlotForRow(mc, 0); ok {
			t.Errorf("row 0 still has a cell")
		}
	})
	if st := f.d.Loader().Stats(); st.StaleDiscards < 1 || st.Succeeded != 2 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDetail_EndDisplayingCancelsLoad(t *testing.T) {
	f := newFixture(t, 2, "audio", "text")
	f.s.gate = make(chan struct{})

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if _, err := f.d.Scroll(mc, 0, 1); err != nil {
			t.Error(err)
		}
	})
	f.s.waitEntered(t, 1)
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if _, err := f.d.Scroll(mc, 1, 1); err != nil {
			t.Error(err)
		}
	})
	f.h.settle(t)

	if st := f.d.Loader().Stats(); st.Cancelled != 1 || st.Cached != 0 {
		t.Fatalf("stats = %+v", st)
	}
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		for _, st := range f.d.Slots(mc) {
			if st.Row >= 0 || st.Bytes != 0 {
				t.Errorf("slot = %+v", st)
			}
		}
		if f.d.Loader().Pending(mc) != 0 {
			t.Errorf("registry not released after cancel")
		}
	})
	close(f.s.gate)
}

func TestDetail_PlayRecording(t *testing.T) {
	f := newFixture(t, 1, "audio")
	f.s.gate = make(chan struct{})

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if _, err := f.d.Scroll(mc, 0, 1); err != nil {
			t.Error(err)
		}
		if f.d.PlayRow(mc, 0) {
			t.Errorf("played before audio arrived")
		}
	})
	close(f.s.gate)
	f.h.settle(t)

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if !f.d.PlayRow(mc, 0) {
			t.Errorf("play tap ignored")
		}
	})
	if f.player.count() != 1 || !bytes.Equal(f.player.plays[0], payloadFor(0)) {
		t.Fatalf("plays = %q", f.player.plays)
	}

	f.player.err = errors.New("unsupported format")
	f.h.onMain(t, func(mc *opqueue.MainContext) { f.d.PlayRow(mc, 0) })
	if got := testutil.ToFloat64(f.m.playbacks.WithLabelValues("error")); got != 1 {
		t.Fatalf("playback errors = %v", got)
	}
	if f.player.count() != 1 {
		t.Fatalf("failed playback recorded")
	}
}

func TestDetail_AddTextCommentReloads(t *testing.T) {
	f := newFixture(t, 2, "audio")
	f.h.onMain(t, func(mc *opqueue.MainContext) { _, _ = f.d.Scroll(mc, 0, 5) })
	f.h.settle(t)

	c, err := f.d.AddTextComment(context.Background(), "dee", "hello")
	if err != nil {
		t.Fatal(err)
	}
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if f.d.NumberOfRows(mc) != 2 || f.d.Reloads(mc) != 1 {
			t.Errorf("rows=%d reloads=%d", f.d.NumberOfRows(mc), f.d.Reloads(mc))
		}
		row, err := f.d.CellForRow(mc, 1)
		if err != nil || row.Text != "hello" {
			t.Errorf("new row = %+v %v", row, err)
		}
		// the reload re-bound row 0 and found its audio in the cache
		s, ok := f.d.SlotForRow(mc, 0)
		if !ok || !bytes.Equal(s.AudioData(mc), payloadFor(0)) {
			t.Errorf("row 0 after reload = %v", s)
		}
	})
	if st := f.d.Loader().Stats(); st.CacheHits < 1 || st.FetchesStarted != 1 {
		t.Fatalf("stats = %+v", st)
	}

	stored, err := f.svc.Post(context.Background(), c.PostID)
	if err != nil || len(stored.Comments) != 3 {
		t.Fatalf("stored comments = %d %v", len(stored.Comments), err)
	}

	if _, err := f.d.AddTextComment(context.Background(), "dee", "   "); err == nil {
		t.Fatalf("blank comment accepted")
	}
}

func TestDetail_AudioCommentPostedReloads(t *testing.T) {
	f := newFixture(t, 2, "text")
	f.s.fallback = []byte("fresh")

	if _, err := f.d.AddAudioComment(context.Background(), "eve", "audio/aac", []byte{5, 6}); err != nil {
		t.Fatal(err)
	}
	testkit.Eventually(t, 2*time.Second, func() bool { return f.reloads(t) == 1 }, "reload after audio comment")

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if n := f.d.NumberOfRows(mc); n != 2 {
			t.Errorf("rows = %d", n)
		}
		row, err := f.d.CellForRow(mc, 1)
		if err != nil || row.Kind != RowAudio {
			t.Errorf("row 1 = %+v %v", row, err)
		}
	})
	f.h.settle(t)
	f.h.onMain(t, func(mc *opqueue.MainContext) {
		s, _ := f.d.SlotForRow(mc, 1)
		if s == nil || string(s.AudioData(mc)) != "fresh" {
			t.Errorf("posted audio not loaded")
		}
	})
}

func TestDetail_RefreshReplacesPost(t *testing.T) {
	f := newFixture(t, 2, "text")
	ctx := context.Background()
	var id uuid.UUID
	f.h.onMain(t, func(mc *opqueue.MainContext) { id = f.d.Post(mc).ID })

	// another post's replacement is ignored
	f.center.Post(notify.Notification{Name: domain.ReplacePost, Object: posts.Post{ID: uuid.New()}})

	if _, err := f.svc.AddComment(ctx, id, posts.AddCommentInput{Author: "fay", Text: "elsewhere"}); err != nil {
		t.Fatal(err)
	}
	if err := f.d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	testkit.Eventually(t, 2*time.Second, func() bool { return f.rows(t) == 2 }, "refreshed rows")

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		if f.d.Post(mc).ID != id || f.d.Reloads(mc) != 1 {
			t.Errorf("post=%s reloads=%d", f.d.Post(mc).ID, f.d.Reloads(mc))
		}
	})
}

func TestDetail_Teardown(t *testing.T) {
	f := newFixture(t, 1, "audio")
	f.h.onMain(t, func(mc *opqueue.MainContext) { _, _ = f.d.Scroll(mc, 0, 1) })
	f.h.settle(t)

	f.h.onMain(t, func(mc *opqueue.MainContext) {
		f.d.Teardown(mc)
		f.d.Teardown(mc)
		if f.d.PlayRow(mc, 0) {
			t.Errorf("cell still reaches the screen after teardown")
		}
	})

	before := f.center.Stats().Delivered
	f.center.Post(notify.Notification{Name: domain.AudioCommentPosted, Object: posts.Comment{}})
	if f.center.Stats().Delivered != before {
		t.Fatalf("notification delivered after teardown")
	}
	if f.reloads(t) != 0 {
		t.Fatalf("reloaded after teardown")
	}
	if f.player.count() != 0 {
		t.Fatalf("played after teardown")
	}
}

func TestNewImagePostDetail_RequiresCollaborators(t *testing.T) {
	if _, err := NewImagePostDetail(Config{}); err == nil {
		t.Fatalf("expected an error without controller and player")
	}
}
