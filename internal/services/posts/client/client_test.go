package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	perr "timeline/internal/platform/errors"
	phttp "timeline/internal/platform/net/http"
	"timeline/internal/platform/testkit"
	"timeline/internal/services/posts/domain"
	posthttp "timeline/internal/services/posts/http"
	"timeline/internal/services/posts/repo"
	"timeline/internal/services/posts/service"
)

func newAPI(t *testing.T) *Client {
	t.Helper()
	mux := chi.NewMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	posthttp.Register(phttp.AdaptChi(mux), service.New(repo.NewMemory(), nil, service.Options{PublicBaseURL: srv.URL}))
	return New(Options{BaseURL: srv.URL + "/"})
}

func TestClient_PostController(t *testing.T) {
	c := newAPI(t)
	ctx := context.Background()

	p, err := c.CreatePost(ctx, domain.CreatePostInput{Author: "ana", Title: "pier", MediaType: domain.MediaImage})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.AddComment(ctx, p.ID, domain.AddCommentInput{Author: "bo", Text: "hi"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	ac, err := c.AddAudioComment(ctx, p.ID, domain.AddAudioCommentInput{Author: "cy", ContentType: "audio/aac", Audio: []byte("abc")})
	if err != nil {
		t.Fatalf("audio: %v", err)
	}
	if !ac.HasAudio() {
		t.Fatalf("audio comment without url: %+v", ac)
	}

	got, err := c.Post(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Comments) != 3 || got.Comments[2].ID != ac.ID {
		t.Fatalf("post = %+v", got)
	}

	list, err := c.Posts(ctx, 5)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v %v", list, err)
	}
}

func TestClient_ErrorsKeepCodeAndField(t *testing.T) {
	c := newAPI(t)
	ctx := context.Background()

	_, err := c.Post(ctx, uuid.New())
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing post err = %v", err)
	}

	p, err := c.CreatePost(ctx, domain.CreatePostInput{Author: "ana", Title: "t", MediaType: domain.MediaImage})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.AddComment(ctx, p.ID, domain.AddCommentInput{Author: "bo", Text: "   "})
	e, ok := perr.As(err)
	if !ok || e.Code() != perr.ErrorCodeValidation || e.Field() != "text" {
		t.Fatalf("blank text err = %v", err)
	}
}

func TestClient_RetriesGetOnUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
			return
		}
		phttp.RespondOK(w, r, domain.Post{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a")})
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, MaxRetries: 3, RetryBase: time.Millisecond})
	var slept []time.Duration
	testkit.Swap(t, &c.sleep, func(d time.Duration) { slept = append(slept, d) })

	p, err := c.Post(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if p.ID.String() != "00000000-0000-0000-0000-00000000000a" || hits.Load() != 3 {
		t.Fatalf("id=%s hits=%d", p.ID, hits.Load())
	}
	if len(slept) != 2 || slept[1] != 2*time.Millisecond {
		t.Fatalf("backoff = %v", slept)
	}
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		phttp.RespondError(w, r, perr.Unavailablef("down"))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL})
	testkit.Swap(t, &c.sleep, func(time.Duration) {})

	_, err := c.AddComment(context.Background(), uuid.New(), domain.AddCommentInput{Author: "a", Text: "b"})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) || hits.Load() != 1 {
		t.Fatalf("err=%v hits=%d", err, hits.Load())
	}
}

func TestClient_CanceledContext(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Post(ctx, uuid.New()); !perr.IsCode(err, perr.ErrorCodeCanceled) {
		t.Fatalf("err = %v", err)
	}
}
