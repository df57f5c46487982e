package http_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"timeline/internal/platform/config"
	phttp "timeline/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestServer_RunServesUntilCanceled(t *testing.T) {
	t.Setenv("SRV_ADDR", "127.0.0.1:0")
	t.Setenv("SRV_SHUTDOWN_TIMEOUT", "1s")

	optCalled := false
	srv := phttp.NewServer(config.New().Prefix("SRV_"), func(*chi.Mux) { optCalled = true })
	if !optCalled {
		t.Fatalf("expected NewServer option to be called")
	}
	srv.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	select {
	case a := <-srv.Ready():
		addr = a.String()
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never came up")
	}

	res, err := http.Get("http://" + addr + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after cancel: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestServer_ListenError(t *testing.T) {
	t.Setenv("BAD_ADDR", "256.0.0.1:bogus")
	srv := phttp.NewServer(config.New().Prefix("BAD_"))
	if err := srv.Run(context.Background()); err == nil {
		t.Fatalf("expected listen error")
	}
}

func TestNewServer_DefaultAddr(t *testing.T) {
	if got := phttp.NewServer(config.New().Prefix("NOPE_")).Addr(); got != ":4000" {
		t.Fatalf("Addr = %q, want :4000", got)
	}
}
