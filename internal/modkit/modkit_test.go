package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	phttp "timeline/internal/platform/net/http"
	"timeline/internal/platform/testkit"
)

type FooPort interface{ Foo() int }

type fooImpl struct{ v int }

func (f fooImpl) Foo() int { return f.v }

type fakeModule struct{ ports any }

func (fakeModule) Name() string             { return "fake" }
func (m fakeModule) Ports() any             { return m.ports }
func (fakeModule) MountRoutes(phttp.Router) {}

func TestPortsOf(t *testing.T) {
	type bundle struct {
		Foo FooPort
		N   int
	}
	type hidden struct{ foo FooPort }

	cases := []struct {
		name  string
		ports any
		want  int
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"direct", fooImpl{v: 42}, 42, true},
		{"exported field", bundle{Foo: fooImpl{v: 7}}, 7, true},
		{"unexported field", hidden{foo: fooImpl{v: 1}}, 0, false},
		{"not a struct", 12, 0, false},
	}
	for _, c := range cases {
		got, ok := PortsOf[FooPort](fakeModule{ports: c.ports})
		if ok != c.ok || (ok && got.Foo() != c.want) {
			t.Fatalf("%s: ok=%v got=%v", c.name, ok, got)
		}
	}

	r := testkit.MustPanic(t, func() { MustPortsOf[FooPort](fakeModule{}) })
	testkit.MustContain(t, r.(string), "fake")
}

func TestBuild_DefaultsAndCopy(t *testing.T) {
	b := Build()
	if b.Name != "" || b.Prefix != "" || b.Ports != nil || len(b.Mw) != 0 {
		t.Fatalf("unexpected defaults %+v", b)
	}
	testkit.MustNotPanic(t, func() { b.Register(nil) })

	mw := []func(http.Handler) http.Handler{func(h http.Handler) http.Handler { return h }}
	b = Build(WithName("posts"), WithPrefix("/v1"), WithMiddlewares(mw...), WithPorts(fooImpl{v: 3}))
	mw[0] = nil
	if b.Name != "posts" || b.Prefix != "/v1" || b.Mw[0] == nil {
		t.Fatalf("options not applied or Mw aliased: %+v", b)
	}
	if p, ok := b.Ports.(fooImpl); !ok || p.v != 3 {
		t.Fatalf("ports = %#v", b.Ports)
	}
}

func TestBuilt_MountUnderPrefix(t *testing.T) {
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)

	tagged := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Module", "posts")
			next.ServeHTTP(w, req)
		})
	}
	b := Build(
		WithPrefix("/v1"),
		WithMiddlewares(tagged),
		WithRegister(func(rr phttp.Router) {
			rr.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
		}),
	)
	b.Mount(r, func(rr phttp.Router) {
		rr.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	})

	for path, want := range map[string]int{"/v1/ping": http.StatusTeapot, "/v1/extra": http.StatusAccepted, "/ping": http.StatusNotFound} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s = %d, want %d", path, rec.Code, want)
		}
		if want != http.StatusNotFound && rec.Header().Get("X-Module") != "posts" {
			t.Fatalf("%s missing module middleware", path)
		}
	}
}
