package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "timeline/internal/platform/errors"
	pnet "timeline/internal/platform/net"
	phttp "timeline/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func reqWithID(method, target, body, id string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	return r.WithContext(pnet.WithRequestID(r.Context(), id))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestRespondHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondOK(rec, reqWithID("GET", "/", "", "rid-1"), map[string]string{"k": "v"})
	if env := decode(t, rec); rec.Code != 200 || env.RequestID != "rid-1" || env.Data.(map[string]any)["k"] != "v" {
		t.Fatalf("RespondOK: %d %+v", rec.Code, env)
	}

	rec = httptest.NewRecorder()
	phttp.RespondCreated(rec, reqWithID("POST", "/", "", "rid-2"), "x")
	if rec.Code != http.StatusCreated {
		t.Fatalf("RespondCreated status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	phttp.RespondError(rec, reqWithID("GET", "/", "", "rid-3"), perr.WithField(perr.InvalidArgf("bad id"), "id"))
	env := decode(t, rec)
	if rec.Code != http.StatusUnprocessableEntity || env.Code != perr.ErrorCodeInvalidArgument || env.Field != "id" || env.Error != "bad id" {
		t.Fatalf("RespondError: %d %+v", rec.Code, env)
	}
}

func TestRespondBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondBytes(rec, "audio/mp4", []byte{1, 2, 3})
	if rec.Header().Get("Content-Type") != "audio/mp4" || rec.Header().Get("Content-Length") != "3" || rec.Body.Len() != 3 {
		t.Fatalf("unexpected: %v %d", rec.Header(), rec.Body.Len())
	}
	rec = httptest.NewRecorder()
	phttp.RespondBytes(rec, "", nil)
	if rec.Header().Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("default content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestHandle_ResponseVariants(t *testing.T) {
	cases := []struct {
		name   string
		resp   phttp.Response
		status int
	}{
		{"ok", phttp.OK(1), http.StatusOK},
		{"zero status", phttp.Response{Body: "x"}, http.StatusOK},
		{"created", phttp.Created(1), http.StatusCreated},
		{"no content", phttp.NoContent(), http.StatusNoContent},
		{"error wins", phttp.Response{Status: http.StatusCreated, Body: perr.NotFoundf("gone")}, http.StatusNotFound},
		{"error helper", phttp.Error(perr.Unavailablef("down")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.resp.Header = http.Header{"X-Test": {"1"}}
			rec := httptest.NewRecorder()
			phttp.Handle(func(*http.Request) phttp.Response { return tc.resp })(rec, httptest.NewRequest("GET", "/", nil))
			if rec.Code != tc.status || rec.Header().Get("X-Test") != "1" {
				t.Fatalf("status = %d, header = %v", rec.Code, rec.Header())
			}
			if tc.status == http.StatusNoContent && rec.Body.Len() != 0 {
				t.Fatalf("204 should have empty body")
			}
		})
	}
}

type echoIn struct {
	N int `json:"n" validate:"min=1"`
}

func TestJSONHandlers_ThroughRouter(t *testing.T) {
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	r.Route("/v", func(sub phttp.Router) {
		phttp.PostJSON(sub, "/double", func(_ *http.Request, in echoIn) (any, error) { return in.N * 2, nil })
		phttp.CreateJSON(sub, "/make", func(_ *http.Request, in echoIn) (any, error) { return in.N, nil })
		phttp.GetJSON(sub, "/items/{id}", func(req *http.Request) (any, error) {
			if id := phttp.URLParam(req, "id"); id != "missing" {
				return id, nil
			}
			return nil, perr.NotFoundf("no item")
		})
	})
	r.Group(func(g phttp.Router) {
		g.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("X-Group", "yes")
				next.ServeHTTP(w, req)
			})
		})
		g.Head("/h", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, reqWithID(method, path, body, "rid"))
		return rec
	}

	if rec := serve("POST", "/v/double", `{"n":4}`); rec.Code != 200 || decode(t, rec).Data.(float64) != 8 {
		t.Fatalf("double: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve("POST", "/v/double", `{"n":0}`); rec.Code != http.StatusBadRequest || decode(t, rec).Code != perr.ErrorCodeValidation {
		t.Fatalf("validation: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve("POST", "/v/make", `{"n":2}`); rec.Code != http.StatusCreated {
		t.Fatalf("make: %d", rec.Code)
	}
	if rec := serve("GET", "/v/items/abc", ""); decode(t, rec).Data != "abc" {
		t.Fatalf("url param: %s", rec.Body.String())
	}
	if rec := serve("GET", "/v/items/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", rec.Code)
	}
	if rec := serve("HEAD", "/h", ""); rec.Code != 200 || rec.Header().Get("X-Group") != "yes" {
		t.Fatalf("group head: %d %v", rec.Code, rec.Header())
	}
}
