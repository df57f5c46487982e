package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"timeline/internal/platform/config"
	phttp "timeline/internal/platform/net/http"
)

func TestMountProfiler(t *testing.T) {
	cases := []struct {
		name    string
		prefix  string
		enabled bool
		path    string
		want    int
	}{
		{"index", "/debug", true, "/debug/pprof/", http.StatusOK},
		{"cmdline", "/debug", true, "/debug/pprof/cmdline", http.StatusOK},
		{"trailing slash prefix", "/ops/", true, "/ops/pprof/", http.StatusOK},
		{"empty prefix defaults", "", true, "/debug/pprof/", http.StatusOK},
		{"disabled", "/debug", false, "/debug/pprof/", http.StatusNotFound},
		{"api routes untouched", "/debug", true, "/posts", http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := phttp.NewServer(config.New()).Router()
			phttp.MountProfiler(r, c.prefix, c.enabled)

			rec := httptest.NewRecorder()
			r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.path, nil))
			if rec.Code != c.want {
				t.Fatalf("GET %s = %d, want %d", c.path, rec.Code, c.want)
			}
		})
	}
}

func TestMountProfiler_NilRouter(t *testing.T) {
	phttp.MountProfiler(nil, "/debug", true)
}
