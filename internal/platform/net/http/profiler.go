package http

import (
	stdhttp "net/http"
	"strings"

	mw "github.com/go-chi/chi/v5/middleware"
)

// DefaultProfilerPrefix is where pprof lives when no prefix is given
const DefaultProfilerPrefix = "/debug"

// MountProfiler serves chi's pprof handlers below prefix when enabled.
// A trailing slash on prefix is ignored
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled || r == nil {
		return
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultProfilerPrefix
	}
	h := stdhttp.StripPrefix(prefix, mw.Profiler())
	r.Handle(prefix, h)
	r.Handle(prefix+"/*", h)
}
