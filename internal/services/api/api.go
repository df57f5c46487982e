// Package api composes the timeline HTTP API from its modules
package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"timeline/internal/modkit"
	"timeline/internal/platform/config"
	"timeline/internal/platform/logger"
	"timeline/internal/platform/metrics"
	phttp "timeline/internal/platform/net/http"
	"timeline/internal/platform/net/middleware"
	"timeline/internal/platform/store"
	metamod "timeline/internal/services/api/meta/module"
	postsmod "timeline/internal/services/posts/module"
)

// ServiceName labels meta responses and build info
const ServiceName = "timeline-api"

// Options are the API options
type Options struct {
	// Config is the unprefixed root view; modules apply their own prefixes
	Config config.Conf
	// Store may be nil or carry a nil PG; posts then run in memory
	Store    *store.Store
	Logger   logger.Logger
	Registry *prometheus.Registry

	Posts          postsmod.Options
	CORSOrigins    []string
	Slow           time.Duration
	Timeout        time.Duration
	EnableProfiler bool
}

// Mount mounts the API onto r and returns the modules it mounted
func Mount(r phttp.Router, opt Options) []modkit.Module {
	if opt.Registry == nil {
		opt.Registry = metrics.NewRegistry()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	deps := modkit.Deps{
		Log:     opt.Logger,
		Cfg:     opt.Config,
		Metrics: opt.Registry,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
	}

	mods := []modkit.Module{
		metamod.New(deps, ServiceName),
		postsmod.New(deps, opt.Posts),
	}

	// root level so preflights are answered before routing
	r.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: opt.CORSOrigins}))

	httpm := metrics.NewHTTP(opt.Registry)
	stack := middleware.Defaults(middleware.AccessLogOptions{Slow: opt.Slow, Observe: httpm.Observe}, opt.Timeout)

	r.Group(func(api phttp.Router) {
		for _, mw := range stack {
			api.Use(mw)
		}
		for _, m := range mods {
			m.MountRoutes(api)
			opt.Logger.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})

	r.Handle("/metrics", metrics.Handler(opt.Registry))
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	return mods
}
