// Package module wires the posts service into HTTP via modkit
package module

import (
	"timeline/internal/modkit"
	phttp "timeline/internal/platform/net/http"
	"timeline/internal/services/posts/domain"
	posthttp "timeline/internal/services/posts/http"
	"timeline/internal/services/posts/repo"
	"timeline/internal/services/posts/service"
)

// Ports exposes the posts service for cross-module lookups
type Ports struct {
	Controller domain.PostController
	Service    domain.ServicePort
}

// Module implements modkit.Module for posts
type Module struct {
	b     modkit.Built
	opts  Options
	svc   *service.Service
	ports Ports
}

// New constructs the posts module. Postgres backs it when deps.PG is set,
// otherwise an in-memory repo does
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg).merge(overrides)

	var r repo.Repo
	backend := "memory"
	if deps.PG != nil {
		r = repo.NewPG(deps.PG, o.StatementTimeout)
		backend = "pg"
	} else {
		r = repo.NewMemory()
	}

	svc := service.New(r, o.Media, service.Options{
		PublicBaseURL: o.PublicBaseURL,
		ListLimit:     o.ListLimit,
		MaxTextRunes:  o.MaxTextRunes,
	})

	b := modkit.Build(append([]modkit.Option{modkit.WithName("posts")}, opts...)...)
	deps.Log.Info().
		Str("module", b.Name).
		Str("backend", backend).
		Bool("external_media", o.Media != nil).
		Str("public_url", o.PublicBaseURL).
		Msg("posts module ready")

	return &Module{
		b:     b,
		opts:  o,
		svc:   svc,
		ports: Ports{Controller: svc, Service: svc},
	}
}

// MountRoutes mounts the posts routes under the module prefix
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) { posthttp.Register(rr, m.svc) })
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }
