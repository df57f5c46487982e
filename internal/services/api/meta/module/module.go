// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	"timeline/internal/modkit"
	phttp "timeline/internal/platform/net/http"
	metahttp "timeline/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps        modkit.Deps
	b           modkit.Built
	serviceName string
	startedAt   time.Time
}

// New constructs a meta module mounted at /meta by default
func New(deps modkit.Deps, serviceName string, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)
	return &Module{deps: deps, b: b, serviceName: serviceName, startedAt: time.Now()}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) {
		d := metahttp.Deps{ServiceName: m.serviceName, StartedAt: m.startedAt}
		// a nil TxRunner must stay an untyped nil for the skipped check
		if m.deps.PG != nil {
			d.PG = m.deps.PG
		}
		metahttp.Register(rr, d)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.b.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
