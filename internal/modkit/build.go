package modkit

import (
	"net/http"

	phttp "timeline/internal/platform/net/http"
)

// Built is the resolved option set modules read from
type Built struct {
	Name     string
	Prefix   string
	Mw       []func(http.Handler) http.Handler
	Ports    any
	Register func(phttp.Router)
}

// Build applies opts; Register defaults to a no-op and Mw is a private copy
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.register == nil {
		c.register = func(phttp.Router) {}
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Mw:       append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:    c.ports,
		Register: c.register,
	}
}

// Mount mounts register under b.Prefix with b's middleware, followed by b.Register
func (b Built) Mount(r phttp.Router, register func(phttp.Router)) {
	mount := func(rr phttp.Router) {
		for _, mw := range b.Mw {
			rr.Use(mw)
		}
		register(rr)
		b.Register(rr)
	}
	if b.Prefix == "" || b.Prefix == "/" {
		r.Group(mount)
		return
	}
	r.Route(b.Prefix, mount)
}
