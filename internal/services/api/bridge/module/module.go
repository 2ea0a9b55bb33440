// Package module wires bridge dispatch into the API using modkit
package module

import (
	"net/http"

	"hostbridge/internal/bridge"
	modkit "hostbridge/internal/modkit"
	"hostbridge/internal/modkit/httpkit"
	str "hostbridge/internal/platform/strings"

	bhttp "hostbridge/internal/services/api/bridge/http"
	bsvc "hostbridge/internal/services/api/bridge/service"
)

// Ports declares the injected registry this API module dispatches into
type Ports struct {
	Registry *bridge.Registry
}

// Module implements the bridge API module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc bsvc.Service
}

// New constructs the bridge module over an already-built registry
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("bridge"),
		modkit.WithPrefix("/bridge"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Registry == nil {
		panic("bridge API module requires a built Registry port")
	}

	svc := bsvc.New(injected.Registry, deps.Log)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = svc

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports exposes the dispatch service for cross-module lookups
func (m *Module) Ports() any { return m.ports }
