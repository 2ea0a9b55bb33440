// Package api provides the HTTP API for the bridge daemon
package api

import (
	"hostbridge/internal/platform/config"
	"hostbridge/internal/platform/logger"
	phttp "hostbridge/internal/platform/net/http"
	"hostbridge/internal/platform/store"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modkit/httpkit"
	"hostbridge/internal/modkit/module"
	"hostbridge/internal/modkit/swaggerkit"

	bridgemod "hostbridge/internal/services/api/bridge/module"
	metamod "hostbridge/internal/services/api/meta/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Registry       *bridge.Registry
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router.
// The registry is built and owned by main; this layer only dispatches into it
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Cfg: opt.Config,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	mods := []module.Module{
		metamod.New(deps),
		bridgemod.New(deps, modkit.WithPorts(bridgemod.Ports{
			Registry: opt.Registry,
		})),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
