package main

import (
	"context"
	"flag"
	"time"

	"hostbridge/internal/platform/config"
	"hostbridge/internal/platform/logger"
	"hostbridge/internal/platform/trace"

	"hostbridge/internal/adapters/luart"
	"hostbridge/internal/bridge"
	"hostbridge/internal/bridge/affinity"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modules"
	"hostbridge/internal/modules/timing"
)

func main() {
	root := config.New()
	l := logger.Get()

	flag.Parse()
	if flag.NArg() != 1 {
		l.Fatal().Msg("usage: hostbridge-script <script.lua>")
	}
	path := flag.Arg(0)

	// no stores here: storage uses its in-memory repo, analytics drops
	deps := modkit.Deps{
		Log:   *l,
		Cfg:   root,
		Trace: trace.Default(),
	}

	owner := affinity.New("hostbridge-script")

	set := modules.Standard(deps)
	b := bridge.NewBuilder()
	if err := set.Register(b); err != nil {
		l.Panic().Err(err).Msg("module registration failed")
	}
	reg, err := b.Build(owner, bridge.WithTrace(deps.Sink()), bridge.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("registry build failed")
	}

	host, err := luart.New(reg, deps)
	if err != nil {
		l.Panic().Err(err).Msg("lua host failed")
	}

	// route module side channels into the script's on_event handler
	set.Timing.OnFire = func(fires []timing.Fire) {
		for _, f := range fires {
			host.Deliver("timing.fire", map[string]any{
				"id":       f.ID,
				"fired_at": f.FiredAt.Format(time.RFC3339Nano),
				"repeats":  f.Repeats,
			})
		}
	}
	set.Storage.Emit = host.Deliver
	set.NetInfo.Emit = host.Deliver

	if err := reg.NotifyInitialized(owner); err != nil {
		l.Panic().Err(err).Msg("module initialization failed")
	}

	runErr := host.RunFile(context.Background(), path)

	if err := reg.NotifyDestroyed(owner); err != nil {
		l.Error().Err(err).Msg("module teardown failed")
	}
	if runErr != nil {
		l.Fatal().Err(runErr).Str("script", path).Msg("script failed")
	}
}
