// @title         Hostbridge API
// @version       0.1.0
// @description   Batch dispatch and schema endpoints for the capability bridge

package main

import (
	"context"

	"hostbridge/internal/platform/config"
	"hostbridge/internal/platform/logger"
	phttp "hostbridge/internal/platform/net/http"
	"hostbridge/internal/platform/store"
	"hostbridge/internal/platform/trace"
	"hostbridge/internal/platform/trace/otelsink"

	"hostbridge/internal/bridge"
	"hostbridge/internal/bridge/affinity"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modules"
	"hostbridge/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	otelCfg := root.Prefix("SERVICE_OTEL_")

	// bring up logging early
	l := logger.Get()

	// open the platform store; both seams are optional here. Storage falls
	// back to its in-memory repo and analytics drops its buffer when the
	// matching seam is absent
	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     pgCfg.MayBool("ENABLED", false),
				URL:         pgCfg.MayString("DBURL", ""),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", false),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "hostbridge",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// trace sink: otel when configured, the log sink otherwise
	sink := trace.Default()
	if otelCfg.MayBool("ENABLED", false) {
		shutdown, err := otelsink.Setup(
			context.Background(),
			"hostbridge-api",
			otelCfg.MayString("ENDPOINT", "http://localhost:4318/v1/traces"),
			true,
		)
		if err != nil {
			l.Panic().Err(err).Msg("otel setup failed")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				l.Error().Err(err).Msg("otel shutdown failed")
			}
		}()
		sink = otelsink.New("hostbridge-api")
	}

	deps := modkit.Deps{
		Log:   *l,
		Cfg:   root,
		PG:    st.PG,
		CH:    st.CH,
		Trace: sink,
	}

	// the registry is owned by main: lifecycle notifications are only
	// valid holding this token
	owner := affinity.New("hostbridge-api")

	set := modules.Standard(deps)
	b := bridge.NewBuilder()
	if err := set.Register(b); err != nil {
		l.Panic().Err(err).Msg("module registration failed")
	}
	reg, err := b.Build(owner, bridge.WithTrace(sink), bridge.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("registry build failed")
	}

	if err := reg.NotifyInitialized(owner); err != nil {
		l.Panic().Err(err).Msg("module initialization failed")
	}
	defer func() {
		if err := reg.NotifyDestroyed(owner); err != nil {
			l.Error().Err(err).Msg("module teardown failed")
		}
	}()

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			Registry:       reg,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
