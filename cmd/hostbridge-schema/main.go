package main

import (
	"fmt"
	"os"

	"hostbridge/internal/platform/config"
	"hostbridge/internal/platform/logger"

	"hostbridge/internal/bridge"
	"hostbridge/internal/bridge/affinity"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modules"
)

// Dumps the schema document for the standard capability set to stdout,
// for offline stub generation and diffing across versions
func main() {
	l := logger.Get()

	deps := modkit.Deps{Log: *l, Cfg: config.New()}

	set := modules.Standard(deps)
	b := bridge.NewBuilder()
	if err := set.Register(b); err != nil {
		l.Panic().Err(err).Msg("module registration failed")
	}
	reg, err := b.Build(affinity.New("hostbridge-schema"))
	if err != nil {
		l.Panic().Err(err).Msg("registry build failed")
	}

	if err := reg.WriteDescriptions(os.Stdout); err != nil {
		l.Panic().Err(err).Msg("schema export failed")
	}
	fmt.Println()
}
