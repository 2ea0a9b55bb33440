// Package device exposes host platform facts to the remote runtime as a
// constants-only capability module
package device

import (
	"os"
	"runtime"
	"time"

	"hostbridge/internal/bridge"
	"hostbridge/internal/core/version"
	"hostbridge/internal/modkit"

	"github.com/rs/zerolog"
)

// ModuleName is the name the remote side addresses this capability by
const ModuleName = "Device"

// Module is the device capability. It declares no methods: everything the
// remote side needs ships once, through the schema document's constants
type Module struct {
	log       zerolog.Logger
	startedAt time.Time
	hostname  string
}

// New constructs the device module
func New(deps modkit.Deps) *Module {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Module{
		log:       deps.Log,
		startedAt: time.Now().UTC(),
		hostname:  host,
	}
}

// Name implements bridge.Module
func (m *Module) Name() string { return ModuleName }

// Methods implements bridge.Module
func (m *Module) Methods() []bridge.Method { return nil }

// Constants implements bridge.ConstantsProvider
func (m *Module) Constants() map[string]any {
	return map[string]any{
		"platform":   runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
		"hostname":   m.hostname,
		"pid":        os.Getpid(),
		"started_at": m.startedAt.Format(time.RFC3339),
		"version":    version.Tag(),
	}
}

// Initialize implements bridge.Initializer
func (m *Module) Initialize() error {
	m.log.Debug().Str("hostname", m.hostname).Msg("device module initialized")
	return nil
}

// Destroy implements bridge.Destroyer
func (m *Module) Destroy() error {
	m.log.Debug().Msg("device module destroyed")
	return nil
}
