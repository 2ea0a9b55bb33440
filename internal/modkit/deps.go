// Package modkit provides module wiring and core deps
package modkit

import (
	"hostbridge/internal/modkit/repokit"
	"hostbridge/internal/platform/config"
	"hostbridge/internal/platform/logger"
	"hostbridge/internal/platform/store"
	"hostbridge/internal/platform/trace"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	PG    repokit.TxRunner
	CH    store.Clickhouse
	Trace trace.Sink
}

// Sink returns the trace sink, defaulting to a noop when unset
func (d Deps) Sink() trace.Sink {
	if d.Trace == nil {
		return trace.Noop()
	}
	return d.Trace
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
