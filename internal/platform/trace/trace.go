// Package trace provides the scope and marker seam used around bridge
// dispatch and lifecycle fan-out. Implementations are external concerns;
// this package only defines the contract plus two small sinks
package trace

import (
	"time"

	"hostbridge/internal/platform/logger"

	"github.com/rs/zerolog"
)

// Sink receives scope enter/exit events and point markers
// Begin opens a named scope and returns the closer; callers must invoke
// the closer on every exit path, typically via defer
type Sink interface {
	Begin(name string) func()
	Marker(name string)
}

type noopSink struct{}

func (noopSink) Begin(string) func() { return func() {} }
func (noopSink) Marker(string)       {}

// Noop returns a sink that drops everything
func Noop() Sink { return noopSink{} }

type logSink struct {
	log zerolog.Logger
}

// Log returns a sink that writes scopes and markers to a zerolog logger
// at trace level, with scope duration recorded on exit
func Log(log zerolog.Logger) Sink { return &logSink{log: log} }

// Default returns a log sink bound to the process root logger
func Default() Sink { return Log(*logger.Named("trace")) }

func (s *logSink) Begin(name string) func() {
	start := time.Now()
	s.log.Trace().Str("scope", name).Msg("enter")
	return func() {
		s.log.Trace().Str("scope", name).Dur("took", time.Since(start)).Msg("exit")
	}
}

func (s *logSink) Marker(name string) {
	s.log.Trace().Str("marker", name).Msg("mark")
}
