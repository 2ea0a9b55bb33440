// Package timing implements the timer capability module. The remote side
// creates and deletes timers by id; due timers fire at batch boundaries
// and are delivered through the module's own side channel, never through
// the dispatch return path
package timing

import (
	"context"
	"sort"
	"sync"
	"time"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	perr "hostbridge/internal/platform/errors"

	"github.com/rs/zerolog"
)

// ModuleName is the name the remote side addresses this capability by
const ModuleName = "Timing"

// Fire describes one elapsed timer delivery
type Fire struct {
	ID      int64
	FiredAt time.Time
	Repeats bool
}

// Options holds configuration settings for the timing module
type Options struct {
	MaxTimers int
}

// FromConfig reads configuration settings under BRIDGE_TIMING_*
func FromConfig(deps modkit.Deps) Options {
	tf := deps.Cfg.Prefix("BRIDGE_TIMING_")
	return Options{
		MaxTimers: tf.MayInt("MAX_TIMERS", 4096),
	}
}

type timer struct {
	id       int64
	due      time.Time
	interval time.Duration
	repeats  bool
}

// Module is the timer capability. Its internal state is guarded by its own
// mutex; the registry performs no synchronization on its behalf
type Module struct {
	log  zerolog.Logger
	opts Options

	// OnFire receives elapsed timers in due order; defaults to logging.
	// Set once during wiring, before the registry is built
	OnFire func([]Fire)

	// now is a seam for tests
	now func() time.Time

	mu     sync.Mutex
	timers map[int64]*timer
}

// New constructs the timing module
func New(deps modkit.Deps) *Module {
	m := &Module{
		log:    deps.Log,
		opts:   FromConfig(deps),
		now:    time.Now,
		timers: make(map[int64]*timer),
	}
	m.OnFire = func(fires []Fire) {
		for _, f := range fires {
			m.log.Debug().Int64("timer_id", f.ID).Msg("timer fired")
		}
	}
	return m
}

// Name implements bridge.Module
func (m *Module) Name() string { return ModuleName }

// Methods implements bridge.Module. Slice order is the wire contract:
// createTimer is method 0, deleteTimer is method 1
func (m *Module) Methods() []bridge.Method {
	return []bridge.Method{
		{Name: "createTimer", Fn: m.createTimer},
		{Name: "deleteTimer", Fn: m.deleteTimer},
	}
}

// Constants implements bridge.ConstantsProvider
func (m *Module) Constants() map[string]any {
	return map[string]any{"maxTimers": m.opts.MaxTimers}
}

// createTimer expects args [id, durationMs, repeats?]. Numbers arrive as
// float64 from JSON-shaped transports
func (m *Module) createTimer(_ context.Context, args []any) error {
	id, ok := argInt64(args, 0)
	if !ok {
		return perr.InvalidArgf("timing: createTimer requires a numeric timer id")
	}
	durMs, ok := argInt64(args, 1)
	if !ok || durMs < 0 {
		return perr.InvalidArgf("timing: createTimer requires a non-negative duration in ms")
	}
	repeats := false
	if len(args) > 2 {
		repeats, _ = args[2].(bool)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) >= m.opts.MaxTimers {
		return perr.Unavailablef("timing: timer limit %d reached", m.opts.MaxTimers)
	}
	interval := time.Duration(durMs) * time.Millisecond
	m.timers[id] = &timer{
		id:       id,
		due:      m.now().Add(interval),
		interval: interval,
		repeats:  repeats,
	}
	return nil
}

// deleteTimer expects args [id]; deleting an unknown id is a no-op, the
// remote side may race deletion against a fire
func (m *Module) deleteTimer(_ context.Context, args []any) error {
	id, ok := argInt64(args, 0)
	if !ok {
		return perr.InvalidArgf("timing: deleteTimer requires a numeric timer id")
	}
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
	return nil
}

// OnBatchComplete implements bridge.BatchListener: collect timers due at
// the batch boundary, reschedule repeating ones, drop the rest, and hand
// the fires to the side channel
func (m *Module) OnBatchComplete() {
	now := m.now()

	type dueFire struct {
		due  time.Time
		fire Fire
	}

	m.mu.Lock()
	var elapsed []dueFire
	for id, t := range m.timers {
		if t.due.After(now) {
			continue
		}
		elapsed = append(elapsed, dueFire{due: t.due, fire: Fire{ID: id, FiredAt: now, Repeats: t.repeats}})
		if t.repeats {
			t.due = now.Add(t.interval)
		} else {
			delete(m.timers, id)
		}
	}
	m.mu.Unlock()

	// map iteration is unordered; deliver by due time, id as tiebreak
	sort.Slice(elapsed, func(i, j int) bool {
		if !elapsed[i].due.Equal(elapsed[j].due) {
			return elapsed[i].due.Before(elapsed[j].due)
		}
		return elapsed[i].fire.ID < elapsed[j].fire.ID
	})

	fires := make([]Fire, len(elapsed))
	for i, e := range elapsed {
		fires[i] = e.fire
	}

	if len(fires) > 0 {
		m.OnFire(fires)
	}
}

// Destroy implements bridge.Destroyer: drop all timers
func (m *Module) Destroy() error {
	m.mu.Lock()
	n := len(m.timers)
	m.timers = make(map[int64]*timer)
	m.mu.Unlock()
	if n > 0 {
		m.log.Debug().Int("dropped", n).Msg("timing module destroyed with live timers")
	}
	return nil
}

// Pending returns the number of live timers, for diagnostics and tests
func (m *Module) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func argInt64(args []any, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
