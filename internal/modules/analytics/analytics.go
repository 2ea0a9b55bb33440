// Package analytics implements the event-recording capability module.
// Events buffer in memory and flush to ClickHouse at batch boundaries,
// so one logical unit of remote work lands as one columnar insert
package analytics

import (
	"context"
	"sync"
	"time"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modkit/scope"
	perr "hostbridge/internal/platform/errors"
	"hostbridge/internal/platform/store"

	"github.com/rs/zerolog"
)

// ModuleName is the name the remote side addresses this capability by
const ModuleName = "Analytics"

// Table is the ClickHouse destination for flushed events
const Table = "bridge_events"

// Options holds configuration settings for the analytics module
type Options struct {
	BufferLimit int
}

// FromConfig reads configuration settings under BRIDGE_ANALYTICS_*
func FromConfig(deps modkit.Deps) Options {
	af := deps.Cfg.Prefix("BRIDGE_ANALYTICS_")
	return Options{
		BufferLimit: af.MayInt("BUFFER_LIMIT", 10000),
	}
}

type event struct {
	name  string
	props string
	batch string
	at    time.Time
}

// Module is the analytics capability. The buffer is guarded by the
// module's own mutex; flush failures drop the batch after logging since
// analytics is lossy by contract
type Module struct {
	log  zerolog.Logger
	ch   store.Clickhouse
	opts Options

	// now is a seam for tests
	now func() time.Time

	mu   sync.Mutex
	buf  []event
	lost int
}

// New constructs the analytics module. Without a ClickHouse seam events
// are counted and discarded at flush time
func New(deps modkit.Deps) *Module {
	return &Module{
		log:  deps.Log,
		ch:   deps.CH,
		opts: FromConfig(deps),
		now:  time.Now,
	}
}

// Name implements bridge.Module
func (m *Module) Name() string { return ModuleName }

// Methods implements bridge.Module. Slice order is the wire contract
func (m *Module) Methods() []bridge.Method {
	return []bridge.Method{
		{Name: "logEvent", Fn: m.logEvent},
	}
}

// Constants implements bridge.ConstantsProvider
func (m *Module) Constants() map[string]any {
	return map[string]any{"bufferLimit": m.opts.BufferLimit}
}

// logEvent expects args [name, propsJSON?]. A batch id on the context
// scope rides along into the flushed row
func (m *Module) logEvent(ctx context.Context, args []any) error {
	name, ok := argString(args, 0)
	if !ok {
		return perr.InvalidArgf("analytics: logEvent requires an event name")
	}
	props := ""
	if len(args) > 1 {
		props, ok = args[1].(string)
		if !ok {
			return perr.InvalidArgf("analytics: logEvent props must be a string")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buf) >= m.opts.BufferLimit {
		m.lost++
		return perr.Unavailablef("analytics: buffer limit %d reached", m.opts.BufferLimit)
	}
	batch, _ := scope.Get(ctx, "batch_id")
	m.buf = append(m.buf, event{name: name, props: props, batch: batch, at: m.now()})
	return nil
}

// OnBatchComplete implements bridge.BatchListener: flush the buffer
func (m *Module) OnBatchComplete() {
	m.mu.Lock()
	pending := m.buf
	m.buf = nil
	m.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if m.ch == nil {
		m.log.Debug().Int("dropped", len(pending)).Msg("analytics flush without clickhouse seam")
		return
	}

	rows := make([][]any, 0, len(pending))
	for _, e := range pending {
		rows = append(rows, []any{e.at, e.name, e.props, e.batch})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.ch.Insert(ctx, Table, rows); err != nil {
		m.log.Error().Err(err).Int("events", len(rows)).Msg("analytics flush failed; batch dropped")
	}
}

// Destroy implements bridge.Destroyer: final flush before teardown
func (m *Module) Destroy() error {
	m.OnBatchComplete()
	return nil
}

// Buffered returns the number of unflushed events, for tests
func (m *Module) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf)
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok && s != ""
}
