package luart

import (
	"context"
	"reflect"
	"testing"

	"hostbridge/internal/bridge"
	"hostbridge/internal/bridge/affinity"
	"hostbridge/internal/modkit"
	perr "hostbridge/internal/platform/errors"
)

// scriptModule records dispatched calls and batch boundaries
type scriptModule struct {
	name    string
	calls   [][]any
	batches int
	err     error
}

func (m *scriptModule) Name() string { return m.name }

func (m *scriptModule) Methods() []bridge.Method {
	return []bridge.Method{
		{Name: "ping", Fn: func(_ context.Context, args []any) error {
			m.calls = append(m.calls, args)
			return m.err
		}},
	}
}

func (m *scriptModule) Constants() map[string]any {
	return map[string]any{"platform": "test", "limit": 8}
}

func (m *scriptModule) OnBatchComplete() { m.batches++ }

func newHost(t *testing.T, mods ...bridge.Module) (*Host, *scriptModule) {
	t.Helper()
	b := bridge.NewBuilder()
	for _, m := range mods {
		if err := b.Add(m); err != nil {
			t.Fatalf("Add = %v", err)
		}
	}
	reg, err := b.Build(affinity.New("luart-test"))
	if err != nil {
		t.Fatalf("Build = %v", err)
	}
	h, err := New(reg, modkit.Deps{})
	if err != nil {
		t.Fatalf("New = %v", err)
	}
	var first *scriptModule
	if len(mods) > 0 {
		first = mods[0].(*scriptModule)
	}
	return h, first
}

func TestStubDispatchConvertsValues(t *testing.T) {
	t.Parallel()

	h, m := newHost(t, &scriptModule{name: "Echo"})
	err := h.RunString(context.Background(), `host.Echo.ping("a", 2, 1.5, true, {x=1}, {1, 2})`)
	if err != nil {
		t.Fatalf("RunString = %v", err)
	}

	want := []any{"a", 2, 1.5, true, map[string]any{"x": 1}, []any{1, 2}}
	if len(m.calls) != 1 || !reflect.DeepEqual(m.calls[0], want) {
		t.Fatalf("calls = %#v, want %#v", m.calls, want)
	}
	if m.batches != 1 {
		t.Fatalf("batches = %d, want 1", m.batches)
	}
}

func TestRawCallByIDs(t *testing.T) {
	t.Parallel()

	h, m := newHost(t, &scriptModule{name: "Echo"})
	if err := h.RunString(context.Background(), `host.call(0, 0, "raw")`); err != nil {
		t.Fatalf("RunString = %v", err)
	}
	if len(m.calls) != 1 || m.calls[0][0] != "raw" {
		t.Fatalf("calls = %#v", m.calls)
	}
}

func TestConstantsLandOnStubTable(t *testing.T) {
	t.Parallel()

	h, m := newHost(t, &scriptModule{name: "Echo"})
	err := h.RunString(context.Background(), `host.Echo.ping(host.Echo.platform, host.Echo.limit)`)
	if err != nil {
		t.Fatalf("RunString = %v", err)
	}
	if want := []any{"test", 8}; !reflect.DeepEqual(m.calls[0], want) {
		t.Fatalf("calls = %#v, want %#v", m.calls[0], want)
	}
}

func TestHandlerErrorRaisesAndBatchStillCloses(t *testing.T) {
	t.Parallel()

	h, m := newHost(t, &scriptModule{name: "Echo", err: perr.InvalidArgf("ping rejected")})
	err := h.RunString(context.Background(), `host.Echo.ping()`)
	if err == nil {
		t.Fatalf("expected chunk error")
	}
	if m.batches != 1 {
		t.Fatalf("batches = %d, chunk failure must not skip the boundary", m.batches)
	}
}

func TestUnknownIDsRaise(t *testing.T) {
	t.Parallel()

	h, _ := newHost(t, &scriptModule{name: "Echo"})
	if err := h.RunString(context.Background(), `host.call(9, 0)`); err == nil {
		t.Fatalf("expected chunk error for unknown module id")
	}
}

func TestEachChunkIsOneBatch(t *testing.T) {
	t.Parallel()

	h, m := newHost(t, &scriptModule{name: "Echo"})
	for range 3 {
		if err := h.RunString(context.Background(), `host.Echo.ping()`); err != nil {
			t.Fatalf("RunString = %v", err)
		}
	}
	if m.batches != 3 {
		t.Fatalf("batches = %d, want 3", m.batches)
	}
}

func TestDeliverReachesScriptHandler(t *testing.T) {
	t.Parallel()

	h, _ := newHost(t, &scriptModule{name: "Echo"})
	err := h.RunString(context.Background(), `
		host.on_event = function(e, p)
			seen_event = e
			seen_ok = p.ok
		end
	`)
	if err != nil {
		t.Fatalf("RunString = %v", err)
	}

	h.Deliver("netinfo.result", map[string]any{"ok": true})

	check := `
		if seen_event ~= "netinfo.result" then error("event not delivered") end
		if seen_ok ~= true then error("payload not delivered") end
	`
	if err := h.RunString(context.Background(), check); err != nil {
		t.Fatalf("event not seen by script: %v", err)
	}
}

func TestDeliverWithoutHandlerIsSafe(t *testing.T) {
	t.Parallel()

	h, _ := newHost(t, &scriptModule{name: "Echo"})
	h.Deliver("netinfo.result", map[string]any{"ok": true})

	// the state must stay usable afterwards
	if err := h.RunString(context.Background(), `host.Echo.ping()`); err != nil {
		t.Fatalf("RunString = %v", err)
	}
}
