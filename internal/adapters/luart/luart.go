// Package luart embeds a Lua interpreter as a remote runtime over the
// bridge. Call stubs are generated from the schema document, never from
// module values, so the script side only ever holds ids
package luart

import (
	"context"
	"math"

	"github.com/Shopify/go-lua"
	"github.com/rs/zerolog"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	perr "hostbridge/internal/platform/errors"
)

const globalName = "host"

// Host runs Lua chunks against a built registry. Each chunk is one batch:
// calls dispatch synchronously in chunk order, and the batch boundary
// fires when the chunk returns, error or not
type Host struct {
	state *lua.State
	reg   *bridge.Registry
	log   zerolog.Logger

	// ctx of the chunk currently running; Background between chunks
	ctx context.Context
}

// New builds a Host with the Lua stdlib open and the host global installed
func New(reg *bridge.Registry, deps modkit.Deps) (*Host, error) {
	if reg == nil {
		return nil, perr.InvalidArgf("luart: registry is required")
	}
	h := &Host{
		state: lua.NewState(),
		reg:   reg,
		log:   deps.Log,
		ctx:   context.Background(),
	}
	lua.OpenLibraries(h.state)
	h.install()
	return h, nil
}

// RunString compiles and runs one chunk as one batch
func (h *Host) RunString(ctx context.Context, src string) error {
	if err := lua.LoadString(h.state, src); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "luart: load chunk")
	}
	return h.runLoaded(ctx)
}

// RunFile compiles and runs a script file as one batch
func (h *Host) RunFile(ctx context.Context, path string) error {
	if err := lua.LoadFile(h.state, path, ""); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "luart: load %s", path)
	}
	return h.runLoaded(ctx)
}

func (h *Host) runLoaded(ctx context.Context) error {
	h.ctx = ctx
	defer func() {
		h.ctx = context.Background()
		h.reg.OnBatchComplete()
	}()
	if err := h.state.ProtectedCall(0, 0, 0); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "luart: run chunk")
	}
	return nil
}

// Deliver hands a host event to the script's host.on_event handler, if
// the script installed one. Modules' emit side channels point here
func (h *Host) Deliver(event string, payload map[string]any) {
	st := h.state
	st.Global(globalName)
	st.Field(-1, "on_event")
	if st.TypeOf(-1) != lua.TypeFunction {
		st.Pop(2)
		h.log.Debug().Str("event", event).Msg("no on_event handler, event dropped")
		return
	}
	st.PushString(event)
	pushValue(st, payload)
	if err := st.ProtectedCall(2, 0, 0); err != nil {
		h.log.Warn().Err(err).Str("event", event).Msg("on_event handler failed")
	}
	st.Pop(1) // host table
}

// install builds the host global from the schema snapshot: one stub table
// per module with a function per method and constants as plain fields,
// plus host.call for raw id dispatch
func (h *Host) install() {
	st := h.state

	st.NewTable()

	st.PushGoFunction(func(l *lua.State) int {
		moduleID := lua.CheckInteger(l, 1)
		methodID := lua.CheckInteger(l, 2)
		return h.dispatch(l, moduleID, methodID, 3)
	})
	st.SetField(-2, "call")

	for _, mod := range h.reg.Describe() {
		st.NewTable()
		for _, m := range mod.Methods {
			moduleID, methodID := mod.ModuleID, m.MethodID
			st.PushGoFunction(func(l *lua.State) int {
				return h.dispatch(l, moduleID, methodID, 1)
			})
			st.SetField(-2, m.Name)
		}
		for k, v := range mod.Constants {
			pushValue(st, v)
			st.SetField(-2, k)
		}
		st.SetField(-2, mod.Name)
	}

	st.SetGlobal(globalName)
}

// dispatch pulls args from the stack starting at index from, routes them
// through the registry, and raises a Lua error on failure
func (h *Host) dispatch(l *lua.State, moduleID, methodID, from int) int {
	var args []any
	for i := from; i <= l.Top(); i++ {
		args = append(args, valueAt(l, i))
	}
	if err := h.reg.Call(h.ctx, moduleID, methodID, args); err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	return 0
}

func pushValue(st *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		st.PushNil()
	case bool:
		st.PushBoolean(x)
	case string:
		st.PushString(x)
	case int:
		st.PushInteger(x)
	case int64:
		st.PushInteger(int(x))
	case float64:
		st.PushNumber(x)
	case map[string]any:
		st.NewTable()
		for k, e := range x {
			pushValue(st, e)
			st.SetField(-2, k)
		}
	case []any:
		st.NewTable()
		for i, e := range x {
			pushValue(st, e)
			st.RawSetInt(-2, i+1)
		}
	default:
		st.PushNil()
	}
}

func valueAt(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if math.Mod(n, 1) == 0 {
			return int(n)
		}
		return n
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableAt(l, index)
	default:
		return nil
	}
}

// tableAt converts a table to a slice when its keys are a dense 1..n run,
// and to a string-keyed map otherwise
func tableAt(l *lua.State, index int) any {
	index = l.AbsIndex(index)

	isArray := true
	count, maxIndex := 0, 0
	l.PushNil()
	for l.Next(index) {
		if isArray {
			if idx, ok := l.ToInteger(-2); ok && l.TypeOf(-2) == lua.TypeNumber && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			out = append(out, valueAt(l, -1))
			l.Pop(1)
		}
		return out
	}

	out := map[string]any{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			out[k] = valueAt(l, -1)
		}
		l.Pop(1)
	}
	return out
}
