// Package storage implements the persistent key-value capability module.
// Reads complete through the module's emit side channel keyed by the
// caller-supplied request id; the dispatch return path only reports
// argument and repository failures
package storage

import (
	"context"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	"hostbridge/internal/modkit/repokit"
	perr "hostbridge/internal/platform/errors"

	"github.com/rs/zerolog"
)

// ModuleName is the name the remote side addresses this capability by
const ModuleName = "Storage"

// Module is the storage capability
type Module struct {
	log  zerolog.Logger
	pg   repokit.TxRunner
	repo Storage

	// Emit delivers read results to the remote side; defaults to logging
	Emit func(event string, payload map[string]any)
}

// New constructs the storage module. With a Postgres seam in deps the
// capability persists through bridge_kv; without one it degrades to an
// in-process map
func New(deps modkit.Deps) *Module {
	m := &Module{log: deps.Log, pg: deps.PG}
	if deps.PG != nil {
		m.repo = repokit.MustBind(NewPG(), deps.PG)
	} else {
		m.repo = NewMemory()
	}
	m.Emit = func(event string, payload map[string]any) {
		m.log.Debug().Str("event", event).Interface("payload", payload).Msg("storage emit")
	}
	return m
}

// Name implements bridge.Module
func (m *Module) Name() string { return ModuleName }

// Methods implements bridge.Module. Slice order is the wire contract
func (m *Module) Methods() []bridge.Method {
	return []bridge.Method{
		{Name: "multiGet", Kind: bridge.KindRemoteAsync, Fn: m.multiGet},
		{Name: "multiSet", Fn: m.multiSet},
		{Name: "multiRemove", Fn: m.multiRemove},
		{Name: "getAllKeys", Kind: bridge.KindRemoteAsync, Fn: m.getAllKeys},
		{Name: "clear", Fn: m.clear},
	}
}

// Initialize implements bridge.Initializer: apply the backing schema when
// running against Postgres
func (m *Module) Initialize() error {
	if m.pg == nil {
		m.log.Debug().Msg("storage module initialized in memory mode")
		return nil
	}
	_, err := m.pg.Exec(context.Background(), Schema)
	return perr.WrapIf(err, perr.ErrorCodeDB, "storage: ensure schema")
}

// multiGet expects args [requestID, [key, ...]] and emits
// storage.result with the found pairs
func (m *Module) multiGet(ctx context.Context, args []any) error {
	reqID, ok := argString(args, 0)
	if !ok {
		return perr.InvalidArgf("storage: multiGet requires a request id")
	}
	keys, ok := argStrings(args, 1)
	if !ok {
		return perr.InvalidArgf("storage: multiGet requires a key list")
	}

	found, err := m.repo.Get(ctx, keys)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "storage: multiGet")
	}
	pairs := make(map[string]any, len(found))
	for k, v := range found {
		pairs[k] = v
	}
	m.Emit("storage.result", map[string]any{"requestId": reqID, "pairs": pairs})
	return nil
}

// multiSet expects args [requestID, [[key, value], ...]]
func (m *Module) multiSet(ctx context.Context, args []any) error {
	if _, ok := argString(args, 0); !ok {
		return perr.InvalidArgf("storage: multiSet requires a request id")
	}
	kv, ok := argPairs(args, 1)
	if !ok {
		return perr.InvalidArgf("storage: multiSet requires [key, value] pairs")
	}
	err := m.repo.Put(ctx, kv)
	return perr.WrapIf(err, perr.ErrorCodeDB, "storage: multiSet")
}

// multiRemove expects args [requestID, [key, ...]]
func (m *Module) multiRemove(ctx context.Context, args []any) error {
	if _, ok := argString(args, 0); !ok {
		return perr.InvalidArgf("storage: multiRemove requires a request id")
	}
	keys, ok := argStrings(args, 1)
	if !ok {
		return perr.InvalidArgf("storage: multiRemove requires a key list")
	}
	err := m.repo.Remove(ctx, keys)
	return perr.WrapIf(err, perr.ErrorCodeDB, "storage: multiRemove")
}

// getAllKeys expects args [requestID] and emits storage.keys
func (m *Module) getAllKeys(ctx context.Context, args []any) error {
	reqID, ok := argString(args, 0)
	if !ok {
		return perr.InvalidArgf("storage: getAllKeys requires a request id")
	}
	keys, err := m.repo.Keys(ctx)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "storage: getAllKeys")
	}
	m.Emit("storage.keys", map[string]any{"requestId": reqID, "keys": keys})
	return nil
}

// clear expects args [requestID]
func (m *Module) clear(ctx context.Context, args []any) error {
	if _, ok := argString(args, 0); !ok {
		return perr.InvalidArgf("storage: clear requires a request id")
	}
	err := m.repo.Clear(ctx)
	return perr.WrapIf(err, perr.ErrorCodeDB, "storage: clear")
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok && s != ""
}

func argStrings(args []any, i int) ([]string, bool) {
	if i >= len(args) {
		return nil, false
	}
	raw, ok := args[i].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func argPairs(args []any, i int) (map[string]string, bool) {
	if i >= len(args) {
		return nil, false
	}
	raw, ok := args[i].([]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for _, p := range raw {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		k, kok := pair[0].(string)
		v, vok := pair[1].(string)
		if !kok || !vok || k == "" {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}
