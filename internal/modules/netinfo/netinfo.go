// Package netinfo implements the network probe capability module: the
// remote side asks the host to check reachability of an endpoint and the
// outcome comes back through the emit side channel
package netinfo

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"
	perr "hostbridge/internal/platform/errors"

	"github.com/rs/zerolog"
)

// ModuleName is the name the remote side addresses this capability by
const ModuleName = "NetInfo"

// Options holds configuration settings for the netinfo module
type Options struct {
	Timeout time.Duration
}

// FromConfig reads configuration settings under BRIDGE_NETINFO_*
func FromConfig(deps modkit.Deps) Options {
	nf := deps.Cfg.Prefix("BRIDGE_NETINFO_")
	return Options{
		Timeout: nf.MayDuration("TIMEOUT", 5*time.Second),
	}
}

// Module is the netinfo capability
type Module struct {
	log    zerolog.Logger
	opts   Options
	client *http.Client

	// Emit delivers probe results; defaults to logging
	Emit func(event string, payload map[string]any)
}

// New constructs the netinfo module
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps)
	m := &Module{
		log:    deps.Log,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
	m.Emit = func(event string, payload map[string]any) {
		m.log.Debug().Str("event", event).Interface("payload", payload).Msg("netinfo emit")
	}
	return m
}

// Name implements bridge.Module
func (m *Module) Name() string { return ModuleName }

// Methods implements bridge.Module. Slice order is the wire contract
func (m *Module) Methods() []bridge.Method {
	return []bridge.Method{
		{Name: "probe", Kind: bridge.KindRemoteAsync, Fn: m.probe},
	}
}

// probe expects args [requestID, url]. The probe itself runs
// synchronously inside the handler; only the result delivery is async
// from the remote side's point of view
func (m *Module) probe(ctx context.Context, args []any) error {
	reqID, ok := argString(args, 0)
	if !ok {
		return perr.InvalidArgf("netinfo: probe requires a request id")
	}
	target, ok := argString(args, 1)
	if !ok {
		return perr.InvalidArgf("netinfo: probe requires a url")
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return perr.InvalidArgf("netinfo: probe requires an absolute http(s) url")
	}

	start := time.Now()
	payload := map[string]any{"requestId": reqID, "url": target}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "netinfo: build probe request")
	}
	resp, err := m.client.Do(req)
	if err != nil {
		payload["ok"] = false
		payload["error"] = err.Error()
	} else {
		_ = resp.Body.Close()
		payload["ok"] = resp.StatusCode < 500
		payload["status"] = resp.StatusCode
	}
	payload["durationMs"] = time.Since(start).Milliseconds()

	m.Emit("netinfo.result", payload)
	return nil
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok && s != ""
}
