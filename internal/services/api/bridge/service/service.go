// Package service contains bridge dispatch workflows
package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit/scope"
	perr "hostbridge/internal/platform/errors"
	"hostbridge/internal/services/api/bridge/domain"
)

// Service defines the bridge service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the bridge service
type Svc struct {
	reg *bridge.Registry
	log zerolog.Logger
}

// New constructs a bridge service over a built registry
func New(reg *bridge.Registry, log zerolog.Logger) *Svc {
	if reg == nil {
		panic("bridge.Service requires a non nil Registry")
	}
	return &Svc{reg: reg, log: log}
}

// Dispatch runs each call in order, records per-call outcomes, and fires
// the batch boundary exactly once after the last call. A failing call
// never skips the calls after it; its error rides back in the results
func (s *Svc) Dispatch(ctx context.Context, in domain.BatchInput) (domain.BatchOutput, error) {
	out := domain.BatchOutput{
		BatchID: uuid.NewString(),
		Results: make([]domain.CallResult, 0, len(in.Calls)),
	}
	ctx = scope.With(ctx, map[string]string{"batch_id": out.BatchID})
	for i, c := range in.Calls {
		res := domain.CallResult{Index: i, OK: true}
		if err := s.reg.Call(ctx, c.Module, c.Method, c.Args); err != nil {
			res.OK = false
			res.Code = perr.CodeOf(err)
			res.Error = err.Error()
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}
	s.reg.OnBatchComplete()

	s.log.Debug().
		Str("batch_id", out.BatchID).
		Int("calls", len(in.Calls)).
		Int("failed", out.Failed).
		Msg("batch dispatched")
	return out, nil
}

// WriteSchema streams the registry's schema document to w
func (s *Svc) WriteSchema(_ context.Context, w io.Writer) error {
	return s.reg.WriteDescriptions(w)
}

// Modules lists registered modules in id order
func (s *Svc) Modules(context.Context) ([]domain.ModuleInfo, error) {
	desc := s.reg.Describe()
	out := make([]domain.ModuleInfo, 0, len(desc))
	for _, d := range desc {
		out = append(out, domain.ModuleInfo{
			ModuleID: d.ModuleID,
			Name:     d.Name,
			Methods:  len(d.Methods),
		})
	}
	return out, nil
}
