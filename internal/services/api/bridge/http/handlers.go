// Package http provides http transport for bridge dispatch
package http

import (
	"bytes"
	stdhttp "net/http"

	"hostbridge/internal/modkit/httpkit"
	"hostbridge/internal/services/api/bridge/domain"
	svc "hostbridge/internal/services/api/bridge/service"
)

// Register mounts bridge endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// ordered call batch, one batch boundary per request
	httpkit.PostJSON[domain.BatchInput](r, "/batches", h.dispatch)

	// raw schema document for remote stub generators, no envelope
	r.Get("/schema", h.schema)

	// diagnostic module listing
	httpkit.Get(r, "/modules", h.modules)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /bridge/batches Bridge bridgeDispatch
// @Summary Dispatch a batch of calls
// @Tags Bridge
// @Accept json
// @Produce json
// @Param payload body domain.BatchInput true "Batch"
// @Success 200 {object} domain.BatchOutput "ok"
// @Router /bridge/batches [post]
func (h *handlers) dispatch(r *stdhttp.Request, in domain.BatchInput) (any, error) {
	return h.svc.Dispatch(r.Context(), in)
}

// swagger:route GET /bridge/schema Bridge bridgeSchema
// @Summary Schema document for remote stub generation
// @Tags Bridge
// @Produce json
// @Success 200 {object} map[string]any "ok"
// @Router /bridge/schema [get]
func (h *handlers) schema(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteSchema(r.Context(), &buf); err != nil {
		stdhttp.Error(w, err.Error(), stdhttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// swagger:route GET /bridge/modules Bridge bridgeModules
// @Summary Registered modules in id order
// @Tags Bridge
// @Produce json
// @Success 200 {array} domain.ModuleInfo "ok"
// @Router /bridge/modules [get]
func (h *handlers) modules(r *stdhttp.Request) (any, error) {
	return h.svc.Modules(r.Context())
}
