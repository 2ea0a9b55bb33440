package bridge

import (
	"context"
	"reflect"

	"hostbridge/internal/bridge/affinity"
	perr "hostbridge/internal/platform/errors"
	"hostbridge/internal/platform/trace"

	"github.com/rs/zerolog"
)

// Registry is the immutable call-dispatch table produced by Builder.Build.
//
// It holds no locks: after Build the only mutable state is inside the
// module instances themselves, which own their thread safety. Call may be
// invoked concurrently from any number of goroutines; the lifecycle and
// batch notifications are confined to the owner context bound at build
// time
type Registry struct {
	table     []*Definition
	instances map[reflect.Type]Module
	batch     []BatchListener
	owner     affinity.Token
	sink      trace.Sink
	log       zerolog.Logger
}

// Call dispatches one (moduleID, methodID) tuple delivered by the
// transport.
//
// Out-of-range ids are protocol violations by the remote side and come
// back as unknown-module / unknown-method errors without touching any
// handler. Handler errors are not intercepted: they propagate to the
// caller as-is. In every case the trace scope opened around the handler
// is closed
func (r *Registry) Call(ctx context.Context, moduleID, methodID int, args []any) error {
	if moduleID < 0 || moduleID >= len(r.table) {
		return perr.UnknownModulef("call to unknown module: %d", moduleID)
	}
	def := r.table[moduleID]
	if methodID < 0 || methodID >= len(def.methods) {
		return perr.UnknownMethodf("call to unknown method %d on module %q", methodID, def.name)
	}
	m := def.methods[methodID]
	end := r.sink.Begin(m.label)
	defer end()
	return m.fn(ctx, args)
}

// NotifyInitialized runs every module's Initialize hook, in ascending id
// order, synchronously and to completion. The first hook error aborts the
// fan-out and propagates; remaining modules are not visited. Must be
// called with the owner token; anything else is a programming error and
// panics
func (r *Registry) NotifyInitialized(tok affinity.Token) error {
	r.assertOwner(tok, "NotifyInitialized")
	r.sink.Marker("modules_init_start")
	end := r.sink.Begin("BridgeRegistry_notifyInitialized")
	defer func() {
		end()
		r.sink.Marker("modules_init_end")
	}()
	for _, def := range r.table {
		init, ok := def.target.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(); err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "module %q initialize", def.name)
		}
		r.log.Debug().Str("module", def.name).Msg("module initialized")
	}
	return nil
}

// NotifyDestroyed runs every module's Destroy hook, in ascending id order,
// with the same owner-token, fail-fast, and scope-closure contract as
// NotifyInitialized
func (r *Registry) NotifyDestroyed(tok affinity.Token) error {
	r.assertOwner(tok, "NotifyDestroyed")
	end := r.sink.Begin("BridgeRegistry_notifyDestroyed")
	defer end()
	for _, def := range r.table {
		d, ok := def.target.(Destroyer)
		if !ok {
			continue
		}
		if err := d.Destroy(); err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "module %q destroy", def.name)
		}
		r.log.Debug().Str("module", def.name).Msg("module destroyed")
	}
	return nil
}

// OnBatchComplete notifies the precomputed batch-listener subset, in
// ascending module-id order, exactly once per call. Runs once per logical
// unit of work flushed across the boundary
func (r *Registry) OnBatchComplete() {
	for _, bl := range r.batch {
		bl.OnBatchComplete()
	}
}

// AllModules returns the module instances for diagnostics and shutdown
// fan-out. The slice is a copy; order follows module ids
func (r *Registry) AllModules() []Module {
	out := make([]Module, len(r.table))
	for i, def := range r.table {
		out[i] = def.target
	}
	return out
}

// Len returns the number of registered modules
func (r *Registry) Len() int { return len(r.table) }

// Definition returns the definition for a module id, or nil when out of
// range. Exposed for transports that want names for diagnostics
func (r *Registry) Definition(moduleID int) *Definition {
	if moduleID < 0 || moduleID >= len(r.table) {
		return nil
	}
	return r.table[moduleID]
}

func (r *Registry) assertOwner(tok affinity.Token, op string) {
	if !r.owner.Same(tok) {
		panic(perr.Affinityf("bridge: %s called off the owner context (have %q, want %q)",
			op, tok.Name(), r.owner.Name()))
	}
}

// ModuleAs returns the registered instance whose concrete type is T,
// panicking when no such module exists: the module set is a fixed startup
// invariant, so absence is a programming error, not a runtime condition.
//
// T may also be an interface type embedding Module, in which case the
// first module (in id order) implementing it is returned
func ModuleAs[T Module](r *Registry) T {
	t := reflect.TypeFor[T]()
	if v, ok := r.instances[t]; ok {
		return v.(T)
	}
	if t.Kind() == reflect.Interface {
		for _, def := range r.table {
			if v, ok := def.target.(T); ok {
				return v
			}
		}
	}
	panic(perr.AbsentCapabilityf("bridge: no module registered as %s", t))
}
