// Package bridge is the capability registry and call-dispatch table at the
// boundary between a managed runtime and host-side capability modules.
//
// The managed side issues calls as (moduleID, methodID, args) tuples; the
// registry resolves the pair against an immutable table built once at
// startup and invokes the registered handler. Module and method ids are
// array positions assigned at build time, so both sides of the boundary
// share a stable numeric contract exported through the schema document.
//
// Construction goes through Builder: Add accumulates modules by unique
// name (with an explicit override escape hatch), Build freezes the set,
// assigns ids in first-registration order and returns the Registry. The
// builder is spent after Build.
//
// The registry itself is immutable and lock-free. Dispatch may run from
// any goroutine; lifecycle and batch notifications belong to the single
// owner context identified by an affinity token bound at build time
package bridge
