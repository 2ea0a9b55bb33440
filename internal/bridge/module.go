package bridge

import "context"

// Handler is a host capability method. Arguments arrive already decoded by
// the transport; the handler owns their interpretation. Any asynchronous
// completion happens over the module's own side channel, never through the
// return path
type Handler func(ctx context.Context, args []any) error

// Method kinds exported in the schema document. The kind tells the remote
// stub generator how to shape the local stub; the registry itself treats
// all kinds identically
const (
	KindRemote      = "remote"
	KindRemoteAsync = "remoteAsync"
)

// Method is one callable entry in a module's method table. Slice position
// at build time becomes the method id, fixed for the registry's lifetime
type Method struct {
	Name string
	Kind string // defaults to KindRemote when empty
	Fn   Handler
}

// Module is a host-side capability provider. Name must be unique across
// the final module set; Methods is captured exactly once, at build time,
// so later mutation of whatever backs it has no effect on dispatch
type Module interface {
	Name() string
	Methods() []Method
}

// Initializer is implemented by modules that want the registry's
// initialized notification
type Initializer interface {
	Initialize() error
}

// Destroyer is implemented by modules that want the registry's destroy
// notification
type Destroyer interface {
	Destroy() error
}

// BatchListener is implemented by modules that take part in batch-boundary
// fan-out. The registry precomputes the listener set at build time and
// visits it in ascending module-id order
type BatchListener interface {
	OnBatchComplete()
}

// ConstantsProvider is implemented by modules that export constants to the
// remote side through the schema document
type ConstantsProvider interface {
	Constants() map[string]any
}

// Overrider is implemented by modules that may replace a previously added
// module of the same name. Absence means no override permission
type Overrider interface {
	CanOverride() bool
}
