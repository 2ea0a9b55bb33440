package bridge

import (
	"reflect"

	"hostbridge/internal/bridge/affinity"
	perr "hostbridge/internal/platform/errors"
	"hostbridge/internal/platform/trace"

	"github.com/rs/zerolog"
)

// Builder accumulates modules by name and produces an immutable Registry.
// It is not safe for concurrent use; registration happens on the
// bootstrap path before anything else runs
type Builder struct {
	entries map[string]Module
	order   []string
	built   bool
}

// NewBuilder returns an empty Builder
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]Module)}
}

// Add registers a module under its name.
//
// A second module with an already-registered name is rejected with a
// conflict error unless it implements Overrider and returns true, in which
// case it replaces the prior module in place: the name keeps the slot of
// its first registration, so the eventual id assignment is unaffected by
// overrides. Add never mutates state on failure
func (b *Builder) Add(m Module) error {
	if b.built {
		panic("bridge: Add after Build")
	}
	if m == nil {
		return perr.InvalidArgf("bridge: nil module")
	}
	name := m.Name()
	if name == "" {
		return perr.InvalidArgf("bridge: module with empty name")
	}
	if existing, ok := b.entries[name]; ok {
		o, can := m.(Overrider)
		if !can || !o.CanOverride() {
			return perr.Conflictf(
				"bridge: module %T tried to override %T for name %q without override permission",
				m, existing, name)
		}
		b.entries[name] = m
		return nil
	}
	b.entries[name] = m
	b.order = append(b.order, name)
	return nil
}

// Option adjusts registry construction
type Option func(*buildCfg)

type buildCfg struct {
	sink trace.Sink
	log  *zerolog.Logger
}

// WithTrace sets the trace sink receiving dispatch and lifecycle scopes
func WithTrace(s trace.Sink) Option {
	return func(c *buildCfg) { c.sink = s }
}

// WithLogger sets the registry logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *buildCfg) { c.log = &log }
}

// Build consumes the builder and returns the immutable Registry.
//
// Ids are assigned 0..N-1 in first-registration order over the final
// module set. Each module's method table is copied and frozen here;
// whatever the module returns from Methods later is irrelevant. Build
// panics when called twice, and any Add after Build panics: the builder
// is spent.
//
// The owner token presented here is the only token the registry will
// accept for lifecycle notifications
func (b *Builder) Build(owner affinity.Token, opts ...Option) (*Registry, error) {
	if b.built {
		panic("bridge: Build called twice")
	}
	if !owner.Valid() {
		return nil, perr.InvalidArgf("bridge: Build requires a minted owner token")
	}
	b.built = true

	var cfg buildCfg
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = trace.Noop()
	}
	log := zerolog.Nop()
	if cfg.log != nil {
		log = *cfg.log
	}

	table := make([]*Definition, 0, len(b.order))
	instances := make(map[reflect.Type]Module, len(b.order))

	for id, name := range b.order {
		m := b.entries[name]
		def, err := newDefinition(id, name, m)
		if err != nil {
			return nil, err
		}
		table = append(table, def)
		instances[reflect.TypeOf(m)] = m
	}

	// batch listeners precomputed in ascending id order
	var batch []BatchListener
	for _, def := range table {
		if bl, ok := def.target.(BatchListener); ok {
			batch = append(batch, bl)
		}
	}

	r := &Registry{
		table:     table,
		instances: instances,
		batch:     batch,
		owner:     owner,
		sink:      cfg.sink,
		log:       log,
	}
	log.Debug().Int("modules", len(table)).Msg("bridge registry built")
	return r, nil
}

// Definition pairs a module with its assigned id and frozen method table
type Definition struct {
	id      int
	name    string
	target  Module
	methods []methodReg
}

// ID returns the registry-assigned module id
func (d *Definition) ID() int { return d.id }

// Name returns the module name
func (d *Definition) Name() string { return d.name }

// Target returns the module instance
func (d *Definition) Target() Module { return d.target }

type methodReg struct {
	name  string
	kind  string
	label string // diagnostic trace label
	fn    Handler
}

func newDefinition(id int, name string, m Module) (*Definition, error) {
	declared := m.Methods()
	methods := make([]methodReg, 0, len(declared))
	seen := make(map[string]struct{}, len(declared))
	for _, mm := range declared {
		if mm.Name == "" {
			return nil, perr.InvalidArgf("bridge: module %q declares a method with empty name", name)
		}
		if mm.Fn == nil {
			return nil, perr.InvalidArgf("bridge: module %q method %q has nil handler", name, mm.Name)
		}
		if _, dup := seen[mm.Name]; dup {
			return nil, perr.InvalidArgf("bridge: module %q declares method %q twice", name, mm.Name)
		}
		seen[mm.Name] = struct{}{}
		kind := mm.Kind
		if kind == "" {
			kind = KindRemote
		}
		methods = append(methods, methodReg{
			name:  mm.Name,
			kind:  kind,
			label: "HostCall__" + name + "_" + mm.Name,
			fn:    mm.Fn,
		})
	}
	return &Definition{id: id, name: name, target: m, methods: methods}, nil
}
