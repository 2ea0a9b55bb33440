// Package modules assembles the standard capability set
package modules

import (
	"hostbridge/internal/bridge"
	"hostbridge/internal/modkit"

	"hostbridge/internal/modules/analytics"
	"hostbridge/internal/modules/device"
	"hostbridge/internal/modules/netinfo"
	"hostbridge/internal/modules/storage"
	"hostbridge/internal/modules/timing"
)

// Set holds the standard modules before registration, so callers can wire
// side channels and still hand the same instances to the builder
type Set struct {
	Device    *device.Module
	Timing    *timing.Module
	Storage   *storage.Module
	Analytics *analytics.Module
	NetInfo   *netinfo.Module
}

// Standard constructs the full capability set from shared deps
func Standard(deps modkit.Deps) *Set {
	return &Set{
		Device:    device.New(deps),
		Timing:    timing.New(deps),
		Storage:   storage.New(deps),
		Analytics: analytics.New(deps),
		NetInfo:   netinfo.New(deps),
	}
}

// All returns the set in registration order; ids follow this order
func (s *Set) All() []bridge.Module {
	return []bridge.Module{s.Device, s.Timing, s.Storage, s.Analytics, s.NetInfo}
}

// Register adds every module to the builder in order
func (s *Set) Register(b *bridge.Builder) error {
	for _, m := range s.All() {
		if err := b.Add(m); err != nil {
			return err
		}
	}
	return nil
}
