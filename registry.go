package binobj

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Descriptor is the immutable, process-wide metadata of one logical type:
// its id, display name, chosen strategy and (for reflective types) the
// precompiled field plan. Descriptors are append-only: once published they
// are never mutated or removed, so readers need no locking after lookup.
type Descriptor struct {
	id            int32
	name          string
	strategy      Strategy
	goType        reflect.Type // nil for name-only (manual builder) types
	serializer    Serializer   // set for StrategyExternal
	rawMode       bool
	affinityField string
	plan          *fieldPlan // set for StrategyReflective
}

func (d *Descriptor) ID() int32             { return d.id }
func (d *Descriptor) Name() string          { return d.name }
func (d *Descriptor) Strategy() Strategy    { return d.strategy }
func (d *Descriptor) RawMode() bool         { return d.rawMode }
func (d *Descriptor) AffinityField() string { return d.affinityField }
func (d *Descriptor) GoType() reflect.Type  { return d.goType }

// registry maps Go types and logical ids to descriptors. Lookups run lock-free
// on xsync maps; descriptor construction runs under a mutex so concurrent
// first-use of the same unregistered type converges on one agreed descriptor.
type registry struct {
	mu     sync.Mutex
	byType *xsync.Map[reflect.Type, *Descriptor]
	byID   *xsync.Map[int32, *Descriptor]
	byName *xsync.Map[string, *Descriptor]
}

func newRegistry() *registry {
	return &registry{
		byType: xsync.NewMap[reflect.Type, *Descriptor](),
		byID:   xsync.NewMap[int32, *Descriptor](),
		byName: xsync.NewMap[string, *Descriptor](),
	}
}

func (r *registry) lookupType(t reflect.Type) (*Descriptor, bool) {
	return r.byType.Load(t)
}

func (r *registry) lookupID(id int32) (*Descriptor, bool) {
	return r.byID.Load(id)
}

func (r *registry) lookupName(name string) (*Descriptor, bool) {
	return r.byName.Load(name)
}

// publish installs a fully built descriptor. Must be called with r.mu held.
// Id collisions between distinct names are rejected here, before any object
// of the new type was ever serialized.
func (r *registry) publish(d *Descriptor) error {
	if prev, ok := r.byID.Load(d.id); ok && prev.name != d.name {
		return fmt.Errorf("%w: %q and %q both map to type id %d",
			ErrConfigurationConflict, prev.name, d.name, d.id)
	}
	if d.goType != nil {
		r.byType.Store(d.goType, d)
	}
	// First publication wins the id and name slots. A second Go type
	// registered under the same logical name (the cross-platform twin case)
	// keeps its own byType entry but does not displace the wire mapping.
	if _, ok := r.byID.Load(d.id); !ok {
		r.byID.Store(d.id, d)
	}
	if _, ok := r.byName.Load(d.name); !ok {
		r.byName.Store(d.name, d)
	}
	return nil
}
