// Package registry implements the process-wide catalogues of zones,
// resource definitions, and resource classes. A Registry is sealed after
// its owner finishes startup configuration; every Create method past
// that point fails with merr.ErrInitSealed, mirroring the daemon's
// fixed-topology assumption (spec: no dynamic zone/class redefinition).
package registry

import (
	"fmt"

	"github.com/murphy-project/murphyd/pkg/attr"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// MaxZones and MaxResourceDefs bound the registry: resource and advice
// masks are 32-bit words, one bit per zone-scoped resource definition.
const (
	MaxZones        = 32
	MaxResourceDefs = 32
)

// Zone is a named arbitration domain (e.g. a physical seat, a screen).
type Zone struct {
	ID   uint32
	Name string
	Attr *attr.Record
}

// ResourceDef declares a resource kind: its name, bit position, and
// whether it may be shared concurrently by multiple sets.
type ResourceDef struct {
	ID        uint32
	Name      string
	Shareable bool
	AttrDefs  []attr.Def
}

// Mask is this resource definition's bit in a 32-bit resource/grant/advice mask.
func (d ResourceDef) Mask() uint32 { return 1 << d.ID }

// Class groups resource sets under a shared scheduling priority.
type Class struct {
	ID       uint32
	Name     string
	Priority uint32
}

// Registry is the process-wide catalogue of zones, resource
// definitions, and classes. It is safe to mutate only before Seal is
// called; afterward it is read-only from every other package's
// perspective.
type Registry struct {
	sealed bool

	zones     []Zone
	zonesByNm map[string]int

	resDefs   []ResourceDef
	resByName map[string]int

	classes   []Class
	classByNm map[string]int
}

// New creates an empty, unsealed Registry.
func New() *Registry {
	return &Registry{
		zonesByNm: make(map[string]int),
		resByName: make(map[string]int),
		classByNm: make(map[string]int),
	}
}

// Seal freezes the registry; all further Create* calls fail.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool { return r.sealed }

func (r *Registry) checkSealed() error {
	if r.sealed {
		return merr.ErrInitSealed
	}
	return nil
}

// CreateZone registers a new zone. Fails with ErrCapacityExceeded past
// MaxZones, ErrNameCollision on a duplicate name, ErrInitSealed after Seal.
func (r *Registry) CreateZone(name string, defs []attr.Def) (*Zone, error) {
	if err := r.checkSealed(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if _, exists := r.zonesByNm[name]; exists {
		return nil, fmt.Errorf("registry: %w: zone %q", merr.ErrNameCollision, name)
	}
	if len(r.zones) >= MaxZones {
		return nil, fmt.Errorf("registry: %w: zone %q (limit %d)", merr.ErrCapacityExceeded, name, MaxZones)
	}

	z := Zone{ID: uint32(len(r.zones)), Name: name, Attr: attr.NewRecord(defs)}
	r.zones = append(r.zones, z)
	r.zonesByNm[name] = int(z.ID)
	return &r.zones[z.ID], nil
}

// Zone looks up a zone by name.
func (r *Registry) Zone(name string) (*Zone, bool) {
	i, ok := r.zonesByNm[name]
	if !ok {
		return nil, false
	}
	return &r.zones[i], true
}

// Zones returns every registered zone, in creation order.
func (r *Registry) Zones() []Zone {
	out := make([]Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// CreateResourceDef registers a new resource definition. Fails with
// ErrCapacityExceeded past MaxResourceDefs, ErrNameCollision on a
// duplicate name, ErrInitSealed after Seal.
func (r *Registry) CreateResourceDef(name string, shareable bool, attrDefs []attr.Def) (*ResourceDef, error) {
	if err := r.checkSealed(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if _, exists := r.resByName[name]; exists {
		return nil, fmt.Errorf("registry: %w: resource %q", merr.ErrNameCollision, name)
	}
	if len(r.resDefs) >= MaxResourceDefs {
		return nil, fmt.Errorf("registry: %w: resource %q (limit %d)", merr.ErrCapacityExceeded, name, MaxResourceDefs)
	}

	d := ResourceDef{ID: uint32(len(r.resDefs)), Name: name, Shareable: shareable, AttrDefs: attrDefs}
	r.resDefs = append(r.resDefs, d)
	r.resByName[name] = int(d.ID)
	return &r.resDefs[d.ID], nil
}

// ResourceDef looks up a resource definition by name.
func (r *Registry) ResourceDef(name string) (*ResourceDef, bool) {
	i, ok := r.resByName[name]
	if !ok {
		return nil, false
	}
	return &r.resDefs[i], true
}

// ResourceDefs returns every registered resource definition, in creation order.
func (r *Registry) ResourceDefs() []ResourceDef {
	out := make([]ResourceDef, len(r.resDefs))
	copy(out, r.resDefs)
	return out
}

// CreateClass registers a new resource class at the given priority
// (higher wins ties before set stamp/id, per the arbitration ordering
// rule). ErrNameCollision on a duplicate name, ErrInitSealed after Seal.
func (r *Registry) CreateClass(name string, priority uint32) (*Class, error) {
	if err := r.checkSealed(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if _, exists := r.classByNm[name]; exists {
		return nil, fmt.Errorf("registry: %w: class %q", merr.ErrNameCollision, name)
	}

	c := Class{ID: uint32(len(r.classes)), Name: name, Priority: priority}
	r.classes = append(r.classes, c)
	r.classByNm[name] = int(c.ID)
	return &r.classes[c.ID], nil
}

// Class looks up a resource class by name.
func (r *Registry) Class(name string) (*Class, bool) {
	i, ok := r.classByNm[name]
	if !ok {
		return nil, false
	}
	return &r.classes[i], true
}

// Classes returns every registered class, in creation order.
func (r *Registry) Classes() []Class {
	out := make([]Class, len(r.classes))
	copy(out, r.classes)
	return out
}
