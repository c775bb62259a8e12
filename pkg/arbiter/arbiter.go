// Package arbiter implements the per-zone resource arbitration engine: the
// priority-ordered pass that turns a zone's outstanding resource set
// requests into grant/advice masks. pkg/resource tracks request state;
// this package is the only thing that ever computes a mask.
package arbiter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/murphy-project/murphyd/pkg/log"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/murphy-project/murphyd/pkg/metrics"
	"github.com/murphy-project/murphyd/pkg/registry"
	"github.com/murphy-project/murphyd/pkg/resource"
)

// Engine holds the live resource sets for every zone and serializes
// arbitration runs so two runs for the same zone never interleave.
type Engine struct {
	reg *registry.Registry

	mu   sync.Mutex
	sets map[string][]*resource.Set // zone name -> sets registered in that zone

	zoneRun map[string]*sync.Mutex // per-zone run serialization
}

// New creates an Engine bound to a sealed registry. The registry must
// already be sealed: zone/resource-def/class identity is fixed for the
// lifetime of the engine.
func New(reg *registry.Registry) (*Engine, error) {
	if !reg.Sealed() {
		return nil, fmt.Errorf("arbiter: %w: registry must be sealed before use", merr.ErrInitSealed)
	}
	return &Engine{
		reg:     reg,
		sets:    make(map[string][]*resource.Set),
		zoneRun: make(map[string]*sync.Mutex),
	}, nil
}

// Register adds a resource set to its zone's arbitration pool. Run must
// be called again for the set to receive a grant.
func (e *Engine) Register(set *resource.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sets[set.Zone] = append(e.sets[set.Zone], set)
	if _, ok := e.zoneRun[set.Zone]; !ok {
		e.zoneRun[set.Zone] = &sync.Mutex{}
	}
}

// Unregister removes a set from its zone's arbitration pool, typically
// after resource.Set.Destroy. It does not re-run arbitration; the
// caller should call Run afterward if other sets may now be unblocked.
func (e *Engine) Unregister(set *resource.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.sets[set.Zone]
	for i, s := range list {
		if s.ID == set.ID {
			e.sets[set.Zone] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (e *Engine) zoneMutex(zone string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.zoneRun[zone]
	if !ok {
		m = &sync.Mutex{}
		e.zoneRun[zone] = m
	}
	return m
}

// Run performs one arbitration pass over every resource set currently
// registered in zone, in priority order, and applies the outcome to each
// set via Set.ApplyOutcome. All sets are reconsidered on every run, so a
// resource's ownership is always re-derived rather than inherited: a
// higher-priority acquirer that shows up after a lower-priority set
// already holds a resource will still take it away on the next run.
func (e *Engine) Run(zone string) error {
	run := e.zoneMutex(zone)
	run.Lock()
	defer run.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ArbitrationDuration, zone)
	metrics.ArbitrationRunsTotal.WithLabelValues(zone).Inc()

	e.mu.Lock()
	sets := make([]*resource.Set, len(e.sets[zone]))
	copy(sets, e.sets[zone])
	e.mu.Unlock()

	order, err := e.order(sets)
	if err != nil {
		return fmt.Errorf("arbiter: %w", err)
	}

	resDefShareable, err := e.shareableDefMask()
	if err != nil {
		return fmt.Errorf("arbiter: %w", err)
	}

	zoneLog := log.WithZone(zone)
	var ownedAny, ownedExcl uint32
	changes := 0

	for _, s := range order {
		var newGrant uint32
		if s.RequestType() == resource.RequestRelease {
			newGrant = 0
		} else {
			want := s.All()
			shareableMask := s.ShareableMask(resDefShareable)
			blockedExcl := want & ownedExcl
			exclWant := want &^ shareableMask
			conflict := (exclWant & ownedAny) | blockedExcl
			if s.Mandatory()&conflict != 0 {
				newGrant = 0
			} else {
				newGrant = want &^ conflict
			}
		}

		if s.ApplyOutcome(newGrant, newGrant) {
			changes++
		}

		ownedAny |= s.Grant
		ownedExcl |= s.Grant &^ s.ShareableMask(resDefShareable)
	}

	if changes > 0 {
		metrics.GrantChangesTotal.WithLabelValues(zone).Add(float64(changes))
	}
	zoneLog.Debug().Int("sets", len(order)).Int("changes", changes).Msg("arbitration run complete")
	return nil
}

// order sorts sets by class.priority descending, then request stamp
// ascending, then set id ascending — the tie-break chain that makes a
// run's outcome deterministic and repeatable.
func (e *Engine) order(sets []*resource.Set) ([]*resource.Set, error) {
	priority := make(map[uint32]uint32, len(sets))
	for _, s := range sets {
		class, ok := e.reg.Class(s.Class)
		if !ok {
			return nil, fmt.Errorf("%w: class %q", merr.ErrUnknownName, s.Class)
		}
		priority[s.ID] = class.Priority
	}

	out := make([]*resource.Set, len(sets))
	copy(out, sets)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if priority[a.ID] != priority[b.ID] {
			return priority[a.ID] > priority[b.ID]
		}
		if a.Stamp() != b.Stamp() {
			return a.Stamp() < b.Stamp()
		}
		return a.ID < b.ID
	})
	return out, nil
}

// shareableDefMask is the bitmask of every resource definition that
// itself allows sharing, independent of any one set's request.
func (e *Engine) shareableDefMask() (uint32, error) {
	var mask uint32
	for _, d := range e.reg.ResourceDefs() {
		if d.Shareable {
			mask |= d.Mask()
		}
	}
	return mask, nil
}
