package arbiter

import (
	"fmt"
	"io"
	"sort"

	"github.com/murphy-project/murphyd/pkg/resource"
)

// ClassPrint renders an ASCII table of every registered class, its
// priority, and per-zone ownership: each line under a class lists the
// zones in which at least one set currently belongs to that class,
// followed by that set's id and grant/advice masks, matching spec §6's
// field order (class name, priority, then per-zone "set_id:grant/advice"
// lines).
func (e *Engine) ClassPrint(w io.Writer) error {
	classes := e.reg.Classes()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Priority > classes[j].Priority })

	for _, c := range classes {
		if _, err := fmt.Fprintf(w, "%-16s priority=%d\n", c.Name, c.Priority); err != nil {
			return err
		}
		for _, zone := range e.sortedZones() {
			for _, s := range e.membersOf(zone, c.Name) {
				if _, err := fmt.Fprintf(w, "  %-16s %d:%#x/%#x\n", zone, s.ID, s.Grant, s.Advice); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// OwnerPrint renders, for every zone, which set currently holds each
// resource bit exclusively or shareably — the introspection view of
// ownership the arbitration algorithm computed, independent of class.
func (e *Engine) OwnerPrint(w io.Writer) error {
	resDefs := e.reg.ResourceDefs()
	for _, zone := range e.sortedZones() {
		if _, err := fmt.Fprintf(w, "%s\n", zone); err != nil {
			return err
		}
		e.mu.Lock()
		sets := append([]*resource.Set(nil), e.sets[zone]...)
		e.mu.Unlock()

		for _, d := range resDefs {
			var holders []string
			for _, s := range sets {
				if s.Grant&d.Mask() != 0 {
					holders = append(holders, fmt.Sprintf("%d", s.ID))
				}
			}
			if len(holders) == 0 {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %-16s %v\n", d.Name, holders); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetPrint renders one line per resource set currently registered in
// zone: its id, class, request state, and grant/advice masks.
func (e *Engine) SetPrint(w io.Writer, zone string) error {
	e.mu.Lock()
	sets := append([]*resource.Set(nil), e.sets[zone]...)
	e.mu.Unlock()

	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })
	for _, s := range sets {
		if _, err := fmt.Fprintf(w, "%-6d %-16s %-8s grant=%#x advice=%#x\n", s.ID, s.Class, s.State(), s.Grant, s.Advice); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sortedZones() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	zones := make([]string, 0, len(e.sets))
	for z := range e.sets {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones
}

func (e *Engine) membersOf(zone, class string) []*resource.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*resource.Set
	for _, s := range e.sets[zone] {
		if s.Class == class {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
