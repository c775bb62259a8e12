// Package fact provides the resolver-facing view of pkg/mdb: a named
// fact is just an mdb.Table, and the Registry's only job beyond lookup
// is to know which resolver targets subscribed to a fact and hand back
// their names once a fact's table settles at an outermost commit.
//
// fact deliberately does not import pkg/resolver. The resolver calls
// Subscribe at link time and SetStaleHandler once at startup; fact calls
// that handler back with names, never structs, which is what keeps the
// dependency one-directional.
package fact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/murphy-project/murphyd/pkg/mdb"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// Fact is a named fact table plus its own change stamp, bumped once per
// outermost commit that touched it (as opposed to mdb.Table.Stamp, which
// is bumped once per row mutation).
type Fact struct {
	Name  string
	Table *mdb.Table
	stamp uint32
}

// Stamp returns how many outermost commits have touched this fact.
func (f *Fact) Stamp() uint32 { return f.stamp }

// Registry maps fact names to tables and tracks resolver target
// subscriptions.
type Registry struct {
	mu      sync.Mutex
	db      *mdb.DB
	facts   map[string]*Fact
	subs    map[string]map[string]struct{}
	onStale func(targets []string)
}

// New creates a Registry backed by db. db is expected to also hold any
// non-fact tables the daemon uses; fact tables are just ordinary tables
// the registry happens to track subscriptions for.
func New(db *mdb.DB) *Registry {
	return &Registry{
		db:    db,
		facts: make(map[string]*Fact),
		subs:  make(map[string]map[string]struct{}),
	}
}

// SetStaleHandler installs the callback invoked with the sorted list of
// subscribed target names whenever a fact changes. Only one handler is
// supported; pkg/resolver installs it once at startup.
func (r *Registry) SetStaleHandler(fn func(targets []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStale = fn
}

// Declare creates the backing table for a new fact and wires its
// row-change trigger to bump the fact's stamp and notify subscribers.
func (r *Registry) Declare(name string, columns []mdb.ColumnDef, keyCol string) (*Fact, error) {
	r.mu.Lock()
	if _, exists := r.facts[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("fact: %w: %q", merr.ErrNameCollision, name)
	}
	r.mu.Unlock()

	table, err := r.db.CreateTable(name, columns, keyCol)
	if err != nil {
		return nil, fmt.Errorf("fact: %w", err)
	}
	f := &Fact{Name: name, Table: table}

	r.mu.Lock()
	r.facts[name] = f
	r.subs[name] = make(map[string]struct{})
	r.mu.Unlock()

	if err := r.db.OnRowChange(name, func(mdb.LogEntry) { r.touch(name) }); err != nil {
		return nil, fmt.Errorf("fact: %w", err)
	}
	return f, nil
}

// Fact looks up a declared fact by name.
func (r *Registry) Fact(name string) (*Fact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facts[name]
	return f, ok
}

// Names returns every declared fact name in sorted order, for
// introspection printers.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.facts))
	for name := range r.facts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers target as interested in changes to fact. Returns
// ErrUnknownName if fact was never declared.
func (r *Registry) Subscribe(fact, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[fact]
	if !ok {
		return fmt.Errorf("fact: %w: %q", merr.ErrUnknownName, fact)
	}
	set[target] = struct{}{}
	return nil
}

// Unsubscribe removes a previously registered interest. A no-op if
// target was not subscribed.
func (r *Registry) Unsubscribe(fact, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.subs[fact]; ok {
		delete(set, target)
	}
}

func (r *Registry) touch(fact string) {
	r.mu.Lock()
	f, ok := r.facts[fact]
	if !ok {
		r.mu.Unlock()
		return
	}
	f.stamp++

	targets := make([]string, 0, len(r.subs[fact]))
	for t := range r.subs[fact] {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	handler := r.onStale
	r.mu.Unlock()

	if handler != nil && len(targets) > 0 {
		handler(targets)
	}
}
