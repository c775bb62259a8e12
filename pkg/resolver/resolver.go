// Package resolver drives the target dependency graph: linking rule
// file declarations into a Graph, tracking staleness as fact writes
// arrive, and re-running update scripts in topological order on
// UpdateTarget. A call only executes targets that are stale or depend
// (directly or transitively) on something stale; if any executed
// target's script fails, the whole call aborts and no stamps move —
// UpdateTarget either fully commits its closure or changes nothing.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/murphy-project/murphyd/pkg/fact"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/murphy-project/murphyd/pkg/script"
)

// Resolver ties a linked Graph to the fact registry that marks targets
// stale, the script registry that compiles and runs their update
// blocks, and the context table their bindings live in.
type Resolver struct {
	mu      sync.Mutex
	graph   *Graph
	facts   *fact.Registry
	scripts *script.Registry
	ctx     *ContextTable
	clock   uint32

	runningMu sync.Mutex
	running   map[string]bool
}

// New builds a Resolver over an already-linked graph. If facts is
// non-nil, its stale handler is wired so fact writes propagate into the
// graph's stale flags; only one Resolver may share a given
// fact.Registry, since SetStaleHandler keeps a single callback.
func New(g *Graph, facts *fact.Registry, scripts *script.Registry) *Resolver {
	r := &Resolver{
		graph:   g,
		facts:   facts,
		scripts: scripts,
		ctx:     NewContextTable(),
		running: make(map[string]bool),
	}
	if facts != nil {
		facts.SetStaleHandler(r.markStale)
	}
	return r
}

// markStale is the fact.Registry stale handler: it flips the stale flag
// on every named target, without executing anything. Execution happens
// only inside UpdateTarget.
func (r *Resolver) markStale(targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range targets {
		if t, ok := r.graph.targets[name]; ok {
			t.stale = true
		}
	}
}

// DeclareVariable registers a context variable by name and type, ahead
// of any UpdateTarget call that binds it.
func (r *Resolver) DeclareVariable(name string, t VarType) error {
	return r.ctx.Declare(name, t)
}

// UpdateTarget pushes bindings as a new context frame, computes the set
// of targets that need re-evaluation to bring name up to date, and runs
// their scripts in topological order. Every stamp bump and stale-clear
// for the call is deferred until every target in the closure has
// executed successfully: a mid-closure failure leaves the graph exactly
// as it was before the call, including the target whose script already
// ran cleanly.
//
// Per the single-threaded cooperative model (spec §5), this method does
// not hold a lock across script execution: a script is free to call back
// into UpdateTarget for some *other* target on the same call stack. Only
// the graph bookkeeping itself (r.mu) and the running-target bookkeeping
// (r.runningMu, t.executing) are protected, just long enough to detect a
// script re-entering UpdateTarget for a target already mid-execution —
// directly (same name, checked here) or indirectly (a target reached
// through the new call's own closure, checked per-target in runScript).
func (r *Resolver) UpdateTarget(name string, bindings map[string]Value) error {
	r.runningMu.Lock()
	if r.running[name] {
		r.runningMu.Unlock()
		return &ReentrancyError{Target: name}
	}
	r.running[name] = true
	r.runningMu.Unlock()
	defer func() {
		r.runningMu.Lock()
		delete(r.running, name)
		r.runningMu.Unlock()
	}()

	r.mu.Lock()
	target, ok := r.graph.targets[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("resolver: %w: target %q", merr.ErrUnknownName, name)
	}
	closure := r.closure(target)
	r.mu.Unlock()

	r.ctx.PushFrame()
	defer r.ctx.PopFrame()
	for varName, v := range bindings {
		if err := r.ctx.Set(varName, v); err != nil {
			return err
		}
	}

	if len(closure) == 0 {
		return nil
	}

	for _, t := range closure {
		status, err := r.runScript(t)
		if err != nil {
			return err
		}
		if status != 0 {
			return &ScriptFailedError{Target: t.Name, ExitStatus: status}
		}
	}

	r.mu.Lock()
	r.clock++
	for _, t := range closure {
		t.stale = false
		t.stamp = r.clock
	}
	r.mu.Unlock()
	return nil
}

// closure returns every target that must run to bring target up to
// date, in topological order: first the set of targets reachable from
// target via target-to-target edges, then a fixed-point pass marking a
// target as needing execution if it is itself stale or depends on one
// that does. A target with no stale ancestor and no stale flag of its
// own is left out entirely, which is what makes repeated UpdateTarget
// calls with no intervening fact writes a no-op.
func (r *Resolver) closure(target *Target) []*Target {
	reachable := make(map[string]*Target)
	var collect func(t *Target)
	collect = func(t *Target) {
		if _, ok := reachable[t.Name]; ok {
			return
		}
		reachable[t.Name] = t
		for _, dep := range t.targetDeps {
			collect(r.graph.targets[dep])
		}
	}
	collect(target)

	needs := make(map[string]bool, len(reachable))
	for name, t := range reachable {
		if t.stale {
			needs[name] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for name, t := range reachable {
			if needs[name] {
				continue
			}
			for _, dep := range t.targetDeps {
				if needs[dep] {
					needs[name] = true
					changed = true
					break
				}
			}
		}
	}

	out := make([]*Target, 0, len(needs))
	for name, t := range reachable {
		if needs[name] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	return out
}

// runScript compiles t's update block on first use, binds the current
// context snapshot, and executes it. A target with no update block
// (pure dependency grouping) trivially succeeds with status 0. If t is
// already executing somewhere up the call stack — reached through a
// nested UpdateTarget call's own closure — this rejects with
// ReentrancyError instead of running t a second time concurrently with
// itself.
func (r *Resolver) runScript(t *Target) (int, error) {
	if t.script == nil {
		return 0, nil
	}
	if t.executing {
		return 0, &ReentrancyError{Target: t.Name}
	}

	interp, ok := r.scripts.Get(t.script.Tag)
	if !ok {
		return 0, fmt.Errorf("resolver: %w: interpreter %q", merr.ErrUnknownName, t.script.Tag)
	}
	if t.compiled == nil {
		h, err := interp.Compile(t.script.Source)
		if err != nil {
			return 0, fmt.Errorf("resolver: %w", err)
		}
		t.compiled = h
	}
	if err := interp.Prepare(t.compiled, r.ctx.Bindings()); err != nil {
		return 0, fmt.Errorf("resolver: %w", err)
	}
	defer interp.Cleanup(t.compiled)

	t.executing = true
	defer func() { t.executing = false }()

	status, err := interp.Execute(t.compiled)
	if err != nil {
		return 0, &ScriptFailedError{Target: t.Name, Err: err}
	}
	return status, nil
}

// TargetInfo is a snapshot of one target's linkage and bookkeeping
// state, for introspection printers.
type TargetInfo struct {
	Name    string
	Depends []string
	Stale   bool
	Stamp   uint32
	Rank    int
}

// DumpTargets returns every target's state in topological order.
func (r *Resolver) DumpTargets() []TargetInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TargetInfo, 0, len(r.graph.order))
	for _, name := range r.graph.order {
		t := r.graph.targets[name]
		out = append(out, TargetInfo{
			Name:    t.Name,
			Depends: append([]string(nil), t.Depends...),
			Stale:   t.stale,
			Stamp:   t.stamp,
			Rank:    t.rank,
		})
	}
	return out
}

// FactInfo is a snapshot of one declared fact's change count.
type FactInfo struct {
	Name  string
	Stamp uint32
}

// DumpFacts returns every declared fact's name and stamp in sorted
// order. Empty if the resolver has no fact registry.
func (r *Resolver) DumpFacts() []FactInfo {
	if r.facts == nil {
		return nil
	}
	names := r.facts.Names()
	out := make([]FactInfo, 0, len(names))
	for _, name := range names {
		f, ok := r.facts.Fact(name)
		if !ok {
			continue
		}
		out = append(out, FactInfo{Name: name, Stamp: f.Stamp()})
	}
	return out
}
