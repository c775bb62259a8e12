package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/murphy-project/murphyd/pkg/fact"
	"github.com/murphy-project/murphyd/pkg/merr"
	"github.com/murphy-project/murphyd/pkg/script"
)

// ScriptRef names the interpreter tag and source text an update block
// carries, before compilation.
type ScriptRef struct {
	Tag    string
	Source string
}

// ParsedTarget is one target declaration, as produced by the rule file
// parser (or built directly by a caller that skips the text grammar).
type ParsedTarget struct {
	Name    string
	Depends []string
	Script  *ScriptRef
}

// Target is a linked node in the dependency graph: its resolved
// target-to-target and target-to-fact edges, compiled script state, and
// the bookkeeping fields UpdateTarget mutates (stale, stamp, rank).
type Target struct {
	Name       string
	Depends    []string
	targetDeps []string
	factDeps   []string
	script     *ScriptRef
	compiled   script.Handle

	rank      int
	stale     bool
	stamp     uint32
	executing bool
}

// Rank returns the target's position in topological order (dependencies
// before dependents); ties are impossible since rank is the order index.
func (t *Target) Rank() int { return t.rank }

// Stale reports whether t is due for re-evaluation.
func (t *Target) Stale() bool { return t.stale }

// Stamp returns the logical clock value t was last evaluated at.
func (t *Target) Stamp() uint32 { return t.stamp }

// Graph is a linked set of targets: every dependency string has been
// resolved to either another target or a declared fact, and a
// topological rank has been assigned to every target.
type Graph struct {
	targets map[string]*Target
	order   []string
}

// Link resolves every target's dependency strings against both the
// target set itself and facts (if non-nil, subscribing each
// fact-dependent target so fact writes mark it stale), then computes a
// topological order via three-colour DFS. ErrNameCollision on a
// duplicate target name, ErrUnknownDependency on a dependency string
// that matches neither a target nor a fact, ErrCyclicGraph (as a
// *CyclicGraphError) if the target-to-target edges contain a cycle.
func Link(parsed []ParsedTarget, facts *fact.Registry) (*Graph, error) {
	g := &Graph{targets: make(map[string]*Target, len(parsed))}

	for _, p := range parsed {
		if _, exists := g.targets[p.Name]; exists {
			return nil, fmt.Errorf("resolver: %w: target %q", merr.ErrNameCollision, p.Name)
		}
		g.targets[p.Name] = &Target{Name: p.Name, Depends: p.Depends, script: p.Script, stale: true}
	}

	for _, t := range g.targets {
		for _, dep := range t.Depends {
			if _, ok := g.targets[dep]; ok {
				t.targetDeps = append(t.targetDeps, dep)
				continue
			}
			if facts != nil {
				if _, ok := facts.Fact(dep); ok {
					t.factDeps = append(t.factDeps, dep)
					if err := facts.Subscribe(dep, t.Name); err != nil {
						return nil, fmt.Errorf("resolver: %w", err)
					}
					continue
				}
			}
			return nil, fmt.Errorf("resolver: %w: target %q depends on %q", merr.ErrUnknownDependency, t.Name, dep)
		}
	}

	order, err := topoSort(g.targets)
	if err != nil {
		return nil, err
	}
	g.order = order
	for i, name := range order {
		g.targets[name].rank = i
	}
	return g, nil
}

// Target looks up a linked target by name.
func (g *Graph) Target(name string) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Order returns every target name in topological (dependency-first) order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

const (
	white = iota
	gray
	black
)

// topoSort performs a three-colour DFS over the target-to-target edges,
// returning a dependency-first order or a *CyclicGraphError naming the
// offending path. Traversal starts from target names in lexical order so
// the result is deterministic given the same input graph.
func topoSort(targets map[string]*Target) ([]string, error) {
	color := make(map[string]int, len(targets))
	order := make([]string, 0, len(targets))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			cycle := append(append([]string{}, path...), name)
			return &CyclicGraphError{Path: cycle}
		}
		color[name] = gray
		path = append(path, name)
		for _, dep := range targets[name].targetDeps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// CyclicGraphError reports a cycle found among target dependency edges.
type CyclicGraphError struct {
	Path []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("resolver: %s: %s", merr.ErrCyclicGraph, strings.Join(e.Path, " -> "))
}

func (e *CyclicGraphError) Unwrap() error { return merr.ErrCyclicGraph }
