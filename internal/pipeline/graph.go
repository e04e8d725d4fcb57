package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-router/internal/model"
)

// Stage is one node of the workflow. Run must record failures on the lead
// rather than return them; the engine recovers any panic that escapes.
type Stage interface {
	Name() string
	Run(ctx context.Context, l *model.Lead)
}

// StageFunc adapts a function into a named Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, l *model.Lead)
}

// Name returns the stage name.
func (s StageFunc) Name() string { return s.StageName }

// Run invokes Fn.
func (s StageFunc) Run(ctx context.Context, l *model.Lead) { s.Fn(ctx, l) }

// Decision picks the next node from the lead's state.
type Decision func(l *model.Lead) string

type conditional struct {
	decide  Decision
	targets []string
}

// Graph is a directed graph of stages with a single entry. Builder errors
// are collected and reported by Validate.
type Graph struct {
	nodes     map[string]Stage
	order     []string
	edges     map[string]string
	cond      map[string]conditional
	entry     string
	terminals map[string]bool
	errs      []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]Stage),
		edges:     make(map[string]string),
		cond:      make(map[string]conditional),
		terminals: make(map[string]bool),
	}
}

func (g *Graph) fail(format string, args ...any) {
	g.errs = append(g.errs, fmt.Sprintf(format, args...))
}

// AddNode registers a stage under its name.
func (g *Graph) AddNode(s Stage) {
	if s == nil {
		g.fail("nil stage")
		return
	}
	name := s.Name()
	if name == "" {
		g.fail("stage with empty name")
		return
	}
	if _, dup := g.nodes[name]; dup {
		g.fail("duplicate node %q", name)
		return
	}
	g.nodes[name] = s
	g.order = append(g.order, name)
}

// AddEdge adds an unconditional transition.
func (g *Graph) AddEdge(from, to string) {
	if _, ok := g.cond[from]; ok {
		g.fail("node %q already has a conditional edge", from)
		return
	}
	if prev, ok := g.edges[from]; ok {
		g.fail("node %q already has an edge to %q", from, prev)
		return
	}
	g.edges[from] = to
}

// AddConditionalEdge adds a transition chosen at run time by decide. The
// decision must return one of targets.
func (g *Graph) AddConditionalEdge(from string, decide Decision, targets ...string) {
	if decide == nil {
		g.fail("nil decision on %q", from)
		return
	}
	if len(targets) == 0 {
		g.fail("conditional edge on %q has no targets", from)
		return
	}
	if _, ok := g.edges[from]; ok {
		g.fail("node %q already has an edge", from)
		return
	}
	if _, ok := g.cond[from]; ok {
		g.fail("node %q already has a conditional edge", from)
		return
	}
	g.cond[from] = conditional{decide: decide, targets: slices.Clone(targets)}
}

// SetEntry marks the node every run starts from.
func (g *Graph) SetEntry(name string) {
	g.entry = name
}

// SetTerminal marks nodes after which a run ends.
func (g *Graph) SetTerminal(names ...string) {
	for _, n := range names {
		g.terminals[n] = true
	}
}

// Validate reports builder errors, unknown nodes, a missing entry, dead ends
// and terminals that cannot be reached from the entry.
func (g *Graph) Validate() error {
	errs := slices.Clone(g.errs)

	if g.entry == "" {
		errs = append(errs, "no entry node")
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Sprintf("entry %q is not a node", g.entry))
	}
	if len(g.terminals) == 0 {
		errs = append(errs, "no terminal nodes")
	}

	for _, name := range slices.Sorted(maps.Keys(g.terminals)) {
		if _, ok := g.nodes[name]; !ok {
			errs = append(errs, fmt.Sprintf("terminal %q is not a node", name))
		}
		if _, ok := g.edges[name]; ok {
			errs = append(errs, fmt.Sprintf("terminal %q has an outgoing edge", name))
		}
		if _, ok := g.cond[name]; ok {
			errs = append(errs, fmt.Sprintf("terminal %q has an outgoing edge", name))
		}
	}

	for _, name := range g.order {
		to, hasEdge := g.edges[name]
		c, hasCond := g.cond[name]
		switch {
		case hasEdge:
			if _, ok := g.nodes[to]; !ok {
				errs = append(errs, fmt.Sprintf("edge %s -> %s targets unknown node", name, to))
			}
		case hasCond:
			for _, t := range c.targets {
				if _, ok := g.nodes[t]; !ok {
					errs = append(errs, fmt.Sprintf("conditional edge %s -> %s targets unknown node", name, t))
				}
			}
		case !g.terminals[name]:
			errs = append(errs, fmt.Sprintf("node %q has no outgoing edge and is not terminal", name))
		}
	}
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Sprintf("edge from unknown node %q", from))
		}
	}
	for _, from := range slices.Sorted(maps.Keys(g.cond)) {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Sprintf("conditional edge from unknown node %q", from))
		}
	}

	if len(errs) == 0 {
		reach := g.reachable()
		found := false
		for name := range g.terminals {
			if reach[name] {
				found = true
			}
		}
		if !found {
			errs = append(errs, "no terminal reachable from entry")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("pipeline: invalid graph: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (g *Graph) reachable() map[string]bool {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		var next []string
		if to, ok := g.edges[n]; ok {
			next = append(next, to)
		}
		if c, ok := g.cond[n]; ok {
			next = append(next, c.targets...)
		}
		for _, to := range next {
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return seen
}

// next returns the node after from. A conditional decision runs exactly once
// per call.
func (g *Graph) next(from string, l *model.Lead) (string, error) {
	if to, ok := g.edges[from]; ok {
		return to, nil
	}
	c, ok := g.cond[from]
	if !ok {
		return "", eris.Errorf("node %q has no outgoing edge", from)
	}
	to := c.decide(l)
	if !slices.Contains(c.targets, to) {
		return "", eris.Errorf("decision after %q returned unknown target %q", from, to)
	}
	return to, nil
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}
