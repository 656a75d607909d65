// Package pipeline runs a graph of named tasks with declared dependencies.
//
// A Graph is validated when it is built and never changes afterwards. An
// Executor runs every task whose dependencies have succeeded, concurrently,
// and stops scheduling work at the first failure.
package pipeline

import (
	"context"
	"sort"
)

// TaskFunc is the work of one node.
type TaskFunc func(ctx context.Context) error

// Task declares one node of a Graph.
type Task struct {
	Name string
	Deps []string
	Run  TaskFunc
}

type node struct {
	name       string
	run        TaskFunc
	deps       []*node
	dependents []*node
	index      int
}

// Graph is an immutable, validated task graph.
type Graph struct {
	nodes  []*node
	byName map[string]*node
	order  []string
}

// NewGraph builds and validates a Graph. It rejects an empty task list,
// empty or duplicate names, nil task functions, unknown or repeated
// dependencies, self-dependencies and cycles.
func NewGraph(tasks ...Task) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	g := &Graph{byName: make(map[string]*node, len(tasks))}
	for i, t := range tasks {
		if t.Name == "" {
			return nil, invalidf("task name is required")
		}
		if _, exists := g.byName[t.Name]; exists {
			return nil, invalidf("duplicate task name: %q", t.Name)
		}
		if t.Run == nil {
			return nil, invalidf("task %q has no run function", t.Name)
		}
		n := &node{name: t.Name, run: t.Run, index: i}
		g.byName[t.Name] = n
		g.nodes = append(g.nodes, n)
	}

	for _, t := range tasks {
		n := g.byName[t.Name]
		seen := make(map[string]struct{}, len(t.Deps))
		for _, dep := range t.Deps {
			if dep == t.Name {
				return nil, invalidf("self-dependency: %q", t.Name)
			}
			d, ok := g.byName[dep]
			if !ok {
				return nil, invalidf("task %q depends on unknown task %q", t.Name, dep)
			}
			if _, dup := seen[dep]; dup {
				return nil, invalidf("duplicate dependency: %q -> %q", t.Name, dep)
			}
			seen[dep] = struct{}{}
			n.deps = append(n.deps, d)
			d.dependents = append(d.dependents, n)
		}
	}

	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether the graph contains a task called name.
func (g *Graph) Has(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// Deps returns the direct dependencies of name in declaration order.
func (g *Graph) Deps(name string) []string {
	n, ok := g.byName[name]
	if !ok {
		return nil
	}
	out := make([]string, len(n.deps))
	for i, d := range n.deps {
		out[i] = d.name
	}
	return out
}

// TopologicalOrder returns the task names so that every task comes after
// its dependencies. Ties keep declaration order.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// topoOrder is Kahn's algorithm over declaration indices. When nodes remain
// unvisited it reports one of the cycles among them.
func (g *Graph) topoOrder() ([]string, error) {
	indeg := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n.index] = len(n.deps)
	}

	var ready []int
	for _, n := range g.nodes {
		if indeg[n.index] == 0 {
			ready = append(ready, n.index)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		n := g.nodes[i]
		order = append(order, n.name)
		for _, d := range n.dependents {
			indeg[d.index]--
			if indeg[d.index] == 0 {
				ready = append(ready, d.index)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, cycleError(g.findCycle(indeg))
	}
	return order, nil
}

// findCycle walks dependencies from a node left with a positive in-degree
// until a node repeats.
func (g *Graph) findCycle(indeg []int) []string {
	var start *node
	for _, n := range g.nodes {
		if indeg[n.index] > 0 {
			start = n
			break
		}
	}

	pos := make(map[*node]int)
	var path []*node
	for n := start; ; {
		if at, ok := pos[n]; ok {
			names := make([]string, 0, len(path)-at+1)
			for _, p := range path[at:] {
				names = append(names, p.name)
			}
			return append(names, n.name)
		}
		pos[n] = len(path)
		path = append(path, n)
		for _, d := range n.deps {
			if indeg[d.index] > 0 {
				n = d
				break
			}
		}
	}
}
