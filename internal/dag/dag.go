// Package dag provides dependency-ordering for warehouse models.
//
// The lineage tracer processes each model independently, but diagnostics and
// logs read better when models are visited in a stable, dependency-respecting
// order rather than map iteration order. Graph gives the pipeline that order
// and, as a side effect, detects the dependency cycles a manifest can contain
// (the tracer works within one model's SQL and never follows a `ref()` into
// another model, so it does not see such a cycle).
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph of model keys, edges pointing from a dependency
// to the model that depends on it.
type Graph struct {
	nodes   map[string]struct{}
	parents map[string][]string // child -> its dependencies
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]struct{}),
		parents: make(map[string][]string),
	}
}

// AddNode registers a node. Adding the same id twice is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = struct{}{}
		g.parents[id] = nil
	}
}

// AddEdge records that child depends on parent. Both nodes must already
// exist; an edge to/from an unknown node is ignored rather than erroring,
// since dependencies that fall outside the loaded catalog are common (a
// manifest node can depend on something the catalog loader skipped).
func (g *Graph) AddEdge(parent, child string) {
	if _, ok := g.nodes[parent]; !ok {
		return
	}
	if _, ok := g.nodes[child]; !ok {
		return
	}
	if parent == child {
		return
	}
	for _, p := range g.parents[child] {
		if p == parent {
			return
		}
	}
	g.parents[child] = append(g.parents[child], parent)
}

// HasCycle reports whether the graph contains a dependency cycle, returning
// one example cycle (as a sequence of node ids) when it does.
func (g *Graph) HasCycle() (bool, []string) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))

	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range g.parents[id] {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Found the back-edge; extract the cycle from the stack.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				cycle = append([]string{}, stack[start:]...)
				cycle = append(cycle, dep)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.sortedIDs() {
		if color[id] == white {
			if visit(id) {
				return true, cycle
			}
		}
	}
	return false, nil
}

// TopologicalSort returns node ids ordered so every node follows all of its
// dependencies. Ties are broken lexically for determinism. Returns an error
// if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if has, cycle := g.HasCycle(); has {
		return nil, fmt.Errorf("dag: dependency cycle detected: %v", cycle)
	}

	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.parents[id] {
			visit(dep)
		}
		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}
