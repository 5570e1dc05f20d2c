// SPDX-License-Identifier: MPL-2.0

// Package dag orders the nodes of a directed graph so that every node comes
// after the nodes it points away from. The resolver uses it to put packages
// after the packages they were pulled in by.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError struct {
		// Cycle holds the nodes left with unresolved incoming edges, in
		// insertion order. It contains at least one full cycle.
		Cycle []string
	}

	// Graph is a directed graph over comparable keys. An edge from A to B
	// means A is ordered before B.
	Graph[K comparable] struct {
		adjacency map[K][]K
		// nodes keeps insertion order for deterministic output.
		nodes   []K
		nodeSet map[K]struct{}
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		adjacency: make(map[K][]K),
		nodeSet:   make(map[K]struct{}),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op and
// does not change its position.
func (g *Graph[K]) AddNode(node K) {
	if _, ok := g.nodeSet[node]; ok {
		return
	}
	g.nodeSet[node] = struct{}{}
	g.nodes = append(g.nodes, node)
}

// AddEdge adds an edge from -> to, ordering from before to. Missing nodes
// are added, from first.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns the nodes in an order that respects every edge,
// using Kahn's algorithm. Nodes that become ready at the same time keep
// their insertion order. Returns *CycleError if the graph has a cycle.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[K]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]K, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]K, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, fmt.Sprint(node))
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}

	return result, nil
}
