// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()

	order, err := New[string]().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_Orders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(g *Graph[string])
		want  []string
	}{
		{
			name: "single node",
			build: func(g *Graph[string]) {
				g.AddNode("sodium")
			},
			want: []string{"sodium"},
		},
		{
			name: "chain",
			build: func(g *Graph[string]) {
				g.AddEdge("fabric-api", "sodium")
				g.AddEdge("sodium", "iris")
			},
			want: []string{"fabric-api", "sodium", "iris"},
		},
		{
			// Edges point from a dependency to the package that pulled it in.
			name: "provenance tree keeps discovery order among ready nodes",
			build: func(g *Graph[string]) {
				for _, n := range []string{"modpack", "sodium", "lithium", "fabric-api"} {
					g.AddNode(n)
				}
				g.AddEdge("sodium", "modpack")
				g.AddEdge("lithium", "modpack")
				g.AddEdge("fabric-api", "sodium")
			},
			want: []string{"lithium", "fabric-api", "sodium", "modpack"},
		},
		{
			name: "duplicate edges",
			build: func(g *Graph[string]) {
				g.AddEdge("a", "b")
				g.AddEdge("a", "b")
			},
			want: []string{"a", "b"},
		},
		{
			name: "re-adding a node keeps its position",
			build: func(g *Graph[string]) {
				g.AddNode("x")
				g.AddNode("y")
				g.AddNode("x")
			},
			want: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New[string]()
			tt.build(g)
			order, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(order, tt.want) {
				t.Errorf("TopologicalSort() = %v, want %v", order, tt.want)
			}
			if g.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", g.Len(), len(tt.want))
			}
		})
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()

	g := New[int]()
	g.AddEdge(1, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 4)
	g.AddEdge(3, 4)

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []int{1, 2, 3, 4}) {
		t.Errorf("TopologicalSort() = %v", order)
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		edges    [][2]string
		minCycle int
	}{
		{name: "self loop", edges: [][2]string{{"a", "a"}}, minCycle: 1},
		{name: "two nodes", edges: [][2]string{{"a", "b"}, {"b", "a"}}, minCycle: 2},
		{name: "three nodes", edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, minCycle: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New[string]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if len(cycleErr.Cycle) < tt.minCycle {
				t.Errorf("Cycle = %v, want at least %d nodes", cycleErr.Cycle, tt.minCycle)
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()

	err := &CycleError{Cycle: []string{"a", "b", "c"}}
	if got, want := err.Error(), "dependency cycle detected: a -> b -> c"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
