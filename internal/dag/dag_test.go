package dag

import "testing"

func TestGraphTopologicalSort(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id)
	}
	g.AddEdge("a", "b") // b depends on a
	g.AddEdge("b", "c") // c depends on b

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] >= pos["b"] || pos["b"] >= pos["c"] {
		t.Fatalf("expected order a, b, c; got %v", order)
	}
}

func TestGraphDetectsCycle(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b"} {
		g.AddNode(id)
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	has, cycle := g.HasCycle()
	if !has {
		t.Fatal("expected cycle to be detected")
	}
	if len(cycle) == 0 {
		t.Fatal("expected a non-empty cycle path")
	}

	if _, err := g.TopologicalSort(); err == nil {
		t.Fatal("expected TopologicalSort to fail on a cyclic graph")
	}
}

func TestGraphIgnoresEdgesToUnknownNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddEdge("missing", "a")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected [a], got %v", order)
	}
}

func TestGraphSelfLoopIgnored(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddEdge("a", "a")

	has, _ := g.HasCycle()
	if has {
		t.Fatal("self-loop should be ignored, not reported as a cycle")
	}
}
