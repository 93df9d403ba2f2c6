package graphalg

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func buildAdjacency(edges [][2]int64) *Adjacency {
	a := NewAdjacency()
	for i, e := range edges {
		a.AddArc(e[0], e[1], i, 0)
	}
	return a
}

func TestAdjacencyVerticesSorted(t *testing.T) {
	a := buildAdjacency([][2]int64{{5, 1}, {3, 5}, {1, 2}})
	got := a.Vertices()
	want := []int64{1, 2, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected vertices %v, got %v", want, got)
	}

	a.AddVertex(4)
	got = a.Vertices()
	want = []int64{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected vertices %v after AddVertex, got %v", want, got)
	}
}

func TestTopologicalSortLinear(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 4}})
	order, err := TopologicalSort(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{1, 2, 3, 4}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestTopologicalSortTieBreak(t *testing.T) {
	// 10 -> {3, 1, 7}: the three sinks become ready together and must
	// come out in ascending id order.
	a := buildAdjacency([][2]int64{{10, 3}, {10, 1}, {10, 7}})
	order, err := TopologicalSort(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{10, 1, 3, 7}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 1}})
	if _, err := TopologicalSort(a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	if IsDAG(a) {
		t.Error("expected IsDAG false for cyclic graph")
	}
}

func TestHasCycleAcyclic(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {1, 3}, {2, 4}, {3, 4}})
	found, count := HasCycle(a, 0)
	if found {
		t.Errorf("expected no cycle, got count %d", count)
	}
}

func TestHasCycleSelfLoop(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 1}})
	found, count := HasCycle(a, 0)
	if !found || count == 0 {
		t.Errorf("expected self-loop detected, got found=%v count=%d", found, count)
	}
}

func TestHasCycleLimit(t *testing.T) {
	// Many independent 2-cycles; the count must stop at the limit.
	a := NewAdjacency()
	for i := int64(0); i < 20; i++ {
		a.AddArc(i*2, i*2+1, 0, 0)
		a.AddArc(i*2+1, i*2, 0, 0)
	}
	found, count := HasCycle(a, 5)
	if !found {
		t.Fatal("expected cycles found")
	}
	if count != 5 {
		t.Errorf("expected count capped at 5, got %d", count)
	}
}

func TestStronglyConnectedComponents(t *testing.T) {
	// {1,2,3} is one component, 4 and 5 are singletons.
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 1}, {3, 4}, {4, 5}})
	comps := StronglyConnectedComponents(a)
	if len(comps) != 3 {
		t.Fatalf("expected 3 components, got %d: %v", len(comps), comps)
	}

	var sizes []int
	var big []int64
	for _, c := range comps {
		sizes = append(sizes, len(c))
		if len(c) == 3 {
			big = append([]int64(nil), c...)
		}
	}
	sort.Ints(sizes)
	if !reflect.DeepEqual(sizes, []int{1, 1, 3}) {
		t.Errorf("expected component sizes [1 1 3], got %v", sizes)
	}
	sort.Slice(big, func(i, j int) bool { return big[i] < big[j] })
	if !reflect.DeepEqual(big, []int64{1, 2, 3}) {
		t.Errorf("expected component {1,2,3}, got %v", big)
	}
}

func TestSampleCyclesFindsShortCycle(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 1}, {3, 4}})
	cycles := SampleCycles(a, SampleOptions{Starts: []int64{1}})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	got := append([]int64(nil), cycles[0]...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("expected cycle over {1,2,3}, got %v", cycles[0])
	}
}

func TestSampleCyclesDeduplicates(t *testing.T) {
	// Same cycle reachable from every vertex on it; must appear once.
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 1}})
	cycles := SampleCycles(a, SampleOptions{Starts: []int64{1, 2, 3}})
	if len(cycles) != 1 {
		t.Errorf("expected 1 deduplicated cycle, got %d: %v", len(cycles), cycles)
	}
}

func TestSampleCyclesRespectsDepth(t *testing.T) {
	// A 6-vertex ring is invisible with MaxDepth 3.
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 6}, {6, 1}})
	cycles := SampleCycles(a, SampleOptions{Starts: []int64{1}, MaxDepth: 3})
	if len(cycles) != 0 {
		t.Errorf("expected no cycles within depth 3, got %v", cycles)
	}
	cycles = SampleCycles(a, SampleOptions{Starts: []int64{1}})
	if len(cycles) != 1 {
		t.Errorf("expected the ring found at default depth, got %v", cycles)
	}
}

func TestSampleCyclesAcyclic(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {2, 3}})
	if cycles := SampleCycles(a, SampleOptions{}); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestCriticalPath(t *testing.T) {
	// 1 -(3)-> 2 -(4)-> 4 and 1 -(2)-> 3 -(1)-> 4: longest is 1,2,4 = 7.
	a := NewAdjacency()
	a.AddArc(1, 2, 0, 3)
	a.AddArc(2, 4, 1, 4)
	a.AddArc(1, 3, 2, 2)
	a.AddArc(3, 4, 3, 1)

	total, path, err := CriticalPath(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7 {
		t.Errorf("expected total 7, got %d", total)
	}
	if !reflect.DeepEqual(path, []int64{1, 2, 4}) {
		t.Errorf("expected path [1 2 4], got %v", path)
	}
}

func TestCriticalPathEmpty(t *testing.T) {
	total, path, err := CriticalPath(NewAdjacency())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || path != nil {
		t.Errorf("expected zero result for empty graph, got %d %v", total, path)
	}
}

func TestCriticalPathCycle(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {2, 1}})
	if _, _, err := CriticalPath(a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestShortestPathBFS(t *testing.T) {
	// Two routes 1 -> 4; the 2-hop one wins regardless of weights.
	a := NewAdjacency()
	a.AddArc(1, 2, 0, 100)
	a.AddArc(2, 4, 1, 100)
	a.AddArc(1, 3, 2, 1)
	a.AddArc(3, 5, 3, 1)
	a.AddArc(5, 4, 4, 1)

	total, path, ok := ShortestPath(a, 1, 4, false)
	if !ok {
		t.Fatal("expected path found")
	}
	if total != 2 {
		t.Errorf("expected 2 hops, got %d", total)
	}
	if !reflect.DeepEqual(path, []int64{1, 2, 4}) {
		t.Errorf("expected path [1 2 4], got %v", path)
	}
}

func TestShortestPathDijkstra(t *testing.T) {
	// Same graph weighted: the 3-hop route costs 3 versus 200.
	a := NewAdjacency()
	a.AddArc(1, 2, 0, 100)
	a.AddArc(2, 4, 1, 100)
	a.AddArc(1, 3, 2, 1)
	a.AddArc(3, 5, 3, 1)
	a.AddArc(5, 4, 4, 1)

	total, path, ok := ShortestPath(a, 1, 4, true)
	if !ok {
		t.Fatal("expected path found")
	}
	if total != 3 {
		t.Errorf("expected cost 3, got %d", total)
	}
	if !reflect.DeepEqual(path, []int64{1, 3, 5, 4}) {
		t.Errorf("expected path [1 3 5 4], got %v", path)
	}
}

func TestShortestPathTrivial(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}})
	total, path, ok := ShortestPath(a, 1, 1, true)
	if !ok || total != 0 || !reflect.DeepEqual(path, []int64{1}) {
		t.Errorf("expected (0, [1], true), got (%d, %v, %v)", total, path, ok)
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	a := buildAdjacency([][2]int64{{1, 2}, {3, 4}})
	if _, _, ok := ShortestPath(a, 1, 4, false); ok {
		t.Error("expected no path from 1 to 4")
	}
	if _, _, ok := ShortestPath(a, 1, 99, false); ok {
		t.Error("expected no path to unknown vertex")
	}
}
