// Package graphalg provides stateless algorithms over directed graphs:
// topological sort, strongly connected components, cycle detection and
// sampling, critical path and shortest path. All traversals run with
// explicit stacks so very large graphs cannot overflow the native stack.
package graphalg

import "sort"

// Arc is one directed edge as seen from a vertex: the neighbor, the index
// of the underlying edge record, and the edge weight (0 when the graph is
// unweighted).
type Arc struct {
	To     int64
	Edge   int
	Weight int64
}

// Adjacency is a materialized view of a directed graph. Producers
// (the binary edge store, the task graph) build it once; the algorithms
// in this package never mutate it.
type Adjacency struct {
	// Out maps vertex -> outgoing arcs in insertion order.
	Out map[int64][]Arc
	// In maps vertex -> incoming arcs in insertion order; Arc.To holds
	// the source vertex.
	In map[int64][]Arc

	verts  map[int64]struct{}
	sorted []int64
}

// NewAdjacency returns an empty adjacency view.
func NewAdjacency() *Adjacency {
	return &Adjacency{
		Out:   make(map[int64][]Arc),
		In:    make(map[int64][]Arc),
		verts: make(map[int64]struct{}),
	}
}

// AddArc records the directed edge src -> dst with the given edge index
// and weight, registering both endpoints as vertices.
func (a *Adjacency) AddArc(src, dst int64, edge int, weight int64) {
	a.addVert(src)
	a.addVert(dst)
	a.Out[src] = append(a.Out[src], Arc{To: dst, Edge: edge, Weight: weight})
	a.In[dst] = append(a.In[dst], Arc{To: src, Edge: edge, Weight: weight})
}

// AddVertex registers an isolated vertex.
func (a *Adjacency) AddVertex(v int64) {
	a.addVert(v)
}

func (a *Adjacency) addVert(v int64) {
	if _, ok := a.verts[v]; ok {
		return
	}
	a.verts[v] = struct{}{}
	a.sorted = nil
}

// HasVertex reports whether v belongs to the vertex set.
func (a *Adjacency) HasVertex(v int64) bool {
	_, ok := a.verts[v]
	return ok
}

// Vertices returns the vertex set in ascending order. The sorted slice is
// cached until the next mutation; callers must not modify it.
func (a *Adjacency) Vertices() []int64 {
	if a.sorted == nil {
		a.sorted = make([]int64, 0, len(a.verts))
		for v := range a.verts {
			a.sorted = append(a.sorted, v)
		}
		sort.Slice(a.sorted, func(i, j int) bool { return a.sorted[i] < a.sorted[j] })
	}
	return a.sorted
}

// NumVertices returns the size of the vertex set.
func (a *Adjacency) NumVertices() int {
	return len(a.verts)
}
