package graphalg

import (
	"container/heap"
	"errors"
)

// ErrCycle indicates the graph is not a DAG.
var ErrCycle = errors.New("graph contains a cycle")

// int64Heap is a min-heap of vertex ids, used to break ties in natural
// vertex order during Kahn's algorithm.
type int64Heap []int64

func (h int64Heap) Len() int            { return len(h) }
func (h int64Heap) Less(i, j int) bool  { return h[i] < h[j] }
func (h int64Heap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *int64Heap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *int64Heap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopologicalSort orders vertices so every edge points forward, using
// Kahn's algorithm. Vertices that become ready at the same time are
// emitted in ascending id order. Returns ErrCycle if the graph is cyclic.
func TopologicalSort(a *Adjacency) ([]int64, error) {
	verts := a.Vertices()

	indeg := make(map[int64]int, len(verts))
	ready := &int64Heap{}
	for _, v := range verts {
		indeg[v] = len(a.In[v])
		if indeg[v] == 0 {
			heap.Push(ready, v)
		}
	}

	order := make([]int64, 0, len(verts))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int64)
		order = append(order, v)
		for _, arc := range a.Out[v] {
			indeg[arc.To]--
			if indeg[arc.To] == 0 {
				heap.Push(ready, arc.To)
			}
		}
	}

	if len(order) != len(verts) {
		return nil, ErrCycle
	}
	return order, nil
}

// IsDAG reports whether the graph is acyclic.
func IsDAG(a *Adjacency) bool {
	_, err := TopologicalSort(a)
	return err == nil
}
