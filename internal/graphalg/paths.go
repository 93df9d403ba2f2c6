package graphalg

import (
	"container/heap"
	"fmt"
)

// CriticalPath returns the longest weighted path through the DAG and its
// total weight, computed by relaxation in topological order. An empty
// graph yields (0, nil, nil); a cyclic graph yields ErrCycle.
func CriticalPath(a *Adjacency) (int64, []int64, error) {
	order, err := TopologicalSort(a)
	if err != nil {
		return 0, nil, fmt.Errorf("critical path: %w", err)
	}
	if len(order) == 0 {
		return 0, nil, nil
	}

	dist := make(map[int64]int64, len(order))
	prev := make(map[int64]int64, len(order))
	hasPrev := make(map[int64]bool, len(order))

	for _, v := range order {
		for _, arc := range a.Out[v] {
			if cand := dist[v] + arc.Weight; cand > dist[arc.To] {
				dist[arc.To] = cand
				prev[arc.To] = v
				hasPrev[arc.To] = true
			}
		}
	}

	end := order[0]
	for _, v := range order[1:] {
		if dist[v] > dist[end] {
			end = v
		}
	}

	var path []int64
	for v := end; ; {
		path = append(path, v)
		if !hasPrev[v] {
			break
		}
		v = prev[v]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return dist[end], path, nil
}

// distHeap orders (vertex, distance) pairs by distance, vertex id as the
// tie-break.
type distItem struct {
	v    int64
	dist int64
}

type distHeap []distItem

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].v < h[j].v
}
func (h distHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *distHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// ShortestPath finds a minimum path from source to target: hop count via
// BFS when weighted is false, total weight via Dijkstra when true. It
// returns the total, the vertex path, and whether a path exists. The
// trivial source == target case yields (0, [source], true).
func ShortestPath(a *Adjacency, source, target int64, weighted bool) (int64, []int64, bool) {
	if !a.HasVertex(source) || !a.HasVertex(target) {
		return 0, nil, false
	}
	if source == target {
		return 0, []int64{source}, true
	}
	if weighted {
		return dijkstra(a, source, target)
	}
	return bfs(a, source, target)
}

func bfs(a *Adjacency, source, target int64) (int64, []int64, bool) {
	prev := map[int64]int64{}
	seen := map[int64]struct{}{source: {}}
	queue := []int64{source}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, arc := range a.Out[v] {
			if _, ok := seen[arc.To]; ok {
				continue
			}
			seen[arc.To] = struct{}{}
			prev[arc.To] = v
			if arc.To == target {
				path := rebuild(prev, source, target)
				return int64(len(path) - 1), path, true
			}
			queue = append(queue, arc.To)
		}
	}
	return 0, nil, false
}

func dijkstra(a *Adjacency, source, target int64) (int64, []int64, bool) {
	dist := map[int64]int64{source: 0}
	prev := map[int64]int64{}
	done := map[int64]struct{}{}

	pq := &distHeap{{v: source}}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(distItem)
		if _, ok := done[it.v]; ok {
			continue
		}
		done[it.v] = struct{}{}
		if it.v == target {
			return it.dist, rebuild(prev, source, target), true
		}
		for _, arc := range a.Out[it.v] {
			cand := it.dist + arc.Weight
			if d, seen := dist[arc.To]; !seen || cand < d {
				dist[arc.To] = cand
				prev[arc.To] = it.v
				heap.Push(pq, distItem{v: arc.To, dist: cand})
			}
		}
	}
	return 0, nil, false
}

func rebuild(prev map[int64]int64, source, target int64) []int64 {
	var path []int64
	for v := target; ; v = prev[v] {
		path = append(path, v)
		if v == source {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
