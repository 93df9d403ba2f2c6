package graphalg

import (
	"math/rand"
	"sort"
)

// DefaultCycleLimit caps the approximate back-edge count reported by
// HasCycle when the caller passes limit <= 0.
const DefaultCycleLimit = 100

// HasCycle detects cycles with an iterative three-colour depth-first
// search (unvisited / on-stack / done). It returns whether a cycle
// exists and an approximate count of back edges, capped at limit.
func HasCycle(a *Adjacency, limit int) (bool, int) {
	if limit <= 0 {
		limit = DefaultCycleLimit
	}

	// 0 = unvisited, 1 = on the DFS stack, 2 = done.
	state := make(map[int64]int, a.NumVertices())
	count := 0
	found := false

	type frame struct {
		v      int64
		cursor int
	}

	for _, start := range a.Vertices() {
		if state[start] != 0 {
			continue
		}

		frames := []frame{{v: start}}
		state[start] = 1

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			arcs := a.Out[f.v]

			if f.cursor < len(arcs) {
				w := arcs[f.cursor].To
				f.cursor++
				switch state[w] {
				case 1:
					// Back edge to a vertex on the stack.
					found = true
					count++
					if count >= limit {
						return true, count
					}
				case 0:
					state[w] = 1
					frames = append(frames, frame{v: w})
				}
				continue
			}

			state[f.v] = 2
			frames = frames[:len(frames)-1]
		}
	}

	return found, count
}

// SampleOptions tunes SampleCycles. Zero values select the defaults.
type SampleOptions struct {
	// MaxCycles bounds the number of cycles returned (default 10).
	MaxCycles int
	// MaxDepth bounds the DFS path length (default 20).
	MaxDepth int
	// MaxStarts bounds the sampled starting-vertex set (default 100).
	MaxStarts int
	// Starts pins the starting vertices instead of sampling; unknown
	// vertices are dropped.
	Starts []int64
	// Rand is the sampling source; a fixed-seed source is used when nil
	// so repeated runs see the same sample.
	Rand *rand.Rand
}

// SampleCycles enumerates up to MaxCycles short cycles by bounded DFS
// from a sampled (or caller-chosen) starting-vertex set. Enumeration is
// best-effort: the depth and start-set caps mean cycles can be missed.
// Cycles visiting the same vertex set are reported once.
func SampleCycles(a *Adjacency, opts SampleOptions) [][]int64 {
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = 10
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 20
	}
	if opts.MaxStarts <= 0 {
		opts.MaxStarts = 100
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}

	verts := a.Vertices()
	var starts []int64
	if len(opts.Starts) > 0 {
		for _, v := range opts.Starts {
			if a.HasVertex(v) {
				starts = append(starts, v)
			}
		}
	} else {
		starts = append(starts, verts...)
		opts.Rand.Shuffle(len(starts), func(i, j int) {
			starts[i], starts[j] = starts[j], starts[i]
		})
		if len(starts) > opts.MaxStarts {
			starts = starts[:opts.MaxStarts]
		}
	}

	var cycles [][]int64
	seen := make(map[string]struct{})

	type frame struct {
		v    int64
		path []int64
	}

	for _, start := range starts {
		if len(cycles) >= opts.MaxCycles {
			break
		}

		stack := []frame{{v: start, path: []int64{start}}}
		visited := map[int64]struct{}{start: {}}

		for len(stack) > 0 && len(cycles) < opts.MaxCycles {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if len(f.path) > opts.MaxDepth {
				continue
			}

			for _, arc := range a.Out[f.v] {
				if arc.To == start && len(f.path) > 1 {
					key := cycleKey(f.path)
					if _, dup := seen[key]; !dup {
						seen[key] = struct{}{}
						cycles = append(cycles, append([]int64(nil), f.path...))
					}
					break
				}

				if _, onPath := visited[arc.To]; !onPath {
					visited[arc.To] = struct{}{}
					next := make([]int64, len(f.path)+1)
					copy(next, f.path)
					next[len(f.path)] = arc.To
					stack = append(stack, frame{v: arc.To, path: next})
				}
			}
		}
	}

	return cycles
}

// cycleKey builds a duplicate-suppression key from the sorted vertex set
// of a path.
func cycleKey(path []int64) string {
	set := make(map[int64]struct{}, len(path))
	for _, v := range path {
		set[v] = struct{}{}
	}
	uniq := make([]int64, 0, len(set))
	for v := range set {
		uniq = append(uniq, v)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	key := make([]byte, 0, len(uniq)*9)
	for _, v := range uniq {
		for shift := 0; shift < 64; shift += 8 {
			key = append(key, byte(v>>shift))
		}
		key = append(key, ',')
	}
	return string(key)
}
