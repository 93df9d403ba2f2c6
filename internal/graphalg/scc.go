package graphalg

// StronglyConnectedComponents returns the strongly connected components
// of the graph using Tarjan's algorithm. Each component lists its
// vertices in pop order off the component stack.
//
// The traversal keeps its own frame stack instead of recursing, so
// graphs deeper than the native stack are handled without overflow.
func StronglyConnectedComponents(a *Adjacency) [][]int64 {
	index := 0
	indices := make(map[int64]int, a.NumVertices())
	lowlink := make(map[int64]int, a.NumVertices())
	onStack := make(map[int64]bool)
	var stack []int64
	var comps [][]int64

	type frame struct {
		v      int64
		cursor int
	}

	for _, root := range a.Vertices() {
		if _, seen := indices[root]; seen {
			continue
		}

		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true
		frames := []frame{{v: root}}

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			arcs := a.Out[f.v]

			if f.cursor < len(arcs) {
				w := arcs[f.cursor].To
				f.cursor++
				if _, seen := indices[w]; !seen {
					indices[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{v: w})
				} else if onStack[w] && indices[w] < lowlink[f.v] {
					lowlink[f.v] = indices[w]
				}
				continue
			}

			// All successors visited: fold lowlink into the parent and
			// emit a component if v is its root.
			v := f.v
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				p := &frames[len(frames)-1]
				if lowlink[v] < lowlink[p.v] {
					lowlink[p.v] = lowlink[v]
				}
			}

			if lowlink[v] == indices[v] {
				var comp []int64
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				comps = append(comps, comp)
			}
		}
	}

	return comps
}
