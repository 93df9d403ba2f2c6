// Package taskgraph maintains the in-memory dependency graph for one
// project. Tasks are nodes, directed edges run from a prerequisite to the
// task it unblocks, and every mutation preserves the no-cycle invariant.
package taskgraph

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"taskgrid/internal/graphalg"
	"taskgrid/pkg/models"
)

var (
	// ErrTaskNotFound indicates an operation referenced a task that is
	// not in the graph.
	ErrTaskNotFound = errors.New("task not in graph")
	// ErrSelfDependency indicates an edge from a task to itself.
	ErrSelfDependency = errors.New("task cannot depend on itself")
	// ErrDuplicateDependency indicates the edge already exists.
	ErrDuplicateDependency = errors.New("dependency already exists")
	// ErrWouldCreateCycle indicates the edge would close a cycle.
	ErrWouldCreateCycle = errors.New("dependency would create a cycle")
)

// Graph is the dependency graph for a single project. Edges point from
// source (the prerequisite) to target (the dependent task). All methods
// are safe for concurrent use.
type Graph struct {
	mu sync.RWMutex
	// status maps task ID to its current status.
	status map[string]models.Status
	// out maps source task ID to the targets it unblocks.
	out map[string][]string
	// in maps target task ID to the sources it waits on.
	in map[string][]string

	logger *zap.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		status: make(map[string]models.Status),
		out:    make(map[string][]string),
		in:     make(map[string][]string),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddTask registers a task node with its current status. Re-adding an
// existing task just updates the status.
func (g *Graph) AddTask(id string, status models.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[id] = status
}

// SetStatus updates a task's status. Returns ErrTaskNotFound for an
// unknown task.
func (g *Graph) SetStatus(id string, status models.Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.status[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	g.status[id] = status
	return nil
}

// HasTask reports whether the task is in the graph.
func (g *Graph) HasTask(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.status[id]
	return ok
}

// Size returns the number of task nodes.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.status)
}

// AddDependency adds the edge source -> target. It rejects self edges,
// duplicates, unknown tasks, and any edge that would close a cycle.
func (g *Graph) AddDependency(source, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if source == target {
		return fmt.Errorf("%w: %s", ErrSelfDependency, source)
	}
	if _, ok := g.status[source]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, source)
	}
	if _, ok := g.status[target]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, target)
	}
	for _, t := range g.out[source] {
		if t == target {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateDependency, source, target)
		}
	}
	// The new edge closes a cycle exactly when source is already
	// reachable from target.
	if g.reachableLocked(target, source) {
		g.logger.Debug("rejected dependency",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(ErrWouldCreateCycle))
		return fmt.Errorf("%w: %s -> %s", ErrWouldCreateCycle, source, target)
	}

	g.out[source] = append(g.out[source], target)
	g.in[target] = append(g.in[target], source)
	return nil
}

// reachableLocked reports whether to is reachable from from by following
// out edges. Iterative DFS; the caller holds the lock.
func (g *Graph) reachableLocked(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]struct{}{from: {}}
	stack := []string{from}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, w := range g.out[v] {
			if w == to {
				return true
			}
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				stack = append(stack, w)
			}
		}
	}
	return false
}

// RemoveDependency removes the edge source -> target. Returns
// ErrTaskNotFound when the edge does not exist.
func (g *Graph) RemoveDependency(source, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	found := false
	g.out[source], found = remove(g.out[source], target)
	if !found {
		return fmt.Errorf("dependency %s -> %s not found", source, target)
	}
	g.in[target], _ = remove(g.in[target], source)
	return nil
}

// RemoveTask deletes a task node and every edge touching it.
func (g *Graph) RemoveTask(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, t := range g.out[id] {
		g.in[t], _ = remove(g.in[t], id)
	}
	for _, s := range g.in[id] {
		g.out[s], _ = remove(g.out[s], id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.status, id)
}

func remove(list []string, v string) ([]string, bool) {
	for i, x := range list {
		if x == v {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

// Incoming returns the prerequisite task IDs of target, in edge
// insertion order.
func (g *Graph) Incoming(target string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.in[target]...)
}

// Outgoing returns the task IDs that source unblocks, in edge insertion
// order.
func (g *Graph) Outgoing(source string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.out[source]...)
}

// IsReady reports whether the task can be started: it must be in todo
// status and every prerequisite must be completed. Unknown tasks are
// never ready.
func (g *Graph) IsReady(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	status, ok := g.status[id]
	if !ok || status != models.StatusTodo {
		return false
	}
	for _, src := range g.in[id] {
		if g.status[src] != models.StatusCompleted {
			return false
		}
	}
	return true
}

// ReadyTasks returns the IDs of every task that IsReady, in unspecified
// order.
func (g *Graph) ReadyTasks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for id, status := range g.status {
		if status != models.StatusTodo {
			continue
		}
		ok := true
		for _, src := range g.in[id] {
			if g.status[src] != models.StatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

// Adjacency exports the graph for the algorithms in graphalg. Task IDs
// are mapped to dense int64 vertices in first-seen order; the returned
// slice translates a vertex back to its task ID.
func (g *Graph) Adjacency() (*graphalg.Adjacency, []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj := graphalg.NewAdjacency()
	ids := make([]string, 0, len(g.status))
	index := make(map[string]int64, len(g.status))

	vertex := func(id string) int64 {
		if v, ok := index[id]; ok {
			return v
		}
		v := int64(len(ids))
		index[id] = v
		ids = append(ids, id)
		return v
	}

	for id := range g.status {
		adj.AddVertex(vertex(id))
	}
	edge := 0
	for src, targets := range g.out {
		for _, dst := range targets {
			adj.AddArc(vertex(src), vertex(dst), edge, 0)
			edge++
		}
	}
	return adj, ids
}
