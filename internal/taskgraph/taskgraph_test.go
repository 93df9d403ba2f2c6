package taskgraph

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"taskgrid/pkg/models"
)

func newGraph(tasks ...string) *Graph {
	g := New()
	for _, id := range tasks {
		g.AddTask(id, models.StatusTodo)
	}
	return g
}

func TestAddDependency(t *testing.T) {
	g := newGraph("a", "b", "c")

	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("b", "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := g.Incoming("c"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected incoming [b], got %v", got)
	}
	if got := g.Outgoing("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected outgoing [b], got %v", got)
	}
}

func TestAddDependencySelf(t *testing.T) {
	g := newGraph("a")
	if err := g.AddDependency("a", "a"); !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestAddDependencyDuplicate(t *testing.T) {
	g := newGraph("a", "b")
	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("a", "b"); !errors.Is(err, ErrDuplicateDependency) {
		t.Errorf("expected ErrDuplicateDependency, got %v", err)
	}
}

func TestAddDependencyUnknownTask(t *testing.T) {
	g := newGraph("a")
	if err := g.AddDependency("a", "ghost"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if err := g.AddDependency("ghost", "a"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAddDependencyDirectCycle(t *testing.T) {
	g := newGraph("a", "b")
	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("b", "a"); !errors.Is(err, ErrWouldCreateCycle) {
		t.Errorf("expected ErrWouldCreateCycle, got %v", err)
	}
}

func TestAddDependencyTransitiveCycle(t *testing.T) {
	g := newGraph("a", "b", "c", "d")
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		if err := g.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := g.AddDependency("d", "a"); !errors.Is(err, ErrWouldCreateCycle) {
		t.Errorf("expected ErrWouldCreateCycle, got %v", err)
	}
	// A diamond is fine: a -> d directly alongside the chain.
	if err := g.AddDependency("a", "d"); err != nil {
		t.Errorf("unexpected error for diamond edge: %v", err)
	}
}

func TestRemoveDependency(t *testing.T) {
	g := newGraph("a", "b")
	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.RemoveDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.Incoming("b"); len(got) != 0 {
		t.Errorf("expected no incoming edges, got %v", got)
	}
	if err := g.RemoveDependency("a", "b"); err == nil {
		t.Error("expected error removing missing edge")
	}
	// Removing the edge reopens the reverse direction.
	if err := g.AddDependency("b", "a"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRemoveTask(t *testing.T) {
	g := newGraph("a", "b", "c")
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		if err := g.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	g.RemoveTask("b")
	if g.HasTask("b") {
		t.Error("expected b removed")
	}
	if got := g.Outgoing("a"); len(got) != 0 {
		t.Errorf("expected a to have no outgoing edges, got %v", got)
	}
	if got := g.Incoming("c"); len(got) != 0 {
		t.Errorf("expected c to have no incoming edges, got %v", got)
	}
	if g.Size() != 2 {
		t.Errorf("expected size 2, got %d", g.Size())
	}
}

func TestIsReady(t *testing.T) {
	g := newGraph("a", "b", "c")
	for _, e := range [][2]string{{"a", "c"}, {"b", "c"}} {
		if err := g.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// No prerequisites: ready while in todo.
	if !g.IsReady("a") {
		t.Error("expected a ready")
	}
	// c waits on a and b.
	if g.IsReady("c") {
		t.Error("expected c not ready")
	}

	if err := g.SetStatus("a", models.StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.IsReady("c") {
		t.Error("expected c not ready with one prerequisite open")
	}

	if err := g.SetStatus("b", models.StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsReady("c") {
		t.Error("expected c ready with all prerequisites completed")
	}

	// A task already underway is not ready even when unblocked.
	if err := g.SetStatus("c", models.StatusInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.IsReady("c") {
		t.Error("expected in-progress task not ready")
	}

	if g.IsReady("ghost") {
		t.Error("expected unknown task not ready")
	}
}

func TestReadyTasks(t *testing.T) {
	g := newGraph("a", "b", "c")
	if err := g.AddDependency("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := g.ReadyTasks()
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("expected ready [a c], got %v", got)
	}
}

func TestAdjacencyExport(t *testing.T) {
	g := newGraph("a", "b", "c")
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		if err := g.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	adj, ids := g.Adjacency()
	if adj.NumVertices() != 3 || len(ids) != 3 {
		t.Fatalf("expected 3 vertices, got %d and %d ids", adj.NumVertices(), len(ids))
	}

	index := make(map[string]int64)
	for v, id := range ids {
		index[id] = int64(v)
	}
	out := adj.Out[index["a"]]
	if len(out) != 1 || ids[out[0].To] != "b" {
		t.Errorf("expected a -> b in export, got %+v", out)
	}
	out = adj.Out[index["b"]]
	if len(out) != 1 || ids[out[0].To] != "c" {
		t.Errorf("expected b -> c in export, got %+v", out)
	}
}
