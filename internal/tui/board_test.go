package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskgrid/internal/engine"
	"taskgrid/pkg/models"
)

func testSnapshot() *engine.GraphSnapshot {
	return &engine.GraphSnapshot{
		Project: models.Project{ID: "p1", Name: "Apollo", Status: models.ProjectActive},
		Nodes: []engine.GraphNode{
			{Task: models.Task{ID: "a", Name: "Design schema", Status: models.StatusCompleted}},
			{Task: models.Task{ID: "b", Name: "Write migrations", Status: models.StatusTodo, AssigneeID: "ivan"}, Ready: true},
			{Task: models.Task{ID: "c", Name: "Ship", Status: models.StatusTodo}},
		},
		Edges: []engine.GraphEdge{
			{Dependency: models.Dependency{ID: "d1", SourceTaskID: "a", TargetTaskID: "b"}, ActiveActions: 2},
			{Dependency: models.Dependency{ID: "d2", SourceTaskID: "b", TargetTaskID: "c"}},
		},
	}
}

func newLoadedBoard(t *testing.T) *Board {
	t.Helper()
	board := NewBoard(func(ctx context.Context) (*engine.GraphSnapshot, error) {
		return testSnapshot(), nil
	}, time.Second)

	model, _ := board.Update(snapshotMsg{snap: testSnapshot()})
	return model.(*Board)
}

func TestBoardView(t *testing.T) {
	board := newLoadedBoard(t)
	board.width = 80

	view := board.View()
	if !strings.Contains(view, "Apollo") {
		t.Error("expected project name in view")
	}
	for _, name := range []string{"Design schema", "Write migrations", "Ship"} {
		if !strings.Contains(view, name) {
			t.Errorf("expected task %q in view", name)
		}
	}
	if !strings.Contains(view, "3 tasks") || !strings.Contains(view, "1 ready") {
		t.Errorf("expected summary counts in view:\n%s", view)
	}
	if !strings.Contains(view, "2 dependencies, 2 action rules") {
		t.Errorf("expected edge summary in view:\n%s", view)
	}
	if !strings.Contains(view, "[ivan]") {
		t.Error("expected assignee marker in view")
	}
}

func TestBoardSelection(t *testing.T) {
	board := newLoadedBoard(t)

	if got := board.SelectedTask(); got == nil || got.ID != "a" {
		t.Fatalf("expected first task selected, got %+v", got)
	}

	model, _ := board.Update(tea.KeyMsg{Type: tea.KeyDown})
	board = model.(*Board)
	model, _ = board.Update(tea.KeyMsg{Type: tea.KeyDown})
	board = model.(*Board)

	if got := board.SelectedTask(); got == nil || got.ID != "c" {
		t.Fatalf("expected last task selected, got %+v", got)
	}

	// Moving past the end stays put.
	model, _ = board.Update(tea.KeyMsg{Type: tea.KeyDown})
	board = model.(*Board)
	if got := board.SelectedTask(); got == nil || got.ID != "c" {
		t.Fatalf("expected selection clamped, got %+v", got)
	}
}

func TestBoardSelectionClampedOnShrink(t *testing.T) {
	board := newLoadedBoard(t)
	board.selected = 2

	smaller := testSnapshot()
	smaller.Nodes = smaller.Nodes[:1]
	model, _ := board.Update(snapshotMsg{snap: smaller})
	board = model.(*Board)

	if got := board.SelectedTask(); got == nil || got.ID != "a" {
		t.Fatalf("expected selection clamped to remaining task, got %+v", got)
	}
}

func TestBoardQuit(t *testing.T) {
	board := newLoadedBoard(t)

	model, cmd := board.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	board = model.(*Board)
	if !board.quitting {
		t.Error("expected quitting state")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if board.View() != "" {
		t.Error("expected empty view while quitting")
	}
}

func TestBoardErrorView(t *testing.T) {
	board := NewBoard(func(ctx context.Context) (*engine.GraphSnapshot, error) {
		return nil, errors.New("db unreachable")
	}, time.Second)

	model, _ := board.Update(snapshotMsg{err: errors.New("db unreachable")})
	board = model.(*Board)

	view := board.View()
	if !strings.Contains(view, "db unreachable") {
		t.Errorf("expected error in view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a very long task name", 10); got != "a very ..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if len(truncate("abcdef", 3)) != 3 {
		t.Error("expected hard cut at tiny widths")
	}
}
