package engine

import (
	"context"

	"taskgrid/internal/store"
	"taskgrid/pkg/models"
)

// GraphNode is one task in a project snapshot with its computed
// readiness and canvas position.
type GraphNode struct {
	Task  models.Task `json:"task"`
	Ready bool        `json:"ready"`
}

// GraphEdge is one dependency in a project snapshot with a summary of
// its active actions.
type GraphEdge struct {
	Dependency    models.Dependency `json:"dependency"`
	ActiveActions int               `json:"active_actions"`
}

// GraphSnapshot is a read-only view of a project's graph for rendering
// surfaces: boards, canvases, exports.
type GraphSnapshot struct {
	Project models.Project `json:"project"`
	Nodes   []GraphNode    `json:"nodes"`
	Edges   []GraphEdge    `json:"edges"`
}

// IsTaskReady reports whether a task can be started: in todo with every
// prerequisite completed.
func (e *Engine) IsTaskReady(ctx context.Context, taskID string) (bool, error) {
	task, err := e.loadTask(taskID)
	if err != nil {
		return false, err
	}
	graph, err := e.loadGraph(task.ProjectID)
	if err != nil {
		return false, err
	}
	return graph.IsReady(taskID), nil
}

// ProjectGraph loads a project's full graph snapshot.
func (e *Engine) ProjectGraph(ctx context.Context, projectID string) (*GraphSnapshot, error) {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return nil, internal("load project", err)
	}
	if project == nil {
		return nil, notFoundf("project %s not found", projectID)
	}

	tasks, err := e.store.ProjectTasks(projectID, store.TaskFilter{})
	if err != nil {
		return nil, internal("load project tasks", err)
	}
	deps, err := e.store.ProjectDependencies(projectID)
	if err != nil {
		return nil, internal("load project dependencies", err)
	}

	graph, err := e.loadGraph(projectID)
	if err != nil {
		return nil, err
	}

	snap := &GraphSnapshot{Project: *project}
	for i := range tasks {
		snap.Nodes = append(snap.Nodes, GraphNode{
			Task:  tasks[i],
			Ready: graph.IsReady(tasks[i].ID),
		})
	}
	for i := range deps {
		actions, err := e.store.ListDependencyActions(deps[i].ID)
		if err != nil {
			return nil, internal("load edge actions", err)
		}
		active := 0
		for _, a := range actions {
			if a.IsActive {
				active++
			}
		}
		snap.Edges = append(snap.Edges, GraphEdge{
			Dependency:    deps[i],
			ActiveActions: active,
		})
	}
	return snap, nil
}
