package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskgrid/internal/authz"
	"taskgrid/internal/store"
	"taskgrid/internal/taskgraph"
	"taskgrid/pkg/models"
)

// CreateDependency inserts the edge source -> target after checking the
// graph invariants. If the source task is already final, the new edge's
// actions are evaluated immediately.
func (e *Engine) CreateDependency(ctx context.Context, sourceID, targetID, actorID, description string) (*models.Dependency, error) {
	source, err := e.loadTask(sourceID)
	if err != nil {
		return nil, err
	}
	target, err := e.loadTask(targetID)
	if err != nil {
		return nil, err
	}
	if source.ProjectID != target.ProjectID {
		return nil, validationf("tasks %s and %s are in different projects", sourceID, targetID)
	}

	actor, _, role, err := e.loadActor(source.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanCreateDependencies(actor, role, source) {
		return nil, forbiddenf("user %s cannot create dependencies from task %s", actorID, sourceID)
	}

	lock := e.projectLock(source.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	// The invariant check and the insert happen under the project lock,
	// so no concurrent edge insert can sneak a cycle past the check.
	graph, err := e.loadGraph(source.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := graph.AddDependency(sourceID, targetID); err != nil {
		switch {
		case errors.Is(err, taskgraph.ErrSelfDependency),
			errors.Is(err, taskgraph.ErrDuplicateDependency),
			errors.Is(err, taskgraph.ErrWouldCreateCycle):
			return nil, &Error{Kind: KindConflict, Msg: "dependency rejected", Err: err}
		default:
			return nil, internal("graph check", err)
		}
	}

	dep := &models.Dependency{
		ID:           uuid.NewString(),
		ProjectID:    source.ProjectID,
		SourceTaskID: sourceID,
		TargetTaskID: targetID,
		Type:         models.DependencyTypeSimple,
		Description:  description,
		CreatedBy:    actorID,
		CreatedAt:    e.clock(),
	}
	if err := e.withRetry(ctx, func() error { return e.store.CreateDependency(dep) }); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflictf("dependency %s -> %s already exists", sourceID, targetID)
		}
		return nil, internal("create dependency", err)
	}
	if err := e.appendEvent(source, actorID, models.EventDependencyAdded, "", targetID, nil); err != nil {
		return nil, err
	}

	if source.Status.IsFinal() {
		results := e.evaluateEdge(ctx, dep, actorID, triggerCompleted)
		e.logger.Info("evaluated new edge on final source",
			zap.String("dependency", dep.ID),
			zap.Int("actions", len(results)))
	}
	return dep, nil
}

// DeleteDependency removes an edge and writes a dependency_removed event
// on the source task.
func (e *Engine) DeleteDependency(ctx context.Context, depID, actorID string) error {
	dep, err := e.loadDependency(depID)
	if err != nil {
		return err
	}
	actor, _, role, err := e.loadActor(dep.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteDependencies(actor, role) {
		return forbiddenf("user %s cannot delete dependencies in project %s", actorID, dep.ProjectID)
	}

	lock := e.projectLock(dep.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.withRetry(ctx, func() error { return e.store.DeleteDependency(depID) }); err != nil {
		return internal("delete dependency", err)
	}

	source, err := e.loadTask(dep.SourceTaskID)
	if err == nil {
		if err := e.appendEvent(source, actorID, models.EventDependencyRemoved, dep.TargetTaskID, "", nil); err != nil {
			return err
		}
	}
	return nil
}

// AddActionRequest carries the inputs of AddDependencyAction.
type AddActionRequest struct {
	DependencyID    string
	ActorID         string
	Type            models.ActionType
	TargetUserID    string
	TargetStatus    models.Status
	MessageTemplate string
	DelayMinutes    int
	ExecuteOrder    int
}

// defaultReadyTemplate is used for notify_assignee actions created
// without an explicit template.
const defaultReadyTemplate = "Task {task_name} is ready to start"

// AddDependencyAction attaches an action rule to an edge. Requires the
// blanket edit capability: actions mutate and message other users' tasks
// when they fire.
func (e *Engine) AddDependencyAction(ctx context.Context, req AddActionRequest) (*models.DependencyAction, error) {
	dep, err := e.loadDependency(req.DependencyID)
	if err != nil {
		return nil, err
	}
	actor, _, role, err := e.loadActor(dep.ProjectID, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageActions(actor, role) {
		return nil, forbiddenf("user %s cannot manage actions in project %s", req.ActorID, dep.ProjectID)
	}

	if !req.Type.Valid() {
		return nil, validationf("unknown action type %q", req.Type)
	}
	if req.DelayMinutes < 0 {
		return nil, validationf("delay_minutes must not be negative")
	}
	if req.DelayMinutes > 0 && !req.Type.SupportsDelay() {
		return nil, validationf("action type %s does not support a delay", req.Type)
	}
	if req.Type.RequiresTargetUser() {
		if req.TargetUserID == "" {
			return nil, validationf("action type %s requires a target user", req.Type)
		}
		user, err := e.store.GetUser(req.TargetUserID)
		if err != nil {
			return nil, internal("load target user", err)
		}
		if user == nil {
			return nil, notFoundf("target user %s not found", req.TargetUserID)
		}
	}
	if req.Type == models.ActionChangeStatus && !req.TargetStatus.Valid() {
		return nil, validationf("change_status requires a valid target status")
	}

	template := req.MessageTemplate
	if template == "" && req.Type.RequiresTemplate() {
		if req.Type != models.ActionNotifyAssignee {
			return nil, validationf("action type %s requires a message template", req.Type)
		}
		template = defaultReadyTemplate
	}

	action := &models.DependencyAction{
		ID:              uuid.NewString(),
		DependencyID:    req.DependencyID,
		Type:            req.Type,
		TargetUserID:    req.TargetUserID,
		TargetStatus:    req.TargetStatus,
		MessageTemplate: template,
		DelayMinutes:    req.DelayMinutes,
		ExecuteOrder:    req.ExecuteOrder,
		IsActive:        true,
		CreatedAt:       e.clock(),
	}
	if err := e.withRetry(ctx, func() error { return e.store.CreateDependencyAction(action) }); err != nil {
		return nil, internal("create dependency action", err)
	}
	return action, nil
}

// RemoveDependencyAction deletes an action rule.
func (e *Engine) RemoveDependencyAction(ctx context.Context, actionID, actorID string) error {
	action, err := e.store.GetDependencyAction(actionID)
	if err != nil {
		return internal("load dependency action", err)
	}
	if action == nil {
		return notFoundf("dependency action %s not found", actionID)
	}
	dep, err := e.loadDependency(action.DependencyID)
	if err != nil {
		return err
	}
	actor, _, role, err := e.loadActor(dep.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanManageActions(actor, role) {
		return forbiddenf("user %s cannot manage actions in project %s", actorID, dep.ProjectID)
	}

	if err := e.withRetry(ctx, func() error { return e.store.DeleteDependencyAction(actionID) }); err != nil {
		return internal("delete dependency action", err)
	}
	return nil
}

// loadDependency fetches an edge or returns NotFound.
func (e *Engine) loadDependency(depID string) (*models.Dependency, error) {
	dep, err := e.store.GetDependency(depID)
	if err != nil {
		return nil, internal("load dependency", err)
	}
	if dep == nil {
		return nil, notFoundf("dependency %s not found", depID)
	}
	return dep, nil
}

// loadGraph materializes a project's task graph from the store.
func (e *Engine) loadGraph(projectID string) (*taskgraph.Graph, error) {
	tasks, err := e.store.ProjectTasks(projectID, store.TaskFilter{})
	if err != nil {
		return nil, internal("load project tasks", err)
	}
	deps, err := e.store.ProjectDependencies(projectID)
	if err != nil {
		return nil, internal("load project dependencies", err)
	}

	g := taskgraph.New(taskgraph.WithLogger(e.logger))
	for i := range tasks {
		g.AddTask(tasks[i].ID, tasks[i].Status)
	}
	for i := range deps {
		if err := g.AddDependency(deps[i].SourceTaskID, deps[i].TargetTaskID); err != nil {
			return nil, internal("rebuild project graph", err)
		}
	}
	return g, nil
}
