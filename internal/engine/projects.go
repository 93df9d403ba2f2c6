package engine

import (
	"context"

	"go.uber.org/zap"

	"taskgrid/internal/authz"
	"taskgrid/pkg/models"
)

// SoftDeleteProject marks a project deleted and cancels all of its
// pending scheduled work. Tasks and edges stay in the store so the
// project can be restored, but surfaces hide them.
func (e *Engine) SoftDeleteProject(ctx context.Context, projectID, actorID string) error {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return internal("load project", err)
	}
	if project == nil {
		return notFoundf("project %s not found", projectID)
	}
	actor, _, role, err := e.loadActor(projectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteProject(actor, role) {
		return forbiddenf("user %s cannot delete project %s", actorID, projectID)
	}
	if project.Status == models.ProjectDeleted {
		return nil
	}

	lock := e.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	project.Status = models.ProjectDeleted
	if err := e.withRetry(ctx, func() error { return e.store.UpdateProject(project) }); err != nil {
		return internal("update project", err)
	}
	cancelled, err := e.store.CancelProjectScheduledActions(projectID)
	if err != nil {
		return internal("cancel project scheduled work", err)
	}

	e.logger.Info("project soft-deleted",
		zap.String("project", projectID),
		zap.Int64("cancelled_actions", cancelled))
	return nil
}

// ArchiveProject hides a project without cancelling its scheduled work.
func (e *Engine) ArchiveProject(ctx context.Context, projectID, actorID string) error {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return internal("load project", err)
	}
	if project == nil {
		return notFoundf("project %s not found", projectID)
	}
	actor, _, role, err := e.loadActor(projectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanEditProject(actor, role) {
		return forbiddenf("user %s cannot edit project %s", actorID, projectID)
	}
	if project.Status == models.ProjectArchived {
		return nil
	}

	project.Status = models.ProjectArchived
	if err := e.withRetry(ctx, func() error { return e.store.UpdateProject(project) }); err != nil {
		return internal("update project", err)
	}
	return nil
}
