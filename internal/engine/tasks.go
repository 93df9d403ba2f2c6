package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskgrid/internal/authz"
	"taskgrid/internal/notify"
	"taskgrid/pkg/models"
)

// maxTaskNameLen is the upper bound on a trimmed task name, in runes.
const maxTaskNameLen = 500

// CreateTaskRequest carries the inputs of CreateTask.
type CreateTaskRequest struct {
	ProjectID   string
	ActorID     string
	Name        string
	Description string
	AssigneeID  string
	Deadline    *time.Time
	Priority    int
	PositionX   float64
	PositionY   float64
	Metadata    []byte
}

// TaskUpdate names the fields UpdateTask may change. Nil pointers leave
// the field alone; ClearDeadline removes the deadline.
type TaskUpdate struct {
	Name          *string
	Description   *string
	AssigneeID    *string
	Deadline      *time.Time
	ClearDeadline bool
	Priority      *int
	PositionX     *float64
	PositionY     *float64
}

// StatusChangeResult is the structured outcome of ChangeTaskStatus.
type StatusChangeResult struct {
	Task            *models.Task
	StatusChanged   bool
	OldStatus       models.Status
	NewStatus       models.Status
	ActionsExecuted []ActionResult
}

// CreateTask creates a task in todo status, emits a created event, and
// schedules deadline reminders when a deadline is set.
func (e *Engine) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	actor, _, role, err := e.loadActor(req.ProjectID, req.ActorID)
	if err != nil {
		return nil, err
	}
	project, err := e.loadActiveProject(req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !authz.CanCreateTasks(actor, role) {
		return nil, forbiddenf("user %s cannot create tasks in project %s", req.ActorID, project.ID)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("task name is empty")
	}
	if utf8.RuneCountInString(name) > maxTaskNameLen {
		return nil, validationf("task name exceeds %d characters", maxTaskNameLen)
	}
	if req.Priority < models.PriorityNormal || req.Priority > models.PriorityUrgent {
		return nil, validationf("priority %d out of range", req.Priority)
	}
	if req.AssigneeID != "" {
		if err := e.checkAssignee(req.ProjectID, req.AssigneeID); err != nil {
			return nil, err
		}
	}

	now := e.clock()
	task := &models.Task{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Name:        name,
		Description: req.Description,
		Status:      models.StatusTodo,
		AssigneeID:  req.AssigneeID,
		CreatorID:   req.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Deadline:    req.Deadline,
		Priority:    req.Priority,
		PositionX:   req.PositionX,
		PositionY:   req.PositionY,
		Metadata:    req.Metadata,
	}

	if err := e.withRetry(ctx, func() error { return e.store.CreateTask(task) }); err != nil {
		return nil, internal("create task", err)
	}
	if err := e.appendEvent(task, req.ActorID, models.EventCreated, "", task.Name, nil); err != nil {
		return nil, err
	}
	if task.Deadline != nil {
		if err := e.scheduleDeadlineReminders(ctx, task); err != nil {
			return nil, err
		}
	}

	e.logger.Info("task created",
		zap.String("task", task.ID),
		zap.String("project", task.ProjectID),
		zap.String("actor", req.ActorID))
	return task, nil
}

// UpdateTask applies a partial update, emitting one event per changed
// field. Reassignment validates membership and notifies the new
// assignee; a deadline change re-schedules the reminders.
func (e *Engine) UpdateTask(ctx context.Context, taskID, actorID string, upd TaskUpdate) (*models.Task, error) {
	task, err := e.loadTask(taskID)
	if err != nil {
		return nil, err
	}
	actor, _, role, err := e.loadActor(task.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditTask(actor, role, task) {
		return nil, forbiddenf("user %s cannot edit task %s", actorID, taskID)
	}

	lock := e.projectLock(task.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	// Reload under the lock so concurrent updates do not clobber.
	if task, err = e.loadTask(taskID); err != nil {
		return nil, err
	}

	type change struct {
		typ      models.EventType
		old, new string
		meta     []byte
	}
	var changes []change
	var newAssignee string
	deadlineChanged := false

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validationf("task name is empty")
		}
		if utf8.RuneCountInString(name) > maxTaskNameLen {
			return nil, validationf("task name exceeds %d characters", maxTaskNameLen)
		}
		if name != task.Name {
			changes = append(changes, change{models.EventUpdated, task.Name, name, fieldMeta("name")})
			task.Name = name
		}
	}
	if upd.Description != nil && *upd.Description != task.Description {
		changes = append(changes, change{models.EventUpdated, task.Description, *upd.Description, fieldMeta("description")})
		task.Description = *upd.Description
	}
	if upd.AssigneeID != nil && *upd.AssigneeID != task.AssigneeID {
		if *upd.AssigneeID != "" {
			if err := e.checkAssignee(task.ProjectID, *upd.AssigneeID); err != nil {
				return nil, err
			}
		}
		changes = append(changes, change{models.EventAssigneeChanged, task.AssigneeID, *upd.AssigneeID, nil})
		task.AssigneeID = *upd.AssigneeID
		newAssignee = *upd.AssigneeID
	}
	if upd.ClearDeadline {
		if task.Deadline != nil {
			changes = append(changes, change{models.EventUpdated, formatDeadline(task.Deadline), "", fieldMeta("deadline")})
			task.Deadline = nil
			deadlineChanged = true
		}
	} else if upd.Deadline != nil {
		if task.Deadline == nil || !task.Deadline.Equal(*upd.Deadline) {
			changes = append(changes, change{models.EventUpdated, formatDeadline(task.Deadline), formatDeadline(upd.Deadline), fieldMeta("deadline")})
			task.Deadline = upd.Deadline
			deadlineChanged = true
		}
	}
	if upd.Priority != nil && *upd.Priority != task.Priority {
		if *upd.Priority < models.PriorityNormal || *upd.Priority > models.PriorityUrgent {
			return nil, validationf("priority %d out of range", *upd.Priority)
		}
		changes = append(changes, change{models.EventUpdated, fmt.Sprint(task.Priority), fmt.Sprint(*upd.Priority), fieldMeta("priority")})
		task.Priority = *upd.Priority
	}
	if upd.PositionX != nil {
		task.PositionX = *upd.PositionX
	}
	if upd.PositionY != nil {
		task.PositionY = *upd.PositionY
	}

	task.UpdatedAt = e.clock()
	if err := e.withRetry(ctx, func() error { return e.store.UpdateTask(task) }); err != nil {
		return nil, internal("update task", err)
	}

	for _, c := range changes {
		if err := e.appendEvent(task, actorID, c.typ, c.old, c.new, c.meta); err != nil {
			return nil, err
		}
	}

	if deadlineChanged {
		if _, err := e.store.CancelScheduledActions(task.ID, models.ScheduledDeadlineApproaching); err != nil {
			return nil, internal("cancel deadline reminders", err)
		}
		if task.Deadline != nil {
			if err := e.scheduleDeadlineReminders(ctx, task); err != nil {
				return nil, err
			}
		}
	}

	if newAssignee != "" {
		e.notifyAssignment(ctx, task, newAssignee)
	}
	return task, nil
}

// ChangeTaskStatus transitions a task. Same-status calls are no-ops.
// Reopening a final task requires the blanket edit capability. When the
// transition crosses into a final status, every outgoing edge's actions
// are evaluated and their outcomes returned.
func (e *Engine) ChangeTaskStatus(ctx context.Context, taskID string, newStatus models.Status, actorID string) (*StatusChangeResult, error) {
	if !newStatus.Valid() {
		return nil, validationf("unknown status %q", newStatus)
	}
	task, err := e.loadTask(taskID)
	if err != nil {
		return nil, err
	}
	actor, _, role, err := e.loadActor(task.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditTask(actor, role, task) {
		return nil, forbiddenf("user %s cannot edit task %s", actorID, taskID)
	}
	if task.Status.IsFinal() && !newStatus.IsFinal() {
		if !authz.IsSuperuser(actor) && (role == nil || !role.CanEditAnyTask) {
			return nil, forbiddenf("reopening task %s requires edit_any_task", taskID)
		}
	}

	lock := e.projectLock(task.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	return e.changeStatusLocked(ctx, taskID, newStatus, actorID)
}

// changeStatusLocked performs the transition with the project lock held.
// It is also the entry point for action-driven change_status, which runs
// with system privilege (the authz check already happened for the
// triggering transition).
func (e *Engine) changeStatusLocked(ctx context.Context, taskID string, newStatus models.Status, actorID string) (*StatusChangeResult, error) {
	task, err := e.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	result := &StatusChangeResult{Task: task, OldStatus: task.Status, NewStatus: newStatus}
	if task.Status == newStatus {
		return result, nil
	}

	oldStatus := task.Status
	now := e.clock()
	task.Status = newStatus
	task.UpdatedAt = now
	if newStatus == models.StatusInProgress && task.StartedAt == nil {
		task.StartedAt = &now
	}
	if newStatus.IsFinal() && task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	if err := e.withRetry(ctx, func() error { return e.store.UpdateTask(task) }); err != nil {
		return nil, internal("update task status", err)
	}
	if err := e.appendEvent(task, actorID, models.EventStatusChanged, string(oldStatus), string(newStatus), nil); err != nil {
		return nil, err
	}

	result.Task = task
	result.StatusChanged = true

	if !oldStatus.IsFinal() && newStatus.IsFinal() {
		edges, err := e.store.OutgoingDependencies(task.ID)
		if err != nil {
			return nil, internal("load outgoing edges", err)
		}
		for i := range edges {
			result.ActionsExecuted = append(result.ActionsExecuted,
				e.evaluateEdge(ctx, &edges[i], actorID, triggerCompleted)...)
		}
	}

	e.logger.Info("status changed",
		zap.String("task", task.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
		zap.Int("actions", len(result.ActionsExecuted)))
	return result, nil
}

// DeleteTask removes a task, its edges and its pending scheduled work.
func (e *Engine) DeleteTask(ctx context.Context, taskID, actorID string) error {
	task, err := e.loadTask(taskID)
	if err != nil {
		return err
	}
	actor, _, role, err := e.loadActor(task.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteTask(actor, role, task) {
		return forbiddenf("user %s cannot delete task %s", actorID, taskID)
	}

	lock := e.projectLock(task.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.DeleteTaskDependencies(taskID); err != nil {
		return internal("delete task edges", err)
	}
	if _, err := e.store.CancelScheduledActions(taskID, ""); err != nil {
		return internal("cancel scheduled work", err)
	}
	if err := e.withRetry(ctx, func() error { return e.store.DeleteTask(taskID) }); err != nil {
		return internal("delete task", err)
	}

	e.logger.Info("task deleted", zap.String("task", taskID), zap.String("actor", actorID))
	return nil
}

// loadTask fetches a task or returns NotFound.
func (e *Engine) loadTask(taskID string) (*models.Task, error) {
	task, err := e.store.GetTask(taskID)
	if err != nil {
		return nil, internal("load task", err)
	}
	if task == nil {
		return nil, notFoundf("task %s not found", taskID)
	}
	return task, nil
}

// loadActor fetches the acting user plus their membership and role in
// the project. A missing membership yields nil member and role, which
// the authz predicates treat as "no capabilities".
func (e *Engine) loadActor(projectID, actorID string) (*models.User, *models.ProjectMember, *models.ProjectRole, error) {
	user, err := e.store.GetUser(actorID)
	if err != nil {
		return nil, nil, nil, internal("load user", err)
	}
	if user == nil {
		return nil, nil, nil, notFoundf("user %s not found", actorID)
	}

	member, err := e.store.GetMember(projectID, actorID)
	if err != nil {
		return nil, nil, nil, internal("load membership", err)
	}
	if member == nil || !member.IsActive {
		return user, nil, nil, nil
	}

	role, err := e.store.GetRole(member.Role)
	if err != nil {
		return nil, nil, nil, internal("load role", err)
	}
	return user, member, role, nil
}

// loadActiveProject fetches a project and rejects archived or deleted
// ones for mutations.
func (e *Engine) loadActiveProject(projectID string) (*models.Project, error) {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return nil, internal("load project", err)
	}
	if project == nil {
		return nil, notFoundf("project %s not found", projectID)
	}
	if project.Status != models.ProjectActive {
		return nil, conflictf("project %s is %s", projectID, project.Status)
	}
	return project, nil
}

// checkAssignee validates that the assignee is an active member.
func (e *Engine) checkAssignee(projectID, assigneeID string) error {
	member, err := e.store.GetMember(projectID, assigneeID)
	if err != nil {
		return internal("load assignee membership", err)
	}
	if member == nil || !member.IsActive {
		return validationf("assignee %s is not an active member of project %s", assigneeID, projectID)
	}
	return nil
}

// appendEvent writes one event-log entry for the task.
func (e *Engine) appendEvent(task *models.Task, actorID string, typ models.EventType, oldValue, newValue string, meta []byte) error {
	event := &models.Event{
		ID:        uuid.NewString(),
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		UserID:    actorID,
		Type:      typ,
		OldValue:  oldValue,
		NewValue:  newValue,
		Metadata:  meta,
		CreatedAt: e.clock(),
	}
	if err := e.store.AppendEvent(event); err != nil {
		return internal("append event", err)
	}
	return nil
}

// scheduleDeadlineReminders enqueues the T-24h and T-1h reminders for a
// task's deadline. Reminders already in the past are skipped.
func (e *Engine) scheduleDeadlineReminders(ctx context.Context, task *models.Task) error {
	now := e.clock()
	for _, hours := range []int{24, 1} {
		at := task.Deadline.Add(-time.Duration(hours) * time.Hour)
		if !at.After(now) {
			continue
		}
		payload, _ := json.Marshal(map[string]any{"hours_before": hours})
		sa := &models.ScheduledAction{
			ID:           uuid.NewString(),
			ProjectID:    task.ProjectID,
			TaskID:       task.ID,
			Type:         models.ScheduledDeadlineApproaching,
			ScheduledFor: at,
			Payload:      payload,
			Status:       models.ScheduledPending,
			CreatedAt:    now,
		}
		if err := e.withRetry(ctx, func() error { return e.store.CreateScheduledAction(sa) }); err != nil {
			return internal("schedule deadline reminder", err)
		}
	}
	return nil
}

// notifyAssignment tells the new assignee about the task, honoring
// their task_assigned preference. Failures are logged, not surfaced;
// assignment already succeeded.
func (e *Engine) notifyAssignment(ctx context.Context, task *models.Task, assigneeID string) {
	user, err := e.store.GetUser(assigneeID)
	if err != nil || user == nil {
		return
	}
	if !user.WantsNotification(models.NotifyTaskAssigned) {
		return
	}
	payload := map[string]string{
		"message": fmt.Sprintf("Task %s was assigned to you", task.Name),
		"task_id": task.ID,
	}
	if err := e.notifier.Notify(ctx, assigneeID, notify.KindTaskAssigned, payload); err != nil {
		e.logger.Warn("assignment notification failed",
			zap.String("task", task.ID),
			zap.String("assignee", assigneeID),
			zap.Error(err))
	}
}

func fieldMeta(field string) []byte {
	meta, _ := json.Marshal(map[string]string{"field": field})
	return meta
}

func formatDeadline(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
